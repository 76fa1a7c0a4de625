// Package fileserver implements SPEC_FULL.md §4.4: streaming a regular
// file (with conditional-request short-circuiting), rendering a directory
// listing, and the catch-all 403 for anything else. Grounded on the
// teacher's staticHandlet.Handle in hemi/web_handlet_static.go — same
// shape (stat, run preconditions, pick Content-Type, stream or list), own
// semantics (this core has no file cache, CGI dispatch, or range support).
package fileserver

import (
	"io"
	"os"
	"sort"
	"strconv"
	"syscall"

	"github.com/xqyjlj/uhttpd/internal/conditional"
	"github.com/xqyjlj/uhttpd/internal/httpdate"
	"github.com/xqyjlj/uhttpd/internal/httpproto"
	"github.com/xqyjlj/uhttpd/internal/mimetable"
	"github.com/xqyjlj/uhttpd/internal/pathresolver"
)

const streamBufSize = 32 * 1024

// ServeFile streams a regular file, running the conditional engine first.
// It returns the status actually sent on the wire (200, 304, or 412) so
// callers can report it accurately, independent of whether err is nil.
func ServeFile(resp *httpproto.Response, req *httpproto.Request, info *pathresolver.Info, mime *mimetable.Table) (int, error) {
	inode, _ := inodeOf(info.Stat)
	size := info.Stat.Size()
	mtime := info.Stat.ModTime().Unix()
	etag := httpdate.ETag(inode, size, mtime)

	result := conditional.Evaluate(req, req.Method, etag, mtime)
	if !result.Normal() {
		resp.SetStatus(result.Status, statusReason(result.Status))
		if result.Status == 304 {
			resp.AddHeader("ETag", etag)
			resp.AddLastModified(mtime)
			resp.AddDate(httpdate.NowFunc())
		}
		if err := resp.Flush(); err != nil {
			return result.Status, err
		}
		return result.Status, nil
	}

	isHead := req.Method == httpproto.MethodHEAD
	chunked := resp.Chunked(isHead)

	resp.SetStatus(200, "OK")
	resp.AddHeader("ETag", etag)
	resp.AddLastModified(mtime)
	resp.AddDate(httpdate.NowFunc())
	resp.AddHeader("Content-Type", mime.Lookup(info.Name))
	resp.AddContentLength(size)
	if chunked {
		resp.AddHeader("Transfer-Encoding", "chunked")
	}
	if err := resp.Flush(); err != nil {
		return 200, err
	}
	if isHead {
		return 200, nil
	}

	f, err := os.Open(info.Phys)
	if err != nil {
		return 200, err
	}
	defer f.Close()

	buf := make([]byte, streamBufSize)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if werr := resp.WriteFragment(buf[:n], chunked); werr != nil {
				return 200, werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return 200, rerr
		}
	}
	if chunked {
		return 200, resp.EndChunked()
	}
	return 200, nil
}

// entry is one row of a rendered directory listing.
type entry struct {
	name string
	mime string
	date string
	kib  int64
}

// ServeDirectory renders a two-pass listing (subdirectories first, then
// files), each sorted case-sensitive ASCII alphabetical, per
// SPEC_FULL.md §4.4. Neither "." nor ".." is ever listed: os.File.Readdir
// does not return them and no parent-directory row is added.
func ServeDirectory(resp *httpproto.Response, req *httpproto.Request, info *pathresolver.Info, mime *mimetable.Table) error {
	chunked := resp.Chunked(req.Method == httpproto.MethodHEAD)
	resp.SetStatus(200, "OK")
	resp.AddHeader("Content-Type", "text/html")
	resp.AddDate(httpdate.NowFunc())
	if chunked {
		resp.AddHeader("Transfer-Encoding", "chunked")
	}
	if err := resp.Flush(); err != nil {
		return err
	}
	if req.Method == httpproto.MethodHEAD {
		return nil
	}

	dirs, files, err := scanDirectory(info.Phys, mime)
	if err != nil {
		return err
	}
	body := renderListing(info.Name, dirs, files)
	if err := resp.WriteFragment([]byte(body), chunked); err != nil {
		return err
	}
	if chunked {
		return resp.EndChunked()
	}
	return nil
}

func scanDirectory(dir string, mime *mimetable.Table) (dirs, files []entry, err error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	fis, err := f.Readdir(-1)
	if err != nil {
		return nil, nil, err
	}
	for _, fi := range fis {
		name := fi.Name()
		if name == "." {
			continue
		}
		if fi.IsDir() {
			if !pathresolver.WorldExecutable(fi) {
				continue
			}
			dirs = append(dirs, entry{name: name + "/", date: httpdate.FormatUnix(fi.ModTime().Unix())})
			continue
		}
		if !fi.Mode().IsRegular() || !pathresolver.WorldReadable(fi) {
			continue
		}
		files = append(files, entry{
			name: name,
			mime: mime.Lookup(name),
			date: httpdate.FormatUnix(fi.ModTime().Unix()),
			kib:  (fi.Size() + 1023) / 1024,
		})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].name < dirs[j].name })
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return dirs, files, nil
}

func renderListing(name string, dirs, files []entry) string {
	var b []byte
	b = append(b, "<html><head><title>Index of "...)
	b = append(b, htmlEscape(name)...)
	b = append(b, "</title></head><body><h1>Index of "...)
	b = append(b, htmlEscape(name)...)
	b = append(b, "</h1><table>"...)
	b = append(b, "<tr><th>Name</th><th>Type</th><th>Last Modified</th><th>Size</th></tr>"...)
	for _, d := range dirs {
		b = append(b, "<tr><td><a href=\""...)
		b = append(b, htmlEscape(d.name)...)
		b = append(b, "\">"...)
		b = append(b, htmlEscape(d.name)...)
		b = append(b, "</a></td><td>directory</td><td>"...)
		b = append(b, d.date...)
		b = append(b, "</td><td>-</td></tr>"...)
	}
	for _, f := range files {
		b = append(b, "<tr><td><a href=\""...)
		b = append(b, htmlEscape(f.name)...)
		b = append(b, "\">"...)
		b = append(b, htmlEscape(f.name)...)
		b = append(b, "</a></td><td>"...)
		b = append(b, htmlEscape(f.mime)...)
		b = append(b, "</td><td>"...)
		b = append(b, f.date...)
		b = append(b, "</td><td>"...)
		b = append(b, strconv.FormatInt(f.kib, 10)...)
		b = append(b, " KiB</td></tr>"...)
	}
	b = append(b, "</table></body></html>"...)
	return string(b)
}

func htmlEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}

// ServeForbidden emits a 403 as a chunked plain-text body, per
// SPEC_FULL.md §4.4's catch-all for anything that is neither a regular
// file nor a listable directory.
func ServeForbidden(resp *httpproto.Response, req *httpproto.Request) error {
	chunked := resp.Chunked(req.Method == httpproto.MethodHEAD)
	resp.SetStatus(403, "Forbidden")
	resp.AddHeader("Content-Type", "text/plain")
	resp.AddDate(httpdate.NowFunc())
	if chunked {
		resp.AddHeader("Transfer-Encoding", "chunked")
	}
	if err := resp.Flush(); err != nil {
		return err
	}
	if req.Method == httpproto.MethodHEAD {
		return nil
	}
	if err := resp.WriteFragment([]byte("Forbidden\n"), chunked); err != nil {
		return err
	}
	if chunked {
		return resp.EndChunked()
	}
	return nil
}

func statusReason(code int) string {
	switch code {
	case 304:
		return "Not Modified"
	case 412:
		return "Precondition Failed"
	default:
		return "OK"
	}
}

func inodeOf(fi os.FileInfo) (uint64, bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return st.Ino, true
}
