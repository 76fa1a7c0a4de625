// Package pathresolver translates a request-URI into a physical file
// while enforcing that the result stays inside the document root. It
// implements §4.2 of SPEC_FULL.md: URL decoding, longest-to-shortest
// prefix canonicalization (for path-info/CGI splitting), the symlink
// policy, index-file fallback, and trailing-slash redirection.
package pathresolver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"golang.org/x/sys/unix"

	"github.com/xqyjlj/uhttpd/internal/urlcodec"
)

// ErrNotFound signals the resolver found nothing servable; the caller maps
// this to a 404 and writes no further diagnostic (the spec treats jail
// violations and plain missing files identically at this layer).
var ErrNotFound = errors.New("pathresolver: not found")

// Config is the subset of the server Config the resolver needs.
type Config struct {
	DocRoot    string   // absolute, no trailing slash
	NoSymlinks bool     // true: OS-realpath jail; false: lexical-only jail
	IndexFiles []string // tried in order for a bare directory request
}

// Info is the spec's PathInfo: either a servable file/directory, or a
// completed redirect (Redirected == true, nothing left for the caller to
// do but close out the response).
type Info struct {
	DocRoot     string
	Phys        string // resolved physical path, always under DocRoot
	Name        string // Phys with the DocRoot prefix stripped
	PathInfo    string // residual URL suffix the filesystem didn't match
	Query       []byte // raw bytes after '?', verbatim
	Redirected  bool
	RedirectTo  string // Location value, only set when Redirected
	Stat        fs.FileInfo
	IsDirectory bool
}

// Resolve implements SPEC_FULL.md §4.2 steps 1–8.
func Resolve(rawURL []byte, cfg Config) (*Info, error) {
	// Step 1: split at the first '?'.
	rawPath := rawURL
	var query []byte
	if i := indexByte(rawURL, '?'); i >= 0 {
		rawPath = rawURL[:i]
		query = rawURL[i+1:]
	}
	hadTrailingSlash := len(rawPath) > 0 && rawPath[len(rawPath)-1] == '/'

	// Step 2: URL-decode.
	decoded, err := urlcodec.Decode(rawPath)
	if err != nil {
		return nil, ErrNotFound
	}
	if len(decoded) == 0 || decoded[0] != '/' {
		decoded = append([]byte{'/'}, decoded...)
	}

	full := cfg.DocRoot + string(decoded)

	// Step 3: walk candidate prefixes longest to shortest at '/' boundaries.
	candidate := full
	var pathInfo string
	for {
		canon, fi, ok := canonicalize(candidate, cfg)
		if ok {
			name := strings.TrimPrefix(canon, cfg.DocRoot)
			if name == "" {
				name = "/"
			}
			info := &Info{
				DocRoot:     cfg.DocRoot,
				Phys:        canon,
				Name:        name,
				PathInfo:    pathInfo,
				Query:       query,
				Stat:        fi,
				IsDirectory: fi.IsDir(),
			}
			if fi.IsDir() {
				return finishDirectory(info, hadTrailingSlash, cfg)
			}
			return info, nil
		}
		// Strip the last path segment and retry as a shorter candidate,
		// preserving the stripped tail as path-info.
		cut := strings.LastIndexByte(candidate, '/')
		if cut <= len(cfg.DocRoot) {
			break // exhausted all candidates down to the docroot itself
		}
		if pathInfo == "" {
			pathInfo = candidate[cut:]
		} else {
			pathInfo = candidate[cut:] + pathInfo
		}
		candidate = candidate[:cut]
	}

	// Step 8: nothing matched, including the docroot itself.
	return nil, ErrNotFound
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// canonicalize resolves candidate per the configured symlink policy and
// enforces the docroot jail (step 4/5). ok is false if the candidate
// doesn't exist, isn't readable, or escapes the jail.
func canonicalize(candidate string, cfg Config) (canon string, fi fs.FileInfo, ok bool) {
	if cfg.NoSymlinks {
		resolved, err := securejoin.SecureJoin(cfg.DocRoot, strings.TrimPrefix(candidate, cfg.DocRoot))
		if err != nil {
			return "", nil, false
		}
		canon = resolved
	} else {
		canon = filepath.Clean(candidate)
	}
	if !withinJail(canon, cfg.DocRoot) {
		return "", nil, false
	}
	info, err := os.Stat(canon)
	if err != nil {
		return "", nil, false
	}
	if !worldReadable(info) || !accessible(canon, unix.R_OK) {
		return "", nil, false
	}
	return canon, info, true
}

// withinJail is the invariant from SPEC_FULL.md §8: canon equals docroot,
// or has docroot followed by '/'.
func withinJail(canon, docroot string) bool {
	if canon == docroot {
		return true
	}
	return strings.HasPrefix(canon, docroot+string(filepath.Separator))
}

func worldReadable(fi fs.FileInfo) bool { return fi.Mode().Perm()&0o004 != 0 }
func worldExecutable(fi fs.FileInfo) bool { return fi.Mode().Perm()&0o001 != 0 }

// accessible double-checks actual accessibility via the access(2) syscall,
// which honors POSIX ACLs a raw mode-bit check can miss. mode is
// unix.R_OK or unix.X_OK.
func accessible(path string, mode uint32) bool {
	return unix.Access(path, mode) == nil
}

// finishDirectory implements step 7: trailing-slash redirect, then
// index-file fallback.
func finishDirectory(info *Info, hadTrailingSlash bool, cfg Config) (*Info, error) {
	if info.PathInfo != "" {
		// A directory followed by an unmatched suffix is not servable:
		// only a regular file may carry residual path-info.
		return nil, ErrNotFound
	}
	if !hadTrailingSlash {
		loc := info.Name
		if !strings.HasSuffix(loc, "/") {
			loc += "/"
		}
		if len(info.Query) > 0 {
			loc += "?" + string(info.Query)
		}
		info.Redirected = true
		info.RedirectTo = loc
		return info, nil
	}
	for _, idx := range cfg.IndexFiles {
		idxPath := filepath.Join(info.Phys, idx)
		fi, err := os.Stat(idxPath)
		if err != nil || !fi.Mode().IsRegular() || !worldReadable(fi) {
			continue
		}
		info.Phys = idxPath
		info.Name = strings.TrimPrefix(idxPath, info.DocRoot)
		info.Stat = fi
		info.IsDirectory = false
		return info, nil
	}
	return info, nil // bare directory, no index found
}

// WorldExecutable is exported for the directory-listing two-pass split in
// internal/fileserver (subdirectories must be world-executable to be
// listed, per SPEC_FULL.md §4.4).
func WorldExecutable(fi fs.FileInfo) bool { return worldExecutable(fi) }

// WorldReadable is exported for the same reason (files must be
// world-readable to be listed).
func WorldReadable(fi fs.FileInfo) bool { return worldReadable(fi) }
