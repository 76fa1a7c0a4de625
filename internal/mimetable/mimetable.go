// Package mimetable is the MIME-extension lookup the file handler and
// directory renderer consult. The spec treats MIME-table *contents* as an
// out-of-scope external collaborator ("ordered list of (extension,
// mime-type) pairs consulted right-to-left from path end") — this package
// supplies a reasonable built-in table (grounded on the teacher's
// staticDefaultMimeTypes in hemi/web_static.go) plus the override hook a
// real deployment's config would use.
package mimetable

import "strings"

// DefaultType is returned when no extension matches.
const DefaultType = "application/octet-stream"

// Table is an ordered (extension, MIME type) lookup. Extensions are
// lowercase and without the leading dot.
type Table struct {
	byExt map[string]string
}

// New builds a table seeded with the built-in defaults, then applies
// overrides (which may add new extensions or replace default ones) —
// mirroring the teacher's "copy defaults, then overwrite with config"
// construction in staticHandlet.OnConfigure.
func New(overrides map[string]string) *Table {
	t := &Table{byExt: make(map[string]string, len(defaultTypes)+len(overrides))}
	for ext, typ := range defaultTypes {
		t.byExt[ext] = typ
	}
	for ext, typ := range overrides {
		t.byExt[strings.ToLower(ext)] = typ
	}
	return t
}

// Lookup scans path right-to-left for the last "." (stopping at the last
// "/"), lowercases the remainder, and looks it up. Returns DefaultType on
// no match, including for paths with no extension at all.
func (t *Table) Lookup(path string) string {
	slash := strings.LastIndexByte(path, '/')
	dot := strings.LastIndexByte(path, '.')
	if dot <= slash || dot == len(path)-1 {
		return DefaultType
	}
	ext := strings.ToLower(path[dot+1:])
	if typ, ok := t.byExt[ext]; ok {
		return typ
	}
	return DefaultType
}

var defaultTypes = map[string]string{
	"7z":   "application/x-7z-compressed",
	"atom": "application/atom+xml",
	"bin":  "application/octet-stream",
	"bmp":  "image/x-ms-bmp",
	"css":  "text/css",
	"deb":  "application/octet-stream",
	"dll":  "application/octet-stream",
	"doc":  "application/msword",
	"dmg":  "application/octet-stream",
	"exe":  "application/octet-stream",
	"flv":  "video/x-flv",
	"gif":  "image/gif",
	"gz":   "application/gzip",
	"htm":  "text/html",
	"html": "text/html",
	"ico":  "image/x-icon",
	"img":  "application/octet-stream",
	"iso":  "application/octet-stream",
	"jar":  "application/java-archive",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"js":   "application/javascript",
	"json": "application/json",
	"m4a":  "audio/x-m4a",
	"mov":  "video/quicktime",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",
	"mpeg": "video/mpeg",
	"mpg":  "video/mpeg",
	"pdf":  "application/pdf",
	"png":  "image/png",
	"ppt":  "application/vnd.ms-powerpoint",
	"ps":   "application/postscript",
	"rar":  "application/x-rar-compressed",
	"rss":  "application/rss+xml",
	"rtf":  "application/rtf",
	"svg":  "image/svg+xml",
	"tar":  "application/x-tar",
	"txt":  "text/plain",
	"war":  "application/java-archive",
	"webm": "video/webm",
	"webp": "image/webp",
	"xls":  "application/vnd.ms-excel",
	"xml":  "text/xml",
	"zip":  "application/zip",
}
