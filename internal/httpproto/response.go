package httpproto

import (
	"strconv"
	"time"

	"github.com/xqyjlj/uhttpd/internal/httpdate"
	"github.com/xqyjlj/uhttpd/internal/netio"
)

// Response accumulates a status line and header lines, then flushes them
// as a single write before any body fragment goes out. Every response
// this core emits sets Connection: close (persistent connections are a
// declared Non-goal).
type Response struct {
	conn    *netio.Conn
	version Version
	status  int
	reason  string
	headers []byte
	sent    bool
}

// NewResponse starts a response for the given wire version.
func NewResponse(conn *netio.Conn, version Version) *Response {
	return &Response{conn: conn, version: version}
}

// SetStatus records the status line to be sent on Flush.
func (r *Response) SetStatus(code int, reason string) {
	r.status = code
	r.reason = reason
}

// AddHeader appends one "Name: Value\r\n" header line.
func (r *Response) AddHeader(name, value string) {
	r.headers = append(r.headers, name...)
	r.headers = append(r.headers, ':', ' ')
	r.headers = append(r.headers, value...)
	r.headers = append(r.headers, '\r', '\n')
}

// AddDate adds the current-time Date header.
func (r *Response) AddDate(now time.Time) {
	r.AddHeader("Date", httpdate.Format(now))
}

// AddLastModified adds Last-Modified from a unix mtime.
func (r *Response) AddLastModified(mtimeSec int64) {
	r.AddHeader("Last-Modified", httpdate.FormatUnix(mtimeSec))
}

// AddContentLength adds a numeric Content-Length header.
func (r *Response) AddContentLength(size int64) {
	r.AddHeader("Content-Length", strconv.FormatInt(size, 10))
}

// Chunked reports whether the body, if any, must be chunk-encoded: true
// only for HTTP/1.1 and only when the caller hasn't suppressed it (HEAD
// responses never carry a body to frame).
func (r *Response) Chunked(suppressForHead bool) bool {
	return r.version.IsHTTP11() && !suppressForHead
}

// Flush writes the status line and accumulated headers plus the blank
// line that ends the header section. It is a no-op on a second call,
// since the handler must never emit a second response after the first was
// partially sent (SPEC_FULL.md §7).
func (r *Response) Flush() error {
	if r.sent {
		return nil
	}
	r.sent = true
	line := r.version.String() + " " + strconv.Itoa(r.status) + " " + r.reason + "\r\n"
	buf := make([]byte, 0, len(line)+len(r.headers)+2)
	buf = append(buf, line...)
	buf = append(buf, "Connection: close\r\n"...)
	buf = append(buf, r.headers...)
	buf = append(buf, '\r', '\n')
	return r.conn.Send(buf)
}

// WriteFragment sends one body fragment, chunk-encoding it first if
// chunked is true. Must be called after Flush.
func (r *Response) WriteFragment(p []byte, chunked bool) error {
	return r.conn.SendFragment(p, chunked)
}

// EndChunked sends the empty terminator chunk.
func (r *Response) EndChunked() error {
	return r.conn.SendChunk(nil)
}
