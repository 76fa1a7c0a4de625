// Package httpdate formats and parses the RFC 1123 date strings used in
// Date, Last-Modified, If-Modified-Since, and If-Unmodified-Since headers,
// and builds the weak ETag the conditional engine and file handler share.
//
// The original C implementation keeps its date/etag scratch buffers static
// ("sa_straddr", "unix2date", "mktag" in the design notes); this port
// returns owned strings by value instead, as SPEC_FULL.md §9 records.
package httpdate

import (
	"strconv"
	"time"
)

// Layout is the wire format: "Wkd, DD Mon YYYY HH:MM:SS GMT".
const Layout = "Mon, 02 Jan 2006 15:04:05 GMT"

// NowFunc returns the current time. Exported as a var so tests can pin
// the Date header to a fixed instant without a clock-injection interface
// threaded through every caller.
var NowFunc = time.Now

// Format renders t (any timezone) as an RFC 1123 GMT date string.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// FormatUnix is a convenience wrapper for mtimes stored as unix seconds.
func FormatUnix(sec int64) string {
	return Format(time.Unix(sec, 0))
}

// Parse parses an RFC 1123 GMT date string. It also accepts the two other
// formats RFC 2616 §3.3.1 allows clients to send (RFC 850 and ANSI C
// asctime), since real clients and curl scripts still emit them.
func Parse(s string) (time.Time, bool) {
	for _, layout := range []string{
		Layout,
		"Monday, 02-Jan-06 15:04:05 GMT",
		"Mon Jan _2 15:04:05 2006",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ETag builds the weak entity tag `"<hex-inode>-<hex-size>-<hex-mtime>"`
// from a file's inode number, size in bytes, and mtime in unix seconds.
// All three components are lowercase hex with no leading zeros (other than
// the single digit "0" itself).
func ETag(inode uint64, size int64, mtimeSec int64) string {
	return `"` + strconv.FormatUint(inode, 16) + "-" +
		strconv.FormatInt(size, 16) + "-" +
		strconv.FormatInt(mtimeSec, 16) + `"`
}
