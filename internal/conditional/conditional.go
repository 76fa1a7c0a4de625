// Package conditional evaluates the RFC 2616 §14 conditional-request
// headers in the fixed order SPEC_FULL.md §4.3 specifies, stopping at the
// first failure. The evaluation order deliberately inverts the RFC's
// recommended precedence (If-Modified-Since is checked before If-Match);
// this is preserved for compatibility per the open question in §9 rather
// than "corrected" — see DESIGN.md.
package conditional

import (
	"strings"

	"github.com/xqyjlj/uhttpd/internal/httpdate"
	"github.com/xqyjlj/uhttpd/internal/httpproto"
)

// Result is the outcome of evaluating all conditional headers present on
// a request against a given ETag and mtime.
type Result struct {
	// Status is 0 when every precondition passed (serve normally), or a
	// terminal status code (304 or 412) when one failed.
	Status int
}

// Normal reports whether the request should be served as if no
// conditional headers were present.
func (r Result) Normal() bool { return r.Status == 0 }

// Evaluate runs the fixed-order precedence table against etag/mtime.
// method distinguishes the If-None-Match "GET/HEAD gets 304, else 412"
// split.
func Evaluate(req *httpproto.Request, method httpproto.Method, etag string, mtimeSec int64) Result {
	if v, ok := req.Get("If-Modified-Since"); ok {
		if t, ok := httpdate.Parse(v); ok && t.Unix() >= mtimeSec {
			return Result{Status: 304}
		}
	}
	if v, ok := req.Get("If-Match"); ok {
		if !tokenMatches(v, etag) {
			return Result{Status: 412}
		}
	}
	if _, ok := req.Get("If-Range"); ok {
		// Ranges are unsupported; any If-Range is an unsatisfiable
		// precondition per the (non-conforming, intentionally preserved)
		// product decision recorded in SPEC_FULL.md §9.
		return Result{Status: 412}
	}
	if v, ok := req.Get("If-Unmodified-Since"); ok {
		if t, ok := httpdate.Parse(v); ok && t.Unix() <= mtimeSec {
			return Result{Status: 412}
		}
	}
	if v, ok := req.Get("If-None-Match"); ok {
		if tokenMatches(v, etag) {
			if method == httpproto.MethodGET || method == httpproto.MethodHEAD {
				return Result{Status: 304}
			}
			return Result{Status: 412}
		}
	}
	return Result{}
}

// tokenMatches splits v on ',' and ' ' and reports whether any resulting
// token equals etag (byte-for-byte, including surrounding quotes) or is
// the wildcard "*".
func tokenMatches(v string, etag string) bool {
	for _, tok := range splitTokens(v) {
		if tok == "*" || tok == etag {
			return true
		}
	}
	return false
}

func splitTokens(v string) []string {
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}
