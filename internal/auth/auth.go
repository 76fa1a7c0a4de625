// Package auth implements SPEC_FULL.md §4.5: realm registration (with
// system-account hash resolution), first-match-by-insertion-order realm
// lookup, and Basic credential verification.
//
// The "Crypt-based password verify" design note calls for isolating
// verification behind a small capability so the plaintext, system-crypt,
// and bcrypt backends are interchangeable and independently testable —
// Verifier below is that capability.
package auth

import (
	"strings"

	"github.com/xqyjlj/uhttpd/internal/urlcodec"
)

// Verifier checks a candidate plaintext password against whatever the
// realm stored. Verify must be side-effect free and safe to call from
// many connection goroutines concurrently.
type Verifier interface {
	Verify(plaintext string) bool
}

// storedVerifier holds the one string a realm_add call ends up with
// (either the literal pass, or a resolved system hash) and implements
// step 3 of Check verbatim: success if the plaintext equals the stored
// value outright, OR the stored value parses as a recognized crypt(3)
// hash and the plaintext matches it under that scheme. Both comparisons
// are always attempted; either passing grants access.
type storedVerifier string

func (v storedVerifier) Verify(plaintext string) bool {
	stored := string(v)
	if plaintext == stored {
		return true
	}
	return cryptMatches(plaintext, stored)
}

// Realm is one AuthRealm entry: a URL-prefix path, a username, and a
// verifier. Realms are matched case-insensitively on Path.
type Realm struct {
	Path     string
	User     string
	Verifier Verifier
}

// Realms is the insertion-ordered realm sequence. Lookup is first-match
// by insertion order, not longest-prefix — SPEC_FULL.md §4.5 step 1 scans
// in insertion order and adopts the first covering prefix, so operators
// must register more specific realms before broader ones if both should
// ever apply to the same path.
type Realms struct {
	entries []Realm
}

// NewRealms returns an empty realm set.
func NewRealms() *Realms { return &Realms{} }

// Add registers a realm. If pass begins with the literal "$p$", resolve
// is called with the remainder (a system account name) to obtain the
// stored hash; otherwise pass is stored verbatim as a storedVerifier. If
// resolve returns ok=false (no such account, or no usable hash), the
// realm is silently dropped, matching "reject silently if no verifier
// materializes".
func (r *Realms) Add(path, user, pass string, resolve SystemResolver) {
	const sysPrefix = "$p$"
	stored := pass
	if strings.HasPrefix(pass, sysPrefix) {
		account := pass[len(sysPrefix):]
		hash, ok := resolve.ResolveSystemHash(account)
		if !ok || hash == "" {
			return
		}
		stored = hash
	}
	r.entries = append(r.entries, Realm{Path: path, User: user, Verifier: storedVerifier(stored)})
}

// SystemResolver resolves a system account name to its stored password
// hash, preferring the shadow database over the passwd database per
// SPEC_FULL.md §4.5.
type SystemResolver interface {
	ResolveSystemHash(account string) (hash string, ok bool)
}

// find returns the first realm whose Path is a case-insensitive prefix of
// name, in insertion order.
func (r *Realms) find(name string) (Realm, bool) {
	for _, realm := range r.entries {
		if hasPrefixFold(name, realm.Path) {
			return realm, true
		}
	}
	return Realm{}, false
}

// findByPathAndUser rescans for a realm matching both path and user,
// used after decoding the Authorization header (step 2). This is a
// genuinely independent scan from find's step-1 lookup: the realm it
// lands on need not be the same realm step 1 matched by path alone, and
// Check grants access based on whichever realm this scan finds.
func (r *Realms) findByPathAndUser(name, user string) (Realm, bool) {
	for _, realm := range r.entries {
		if hasPrefixFold(name, realm.Path) && realm.User == user {
			return realm, true
		}
	}
	return Realm{}, false
}

func hasPrefixFold(s, prefix string) bool {
	if len(prefix) > len(s) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}

// CheckResult reports the outcome of Check.
type CheckResult int

const (
	// Pass: either no realm covers this path, or valid credentials were
	// presented.
	Pass CheckResult = iota
	// Unauthorized: the path is protected and credentials were missing,
	// malformed, or wrong.
	Unauthorized
)

// Check implements SPEC_FULL.md §4.5's check(request, path_info).
func (r *Realms) Check(name string, authorizationHeader string) CheckResult {
	if _, protected := r.find(name); !protected {
		return Pass
	}
	user, pass, ok := decodeBasic(authorizationHeader)
	if !ok {
		return Unauthorized
	}
	matched, ok := r.findByPathAndUser(name, user)
	if !ok {
		return Unauthorized
	}
	if matched.Verifier.Verify(pass) {
		return Pass
	}
	return Unauthorized
}

// decodeBasic extracts "user" and "pass" from an
// "Authorization: Basic <b64>" header value. The scheme comparison is
// case-sensitive per the spec; only the header *name* lookup (done by the
// caller via Request.Get) is case-insensitive.
func decodeBasic(header string) (user, pass string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	raw, err := urlcodec.DecodeBasic(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	i := strings.IndexByte(string(raw), ':')
	if i < 0 {
		return "", "", false
	}
	return string(raw[:i]), string(raw[i+1:]), true
}
