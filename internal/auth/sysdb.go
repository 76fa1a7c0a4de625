package auth

import (
	"bufio"
	"os"
	"strings"
)

// SystemDB resolves "$p$<account>" realm specs against /etc/shadow,
// falling back to /etc/passwd, per SPEC_FULL.md §4.5's realm_add. Both
// files are read once at realm-registration time (bootstrap), never on
// the request path — SPEC_FULL.md §5 calls out system password databases
// as "read via blocking calls at realm-registration time only".
type SystemDB struct {
	ShadowPath string
	PasswdPath string
}

// NewSystemDB returns a resolver pointed at the standard system paths.
func NewSystemDB() *SystemDB {
	return &SystemDB{ShadowPath: "/etc/shadow", PasswdPath: "/etc/passwd"}
}

// ResolveSystemHash implements SystemResolver.
func (db *SystemDB) ResolveSystemHash(account string) (string, bool) {
	if hash, ok := lookupColonDB(db.ShadowPath, account, 1); ok {
		if isUsableHash(hash) {
			return hash, true
		}
	}
	if hash, ok := lookupColonDB(db.PasswdPath, account, 1); ok {
		if isUsableHash(hash) {
			return hash, true
		}
	}
	return "", false
}

// lookupColonDB scans a colon-delimited account database (/etc/shadow or
// /etc/passwd format) for the line whose first field equals account, and
// returns the field at index fieldIdx.
func lookupColonDB(path, account string, fieldIdx int) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) <= fieldIdx || fields[0] != account {
			continue
		}
		return fields[fieldIdx], true
	}
	return "", false
}

// isUsableHash rejects the shadow sentinels that mean "no password" or
// "account locked" ("", "*", "!", and "!"-prefixed locked hashes), none
// of which are valid crypt(3) output a client could ever satisfy.
func isUsableHash(hash string) bool {
	if hash == "" || hash == "*" || hash == "!" {
		return false
	}
	return !strings.HasPrefix(hash, "!")
}
