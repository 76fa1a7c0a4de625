package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempDB(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "db")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestResolveSystemHashPrefersShadow(t *testing.T) {
	shadow := writeTempDB(t, "bob:$1$abcdefgh$shadowhash:19000:0:99999:7:::\n")
	passwd := writeTempDB(t, "bob:x:1000:1000::/home/bob:/bin/sh\n")
	db := &SystemDB{ShadowPath: shadow, PasswdPath: passwd}

	hash, ok := db.ResolveSystemHash("bob")
	if !ok {
		t.Fatal("expected resolution to succeed")
	}
	if hash != "$1$abcdefgh$shadowhash" {
		t.Fatalf("hash = %q, want the shadow entry", hash)
	}
}

func TestResolveSystemHashFallsBackToPasswd(t *testing.T) {
	shadow := writeTempDB(t, "")
	passwd := writeTempDB(t, "bob:$1$abcdefgh$passwdhash:1000:1000::/home/bob:/bin/sh\n")
	db := &SystemDB{ShadowPath: shadow, PasswdPath: passwd}

	hash, ok := db.ResolveSystemHash("bob")
	if !ok {
		t.Fatal("expected resolution to succeed via passwd fallback")
	}
	if hash != "$1$abcdefgh$passwdhash" {
		t.Fatalf("hash = %q, want the passwd entry", hash)
	}
}

func TestResolveSystemHashMissingAccount(t *testing.T) {
	shadow := writeTempDB(t, "alice:$1$x$y:19000:0:99999:7:::\n")
	passwd := writeTempDB(t, "alice:x:1000:1000::/home/alice:/bin/sh\n")
	db := &SystemDB{ShadowPath: shadow, PasswdPath: passwd}

	if _, ok := db.ResolveSystemHash("bob"); ok {
		t.Fatal("expected resolution to fail for unknown account")
	}
}

func TestResolveSystemHashRejectsSentinels(t *testing.T) {
	for _, sentinel := range []string{"*", "!", "!locked"} {
		shadow := writeTempDB(t, "bob:"+sentinel+":19000:0:99999:7:::\n")
		db := &SystemDB{ShadowPath: shadow, PasswdPath: shadow}
		if _, ok := db.ResolveSystemHash("bob"); ok {
			t.Errorf("sentinel %q was accepted as a usable hash", sentinel)
		}
	}
}

func TestResolveSystemHashMissingFiles(t *testing.T) {
	db := &SystemDB{ShadowPath: "/nonexistent/shadow", PasswdPath: "/nonexistent/passwd"}
	if _, ok := db.ResolveSystemHash("bob"); ok {
		t.Fatal("expected failure when both files are missing")
	}
}
