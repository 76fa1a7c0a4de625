package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"UHTTPD_DOCROOT", "UHTTPD_REALM", "UHTTPD_NETWORK_TIMEOUT",
		"UHTTPD_NO_SYMLINKS", "UHTTPD_NO_DIRLISTS", "UHTTPD_INDEX_FILES",
		"UHTTPD_LISTEN", "UHTTPD_METRICS_LISTEN", "UHTTPD_TLS_CERT", "UHTTPD_TLS_KEY",
	} {
		os.Unsetenv(key)
	}
}

func TestLoadFromFlags(t *testing.T) {
	clearEnv(t)
	cfg, err := Load([]string{"-docroot", "/srv/www", "-listen", "0.0.0.0:9000"})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DocRoot != "/srv/www" {
		t.Errorf("DocRoot = %q", cfg.DocRoot)
	}
	if cfg.NetworkTimeout != 30 {
		t.Errorf("NetworkTimeout = %d, want default 30", cfg.NetworkTimeout)
	}
	if got := cfg.ListenAddrList(); len(got) != 1 || got[0] != "0.0.0.0:9000" {
		t.Errorf("ListenAddrList = %v", got)
	}
	if got := cfg.IndexFileList(); len(got) != 1 || got[0] != "index.html" {
		t.Errorf("IndexFileList = %v, want default [index.html]", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("UHTTPD_DOCROOT", "/from/env")
	t.Setenv("UHTTPD_LISTEN", "127.0.0.1:8081,127.0.0.1:8082")
	t.Setenv("UHTTPD_INDEX_FILES", "default.htm,index.htm")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DocRoot != "/from/env" {
		t.Errorf("DocRoot = %q", cfg.DocRoot)
	}
	if got := cfg.ListenAddrList(); len(got) != 2 {
		t.Errorf("ListenAddrList = %v, want 2 entries", got)
	}
	if got := cfg.IndexFileList(); len(got) != 2 || got[0] != "default.htm" {
		t.Errorf("IndexFileList = %v", got)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("UHTTPD_DOCROOT", "/from/env")

	cfg, err := Load([]string{"-docroot", "/from/flag"})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DocRoot != "/from/flag" {
		t.Errorf("DocRoot = %q, want flag value to win", cfg.DocRoot)
	}
}

func TestLoadRequiresDocRoot(t *testing.T) {
	clearEnv(t)
	if _, err := Load(nil); err == nil {
		t.Fatal("expected error when docroot is unset")
	}
}

func TestLoadRequiresAbsoluteDocRoot(t *testing.T) {
	clearEnv(t)
	if _, err := Load([]string{"-docroot", "relative/path"}); err == nil {
		t.Fatal("expected error for a relative docroot")
	}
}

func TestLoadRejectsMismatchedTLSFiles(t *testing.T) {
	clearEnv(t)
	if _, err := Load([]string{"-docroot", "/srv", "-tls-cert", "/a.pem"}); err == nil {
		t.Fatal("expected error when tls-cert is set without tls-key")
	}
}

func TestLoadRequiresListenAddr(t *testing.T) {
	clearEnv(t)
	if _, err := Load([]string{"-docroot", "/srv", "-listen", " , "}); err == nil {
		t.Fatal("expected error when no usable listen address remains")
	}
}
