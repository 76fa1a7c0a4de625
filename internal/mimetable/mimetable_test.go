package mimetable

import "testing"

func TestLookupKnownExtensions(t *testing.T) {
	tbl := New(nil)
	cases := map[string]string{
		"index.html":       "text/html",
		"a/b/c/style.CSS":  "text/css",
		"archive.tar.gz":   "application/gzip",
		"photo.jpeg":       "image/jpeg",
		"script.js":        "application/javascript",
	}
	for path, want := range cases {
		if got := tbl.Lookup(path); got != want {
			t.Errorf("Lookup(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestLookupNoExtension(t *testing.T) {
	tbl := New(nil)
	cases := []string{"README", "dir/noext", "trailing.", "a.b/file"}
	for _, path := range cases {
		if got := tbl.Lookup(path); got != DefaultType {
			t.Errorf("Lookup(%q) = %q, want %q", path, got, DefaultType)
		}
	}
}

func TestLookupUnknownExtension(t *testing.T) {
	tbl := New(nil)
	if got := tbl.Lookup("weird.zzzz"); got != DefaultType {
		t.Errorf("Lookup(weird.zzzz) = %q, want %q", got, DefaultType)
	}
}

func TestOverridesAddAndReplace(t *testing.T) {
	tbl := New(map[string]string{
		"html": "application/x-custom-html",
		"xyz":  "application/x-xyz",
	})
	if got := tbl.Lookup("index.html"); got != "application/x-custom-html" {
		t.Errorf("override did not replace html type, got %q", got)
	}
	if got := tbl.Lookup("thing.xyz"); got != "application/x-xyz" {
		t.Errorf("override did not add new extension, got %q", got)
	}
	if got := tbl.Lookup("photo.jpeg"); got != "image/jpeg" {
		t.Errorf("unrelated default type was disturbed, got %q", got)
	}
}

func TestOverrideKeyIsLowercased(t *testing.T) {
	tbl := New(map[string]string{"TXT": "custom/type"})
	if got := tbl.Lookup("file.txt"); got != "custom/type" {
		t.Errorf("Lookup(file.txt) = %q, want custom/type", got)
	}
}
