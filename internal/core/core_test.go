package core

import (
	"encoding/base64"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xqyjlj/uhttpd/internal/auth"
	"github.com/xqyjlj/uhttpd/internal/corelog"
	"github.com/xqyjlj/uhttpd/internal/mimetable"
	"github.com/xqyjlj/uhttpd/internal/netio"
	"github.com/xqyjlj/uhttpd/internal/registry"
)

func newTestServer(t *testing.T, docroot string, withRealm bool) *Server {
	t.Helper()
	realms := auth.NewRealms()
	if withRealm {
		realms.Add("/private", "bob", "secret", auth.NewSystemDB())
	}
	return New(Config{
		DocRoot:        docroot,
		Realm:          "test",
		NetworkTimeout: time.Second,
		IndexFiles:     []string{"index.html"},
	}, mimetable.New(nil), realms, registry.New(prometheus.NewRegistry()), noopLogger{})
}

type noopLogger struct{}

func (noopLogger) Logf(string, string, map[string]any) {}
func (noopLogger) Close() error                        { return nil }

var _ corelog.Logger = noopLogger{}

func handleOneRequest(t *testing.T, srv *Server, raw string) string {
	t.Helper()
	client, server := net.Pipe()
	defer client.Close()

	go client.Write([]byte(raw))

	done := make(chan struct{})
	go func() {
		conn := netio.NewConn(server, time.Second)
		srv.HandleConnection(conn)
		close(done)
	}()

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 8192)
	var out strings.Builder
	for {
		n, err := client.Read(buf)
		out.Write(buf[:n])
		if err != nil {
			break
		}
	}
	<-done
	return out.String()
}

func TestServeRequestServesFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("welcome"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, root, false)

	out := handleOneRequest(t, srv, "GET /index.html HTTP/1.0\r\n\r\n")
	if !strings.Contains(out, "200 OK") {
		t.Fatalf("expected 200, got %q", out)
	}
	if !strings.Contains(out, "welcome") {
		t.Fatalf("expected body, got %q", out)
	}
}

func TestServeRequestMissingFileReturns404(t *testing.T) {
	root := t.TempDir()
	srv := newTestServer(t, root, false)

	out := handleOneRequest(t, srv, "GET /nope.txt HTTP/1.0\r\n\r\n")
	if !strings.Contains(out, "404") {
		t.Fatalf("expected 404, got %q", out)
	}
}

func TestServeRequestUnsupportedMethodReturnsForbidden(t *testing.T) {
	root := t.TempDir()
	srv := newTestServer(t, root, false)

	out := handleOneRequest(t, srv, "POST /index.html HTTP/1.0\r\n\r\n")
	if !strings.Contains(out, "403") {
		t.Fatalf("expected 403, got %q", out)
	}
}

func TestServeRequestProtectedPathUnauthorizedWithoutCreds(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "private"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "private", "secret.txt"), []byte("s"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, root, true)

	out := handleOneRequest(t, srv, "GET /private/secret.txt HTTP/1.0\r\n\r\n")
	if !strings.Contains(out, "401") {
		t.Fatalf("expected 401, got %q", out)
	}
	if !strings.Contains(out, "WWW-Authenticate") {
		t.Fatalf("expected WWW-Authenticate header, got %q", out)
	}
}

func TestServeRequestProtectedPathPassesWithCreds(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "private"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "private", "secret.txt"), []byte("s"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, root, true)

	creds := base64.StdEncoding.EncodeToString([]byte("bob:secret"))
	out := handleOneRequest(t, srv, "GET /private/secret.txt HTTP/1.0\r\nAuthorization: Basic "+creds+"\r\n\r\n")
	if !strings.Contains(out, "200 OK") {
		t.Fatalf("expected 200, got %q", out)
	}
}

func TestServeRequestDirectoryRedirect(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, root, false)

	out := handleOneRequest(t, srv, "GET /sub HTTP/1.0\r\n\r\n")
	if !strings.Contains(out, "302") {
		t.Fatalf("expected 302, got %q", out)
	}
	if !strings.Contains(out, "Location: /sub/") {
		t.Fatalf("expected Location header, got %q", out)
	}
}

func TestAsTLSHooksWrapsPlainConn(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	hooks := AsTLSHooks(server)
	go client.Write([]byte("hi"))
	buf := make([]byte, 8)
	n, err := hooks.Recv(buf)
	if err != nil {
		t.Fatalf("Recv error: %v", err)
	}
	if string(buf[:n]) != "hi" {
		t.Fatalf("Recv = %q", buf[:n])
	}
}
