// Package core implements SPEC_FULL.md §4.7's per-connection state
// machine (Accepted → Reading → Dispatching → Responding → Closing) and
// is the one package that wires the path resolver, conditional engine,
// file handler, and auth engine together behind the single
// serve_request(client, path_info) entry point §1 says the core exposes
// to its collaborators.
package core

import (
	"errors"
	"time"

	"github.com/xqyjlj/uhttpd/internal/auth"
	"github.com/xqyjlj/uhttpd/internal/corelog"
	"github.com/xqyjlj/uhttpd/internal/fileserver"
	"github.com/xqyjlj/uhttpd/internal/httpdate"
	"github.com/xqyjlj/uhttpd/internal/httpproto"
	"github.com/xqyjlj/uhttpd/internal/mimetable"
	"github.com/xqyjlj/uhttpd/internal/netio"
	"github.com/xqyjlj/uhttpd/internal/pathresolver"
	"github.com/xqyjlj/uhttpd/internal/registry"
)

// Config is the immutable, read-only-after-startup Config value
// SPEC_FULL.md §3 specifies.
type Config struct {
	DocRoot        string
	Realm          string
	NetworkTimeout time.Duration
	NoSymlinks     bool
	NoDirLists     bool
	IndexFiles     []string
}

// Server owns every collection the teacher kept as package-level global
// registries (clients, realms, index files) — SPEC_FULL.md §9's first
// design note, resolved by holding them here instead.
type Server struct {
	cfg      Config
	mime     *mimetable.Table
	realms   *auth.Realms
	registry *registry.Registry
	logger   corelog.Logger
}

// New builds a Server from its collaborators. mime, realms, and reg are
// constructed by the bootstrap (cmd/uhttpd) and handed in, keeping this
// package free of global state.
func New(cfg Config, mime *mimetable.Table, realms *auth.Realms, reg *registry.Registry, logger corelog.Logger) *Server {
	return &Server{cfg: cfg, mime: mime, realms: realms, registry: reg, logger: logger}
}

// HandleConnection drives one accepted connection through Reading,
// Dispatching, and Responding, then always tears the connection down
// (Closing). The original single-threaded event loop delivered a parsed
// Request to the core per readiness callback; here, one goroutine plays
// that role for the lifetime of the connection (SPEC_FULL.md §5).
func (s *Server) HandleConnection(conn *netio.Conn) {
	client := s.registry.Add(conn)
	defer client.Shutdown()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Logf("error", "panic handling connection", map[string]any{
				"remote": client.RemoteAddr.String(),
				"panic":  r,
			})
		}
	}()

	req, err := httpproto.ReadRequest(conn)
	if err != nil {
		// IoError per SPEC_FULL.md §7: abort silently, let the deferred
		// Shutdown close the connection. No response was started, so
		// nothing more to write.
		return
	}

	status := s.ServeRequest(client, req)
	s.registry.ObserveStatus(statusLabel(status))
	s.logger.Logf("info", "request", map[string]any{
		"remote": client.RemoteAddr.String(),
		"method": req.Method.String(),
		"uri":    string(req.RawURI),
		"status": status,
	})
}

// ServeRequest is the core's exported entry point: Dispatching through
// Responding for one already-parsed request. It returns the final status
// code sent, for logging/metrics.
func (s *Server) ServeRequest(client *registry.Client, req *httpproto.Request) int {
	resp := httpproto.NewResponse(client.Conn, req.Version)

	if req.Method != httpproto.MethodGET && req.Method != httpproto.MethodHEAD {
		// The core's scope is serving static content; POST and other
		// methods have no handler here. Folded into the Forbidden error
		// kind rather than inventing a status SPEC_FULL.md's error table
		// never names — see DESIGN.md's Open Question decision.
		_ = fileserver.ServeForbidden(resp, req)
		return 403
	}

	rcfg := pathresolver.Config{
		DocRoot:    s.cfg.DocRoot,
		NoSymlinks: s.cfg.NoSymlinks,
		IndexFiles: s.cfg.IndexFiles,
	}
	info, err := pathresolver.Resolve(req.RawURI, rcfg)
	if err != nil {
		if errors.Is(err, pathresolver.ErrNotFound) {
			_ = sendPlainError(resp, req, 404, "Not Found", "Not Found\n")
			return 404
		}
		_ = sendPlainError(resp, req, 500, "Internal Server Error", "Internal Server Error\n")
		return 500
	}

	if info.Redirected {
		resp.SetStatus(302, "Found")
		resp.AddHeader("Location", info.RedirectTo)
		resp.AddDate(httpdate.NowFunc())
		_ = resp.Flush()
		return 302
	}

	authHeader, _ := req.Get("Authorization")
	if s.realms.Check(info.Name, authHeader) == auth.Unauthorized {
		_ = sendUnauthorized(resp, req, s.cfg.Realm)
		return 401
	}

	switch {
	case info.IsDirectory:
		if s.cfg.NoDirLists {
			_ = fileserver.ServeForbidden(resp, req)
			return 403
		}
		if err := fileserver.ServeDirectory(resp, req, info, s.mime); err != nil {
			return 0 // IoError: connection already torn down by caller
		}
		return 200
	case info.Stat.Mode().IsRegular():
		status, err := fileserver.ServeFile(resp, req, info, s.mime)
		if err != nil {
			return 0 // IoError: connection already torn down by caller
		}
		return status
	default:
		_ = fileserver.ServeForbidden(resp, req)
		return 403
	}
}

// sendPlainError emits a short plain-text error body, chunked per the
// request's version, matching SPEC_FULL.md §7's "user-visible body on
// error: a short plain-text summary".
func sendPlainError(resp *httpproto.Response, req *httpproto.Request, code int, reason, body string) error {
	chunked := resp.Chunked(req.Method == httpproto.MethodHEAD)
	resp.SetStatus(code, reason)
	resp.AddHeader("Content-Type", "text/plain")
	resp.AddDate(httpdate.NowFunc())
	if chunked {
		resp.AddHeader("Transfer-Encoding", "chunked")
	}
	if err := resp.Flush(); err != nil {
		return err
	}
	if req.Method == httpproto.MethodHEAD {
		return nil
	}
	if err := resp.WriteFragment([]byte(body), chunked); err != nil {
		return err
	}
	if chunked {
		return resp.EndChunked()
	}
	return nil
}

// sendUnauthorized emits SPEC_FULL.md §4.5 step 4's 401 response: a fixed
// 23-byte body, always unchunked regardless of version (the body is
// small and fixed, and real uhttpd deployments never saw a reason to
// chunk it either).
func sendUnauthorized(resp *httpproto.Response, req *httpproto.Request, realm string) error {
	resp.SetStatus(401, "Authorization Required")
	resp.AddHeader("WWW-Authenticate", `Basic realm="`+realm+`"`)
	resp.AddDate(httpdate.NowFunc())
	resp.AddContentLength(int64(len(unauthorizedBody)))
	if err := resp.Flush(); err != nil {
		return err
	}
	if req.Method == httpproto.MethodHEAD {
		return nil
	}
	return resp.WriteFragment([]byte(unauthorizedBody), false)
}

// unauthorizedBody is the fixed 23-byte body SPEC_FULL.md §4.5/§8 pins
// exactly: "Authorization Required\n".
const unauthorizedBody = "Authorization Required\n"

func statusLabel(status int) string {
	switch status {
	case 200:
		return "200"
	case 302:
		return "302"
	case 304:
		return "304"
	case 403:
		return "403"
	case 404:
		return "404"
	case 412:
		return "412"
	case 401:
		return "401"
	case 0:
		return "aborted"
	default:
		return "500"
	}
}
