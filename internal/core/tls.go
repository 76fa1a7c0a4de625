package core

import "net"

// TLSHooks is the Go expression of SPEC_FULL.md §6/§10.5's TLS
// collaborator contract: "tls_send", "tls_recv", "tls_close" described
// only by the interface they must implement. A *tls.Server-wrapped
// net.Conn already satisfies net.Conn (Read/Write/Close), which in turn
// trivially satisfies this narrower interface — no bespoke TLS engine is
// implemented in the core.
type TLSHooks interface {
	Send([]byte) (int, error)
	Recv([]byte) (int, error)
	Close() error
}

// connHooks adapts any net.Conn (plain or TLS-wrapped) to TLSHooks.
type connHooks struct{ net.Conn }

func (c connHooks) Send(p []byte) (int, error) { return c.Write(p) }
func (c connHooks) Recv(p []byte) (int, error) { return c.Read(p) }

// AsTLSHooks wraps conn (typically the result of tls.Server(rawConn, cfg))
// so it can be passed anywhere the core's collaborator contract expects
// send/recv/close hooks instead of a bare net.Conn.
func AsTLSHooks(conn net.Conn) TLSHooks { return connHooks{conn} }
