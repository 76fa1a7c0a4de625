package registry

import (
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xqyjlj/uhttpd/internal/netio"
)

func newTestConn(t *testing.T) *netio.Conn {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close() })
	return netio.NewConn(server, time.Second)
}

func TestAddRegistersClient(t *testing.T) {
	reg := New(prometheus.NewRegistry())
	c := reg.Add(newTestConn(t))
	if c.ID == 0 {
		t.Fatal("expected a nonzero client ID")
	}
	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}
	if _, ok := reg.Lookup(c.ID); !ok {
		t.Fatal("Lookup failed to find just-added client")
	}
}

func TestShutdownRemovesClient(t *testing.T) {
	reg := New(prometheus.NewRegistry())
	c := reg.Add(newTestConn(t))
	c.Shutdown()
	if reg.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after Shutdown", reg.Len())
	}
	if _, ok := reg.Lookup(c.ID); ok {
		t.Fatal("Lookup found a client after Shutdown")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	reg := New(prometheus.NewRegistry())
	c := reg.Add(newTestConn(t))
	c.Shutdown()
	c.Shutdown() // must not panic on double-close
	if reg.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", reg.Len())
	}
}

func TestAddAssignsDistinctIDs(t *testing.T) {
	reg := New(prometheus.NewRegistry())
	a := reg.Add(newTestConn(t))
	b := reg.Add(newTestConn(t))
	if a.ID == b.ID {
		t.Fatal("two clients got the same ID")
	}
}

func TestObserveStatusDoesNotPanic(t *testing.T) {
	reg := New(prometheus.NewRegistry())
	reg.ObserveStatus("200")
	reg.ObserveStatus("404")
}
