package dispatch

import (
	"net"
	"testing"
	"time"

	"github.com/xtaci/dispatchd/cache"
	"github.com/xtaci/dispatchd/limiter"
)

// TestBindFailurePublishesReadiness is scenario 6 from §8: binding an
// address that is already in use reports BindFailed and never enters
// the accept loop.
func TestBindFailurePublishesReadiness(t *testing.T) {
	first, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer first.Close()
	addr := first.Addr().String()

	h := NewHandler(cache.New(), limiter.New(40), false)
	a := NewAcceptor(h)

	ready := make(chan Readiness, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.BindAndServe("tcp", addr, net.Listen, ready)
	}()

	select {
	case r := <-ready:
		if r.OK() {
			t.Fatalf("expected BindFailed, got OK")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for readiness signal")
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("expected BindAndServe to return an error on bind failure")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for BindAndServe to return")
	}
}

// TestBindSuccessPublishesReadinessBeforeAccepting is the positive
// counterpart: a successful bind sends Ready before any connection can
// be served.
func TestBindSuccessPublishesReadinessBeforeAccepting(t *testing.T) {
	h := NewHandler(cache.New(), limiter.New(40), false)
	a := NewAcceptor(h)

	ready := make(chan Readiness, 1)
	go a.BindAndServe("tcp", "127.0.0.1:0", net.Listen, ready)

	select {
	case r := <-ready:
		if !r.OK() {
			t.Fatalf("expected OK readiness, got error: %v", r.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for readiness signal")
	}
}
