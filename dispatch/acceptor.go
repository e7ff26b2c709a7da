package dispatch

import (
	"net"

	"github.com/pkg/errors"
)

// Readiness is the one-shot message the acceptor publishes (§4.6):
// exactly one of OK or BindFailed(reason), sent before the accept loop
// begins.
type Readiness struct {
	Err error
}

// Ready reports a successful bind.
func Ready() Readiness { return Readiness{} }

// BindFailed reports a bind failure with its cause.
func BindFailed(err error) Readiness { return Readiness{Err: err} }

// OK reports whether this Readiness represents a successful bind.
func (r Readiness) OK() bool { return r.Err == nil }

// Acceptor binds a listening endpoint, reports readiness, and spawns a
// fresh Handler per accepted connection without ever blocking on one
// (§4.1).
type Acceptor struct {
	Handler *Handler
}

// NewAcceptor returns an Acceptor that dispatches accepted connections
// to h.
func NewAcceptor(h *Handler) *Acceptor {
	return &Acceptor{Handler: h}
}

// Listen is the shape of a listener constructor the Acceptor can bind
// through — ordinarily net.Listen, but any constructor satisfying this
// signature works unmodified. transport.Listen takes a transport.Config
// instead and does not fit it; listeners it returns are run with Serve.
type Listen func(network, address string) (net.Listener, error)

// BindAndServe binds network/address via listen, publishes readiness on
// ready (if non-nil), and on success runs the accept loop forever. On
// bind failure it publishes BindFailed and returns without entering the
// loop. The accept loop itself terminates — fatally, by design (§4.1,
// §7) — on the first Accept error.
func (a *Acceptor) BindAndServe(network, address string, listen Listen, ready chan<- Readiness) error {
	lis, err := listen(network, address)
	if err != nil {
		if ready != nil {
			ready <- BindFailed(err)
		}
		return errors.Wrap(err, "dispatch: bind failed")
	}
	return a.Serve(lis, ready)
}

// Serve runs the accept loop over an already-bound listener, publishing
// Ready on ready (if non-nil) before entering it.
func (a *Acceptor) Serve(lis net.Listener, ready chan<- Readiness) error {
	if ready != nil {
		ready <- Ready()
	}
	for {
		conn, err := lis.Accept()
		if err != nil {
			return errors.Wrap(err, "dispatch: accept failed")
		}
		go a.Handler.Serve(conn)
	}
}
