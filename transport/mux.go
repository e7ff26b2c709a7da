package transport

import (
	"log"
	"net"
	"time"

	"github.com/xtaci/smux"
)

// MuxOptions tunes the smux session wrapping a physical connection,
// adapted from kcptun's std.BuildSmuxConfig. A zero field keeps
// smux.DefaultConfig's value for it, so the zero value behaves like
// DefaultMuxOptions.
type MuxOptions struct {
	Version           int
	MaxReceiveBuffer  int
	MaxStreamBuffer   int
	MaxFrameSize      int
	KeepAliveInterval time.Duration
}

// DefaultMuxOptions mirrors smux.DefaultConfig's values.
func DefaultMuxOptions() MuxOptions {
	d := smux.DefaultConfig()
	return MuxOptions{
		Version:           d.Version,
		MaxReceiveBuffer:  d.MaxReceiveBuffer,
		MaxStreamBuffer:   d.MaxStreamBuffer,
		MaxFrameSize:      d.MaxFrameSize,
		KeepAliveInterval: d.KeepAliveInterval,
	}
}

func buildSmuxConfig(opts MuxOptions) (*smux.Config, error) {
	cfg := smux.DefaultConfig()
	if opts.Version != 0 {
		cfg.Version = opts.Version
	}
	if opts.MaxReceiveBuffer != 0 {
		cfg.MaxReceiveBuffer = opts.MaxReceiveBuffer
	}
	if opts.MaxStreamBuffer != 0 {
		cfg.MaxStreamBuffer = opts.MaxStreamBuffer
	}
	if opts.MaxFrameSize != 0 {
		cfg.MaxFrameSize = opts.MaxFrameSize
	}
	if opts.KeepAliveInterval != 0 {
		cfg.KeepAliveInterval = opts.KeepAliveInterval
	}
	return cfg, smux.VerifyConfig(cfg)
}

// muxListener adapts smux stream multiplexing to the net.Listener shape
// the dispatcher's Acceptor already knows how to drive, so multiplexing
// is an orthogonal, opt-in concern layered under the same acceptor and
// connection-handler code (§11.4). Every accepted base connection
// becomes one smux session; every stream accepted on that session is
// handed out of muxListener.Accept as an independent net.Conn, exactly
// as if it were its own TCP connection.
type muxListener struct {
	base    net.Listener
	cfg     *smux.Config
	streams chan net.Conn
	fatal   chan error
}

// Mux wraps base so that each physical connection it accepts is treated
// as an smux server session, and every stream opened within that
// session surfaces as a separate accepted connection. Adapted from
// kcptun's handleMux, which performs the same wrap-then-fan-out inline
// rather than behind a net.Listener.
func Mux(base net.Listener, opts MuxOptions) net.Listener {
	cfg, err := buildSmuxConfig(opts)
	if err != nil {
		log.Printf("transport: invalid mux options (%v), falling back to defaults", err)
		cfg = smux.DefaultConfig()
	}
	l := &muxListener{
		base:    base,
		cfg:     cfg,
		streams: make(chan net.Conn),
		fatal:   make(chan error, 1),
	}
	go l.acceptSessions()
	return l
}

func (l *muxListener) acceptSessions() {
	for {
		conn, err := l.base.Accept()
		if err != nil {
			l.fatal <- err
			return
		}
		go l.serveSession(conn)
	}
}

func (l *muxListener) serveSession(conn net.Conn) {
	sess, err := smux.Server(conn, l.cfg)
	if err != nil {
		log.Printf("transport: smux handshake failed: %v", err)
		conn.Close()
		return
	}
	for {
		stream, err := sess.AcceptStream()
		if err != nil {
			return
		}
		l.streams <- stream
	}
}

// Accept returns the next multiplexed stream, across any underlying
// session, as a net.Conn. Returns the base listener's terminal error
// once it stops accepting new physical connections (§4.1: accept
// failure is fatal to the acceptor).
func (l *muxListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.streams:
		return c, nil
	case err := <-l.fatal:
		return nil, err
	}
}

func (l *muxListener) Close() error   { return l.base.Close() }
func (l *muxListener) Addr() net.Addr { return l.base.Addr() }
