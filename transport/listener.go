// Package transport provides pluggable net.Listener/net.Conn
// constructors for the dispatcher's Acceptor and Handler, which only
// ever depend on the standard net.Listener/net.Conn interfaces. TCP is
// the wire-contract transport the core specification tests against
// (§6); KCP, multiplexing, compression and encryption are domain-stack
// enrichments layered underneath it (§11 of the expanded spec).
package transport

import (
	"net"

	"github.com/pkg/errors"
	kcp "github.com/xtaci/kcp-go/v5"
)

// Kind selects the underlying transport.
type Kind string

const (
	TCP Kind = "tcp"
	KCP Kind = "kcp"
)

// Config describes how to construct a listener for one address. The
// zero value selects plain TCP with no compression or multiplexing.
type Config struct {
	Kind Kind

	// KCP-only tunables, mirroring the teacher's own flag set.
	DataShard   int
	ParityShard int
	Crypt       string // cipher name, see SelectBlockCrypt; "" or "none" disables encryption
	Key         string // pre-shared secret; ignored when Crypt is empty

	// Cross-transport enrichments (§11.3, §11.4).
	Compress   bool
	Mux        bool
	MuxOptions MuxOptions
}

// Listen binds addr according to cfg and returns a net.Listener that
// yields net.Conn values ready to hand to dispatch.Handler.Serve: any
// compression or multiplexing wrapping is applied before the listener
// is returned, so callers never need to know which options were
// configured.
func Listen(addr string, cfg Config) (net.Listener, error) {
	var lis net.Listener
	var err error

	switch cfg.Kind {
	case "", TCP:
		lis, err = net.Listen("tcp", addr)
	case KCP:
		lis, err = listenKCP(addr, cfg)
	default:
		return nil, errors.Errorf("transport: unknown transport kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "transport: listen %s on %s", cfg.Kind, addr)
	}

	if cfg.Mux {
		opts := cfg.MuxOptions
		if opts == (MuxOptions{}) {
			opts = DefaultMuxOptions()
		}
		lis = Mux(lis, opts)
	}
	if cfg.Compress {
		lis = &compressingListener{base: lis}
	}
	return lis, nil
}

func listenKCP(addr string, cfg Config) (net.Listener, error) {
	var block kcp.BlockCrypt
	if cfg.Crypt != "" && cfg.Crypt != "none" {
		block, _ = SelectBlockCrypt(cfg.Crypt, DeriveKey(cfg.Key))
	}

	dataShard, parityShard := cfg.DataShard, cfg.ParityShard
	if dataShard == 0 && parityShard == 0 {
		dataShard, parityShard = 10, 3 // teacher's documented defaults
	}

	lis, err := kcp.ListenWithOptions(addr, block, dataShard, parityShard)
	if err != nil {
		return nil, err
	}
	// *kcp.Listener already satisfies net.Listener (Accept/Close/Addr).
	return lis, nil
}

// compressingListener wraps every accepted connection with snappy
// framing (§11.3), independent of the underlying transport.
type compressingListener struct {
	base net.Listener
}

func (l *compressingListener) Accept() (net.Conn, error) {
	conn, err := l.base.Accept()
	if err != nil {
		return nil, err
	}
	return NewCompStream(conn), nil
}

func (l *compressingListener) Close() error   { return l.base.Close() }
func (l *compressingListener) Addr() net.Addr { return l.base.Addr() }
