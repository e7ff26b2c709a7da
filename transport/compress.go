package transport

import (
	"net"
	"time"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// compStream wraps a net.Conn with snappy framing on both directions,
// adapted from kcptun's std.CompStream. Transparent to callers: the
// dispatcher's connection handler only ever sees a net.Conn, whichever
// transport and compression setting produced it (§11.3).
type compStream struct {
	conn net.Conn
	w    *snappy.Writer
	r    *snappy.Reader
}

// NewCompStream wraps conn so every Write is snappy-compressed and
// every Read is transparently decompressed. Enabled per-listener via
// the -compress flag.
func NewCompStream(conn net.Conn) net.Conn {
	return &compStream{
		conn: conn,
		w:    snappy.NewBufferedWriter(conn),
		r:    snappy.NewReader(conn),
	}
}

func (c *compStream) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func (c *compStream) Write(p []byte) (int, error) {
	if _, err := c.w.Write(p); err != nil {
		return 0, errors.WithStack(err)
	}
	if err := c.w.Flush(); err != nil {
		return 0, errors.WithStack(err)
	}
	return len(p), nil
}

func (c *compStream) Close() error                      { return c.conn.Close() }
func (c *compStream) LocalAddr() net.Addr                { return c.conn.LocalAddr() }
func (c *compStream) RemoteAddr() net.Addr               { return c.conn.RemoteAddr() }
func (c *compStream) SetDeadline(t time.Time) error      { return c.conn.SetDeadline(t) }
func (c *compStream) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *compStream) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
