// Package dispatch implements the core of the task-dispatch server: the
// per-connection reader/writer split, the response-ordering channel,
// the compute-job hand-off on a cache miss, and the acceptor that wires
// a listener to a fresh handler per connection. See §4 of the core
// specification.
package dispatch

import (
	"bufio"
	"io"
	"log"
	"net"
	"sync"

	"github.com/xtaci/dispatchd/cache"
	"github.com/xtaci/dispatchd/limiter"
)

// Handler holds the process-wide shared state every connection is
// serviced against: the result cache and the admission limiter, both
// created once at acceptor startup (§9, "Global state") and referenced
// by every handler and every compute job for the life of the process.
type Handler struct {
	Cache   *cache.Cache
	Limiter *limiter.Limiter

	// StrictOrder enables the permitted strengthening from §11.5/§9:
	// responses are delivered in strict per-connection request order,
	// at the cost of the writer blocking on a still-in-flight compute
	// job rather than only ever blocking on the next enqueue. When
	// false (the default), the baseline behavior applies: only
	// all-cache-hit sequences are guaranteed in-order (§4.2, §8).
	StrictOrder bool

	// Quiet suppresses the per-connection open/close log lines.
	Quiet bool
}

// NewHandler constructs a Handler sharing the given cache and limiter.
func NewHandler(c *cache.Cache, l *limiter.Limiter, strictOrder bool) *Handler {
	return &Handler{Cache: c, Limiter: l, StrictOrder: strictOrder}
}

// Serve services one accepted connection end to end: splits it into an
// independent reader and writer goroutine joined by a response queue,
// and blocks until both have finished. The caller (normally the
// Acceptor) is expected to invoke this in its own goroutine so the
// accept loop never blocks on a single connection.
func (h *Handler) Serve(conn net.Conn) {
	defer conn.Close()

	if !h.Quiet {
		log.Println("connection opened", conn.RemoteAddr())
		defer log.Println("connection closed", conn.RemoteAddr())
	}

	queue := newResponseQueue()

	// producers tracks every outstanding source of queue sends: the
	// reader itself, plus one reference per compute job it spawns. The
	// queue closes only once every producer has dropped its reference,
	// mirroring the reference-counted mpsc sender design in §9.
	var producers sync.WaitGroup
	producers.Add(1)
	go func() {
		producers.Wait()
		queue.close()
	}()

	var sides sync.WaitGroup
	sides.Add(2)
	go func() {
		defer sides.Done()
		h.readLoop(conn, queue, &producers)
	}()
	go func() {
		defer sides.Done()
		h.writeLoop(conn, queue)
	}()
	sides.Wait()
}

// readLoop is the reader side: sequentially drains request lines,
// answering cache hits in place and handing cache misses off to a
// detached compute job, never waiting for a job to finish before
// reading the next line (§4.2).
func (h *Handler) readLoop(conn net.Conn, queue *responseQueue, producers *sync.WaitGroup) {
	defer producers.Done()

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			h.handleLine(line, queue, producers)
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("dispatch: read error: %v", err)
			}
			return
		}
	}
}

// handleLine answers line from the cache if present, else spawns a
// detached compute job for it.
func (h *Handler) handleLine(line string, queue *responseQueue, producers *sync.WaitGroup) {
	if r, ok := h.Cache.Lookup(line); ok {
		s := newSlot()
		s.fill(r)
		queue.send(s)
		return
	}

	producers.Add(1)
	if h.StrictOrder {
		// Reserve the slot's position in read order now; the compute
		// job fills it whenever it finishes.
		s := newSlot()
		queue.send(s)
		go func() {
			defer producers.Done()
			r := computeResult(line, h.Limiter)
			h.Cache.Insert(line, r)
			s.fill(r)
		}()
		return
	}

	// Baseline mode: the job creates and enqueues its own slot only
	// once the result is known, so its position on the queue reflects
	// completion order, not read order.
	go func() {
		defer producers.Done()
		r := computeResult(line, h.Limiter)
		h.Cache.Insert(line, r)
		s := newSlot()
		s.fill(r)
		queue.send(s)
	}()
}

// writeLoop is the writer side: drains the response queue in order,
// writing one byte per computed result. An uncomputable sentinel or a
// write error stops the writer without draining the remainder of the
// queue; a closed, drained queue is normal termination (§4.2).
func (h *Handler) writeLoop(conn net.Conn, queue *responseQueue) {
	for {
		s, ok := queue.recv()
		if !ok {
			return
		}
		r := s.wait()
		if r.Uncomputable {
			return
		}
		if _, err := conn.Write([]byte{r.Value}); err != nil {
			log.Printf("dispatch: write error: %v", err)
			return
		}
	}
}
