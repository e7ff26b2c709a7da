package dispatch

import "github.com/xtaci/dispatchd/cache"

// slot is a single-assignment cell carrying one response result. It
// lets the reader reserve a result's position on the response queue
// before the result itself is known (needed for the strict-ordering
// mode, §11.5 of the expanded spec) while still working unchanged for
// the baseline mode, where a slot is always filled before it is queued.
type slot struct {
	ch chan cache.Result
}

func newSlot() *slot {
	return &slot{ch: make(chan cache.Result, 1)}
}

// fill assigns the slot's result. Called at most once.
func (s *slot) fill(r cache.Result) {
	s.ch <- r
}

// wait blocks until the slot has been filled and returns its result.
func (s *slot) wait() cache.Result {
	return <-s.ch
}

// responseQueue is the per-connection response channel described in
// §4.2 and §9: an ordered, unbounded stream of slots between the reader
// side (and the compute jobs it spawns) and the writer side. It is
// modeled after Rust's unbounded mpsc channel: sends never block on the
// consumer, which is what lets a compute job enqueue its result even
// after the writer has stopped draining (e.g. following an uncomputable
// sentinel on an earlier request).
//
// Internally this is the classic unbounded-channel-over-a-bounded-channel
// pattern: an internal goroutine buffers whatever arrives on in into a
// growable slice and forwards it to out as the consumer becomes ready.
type responseQueue struct {
	in  chan *slot
	out chan *slot
}

func newResponseQueue() *responseQueue {
	q := &responseQueue{
		in:  make(chan *slot),
		out: make(chan *slot),
	}
	go q.run()
	return q
}

func (q *responseQueue) run() {
	var buf []*slot
	for {
		if len(buf) == 0 {
			v, ok := <-q.in
			if !ok {
				close(q.out)
				return
			}
			buf = append(buf, v)
			continue
		}
		select {
		case v, ok := <-q.in:
			if !ok {
				for _, item := range buf {
					q.out <- item
				}
				close(q.out)
				return
			}
			buf = append(buf, v)
		case q.out <- buf[0]:
			buf = buf[1:]
		}
	}
}

// send enqueues a slot. Never blocks on the writer side catching up.
func (q *responseQueue) send(s *slot) {
	q.in <- s
}

// close drops the producer side. Safe to call exactly once, after every
// producer (the reader and every compute job it spawned) is done
// sending.
func (q *responseQueue) close() {
	close(q.in)
}

// recv returns the next slot in enqueue order, or ok=false once the
// queue has been closed and fully drained.
func (q *responseQueue) recv() (*slot, bool) {
	v, ok := <-q.out
	return v, ok
}
