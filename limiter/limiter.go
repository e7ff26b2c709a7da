// Package limiter implements the admission permit pool described in
// §4.5 of the core specification: a counting resource bounding how many
// CPU-intensive task bodies may run at once. I/O-intensive work never
// touches it.
//
// A buffered channel is the permit pool itself: capacity = max permits,
// a queued item = an acquired permit, a free slot = an available one.
// This is the idiomatic Go counting semaphore and needs no third-party
// dependency to express.
package limiter

// Limiter bounds the number of concurrently held permits to Capacity.
type Limiter struct {
	sem chan struct{}
}

// New returns a Limiter with the given capacity. Capacity must be
// positive.
func New(capacity int) *Limiter {
	if capacity <= 0 {
		panic("limiter: capacity must be positive")
	}
	return &Limiter{sem: make(chan struct{}, capacity)}
}

// Acquire blocks until a permit is available, then returns a Permit
// whose Release must be called exactly once to return it to the pool.
// Acquire never fails: the pool is never closed for the lifetime of the
// process (§7's "permit acquire on closed pool" cannot occur).
func (l *Limiter) Acquire() Permit {
	l.sem <- struct{}{}
	return Permit{sem: l.sem}
}

// Cap reports the limiter's fixed capacity.
func (l *Limiter) Cap() int {
	return cap(l.sem)
}

// InFlight reports the number of permits currently held. Intended for
// diagnostics/testing only; the value can change the instant it is
// observed.
func (l *Limiter) InFlight() int {
	return len(l.sem)
}

// Permit is a held admission slot; release it exactly once.
type Permit struct {
	sem chan struct{}
}

// Release returns the permit to the pool, waking one blocked Acquire if
// any is waiting.
func (p Permit) Release() {
	<-p.sem
}
