package debounce

import (
	"context"
	"errors"
	"sync"
	"time"
)

const DefaultDelay = 250 * time.Millisecond

// ErrSuperseded is returned to a caller whose request was replaced by a newer one for
// the same key within the delay.
var ErrSuperseded = errors.New("debounce: superseded")

// Debouncer collapses bursts of requests per key to the last one.
type Debouncer struct {
	delay time.Duration
	mu    sync.Mutex
	gens  map[string]uint64
}

func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay, gens: make(map[string]uint64)}
}

// Ticket identifies one accepted request. Results computed for a stale ticket should
// be discarded.
type Ticket struct {
	d   *Debouncer
	key string
	gen uint64
}

func (t Ticket) Key() string { return t.key }

func (t Ticket) Stale() bool {
	if t.d == nil {
		return false
	}
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	return t.d.gens[t.key] != t.gen
}

// Wait registers a request for key and blocks for the debounce delay. It returns
// ErrSuperseded if another request for key arrived meanwhile.
func (d *Debouncer) Wait(ctx context.Context, key string) (Ticket, error) {
	d.mu.Lock()
	d.gens[key]++
	ticket := Ticket{d: d, key: key, gen: d.gens[key]}
	d.mu.Unlock()

	timer := time.NewTimer(d.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Ticket{}, ctx.Err()
	case <-timer.C:
	}
	if ticket.Stale() {
		return Ticket{}, ErrSuperseded
	}
	return ticket, nil
}
