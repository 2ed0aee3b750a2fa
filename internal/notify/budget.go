package notify

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrBudgetExceeded is returned when a recipient has hit their send budget.
var ErrBudgetExceeded = errors.New("notify: send budget exceeded for recipient")

// budget caps outbound mail per recipient so a stuck client (or an abuser
// hammering the reset endpoint) cannot flood an inbox.
type budget struct {
	perWindow int
	window    time.Duration

	mu      sync.Mutex
	buckets map[string]*budgetEntry
}

type budgetEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newBudget(perWindow int, window time.Duration) *budget {
	b := &budget{
		perWindow: perWindow,
		window:    window,
		buckets:   make(map[string]*budgetEntry),
	}
	go b.sweep()
	return b
}

// allow reports whether one more message may go to the recipient now.
func (b *budget) allow(recipient string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.buckets[recipient]
	if !ok {
		e = &budgetEntry{
			limiter: rate.NewLimiter(rate.Every(b.window/time.Duration(b.perWindow)), b.perWindow),
		}
		b.buckets[recipient] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

// sweep drops buckets idle for two windows to keep the map bounded.
func (b *budget) sweep() {
	interval := 2 * b.window
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-interval)
		b.mu.Lock()
		for recipient, e := range b.buckets {
			if e.lastSeen.Before(cutoff) {
				delete(b.buckets, recipient)
			}
		}
		b.mu.Unlock()
	}
}
