package cart

import (
	"sync"
	"time"
)

// expiryScheduler keeps one timer per cart. Rescheduling replaces the
// previous timer; a timer that was replaced never fires.
type expiryScheduler struct {
	mu      sync.Mutex
	timers  map[int64]*scheduled
	fire    func(cartID int64)
	stopped bool
}

type scheduled struct {
	timer *time.Timer
	at    time.Time
}

func newExpiryScheduler(fire func(cartID int64)) *expiryScheduler {
	return &expiryScheduler{
		timers: make(map[int64]*scheduled),
		fire:   fire,
	}
}

func (e *expiryScheduler) Schedule(cartID int64, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}
	if prev, ok := e.timers[cartID]; ok {
		if prev.at.Equal(at) {
			return
		}
		prev.timer.Stop()
	}

	entry := &scheduled{at: at}
	entry.timer = time.AfterFunc(time.Until(at), func() {
		e.mu.Lock()
		current, ok := e.timers[cartID]
		if !ok || current != entry || e.stopped {
			e.mu.Unlock()
			return
		}
		delete(e.timers, cartID)
		e.mu.Unlock()

		e.fire(cartID)
	})
	e.timers[cartID] = entry
}

func (e *expiryScheduler) Cancel(cartID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prev, ok := e.timers[cartID]; ok {
		prev.timer.Stop()
		delete(e.timers, cartID)
	}
}

// Pending returns how many timers are armed.
func (e *expiryScheduler) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}

func (e *expiryScheduler) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopped = true
	for id, s := range e.timers {
		s.timer.Stop()
		delete(e.timers, id)
	}
}
