// Package ratelimit throttles inbound updates per chat so a single user
// cannot monopolize the bot.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out a token-bucket limiter per chat and prunes entries
// that have been idle long enough to be fully refilled anyway.
type Limiter struct {
	mu       sync.Mutex
	perChat  map[int64]*entry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastScan time.Time

	now func() time.Time
}

// New builds a limiter allowing eventsPerMinute updates per chat with the
// same value as burst.
func New(eventsPerMinute int) *Limiter {
	return &Limiter{
		perChat: make(map[int64]*entry),
		limit:   rate.Limit(float64(eventsPerMinute) / 60.0),
		burst:   eventsPerMinute,
		idleTTL: 3 * time.Minute,
		now:     time.Now,
	}
}

// Allow reports whether the chat may process one more update now.
func (l *Limiter) Allow(chatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.perChat[chatID]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.perChat[chatID] = e
	}
	e.lastSeen = now

	l.maybePrune(now)
	return e.limiter.AllowN(now, 1)
}

// maybePrune drops idle chats. Called with the lock held, at most once
// per idleTTL so the map walk stays off the hot path.
func (l *Limiter) maybePrune(now time.Time) {
	if now.Sub(l.lastScan) < l.idleTTL {
		return
	}
	l.lastScan = now
	for id, e := range l.perChat {
		if now.Sub(e.lastSeen) >= l.idleTTL {
			delete(l.perChat, id)
		}
	}
}
