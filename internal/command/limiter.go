package command

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdle is how long a chat must stay quiet before its limiter is dropped.
// A full minute refills the bucket, so a dropped limiter equals a fresh one.
const limiterIdle = time.Minute

type chatEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type chatLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	limiters  map[string]*chatEntry
	lastSweep time.Time
	now       func() time.Time
}

func newChatLimiter(perMinute int) *chatLimiter {
	return &chatLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[string]*chatEntry),
		now:      time.Now,
	}
}

func (c *chatLimiter) Allow(chat string) bool {
	c.mu.Lock()
	now := c.now()
	if now.Sub(c.lastSweep) >= limiterIdle {
		c.sweep(now)
	}
	e, ok := c.limiters[chat]
	if !ok {
		e = &chatEntry{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.limiters[chat] = e
	}
	e.lastSeen = now
	c.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

// sweep drops limiters idle for limiterIdle. Caller holds mu.
func (c *chatLimiter) sweep(now time.Time) {
	for chat, e := range c.limiters {
		if now.Sub(e.lastSeen) >= limiterIdle {
			delete(c.limiters, chat)
		}
	}
	c.lastSweep = now
}

func (c *chatLimiter) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.limiters)
}
