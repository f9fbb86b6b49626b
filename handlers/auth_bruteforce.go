package handlers

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// loginGuard throttles login attempts per account. It keeps a token-bucket
// limiter per email in process memory; state is lost on restart, which only
// means an attacker gets a fresh bucket.
type loginGuard struct {
	limiters sync.Map // email -> *rate.Limiter
	burst    int
	interval time.Duration
}

func newLoginGuard() *loginGuard {
	return &loginGuard{
		burst:    5,
		interval: time.Minute / 5, // refill 5 attempts per minute
	}
}

// Allow reports whether another login attempt for this email may proceed.
func (g *loginGuard) Allow(email string) bool {
	key := strings.ToLower(email)
	v, _ := g.limiters.LoadOrStore(key, rate.NewLimiter(rate.Every(g.interval), g.burst))
	return v.(*rate.Limiter).Allow()
}

// Reset clears the limiter after a successful login.
func (g *loginGuard) Reset(email string) {
	g.limiters.Delete(strings.ToLower(email))
}
