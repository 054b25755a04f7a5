package httpx

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// rateScope selects what a policy counts requests against.
type rateScope int

const (
	scopeIP rateScope = iota
	scopeUser
)

// ratePolicy is the request budget of one route family.
type ratePolicy struct {
	name   string
	limit  int
	window time.Duration
	scope  rateScope
}

var (
	policyRegister  = ratePolicy{name: "register", limit: 5, window: time.Minute, scope: scopeIP}
	policyLogin     = ratePolicy{name: "login", limit: 12, window: time.Minute, scope: scopeIP}
	policyOAuth     = ratePolicy{name: "oauth", limit: 20, window: time.Minute, scope: scopeIP}
	policyUserRead  = ratePolicy{name: "user_read", limit: 120, window: time.Minute, scope: scopeUser}
	policyUserWrite = ratePolicy{name: "user_write", limit: 60, window: time.Minute, scope: scopeUser}
)

// subject returns the counter key of req under the policy. User-scoped
// policies fall back to the client address when no identity is attached.
func (p ratePolicy) subject(req *http.Request) string {
	if p.scope == scopeUser {
		if info, ok := authInfoFromContext(req.Context()); ok && info.UserID != "" {
			return "user:" + info.UserID
		}
	}
	if ip := clientIP(req); ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}

// RateLimiter counts requests per policy and subject in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, p ratePolicy, subject string) rateDecision
	Close()
}

type rateDecision struct {
	allowed   bool
	count     int
	windowEnd time.Time
}

func (d rateDecision) remaining(limit int) int {
	if left := limit - d.count; left > 0 {
		return left
	}
	return 0
}

// memoryRateLimiter keeps counters in process. Expired windows are dropped
// on the request path at most once per sweepEvery.
type memoryRateLimiter struct {
	mu         sync.Mutex
	windows    map[string]*fixedWindow
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

type fixedWindow struct {
	hits int
	ends time.Time
}

// NewMemoryRateLimiter returns a process-local limiter for single replica
// deployments and tests.
func NewMemoryRateLimiter() RateLimiter {
	return newMemoryRateLimiter(time.Now)
}

func newMemoryRateLimiter(now func() time.Time) *memoryRateLimiter {
	return &memoryRateLimiter{
		windows:    make(map[string]*fixedWindow),
		sweepEvery: 5 * time.Minute,
		lastSweep:  now(),
		now:        now,
	}
}

func (rl *memoryRateLimiter) Allow(_ context.Context, p ratePolicy, subject string) rateDecision {
	if p.limit <= 0 {
		return rateDecision{allowed: true}
	}
	now := rl.now()
	key := p.name + "|" + subject

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if now.Sub(rl.lastSweep) >= rl.sweepEvery {
		rl.sweep(now)
	}

	w, ok := rl.windows[key]
	if !ok || !now.Before(w.ends) {
		w = &fixedWindow{ends: now.Add(p.window)}
		rl.windows[key] = w
	}
	if w.hits >= p.limit {
		return rateDecision{allowed: false, count: w.hits, windowEnd: w.ends}
	}
	w.hits++
	return rateDecision{allowed: true, count: w.hits, windowEnd: w.ends}
}

func (rl *memoryRateLimiter) sweep(now time.Time) {
	for key, w := range rl.windows {
		if !now.Before(w.ends) {
			delete(rl.windows, key)
		}
	}
	rl.lastSweep = now
}

func (rl *memoryRateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

func (rl *memoryRateLimiter) Close() {}

// withRateLimit rejects requests beyond the policy budget with 429.
func (r *Router) withRateLimit(p ratePolicy, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		subject := p.subject(req)
		decision := r.limiter.Allow(req.Context(), p, subject)

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(p.limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.remaining(p.limit)))
		if !decision.windowEnd.IsZero() {
			headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
		}
		if !decision.allowed {
			r.metrics.rateLimited(p.name, subjectKind(subject))
			writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		next(w, req)
	}
}

// handlerAuthRate gates on the session first so the policy counts per user.
func (r *Router) handlerAuthRate(p ratePolicy, next http.HandlerFunc) http.HandlerFunc {
	return r.requireAuth(r.withRateLimit(p, next))
}

func subjectKind(subject string) string {
	if kind, _, ok := strings.Cut(subject, ":"); ok && kind != "" {
		return kind
	}
	return "unknown"
}
