package httpx

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func TestMemoryRateLimiterWindow(t *testing.T) {
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	rl := newMemoryRateLimiter(clock.Now)
	ctx := context.Background()
	p := ratePolicy{name: "login", limit: 3, window: time.Minute, scope: scopeIP}

	for i := 1; i <= 3; i++ {
		d := rl.Allow(ctx, p, "ip:1.2.3.4")
		if !d.allowed || d.count != i {
			t.Fatalf("request %d: unexpected decision %+v", i, d)
		}
	}
	if d := rl.Allow(ctx, p, "ip:1.2.3.4"); d.allowed || d.remaining(p.limit) != 0 {
		t.Fatalf("expected fourth request to be limited, got %+v", d)
	}
	if d := rl.Allow(ctx, p, "ip:5.6.7.8"); !d.allowed {
		t.Fatalf("subjects must be counted independently")
	}

	clock.now = clock.now.Add(time.Minute)
	if d := rl.Allow(ctx, p, "ip:1.2.3.4"); !d.allowed || d.count != 1 {
		t.Fatalf("expected a fresh window, got %+v", d)
	}
}

func TestMemoryRateLimiterPoliciesAreIndependent(t *testing.T) {
	rl := newMemoryRateLimiter(time.Now)
	ctx := context.Background()
	tight := ratePolicy{name: "register", limit: 1, window: time.Minute}
	loose := ratePolicy{name: "login", limit: 5, window: time.Minute}

	if d := rl.Allow(ctx, tight, "ip:1.2.3.4"); !d.allowed {
		t.Fatalf("first register attempt limited")
	}
	if d := rl.Allow(ctx, tight, "ip:1.2.3.4"); d.allowed {
		t.Fatalf("second register attempt allowed")
	}
	if d := rl.Allow(ctx, loose, "ip:1.2.3.4"); !d.allowed || d.count != 1 {
		t.Fatalf("login budget must not share register counter, got %+v", d)
	}
}

func TestMemoryRateLimiterSweepsExpiredWindows(t *testing.T) {
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	rl := newMemoryRateLimiter(clock.Now)
	ctx := context.Background()
	short := ratePolicy{name: "oauth", limit: 5, window: time.Second}

	rl.Allow(ctx, short, "ip:1.1.1.1")
	rl.Allow(ctx, short, "ip:2.2.2.2")
	if got := rl.size(); got != 2 {
		t.Fatalf("expected 2 windows, got %d", got)
	}

	clock.now = clock.now.Add(rl.sweepEvery)
	rl.Allow(ctx, short, "ip:3.3.3.3")
	if got := rl.size(); got != 1 {
		t.Fatalf("expected expired windows to be swept, got %d", got)
	}
}

func TestRatePolicySubject(t *testing.T) {
	req := httptest.NewRequest("GET", "/team/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	if got := policyUserRead.subject(req); got != "ip:10.0.0.9" {
		t.Fatalf("anonymous subject = %q", got)
	}
	req = req.WithContext(withAuthInfo(req.Context(), "u-1"))
	if got := policyUserRead.subject(req); got != "user:u-1" {
		t.Fatalf("user subject = %q", got)
	}
	if got := policyLogin.subject(req); got != "ip:10.0.0.9" {
		t.Fatalf("ip scoped policy must ignore identity, got %q", got)
	}
}

func TestSubjectKind(t *testing.T) {
	cases := map[string]string{
		"ip:1.2.3.4": "ip",
		"user:abc":   "user",
		"":           "unknown",
		"anonymous":  "unknown",
	}
	for in, want := range cases {
		if got := subjectKind(in); got != want {
			t.Fatalf("subjectKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRedisRateLimiter(t *testing.T) {
	addr := os.Getenv("TASKY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TASKY_TEST_REDIS_ADDR not set")
	}
	rl, err := NewRedisRateLimiter(addr, "", 0, nil)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	defer rl.Close()

	p := ratePolicy{name: "test", limit: 2, window: time.Minute}
	subject := fmt.Sprintf("ip:%d", time.Now().UnixNano())
	for i := 1; i <= 2; i++ {
		if d := rl.Allow(context.Background(), p, subject); !d.allowed {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}
	d := rl.Allow(context.Background(), p, subject)
	if d.allowed || d.count != 3 {
		t.Fatalf("expected third request to be limited, got %+v", d)
	}
	if d.windowEnd.Before(time.Now()) {
		t.Fatalf("window end should be in the future")
	}
}
