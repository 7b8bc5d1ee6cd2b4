package middleware

import (
	"context"
	"net/http/httptest"
	"net/netip"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("::1/128"),
	}
	cases := []struct {
		name      string
		remote    string
		forwarded string
		want      string
	}{
		{"untrusted peer ignores header", "203.0.113.7:80", "198.51.100.1", "203.0.113.7"},
		{"trusted peer without header", "10.1.2.3:80", "", "10.1.2.3"},
		{"trusted peer uses header", "10.1.2.3:80", "198.51.100.1", "198.51.100.1"},
		{"rightmost untrusted hop wins", "10.1.2.3:80", "1.2.3.4, 198.51.100.1, 10.0.0.9", "198.51.100.1"},
		{"all hops trusted", "10.1.2.3:80", "10.0.0.7", "10.1.2.3"},
		{"garbage hop falls back to peer", "10.1.2.3:80", "1.2.3.4, not-an-ip", "10.1.2.3"},
		{"ipv6 loopback proxy", "[::1]:80", "2001:db8::1", "2001:db8::1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := clientIP(req, trusted); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestRedisLimiter_SharedAcrossReplicas(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Date(2026, 10, 14, 10, 30, 5, 0, time.UTC)
	clock := func() time.Time { return now }
	a := NewRedisLimiter(rdb, 3)
	a.now = clock
	b := NewRedisLimiter(rdb, 3)
	b.now = clock

	ctx := context.Background()
	for i, l := range []*RedisLimiter{a, b, a} {
		allowed, err := l.Allow(ctx, "203.0.113.7")
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("request %d: expected to be allowed", i)
		}
	}
	if allowed, _ := b.Allow(ctx, "203.0.113.7"); allowed {
		t.Errorf("expected the fourth request across replicas to be refused")
	}
	if allowed, _ := b.Allow(ctx, "203.0.113.8"); !allowed {
		t.Errorf("expected another client to be allowed")
	}

	now = now.Add(time.Minute)
	if allowed, _ := a.Allow(ctx, "203.0.113.7"); !allowed {
		t.Errorf("expected a new window to reset the count")
	}
	if ttl := mr.TTL("ratelimit:203.0.113.7:" + strconv.FormatInt(now.Unix()/60, 10)); ttl <= 0 {
		t.Errorf("expected window key to expire, ttl %v", ttl)
	}
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	if _, err := NewRedisLimiter(rdb, 3).Allow(context.Background(), "203.0.113.7"); err == nil {
		t.Errorf("expected an error when redis is down")
	}
}

func TestMemoryLimiter_ForgetsIdleClients(t *testing.T) {
	l := NewMemoryLimiter(1)
	t0 := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

	if !l.allowAt("a", t0) {
		t.Fatalf("expected first request to pass")
	}
	if l.allowAt("a", t0) {
		t.Errorf("expected burst of one to be exhausted")
	}
	l.allowAt("b", t0.Add(idleClientTTL+time.Second))
	if _, ok := l.clients["a"]; ok {
		t.Errorf("expected idle client to be swept")
	}
}
