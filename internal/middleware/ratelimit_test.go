package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRealIP(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"direct", "10.0.0.7:51234", "", "10.0.0.7"},
		{"behind proxy", "127.0.0.1:80", "192.0.2.44", "192.0.2.44"},
		{"forwarded chain", "127.0.0.1:80", "192.0.2.44, 10.0.0.1", "192.0.2.44"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := RealIP(r); got != tc.want {
				t.Errorf("RealIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 10; i++ {
		if !rl.Allow("192.0.2.44", 10, time.Minute) {
			t.Fatalf("attempt %d denied within limit", i+1)
		}
	}
	if rl.Allow("192.0.2.44", 10, time.Minute) {
		t.Error("attempt past the limit allowed")
	}
	// A different client is counted separately.
	if !rl.Allow("192.0.2.45", 10, time.Minute) {
		t.Error("fresh key denied")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter()

	rl.Allow("terminal", 1, 10*time.Millisecond)
	if rl.Allow("terminal", 1, 10*time.Millisecond) {
		t.Error("second attempt inside window allowed")
	}
	time.Sleep(15 * time.Millisecond)
	if !rl.Allow("terminal", 1, 10*time.Millisecond) {
		t.Error("attempt after window expiry denied")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter()

	rl.Allow("stale", 5, 10*time.Millisecond)
	time.Sleep(15 * time.Millisecond)
	rl.Allow("live", 5, time.Minute)

	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.entries["stale"]; ok {
		t.Error("stale entry survived cleanup")
	}
	if _, ok := rl.entries["live"]; !ok {
		t.Error("live entry removed by cleanup")
	}
}

func TestRateLimitMiddlewareByIP(t *testing.T) {
	rl := NewRateLimiter()
	limited := RateLimit(rl, RealIP, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		r := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		r.RemoteAddr = fmt.Sprintf("%s:51234", ip)
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, r)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("192.0.2.44"); code != http.StatusOK {
			t.Errorf("login attempt %d: status %d, want 200", i+1, code)
		}
	}
	if code := send("192.0.2.44"); code != http.StatusTooManyRequests {
		t.Errorf("throttled attempt: status %d, want 429", code)
	}
	if code := send("192.0.2.45"); code != http.StatusOK {
		t.Errorf("other client: status %d, want 200", code)
	}
}
