package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowStopsAtLimit(t *testing.T) {
	rl := NewRateLimiter()

	// The manual generation trigger allows 10 runs per minute per caller.
	for i := 0; i < 10; i++ {
		if !rl.Allow("203.0.113.7", 10, time.Minute) {
			t.Fatalf("run %d should be allowed", i+1)
		}
	}
	if rl.Allow("203.0.113.7", 10, time.Minute) {
		t.Error("11th run within the window should be denied")
	}

	// A different guardian's address has its own budget.
	if !rl.Allow("198.51.100.4", 10, time.Minute) {
		t.Error("other caller should be unaffected")
	}
}

func TestAllowResetsAfterWindow(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		rl.Allow("203.0.113.7", 3, 10*time.Millisecond)
	}
	if rl.Allow("203.0.113.7", 3, 10*time.Millisecond) {
		t.Error("should be blocked within window")
	}

	time.Sleep(15 * time.Millisecond)

	if !rl.Allow("203.0.113.7", 3, 10*time.Millisecond) {
		t.Error("should be allowed once the window expires")
	}
}

func TestCleanupDropsOnlyExpiredEntries(t *testing.T) {
	rl := NewRateLimiter()

	rl.Allow("203.0.113.7", 10, 10*time.Millisecond)
	time.Sleep(15 * time.Millisecond)
	rl.Allow("198.51.100.4", 10, time.Minute)

	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.entries["203.0.113.7"]; ok {
		t.Error("expired entry should have been cleaned up")
	}
	if _, ok := rl.entries["198.51.100.4"]; !ok {
		t.Error("active entry should still exist")
	}
}

func TestRateLimitMiddlewarePerClient(t *testing.T) {
	rl := NewRateLimiter()
	var runs int
	handler := RateLimit(rl, RealIP, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runs++
		w.WriteHeader(http.StatusAccepted)
	}))

	trigger := func(ip string) int {
		req := httptest.NewRequest("POST", "/api/generation/run", nil)
		req.RemoteAddr = ip + ":51234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := trigger("203.0.113.7"); code != http.StatusAccepted {
			t.Errorf("trigger %d: status = %d, want %d", i+1, code, http.StatusAccepted)
		}
	}
	if code := trigger("203.0.113.7"); code != http.StatusTooManyRequests {
		t.Errorf("3rd trigger: status = %d, want %d", code, http.StatusTooManyRequests)
	}
	if runs != 2 {
		t.Errorf("handler ran %d times, want 2 (limited request never reaches it)", runs)
	}

	// Limiting is per client address, not global.
	if code := trigger("198.51.100.4"); code != http.StatusAccepted {
		t.Errorf("other client: status = %d, want %d", code, http.StatusAccepted)
	}
}

func TestRealIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/backup/run", nil)
	req.RemoteAddr = "10.0.0.2:44321"
	if got := RealIP(req); got != "10.0.0.2" {
		t.Errorf("RealIP = %q, want remote host without port", got)
	}

	// Behind a reverse proxy the first hop identifies the client, so two
	// guardians sharing the proxy do not share a rate-limit budget.
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	if got := RealIP(req); got != "203.0.113.7" {
		t.Errorf("RealIP = %q, want first hop of X-Forwarded-For", got)
	}
}
