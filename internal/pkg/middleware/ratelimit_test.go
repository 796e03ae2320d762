package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.RequestsPerSecond != 10 {
		t.Errorf("expected RequestsPerSecond=10, got %f", cfg.RequestsPerSecond)
	}
	if cfg.Burst != 20 {
		t.Errorf("expected Burst=20, got %d", cfg.Burst)
	}
	if cfg.CleanupInterval != time.Minute {
		t.Errorf("expected CleanupInterval=1m, got %v", cfg.CleanupInterval)
	}
	if cfg.IdleTTL != 5*time.Minute {
		t.Errorf("expected IdleTTL=5m, got %v", cfg.IdleTTL)
	}
}

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		CleanupInterval:   10 * time.Second,
	})
	defer rl.Close()

	if rl.rate != 10 {
		t.Errorf("expected rate=10, got %f", rl.rate)
	}
	if rl.burst != 20 {
		t.Errorf("expected burst=20, got %d", rl.burst)
	}
	if rl.idleTTL != 5*time.Minute {
		t.Errorf("expected default idleTTL=5m, got %v", rl.idleTTL)
	}
	if len(rl.clients) != 0 {
		t.Errorf("expected empty clients map, got %d entries", len(rl.clients))
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 2, Burst: 2})
	defer rl.Close()

	clientIP := "192.168.1.100"

	// Burst of two.
	if !rl.Allow(clientIP) {
		t.Error("expected first request to be allowed")
	}
	if !rl.Allow(clientIP) {
		t.Error("expected second request to be allowed")
	}
	if rl.Allow(clientIP) {
		t.Error("expected third request to be denied")
	}

	time.Sleep(600 * time.Millisecond)

	if !rl.Allow(clientIP) {
		t.Error("expected request to be allowed after waiting")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 0, Burst: 1})
	defer rl.Close()

	if rl.Enabled() {
		t.Fatal("expected limiter with zero rate to be disabled")
	}
	for i := 0; i < 100; i++ {
		if !rl.Allow("192.168.1.100") {
			t.Fatalf("request %d denied by disabled limiter", i)
		}
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if got := rl.Middleware(next); got == nil {
		t.Error("Middleware returned nil")
	}
}

func TestRateLimiter_MultipleClients(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 5, Burst: 5})
	defer rl.Close()

	client1 := "192.168.1.100"
	client2 := "192.168.1.101"

	for i := 0; i < 5; i++ {
		if !rl.Allow(client1) {
			t.Errorf("client1 request %d should be allowed", i)
		}
		if !rl.Allow(client2) {
			t.Errorf("client2 request %d should be allowed", i)
		}
	}

	if rl.Allow(client1) {
		t.Error("client1 should be rate limited")
	}
	if rl.Allow(client2) {
		t.Error("client2 should be rate limited")
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 100, Burst: 100})
	defer rl.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(clientNum int) {
			defer wg.Done()
			clientIP := "192.168.1." + strconv.Itoa(clientNum)
			for j := 0; j < 10; j++ {
				rl.Allow(clientIP)
			}
		}(i)
	}
	wg.Wait()

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if len(rl.clients) != 10 {
		t.Errorf("expected 10 clients, got %d", len(rl.clients))
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 2, Burst: 2})
	defer rl.Close()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	limited := rl.Middleware(handler)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/v1/search", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		w := httptest.NewRecorder()

		limited.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("request %d: expected status 200, got %d", i, w.Code)
		}
	}

	req := httptest.NewRequest("POST", "/v1/search", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	w := httptest.NewRecorder()

	limited.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After 1, got %q", w.Header().Get("Retry-After"))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.168.1.100:12345", nil, "192.168.1.100"},
		{"forwarded for", "10.0.0.1:12345", map[string]string{"X-Forwarded-For": "203.0.113.1, 198.51.100.1"}, "203.0.113.1"},
		{"real ip", "10.0.0.1:12345", map[string]string{"X-Real-IP": "203.0.113.50"}, "203.0.113.50"},
		{"forwarded wins", "10.0.0.1:12345", map[string]string{
			"X-Forwarded-For": "203.0.113.1",
			"X-Real-IP":       "203.0.113.50",
		}, "203.0.113.1"},
		{"ipv6", "[2001:db8::1]:12345", nil, "2001:db8::1"},
		{"no port", "192.168.1.7", nil, "192.168.1.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/healthz", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 100,
		Burst:             100,
		IdleTTL:           time.Minute,
	})
	defer rl.Close()

	for i := 0; i < 5; i++ {
		rl.Allow("192.168.1." + strconv.Itoa(i))
	}

	rl.evictIdle(time.Now())
	rl.mu.RLock()
	kept := len(rl.clients)
	rl.mu.RUnlock()
	if kept != 5 {
		t.Errorf("expected 5 clients before TTL, got %d", kept)
	}

	rl.evictIdle(time.Now().Add(2 * time.Minute))
	rl.mu.RLock()
	left := len(rl.clients)
	rl.mu.RUnlock()
	if left != 0 {
		t.Errorf("expected 0 clients after TTL, got %d", left)
	}
}

func TestRateLimiter_CloseTwice(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Close()
	rl.Close()
}
