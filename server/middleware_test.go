package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRealIPMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		want       string
	}{
		{"no header", "", "192.0.2.1:1234", "192.0.2.1:1234"},
		{"single ip", "203.0.113.9", "10.0.0.1:1234", "203.0.113.9"},
		{"proxy chain", "203.0.113.9, 10.0.0.2, 10.0.0.3", "10.0.0.1:1234", "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := RealIPMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("Expected RemoteAddr %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.RemoteAddr = "192.0.2.1:1234"
	if got := clientIP(req); got != "192.0.2.1" {
		t.Errorf("Expected port to be dropped, got %q", got)
	}

	req.RemoteAddr = "203.0.113.9"
	if got := clientIP(req); got != "203.0.113.9" {
		t.Errorf("Expected bare address to be kept, got %q", got)
	}
}

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		path string
		want int64
	}{
		{"/metrics", 0},
		{"/health", 5},
		{"/validate", 100},
		{"/unknown", 20},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if got := getTokenCost(req); got != tt.want {
			t.Errorf("%s: expected cost %d, got %d", tt.path, tt.want, got)
		}
	}
}

func TestRateLimiterRemoveIdle(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	idle := rl.getBucket("192.0.2.1")
	busy := rl.getBucket("192.0.2.2")
	busy.TakeAvailable(500)

	if rl.getBucket("192.0.2.1") != idle {
		t.Fatal("Expected the same bucket for the same client")
	}

	rl.removeIdle()

	rl.mu.RLock()
	_, idleKept := rl.clients["192.0.2.1"]
	_, busyKept := rl.clients["192.0.2.2"]
	rl.mu.RUnlock()

	if idleKept {
		t.Error("Expected full bucket to be removed")
	}
	if !busyKept {
		t.Error("Expected partially used bucket to be kept")
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter()
	rl.Stop()
	rl.Stop()
}

func TestRequestSizeMiddlewareAllowsSmallBodies(t *testing.T) {
	called := false
	handler := RequestSizeMiddleware(1024)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/validate", nil))

	if !called || rr.Code != http.StatusNoContent {
		t.Errorf("Expected request to pass through, got status %d", rr.Code)
	}
}
