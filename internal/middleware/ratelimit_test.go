package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	l := NewRateLimiter(1, 3)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := l.Middleware(next)

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodPost, "/api/pricing/calculate", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Result().StatusCode, http.StatusOK)
		}
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	l := NewRateLimiter(1, 2)

	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodPost, "/api/pricing/calculate", nil)
		r.RemoteAddr = "10.0.0.2:1234"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, r)
	}

	res := last.Result()
	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusTooManyRequests)
	}
	if res.Header.Get("Retry-After") == "" {
		t.Fatalf("Retry-After header is empty")
	}
}

func TestRateLimiter_SeparateCallers(t *testing.T) {
	l := NewRateLimiter(1, 1)

	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, addr := range []string{"10.0.0.3:1234", "10.0.0.4:1234"} {
		r := httptest.NewRequest(http.MethodPost, "/api/pricing/calculate", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("caller %s: status = %d, want %d", addr, w.Result().StatusCode, http.StatusOK)
		}
	}
}
