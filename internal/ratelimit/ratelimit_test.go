package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAllowWithinBurst(t *testing.T) {
	limiter := NewRateLimiter(1000, 10)

	for i := 0; i < 10; i++ {
		if !limiter.Allow("key") {
			t.Errorf("request %d within burst denied", i)
		}
	}
}

func TestBlocksOverLimit(t *testing.T) {
	limiter := NewRateLimiter(0.1, 2)

	if !limiter.Allow("key") || !limiter.Allow("key") {
		t.Error("burst requests should be allowed")
	}
	if limiter.Allow("key") {
		t.Error("request over limit should be blocked")
	}
}

func TestPerKeyIsolation(t *testing.T) {
	limiter := NewRateLimiter(0.1, 2)

	limiter.Allow("a")
	limiter.Allow("a")

	// Exhausting one key leaves others untouched
	if !limiter.Allow("b") || !limiter.Allow("b") {
		t.Error("key b should have its own burst")
	}
}

func TestReset(t *testing.T) {
	limiter := NewRateLimiter(0.1, 1)

	limiter.Allow("key")
	if limiter.Allow("key") {
		t.Fatal("burst should be spent")
	}

	limiter.Reset()
	if !limiter.Allow("key") {
		t.Error("fresh burst expected after reset")
	}
}

func TestConcurrentAccess(t *testing.T) {
	limiter := NewRateLimiter(10000, 100)
	var wg sync.WaitGroup

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			limiter.Allow("key-" + string(rune('0'+i%10)))
		}(i)
	}
	wg.Wait()
}

func TestMiddleware(t *testing.T) {
	limiter := NewRateLimiter(0.1, 1)
	e := echo.New()
	handler := Middleware(limiter)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	doRequest := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatalf("handler: %v", err)
		}
		return rec
	}

	if rec := doRequest(); rec.Code != http.StatusOK {
		t.Errorf("first request = %d", rec.Code)
	}
	rec := doRequest()
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Error("Retry-After header missing")
	}
}
