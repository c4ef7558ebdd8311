package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestLimiter(limit int, window time.Duration, at *time.Time) *FixedWindowLimiter {
	l := NewFixedWindowLimiter(limit, window)
	l.noRedis = true
	l.now = func() time.Time { return *at }
	return l
}

func TestFixedWindowLimiterAllowsUpToLimit(t *testing.T) {
	at := time.Unix(1000000, 0)
	l := newTestLimiter(5, time.Minute, &at)

	for i := 1; i <= 5; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d blocked, want allowed", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("request 6 allowed, want blocked")
	}
}

func TestFixedWindowLimiterKeysAreIndependent(t *testing.T) {
	at := time.Unix(1000000, 0)
	l := newTestLimiter(1, time.Minute, &at)

	if !l.Allow("10.0.0.1") {
		t.Fatal("first key blocked")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("first key not limited")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("second key blocked by first key's counter")
	}
}

func TestFixedWindowLimiterResetsOnNewWindow(t *testing.T) {
	at := time.Unix(1000000, 0)
	l := newTestLimiter(2, time.Minute, &at)

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.1")
	if l.Allow("10.0.0.1") {
		t.Fatal("over-limit request allowed inside window")
	}

	at = at.Add(time.Minute)
	if !l.Allow("10.0.0.1") {
		t.Fatal("request blocked after the window rolled over")
	}
}

func TestFixedWindowLimiterClampsSubSecondWindow(t *testing.T) {
	l := NewFixedWindowLimiter(1, 50*time.Millisecond)
	l.noRedis = true

	if l.Window != time.Second {
		t.Fatalf("Window = %v, want %v", l.Window, time.Second)
	}
	if !l.Allow("10.0.0.9") {
		t.Fatal("first request blocked")
	}
}

func TestFixedWindowMiddlewareRejectsWith429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	at := time.Unix(1000000, 0)
	l := newTestLimiter(1, time.Minute, &at)

	r := gin.New()
	r.POST("/login", l.Middleware(), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	send := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("first request: status = %d, want %d", code, http.StatusOK)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want %d", code, http.StatusTooManyRequests)
	}
}
