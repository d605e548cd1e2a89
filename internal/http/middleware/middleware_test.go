package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-landing-backend/internal/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	// No incoming ID: one is generated.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected generated X-Request-ID")
	}

	// Incoming ID is reused.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body := w.Body.String(); body == "" {
		t.Fatalf("expected JSON error body")
	}
}

func TestMetrics_CountsRequests(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	}

	got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/ok", "200"))
	if got != 3 {
		t.Fatalf("http_requests_total = %v, want 3", got)
	}
	if inflight := testutil.ToFloat64(m.HTTPInflight); inflight != 0 {
		t.Fatalf("inflight after completion = %v, want 0", inflight)
	}
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(0.0001, 2, KeyByClientIP(""))
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		r.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("burst requests rejected: %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", statuses[2])
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(0.0001, 1, KeyByClientIP(""))
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		return w.Code
	}

	if got := send("203.0.113.7:1"); got != http.StatusOK {
		t.Fatalf("first client first request = %d", got)
	}
	if got := send("203.0.113.7:2"); got != http.StatusTooManyRequests {
		t.Fatalf("first client second request = %d, want 429", got)
	}
	// Different IP has its own bucket.
	if got := send("198.51.100.9:1"); got != http.StatusOK {
		t.Fatalf("second client = %d, want 200", got)
	}
}

func TestClientIP_TrustedHeader(t *testing.T) {
	r := gin.New()
	var got string
	r.GET("/x", func(c *gin.Context) {
		got = ClientIP(c, "X-Forwarded-For")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.1:555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if got != "203.0.113.7" {
		t.Fatalf("ClientIP = %q, want first forwarded address", got)
	}

	// Header disabled: peer address wins.
	r2 := gin.New()
	r2.GET("/x", func(c *gin.Context) {
		got = ClientIP(c, "")
		c.Status(http.StatusOK)
	})
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.1:555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	r2.ServeHTTP(httptest.NewRecorder(), req)
	if got != "10.0.0.1" {
		t.Fatalf("ClientIP = %q, want peer address", got)
	}
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(SecurityOptions{NoStore: true}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff")
	}
	if h.Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing frame denial")
	}
	if h.Get("Cache-Control") != "no-store" {
		t.Fatalf("missing no-store")
	}
	// Plain HTTP never gets HSTS even when enabled.
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("unexpected HSTS on plain HTTP")
	}
}

func TestSecurityHeaders_HSTSOnForwardedHTTPS(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=86400; includeSubDomains; preload" {
		t.Fatalf("HSTS = %q", got)
	}
}
