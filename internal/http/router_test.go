package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-landing-backend/internal/config"
	"github.com/tbourn/go-landing-backend/internal/domain"
	"github.com/tbourn/go-landing-backend/internal/observability"
	"github.com/tbourn/go-landing-backend/internal/repo"
	"github.com/tbourn/go-landing-backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSubmission struct {
	res services.Result
	err error
}

func (s *stubSubmission) Submit(context.Context, string, domain.RequestMeta) (services.Result, error) {
	return s.res, s.err
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:        "/api/v1",
		SubmitTimeout:      2 * time.Second,
		TrustedProxyHeader: "X-Forwarded-For",
		RateRPS:            1000,
		RateBurst:          1000,
	}
}

func newEngine(t *testing.T, svc *stubSubmission, cfg config.Config) *gin.Engine {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	r := gin.New()
	RegisterRoutes(r, svc, db, observability.NewMetrics(prometheus.NewRegistry()), cfg)
	return r
}

func TestHealthz(t *testing.T) {
	r := newEngine(t, &stubSubmission{}, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newEngine(t, &stubSubmission{}, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatalf("expected process metrics in exposition")
	}
}

func TestSubmitThroughFullStack(t *testing.T) {
	svc := &stubSubmission{res: services.Result{Phone: "+14155550100", Duplicate: true}}
	r := newEngine(t, svc, testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submit", strings.NewReader(`{"phone": "+14155550100"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != true || body["duplicate"] != true {
		t.Fatalf("body = %v", body)
	}
}

func TestNoRouteReturnsEnvelope(t *testing.T) {
	r := newEngine(t, &stubSubmission{}, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "not_found" || body["ok"] != false {
		t.Fatalf("body = %v", body)
	}
}

func TestNoMethodReturnsEnvelope(t *testing.T) {
	r := newEngine(t, &stubSubmission{}, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/submit", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "method_not_allowed" {
		t.Fatalf("body = %v", body)
	}
}

func TestRateLimiterKicksIn(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.0001
	cfg.RateBurst = 1
	r := newEngine(t, &stubSubmission{}, cfg)

	send := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "203.0.113.7:1"
		r.ServeHTTP(w, req)
		return w.Code
	}
	if got := send(); got != http.StatusOK {
		t.Fatalf("first request = %d", got)
	}
	if got := send(); got != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", got)
	}
}

func TestCORSWildcardDefault(t *testing.T) {
	r := newEngine(t, &stubSubmission{}, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("ACAO = %q, want *", got)
	}
}

func TestSecurityHeadersPresent(t *testing.T) {
	r := newEngine(t, &stubSubmission{}, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
}

func TestLandingServed(t *testing.T) {
	r := newEngine(t, &stubSubmission{}, testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}
