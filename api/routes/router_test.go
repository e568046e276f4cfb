package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/advancehq/reconciliation-backend/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Webhook.Secret = "whsec_test"
	return NewRouter(RouterParams{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
	})
}

func TestRouterHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Recon-Env"); got != "test" {
		t.Fatalf("env header = %q, want test", got)
	}
}

func TestRouterExposesMetrics(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouterRejectsUnsignedWebhook(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(`{"payment_id":"pay_1"}`))
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
