package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesRecordedSeries(t *testing.T) {
	m := New("billing")
	m.ObserveRequest(http.MethodGet, "/products", http.StatusOK, 15*time.Millisecond)
	m.StockAdjusted("ok")
	m.StockAdjusted("not_found")
	m.BillFinalized(150)
	m.Login(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`billing_http_requests_total{method="GET",route="/products",status="200"} 1`,
		`billing_inventory_adjustments_total{outcome="not_found"} 1`,
		`billing_billing_bills_finalized_total 1`,
		`billing_auth_logins_total{result="failure"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.StockAdjusted("ok")
	m.BillFinalized(1)
	m.Login(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil metrics, got %d", rec.Code)
	}
}
