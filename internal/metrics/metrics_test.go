package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/snehjoshi/bakery/internal/metrics"
)

// ─── Recorders ────────────────────────────────────────────────────────────────

func TestRegistry_OrderCounters(t *testing.T) {
	reg := metrics.New()

	reg.OrderPlaced("RUSH", 1)
	reg.OrderPlaced("RUSH", 2)
	reg.OrderPlaced("STANDARD", 3)
	reg.OrderShipped("RUSH", 90*time.Second, 2)

	if got := testutil.ToFloat64(reg.OrdersPlaced.WithLabelValues("RUSH")); got != 2 {
		t.Fatalf("placed RUSH = %v, want 2", got)
	}
	if got := testutil.ToFloat64(reg.OrdersShipped.WithLabelValues("RUSH")); got != 1 {
		t.Fatalf("shipped RUSH = %v, want 1", got)
	}
	if got := testutil.ToFloat64(reg.QueueDepth); got != 2 {
		t.Fatalf("queue depth = %v, want 2", got)
	}
}

func TestRegistry_Accounts(t *testing.T) {
	reg := metrics.New()
	reg.SetAccounts("customers", 30, 1.5)
	if got := testutil.ToFloat64(reg.LoadFactor.WithLabelValues("customers")); got != 1.5 {
		t.Fatalf("load factor = %v, want 1.5", got)
	}
	reg.LoginAttempt("manager", false)
	if got := testutil.ToFloat64(reg.Logins.WithLabelValues("manager", "failure")); got != 1 {
		t.Fatalf("failed manager logins = %v, want 1", got)
	}
}

func TestRegistry_NilIsSafe(t *testing.T) {
	var reg *metrics.Registry
	reg.OrderPlaced("RUSH", 1)
	reg.OrderShipped("RUSH", time.Second, 0)
	reg.SetProducts(3)
	reg.ObserveHTTP("GET", "/health", 200, time.Millisecond)
}

// ─── Prometheus output format ─────────────────────────────────────────────────

func scrape(t *testing.T, reg *metrics.Registry) string {
	t.Helper()
	srv := httptest.NewServer(reg.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestHandler_ContentType(t *testing.T) {
	reg := metrics.New()
	srv := httptest.NewServer(reg.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "text/plain") {
		t.Fatalf("Content-Type = %q, want text/plain", ct)
	}
}

func TestHandler_HTTPCounters(t *testing.T) {
	reg := metrics.New()
	reg.ObserveHTTP("GET", "/health", 200, 5*time.Millisecond)

	body := scrape(t, reg)

	mustContain(t, body, "# HELP bakery_http_requests_total")
	mustContain(t, body, `method="GET"`)
	mustContain(t, body, `path="/health"`)
	mustContain(t, body, `status="200"`)
	mustContain(t, body, "bakery_http_request_duration_seconds_sum")
	mustContain(t, body, "bakery_http_request_duration_seconds_count")
}

func TestHandler_MultipleMetricFamilies(t *testing.T) {
	reg := metrics.New()
	reg.OrderPlaced("OVERNIGHT", 1)
	reg.OrderShipped("OVERNIGHT", time.Hour, 0)
	reg.SetProducts(3)

	body := scrape(t, reg)

	mustContain(t, body, "bakery_orders_placed_total")
	mustContain(t, body, "bakery_orders_shipped_total")
	mustContain(t, body, "bakery_queue_depth")
	mustContain(t, body, "bakery_fulfilment_wait_seconds_bucket")
	mustContain(t, body, "bakery_products 3")
	mustContain(t, body, "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := metrics.New(), metrics.New()
	a.SetProducts(1)
	if got := testutil.ToFloat64(b.Products); got != 0 {
		t.Fatalf("registries must not share state, got %v", got)
	}
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func mustContain(t *testing.T, body, substr string) {
	t.Helper()
	if !strings.Contains(body, substr) {
		t.Errorf("expected body to contain %q\nbody:\n%s", substr, body)
	}
}

// ─── Concurrent safety ────────────────────────────────────────────────────────

func TestRegistry_ConcurrentInc(t *testing.T) {
	reg := metrics.New()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.OrderPlaced("STANDARD", 0)
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(reg.OrdersPlaced.WithLabelValues("STANDARD")); got != 100 {
		t.Fatalf("concurrent Inc: got %v, want 100", got)
	}
}
