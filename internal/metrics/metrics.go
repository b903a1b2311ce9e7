// Package metrics exposes bakery application metrics in the Prometheus
// exposition format through prometheus/client_golang.
//
// Each Registry owns its own prometheus.Registry, so several services in one
// process (tests in particular) never collide on metric registration.
// Every method is safe on a nil *Registry, which records nothing.
//
//	Orders     bakery_orders_placed_total{speed}, bakery_orders_shipped_total{speed}
//	Queue      bakery_queue_depth, bakery_fulfilment_wait_seconds
//	Catalogue  bakery_products
//	Accounts   bakery_accounts{table}, bakery_account_table_load_factor{table}
//	Logins     bakery_login_attempts_total{role,result}
//	Webhooks   bakery_webhook_deliveries_total{result}
//	HTTP       bakery_http_requests_total{method,path,status}, bakery_http_request_duration_seconds{method,path}
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bakery"

// Registry holds all bakery application metrics.
type Registry struct {
	reg *prometheus.Registry

	OrdersPlaced  *prometheus.CounterVec
	OrdersShipped *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
	FulfilWait    prometheus.Histogram
	Products      prometheus.Gauge
	Accounts      *prometheus.GaugeVec
	LoadFactor    *prometheus.GaugeVec
	Logins        *prometheus.CounterVec
	Webhooks      *prometheus.CounterVec

	HTTPReqs *prometheus.CounterVec
	HTTPDur  *prometheus.HistogramVec
}

// New returns a Registry with every bakery metric registered, plus the Go
// runtime and process collectors.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Total orders placed, by shipping speed",
		}, []string{"speed"}),
		OrdersShipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_shipped_total",
			Help:      "Total orders shipped, by shipping speed",
		}, []string{"speed"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Unshipped orders waiting in the fulfilment queue",
		}),
		FulfilWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fulfilment_wait_seconds",
			Help:      "Time from order placement to shipment",
			Buckets:   prometheus.ExponentialBuckets(60, 4, 8), // 1m .. ~11d
		}),
		Products: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "products",
			Help:      "Products listed in the catalogue",
		}),
		Accounts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "accounts",
			Help:      "Registered accounts, by table",
		}, []string{"table"}),
		LoadFactor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "account_table_load_factor",
			Help:      "Entries per bucket of each account hash table",
		}, []string{"table"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts, by requested role and result",
		}, []string{"role", "result"}),
		HTTPReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path, and status code",
		}, []string{"method", "path", "status"}),
		Webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Shipment webhook deliveries, by result",
		}, []string{"result"}),
		HTTPDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	r.reg.MustRegister(
		r.OrdersPlaced, r.OrdersShipped, r.QueueDepth, r.FulfilWait, r.Products,
		r.Accounts, r.LoadFactor, r.Logins, r.Webhooks, r.HTTPReqs, r.HTTPDur,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler renders every metric in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// ─── Recorders ────────────────────────────────────────────────────────────────

// OrderPlaced counts a new order and sets the queue depth.
func (r *Registry) OrderPlaced(speed string, depth int) {
	if r == nil {
		return
	}
	r.OrdersPlaced.WithLabelValues(speed).Inc()
	r.QueueDepth.Set(float64(depth))
}

// OrderShipped counts a shipment, observes how long it waited and sets the
// queue depth.
func (r *Registry) OrderShipped(speed string, waited time.Duration, depth int) {
	if r == nil {
		return
	}
	r.OrdersShipped.WithLabelValues(speed).Inc()
	r.FulfilWait.Observe(waited.Seconds())
	r.QueueDepth.Set(float64(depth))
}

// SetQueueDepth records the fulfilment queue length.
func (r *Registry) SetQueueDepth(n int) {
	if r == nil {
		return
	}
	r.QueueDepth.Set(float64(n))
}

// SetProducts records the catalogue size.
func (r *Registry) SetProducts(n int) {
	if r == nil {
		return
	}
	r.Products.Set(float64(n))
}

// SetAccounts records the size and load factor of one account table.
func (r *Registry) SetAccounts(table string, n int, loadFactor float64) {
	if r == nil {
		return
	}
	r.Accounts.WithLabelValues(table).Set(float64(n))
	r.LoadFactor.WithLabelValues(table).Set(loadFactor)
}

// LoginAttempt counts a login for role.
func (r *Registry) LoginAttempt(role string, ok bool) {
	if r == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	r.Logins.WithLabelValues(role, result).Inc()
}

// WebhookDelivery counts one webhook delivery. result is "delivered",
// "failed" (retries exhausted) or "dropped" (subscriber buffer full).
func (r *Registry) WebhookDelivery(result string) {
	if r == nil {
		return
	}
	r.Webhooks.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request. path should be the route pattern,
// not the raw URL, to keep label cardinality bounded.
func (r *Registry) ObserveHTTP(method, path string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.HTTPReqs.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.HTTPDur.WithLabelValues(method, path).Observe(d.Seconds())
}
