// Package http provides the HTTP transport layer for the bakery.
//
// Routes (Go 1.22+ method-qualified patterns):
//
//	GET    /health
//	GET    /api/stats                        staff
//	GET    /products                         ?sort=name|price  ?min=&max=
//	GET    /products/suggest                 ?q=
//	GET    /products/by-price/{price}
//	GET    /products/{name}
//	POST   /products                         manager
//	PATCH  /products/{name}                  manager
//	DELETE /products/{name}                  manager
//	POST   /customers
//	GET    /customers/{email}/orders         the customer, a guest, or staff
//	POST   /employees                        manager
//	POST   /login
//	POST   /guests
//	POST   /orders                           customer Basic credentials or guest email
//	GET    /orders                           staff     ?view=queue|all  ?customer=
//	GET    /orders/{id}                      staff
//	GET    /fulfilment/next                  staff
//	POST   /fulfilment/ship                  staff
//	GET    /fulfilment/shipped               staff     ?n=
//	GET    /ws/fulfilment                    staff
//	GET    /webhooks                         manager   (with WithNotifier)
//	POST   /webhooks                         manager
//	DELETE /webhooks/{id}                    manager
//	GET    /webhooks/{id}/dead-letters       manager
//	POST   /webhooks/{id}/replay             manager   ?limit=
//	GET    /metrics
//
// Staff routes take HTTP Basic credentials of an employee account.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/snehjoshi/bakery/internal/bakery"
	"github.com/snehjoshi/bakery/internal/config"
	"github.com/snehjoshi/bakery/internal/metrics"
	"github.com/snehjoshi/bakery/internal/notify"
	transportws "github.com/snehjoshi/bakery/internal/transport/websocket"
	"github.com/snehjoshi/bakery/internal/user"
)

// Server wraps the stdlib HTTP server with bakery route wiring.
type Server struct {
	inner *http.Server
}

// Option is a functional option for New.
type Option func(*Handler)

// WithNotifier serves the webhook subscription routes from n.
func WithNotifier(n *notify.Manager) Option {
	return func(h *Handler) { h.notifier = n }
}

// New builds a Server around svc. reg may be nil.
// The caller is responsible for calling ListenAndServe / Shutdown.
func New(svc *bakery.Service, cfg *config.Config, reg *metrics.Registry, opts ...Option) *Server {
	h := &Handler{svc: svc}
	for _, o := range opts {
		o(h)
	}
	ws := &transportws.Handler{Service: svc, Interval: time.Duration(cfg.Feed.IntervalMs) * time.Millisecond}

	staff := func(fn http.HandlerFunc) http.Handler { return h.requireRole(user.RoleEmployee, fn) }
	manager := func(fn http.HandlerFunc) http.Handler { return h.requireRole(user.RoleManager, fn) }

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /health", h.health)
	mux.Handle("GET /api/stats", staff(h.stats))

	// Catalogue
	mux.HandleFunc("GET /products", h.listProducts)
	mux.HandleFunc("GET /products/suggest", h.suggestProducts)
	mux.HandleFunc("GET /products/by-price/{price}", h.productByPrice)
	mux.HandleFunc("GET /products/{name}", h.getProduct)
	mux.Handle("POST /products", manager(h.addProduct))
	mux.Handle("PATCH /products/{name}", manager(h.updateProduct))
	mux.Handle("DELETE /products/{name}", manager(h.removeProduct))

	// Accounts
	mux.HandleFunc("POST /customers", h.registerCustomer)
	mux.HandleFunc("GET /customers/{email}/orders", h.customerOrders)
	mux.Handle("POST /employees", manager(h.registerEmployee))
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /guests", h.guest)

	// Orders
	mux.HandleFunc("POST /orders", h.placeOrder)
	mux.Handle("GET /orders", staff(h.listOrders))
	mux.Handle("GET /orders/{id}", staff(h.getOrder))

	// Fulfilment
	mux.Handle("GET /fulfilment/next", staff(h.nextOrder))
	mux.Handle("POST /fulfilment/ship", staff(h.shipNext))
	mux.Handle("GET /fulfilment/shipped", staff(h.recentlyShipped))
	mux.Handle("GET /ws/fulfilment", h.requireRole(user.RoleEmployee, ws))

	// Shipment webhooks
	if h.notifier != nil {
		mux.Handle("GET /webhooks", manager(h.listWebhooks))
		mux.Handle("POST /webhooks", manager(h.addWebhook))
		mux.Handle("DELETE /webhooks/{id}", manager(h.removeWebhook))
		mux.Handle("GET /webhooks/{id}/dead-letters", manager(h.deadLetters))
		mux.Handle("POST /webhooks/{id}/replay", manager(h.replayDeadLetters))
	}

	// Metrics (Prometheus text format)
	if reg != nil && cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, reg.Handler())
	}

	middleware := []func(http.Handler) http.Handler{
		MetricsMiddleware(reg),
		CORSMiddleware(cfg.Server.CORSOrigins),
		MaxBodyMiddleware(int64(cfg.Server.MaxBodyKB) << 10),
		LoggingMiddleware,
		AuthMiddleware(cfg.Auth.APIKey, cfg.Auth.Enabled),
	}
	if cfg.RateLimit.Enabled {
		middleware = append(middleware, RateLimitMiddleware(float64(cfg.RateLimit.Rate), cfg.RateLimit.Burst))
	}

	return &Server{
		inner: &http.Server{
			Handler:      chain(mux, middleware...),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Handler returns the composed http.Handler (useful for testing).
func (s *Server) Handler() http.Handler { return s.inner.Handler }

// ListenAndServe starts the server on the given address (e.g. ":8080").
// It returns when the server stops or encounters an error.
func (s *Server) ListenAndServe(addr string) error {
	s.inner.Addr = addr
	return s.inner.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting up to ctx's deadline for
// in-flight requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
