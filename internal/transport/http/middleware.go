package http

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/snehjoshi/bakery/internal/metrics"
)

// ─── CORS ────────────────────────────────────────────────────────────────────

// CORSMiddleware lets browser storefronts call the API. An allowed origin is
// echoed back with credentials enabled, since staff routes use Basic auth.
// With no origins configured every origin is allowed; otherwise requests
// from other origins get no CORS headers and the browser blocks them.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()
			switch {
			case origin == "":
				h.Set("Access-Control-Allow-Origin", "*")
			case len(allowed) == 0 || allowed[origin]:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Api-Key")
			h.Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ─── Logging ──────────────────────────────────────────────────────────────────

// responseWriter records the status a handler wrote.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the fulfilment WebSocket upgrade through the wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("http: response writer does not support hijacking")
	}
	rw.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// wrap reuses an outer wrapper so metrics and logging see the same status.
func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

// LoggingMiddleware writes one log line per request. Client errors log at
// info, server errors at warn.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)
		level := slog.LevelInfo
		if wrapped.status >= 500 {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// ─── Metrics ──────────────────────────────────────────────────────────────────

// MetricsMiddleware records request counts and latency labelled by the
// matched route pattern. A nil registry disables it.
func MetricsMiddleware(reg *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if reg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r)
			// ServeMux fills r.Pattern in place once it has routed r.
			pattern := r.Pattern
			if pattern == "" {
				pattern = "unmatched"
			}
			reg.ObserveHTTP(r.Method, pattern, wrapped.status, time.Since(start))
		})
	}
}

// ─── API key ──────────────────────────────────────────────────────────────────

// AuthMiddleware gates the whole API behind the X-Api-Key header when
// enabled. It sits in front of the per-account Basic credentials checked by
// the handlers. /health stays open for load balancers.
func AuthMiddleware(apiKey string, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled || apiKey == "" {
			return next
		}
		want := []byte(apiKey)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			if subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Api-Key")), want) != 1 {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing or wrong api key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ─── Rate limiting ────────────────────────────────────────────────────────────

const (
	// maxTrackedClients triggers a sweep of idle limiters.
	maxTrackedClients = 5000
	// clientIdle is how long a limiter survives without requests once a
	// sweep runs.
	clientIdle = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters hands out one token bucket per client address.
type clientLimiters struct {
	mu    sync.Mutex
	rps   rate.Limit
	burst int
	byIP  map[string]*clientLimiter
}

func (c *clientLimiters) get(ip string, now time.Time) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.byIP[ip]; ok {
		e.lastSeen = now
		return e.limiter
	}
	if len(c.byIP) >= maxTrackedClients {
		for k, e := range c.byIP {
			if now.Sub(e.lastSeen) > clientIdle {
				delete(c.byIP, k)
			}
		}
	}
	l := rate.NewLimiter(c.rps, c.burst)
	c.byIP[ip] = &clientLimiter{limiter: l, lastSeen: now}
	return l
}

// RateLimitMiddleware allows each client address rps requests per second
// with bursts of burst. Rejected requests get 429 and a Retry-After hint.
func RateLimitMiddleware(rps float64, burst int) func(http.Handler) http.Handler {
	clients := &clientLimiters{rps: rate.Limit(rps), burst: burst, byIP: make(map[string]*clientLimiter)}
	retryAfter := "1"
	if rps > 0 && rps < 1 {
		retryAfter = strconv.Itoa(int(1/rps + 0.5))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !clients.get(clientIP(r), time.Now()).Allow() {
				w.Header().Set("Retry-After", retryAfter)
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the leftmost X-Forwarded-For address when it parses, else the
// RemoteAddr host. The header is trusted as sent.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ─── Body size limit ─────────────────────────────────────────────────────────

// MaxBodyMiddleware caps request bodies at limit bytes. decodeJSON turns the
// resulting read error into a 413.
func MaxBodyMiddleware(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// ─── Chain ────────────────────────────────────────────────────────────────────

// chain wraps h so that mw[0] runs first.
func chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
