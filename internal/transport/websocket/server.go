// Package websocket provides the live fulfilment feed.
//
// Staff open a WebSocket connection to:
//
//	GET /ws/fulfilment
//
// The server pushes a status frame every interval and after every shipment.
// Clients may ask the server to ship the highest-priority order.
//
// Server → client frames:
//
//	{"type":"status","pending":3,"next":{...order...}}
//	{"type":"shipped","order":{...order...},"pending":2}
//	{"type":"error","error":"..."}
//
// Client → server control frame:
//
//	{"type":"ship"}
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/snehjoshi/bakery/internal/bakery"
	"github.com/snehjoshi/bakery/internal/order"
)

// DefaultInterval is the status period when Handler.Interval is zero.
const DefaultInterval = 2 * time.Second

var upgrader = gorillaws.Upgrader{
	// CheckOrigin rejects cross-origin upgrade requests. A request is
	// same-origin when its Origin host matches the Host header. Requests
	// without an Origin header (native clients, curl) are allowed.
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		host, err := parseHost(origin)
		if err != nil {
			return false
		}
		return host == r.Host
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// parseHost returns the host:port (or just host) portion of a URL string.
func parseHost(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid origin %q", rawURL)
	}
	return u.Host, nil
}

// Handler serves the fulfilment feed. Authentication happens before it is
// reached.
type Handler struct {
	Service  *bakery.Service
	Interval time.Duration
}

// serverFrame is the JSON structure the server sends to the client.
type serverFrame struct {
	Type    string       `json:"type"` // "status" | "shipped" | "error"
	Pending int          `json:"pending"`
	Next    *order.Order `json:"next,omitempty"`
	Order   *order.Order `json:"order,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// clientFrame is the JSON structure the client sends to the server.
type clientFrame struct {
	Type string `json:"type"` // "ship"
}

// ServeHTTP upgrades the connection and starts the push loop. Only this
// goroutine writes to the connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	controlCh := make(chan clientFrame, 16)
	go func() {
		defer close(controlCh)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cf clientFrame
			if jsonErr := json.Unmarshal(raw, &cf); jsonErr == nil {
				controlCh <- cf
			}
		}
	}()

	interval := h.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if !h.send(conn, h.status()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return

		case cf, ok := <-controlCh:
			if !ok {
				return // client disconnected
			}
			if cf.Type != "ship" {
				if !h.send(conn, serverFrame{Type: "error", Error: fmt.Sprintf("unknown frame type %q", cf.Type)}) {
					return
				}
				continue
			}
			o, err := h.Service.ShipNext()
			if err != nil {
				if !h.send(conn, serverFrame{Type: "error", Error: err.Error(), Pending: h.Service.Pending()}) {
					return
				}
				continue
			}
			if !h.send(conn, serverFrame{Type: "shipped", Order: o, Pending: h.Service.Pending()}) {
				return
			}

		case <-ticker.C:
			if !h.send(conn, h.status()) {
				return
			}
		}
	}
}

func (h *Handler) status() serverFrame {
	f := serverFrame{Type: "status", Pending: h.Service.Pending()}
	if next, err := h.Service.NextOrder(); err == nil {
		f.Next = next
	}
	return f
}

func (h *Handler) send(conn *gorillaws.Conn, f serverFrame) bool {
	data, err := json.Marshal(f)
	if err != nil {
		slog.Warn("ws marshal failed", "type", f.Type, "err", err)
		return true
	}
	return conn.WriteMessage(gorillaws.TextMessage, data) == nil
}
