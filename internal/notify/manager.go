// Package notify delivers shipment webhooks.
//
// A Manager is a bakery.ShipObserver. Every shipped order becomes an Event
// that is queued on each registered Subscription and POSTed to its URL by a
// per-subscription goroutine, so a slow endpoint never holds up the others
// or the fulfilment path. Failed deliveries are retried with doubling
// backoff and end up as dead letters when every attempt fails. Events that
// find a subscriber's buffer full are dropped.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/snehjoshi/bakery/internal/config"
	"github.com/snehjoshi/bakery/internal/container/list"
	"github.com/snehjoshi/bakery/internal/ident"
	"github.com/snehjoshi/bakery/internal/metrics"
	"github.com/snehjoshi/bakery/internal/order"
	"github.com/snehjoshi/bakery/internal/validate"
)

var (
	ErrSubscriptionNotFound = errors.New("notify: subscription not found")
	ErrClosed               = errors.New("notify: manager closed")
)

// EventShipped is the type of the event sent for every shipped order.
const EventShipped = "order.shipped"

// Event is the JSON body POSTed to webhook URLs.
type Event struct {
	ID    string       `json:"id"`
	Type  string       `json:"type"`
	At    time.Time    `json:"at"`
	Order *order.Order `json:"order"`
}

// Subscription is one registered webhook.
type Subscription struct {
	ID     string
	URL    string
	secret string
	events chan Event
	cancel context.CancelFunc

	mu   sync.Mutex
	dead *list.List[Event]
}

// Info describes a subscription without its secret.
type Info struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Signed  bool   `json:"signed"`
	Pending int    `json:"pending"`
	Dead    int    `json:"dead"`
}

// ─── Option / functional options ─────────────────────────────────────────────

// Option is a functional option for the Manager.
type Option func(*Manager)

// WithHTTPClient replaces the delivery http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

// WithMetrics records delivery results in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(m *Manager) { m.metrics = reg }
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// ─── Manager ──────────────────────────────────────────────────────────────────

// Manager owns every subscription and its delivery goroutine.
type Manager struct {
	client  *http.Client
	retries int
	backoff time.Duration
	buffer  int
	ids     *ident.ULID
	metrics *metrics.Registry
	log     *slog.Logger

	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool
	wg     sync.WaitGroup
}

// New returns a Manager tuned by cfg with cfg.Webhooks already registered.
func New(cfg config.NotifyConfig, opts ...Option) (*Manager, error) {
	m := &Manager{
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		retries: cfg.Retries,
		backoff: time.Duration(cfg.BackoffMs) * time.Millisecond,
		buffer:  max(cfg.Buffer, 1),
		ids:     ident.NewULID("", nil),
		log:     slog.Default(),
		subs:    make(map[string]*Subscription),
	}
	for _, o := range opts {
		o(m)
	}
	for _, w := range cfg.Webhooks {
		if _, err := m.Register(w.URL, w.Secret); err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}

// Register adds a webhook for rawURL and starts its delivery goroutine.
// secret may be empty to send unsigned requests.
func (m *Manager) Register(rawURL, secret string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", validate.Field("url", "url", "")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		ID:     m.ids.NextID(),
		URL:    u.String(),
		secret: secret,
		events: make(chan Event, m.buffer),
		cancel: cancel,
		dead:   newDeadLetters(),
	}
	m.subs[sub.ID] = sub
	m.wg.Add(1)
	go m.deliveryLoop(ctx, sub)
	m.log.Info("webhook registered", "id", sub.ID, "url", sub.URL, "signed", secret != "")
	return sub.ID, nil
}

// Deregister stops deliveries to id. Queued events are discarded.
func (m *Manager) Deregister(id string) error {
	m.mu.Lock()
	sub, ok := m.subs[id]
	if ok {
		delete(m.subs, id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	sub.cancel()
	m.log.Info("webhook deregistered", "id", id)
	return nil
}

// List returns every subscription, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.subs))
	for _, s := range m.subs {
		s.mu.Lock()
		dead := s.dead.Len()
		s.mu.Unlock()
		out = append(out, Info{ID: s.ID, URL: s.URL, Signed: s.secret != "", Pending: len(s.events), Dead: dead})
	}
	m.mu.RUnlock()
	// ULIDs sort by creation time.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shipped queues an order.shipped event for every subscription. It never
// blocks.
func (m *Manager) Shipped(o *order.Order) {
	ev := Event{ID: m.ids.NextID(), Type: EventShipped, At: time.Now().UTC(), Order: o}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sub := range m.subs {
		select {
		case sub.events <- ev:
		default:
			m.metrics.WebhookDelivery("dropped")
			m.log.Warn("webhook buffer full, event dropped", "sub", sub.ID, "event", ev.ID, "order_id", o.ID)
		}
	}
}

// Close stops every delivery goroutine and waits for them to return.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	for _, sub := range m.subs {
		sub.cancel()
	}
	m.subs = make(map[string]*Subscription)
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) deliveryLoop(ctx context.Context, sub *Subscription) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.events:
			m.deliverWithRetry(ctx, sub, ev)
		}
	}
}

func (m *Manager) deliverWithRetry(ctx context.Context, sub *Subscription, ev Event) {
	wait := m.backoff
	for attempt := 1; ; attempt++ {
		err := deliver(ctx, m.client, sub, ev)
		if err == nil {
			m.metrics.WebhookDelivery("delivered")
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt > m.retries {
			m.metrics.WebhookDelivery("failed")
			m.deadLetter(sub, ev)
			m.log.Warn("webhook delivery failed", "sub", sub.ID, "event", ev.ID, "attempts", attempt, "err", err)
			return
		}
		m.log.Debug("webhook delivery retry", "sub", sub.ID, "event", ev.ID, "attempt", attempt, "err", err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		wait *= 2
	}
}
