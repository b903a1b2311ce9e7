// Package client is the Go SDK for the bakery fulfilment API.
//
// # Quick start
//
//	c := client.New("http://localhost:8080")
//
//	// Browse
//	products, err := c.Products(ctx, client.SortByPrice)
//
//	// Sign up and order
//	_, err = c.RegisterCustomer(ctx, client.Registration{Email: "ann@x.com", Password: "pw", Address: "1 Elm St"})
//	ann := c.As("ann@x.com", "pw")
//	o, err := ann.PlaceOrder(ctx, client.OrderRequest{
//	    Lines: []client.Line{{Name: "Brioche", Quantity: 2}},
//	    Speed: "rush",
//	})
//
//	// Fulfil
//	staff := c.As("bo@bakery.com", "pw")
//	shipped, err := staff.ShipNext(ctx)
//
// # Error handling
//
// All methods return an *APIError when the server responds with a non-2xx
// status code. Check errors.As(err, &client.APIError{}) to inspect the HTTP
// status and server message.
//
// # Connection reuse
//
// Client is safe for concurrent use. It shares a single http.Client internally
// so connections are reused across goroutines, including clients made with As.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Error type ───────────────────────────────────────────────────────────────

// APIError is returned when the bakery server responds with a non-2xx status.
type APIError struct {
	StatusCode int    // HTTP status code
	Message    string // "error" field from the JSON response body
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bakery: server returned %d: %s", e.StatusCode, e.Message)
}

func hasStatus(err error, code int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == code
}

// IsNotFound reports whether the error is a 404 from the server. ShipNext
// and NextOrder return one when the queue is empty.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsConflict reports whether the error is a 409 (already exists) from the server.
func IsConflict(err error) bool { return hasStatus(err, http.StatusConflict) }

// IsUnauthorized reports whether the server rejected the credentials.
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

// IsOutOfStock reports whether an order asked for more than is in stock.
func IsOutOfStock(err error) bool { return hasStatus(err, http.StatusUnprocessableEntity) }

// ─── Client options ───────────────────────────────────────────────────────────

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key sent in every request as the X-Api-Key header.
// Required when the server has auth.enabled = true.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithCredentials sets the HTTP Basic credentials sent with every request.
func WithCredentials(email, password string) ClientOption {
	return func(c *Client) { c.email, c.password = email, password }
}

// WithHTTPClient replaces the default http.Client.
// Use this to configure TLS, proxies, or request tracing.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
// The default is 30 seconds.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// ─── Client ───────────────────────────────────────────────────────────────────

// Client is the bakery API client. It is safe for concurrent use.
type Client struct {
	baseURL  string
	apiKey   string
	email    string
	password string
	http     *http.Client
}

// New creates a new Client that connects to the bakery server at baseURL.
//
//	c := client.New("http://localhost:8080")
//	c := client.New("http://bakery.example.com", client.WithAPIKey("secret"))
func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// As returns a copy of c that authenticates as email. The copy shares the
// underlying http.Client.
func (c *Client) As(email, password string) *Client {
	cp := *c
	cp.email, cp.password = email, password
	return &cp
}

// ─── Domain types ─────────────────────────────────────────────────────────────

// Product sort keys accepted by Products.
const (
	SortByName  = "name"
	SortByPrice = "price"
)

// Product is a catalogue entry.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	Allergens   []string        `json:"allergens"`
	Calories    int             `json:"calories"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewProduct is the body of AddProduct.
type NewProduct struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description,omitempty"`
	Allergens   []string        `json:"allergens,omitempty"`
	Calories    int             `json:"calories"`
}

// ProductUpdate changes the set fields of a product.
type ProductUpdate struct {
	Price       *decimal.Decimal `json:"price,omitempty"`
	Description *string          `json:"description,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
}

// Suggestion is a product name close to a search query.
type Suggestion struct {
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// Registration registers a customer account.
type Registration struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
}

// Account is a customer or employee record. Password hashes are never sent.
type Account struct {
	Kind      string `json:"kind"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Customer  *struct {
		Address string `json:"address"`
		Phone   string `json:"phone"`
		City    string `json:"city"`
		State   string `json:"state"`
		Zip     string `json:"zip"`
		Guest   bool   `json:"guest,omitempty"`
	} `json:"customer,omitempty"`
	Employee *struct {
		Manager bool `json:"manager"`
	} `json:"employee,omitempty"`
}

// Line is one product and quantity in an order request.
type Line struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// OrderRequest is the body of PlaceOrder. Email is only read for guest
// orders; registered customers are identified by the client's credentials.
// An empty Address ships to the customer's mailing address.
type OrderRequest struct {
	Email   string `json:"email,omitempty"`
	Lines   []Line `json:"lines"`
	Speed   string `json:"speed"`
	Address string `json:"address,omitempty"`
}

// Item is a priced order line.
type Item struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Order is a placed order.
type Order struct {
	ID              string          `json:"id"`
	CustomerEmail   string          `json:"customer_email"`
	Items           []Item          `json:"items"`
	Speed           string          `json:"speed"`
	ShippingAddress string          `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingCost    decimal.Decimal `json:"shipping_cost"`
	Total           decimal.Decimal `json:"total"`
	Shipped         bool            `json:"shipped"`
	ShippedAt       *time.Time      `json:"shipped_at,omitempty"`
	Priority        int             `json:"priority"`
}

// CustomerOrders holds a customer's two order lists.
type CustomerOrders struct {
	Unshipped []*Order `json:"unshipped"`
	Shipped   []*Order `json:"shipped"`
}

// HealthInfo contains the data returned by the /health endpoint.
type HealthInfo struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
}

// Stats is the container summary returned by GET /api/stats.
type Stats struct {
	Products  int `json:"products"`
	Pending   int `json:"pending"`
	Orders    int `json:"orders"`
	Shipped   int `json:"shipped"`
	Guests    int `json:"guests"`
	Directory struct {
		Customers          int     `json:"customers"`
		Employees          int     `json:"employees"`
		CustomerLoadFactor float64 `json:"customer_load_factor"`
		EmployeeLoadFactor float64 `json:"employee_load_factor"`
	} `json:"directory"`
}

// ─── Catalogue ────────────────────────────────────────────────────────────────

// Products lists the catalogue ordered by SortByName or SortByPrice.
func (c *Client) Products(ctx context.Context, sortBy string) ([]*Product, error) {
	path := "/products"
	if sortBy != "" {
		path += "?" + url.Values{"sort": {sortBy}}.Encode()
	}
	var resp struct {
		Products []*Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// ProductsInPriceRange lists products priced within [lo, hi], cheapest first.
func (c *Client) ProductsInPriceRange(ctx context.Context, lo, hi decimal.Decimal) ([]*Product, error) {
	q := url.Values{"min": {lo.String()}, "max": {hi.String()}}
	var resp struct {
		Products []*Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/products?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// Product looks a product up by name, case-insensitively.
func (c *Client) Product(ctx context.Context, name string) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(name), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProductByPrice returns the product with exactly this price.
func (c *Client) ProductByPrice(ctx context.Context, price decimal.Decimal) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodGet, "/products/by-price/"+price.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Suggest returns product names close to query, best first.
func (c *Client) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	var resp struct {
		Suggestions []Suggestion `json:"suggestions"`
	}
	path := "/products/suggest?" + url.Values{"q": {query}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

// AddProduct adds a product. Requires manager credentials.
func (c *Client) AddProduct(ctx context.Context, p NewProduct) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodPost, "/products", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProduct changes a product's price, stock or description. Requires
// manager credentials.
func (c *Client) UpdateProduct(ctx context.Context, name string, u ProductUpdate) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodPatch, "/products/"+url.PathEscape(name), u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveProduct deletes a product. Requires manager credentials.
func (c *Client) RemoveProduct(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(name), nil, nil)
}

// ─── Accounts ─────────────────────────────────────────────────────────────────

// RegisterCustomer creates a customer account.
// Returns an *APIError with StatusCode 409 if the email is taken.
func (c *Client) RegisterCustomer(ctx context.Context, r Registration) (*Account, error) {
	var a Account
	if err := c.do(ctx, http.MethodPost, "/customers", r, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// RegisterEmployee creates a staff account. Requires manager credentials.
func (c *Client) RegisterEmployee(ctx context.Context, firstName, lastName, email, password string, manager bool) (*Account, error) {
	body := map[string]any{
		"first_name": firstName,
		"last_name":  lastName,
		"email":      email,
		"password":   password,
		"manager":    manager,
	}
	var a Account
	if err := c.do(ctx, http.MethodPost, "/employees", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Login checks credentials for role ("customer", "employee" or "manager").
func (c *Client) Login(ctx context.Context, email, password, role string) (*Account, error) {
	body := map[string]string{"email": email, "password": password, "role": role}
	var a Account
	if err := c.do(ctx, http.MethodPost, "/login", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Guest starts a guest session and returns its throwaway account.
func (c *Client) Guest(ctx context.Context) (*Account, error) {
	var a Account
	if err := c.do(ctx, http.MethodPost, "/guests", nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ─── Orders ───────────────────────────────────────────────────────────────────

// PlaceOrder places an order as the client's customer, or as the guest
// named in r.Email when the client has no credentials.
func (c *Client) PlaceOrder(ctx context.Context, r OrderRequest) (*Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodPost, "/orders", r, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CustomerOrders returns a customer's unshipped and shipped orders.
func (c *Client) CustomerOrders(ctx context.Context, email string) (*CustomerOrders, error) {
	var out CustomerOrders
	if err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(email)+"/orders", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Queue returns the pending orders, highest priority first. Requires staff
// credentials.
func (c *Client) Queue(ctx context.Context) ([]*Order, error) {
	return c.orders(ctx, "/orders")
}

// AllOrders returns every order ever placed in id order. Requires staff
// credentials.
func (c *Client) AllOrders(ctx context.Context) ([]*Order, error) {
	return c.orders(ctx, "/orders?view=all")
}

// Order looks an order up by id. Requires staff credentials.
func (c *Client) Order(ctx context.Context, id string) (*Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ─── Fulfilment ───────────────────────────────────────────────────────────────

// NextOrder returns the order that ShipNext would ship, without shipping it.
func (c *Client) NextOrder(ctx context.Context) (*Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodGet, "/fulfilment/next", nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ShipNext ships the highest-priority order and returns it.
func (c *Client) ShipNext(ctx context.Context) (*Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodPost, "/fulfilment/ship", nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// RecentlyShipped returns up to n shipped orders, most recent first.
func (c *Client) RecentlyShipped(ctx context.Context, n int) ([]*Order, error) {
	return c.orders(ctx, "/fulfilment/shipped?n="+strconv.Itoa(n))
}

func (c *Client) orders(ctx context.Context, path string) ([]*Order, error) {
	var resp struct {
		Orders []*Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// ─── Shipment webhooks ────────────────────────────────────────────────────────

// Webhook describes a registered shipment webhook.
type Webhook struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Signed  bool   `json:"signed"`
	Pending int    `json:"pending"`
	Dead    int    `json:"dead"`
}

// WebhookEvent is the body the server POSTs to a webhook URL.
type WebhookEvent struct {
	ID    string    `json:"id"`
	Type  string    `json:"type"`
	At    time.Time `json:"at"`
	Order *Order    `json:"order"`
}

// Subscribe registers a webhook URL that receives an "order.shipped" event
// for every shipped order. secret signs the body with HMAC-SHA256
// (X-Bakery-Signature); set it to "" to disable signing. Requires manager
// credentials. Returns the subscription ID needed to call Unsubscribe.
func (c *Client) Subscribe(ctx context.Context, webhookURL, secret string) (string, error) {
	payload := map[string]string{"url": webhookURL, "secret": secret}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/webhooks", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Unsubscribe removes a webhook subscription by its ID.
func (c *Client) Unsubscribe(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/webhooks/"+url.PathEscape(id), nil, nil)
}

// Webhooks lists the registered webhooks.
func (c *Client) Webhooks(ctx context.Context) ([]*Webhook, error) {
	var resp struct {
		Webhooks []*Webhook `json:"webhooks"`
	}
	if err := c.do(ctx, http.MethodGet, "/webhooks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Webhooks, nil
}

// DeadLetters returns the events a webhook failed to accept, oldest first.
func (c *Client) DeadLetters(ctx context.Context, id string) ([]*WebhookEvent, error) {
	var resp struct {
		Events []*WebhookEvent `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "/webhooks/"+url.PathEscape(id)+"/dead-letters", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// ReplayDeadLetters queues up to limit dead letters for redelivery (limit
// <= 0 means all). Returns the number of events moved.
func (c *Client) ReplayDeadLetters(ctx context.Context, id string, limit int) (int, error) {
	path := fmt.Sprintf("/webhooks/%s/replay?limit=%d", url.PathEscape(id), limit)
	var resp struct {
		Replayed int `json:"replayed"`
	}
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Replayed, nil
}

// ─── Observability ────────────────────────────────────────────────────────────

// Health checks the server's /health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthInfo, error) {
	var h HealthInfo
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Stats returns container counts. Requires staff credentials.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ─── HTTP transport ───────────────────────────────────────────────────────────

// do performs a single HTTP request.
// body is encoded as JSON when non-nil, resp is decoded from JSON when non-nil.
// A 204 No Content response is treated as success with no body.
func (c *Client) do(ctx context.Context, method, path string, body, resp any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("bakery: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("bakery: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if c.email != "" {
		req.SetBasicAuth(c.email, c.password)
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bakery: request %s %s: %w", method, path, err)
	}
	defer httpResp.Body.Close()

	// Success without body
	if httpResp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("bakery: read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		msg := errResp.Error
		if msg == "" {
			msg = http.StatusText(httpResp.StatusCode)
		}
		return &APIError{StatusCode: httpResp.StatusCode, Message: msg}
	}

	if resp != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, resp); err != nil {
			return fmt.Errorf("bakery: decode response: %w", err)
		}
	}
	return nil
}
