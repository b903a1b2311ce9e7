package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/snehjoshi/bakery/internal/auth"
	"github.com/snehjoshi/bakery/internal/bakery"
	"github.com/snehjoshi/bakery/internal/catalog"
	"github.com/snehjoshi/bakery/internal/container"
	"github.com/snehjoshi/bakery/internal/notify"
	"github.com/snehjoshi/bakery/internal/order"
	"github.com/snehjoshi/bakery/internal/user"
	"github.com/snehjoshi/bakery/internal/validate"
)

// Handler groups all HTTP request handlers around a bakery.Service.
type Handler struct {
	svc      *bakery.Service
	notifier *notify.Manager
}

// ─── DTOs ─────────────────────────────────────────────────────────────────────

type registerCustomerReq struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
}

type registerEmployeeReq struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Manager   bool   `json:"manager"`
}

type loginReq struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     user.Role `json:"role"`
}

type placeOrderReq struct {
	Email   string               `json:"email"` // guests only; customers use Basic credentials
	Lines   []bakery.LineRequest `json:"lines"`
	Speed   order.Speed          `json:"speed"`
	Address string               `json:"address"`
}

type customerOrdersResp struct {
	Unshipped []*order.Order `json:"unshipped"`
	Shipped   []*order.Order `json:"shipped"`
}

type ordersResp struct {
	Orders []*order.Order `json:"orders"`
}

type productsResp struct {
	Products []*catalog.Product `json:"products"`
}

type webhookReq struct {
	URL    string `json:"url"`
	Secret string `json:"secret"`
}

type webhooksResp struct {
	Webhooks []notify.Info `json:"webhooks"`
}

type suggestResp struct {
	Suggestions []catalog.Suggestion `json:"suggestions"`
}

// ─── Health / stats ───────────────────────────────────────────────────────────

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"pending": h.svc.Pending(),
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

// ─── Products ─────────────────────────────────────────────────────────────────

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("min") || q.Has("max") {
		lo, err := parseDecimalParam(q.Get("min"), decimal.Zero)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		hi, err := parseDecimalParam(q.Get("max"), decimal.New(1, 9))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, productsResp{Products: h.svc.ProductsInPriceRange(lo, hi)})
		return
	}
	ps, err := h.svc.Products(q.Get("sort"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, productsResp{Products: ps})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.FindProduct(r.PathValue("name"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) productByPrice(w http.ResponseWriter, r *http.Request) {
	price, err := decimal.NewFromString(r.PathValue("price"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be a decimal number"})
		return
	}
	p, err := h.svc.FindProductByPrice(price)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) suggestProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, suggestResp{Suggestions: h.svc.Suggest(r.URL.Query().Get("q"))})
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.ProductInput
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.AddProduct(req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.UpdateInput
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateProduct(r.PathValue("name"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) removeProduct(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.RemoveProduct(r.PathValue("name")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Accounts ─────────────────────────────────────────────────────────────────

func (h *Handler) registerCustomer(w http.ResponseWriter, r *http.Request) {
	var req registerCustomerReq
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.RegisterCustomer(
		user.Details{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email},
		user.Contact{Address: req.Address, Phone: req.Phone, City: req.City, State: req.State, Zip: req.Zip},
		req.Password,
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) registerEmployee(w http.ResponseWriter, r *http.Request) {
	var req registerEmployeeReq
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.RegisterEmployee(
		user.Details{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email},
		req.Manager,
		req.Password,
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = user.RoleCustomer
	}
	u, err := h.svc.Login(req.Email, req.Password, req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) guest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, h.svc.Guest())
}

// customerOrders serves the customer's own lists. Staff may read any
// customer's lists; a guest email is its own credential.
func (h *Handler) customerOrders(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if !h.mayView(r, email) {
		writeUnauthorized(w)
		return
	}
	unshipped, shipped, err := h.svc.CustomerOrders(email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customerOrdersResp{Unshipped: unshipped, Shipped: shipped})
}

func (h *Handler) mayView(r *http.Request, email string) bool {
	if user.IsGuestEmail(email) {
		return true
	}
	name, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(email)) {
		if _, err := h.svc.Login(name, pass, user.RoleCustomer); err == nil {
			return true
		}
	}
	_, err := h.svc.Login(name, pass, user.RoleEmployee)
	return err == nil
}

// ─── Orders ───────────────────────────────────────────────────────────────────

// placeOrder accepts Basic customer credentials, or a guest email in the body.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if !decodeJSON(w, r, &req) {
		return
	}
	email := req.Email
	if name, pass, ok := r.BasicAuth(); ok {
		u, err := h.svc.Login(name, pass, user.RoleCustomer)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		email = u.Email
	} else if !user.IsGuestEmail(email) {
		writeUnauthorized(w)
		return
	}

	o, err := h.svc.PlaceOrder(bakery.OrderRequest{
		Email:   email,
		Lines:   req.Lines,
		Speed:   req.Speed,
		Address: req.Address,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// listOrders returns the queue highest priority first, or with view=all
// the whole ledger in id order. customer=<email> filters the queue.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("customer") != "":
		writeJSON(w, http.StatusOK, ordersResp{Orders: h.svc.OrdersByCustomer(q.Get("customer"))})
	case q.Get("view") == "all":
		writeJSON(w, http.StatusOK, ordersResp{Orders: h.svc.AllOrders()})
	case q.Get("view") == "" || q.Get("view") == "queue":
		writeJSON(w, http.StatusOK, ordersResp{Orders: h.svc.QueueSorted()})
	default:
		writeError(w, http.StatusBadRequest, validate.Field("view", "oneof", "queue all"))
	}
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.OrderByID(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ─── Fulfilment ───────────────────────────────────────────────────────────────

func (h *Handler) nextOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.NextOrder()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) shipNext(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.ShipNext()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if u, ok := Staff(r); ok {
		slog.Debug("ship request", "order_id", o.ID, "by", u.Email)
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) recentlyShipped(w http.ResponseWriter, r *http.Request) {
	n := parseIntParam(r, "n", 20)
	writeJSON(w, http.StatusOK, ordersResp{Orders: h.svc.RecentlyShipped(n)})
}

// ─── Webhooks ─────────────────────────────────────────────────────────────────

func (h *Handler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, webhooksResp{Webhooks: h.notifier.List()})
}

func (h *Handler) addWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookReq
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.notifier.Register(req.URL, req.Secret)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) removeWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.notifier.Deregister(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deadLetters(w http.ResponseWriter, r *http.Request) {
	events, err := h.notifier.DeadLetters(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) replayDeadLetters(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifier.Replay(r.PathValue("id"), parseIntParam(r, "limit", 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"replayed": n})
}

// ─── Staff authentication ─────────────────────────────────────────────────────

type ctxKey struct{}

// Staff returns the employee that authenticated r, if any.
func Staff(r *http.Request) (*user.User, bool) {
	u, ok := r.Context().Value(ctxKey{}).(*user.User)
	return u, ok
}

// requireRole wraps next so that it only runs for an employee (or manager,
// when role is RoleManager) presenting valid HTTP Basic credentials.
func (h *Handler) requireRole(role user.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, pass, ok := r.BasicAuth()
		if !ok {
			writeUnauthorized(w)
			return
		}
		u, err := h.svc.Login(name, pass, role)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	})
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, validate.ErrInvalid), errors.Is(err, order.ErrUnknownSpeed):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrNotManager):
		return http.StatusForbidden
	case bakery.IsNotFound(err), errors.Is(err, bakery.ErrUnknownCustomer), errors.Is(err, container.ErrEmpty),
		errors.Is(err, notify.ErrSubscriptionNotFound):
		return http.StatusNotFound
	case errors.Is(err, notify.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, auth.ErrAlreadyExists), errors.Is(err, catalog.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Basic realm="bakery"`)
	}
	writeError(w, code, err)
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="bakery"`)
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}

func parseIntParam(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseDecimalParam(v string, def decimal.Decimal) (decimal.Decimal, error) {
	if v == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, validate.Field("price", "numeric", "")
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json: " + err.Error()})
		return false
	}
	return true
}
