// Package httpapi is the thin HTTP adapter over the public request
// surface: plain net/http with path-based routing, no router framework.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kyungseok/orderflow-saga/internal/common/apperr"
	"github.com/kyungseok/orderflow-saga/internal/domain/events"
	"github.com/kyungseok/orderflow-saga/internal/domain/inventory"
	"github.com/kyungseok/orderflow-saga/internal/domain/order"
	"github.com/kyungseok/orderflow-saga/internal/eventstore"
)

// Handler serves the saga's HTTP surface.
type Handler struct {
	catalog *inventory.CatalogService
	orders  *order.Service
	events  eventstore.Store
	logger  *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(catalog *inventory.CatalogService, orders *order.Service, events eventstore.Store, logger *zap.Logger) *Handler {
	return &Handler{catalog: catalog, orders: orders, events: events, logger: logger}
}

// Routes registers every endpoint on a fresh ServeMux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthCheck)
	mux.HandleFunc("/products", h.products)
	mux.HandleFunc("/products/", h.productByID)
	mux.HandleFunc("/orders", h.ordersCollection)
	mux.HandleFunc("/orders/", h.orderByID)
	mux.HandleFunc("/events", h.listEvents)
	mux.HandleFunc("/events/", h.eventByID)
	return mux
}

func (h *Handler) healthCheck(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// --- products ---

type createProductRequest struct {
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	StockQuantity int    `json:"stockQuantity"`
}

func (h *Handler) products(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, &apperr.ValidationError{Message: "method not allowed"})
		return
	}

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.NewValidation("body", "invalid JSON"))
		return
	}

	p, err := h.catalog.CreateProduct(r.Context(), req.SKU, req.Name, req.StockQuantity)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, p)
}

// productByID handles /products/{sku} (GET) and /products/{sku}/stock (PUT).
func (h *Handler) productByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/products/")
	sku, sub, hasSub := strings.Cut(rest, "/")

	switch {
	case hasSub && sub == "stock" && r.Method == http.MethodPut:
		h.adjustProductStock(w, r, sku)
	case !hasSub && r.Method == http.MethodGet:
		h.getProduct(w, r, sku)
	default:
		h.respondError(w, apperr.NewNotFound("route", r.URL.Path))
	}
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request, sku string) {
	p, err := h.catalog.GetProduct(r.Context(), sku)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, p)
}

type adjustStockRequest struct {
	NewQuantity int `json:"newQuantity"`
}

func (h *Handler) adjustProductStock(w http.ResponseWriter, r *http.Request, sku string) {
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.NewValidation("body", "invalid JSON"))
		return
	}
	p, err := h.catalog.AdjustProductStock(r.Context(), sku, req.NewQuantity)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, p)
}

// --- orders ---

type placeOrderItemRequest struct {
	SKU           string `json:"sku"`
	Quantity      int    `json:"quantity"`
	UnitAmount    int64  `json:"unitAmount"`
	UnitCurrency  string `json:"unitCurrency"`
}

type addressRequest struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type placeOrderRequest struct {
	CustomerID      string                  `json:"customerId"`
	Items           []placeOrderItemRequest `json:"items"`
	ShippingAddress addressRequest          `json:"shippingAddress"`
	IdempotencyKey  string                  `json:"idempotencyKey,omitempty"`
}

func (h *Handler) ordersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.placeOrder(w, r)
	case http.MethodGet:
		h.listOrders(w, r)
	default:
		h.respondError(w, apperr.NewNotFound("route", r.URL.Path))
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.NewValidation("body", "invalid JSON"))
		return
	}

	addr, err := order.NewAddress(req.ShippingAddress.Street, req.ShippingAddress.City,
		req.ShippingAddress.State, req.ShippingAddress.PostalCode, req.ShippingAddress.Country)
	if err != nil {
		h.respondError(w, err)
		return
	}

	items := make([]order.Item, 0, len(req.Items))
	for _, it := range req.Items {
		unitPrice, err := moneyFromRequest(it.UnitAmount, it.UnitCurrency)
		if err != nil {
			h.respondError(w, apperr.NewValidation("items", err.Error()))
			return
		}
		item, err := order.NewItem(it.SKU, it.Quantity, unitPrice)
		if err != nil {
			h.respondError(w, err)
			return
		}
		items = append(items, item)
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderCommand{
		CustomerID:      req.CustomerID,
		Items:           items,
		ShippingAddress: addr,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := order.ListFilter{
		CustomerID: q.Get("customerId"),
		Status:     order.Status(q.Get("status")),
	}
	orders, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, orders)
}

// orderByID handles /orders/{id} (GET) and /orders/{id}/cancel (POST).
func (h *Handler) orderByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/orders/")
	id, sub, hasSub := strings.Cut(rest, "/")

	switch {
	case hasSub && sub == "cancel" && r.Method == http.MethodPost:
		h.cancelOrder(w, r, id)
	case !hasSub && r.Method == http.MethodGet:
		h.getOrder(w, r, id)
	default:
		h.respondError(w, apperr.NewNotFound("route", r.URL.Path))
	}
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, id string) {
	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, o)
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request, id string) {
	var req cancelOrderRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // a missing/empty body just means no reason

	o, err := h.orders.CancelOrder(r.Context(), id, req.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, o)
}

// --- events ---

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orderID := q.Get("orderId")
	eventType := q.Get("eventType")

	var (
		out []events.Envelope
		err error
	)
	switch {
	case orderID != "":
		out, err = h.events.FindByAggregateID(r.Context(), orderID)
	case eventType != "":
		out, err = h.events.FindByEventType(r.Context(), events.Type(eventType))
	default:
		out, err = h.events.FindAll(r.Context())
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *Handler) eventByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/events/")
	evt, err := h.events.FindByID(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, evt)
}

// --- response helpers ---

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status == apperr.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	h.respondJSON(w, status, errorResponse{Error: err.Error()})
}
