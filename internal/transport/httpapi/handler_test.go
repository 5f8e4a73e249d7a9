package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/orderflow-saga/internal/common/logger"
	"github.com/kyungseok/orderflow-saga/internal/domain/events"
	"github.com/kyungseok/orderflow-saga/internal/domain/inventory"
	"github.com/kyungseok/orderflow-saga/internal/domain/order"
	"github.com/kyungseok/orderflow-saga/internal/eventbus"
	"github.com/kyungseok/orderflow-saga/internal/eventstore"
	"github.com/kyungseok/orderflow-saga/internal/idempotency"
	"github.com/kyungseok/orderflow-saga/internal/locking"
	"github.com/kyungseok/orderflow-saga/internal/transport/httpapi"
)

func newTestHandler(t *testing.T) *httpapi.Handler {
	t.Helper()
	log := logger.NewTest()
	bus := eventbus.New(log)
	store := eventstore.NewMemoryStore()
	bus.Subscribe(events.OrderPlaced, func(ctx context.Context, e events.Event) error {
		return store.Save(ctx, e.Envelope())
	})
	catalog := inventory.NewCatalogService(inventory.NewMemoryProductRepository(), locking.NewSKULocks())
	orders := order.NewService(order.NewMemoryRepository(), bus, idempotency.NewMemoryStore(), log)
	return httpapi.NewHandler(catalog, orders, store, log)
}

func doJSON(t *testing.T, mux http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h.Routes(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndGetProduct(t *testing.T) {
	h := newTestHandler(t)
	mux := h.Routes()

	rec := doJSON(t, mux, http.MethodPost, "/products", map[string]interface{}{
		"sku": "widget", "name": "Widget", "stockQuantity": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/products/WIDGET", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "WIDGET", body["SKU"])
}

func TestAdjustStockUpdatesUnreservedProduct(t *testing.T) {
	h := newTestHandler(t)
	mux := h.Routes()

	doJSON(t, mux, http.MethodPost, "/products", map[string]interface{}{
		"sku": "WIDGET", "name": "Widget", "stockQuantity": 10,
	})

	rec := doJSON(t, mux, http.MethodPut, "/products/WIDGET/stock", map[string]interface{}{
		"newQuantity": 5,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetUnknownProductReturns404(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h.Routes(), http.MethodGet, "/products/MISSING", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceOrderThenGetAndCancel(t *testing.T) {
	h := newTestHandler(t)
	mux := h.Routes()

	placeBody := map[string]interface{}{
		"customerId": "cust-1",
		"items": []map[string]interface{}{
			{"sku": "WIDGET", "quantity": 2, "unitAmount": 1999, "unitCurrency": "USD"},
		},
		"shippingAddress": map[string]interface{}{
			"street": "1 Main St", "city": "Springfield", "state": "IL",
			"postalCode": "62704", "country": "US",
		},
	}
	rec := doJSON(t, mux, http.MethodPost, "/orders", placeBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	orderID := created["ID"].(string)
	require.NotEmpty(t, orderID)

	rec = doJSON(t, mux, http.MethodGet, "/orders/"+orderID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/orders/"+orderID+"/cancel", map[string]interface{}{
		"reason": "changed my mind",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlaceOrderRejectsInvalidBody(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h.Routes(), http.MethodPost, "/orders", map[string]interface{}{
		"customerId": "cust-1",
		"items":      []map[string]interface{}{},
		"shippingAddress": map[string]interface{}{
			"street": "1 Main St", "city": "Springfield", "state": "IL",
			"postalCode": "62704", "country": "US",
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty items must be a validation error")
}

func TestListEventsAfterPlacingOrder(t *testing.T) {
	h := newTestHandler(t)
	mux := h.Routes()

	doJSON(t, mux, http.MethodPost, "/orders", map[string]interface{}{
		"customerId": "cust-1",
		"items": []map[string]interface{}{
			{"sku": "WIDGET", "quantity": 1, "unitAmount": 500, "unitCurrency": "USD"},
		},
		"shippingAddress": map[string]interface{}{
			"street": "1 Main St", "city": "Springfield", "state": "IL",
			"postalCode": "62704", "country": "US",
		},
	})

	rec := doJSON(t, mux, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelopes []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelopes))
	assert.NotEmpty(t, envelopes)
}
