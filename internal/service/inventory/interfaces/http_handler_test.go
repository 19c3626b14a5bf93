package interfaces

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/wangyingjie930/fulfillment/internal/pkg/web"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/application"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/infrastructure"
)

func newInventoryHTTP(t *testing.T) (http.Handler, *infrastructure.MemoryStockStore) {
	t.Helper()
	store := infrastructure.NewMemoryStockStore()
	store.SeedProduct(domain.InventoryItem{ID: "p1", Name: "Pen", Price: 2, AvailableQty: 5})
	e := web.NewEcho(noop.NewTracerProvider().Tracer("test"), prometheus.NewRegistry())
	NewInventoryHandler(application.NewCatalogService(store)).RegisterRoutes(e)
	return e, store
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestProductEndpoints(t *testing.T) {
	h, _ := newInventoryHTTP(t)

	rec, body := do(t, h, http.MethodGet, "/products/p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pen", body["name"])
	assert.EqualValues(t, 5, body["availableQty"])

	rec, body = do(t, h, http.MethodGet, "/products/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["kind"])

	rec, body = do(t, h, http.MethodPut, "/products/p1/quantity", `{"quantity": 12}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 12, body["availableQty"])

	rec, _ = do(t, h, http.MethodPut, "/products/p1/quantity", `{"quantity": -1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPut, "/products/p1/quantity", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, h, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["products"], 1)
}

func TestCartEndpoints(t *testing.T) {
	h, _ := newInventoryHTTP(t)

	rec, body := do(t, h, http.MethodPut, "/carts/u1/items", `{"productId": "p1", "qty": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["totalItems"])
	assert.EqualValues(t, 6, body["totalPrice"])

	rec, _ = do(t, h, http.MethodPut, "/carts/u1/items", `{"productId": "p1", "qty": 99}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/carts/u1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, body = do(t, h, http.MethodGet, "/carts/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["totalItems"])
	assert.Empty(t, body["items"])
}

func TestHealthz(t *testing.T) {
	h, _ := newInventoryHTTP(t)
	rec, _ := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
