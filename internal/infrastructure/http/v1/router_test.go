package v1_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core/lock"
	"ledgerbook/internal/core/types"
	"ledgerbook/internal/domain/catalogs/item"
	"ledgerbook/internal/domain/documents/commercial"
	"ledgerbook/internal/domain/registers/settlement"
	"ledgerbook/internal/domain/registers/stock"
	v1 "ledgerbook/internal/infrastructure/http/v1"
	"ledgerbook/internal/infrastructure/http/v1/dto"
	"ledgerbook/internal/infrastructure/http/v1/handlers"
	"ledgerbook/internal/infrastructure/http/v1/middleware"
	"ledgerbook/internal/infrastructure/storage/memstore"
)

const api = "/api/v1/businesses/shop-1"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store := memstore.New()
	ledger := settlement.NewLedger(store.Transactions())
	docs := commercial.NewService(
		store.Documents(),
		ledger,
		stock.NewReconciler(store.Items()),
		store.Intents(),
		lock.NewKeyedMutex(),
		store.Sequences(),
	)
	return v1.NewRouter(v1.RouterConfig{
		Documents:          docs,
		Ledger:             ledger,
		Items:              item.NewService(store.Items()),
		Intents:            store.Intents(),
		Idempotency:        store.Idempotency(),
		IdempotencyEnabled: true,
		Version:            "test",
		Storage:            "memory",
		HealthChecks:       map[string]handlers.Pinger{"store": store},
	})
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createItem(t *testing.T, r http.Handler, name string, stockQty int) dto.ItemResponse {
	t.Helper()
	w := do(t, r, http.MethodPost, api+"/items", map[string]any{
		"name":         name,
		"openingStock": stockQty,
		"minStock":     2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.ItemResponse](t, w)
}

func saleBody(itemID string, qty int, settle string) map[string]any {
	body := map[string]any{
		"kind": "sale",
		"date": "2026-05-04T00:00:00Z",
		"lineItems": []map[string]any{{
			"itemId":     itemID,
			"quantity":   qty,
			"rate":       "50",
			"taxPercent": "10",
		}},
	}
	if settle != "" {
		body["settlement"] = map[string]any{"amount": settle, "mode": "cash"}
	}
	return body
}

func requireMoney(t *testing.T, want string, got types.Money) {
	t.Helper()
	require.Truef(t, types.MustMoney(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store":"healthy"`)

	w = do(t, r, http.MethodGet, "/health/info", nil)
	assert.Contains(t, w.Body.String(), `"storage":"memory"`)
}

func TestDocumentLifecycle(t *testing.T) {
	r := newTestRouter(t)
	widget := createItem(t, r, "Widget", 10)

	w := do(t, r, http.MethodPost, api+"/documents", saleBody(widget.ID.String(), 2, "50"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[commercial.Result](t, w)

	doc := created.Document
	requireMoney(t, "110", doc.TotalAmount)
	requireMoney(t, "60", doc.BalanceAmount)
	assert.Equal(t, commercial.StatusPartial, doc.Status)
	require.NotNil(t, created.Operation)
	assert.Equal(t, commercial.IntentCompleted, created.Operation.Status)

	w = do(t, r, http.MethodGet, api+"/items/"+widget.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.NewQuantityFromInt(8), decode[dto.ItemResponse](t, w).StockQuantity)

	// pay the rest
	docPath := api + "/documents/" + doc.ID.String()
	w = do(t, r, http.MethodPost, docPath+"/payments", map[string]any{"amount": "60", "mode": "bank"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	paid := decode[commercial.Result](t, w)
	assert.Equal(t, commercial.StatusPaid, paid.Document.Status)
	require.NotNil(t, paid.Transaction)

	w = do(t, r, http.MethodGet, api+"/balances", nil)
	require.Equal(t, http.StatusOK, w.Code)
	balances := decode[dto.BalancesResponse](t, w)
	requireMoney(t, "110", balances.Total)
	require.Len(t, balances.Modes, 2)

	w = do(t, r, http.MethodGet, api+"/balances/bank", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mode":"BANK"`)

	// undo the payment
	w = do(t, r, http.MethodDelete, docPath+"/payments/"+paid.Transaction.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, commercial.StatusPartial, decode[commercial.Result](t, w).Document.Status)

	w = do(t, r, http.MethodGet, docPath+"/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Items []settlement.Transaction `json:"items"`
	}](t, w).Items, 1)

	// the step log is readable by its business only
	opPath := "/operations/" + created.Operation.ID.String()
	w = do(t, r, http.MethodGet, api+opPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodGet, "/api/v1/businesses/other"+opPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodDelete, docPath, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, api+"/items/"+widget.ID.String(), nil)
	assert.Equal(t, types.NewQuantityFromInt(10), decode[dto.ItemResponse](t, w).StockQuantity)

	w = do(t, r, http.MethodGet, docPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreviewWritesNothing(t *testing.T) {
	r := newTestRouter(t)
	widget := createItem(t, r, "Widget", 10)

	w := do(t, r, http.MethodPost, api+"/documents/preview", saleBody(widget.ID.String(), 3, "200"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := decode[commercial.Preview](t, w)
	requireMoney(t, "165", preview.Totals.TotalAmount)
	assert.Equal(t, commercial.StatusPaid, preview.Status)

	w = do(t, r, http.MethodGet, api+"/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalCount":0`)
}

func TestListDocumentsFilters(t *testing.T) {
	r := newTestRouter(t)
	widget := createItem(t, r, "Widget", 10)

	for _, settle := range []string{"", "55", "110"} {
		w := do(t, r, http.MethodPost, api+"/documents", saleBody(widget.ID.String(), 2, settle))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := do(t, r, http.MethodGet, api+"/documents?status=paid", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"totalCount":1`)

	w = do(t, r, http.MethodGet, api+"/documents?kind=purchase", nil)
	assert.Contains(t, w.Body.String(), `"totalCount":0`)

	w = do(t, r, http.MethodGet, api+"/documents?status=overdue", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, api+"/documents?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidationErrors(t *testing.T) {
	r := newTestRouter(t)

	body := saleBody("not-a-uuid", 1, "")
	w := do(t, r, http.MethodPost, api+"/documents", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	errBody := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, "VALIDATION_ERROR", errBody.Code)
	assert.Equal(t, "lineItems.itemId", errBody.Details["field"])

	body = saleBody("", 1, "")
	body["kind"] = "quote"
	w = do(t, r, http.MethodPost, api+"/documents", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, api+"/documents/123", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGeneralLedgerTransactions(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, api+"/transactions", map[string]any{
		"type":   "receipt",
		"amount": "500",
		"mode":   "cash",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	txn := decode[settlement.Transaction](t, w)
	assert.Equal(t, settlement.Receipt, txn.Type)
	assert.Nil(t, txn.DocumentID)

	w = do(t, r, http.MethodGet, api+"/transactions?unlinked=true&type=receipt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalCount":1`)

	w = do(t, r, http.MethodDelete, api+"/transactions/"+txn.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, api+"/balances/cash", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":"0"`)
}

func TestItemLowStock(t *testing.T) {
	r := newTestRouter(t)
	createItem(t, r, "Widget", 10)
	low := createItem(t, r, "Gadget", 1)
	assert.True(t, low.LowStock)

	w := do(t, r, http.MethodGet, api+"/items?lowStock=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalCount":1`)
	assert.Contains(t, w.Body.String(), "Gadget")

	w = do(t, r, http.MethodPut, api+"/items/"+low.ID.String(), map[string]any{
		"minStock": 0,
		"version":  low.Version,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, decode[dto.ItemResponse](t, w).LowStock)
}

func TestIdempotentReplay(t *testing.T) {
	r := newTestRouter(t)
	body := map[string]any{"name": "Widget", "openingStock": 5}

	first := do(t, r, http.MethodPost, api+"/items", body, middleware.HeaderIdempotencyKey, "key-1")
	require.Equal(t, http.StatusCreated, first.Code)

	second := do(t, r, http.MethodPost, api+"/items", body, middleware.HeaderIdempotencyKey, "key-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	body["name"] = "Gadget"
	third := do(t, r, http.MethodPost, api+"/items", body, middleware.HeaderIdempotencyKey, "key-1")
	assert.Equal(t, http.StatusConflict, third.Code, third.Body.String())

	w := do(t, r, http.MethodGet, api+"/items", nil)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`"totalCount":%d`, 1))
}

func TestRequestIDEcho(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/health/live", nil, middleware.HeaderRequestID, "req-42")
	assert.Equal(t, "req-42", w.Header().Get(middleware.HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderTraceID))
}

func TestIdempotencyKeyScopedPerBusiness(t *testing.T) {
	r := newTestRouter(t)
	other := "/api/v1/businesses/shop-2"

	first := do(t, r, http.MethodPost, api+"/items", map[string]any{"name": "Widget", "openingStock": 1}, middleware.HeaderIdempotencyKey, "shared-key")
	require.Equal(t, http.StatusCreated, first.Code)

	second := do(t, r, http.MethodPost, other+"/items", map[string]any{"name": "Gadget", "openingStock": 1}, middleware.HeaderIdempotencyKey, "shared-key")
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.Empty(t, second.Header().Get("Idempotent-Replay"))

	w := do(t, r, http.MethodGet, other+"/items", nil)
	assert.Contains(t, w.Body.String(), "Gadget")
	assert.NotContains(t, w.Body.String(), "Widget")
}
