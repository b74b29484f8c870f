package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/stockmaster-sync/internal/auth"
	"github.com/safar/stockmaster-sync/internal/config"
	"github.com/safar/stockmaster-sync/internal/database"
	"github.com/safar/stockmaster-sync/internal/metrics"
	"github.com/safar/stockmaster-sync/internal/models"
	"github.com/safar/stockmaster-sync/internal/syncer"
	"github.com/safar/stockmaster-sync/internal/validation"
)

type fakeSyncer struct {
	tenant string
	req    *models.SyncRequest
	err    error
}

func (f *fakeSyncer) Sync(_ context.Context, tenant string, req *models.SyncRequest) (*syncer.Result, error) {
	f.tenant = tenant
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &syncer.Result{
		Response: &models.SyncResponse{
			ServerWatermark: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Products:        req.Products,
		},
	}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type harness struct {
	server *Server
	syncer *fakeSyncer
	token  string
}

func newHarness(t *testing.T, pingErr error) *harness {
	t.Helper()
	tokens, err := auth.NewTokens("test-key", time.Hour)
	require.NoError(t, err)
	token, err := tokens.Issue("shop-1", "tablet")
	require.NoError(t, err)

	fs := &fakeSyncer{}
	srv := New(Deps{
		Pinger:  fakePinger{err: pingErr},
		Syncer:  fs,
		Tokens:  tokens,
		Metrics: metrics.New("test"),
		Server:  config.ServerConfig{BodyLimit: "2K"},
	})
	return &harness{server: srv, syncer: fs, token: token}
}

func (h *harness) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if authed {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+h.token)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const validSync = `{
	"last_sync_time": null,
	"products": [{"id": 1, "name": "Sugar 1kg", "purchase_price": 4200, "selling_price": 5000,
	              "stock": 10, "reorder_level": 5, "updated_at": "2024-03-01T09:30:00Z"}]
}`

func TestSyncSuccess(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/sync", validSync, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "shop-1", h.syncer.tenant)
	require.Len(t, h.syncer.req.Products, 1)
	assert.Nil(t, h.syncer.req.LastSyncTime)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-03-01T12:00:00Z", body["server_watermark"])
	products := body["products"].([]any)
	assert.Equal(t, 4200.0, products[0].(map[string]any)["purchase_price"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestSyncRequiresToken(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/sync", validSync, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthorized, decodeError(t, rec).Code)
	assert.Nil(t, h.syncer.req)
}

func TestSyncMalformedJSON(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/sync", `{"products": [`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, CodeInvalidPayload, body.Code)
	assert.False(t, body.Retryable)
	assert.Nil(t, h.syncer.req)
}

func TestSyncValidationReportsAllFields(t *testing.T) {
	h := newHarness(t, nil)

	payload := `{"products": [
		{"id": 1, "name": "", "purchase_price": 1, "selling_price": 1, "updated_at": "2024-03-01T09:30:00Z"},
		{"id": 2, "name": "Salt", "purchase_price": -5, "selling_price": 1}
	]}`
	rec := h.do(http.MethodPost, "/api/sync", payload, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, CodeValidationFailed, body.Code)
	assert.False(t, body.Retryable)

	var fields []string
	for _, f := range body.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"products[0].name", "products[1].purchase_price", "products[1].updated_at"}, fields)
	assert.Nil(t, h.syncer.req, "nothing reaches the core")
}

func TestSyncStorageFailureIsRetryable(t *testing.T) {
	h := newHarness(t, nil)
	h.syncer.err = fmt.Errorf("merge products 1: %w", &pq.Error{Code: "08006"})

	rec := h.do(http.MethodPost, "/api/sync", validSync, true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, CodeSyncFailed, body.Code)
	assert.True(t, body.Retryable)
	assert.NotContains(t, body.Error, "08006")
}

func TestSyncRejectedRecordIsNotRetryable(t *testing.T) {
	h := newHarness(t, nil)
	h.syncer.err = fmt.Errorf("sync: %w", &syncer.RecordError{
		Kind:  "products",
		Index: 0,
		ID:    1,
		Err:   &pq.Error{Code: "22003", Message: "integer out of range"},
	})

	rec := h.do(http.MethodPost, "/api/sync", validSync, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, CodeValidationFailed, body.Code)
	assert.False(t, body.Retryable)
	assert.Equal(t, []validation.FieldError{{Field: "products[0]", Message: "integer out of range"}}, body.Fields)
}

func TestSyncBodyLimit(t *testing.T) {
	h := newHarness(t, nil)

	big := `{"products": [], "pad": "` + strings.Repeat("x", 4096) + `"}`
	rec := h.do(http.MethodPost, "/api/sync", big, true)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, CodeInvalidPayload, decodeError(t, rec).Code)
}

func TestHealth(t *testing.T) {
	rec := newHarness(t, nil).do(http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = newHarness(t, errors.New("down")).do(http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	h.do(http.MethodGet, "/health", "", false)

	rec := h.do(http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_http_requests_total{method="GET",path="/health",status="200"} 1`)
}

func TestMetricsCountHandlerStatus(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodPost, "/api/sync", `{"products":[{"id":1}]}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = h.do(http.MethodPost, "/api/sync", validSync, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/metrics", "", false)
	out := rec.Body.String()
	assert.Contains(t, out, `test_http_requests_total{method="POST",path="/api/sync",status="422"} 1`)
	assert.Contains(t, out, `test_http_requests_total{method="POST",path="/api/sync",status="401"} 1`)
	assert.NotContains(t, out, `status="500"`)
}

func TestToResponse(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"not found", fmt.Errorf("get: %w", database.ErrNotFound), http.StatusNotFound, CodeNotFound, false},
		{"validation", &validation.Error{Fields: []validation.FieldError{{Field: "x", Message: "is required"}}}, http.StatusUnprocessableEntity, CodeValidationFailed, false},
		{"invalid tenant", syncFailed(syncer.ErrInvalidTenant), http.StatusUnauthorized, CodeUnauthorized, false},
		{"sync failure", syncFailed(errors.New("boom")), http.StatusInternalServerError, CodeSyncFailed, true},
		{"echo 404", echo.ErrNotFound, http.StatusNotFound, CodeNotFound, false},
		{"echo 405", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, CodeInvalidPayload, false},
		{"serialization", &pq.Error{Code: "40001"}, http.StatusInternalServerError, CodeInternal, true},
		{"numeric out of range", syncFailed(&pq.Error{Code: "22003"}), http.StatusUnprocessableEntity, CodeValidationFailed, false},
		{"nul byte in text", syncFailed(&pq.Error{Code: "22021"}), http.StatusUnprocessableEntity, CodeValidationFailed, false},
		{"string too long", syncFailed(&pq.Error{Code: "22001"}), http.StatusUnprocessableEntity, CodeValidationFailed, false},
		{"check violation", syncFailed(fmt.Errorf("merge: %w", &pq.Error{Code: "23514"})), http.StatusUnprocessableEntity, CodeValidationFailed, false},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := toResponse(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.retryable, body.Retryable)
		})
	}
}
