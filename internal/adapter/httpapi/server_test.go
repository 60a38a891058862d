package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinplan/coinplan-backend/internal/adapter/ratesource"
	"github.com/coinplan/coinplan-backend/internal/adapter/repository/memory"
	"github.com/coinplan/coinplan-backend/internal/domain"
	"github.com/coinplan/coinplan-backend/internal/usecase/contribution"
	"github.com/coinplan/coinplan-backend/internal/usecase/execution"
	"github.com/coinplan/coinplan-backend/internal/usecase/progress"
	"github.com/coinplan/coinplan-backend/internal/usecase/snapshotter"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	rates := ratesource.NewStatic()

	executionService := execution.NewService(store.Records(), store.Plans(), store, 0, nil)
	progressCalculator := progress.NewCalculator(store, store.Assets(), store.Goals(), rates, nil)
	contributionService := contribution.NewService(store.Assets(), store.Goals(), store, store.Contributions())
	snapshotterService := snapshotter.NewService(store.Assets(), store)

	return NewServer(":0", executionService, progressCalculator, contributionService, snapshotterService, nil), store
}

func seedPlan(t *testing.T, store *memory.Store, month string, goalID uuid.UUID) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), &domain.MonthlyPlan{
		ID:         uuid.New(),
		MonthLabel: month,
		Entries: []domain.PlanEntry{
			{GoalID: goalID, RequiredMonthly: decimal.NewFromInt(500)},
		},
	}))
}

func doRequest(t *testing.T, server *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_StartTracking(t *testing.T) {
	server, store := newTestServer(t)
	seedPlan(t, store, "2025-03", uuid.New())

	rec := doRequest(t, server, http.MethodPost, "/api/executions/2025-03/start", nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp recordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "EXECUTING", resp.Status)
	assert.Equal(t, "500", resp.TotalPlanned)
	assert.NotNil(t, resp.StartedAt)
}

func TestServer_StartTracking_Conflict(t *testing.T) {
	server, store := newTestServer(t)
	seedPlan(t, store, "2025-03", uuid.New())

	first := doRequest(t, server, http.MethodPost, "/api/executions/2025-03/start", nil)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doRequest(t, server, http.MethodPost, "/api/executions/2025-03/start", nil)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestServer_GetRecord_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/executions/2025-03", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CompleteAndUndoLifecycle(t *testing.T) {
	server, store := newTestServer(t)
	seedPlan(t, store, "2025-03", uuid.New())

	require.Equal(t, http.StatusCreated,
		doRequest(t, server, http.MethodPost, "/api/executions/2025-03/start", nil).Code)
	require.Equal(t, http.StatusOK,
		doRequest(t, server, http.MethodPost, "/api/executions/2025-03/complete", nil).Code)

	// The record is closed now, so undoing the start is an invalid
	// transition.
	assert.Equal(t, http.StatusUnprocessableEntity,
		doRequest(t, server, http.MethodPost, "/api/executions/2025-03/undo-start", nil).Code)

	undone := doRequest(t, server, http.MethodPost, "/api/executions/2025-03/undo-complete", nil)
	require.Equal(t, http.StatusOK, undone.Code)
	var resp recordResponse
	require.NoError(t, json.Unmarshal(undone.Body.Bytes(), &resp))
	assert.Equal(t, "EXECUTING", resp.Status)
	assert.Nil(t, resp.CanUndoUntil)
}

func TestServer_Progress(t *testing.T) {
	server, store := newTestServer(t)
	ctx := context.Background()
	goalID := uuid.New()
	seedPlan(t, store, "2025-03", goalID)
	require.NoError(t, store.Goals().Create(ctx, &domain.Goal{
		ID: goalID, Name: "House", CurrencyCode: "EUR", TargetAmount: decimal.NewFromInt(10000),
	}))

	start := doRequest(t, server, http.MethodPost, "/api/executions/2025-03/start", nil)
	require.Equal(t, http.StatusCreated, start.Code)

	rec := doRequest(t, server, http.MethodGet, "/api/executions/2025-03/progress", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp progressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "0", resp.Total)
	assert.Equal(t, "0.00", resp.ProgressPercent)
	assert.False(t, resp.RateUncertain)
}

func TestServer_Progress_BadTimestamp(t *testing.T) {
	server, store := newTestServer(t)
	seedPlan(t, store, "2025-03", uuid.New())
	require.Equal(t, http.StatusCreated,
		doRequest(t, server, http.MethodPost, "/api/executions/2025-03/start", nil).Code)

	rec := doRequest(t, server, http.MethodGet, "/api/executions/2025-03/progress?at=yesterday", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RecordContribution(t *testing.T) {
	server, store := newTestServer(t)
	ctx := context.Background()

	asset := &domain.Asset{ID: uuid.New(), Name: "wallet", CurrencyCode: "BTC"}
	require.NoError(t, store.Create(ctx, asset))
	goal := &domain.Goal{ID: uuid.New(), Name: "House", CurrencyCode: "EUR", TargetAmount: decimal.NewFromInt(10000)}
	require.NoError(t, store.Goals().Create(ctx, goal))

	body, err := json.Marshal(recordContributionRequest{
		GoalID:  goal.ID.String(),
		AssetID: asset.ID.String(),
		Kind:    "DEPOSIT",
		Amount:  "0.25",
	})
	require.NoError(t, err)

	rec := doRequest(t, server, http.MethodPost, "/api/contributions", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	txs, err := store.TransactionsFor(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromFloat(0.25)))
}

func TestServer_RecordContribution_BadBody(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/contributions", []byte(`{"goalId": 12}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SyncAllocations(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/allocations/sync", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Health(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
