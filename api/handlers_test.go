/*
handlers_test.go - HTTP API tests

PURPOSE:
  End-to-end tests through the chi router with the in-memory remote
  store. Focus is on the HTTP contract: status codes for the engine's
  error taxonomy, JSON shapes, and warnings riding on responses.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/api"
	"github.com/warp/budget-engine/budget"
	remotestore "github.com/warp/budget-engine/budget/store"
	"github.com/warp/budget-engine/money"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testEnv struct {
	handler *api.Handler
	router  http.Handler
	remote  *remotestore.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := budget.NewStore(money.New(1_000_000, "GBP"))
	remote := remotestore.NewMemory()
	log := zerolog.New(os.Stderr).Level(zerolog.Disabled)

	h := api.NewHandler(store, remote, remote, log)
	return &testEnv{
		handler: h,
		router:  api.NewRouter(h, []string{"*"}),
		remote:  remote,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) api.SnapshotDTO {
	t.Helper()

	var snap api.SnapshotDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func (e *testEnv) addCategory(t *testing.T, name string, allocation int64) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/categories", api.CreateCategoryRequest{
		Name:              name,
		InitialAllocation: allocation,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	snap := decodeSnapshot(t, rec)
	for _, c := range snap.Categories {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("category %s missing from response", name)
	return ""
}

// =============================================================================
// BUDGET
// =============================================================================

func TestGetBudget(t *testing.T) {
	env := newTestEnv(t)
	env.addCategory(t, "Venue", 400_000)

	rec := env.do(t, http.MethodGet, "/api/budget", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decodeSnapshot(t, rec)
	assert.Equal(t, int64(1_000_000), snap.TotalBudget)
	assert.Equal(t, "GBP", snap.Currency)
	assert.Equal(t, int64(600_000), snap.Unallocated)
	require.Len(t, snap.Categories, 1)
	assert.Equal(t, "0.4000", snap.Categories[0].PercentageOfTotal)
}

func TestReviseBudget_WithRebalance(t *testing.T) {
	env := newTestEnv(t)
	env.addCategory(t, "Venue", 400_000)
	env.addCategory(t, "Catering", 600_000)

	rec := env.do(t, http.MethodPut, "/api/budget", api.ReviseBudgetRequest{
		Total: 1_200_000, Rebalance: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decodeSnapshot(t, rec)
	assert.Equal(t, int64(1_200_000), snap.TotalBudget)
	assert.Equal(t, int64(1_200_000), snap.TotalAllocated)
	assert.Equal(t, int64(480_000), snap.Categories[0].Allocated)
	assert.Equal(t, int64(720_000), snap.Categories[1].Allocated)
}

func TestReviseBudget_RebalanceFailureIs400(t *testing.T) {
	env := newTestEnv(t)
	id := env.addCategory(t, "Venue", 400_000)
	rec := env.do(t, http.MethodPost, "/api/expenses", api.CreateExpenseRequest{
		CategoryID: id, VendorName: "Hillside Manor", Amount: 900_000, IncurredAt: "2026-05-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/budget", api.ReviseBudgetRequest{
		Total: 500_000, Rebalance: true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The old total still stands.
	snap := decodeSnapshot(t, env.do(t, http.MethodGet, "/api/budget", nil))
	assert.Equal(t, int64(1_000_000), snap.TotalBudget)
}

func TestApplyTemplate_SeedsCategories(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/budget/from-template", api.FromTemplateRequest{
		TemplateID: "classic",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decodeSnapshot(t, rec)
	assert.Len(t, snap.Categories, 8)
	assert.Equal(t, int64(1_000_000), snap.TotalAllocated)
	assert.Equal(t, int64(0), snap.Unallocated)
}

func TestApplyTemplate_UnknownIs404(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/budget/from-template", api.FromTemplateRequest{
		TemplateID: "baroque",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// CATEGORIES
// =============================================================================

func TestSetAllocation_UnknownCategoryIs404(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPut, "/api/categories/ghost/allocation", api.SetAllocationRequest{Amount: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGesture_CommitsBoundedDelta(t *testing.T) {
	env := newTestEnv(t)
	id := env.addCategory(t, "Venue", 400_000)

	// A 500-step slider over a £10,000 budget moves 2,000 units per step;
	// +50 steps raises the allocation by £1,000.
	rec := env.do(t, http.MethodPost, "/api/categories/"+id+"/gesture", api.GestureRequest{
		BaselineAllocation: 400_000,
		Offset:             50,
		FullRangeSteps:     500,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decodeSnapshot(t, rec)
	assert.Equal(t, int64(500_000), snap.Categories[0].Allocated)
}

func TestDeleteCategory_WithActivityIs409(t *testing.T) {
	env := newTestEnv(t)
	id := env.addCategory(t, "Venue", 400_000)
	rec := env.do(t, http.MethodPost, "/api/expenses", api.CreateExpenseRequest{
		CategoryID: id, VendorName: "Hillside Manor", Amount: 10_000, IncurredAt: "2026-05-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/categories/"+id, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Archiving is the sanctioned path.
	rec = env.do(t, http.MethodPost, "/api/categories/"+id+"/archive", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	snap := decodeSnapshot(t, rec)
	assert.False(t, snap.Categories[0].Active)
}

func TestReorder_InvalidIs400(t *testing.T) {
	env := newTestEnv(t)
	env.addCategory(t, "Venue", 400_000)
	env.addCategory(t, "Catering", 250_000)

	rec := env.do(t, http.MethodPost, "/api/categories/reorder", api.ReorderRequest{
		IDs: []string{"only-one"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// EXPENSES
// =============================================================================

func TestCreateExpense_OverspendWarningRidesOnResponse(t *testing.T) {
	env := newTestEnv(t)
	id := env.addCategory(t, "Flowers", 100_000)

	rec := env.do(t, http.MethodPost, "/api/expenses", api.CreateExpenseRequest{
		CategoryID: id, VendorName: "Bloom & Stem", Amount: 120_000, IncurredAt: "2026-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp api.ExpenseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// The spend landed and the warning rides alongside, not as an error.
	assert.Equal(t, int64(120_000), resp.Expense.Amount)
	require.NotNil(t, resp.Triggered)
	assert.Equal(t, "over_budget", resp.Triggered.Code)
	assert.Equal(t, int64(20_000), resp.Triggered.Excess)

	// And the record is queryable from the log.
	rec = env.do(t, http.MethodGet, "/api/expenses?category_id="+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []api.ExpenseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Bloom & Stem", list[0].VendorName)
}

func TestCreateExpense_BadDateIs400(t *testing.T) {
	env := newTestEnv(t)
	id := env.addCategory(t, "Flowers", 100_000)

	rec := env.do(t, http.MethodPost, "/api/expenses", api.CreateExpenseRequest{
		CategoryID: id, VendorName: "Bloom & Stem", Amount: 100, IncurredAt: "June 1st",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// RECOMMENDATIONS
// =============================================================================

func TestApplyRecommendation_SecondApplyIs409(t *testing.T) {
	env := newTestEnv(t)
	id := env.addCategory(t, "Flowers", 100_000)

	body := api.RecommendationDTO{
		ID:                "rec-1",
		Type:              "vendor-alternative",
		PotentialSavings:  30_000,
		TargetCategoryIDs: []string{id},
		Confidence:        88,
	}

	rec := env.do(t, http.MethodPost, "/api/recommendations/apply", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.ApplyRecommendationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(30_000), resp.RealizedSavings)
	assert.Equal(t, []string{id}, resp.AffectedCategories)
	assert.Equal(t, int64(70_000), resp.Snapshot.Categories[0].Allocated)

	rec = env.do(t, http.MethodPost, "/api/recommendations/apply", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestScoreRecommendations(t *testing.T) {
	env := newTestEnv(t)
	env.addCategory(t, "Venue", 400_000)

	rec := env.do(t, http.MethodPost, "/api/recommendations/score", api.ScoreRequest{
		Recommendations: []api.RecommendationDTO{
			{ID: "p1", Confidence: 90},
			{ID: "p2", Confidence: 10},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 95, resp.Score)
}

// =============================================================================
// WARNINGS
// =============================================================================

func TestGetWarnings(t *testing.T) {
	env := newTestEnv(t)
	env.addCategory(t, "Venue", 1_500_000)

	rec := env.do(t, http.MethodGet, "/api/warnings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var warnings []api.WarningDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &warnings))
	require.Len(t, warnings, 1)
	assert.Equal(t, "over_allocated", warnings[0].Code)
	assert.Equal(t, int64(500_000), warnings[0].Excess)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_ListAndLoad(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []api.ScenarioDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 3)

	// Loading a scenario swaps the store and notifies the rebind hook.
	var rebound *budget.AllocationStore
	env.handler.OnStoreReplaced = func(s *budget.AllocationStore) { rebound = s }

	rec = env.do(t, http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{
		ScenarioID: "over-committed",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decodeSnapshot(t, rec)
	assert.Equal(t, int64(1_000_000), snap.TotalBudget)
	require.Len(t, snap.Categories, 3)
	assert.NotEmpty(t, snap.Warnings, "over-committed scenario carries warnings")
	require.NotNil(t, rebound)
	assert.Same(t, env.handler.Store(), rebound)
}

func TestScenarios_UnknownIs404(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{
		ScenarioID: "elopement",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
