/*
handlers.go - HTTP API handlers for the budget engine

PURPOSE:
  Exposes the allocation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.
  Every UI surface (desktop chart, mobile slider, drag view, quick-entry
  wizard) talks to these endpoints and renders the same snapshot.

ENDPOINTS:
  Budget:
    GET    /api/budget                     Current snapshot
    PUT    /api/budget                     Revise total budget (+rebalance)
    POST   /api/budget/balance             Auto-balance the free pool
    POST   /api/budget/from-template       Seed categories from a template

  Categories:
    GET    /api/categories                 List (snapshot projection)
    POST   /api/categories                 Add category
    PUT    /api/categories/{id}/allocation Direct set (typed/slider)
    POST   /api/categories/{id}/gesture    Commit a drag gesture
    POST   /api/categories/{id}/archive    Soft delete
    DELETE /api/categories/{id}            Remove (no spend history only)
    POST   /api/categories/reorder         Reorder

  Expenses:
    POST   /api/expenses                   Record a resolved expense
    GET    /api/expenses                   Expense log

  Recommendations:
    POST   /api/recommendations/apply      Apply one atomically
    POST   /api/recommendations/score      Optimization score

  Warnings:
    GET    /api/warnings                   Current badge set

ERROR HANDLING:
  Engine errors map to HTTP status via their taxonomy:
  - 400: invalid input, cannot-balance, insufficient allocation
  - 404: unknown category
  - 409: already-applied recommendation, category-has-activity
  - 500: internal errors
  Warnings are never errors: they ride on the snapshot in every response.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/factory"
	"github.com/warp/budget-engine/money"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	mu    sync.RWMutex
	store *budget.AllocationStore

	Remote     budget.RemoteStore
	ExpenseLog budget.ExpenseLog
	Templates  *factory.TemplateFactory
	Log        zerolog.Logger

	// OnStoreReplaced rewires long-lived consumers (the sync scheduler)
	// when a scenario load swaps the store.
	OnStoreReplaced func(*budget.AllocationStore)

	currentScenario string
}

// NewHandler creates a handler around the given store and collaborators.
func NewHandler(store *budget.AllocationStore, remote budget.RemoteStore, expenses budget.ExpenseLog, log zerolog.Logger) *Handler {
	return &Handler{
		store:      store,
		Remote:     remote,
		ExpenseLog: expenses,
		Templates:  factory.NewTemplateFactory(),
		Log:        log,
	}
}

// Store returns the current allocation store.
func (h *Handler) Store() *budget.AllocationStore {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store
}

func (h *Handler) replaceStore(s *budget.AllocationStore) {
	h.mu.Lock()
	h.store = s
	cb := h.OnStoreReplaced
	h.mu.Unlock()

	if cb != nil {
		cb(s)
	}
}

// =============================================================================
// BUDGET ENDPOINTS
// =============================================================================

// GetBudget returns the current snapshot.
// GET /api/budget
func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSnapshotDTO(h.Store().Snapshot()))
}

// ReviseBudget changes the total budget, optionally rebalancing.
// PUT /api/budget
func (h *Handler) ReviseBudget(w http.ResponseWriter, r *http.Request) {
	var req ReviseBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	store := h.Store()
	snap, err := store.ReviseTotalBudget(money.New(req.Total, store.Currency()), req.Rebalance)
	if err != nil {
		writeEngineError(w, "Failed to revise budget", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// AutoBalance redistributes the free pool proportionally.
// POST /api/budget/balance
func (h *Handler) AutoBalance(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store().AutoBalance()
	if err != nil {
		writeEngineError(w, "Failed to balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// ApplyTemplate seeds categories from a built-in template.
// POST /api/budget/from-template
func (h *Handler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var req FromTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var tpl *factory.Template
	for _, t := range h.Templates.Builtins() {
		if t.ID == req.TemplateID {
			tpl = t
			break
		}
	}
	if tpl == nil {
		writeError(w, http.StatusNotFound, "Unknown template", nil)
		return
	}

	store := h.Store()
	if req.Total > 0 {
		if _, err := store.ReviseTotalBudget(money.New(req.Total, store.Currency()), false); err != nil {
			writeEngineError(w, "Failed to set total", err)
			return
		}
	}
	if err := tpl.Apply(store); err != nil {
		writeEngineError(w, "Failed to apply template", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(store.Snapshot()))
}

// ListTemplates returns the built-in archetypes.
// GET /api/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	var dtos []TemplateDTO
	for _, t := range h.Templates.Builtins() {
		dto := TemplateDTO{ID: t.ID, Name: t.Name, Description: t.Description}
		for _, c := range t.Categories {
			dto.Categories = append(dto.Categories, TemplateCategoryDTO{
				Name: c.Name, Weight: c.Weight, Color: c.Color,
			})
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CATEGORY ENDPOINTS
// =============================================================================

// ListCategories returns the snapshot's category projection.
// GET /api/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	snap := h.Store().Snapshot()
	dtos := make([]CategoryDTO, len(snap.Categories))
	for i, c := range snap.Categories {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCategory adds a category.
// POST /api/categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Category name is required", nil)
		return
	}

	opts := budget.CategoryOptions{Color: req.Color, AllowsOverspend: req.AllowsOverspend}
	if req.AlertThreshold != "" {
		ratio, err := money.NewRatio(req.AlertThreshold)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid alert threshold", err)
			return
		}
		opts.AlertThreshold = &ratio
	}

	store := h.Store()
	id, snap, err := store.AddCategoryWithOptions(req.Name, money.New(req.InitialAllocation, store.Currency()), opts)
	if err != nil {
		writeEngineError(w, "Failed to create category", err)
		return
	}

	h.Log.Info().Str("category_id", string(id)).Str("name", req.Name).Msg("category created")
	writeJSON(w, http.StatusCreated, toSnapshotDTO(snap))
}

// SetAllocation sets a category's allocation directly.
// PUT /api/categories/{id}/allocation
func (h *Handler) SetAllocation(w http.ResponseWriter, r *http.Request) {
	id := budget.CategoryID(chi.URLParam(r, "id"))

	var req SetAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	store := h.Store()
	snap, err := store.SetCategoryAllocation(id, money.New(req.Amount, store.Currency()))
	if err != nil {
		writeEngineError(w, "Failed to set allocation", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// Gesture commits a drag/slider gesture: the raw offset is mapped to a
// bounded delta against the baseline captured at gesture start, then
// applied atomically.
// POST /api/categories/{id}/gesture
func (h *Handler) Gesture(w http.ResponseWriter, r *http.Request) {
	id := budget.CategoryID(chi.URLParam(r, "id"))

	var req GestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	store := h.Store()
	total := store.Snapshot().TotalBudget
	sens := budget.SensitivityForBudget(total, req.FullRangeSteps)
	baseline := money.New(req.BaselineAllocation, store.Currency())
	delta := budget.MapDelta(baseline, req.Offset, sens)

	snap, err := store.ApplyGestureDelta(id, delta)
	if err != nil {
		writeEngineError(w, "Failed to apply gesture", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// ArchiveCategory soft-deletes a category.
// POST /api/categories/{id}/archive
func (h *Handler) ArchiveCategory(w http.ResponseWriter, r *http.Request) {
	id := budget.CategoryID(chi.URLParam(r, "id"))

	snap, err := h.Store().ArchiveCategory(id)
	if err != nil {
		writeEngineError(w, "Failed to archive category", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// DeleteCategory removes a category without spend history.
// DELETE /api/categories/{id}
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := budget.CategoryID(chi.URLParam(r, "id"))

	snap, err := h.Store().RemoveCategory(id)
	if err != nil {
		writeEngineError(w, "Failed to remove category", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// ReorderCategories applies a new sort order.
// POST /api/categories/reorder
func (h *Handler) ReorderCategories(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ids := make([]budget.CategoryID, len(req.IDs))
	for i, id := range req.IDs {
		ids[i] = budget.CategoryID(id)
	}

	snap, err := h.Store().Reorder(ids)
	if err != nil {
		writeEngineError(w, "Failed to reorder", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// =============================================================================
// EXPENSE ENDPOINTS
// =============================================================================

// CreateExpense records a resolved receipt extraction: appends it to the
// expense log and records the spend. Spend recording never fails for
// over-budget - the money is already gone; the triggered warning rides on
// the response.
// POST /api/expenses
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	incurredAt, err := time.Parse("2006-01-02", req.IncurredAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid incurred_at date", err)
		return
	}

	store := h.Store()
	categoryID := budget.CategoryID(req.CategoryID)
	amount := money.New(req.Amount, store.Currency())

	snap, triggered, err := store.RecordExpense(categoryID, amount)
	if err != nil {
		writeEngineError(w, "Failed to record expense", err)
		return
	}

	rec := budget.NewExpense(categoryID, req.VendorName, amount, incurredAt)
	if err := h.ExpenseLog.AppendExpense(r.Context(), rec); err != nil {
		// The in-memory spend is recorded; log persistence is the sync
		// boundary's problem and must not fail the mutation.
		h.Log.Error().Err(err).Str("expense_id", rec.ID).Msg("failed to persist expense")
	}

	resp := ExpenseResponse{Expense: toExpenseDTO(rec), Snapshot: toSnapshotDTO(snap)}
	if triggered != nil {
		dto := toWarningDTO(*triggered)
		resp.Triggered = &dto
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListExpenses returns the expense log, optionally for one category.
// GET /api/expenses?category_id=...
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	var (
		recs []budget.ExpenseRecord
		err  error
	)
	if cid := r.URL.Query().Get("category_id"); cid != "" {
		recs, err = h.ExpenseLog.Expenses(r.Context(), budget.CategoryID(cid))
	} else {
		recs, err = h.ExpenseLog.AllExpenses(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list expenses", err)
		return
	}

	dtos := make([]ExpenseDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toExpenseDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RECOMMENDATION ENDPOINTS
// =============================================================================

// ApplyRecommendation applies an external cost-saving recommendation as
// one atomic transaction.
// POST /api/recommendations/apply
func (h *Handler) ApplyRecommendation(w http.ResponseWriter, r *http.Request) {
	var dto RecommendationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	store := h.Store()
	record, snap, err := store.ApplyRecommendation(toRecommendation(dto, store.Currency()))
	if err != nil {
		writeEngineError(w, "Failed to apply recommendation", err)
		return
	}

	affected := make([]string, len(record.AffectedCategories))
	for i, id := range record.AffectedCategories {
		affected[i] = string(id)
	}
	writeJSON(w, http.StatusOK, ApplyRecommendationResponse{
		RecommendationID:   record.ID,
		AffectedCategories: affected,
		RealizedSavings:    record.RealizedSavings.Units,
		Snapshot:           toSnapshotDTO(snap),
	})
}

// ScoreRecommendations computes the dashboard optimization score from
// the current snapshot and the pending recommendation list.
// POST /api/recommendations/score
func (h *Handler) ScoreRecommendations(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	store := h.Store()
	pending := make([]budget.Recommendation, len(req.Recommendations))
	for i, dto := range req.Recommendations {
		pending[i] = toRecommendation(dto, store.Currency())
	}

	writeJSON(w, http.StatusOK, ScoreResponse{
		Score: budget.OptimizationScore(store.Snapshot(), pending),
	})
}

// =============================================================================
// WARNING ENDPOINTS
// =============================================================================

// GetWarnings returns the current badge set.
// GET /api/warnings
func (h *Handler) GetWarnings(w http.ResponseWriter, r *http.Request) {
	snap := h.Store().Snapshot()
	dtos := make([]WarningDTO, len(snap.Warnings))
	for i, warning := range snap.Warnings {
		dtos[i] = toWarningDTO(warning)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps the engine's error taxonomy to HTTP status.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case budget.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, budget.ErrAlreadyApplied),
		errors.Is(err, budget.ErrCategoryHasActivity):
		writeError(w, http.StatusConflict, message, err)
	case budget.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
