/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the engine with realistic
	data for testing and demos. Each scenario creates a fresh store,
	seeds categories and expenses, and swaps it in.

AVAILABLE SCENARIOS:

	fresh-start:    Classic template, nothing spent yet
	mid-planning:   Deposits paid, flowers nearing their limit
	over-committed: Over-allocated plan with an overspent venue

HOW SCENARIOS WORK:
 1. Build a new AllocationStore with the scenario's total budget
 2. Seed categories (template or hand-rolled)
 3. Record demo expenses
 4. Swap the handler's store; the sync scheduler rebinds via
    OnStoreReplaced

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "mid-planning"}

NOTE:

	Loading a scenario discards the current in-memory state. Only use in
	development/demo environments.

SEE ALSO:
  - handlers.go: shared handler context
  - factory/template.go: the classic template used by fresh-start
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/money"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-start",
		Name:        "Fresh Start",
		Description: "Classic template seeded across a £15,000 budget, nothing spent",
	},
	{
		ID:          "mid-planning",
		Name:        "Mid Planning",
		Description: "Deposits paid, flowers nearing their alert threshold",
	},
	{
		ID:          "over-committed",
		Name:        "Over Committed",
		Description: "Over-allocated plan with an overspent venue",
	},
}

// ListScenarios returns the available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario replaces the current state with a demo scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var (
		store *budget.AllocationStore
		err   error
	)
	switch req.ScenarioID {
	case "fresh-start":
		store, err = h.loadFreshStart()
	case "mid-planning":
		store, err = h.loadMidPlanning(r)
	case "over-committed":
		store, err = h.loadOverCommitted(r)
	default:
		writeError(w, http.StatusNotFound, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.replaceStore(store)
	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.Log.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, toSnapshotDTO(store.Snapshot()))
}

// =============================================================================
// LOADERS
// =============================================================================

func (h *Handler) loadFreshStart() (*budget.AllocationStore, error) {
	store := budget.NewStore(money.New(1_500_000, "GBP"))

	tpl, err := h.Templates.ParseTemplate(classicJSONForScenario())
	if err != nil {
		return nil, err
	}
	if err := tpl.Apply(store); err != nil {
		return nil, err
	}
	return store, nil
}

func (h *Handler) loadMidPlanning(r *http.Request) (*budget.AllocationStore, error) {
	store := budget.NewStore(money.New(1_000_000, "GBP"))
	gbp := func(units int64) money.Money { return money.New(units, "GBP") }

	threshold := money.MustRatio("0.8")
	venueID, _, err := store.AddCategory("Venue", gbp(400_000))
	if err != nil {
		return nil, err
	}
	cateringID, _, err := store.AddCategory("Catering", gbp(250_000))
	if err != nil {
		return nil, err
	}
	flowersID, _, err := store.AddCategoryWithOptions("Flowers", gbp(100_000), budget.CategoryOptions{
		AlertThreshold: &threshold,
	})
	if err != nil {
		return nil, err
	}

	for _, e := range []struct {
		cat    budget.CategoryID
		vendor string
		amount int64
	}{
		{venueID, "The Old Mill", 200_000},
		{cateringID, "Harvest Kitchen", 100_000},
		{flowersID, "Bloom & Stem", 85_000},
	} {
		if _, _, err := store.RecordExpense(e.cat, gbp(e.amount)); err != nil {
			return nil, err
		}
		rec := budget.NewExpense(e.cat, e.vendor, gbp(e.amount), time.Now().UTC())
		if err := h.ExpenseLog.AppendExpense(r.Context(), rec); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (h *Handler) loadOverCommitted(r *http.Request) (*budget.AllocationStore, error) {
	store := budget.NewStore(money.New(1_000_000, "GBP"))
	gbp := func(units int64) money.Money { return money.New(units, "GBP") }

	venueID, _, err := store.AddCategory("Venue", gbp(400_000))
	if err != nil {
		return nil, err
	}
	cateringID, _, err := store.AddCategory("Catering", gbp(450_000))
	if err != nil {
		return nil, err
	}
	if _, _, err := store.AddCategory("Photography", gbp(250_000)); err != nil {
		return nil, err
	}

	// Venue overspends its allocation: the spend is recorded regardless.
	for _, e := range []struct {
		cat    budget.CategoryID
		vendor string
		amount int64
	}{
		{venueID, "Hillside Manor", 430_000},
		{cateringID, "Harvest Kitchen", 150_000},
	} {
		if _, _, err := store.RecordExpense(e.cat, gbp(e.amount)); err != nil {
			return nil, err
		}
		rec := budget.NewExpense(e.cat, e.vendor, gbp(e.amount), time.Now().UTC())
		if err := h.ExpenseLog.AppendExpense(r.Context(), rec); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// classicJSONForScenario keeps the scenario decoupled from the built-in
// constant so template tweaks don't silently change the demo.
func classicJSONForScenario() string {
	return `{
  "id": "fresh-start-classic",
  "name": "Classic Wedding",
  "categories": [
    {"name": "Venue", "weight": 30, "color": "#7c5cbf", "alert_threshold": "0.9"},
    {"name": "Catering", "weight": 25, "color": "#2a9d8f", "alert_threshold": "0.9"},
    {"name": "Photography", "weight": 12, "color": "#e9c46a"},
    {"name": "Attire", "weight": 9, "color": "#f4a261"},
    {"name": "Flowers", "weight": 8, "color": "#e76f51"},
    {"name": "Music", "weight": 7, "color": "#264653"},
    {"name": "Stationery", "weight": 4, "color": "#8ab17d"},
    {"name": "Favors", "weight": 5, "color": "#bc6c8f", "allows_overspend": true}
  ]
}`
}
