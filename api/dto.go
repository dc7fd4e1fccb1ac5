/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

WIRE FORMAT FOR MONEY:
  All amounts travel as integer minor units (pence/cents) plus a currency
  code on the snapshot. Ratios (percentages, utilization) travel as
  decimal strings, never binary floats.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - budget/types.go: The domain types these project
*/
package api

import (
	"time"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/money"
)

// =============================================================================
// SNAPSHOT / CATEGORY
// =============================================================================

// SnapshotDTO is the engine snapshot as rendered to clients.
type SnapshotDTO struct {
	TotalBudget    int64         `json:"total_budget"`
	Currency       string        `json:"currency"`
	TotalAllocated int64         `json:"total_allocated"`
	TotalSpent     int64         `json:"total_spent"`
	Unallocated    int64         `json:"unallocated"`
	Categories     []CategoryDTO `json:"categories"`
	Warnings       []WarningDTO  `json:"warnings"`
	SyncStatus     string        `json:"sync_status"`
	Revision       int64         `json:"revision"`
}

// CategoryDTO carries stored and derived fields in one record.
type CategoryDTO struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Allocated         int64   `json:"allocated"`
	Spent             int64   `json:"spent"`
	Remaining         int64   `json:"remaining"`
	PercentageOfTotal string  `json:"percentage_of_total"`
	Utilization       string  `json:"utilization"`
	IsOverBudget      bool    `json:"is_over_budget"`
	IsNearLimit       bool    `json:"is_near_limit"`
	AlertThreshold    *string `json:"alert_threshold,omitempty"`
	AllowsOverspend   bool    `json:"allows_overspend"`
	SortOrder         int     `json:"sort_order"`
	Color             string  `json:"color,omitempty"`
	Active            bool    `json:"active"`
	Revision          int64   `json:"revision"`
}

type WarningDTO struct {
	Code       string `json:"code"`
	CategoryID string `json:"category_id,omitempty"`
	Excess     int64  `json:"excess,omitempty"`
	Message    string `json:"message"`
}

// =============================================================================
// REQUESTS - budget and categories
// =============================================================================

type ReviseBudgetRequest struct {
	Total     int64 `json:"total"`
	Rebalance bool  `json:"rebalance"`
}

type CreateCategoryRequest struct {
	Name              string `json:"name"`
	InitialAllocation int64  `json:"initial_allocation"`
	Color             string `json:"color,omitempty"`
	AlertThreshold    string `json:"alert_threshold,omitempty"`
	AllowsOverspend   bool   `json:"allows_overspend,omitempty"`
}

type SetAllocationRequest struct {
	Amount int64 `json:"amount"`
}

// GestureRequest carries a drag/slider commit: the allocation captured at
// gesture start, the raw offset in input steps (pixels, slider units) and
// the input's full range, from which sensitivity is derived.
type GestureRequest struct {
	BaselineAllocation int64   `json:"baseline_allocation"`
	Offset             float64 `json:"offset"`
	FullRangeSteps     int64   `json:"full_range_steps"`
}

type ReorderRequest struct {
	IDs []string `json:"ids"`
}

// =============================================================================
// REQUESTS / RESPONSES - expenses
// =============================================================================

// CreateExpenseRequest is a receipt extraction after the user (or a
// suggestion service) resolved its category.
type CreateExpenseRequest struct {
	CategoryID string `json:"category_id"`
	VendorName string `json:"vendor_name"`
	Amount     int64  `json:"amount"`
	IncurredAt string `json:"incurred_at"` // ISO date
}

type ExpenseDTO struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	VendorName string `json:"vendor_name"`
	Amount     int64  `json:"amount"`
	IncurredAt string `json:"incurred_at"`
	CreatedAt  string `json:"created_at"`
}

// ExpenseResponse is the record plus the post-mutation snapshot and the
// over-budget warning the spend may have triggered.
type ExpenseResponse struct {
	Expense   ExpenseDTO  `json:"expense"`
	Triggered *WarningDTO `json:"triggered_warning,omitempty"`
	Snapshot  SnapshotDTO `json:"snapshot"`
}

// =============================================================================
// REQUESTS / RESPONSES - recommendations
// =============================================================================

type RecommendationDTO struct {
	ID                string   `json:"id"`
	Type              string   `json:"type"`
	PotentialSavings  int64    `json:"potential_savings"`
	TargetCategoryIDs []string `json:"target_category_ids"`
	Confidence        int      `json:"confidence"`
	IsApplied         bool     `json:"is_applied"`
}

type ApplyRecommendationResponse struct {
	RecommendationID   string      `json:"recommendation_id"`
	AffectedCategories []string    `json:"affected_categories"`
	RealizedSavings    int64       `json:"realized_savings"`
	Snapshot           SnapshotDTO `json:"snapshot"`
}

type ScoreRequest struct {
	Recommendations []RecommendationDTO `json:"recommendations"`
}

type ScoreResponse struct {
	Score int `json:"score"`
}

// =============================================================================
// TEMPLATES / SCENARIOS
// =============================================================================

type TemplateDTO struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Categories  []TemplateCategoryDTO `json:"categories"`
}

type TemplateCategoryDTO struct {
	Name   string `json:"name"`
	Weight int64  `json:"weight"`
	Color  string `json:"color,omitempty"`
}

type FromTemplateRequest struct {
	TemplateID string `json:"template_id"`
	Total      int64  `json:"total"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toSnapshotDTO(s budget.Snapshot) SnapshotDTO {
	cats := make([]CategoryDTO, len(s.Categories))
	for i, c := range s.Categories {
		cats[i] = toCategoryDTO(c)
	}
	warnings := make([]WarningDTO, len(s.Warnings))
	for i, w := range s.Warnings {
		warnings[i] = toWarningDTO(w)
	}
	return SnapshotDTO{
		TotalBudget:    s.TotalBudget.Units,
		Currency:       s.TotalBudget.Currency,
		TotalAllocated: s.TotalAllocated.Units,
		TotalSpent:     s.TotalSpent.Units,
		Unallocated:    s.Unallocated.Units,
		Categories:     cats,
		Warnings:       warnings,
		SyncStatus:     string(s.SyncStatus),
		Revision:       s.Revision,
	}
}

func toCategoryDTO(c budget.DerivedCategory) CategoryDTO {
	dto := CategoryDTO{
		ID:                string(c.ID),
		Name:              c.Name,
		Allocated:         c.Allocated.Units,
		Spent:             c.Spent.Units,
		Remaining:         c.Remaining.Units,
		PercentageOfTotal: c.PercentageOfTotal.StringFixed(4),
		Utilization:       c.Utilization.StringFixed(4),
		IsOverBudget:      c.IsOverBudget,
		IsNearLimit:       c.IsNearLimit,
		AllowsOverspend:   c.AllowsOverspend,
		SortOrder:         c.SortOrder,
		Color:             c.Color,
		Active:            c.Category.Active,
		Revision:          c.Revision,
	}
	if c.AlertThreshold != nil {
		v := c.AlertThreshold.String()
		dto.AlertThreshold = &v
	}
	return dto
}

func toWarningDTO(w budget.Warning) WarningDTO {
	return WarningDTO{
		Code:       string(w.Code),
		CategoryID: string(w.CategoryID),
		Excess:     w.Excess.Units,
		Message:    w.Message,
	}
}

func toExpenseDTO(rec budget.ExpenseRecord) ExpenseDTO {
	return ExpenseDTO{
		ID:         rec.ID,
		CategoryID: string(rec.CategoryID),
		VendorName: rec.VendorName,
		Amount:     rec.Amount.Units,
		IncurredAt: rec.IncurredAt.Format("2006-01-02"),
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
	}
}

func toRecommendation(dto RecommendationDTO, currency string) budget.Recommendation {
	targets := make([]budget.CategoryID, len(dto.TargetCategoryIDs))
	for i, id := range dto.TargetCategoryIDs {
		targets[i] = budget.CategoryID(id)
	}
	return budget.Recommendation{
		ID:                dto.ID,
		Type:              budget.RecommendationType(dto.Type),
		PotentialSavings:  money.New(dto.PotentialSavings, currency),
		TargetCategoryIDs: targets,
		Confidence:        dto.Confidence,
		IsApplied:         dto.IsApplied,
	}
}
