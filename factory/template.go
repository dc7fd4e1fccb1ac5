/*
Package factory provides JSON to Go budget template conversion.

PURPOSE:
  Converts JSON template definitions into starter category sets. This
  enables template configuration without code changes - the product team
  can define wedding archetypes in JSON, and the factory turns them into
  exact integer allocations for a given total budget.

WHY JSON?
  - Non-developers can tune the archetype splits
  - Easy integration with the onboarding wizard
  - Version control for template definitions

JSON SCHEMA:
  {
    "id": "classic",
    "name": "Classic Wedding",
    "description": "Traditional full-service wedding",
    "categories": [
      {"name": "Venue", "weight": 40, "color": "#7c5cbf", "alert_threshold": "0.9"},
      {"name": "Catering", "weight": 25, "color": "#2a9d8f"}
    ]
  }

  Weights are relative shares, not percentages; they are resolved into
  exact allocations with money.SplitProportional, so the seeded
  categories always sum to exactly the total budget.

USAGE:
  f := factory.NewTemplateFactory()
  tpl, err := f.ParseTemplate(factory.ClassicTemplateJSON)
  err = tpl.Apply(store)

SEE ALSO:
  - budget/store.go: AddCategoryWithOptions, the seeding entry point
  - api/handlers.go: the from-template endpoint
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/money"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TemplateJSON is the JSON representation of a budget template.
type TemplateJSON struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Categories  []TemplateCategoryJSON `json:"categories"`
}

type TemplateCategoryJSON struct {
	Name            string `json:"name"`
	Weight          int64  `json:"weight"`
	Color           string `json:"color,omitempty"`
	AlertThreshold  string `json:"alert_threshold,omitempty"`
	AllowsOverspend bool   `json:"allows_overspend,omitempty"`
}

// =============================================================================
// PARSED TEMPLATE
// =============================================================================

type Template struct {
	ID          string
	Name        string
	Description string
	Categories  []TemplateCategory
}

type TemplateCategory struct {
	Name            string
	Weight          int64
	Color           string
	AlertThreshold  *money.Ratio
	AllowsOverspend bool
}

// Allocations resolves the template weights against a total budget. The
// results are index-aligned with Categories and sum to exactly total.
func (t *Template) Allocations(total money.Money) ([]money.Money, error) {
	weights := make([]int64, len(t.Categories))
	for i, c := range t.Categories {
		weights[i] = c.Weight
	}
	return money.SplitProportional(total, weights)
}

// Apply seeds the store with the template's categories, allocating the
// store's full budget across them.
func (t *Template) Apply(store *budget.AllocationStore) error {
	total := store.Snapshot().TotalBudget
	allocations, err := t.Allocations(total)
	if err != nil {
		return err
	}

	for i, c := range t.Categories {
		_, _, err := store.AddCategoryWithOptions(c.Name, allocations[i], budget.CategoryOptions{
			Color:           c.Color,
			AlertThreshold:  c.AlertThreshold,
			AllowsOverspend: c.AllowsOverspend,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// TEMPLATE FACTORY
// =============================================================================

type TemplateFactory struct{}

func NewTemplateFactory() *TemplateFactory {
	return &TemplateFactory{}
}

// ParseTemplate validates a JSON template definition.
func (f *TemplateFactory) ParseTemplate(jsonStr string) (*Template, error) {
	var raw TemplateJSON
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("invalid template JSON: %w", err)
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("template id is required")
	}
	if len(raw.Categories) == 0 {
		return nil, fmt.Errorf("template %q has no categories", raw.ID)
	}

	tpl := &Template{ID: raw.ID, Name: raw.Name, Description: raw.Description}
	for _, rc := range raw.Categories {
		if rc.Name == "" {
			return nil, fmt.Errorf("template %q: category name is required", raw.ID)
		}
		if rc.Weight < 0 {
			return nil, fmt.Errorf("template %q: category %q has negative weight", raw.ID, rc.Name)
		}

		cat := TemplateCategory{
			Name:            rc.Name,
			Weight:          rc.Weight,
			Color:           rc.Color,
			AllowsOverspend: rc.AllowsOverspend,
		}
		if rc.AlertThreshold != "" {
			r, err := decimal.NewFromString(rc.AlertThreshold)
			if err != nil {
				return nil, fmt.Errorf("template %q: bad alert threshold for %q: %w", raw.ID, rc.Name, err)
			}
			one := decimal.NewFromInt(1)
			if !r.IsPositive() || r.GreaterThan(one) {
				return nil, fmt.Errorf("template %q: alert threshold for %q must be in (0,1]", raw.ID, rc.Name)
			}
			cat.AlertThreshold = &r
		}
		tpl.Categories = append(tpl.Categories, cat)
	}
	return tpl, nil
}

// Builtins parses the built-in archetypes. They are compile-time
// constants, so parsing cannot fail at runtime.
func (f *TemplateFactory) Builtins() []*Template {
	out := make([]*Template, 0, 3)
	for _, src := range []string{ClassicTemplateJSON, IntimateTemplateJSON, DestinationTemplateJSON} {
		tpl, err := f.ParseTemplate(src)
		if err != nil {
			panic(err)
		}
		out = append(out, tpl)
	}
	return out
}

// =============================================================================
// BUILT-IN ARCHETYPES
// =============================================================================

const ClassicTemplateJSON = `{
  "id": "classic",
  "name": "Classic Wedding",
  "description": "Traditional full-service wedding with venue and catering leading",
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

const IntimateTemplateJSON = `{
  "id": "intimate",
  "name": "Intimate Wedding",
  "description": "Small guest list, restaurant dinner instead of catering",
  "categories": [
    {"name": "Dinner", "weight": 35, "color": "#2a9d8f", "alert_threshold": "0.85"},
    {"name": "Venue", "weight": 20, "color": "#7c5cbf"},
    {"name": "Photography", "weight": 20, "color": "#e9c46a"},
    {"name": "Attire", "weight": 15, "color": "#f4a261"},
    {"name": "Flowers", "weight": 10, "color": "#e76f51"}
  ]
}`

const DestinationTemplateJSON = `{
  "id": "destination",
  "name": "Destination Wedding",
  "description": "Travel-heavy budget with a combined venue package",
  "categories": [
    {"name": "Travel", "weight": 30, "color": "#264653", "allows_overspend": true},
    {"name": "Venue Package", "weight": 35, "color": "#7c5cbf", "alert_threshold": "0.9"},
    {"name": "Photography", "weight": 15, "color": "#e9c46a"},
    {"name": "Attire", "weight": 10, "color": "#f4a261"},
    {"name": "Welcome Dinner", "weight": 10, "color": "#2a9d8f"}
  ]
}`
