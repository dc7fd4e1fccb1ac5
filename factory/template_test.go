package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/factory"
	"github.com/warp/budget-engine/money"
)

func TestParseTemplate_Valid(t *testing.T) {
	// GIVEN
	f := factory.NewTemplateFactory()

	// WHEN
	tpl, err := f.ParseTemplate(factory.ClassicTemplateJSON)
	require.NoError(t, err)

	// THEN
	assert.Equal(t, "classic", tpl.ID)
	assert.Len(t, tpl.Categories, 8)
	assert.Equal(t, "Venue", tpl.Categories[0].Name)
	require.NotNil(t, tpl.Categories[0].AlertThreshold)
	assert.True(t, tpl.Categories[0].AlertThreshold.Equal(money.MustRatio("0.9")))
	assert.True(t, tpl.Categories[7].AllowsOverspend)
}

func TestParseTemplate_Invalid(t *testing.T) {
	f := factory.NewTemplateFactory()

	cases := []struct {
		name string
		json string
	}{
		{"malformed json", `{"id": "x",`},
		{"missing id", `{"name": "X", "categories": [{"name": "A", "weight": 1}]}`},
		{"no categories", `{"id": "x", "categories": []}`},
		{"unnamed category", `{"id": "x", "categories": [{"weight": 1}]}`},
		{"negative weight", `{"id": "x", "categories": [{"name": "A", "weight": -1}]}`},
		{"threshold above one", `{"id": "x", "categories": [{"name": "A", "weight": 1, "alert_threshold": "1.5"}]}`},
		{"threshold zero", `{"id": "x", "categories": [{"name": "A", "weight": 1, "alert_threshold": "0"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ParseTemplate(tc.json)
			assert.Error(t, err)
		})
	}
}

func TestAllocations_SumExactly(t *testing.T) {
	// GIVEN: A total that does not divide evenly across the weights
	f := factory.NewTemplateFactory()
	tpl, err := f.ParseTemplate(factory.ClassicTemplateJSON)
	require.NoError(t, err)

	// WHEN
	allocations, err := tpl.Allocations(money.New(1_000_001, "GBP"))
	require.NoError(t, err)

	// THEN: Every minor unit lands somewhere
	var sum int64
	for _, a := range allocations {
		sum += a.Units
	}
	assert.Equal(t, int64(1_000_001), sum)
}

func TestApply_SeedsStoreFully(t *testing.T) {
	// GIVEN: An empty store and the intimate archetype
	f := factory.NewTemplateFactory()
	tpl, err := f.ParseTemplate(factory.IntimateTemplateJSON)
	require.NoError(t, err)
	s := budget.NewStore(money.New(800_000, "GBP"))

	// WHEN
	require.NoError(t, tpl.Apply(s))

	// THEN: The budget is fully allocated across the archetype's categories
	snap := s.Snapshot()
	require.Len(t, snap.Categories, 5)
	assert.Equal(t, int64(800_000), snap.TotalAllocated.Units)
	assert.True(t, snap.Unallocated.IsZero())
	assert.Empty(t, snap.Warnings)

	// AND: Order follows the template
	assert.Equal(t, "Dinner", snap.Categories[0].Name)
	assert.Equal(t, int64(280_000), snap.Categories[0].Allocated.Units)
}

func TestBuiltins_AllParse(t *testing.T) {
	// GIVEN/WHEN
	tpls := factory.NewTemplateFactory().Builtins()

	// THEN: Each archetype parses with a distinct id
	require.Len(t, tpls, 3)
	seen := map[string]bool{}
	for _, tpl := range tpls {
		assert.NotEmpty(t, tpl.Name)
		assert.False(t, seen[tpl.ID], "duplicate template id %s", tpl.ID)
		seen[tpl.ID] = true
	}
}
