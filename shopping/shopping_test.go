package shopping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriagent"
	"nutriagent/catalog"
)

func TestFromPlan(t *testing.T) {
	cat := catalog.New([]nutriagent.FoodItem{
		{ID: "brown_rice", Name: "Brown Rice", Category: "grain", CostPer100g: 0.3},
		{ID: "chicken_breast", Name: "Chicken Breast", Category: "protein", CostPer100g: 1.2},
		{ID: "broccoli", Name: "Broccoli", Category: "vegetable", CostPer100g: 0.5},
	})

	plan := &nutriagent.MealPlan{Meals: []nutriagent.MealCandidate{
		{Slot: "lunch", Items: []nutriagent.ItemPortion{
			{FoodID: "brown_rice", Grams: 150},
			{FoodID: "chicken_breast", Grams: 120},
		}},
		{Slot: "dinner", Items: []nutriagent.ItemPortion{
			{FoodID: "brown_rice", Grams: 100},
			{FoodID: "broccoli", Grams: 200},
		}},
	}}

	list, err := FromPlan(plan, cat)
	require.NoError(t, err)

	require.Len(t, list.Items, 3)

	// Ordered by category: grain, protein, vegetable.
	assert.Equal(t, "brown_rice", list.Items[0].FoodID)
	assert.Equal(t, 250.0, list.Items[0].Grams)
	assert.Equal(t, "chicken_breast", list.Items[1].FoodID)
	assert.Equal(t, "broccoli", list.Items[2].FoodID)

	// 250g rice at 0.3 + 120g chicken at 1.2 + 200g broccoli at 0.5.
	assert.InDelta(t, 0.75+1.44+1.0, list.TotalCost, 0.001)
}

func TestFromPlanUnknownItem(t *testing.T) {
	cat := catalog.New(nil)
	plan := &nutriagent.MealPlan{Meals: []nutriagent.MealCandidate{
		{Slot: "lunch", Items: []nutriagent.ItemPortion{{FoodID: "ghost", Grams: 100}}},
	}}

	_, err := FromPlan(plan, cat)
	var nf *nutriagent.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ghost", nf.FoodID)
}
