package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriagent"
	"nutriagent/catalog"
	"nutriagent/scoring"
)

func testCatalog() *catalog.View {
	return catalog.New([]nutriagent.FoodItem{
		{ID: "almonds", Name: "Almonds", Category: "fat", CaloriesPer100g: 579, ProteinG: 21, CarbsG: 22, FatG: 50, CostPer100g: 1.8, Allergens: []string{"nuts"}, DietaryTags: []string{"vegetarian", "vegan", "gluten_free"}},
		{ID: "chicken_breast", Name: "Chicken Breast", Category: "protein", CaloriesPer100g: 165, ProteinG: 31, CarbsG: 0, FatG: 3.6, CostPer100g: 1.2, DietaryTags: []string{"gluten_free", "dairy_free", "paleo"}, PrepTimeMinutes: 25},
		{ID: "salmon", Name: "Salmon", Category: "protein", CaloriesPer100g: 208, ProteinG: 20, CarbsG: 0, FatG: 13, CostPer100g: 2.5, Allergens: []string{"fish"}, DietaryTags: []string{"pescatarian", "gluten_free", "dairy_free", "paleo"}, PrepTimeMinutes: 20},
		{ID: "tofu", Name: "Tofu", Category: "protein", CaloriesPer100g: 76, ProteinG: 8, CarbsG: 1.9, FatG: 4.8, CostPer100g: 0.8, Allergens: []string{"soy"}, DietaryTags: []string{"vegetarian", "vegan", "gluten_free", "dairy_free"}, PrepTimeMinutes: 15},
		{ID: "brown_rice", Name: "Brown Rice", Category: "grain", CaloriesPer100g: 112, ProteinG: 2.6, CarbsG: 24, FatG: 0.9, CostPer100g: 0.3, DietaryTags: []string{"vegetarian", "vegan", "gluten_free", "dairy_free"}, PrepTimeMinutes: 30},
		{ID: "oats", Name: "Oats", Category: "grain", CaloriesPer100g: 389, ProteinG: 17, CarbsG: 66, FatG: 6.9, CostPer100g: 0.4, DietaryTags: []string{"vegetarian", "vegan", "dairy_free", "breakfast"}, PrepTimeMinutes: 10},
		{ID: "broccoli", Name: "Broccoli", Category: "vegetable", CaloriesPer100g: 34, ProteinG: 2.8, CarbsG: 7, FatG: 0.4, CostPer100g: 0.5, DietaryTags: []string{"vegetarian", "vegan", "gluten_free", "dairy_free", "paleo"}, PrepTimeMinutes: 10},
		{ID: "spinach", Name: "Spinach", Category: "vegetable", CaloriesPer100g: 23, ProteinG: 2.9, CarbsG: 3.6, FatG: 0.4, CostPer100g: 0.6, DietaryTags: []string{"vegetarian", "vegan", "gluten_free", "dairy_free", "paleo"}},
		{ID: "banana", Name: "Banana", Category: "fruit", CaloriesPer100g: 89, ProteinG: 1.1, CarbsG: 23, FatG: 0.3, CostPer100g: 0.4, DietaryTags: []string{"vegetarian", "vegan", "gluten_free", "dairy_free", "breakfast"}},
		{ID: "greek_yogurt", Name: "Greek Yogurt", Category: "dairy", CaloriesPer100g: 59, ProteinG: 10, CarbsG: 3.6, FatG: 0.4, CostPer100g: 0.7, Allergens: []string{"dairy"}, DietaryTags: []string{"vegetarian", "gluten_free", "breakfast"}},
		{ID: "olive_oil", Name: "Olive Oil", Category: "fat", CaloriesPer100g: 884, ProteinG: 0, CarbsG: 0, FatG: 100, CostPer100g: 1.0, DietaryTags: []string{"vegetarian", "vegan", "gluten_free", "dairy_free", "paleo", "keto"}},
		{ID: "eggs", Name: "Eggs", Category: "protein", CaloriesPer100g: 155, ProteinG: 13, CarbsG: 1.1, FatG: 11, CostPer100g: 0.6, Allergens: []string{"eggs"}, DietaryTags: []string{"vegetarian", "gluten_free", "dairy_free", "breakfast"}, PrepTimeMinutes: 10},
	})
}

func testConstraints() nutriagent.Constraints {
	return nutriagent.Constraints{
		MealSlots: []string{"breakfast", "lunch", "dinner"},
		Target: nutriagent.NutritionTarget{
			Calories: 2000,
			ProteinG: 125,
			CarbsG:   225,
			FatG:     67,
		},
		DailyBudget: 12,
	}
}

func newTestOptimizer(cfg Config) *Optimizer {
	return New(testCatalog(), scoring.NewStaticScorer(), cfg)
}

func TestOptimizeProducesValidPlan(t *testing.T) {
	o := newTestOptimizer(DefaultConfig())
	plan, err := o.Optimize(context.Background(), nutriagent.UserProfile{Name: "Ana"}, testConstraints())
	require.NoError(t, err)

	assert.True(t, plan.IsValid())
	assert.Len(t, plan.Meals, 3)
	for i, slot := range []string{"breakfast", "lunch", "dinner"} {
		assert.Equal(t, slot, plan.Meals[i].Slot)
	}
	assert.Greater(t, plan.Totals.Calories, 0.0)
}

func TestOptimizeDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	profile := nutriagent.UserProfile{Name: "Ana"}

	first, err := newTestOptimizer(cfg).Optimize(context.Background(), profile, testConstraints())
	require.NoError(t, err)
	second, err := newTestOptimizer(cfg).Optimize(context.Background(), profile, testConstraints())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestOptimizeExcludesAllergens(t *testing.T) {
	cons := testConstraints()
	cons.Allergens = []string{"nuts", "dairy"}

	o := newTestOptimizer(DefaultConfig())
	plan, err := o.Optimize(context.Background(), nutriagent.UserProfile{Name: "Ana"}, cons)
	require.NoError(t, err)

	for _, m := range plan.Meals {
		for _, p := range m.Items {
			assert.NotEqual(t, "almonds", p.FoodID)
			assert.NotEqual(t, "greek_yogurt", p.FoodID)
		}
	}
}

func TestOptimizeRespectsRestrictions(t *testing.T) {
	cons := testConstraints()
	cons.Restrictions = []nutriagent.DietaryRestriction{nutriagent.Vegan}

	o := newTestOptimizer(DefaultConfig())
	plan, err := o.Optimize(context.Background(), nutriagent.UserProfile{Name: "Ana"}, cons)
	require.NoError(t, err)

	cat := testCatalog()
	for _, m := range plan.Meals {
		for _, p := range m.Items {
			it, err := cat.Get(p.FoodID)
			require.NoError(t, err)
			assert.True(t, it.HasTag("vegan"), "item %s is not vegan", p.FoodID)
		}
	}
}

func TestOptimizeStaysNearBudget(t *testing.T) {
	cfg := DefaultConfig()
	cons := testConstraints()
	cons.DailyBudget = 5

	o := newTestOptimizer(cfg)
	plan, err := o.Optimize(context.Background(), nutriagent.UserProfile{Name: "Ana"}, cons)
	require.NoError(t, err)

	assert.LessOrEqual(t, plan.Totals.Cost, cons.DailyBudget+cfg.BudgetTolerance)
}

func TestTrimToBudget(t *testing.T) {
	cfg := DefaultConfig()
	o := newTestOptimizer(cfg)

	t.Run("drops portions that scale below the minimum", func(t *testing.T) {
		// 400g salmon (10.00) + 100g rice (0.30) against a $1 budget: the
		// scaled rice portion lands under the minimum and is dropped instead
		// of being clamped back up.
		plan := &nutriagent.MealPlan{Meals: []nutriagent.MealCandidate{
			{Slot: "lunch", Items: []nutriagent.ItemPortion{
				{FoodID: "salmon", Grams: 400},
				{FoodID: "brown_rice", Grams: 100},
			}},
		}}
		cons := nutriagent.Constraints{DailyBudget: 1}

		o.trimToBudget(plan, cons)
		require.NoError(t, plan.Recompute(testCatalog()))

		require.Len(t, plan.Meals[0].Items, 1)
		assert.Equal(t, "salmon", plan.Meals[0].Items[0].FoodID)
		assert.LessOrEqual(t, plan.Totals.Cost, cons.DailyBudget+cfg.BudgetTolerance)
	})

	t.Run("keeps the cheapest item when a meal empties", func(t *testing.T) {
		plan := &nutriagent.MealPlan{Meals: []nutriagent.MealCandidate{
			{Slot: "lunch", Items: []nutriagent.ItemPortion{
				{FoodID: "salmon", Grams: 40},
				{FoodID: "brown_rice", Grams: 30},
			}},
		}}
		cons := nutriagent.Constraints{DailyBudget: 0.2}

		o.trimToBudget(plan, cons)
		require.NoError(t, plan.Recompute(testCatalog()))

		require.True(t, plan.IsValid())
		require.Len(t, plan.Meals[0].Items, 1)
		assert.Equal(t, "brown_rice", plan.Meals[0].Items[0].FoodID)
		assert.Equal(t, float64(minPortionGrams), plan.Meals[0].Items[0].Grams)
	})
}

func TestOptimizeInfeasibleNamesConstraint(t *testing.T) {
	t.Run("restriction empties the pool", func(t *testing.T) {
		cons := testConstraints()
		// Only salmon is tagged pescatarian; the fish allergy removes it, so
		// the pescatarian filter is what empties the pool.
		cons.Allergens = []string{"fish"}
		cons.Restrictions = []nutriagent.DietaryRestriction{nutriagent.Pescatarian}

		o := newTestOptimizer(DefaultConfig())
		_, err := o.Optimize(context.Background(), nutriagent.UserProfile{Name: "Ana"}, cons)

		var infeasible *nutriagent.InfeasiblePlanError
		require.ErrorAs(t, err, &infeasible)
		assert.Equal(t, "pescatarian", infeasible.Constraint)
	})

	t.Run("allergens empty the pool", func(t *testing.T) {
		cat := catalog.New([]nutriagent.FoodItem{
			{ID: "peanuts", Name: "Peanuts", Category: "fat", Allergens: []string{"nuts"}},
			{ID: "walnuts", Name: "Walnuts", Category: "fat", Allergens: []string{"nuts"}},
		})
		cons := testConstraints()
		cons.Allergens = []string{"nuts"}

		o := New(cat, scoring.NewStaticScorer(), DefaultConfig())
		_, err := o.Optimize(context.Background(), nutriagent.UserProfile{Name: "Ana"}, cons)

		var infeasible *nutriagent.InfeasiblePlanError
		require.ErrorAs(t, err, &infeasible)
		assert.Equal(t, "allergens", infeasible.Constraint)
	})
}

func TestOptimizeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOptimizer(DefaultConfig())
	_, err := o.Optimize(ctx, nutriagent.UserProfile{Name: "Ana"}, testConstraints())

	var cancelled *nutriagent.RequestCancelledError
	require.ErrorAs(t, err, &cancelled)
	assert.Equal(t, nutriagent.StageOptimize, cancelled.Stage)
}

func TestCompliancePool(t *testing.T) {
	cat := testCatalog()

	t.Run("keto threshold", func(t *testing.T) {
		pool, err := CompliancePool(cat, nutriagent.Constraints{
			Restrictions: []nutriagent.DietaryRestriction{nutriagent.Keto},
		})
		require.NoError(t, err)
		for _, it := range pool {
			assert.Less(t, it.CarbsG, 5.0, "item %s", it.ID)
		}
	})

	t.Run("deterministic order", func(t *testing.T) {
		first, err := CompliancePool(cat, nutriagent.Constraints{})
		require.NoError(t, err)
		second, err := CompliancePool(cat, nutriagent.Constraints{})
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestRepair(t *testing.T) {
	cat := testCatalog()
	cons := nutriagent.Constraints{Restrictions: []nutriagent.DietaryRestriction{nutriagent.Vegetarian}}
	pool, err := CompliancePool(cat, cons)
	require.NoError(t, err)

	plan := &nutriagent.MealPlan{Meals: []nutriagent.MealCandidate{
		{Slot: "lunch", Items: []nutriagent.ItemPortion{
			{FoodID: "chicken_breast", Grams: 150}, // not vegetarian
			{FoodID: "brown_rice", Grams: 900},     // over the portion cap
		}},
	}}

	Repair(plan, pool, cat)

	require.Len(t, plan.Meals[0].Items, 2)
	sub, err := cat.Get(plan.Meals[0].Items[0].FoodID)
	require.NoError(t, err)
	assert.True(t, sub.HasTag("vegetarian"))
	assert.Equal(t, "protein", sub.Category)
	assert.Equal(t, 400.0, plan.Meals[0].Items[1].Grams)
}
