package optimizer

import (
	"fmt"
	"sort"

	"nutriagent"
)

// CompliancePool returns the catalog items usable under the given hard
// constraints, ordered by id. Filters apply sequentially so an infeasible
// result names the constraint that emptied the pool.
func CompliancePool(cat nutriagent.Catalog, cons nutriagent.Constraints) ([]nutriagent.FoodItem, error) {
	pool := cat.All()

	if len(cons.Allergens) > 0 {
		pool = filter(pool, func(it nutriagent.FoodItem) bool {
			for _, a := range cons.Allergens {
				if it.HasAllergen(a) {
					return false
				}
			}
			return true
		})
		if len(pool) == 0 {
			return nil, &nutriagent.InfeasiblePlanError{
				Constraint: "allergens",
				Message:    fmt.Sprintf("no catalog item is free of allergens %v", cons.Allergens),
			}
		}
	}

	for _, r := range cons.Restrictions {
		r := r
		pool = filter(pool, func(it nutriagent.FoodItem) bool { return Complies(it, r) })
		if len(pool) == 0 {
			return nil, &nutriagent.InfeasiblePlanError{
				Constraint: string(r),
				Message:    fmt.Sprintf("no remaining catalog item satisfies restriction %q", r),
			}
		}
	}

	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	return pool, nil
}

// Complies reports whether a single item is admissible under a dietary
// restriction. Tag-based regimes require the matching dietary tag;
// macro-based regimes use per-100g thresholds.
func Complies(it nutriagent.FoodItem, r nutriagent.DietaryRestriction) bool {
	switch r {
	case nutriagent.Vegetarian, nutriagent.Vegan, nutriagent.Pescatarian,
		nutriagent.Paleo, nutriagent.GlutenFree, nutriagent.DairyFree:
		return it.HasTag(string(r))
	case nutriagent.Keto:
		return it.CarbsG < 5
	case nutriagent.LowCarb:
		return it.CarbsG < 15
	case nutriagent.LowFat:
		return it.FatG < 10
	default:
		return true
	}
}

// Repair normalizes a plan in place so it satisfies the hard constraints:
// non-compliant items are substituted with the first compliant item of the
// same category (or dropped when none exists), portions are clamped to the
// allowed bounds, and empty meals get the first pool item. The same input
// always repairs to the same output.
func Repair(plan *nutriagent.MealPlan, pool []nutriagent.FoodItem, cat nutriagent.Catalog) {
	allowed := make(map[string]bool, len(pool))
	for _, it := range pool {
		allowed[it.ID] = true
	}

	for mi := range plan.Meals {
		meal := &plan.Meals[mi]
		kept := meal.Items[:0]
		for _, p := range meal.Items {
			if !allowed[p.FoodID] {
				sub, ok := substitute(p.FoodID, pool, cat)
				if !ok {
					continue
				}
				p.FoodID = sub
			}
			p.Grams = clampGrams(p.Grams)
			kept = append(kept, p)
		}
		meal.Items = kept
		if len(meal.Items) == 0 && len(pool) > 0 {
			meal.Items = []nutriagent.ItemPortion{{FoodID: pool[0].ID, Grams: 100}}
		}
	}
}

// substitute finds the first compliant item (by id) sharing the offending
// item's category.
func substitute(foodID string, pool []nutriagent.FoodItem, cat nutriagent.Catalog) (string, bool) {
	original, err := cat.Get(foodID)
	if err != nil {
		return "", false
	}
	for _, it := range pool {
		if it.Category == original.Category {
			return it.ID, true
		}
	}
	return "", false
}

func clampGrams(g float64) float64 {
	if g < minPortionGrams {
		return minPortionGrams
	}
	if g > maxPortionGrams {
		return maxPortionGrams
	}
	return g
}

func filter(items []nutriagent.FoodItem, keep func(nutriagent.FoodItem) bool) []nutriagent.FoodItem {
	out := make([]nutriagent.FoodItem, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
