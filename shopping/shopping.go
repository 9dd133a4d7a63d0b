// Package shopping turns a meal plan into an aggregated shopping list.
package shopping

import (
	"sort"

	"nutriagent"
)

// LineItem is one aggregated entry on the list.
type LineItem struct {
	FoodID   string  `json:"food_id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Grams    float64 `json:"grams"`
	Cost     float64 `json:"cost"`
}

// List is a shopping list for one plan, ordered by category then name.
type List struct {
	Items     []LineItem `json:"items"`
	TotalCost float64    `json:"total_cost"`
}

// FromPlan aggregates every portion in the plan by food item.
func FromPlan(plan *nutriagent.MealPlan, cat nutriagent.Catalog) (*List, error) {
	grams := map[string]float64{}
	for _, m := range plan.Meals {
		for _, p := range m.Items {
			grams[p.FoodID] += p.Grams
		}
	}

	list := &List{Items: make([]LineItem, 0, len(grams))}
	for id, g := range grams {
		it, err := cat.Get(id)
		if err != nil {
			return nil, err
		}
		cost := it.CostPer100g * g / 100
		list.Items = append(list.Items, LineItem{
			FoodID:   id,
			Name:     it.Name,
			Category: it.Category,
			Grams:    g,
			Cost:     cost,
		})
		list.TotalCost += cost
	}

	sort.Slice(list.Items, func(i, j int) bool {
		if list.Items[i].Category != list.Items[j].Category {
			return list.Items[i].Category < list.Items[j].Category
		}
		return list.Items[i].Name < list.Items[j].Name
	})

	return list, nil
}
