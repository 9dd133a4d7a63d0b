package adaptation

import (
	"fmt"

	"nutriagent"
)

// ScaleMacro scales the portions of items whose dominant calorie source is
// the named macro (protein, carbs or fat). Each touched slot yields one
// recorded change.
func ScaleMacro(plan *nutriagent.MealPlan, cat nutriagent.Catalog, macro string, factor float64) []nutriagent.PlanChange {
	var changes []nutriagent.PlanChange
	for mi := range plan.Meals {
		meal := &plan.Meals[mi]
		touched := false
		for ii := range meal.Items {
			it, err := cat.Get(meal.Items[ii].FoodID)
			if err != nil {
				continue
			}
			if dominantMacro(it) != macro {
				continue
			}
			meal.Items[ii].Grams *= factor
			touched = true
		}
		if touched {
			changes = append(changes, nutriagent.PlanChange{
				Op:          "scale_macro",
				Slot:        meal.Slot,
				Macro:       macro,
				Factor:      factor,
				Description: fmt.Sprintf("scaled %s-dominant items in %s by %.2f", macro, meal.Slot, factor),
			})
		}
	}
	return changes
}

// ScalePortions scales every portion in the plan by factor.
func ScalePortions(plan *nutriagent.MealPlan, factor float64, description string) []nutriagent.PlanChange {
	for mi := range plan.Meals {
		for ii := range plan.Meals[mi].Items {
			plan.Meals[mi].Items[ii].Grams *= factor
		}
	}
	return []nutriagent.PlanChange{{
		Op:          "scale_portion",
		Factor:      factor,
		Description: description,
	}}
}

// SubstituteItem swaps every portion of one food for another within the
// named slot (or all slots when slot is empty), preserving portion sizes.
func SubstituteItem(plan *nutriagent.MealPlan, slot, fromID, toID string) []nutriagent.PlanChange {
	touched := false
	for mi := range plan.Meals {
		meal := &plan.Meals[mi]
		if slot != "" && meal.Slot != slot {
			continue
		}
		for ii := range meal.Items {
			if meal.Items[ii].FoodID == fromID {
				meal.Items[ii].FoodID = toID
				touched = true
			}
		}
	}
	if !touched {
		return nil
	}
	return []nutriagent.PlanChange{{
		Op:          "substitute_item",
		Slot:        slot,
		FromFoodID:  fromID,
		ToFoodID:    toID,
		Description: fmt.Sprintf("substituted %s with %s", fromID, toID),
	}}
}

// dominantMacro classifies an item by its largest calorie contribution
// per 100g (4 kcal/g for protein and carbs, 9 kcal/g for fat).
func dominantMacro(it nutriagent.FoodItem) string {
	protein := it.ProteinG * 4
	carbs := it.CarbsG * 4
	fat := it.FatG * 9

	switch {
	case carbs >= protein && carbs >= fat:
		return "carbs"
	case protein >= fat:
		return "protein"
	default:
		return "fat"
	}
}
