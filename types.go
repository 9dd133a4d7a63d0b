package nutriagent

import (
	"context"
	"sort"
	"time"
)

// ActivityLevel captures habitual activity for energy-expenditure estimates.
type ActivityLevel string

const (
	Sedentary        ActivityLevel = "sedentary"
	LightlyActive    ActivityLevel = "lightly_active"
	ModeratelyActive ActivityLevel = "moderately_active"
	VeryActive       ActivityLevel = "very_active"
	ExtremelyActive  ActivityLevel = "extremely_active"
)

// Multiplier returns the TDEE activity multiplier for the level. Unknown
// levels fall back to moderately active.
func (a ActivityLevel) Multiplier() float64 {
	switch a {
	case Sedentary:
		return 1.2
	case LightlyActive:
		return 1.375
	case ModeratelyActive:
		return 1.55
	case VeryActive:
		return 1.725
	case ExtremelyActive:
		return 1.9
	default:
		return 1.55
	}
}

// DietaryRestriction is a named dietary regime a plan must comply with.
type DietaryRestriction string

const (
	Vegetarian  DietaryRestriction = "vegetarian"
	Vegan       DietaryRestriction = "vegan"
	Pescatarian DietaryRestriction = "pescatarian"
	Keto        DietaryRestriction = "keto"
	Paleo       DietaryRestriction = "paleo"
	LowCarb     DietaryRestriction = "low_carb"
	LowFat      DietaryRestriction = "low_fat"
	GlutenFree  DietaryRestriction = "gluten_free"
	DairyFree   DietaryRestriction = "dairy_free"
)

// UserProfile is the immutable per-request description of the user.
type UserProfile struct {
	Name     string  `json:"name"`
	Age      int     `json:"age"`
	Sex      string  `json:"sex"`
	WeightKg float64 `json:"weight_kg"`
	HeightCm float64 `json:"height_cm"`

	ActivityLevel ActivityLevel `json:"activity_level"`
	DailyBudget   float64       `json:"daily_budget,omitempty"`

	DietaryRestrictions []DietaryRestriction `json:"dietary_restrictions,omitempty"`
	Allergies           []string             `json:"allergies,omitempty"`
	Dislikes            []string             `json:"dislikes,omitempty"`
	CuisinePreferences  []string             `json:"cuisine_preferences,omitempty"`
	PreferredFoods      []string             `json:"preferred_foods,omitempty"`
	AvoidedFoods        []string             `json:"avoided_foods,omitempty"`
	MaxPrepTimeMinutes  int                  `json:"max_preparation_time,omitempty"`
	GeneticTraits       []string             `json:"genetic_traits,omitempty"`
}

// Validate checks the required profile fields.
func (p *UserProfile) Validate() error {
	switch {
	case p.Name == "":
		return &ValidationError{Field: "name", Message: "name is required"}
	case p.Age <= 0 || p.Age > 130:
		return &ValidationError{Field: "age", Message: "age must be between 1 and 130"}
	case p.WeightKg <= 0:
		return &ValidationError{Field: "weight_kg", Message: "weight must be positive"}
	case p.HeightCm <= 0:
		return &ValidationError{Field: "height_cm", Message: "height must be positive"}
	}
	return nil
}

// BiometricReading is a point sample from a wearable or manual entry. All
// measurement fields are optional; absent fields are nil.
type BiometricReading struct {
	Timestamp   time.Time `json:"timestamp"`
	GlucoseMgDl *float64  `json:"glucose_mg_dl,omitempty"`
	HeartRate   *int      `json:"heart_rate,omitempty"`
	SleepHours  *float64  `json:"sleep_hours,omitempty"`
	Steps       *int      `json:"steps,omitempty"`
	WeightKg    *float64  `json:"weight_kg,omitempty"`
	SystolicBP  *int      `json:"blood_pressure_systolic,omitempty"`
	DiastolicBP *int      `json:"blood_pressure_diastolic,omitempty"`
}

// BiometricStream is a time-ordered sequence of readings, append-only for the
// duration of a session.
type BiometricStream []BiometricReading

// Append returns the stream with r added, keeping timestamp order.
func (s BiometricStream) Append(r BiometricReading) BiometricStream {
	out := append(s, r)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// Latest returns the most recent reading, if any.
func (s BiometricStream) Latest() (BiometricReading, bool) {
	if len(s) == 0 {
		return BiometricReading{}, false
	}
	return s[len(s)-1], true
}

// Window returns the readings observed at or after cutoff.
func (s BiometricStream) Window(cutoff time.Time) BiometricStream {
	out := make(BiometricStream, 0, len(s))
	for _, r := range s {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// HealthSignal is the read-only analysis summary produced once per request.
type HealthSignal struct {
	MetabolicAdjustment float64  `json:"metabolic_adjustment"`
	RiskFlags           []string `json:"risk_flags"`
	Confidence          float64  `json:"confidence"`
	TraitHints          []string `json:"trait_hints,omitempty"`
}

// HasFlag reports whether the signal carries the named risk flag.
func (h *HealthSignal) HasFlag(name string) bool {
	for _, f := range h.RiskFlags {
		if f == name {
			return true
		}
	}
	return false
}

// FoodItem is a catalog entry. Nutrition and cost are per 100g.
type FoodItem struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	CuisineType     string   `json:"cuisine_type,omitempty"`
	CaloriesPer100g float64  `json:"calories_per_100g"`
	ProteinG        float64  `json:"protein_g"`
	CarbsG          float64  `json:"carbs_g"`
	FatG            float64  `json:"fat_g"`
	FiberG          float64  `json:"fiber_g,omitempty"`
	CostPer100g     float64  `json:"cost_per_100g"`
	Allergens       []string `json:"allergens,omitempty"`
	DietaryTags     []string `json:"dietary_tags,omitempty"`
	PrepTimeMinutes int      `json:"preparation_time,omitempty"`
}

// HasAllergen reports whether the item carries the named allergen tag.
func (f FoodItem) HasAllergen(name string) bool {
	for _, a := range f.Allergens {
		if a == name {
			return true
		}
	}
	return false
}

// HasTag reports whether the item carries the named dietary tag.
func (f FoodItem) HasTag(name string) bool {
	for _, t := range f.DietaryTags {
		if t == name {
			return true
		}
	}
	return false
}

// Catalog is the read-only food catalog view shared across requests.
type Catalog interface {
	Get(id string) (FoodItem, error)
	Search(tags []string, excludeAllergens []string) []FoodItem
	All() []FoodItem
}

// ItemPortion assigns a quantity of a catalog item to a meal.
type ItemPortion struct {
	FoodID string  `json:"food_id"`
	Grams  float64 `json:"grams"`
}

// MealCandidate assigns item portions to one meal slot. Nutrition and cost
// are always derived from the catalog, never stored on the candidate.
type MealCandidate struct {
	Slot  string        `json:"slot"`
	Items []ItemPortion `json:"items"`
}

// Nutrition is an aggregate of calories, macros, cost and prep time.
type Nutrition struct {
	Calories        float64 `json:"calories"`
	ProteinG        float64 `json:"protein_g"`
	CarbsG          float64 `json:"carbs_g"`
	FatG            float64 `json:"fat_g"`
	Cost            float64 `json:"cost"`
	PrepTimeMinutes int     `json:"preparation_time_minutes"`
}

// Add accumulates o into n.
func (n *Nutrition) Add(o Nutrition) {
	n.Calories += o.Calories
	n.ProteinG += o.ProteinG
	n.CarbsG += o.CarbsG
	n.FatG += o.FatG
	n.Cost += o.Cost
	n.PrepTimeMinutes += o.PrepTimeMinutes
}

// Nutrition computes the candidate's aggregate from the catalog.
func (m MealCandidate) Nutrition(cat Catalog) (Nutrition, error) {
	var out Nutrition
	for _, it := range m.Items {
		food, err := cat.Get(it.FoodID)
		if err != nil {
			return Nutrition{}, err
		}
		scale := it.Grams / 100
		out.Calories += food.CaloriesPer100g * scale
		out.ProteinG += food.ProteinG * scale
		out.CarbsG += food.CarbsG * scale
		out.FatG += food.FatG * scale
		out.Cost += food.CostPer100g * scale
		if food.PrepTimeMinutes > out.PrepTimeMinutes {
			out.PrepTimeMinutes = food.PrepTimeMinutes
		}
	}
	return out, nil
}

// MealPlan is an ordered sequence of meal candidates plus aggregate totals.
// Totals are recomputed from the candidates; callers must not set them
// directly.
type MealPlan struct {
	Meals  []MealCandidate `json:"meals"`
	Totals Nutrition       `json:"totals"`
}

// Recompute refreshes Totals from the current candidates so the aggregate
// always equals the sum.
func (p *MealPlan) Recompute(cat Catalog) error {
	var totals Nutrition
	for _, m := range p.Meals {
		n, err := m.Nutrition(cat)
		if err != nil {
			return err
		}
		totals.Add(n)
	}
	p.Totals = totals
	return nil
}

// Clone returns a deep copy of the plan.
func (p *MealPlan) Clone() *MealPlan {
	out := &MealPlan{Meals: make([]MealCandidate, len(p.Meals)), Totals: p.Totals}
	for i, m := range p.Meals {
		items := make([]ItemPortion, len(m.Items))
		copy(items, m.Items)
		out.Meals[i] = MealCandidate{Slot: m.Slot, Items: items}
	}
	return out
}

// IsValid checks the plan's basic shape: at least one meal, every meal has at
// least one item, every item has a positive portion.
func (p *MealPlan) IsValid() bool {
	if len(p.Meals) == 0 {
		return false
	}
	for _, m := range p.Meals {
		if m.Slot == "" || len(m.Items) == 0 {
			return false
		}
		for _, it := range m.Items {
			if it.FoodID == "" || it.Grams <= 0 {
				return false
			}
		}
	}
	return true
}

// NutritionTarget is the precomputed daily target the optimizer aims for.
// The core consumes it; computing BMR/TDEE lives outside the core.
type NutritionTarget struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// Constraints bound the search for a plan.
type Constraints struct {
	MealSlots    []string             `json:"meal_slots"`
	Target       NutritionTarget      `json:"target"`
	DailyBudget  float64              `json:"daily_budget"`
	Allergens    []string             `json:"allergens,omitempty"`
	Restrictions []DietaryRestriction `json:"restrictions,omitempty"`
	MaxPrepTime  int                  `json:"max_preparation_time,omitempty"`
}

// PlanChange is one declarative structural change applied to a plan during
// adaptation, auditable and reversible from the recorded fields.
type PlanChange struct {
	Op          string  `json:"op"` // scale_macro, scale_portion, substitute_item
	Slot        string  `json:"slot,omitempty"`
	Macro       string  `json:"macro,omitempty"`
	Factor      float64 `json:"factor,omitempty"`
	FromFoodID  string  `json:"from_food_id,omitempty"`
	ToFoodID    string  `json:"to_food_id,omitempty"`
	Description string  `json:"description"`
}

// AdaptationEvent records one trigger firing and the changes it applied.
type AdaptationEvent struct {
	TriggerID  string       `json:"trigger_id"`
	FiredAt    time.Time    `json:"fired_at"`
	Confidence float64      `json:"confidence"`
	Changes    []PlanChange `json:"changes"`
}

// CooldownState tracks the last-fired time per trigger for one session. The
// coordinator serializes the adapt stage per session, so the engine reads and
// writes the map without further locking.
type CooldownState map[string]time.Time

// Status describes the overall outcome of a plan request.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Stage names used for failure annotation and timeouts.
const (
	StageAnalyze  = "analyze"
	StageOptimize = "optimize"
	StageAdapt    = "adapt"
)

// PlanRequest is the input schema exposed to the surrounding transport layer.
type PlanRequest struct {
	Profile     UserProfile        `json:"profile"`
	Constraints Constraints        `json:"constraints"`
	Readings    []BiometricReading `json:"biometric_readings"`
}

// PlanResult is the output schema exposed to the surrounding transport layer.
type PlanResult struct {
	Plan         *MealPlan         `json:"plan,omitempty"`
	Adaptations  []AdaptationEvent `json:"adaptations"`
	HealthSignal *HealthSignal     `json:"health_signal,omitempty"`
	Status       Status            `json:"status"`
	FailureStage string            `json:"failure_stage,omitempty"`
	Notes        []string          `json:"notes,omitempty"`
}

// PreferenceScorer is the pluggable satisfaction-scoring seam. Scores are on
// a 1..5 scale; implementations outside the core may be model-backed.
type PreferenceScorer interface {
	Score(ctx context.Context, profile UserProfile, item FoodItem) (float64, error)
}

// Notifier posts a finished plan somewhere a human will see it.
type Notifier interface {
	PostMessage(ctx context.Context, channel string, message string) error
}
