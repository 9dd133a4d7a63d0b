package adaptation

import (
	"time"

	"nutriagent"
)

// Detection carries what a trigger's predicate observed. Exceedance and Span
// feed the default confidence calculation.
type Detection struct {
	Observed   float64
	Exceedance float64
	Span       float64
}

// Trigger is one registered adaptation rule. Lower Priority fires first.
type Trigger struct {
	ID           string
	Priority     int
	Cooldown     time.Duration
	Predicate    func(window nutriagent.BiometricStream) (Detection, bool)
	Mutate       func(plan *nutriagent.MealPlan, cat nutriagent.Catalog, det Detection) []nutriagent.PlanChange
	ConfidenceFn func(det Detection) float64
}

// DefaultConfidence maps the exceedance linearly onto [0,1] over the
// trigger's span.
func DefaultConfidence(det Detection) float64 {
	if det.Span <= 0 {
		return 1
	}
	c := det.Exceedance / det.Span
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Thresholds configure the built-in triggers.
type Thresholds struct {
	GlucoseHighMgDl   float64
	GlucoseSevereMgDl float64
	StepsLow          int
	SleepPoorHours    float64
	HeartRateHigh     int
	WeightDeltaKg     float64
	GlucoseCooldown   time.Duration
	DefaultCooldown   time.Duration
}

// DefaultThresholds matches the analyzer's clinical defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		GlucoseHighMgDl:   140,
		GlucoseSevereMgDl: 160,
		StepsLow:          5000,
		SleepPoorHours:    6,
		HeartRateHigh:     100,
		WeightDeltaKg:     2,
		GlucoseCooldown:   2 * time.Hour,
		DefaultCooldown:   6 * time.Hour,
	}
}

// BuiltinTriggers returns the standard trigger table in priority order.
func BuiltinTriggers(th Thresholds) []Trigger {
	return []Trigger{
		{
			ID:       "glucose_spike",
			Priority: 1,
			Cooldown: th.GlucoseCooldown,
			Predicate: func(window nutriagent.BiometricStream) (Detection, bool) {
				peak, ok := maxGlucose(window)
				if !ok || peak <= th.GlucoseHighMgDl {
					return Detection{}, false
				}
				return Detection{Observed: peak, Exceedance: peak - th.GlucoseHighMgDl, Span: 60}, true
			},
			Mutate: func(plan *nutriagent.MealPlan, cat nutriagent.Catalog, det Detection) []nutriagent.PlanChange {
				carbFactor := 0.8
				if det.Observed > th.GlucoseSevereMgDl {
					carbFactor = 0.7
				}
				changes := ScaleMacro(plan, cat, "carbs", carbFactor)
				changes = append(changes, ScaleMacro(plan, cat, "protein", 1.1)...)
				return changes
			},
			ConfidenceFn: DefaultConfidence,
		},
		{
			ID:       "sleep_debt",
			Priority: 2,
			Cooldown: th.DefaultCooldown,
			Predicate: func(window nutriagent.BiometricStream) (Detection, bool) {
				avg, ok := meanSleep(window)
				if !ok || avg >= th.SleepPoorHours {
					return Detection{}, false
				}
				return Detection{Observed: avg, Exceedance: th.SleepPoorHours - avg, Span: 3}, true
			},
			Mutate: func(plan *nutriagent.MealPlan, cat nutriagent.Catalog, det Detection) []nutriagent.PlanChange {
				changes := ScaleMacro(plan, cat, "protein", 1.15)
				changes = append(changes, ScaleMacro(plan, cat, "carbs", 0.95)...)
				return changes
			},
			ConfidenceFn: DefaultConfidence,
		},
		{
			ID:       "low_activity",
			Priority: 3,
			Cooldown: th.DefaultCooldown,
			Predicate: func(window nutriagent.BiometricStream) (Detection, bool) {
				avg, ok := meanSteps(window)
				if !ok || avg >= float64(th.StepsLow) {
					return Detection{}, false
				}
				return Detection{Observed: avg, Exceedance: float64(th.StepsLow) - avg, Span: float64(th.StepsLow)}, true
			},
			Mutate: func(plan *nutriagent.MealPlan, cat nutriagent.Catalog, det Detection) []nutriagent.PlanChange {
				return ScalePortions(plan, 0.85, "reduced all portions for low activity")
			},
			ConfidenceFn: DefaultConfidence,
		},
		{
			ID:       "elevated_stress",
			Priority: 4,
			Cooldown: th.DefaultCooldown,
			Predicate: func(window nutriagent.BiometricStream) (Detection, bool) {
				avg, ok := meanHeartRate(window)
				if !ok || avg <= float64(th.HeartRateHigh) {
					return Detection{}, false
				}
				return Detection{Observed: avg, Exceedance: avg - float64(th.HeartRateHigh), Span: 40}, true
			},
			Mutate: func(plan *nutriagent.MealPlan, cat nutriagent.Catalog, det Detection) []nutriagent.PlanChange {
				return ScalePortions(plan, 0.95, "eased portions for elevated stress")
			},
			ConfidenceFn: DefaultConfidence,
		},
		{
			ID:       "weight_change",
			Priority: 5,
			Cooldown: th.DefaultCooldown,
			Predicate: func(window nutriagent.BiometricStream) (Detection, bool) {
				delta, ok := weightDelta(window)
				if !ok || (delta <= th.WeightDeltaKg && delta >= -th.WeightDeltaKg) {
					return Detection{}, false
				}
				exceed := delta - th.WeightDeltaKg
				if delta < 0 {
					exceed = -delta - th.WeightDeltaKg
				}
				return Detection{Observed: delta, Exceedance: exceed, Span: th.WeightDeltaKg * 2}, true
			},
			Mutate: func(plan *nutriagent.MealPlan, cat nutriagent.Catalog, det Detection) []nutriagent.PlanChange {
				if det.Observed > 0 {
					return ScalePortions(plan, 0.9, "reduced portions after weight gain")
				}
				return ScalePortions(plan, 1.05, "increased portions after weight loss")
			},
			ConfidenceFn: DefaultConfidence,
		},
	}
}

func maxGlucose(window nutriagent.BiometricStream) (float64, bool) {
	var peak float64
	found := false
	for _, r := range window {
		if r.GlucoseMgDl == nil {
			continue
		}
		if !found || *r.GlucoseMgDl > peak {
			peak = *r.GlucoseMgDl
		}
		found = true
	}
	return peak, found
}

func meanSleep(window nutriagent.BiometricStream) (float64, bool) {
	var sum float64
	n := 0
	for _, r := range window {
		if r.SleepHours != nil {
			sum += *r.SleepHours
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func meanSteps(window nutriagent.BiometricStream) (float64, bool) {
	var sum float64
	n := 0
	for _, r := range window {
		if r.Steps != nil {
			sum += float64(*r.Steps)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func meanHeartRate(window nutriagent.BiometricStream) (float64, bool) {
	var sum float64
	n := 0
	for _, r := range window {
		if r.HeartRate != nil {
			sum += float64(*r.HeartRate)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func weightDelta(window nutriagent.BiometricStream) (float64, bool) {
	var first, last float64
	n := 0
	for _, r := range window {
		if r.WeightKg == nil {
			continue
		}
		if n == 0 {
			first = *r.WeightKg
		}
		last = *r.WeightKg
		n++
	}
	if n < 2 {
		return 0, false
	}
	return last - first, true
}
