// Package metabolism estimates daily energy needs and converts them into a
// nutrition target. Formulas follow Mifflin-St Jeor (default), Harris-Benedict
// and Katch-McArdle.
package metabolism

import (
	"nutriagent"
)

// Goal shifts the calorie target relative to maintenance.
type Goal string

const (
	GoalMaintain Goal = "maintain"
	GoalLose     Goal = "lose"
	GoalGain     Goal = "gain"
)

// Macro calorie split applied to the calorie target.
const (
	proteinShare = 0.25
	carbShare    = 0.45
	fatShare     = 0.30
)

// BMR estimates basal metabolic rate with Mifflin-St Jeor.
func BMR(p nutriagent.UserProfile) float64 {
	base := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	if p.Sex == "male" {
		return base + 5
	}
	return base - 161
}

// BMRHarrisBenedict estimates basal metabolic rate with the revised
// Harris-Benedict equation.
func BMRHarrisBenedict(p nutriagent.UserProfile) float64 {
	if p.Sex == "male" {
		return 88.362 + 13.397*p.WeightKg + 4.799*p.HeightCm - 5.677*float64(p.Age)
	}
	return 447.593 + 9.247*p.WeightKg + 3.098*p.HeightCm - 4.330*float64(p.Age)
}

// BMRKatchMcArdle estimates basal metabolic rate from lean body mass. It
// falls back to Mifflin-St Jeor when body fat is unknown (non-positive).
func BMRKatchMcArdle(p nutriagent.UserProfile, bodyFatPercent float64) float64 {
	if bodyFatPercent <= 0 || bodyFatPercent >= 100 {
		return BMR(p)
	}
	lean := p.WeightKg * (1 - bodyFatPercent/100)
	return 370 + 21.6*lean
}

// TDEE is the total daily energy expenditure for the profile's activity
// level.
func TDEE(p nutriagent.UserProfile) float64 {
	return BMR(p) * p.ActivityLevel.Multiplier()
}

// Target converts the profile's energy needs into a daily nutrition target.
// Losing applies a 10 percent deficit, gaining a 10 percent surplus.
func Target(p nutriagent.UserProfile, goal Goal) nutriagent.NutritionTarget {
	calories := TDEE(p)
	switch goal {
	case GoalLose:
		calories *= 0.9
	case GoalGain:
		calories *= 1.1
	}

	return nutriagent.NutritionTarget{
		Calories: calories,
		ProteinG: calories * proteinShare / 4,
		CarbsG:   calories * carbShare / 4,
		FatG:     calories * fatShare / 9,
	}
}
