// Package scoring provides PreferenceScorer implementations. The static
// scorer is fully deterministic and used by the optimizer's default path and
// tests; the Bedrock scorer asks a model for a satisfaction estimate.
package scoring

import (
	"context"
	"strings"

	"nutriagent"
)

// StaticScorer scores items from the profile alone. Scores land on the same
// 1..5 scale a model-backed scorer produces.
type StaticScorer struct{}

func NewStaticScorer() *StaticScorer {
	return &StaticScorer{}
}

func (s *StaticScorer) Score(ctx context.Context, profile nutriagent.UserProfile, item nutriagent.FoodItem) (float64, error) {
	score := 3.0

	for _, f := range profile.PreferredFoods {
		if f == item.ID || strings.EqualFold(f, item.Name) {
			score += 1.5
		}
	}
	for _, f := range profile.AvoidedFoods {
		if f == item.ID || strings.EqualFold(f, item.Name) {
			score -= 2
		}
	}
	for _, d := range profile.Dislikes {
		if strings.EqualFold(d, item.Name) || item.Category == d {
			score -= 1
		}
	}
	for _, c := range profile.CuisinePreferences {
		if item.CuisineType != "" && strings.EqualFold(c, item.CuisineType) {
			score += 0.5
		}
	}

	if score < 1 {
		score = 1
	}
	if score > 5 {
		score = 5
	}
	return score, nil
}
