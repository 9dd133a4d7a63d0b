// Package analyzer derives a HealthSignal from a user profile and biometric
// stream using trend statistics and a configurable threshold table. It is
// deterministic: the observation window is anchored to the latest reading,
// never to the wall clock.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"nutriagent"
)

// Risk flag names produced by the analyzer.
const (
	FlagGlucoseSpike       = "glucose_spike"
	FlagGlucoseTrendRising = "glucose_trend_rising"
	FlagLowActivity        = "low_activity"
	FlagSleepDebt          = "sleep_debt"
	FlagElevatedStress     = "elevated_stress"
	FlagWeightChange       = "weight_change"
	FlagCarbSensitive      = "carb_sensitive"
	FlagSlowCaffeine       = "slow_caffeine_metabolizer"
)

// Thresholds is the analyzer's configuration. Values are supplied externally;
// the zero value is unusable, use DefaultThresholds.
type Thresholds struct {
	GlucoseHighMgDl float64
	GlucoseLowMgDl  float64
	StepsLow        int
	SleepPoorHours  float64
	HeartRateHigh   int
	WeightDeltaKg   float64
	Window          time.Duration
}

// DefaultThresholds returns the standard clinical-ish defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		GlucoseHighMgDl: 140,
		GlucoseLowMgDl:  70,
		StepsLow:        5000,
		SleepPoorHours:  6,
		HeartRateHigh:   100,
		WeightDeltaKg:   2,
		Window:          7 * 24 * time.Hour,
	}
}

// Analyzer computes HealthSignals. One instance is safe for concurrent use;
// it holds no per-request state.
type Analyzer struct {
	thresholds      Thresholds
	demographicOnly bool // allow fallback when the stream is empty
}

// New creates an analyzer. allowFallback controls whether an empty stream
// degrades to demographic-only estimation instead of failing.
func New(thresholds Thresholds, allowFallback bool) *Analyzer {
	return &Analyzer{thresholds: thresholds, demographicOnly: allowFallback}
}

// Analyze produces the HealthSignal for one request.
func (a *Analyzer) Analyze(ctx context.Context, profile nutriagent.UserProfile, stream nutriagent.BiometricStream) (*nutriagent.HealthSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, &nutriagent.RequestCancelledError{Stage: nutriagent.StageAnalyze}
	}

	if len(stream) == 0 {
		if !a.demographicOnly {
			return nil, &nutriagent.InsufficientDataError{Message: "stream has zero readings and demographic fallback is disabled"}
		}
		slog.Info("ANALYZER: No biometric data, falling back to demographic estimation", "user", profile.Name)
		return a.demographicSignal(profile), nil
	}

	latest, _ := stream.Latest()
	window := stream.Window(latest.Timestamp.Add(-a.thresholds.Window))

	flags := map[string]bool{}
	adjustment := 1.0

	glucose := series(window, func(r nutriagent.BiometricReading) (float64, bool) {
		if r.GlucoseMgDl == nil {
			return 0, false
		}
		return *r.GlucoseMgDl, true
	})
	if len(glucose) > 0 {
		if maxOf(glucose) > a.thresholds.GlucoseHighMgDl {
			flags[FlagGlucoseSpike] = true
			adjustment *= 0.98
		}
		if len(glucose) >= 3 && slope(glucose) > 0.5 && mean(glucose) > 100 {
			flags[FlagGlucoseTrendRising] = true
		}
	}

	steps := series(window, func(r nutriagent.BiometricReading) (float64, bool) {
		if r.Steps == nil {
			return 0, false
		}
		return float64(*r.Steps), true
	})
	if len(steps) > 0 && mean(steps) < float64(a.thresholds.StepsLow) {
		flags[FlagLowActivity] = true
		adjustment *= 0.92
	}

	sleep := series(window, func(r nutriagent.BiometricReading) (float64, bool) {
		if r.SleepHours == nil {
			return 0, false
		}
		return *r.SleepHours, true
	})
	if len(sleep) > 0 && mean(sleep) < a.thresholds.SleepPoorHours {
		flags[FlagSleepDebt] = true
		adjustment *= 0.97
	}

	heartRate := series(window, func(r nutriagent.BiometricReading) (float64, bool) {
		if r.HeartRate == nil {
			return 0, false
		}
		return float64(*r.HeartRate), true
	})
	if len(heartRate) > 0 && mean(heartRate) > float64(a.thresholds.HeartRateHigh) {
		flags[FlagElevatedStress] = true
	}

	weight := series(window, func(r nutriagent.BiometricReading) (float64, bool) {
		if r.WeightKg == nil {
			return 0, false
		}
		return *r.WeightKg, true
	})
	if len(weight) >= 2 {
		delta := weight[len(weight)-1] - weight[0]
		if delta > a.thresholds.WeightDeltaKg {
			flags[FlagWeightChange] = true
			adjustment *= 0.95
		} else if delta < -a.thresholds.WeightDeltaKg {
			flags[FlagWeightChange] = true
			adjustment *= 1.05
		}
	}

	hints := traitHints(profile.GeneticTraits, flags)

	signal := &nutriagent.HealthSignal{
		MetabolicAdjustment: adjustment,
		RiskFlags:           sortedFlags(flags),
		Confidence:          confidence(len(window), glucose, steps, sleep, heartRate, weight),
		TraitHints:          hints,
	}

	slog.Info("ANALYZER: Signal computed",
		"user", profile.Name,
		"readings", len(window),
		"risk_flags", signal.RiskFlags,
		"confidence", fmt.Sprintf("%.2f", signal.Confidence),
	)

	return signal, nil
}

// demographicSignal estimates from the activity level alone and lowers the
// personalization confidence accordingly.
func (a *Analyzer) demographicSignal(profile nutriagent.UserProfile) *nutriagent.HealthSignal {
	adjustment := 1.0
	switch profile.ActivityLevel {
	case nutriagent.Sedentary:
		adjustment = 0.95
	case nutriagent.VeryActive, nutriagent.ExtremelyActive:
		adjustment = 1.05
	}
	return &nutriagent.HealthSignal{
		MetabolicAdjustment: adjustment,
		RiskFlags:           []string{},
		Confidence:          0.25,
		TraitHints:          traitHints(profile.GeneticTraits, map[string]bool{}),
	}
}

// traitHints maps the known genetic trait tags onto hints; unknown tags pass
// through untouched.
func traitHints(traits []string, flags map[string]bool) []string {
	hints := make([]string, 0, len(traits))
	for _, t := range traits {
		switch t {
		case FlagCarbSensitive:
			flags[FlagCarbSensitive] = true
		case FlagSlowCaffeine:
			flags[FlagSlowCaffeine] = true
		}
		hints = append(hints, t)
	}
	return hints
}

// confidence grows with the number of distinct metrics observed and with the
// reading count, capped below 1 so demographic-default data never looks
// fully personalized.
func confidence(readings int, metricSeries ...[]float64) float64 {
	observed := 0
	for _, s := range metricSeries {
		if len(s) > 0 {
			observed++
		}
	}
	c := 0.4 + 0.1*float64(observed)
	if readings < 3 {
		c *= 0.7
	}
	if c > 0.95 {
		c = 0.95
	}
	return c
}

func series(stream nutriagent.BiometricStream, pick func(nutriagent.BiometricReading) (float64, bool)) []float64 {
	out := make([]float64, 0, len(stream))
	for _, r := range stream {
		if v, ok := pick(r); ok {
			out = append(out, v)
		}
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// slope is the least-squares slope of values over their index.
func slope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func sortedFlags(flags map[string]bool) []string {
	out := make([]string, 0, len(flags))
	for f := range flags {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
