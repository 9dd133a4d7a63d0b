package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriagent"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func testProfile() nutriagent.UserProfile {
	return nutriagent.UserProfile{
		Name:          "Ana",
		Age:           34,
		Sex:           "female",
		WeightKg:      62,
		HeightCm:      168,
		ActivityLevel: nutriagent.ModeratelyActive,
	}
}

func readingsAt(base time.Time, build func(i int) nutriagent.BiometricReading, n int) nutriagent.BiometricStream {
	var s nutriagent.BiometricStream
	for i := 0; i < n; i++ {
		r := build(i)
		r.Timestamp = base.Add(time.Duration(i) * 24 * time.Hour)
		s = s.Append(r)
	}
	return s
}

func TestAnalyze(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		stream  nutriagent.BiometricStream
		check   func(t *testing.T, sig *nutriagent.HealthSignal)
		wantErr bool
	}{
		{
			name: "glucose spike flag",
			stream: readingsAt(base, func(i int) nutriagent.BiometricReading {
				return nutriagent.BiometricReading{GlucoseMgDl: fptr(155)}
			}, 3),
			check: func(t *testing.T, sig *nutriagent.HealthSignal) {
				assert.True(t, sig.HasFlag(FlagGlucoseSpike))
				assert.Less(t, sig.MetabolicAdjustment, 1.0)
			},
		},
		{
			name: "rising glucose trend",
			stream: readingsAt(base, func(i int) nutriagent.BiometricReading {
				return nutriagent.BiometricReading{GlucoseMgDl: fptr(100 + float64(i)*8)}
			}, 5),
			check: func(t *testing.T, sig *nutriagent.HealthSignal) {
				assert.True(t, sig.HasFlag(FlagGlucoseTrendRising))
			},
		},
		{
			name: "low activity and sleep debt",
			stream: readingsAt(base, func(i int) nutriagent.BiometricReading {
				return nutriagent.BiometricReading{Steps: iptr(3200), SleepHours: fptr(5.2)}
			}, 4),
			check: func(t *testing.T, sig *nutriagent.HealthSignal) {
				assert.True(t, sig.HasFlag(FlagLowActivity))
				assert.True(t, sig.HasFlag(FlagSleepDebt))
			},
		},
		{
			name: "elevated stress from heart rate",
			stream: readingsAt(base, func(i int) nutriagent.BiometricReading {
				return nutriagent.BiometricReading{HeartRate: iptr(108)}
			}, 3),
			check: func(t *testing.T, sig *nutriagent.HealthSignal) {
				assert.True(t, sig.HasFlag(FlagElevatedStress))
			},
		},
		{
			name: "weight gain flag",
			stream: readingsAt(base, func(i int) nutriagent.BiometricReading {
				return nutriagent.BiometricReading{WeightKg: fptr(70 + float64(i))}
			}, 4),
			check: func(t *testing.T, sig *nutriagent.HealthSignal) {
				assert.True(t, sig.HasFlag(FlagWeightChange))
				assert.Less(t, sig.MetabolicAdjustment, 1.0)
			},
		},
		{
			name: "healthy readings produce no flags",
			stream: readingsAt(base, func(i int) nutriagent.BiometricReading {
				return nutriagent.BiometricReading{
					GlucoseMgDl: fptr(95),
					Steps:       iptr(9000),
					SleepHours:  fptr(7.5),
					HeartRate:   iptr(62),
				}
			}, 5),
			check: func(t *testing.T, sig *nutriagent.HealthSignal) {
				assert.Empty(t, sig.RiskFlags)
				assert.Equal(t, 1.0, sig.MetabolicAdjustment)
				assert.Greater(t, sig.Confidence, 0.5)
			},
		},
	}

	a := New(DefaultThresholds(), false)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := a.Analyze(context.Background(), testProfile(), tt.stream)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, sig)
		})
	}
}

func TestAnalyzeEmptyStream(t *testing.T) {
	t.Run("fallback disabled", func(t *testing.T) {
		a := New(DefaultThresholds(), false)
		_, err := a.Analyze(context.Background(), testProfile(), nil)
		var insufficientErr *nutriagent.InsufficientDataError
		require.ErrorAs(t, err, &insufficientErr)
	})

	t.Run("demographic fallback", func(t *testing.T) {
		a := New(DefaultThresholds(), true)
		sig, err := a.Analyze(context.Background(), testProfile(), nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, sig.Confidence, 0.3)
		assert.Empty(t, sig.RiskFlags)
	})
}

func TestAnalyzeDeterministic(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	stream := readingsAt(base, func(i int) nutriagent.BiometricReading {
		return nutriagent.BiometricReading{GlucoseMgDl: fptr(120 + float64(i)*5), Steps: iptr(4000)}
	}, 6)

	a := New(DefaultThresholds(), false)
	first, err := a.Analyze(context.Background(), testProfile(), stream)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), testProfile(), stream)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnalyzeWindowExcludesStaleReadings(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	// A stale spike outside the window followed by healthy recent readings.
	var stream nutriagent.BiometricStream
	stream = stream.Append(nutriagent.BiometricReading{Timestamp: base.Add(-30 * 24 * time.Hour), GlucoseMgDl: fptr(200)})
	for i := 0; i < 3; i++ {
		stream = stream.Append(nutriagent.BiometricReading{Timestamp: base.Add(time.Duration(i) * 24 * time.Hour), GlucoseMgDl: fptr(92)})
	}

	a := New(DefaultThresholds(), false)
	sig, err := a.Analyze(context.Background(), testProfile(), stream)
	require.NoError(t, err)
	assert.False(t, sig.HasFlag(FlagGlucoseSpike))
}
