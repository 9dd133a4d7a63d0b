package adaptation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriagent"
	"nutriagent/catalog"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func testCatalog() *catalog.View {
	return catalog.New([]nutriagent.FoodItem{
		{ID: "brown_rice", Name: "Brown Rice", Category: "grain", CaloriesPer100g: 112, ProteinG: 2.6, CarbsG: 24, FatG: 0.9, CostPer100g: 0.3},
		{ID: "chicken_breast", Name: "Chicken Breast", Category: "protein", CaloriesPer100g: 165, ProteinG: 31, CarbsG: 0, FatG: 3.6, CostPer100g: 1.2},
		{ID: "broccoli", Name: "Broccoli", Category: "vegetable", CaloriesPer100g: 34, ProteinG: 2.8, CarbsG: 7, FatG: 0.4, CostPer100g: 0.5},
	})
}

func testPlan(t *testing.T) *nutriagent.MealPlan {
	t.Helper()
	plan := &nutriagent.MealPlan{Meals: []nutriagent.MealCandidate{
		{Slot: "lunch", Items: []nutriagent.ItemPortion{
			{FoodID: "brown_rice", Grams: 200},
			{FoodID: "chicken_breast", Grams: 150},
			{FoodID: "broccoli", Grams: 100},
		}},
	}}
	require.NoError(t, plan.Recompute(testCatalog()))
	return plan
}

func streamWith(base time.Time, readings ...nutriagent.BiometricReading) nutriagent.BiometricStream {
	var s nutriagent.BiometricStream
	for i, r := range readings {
		r.Timestamp = base.Add(time.Duration(i) * time.Hour)
		s = s.Append(r)
	}
	return s
}

func newTestEngine() *Engine {
	return NewEngine(testCatalog(), DefaultThresholds(), 7*24*time.Hour)
}

func TestGlucoseSpikeTrigger(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		glucose        float64
		wantCarbFactor float64
	}{
		{name: "moderate spike reduces carbs by 20 percent", glucose: 155, wantCarbFactor: 0.8},
		{name: "severe spike reduces carbs by 30 percent", glucose: 170, wantCarbFactor: 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := testPlan(t)
			stream := streamWith(base, nutriagent.BiometricReading{GlucoseMgDl: fptr(tt.glucose)})

			e := newTestEngine()
			adapted, events, err := e.Evaluate(context.Background(), plan, stream, nutriagent.CooldownState{}, nutriagent.Constraints{})
			require.NoError(t, err)

			require.Len(t, events, 1)
			assert.Equal(t, "glucose_spike", events[0].TriggerID)
			assert.Equal(t, stream[len(stream)-1].Timestamp, events[0].FiredAt)

			// Rice is carb-dominant, chicken protein-dominant.
			assert.InDelta(t, 200*tt.wantCarbFactor, adapted.Meals[0].Items[0].Grams, 0.01)
			assert.InDelta(t, 150*1.1, adapted.Meals[0].Items[1].Grams, 0.01)

			// The input plan is untouched.
			assert.Equal(t, 200.0, plan.Meals[0].Items[0].Grams)
		})
	}
}

func TestTriggerConfidence(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	plan := testPlan(t)
	stream := streamWith(base, nutriagent.BiometricReading{GlucoseMgDl: fptr(155)})

	e := newTestEngine()
	_, events, err := e.Evaluate(context.Background(), plan, stream, nutriagent.CooldownState{}, nutriagent.Constraints{})
	require.NoError(t, err)

	require.Len(t, events, 1)
	// Exceedance 15 over a span of 60.
	assert.InDelta(t, 0.25, events[0].Confidence, 0.001)
}

func TestCooldownSuppressesRefire(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	stream := streamWith(base, nutriagent.BiometricReading{GlucoseMgDl: fptr(155)})

	e := newTestEngine()
	cooldowns := nutriagent.CooldownState{}

	first, events, err := e.Evaluate(context.Background(), testPlan(t), stream, cooldowns, nutriagent.Constraints{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	// Same stream, same cooldown state: the trigger is inside its cooldown
	// and the plan passes through unchanged.
	second, events, err := e.Evaluate(context.Background(), first, stream, cooldowns, nutriagent.Constraints{})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, first, second)
}

func TestCooldownExpiry(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	e := newTestEngine()
	cooldowns := nutriagent.CooldownState{}

	stream := streamWith(base, nutriagent.BiometricReading{GlucoseMgDl: fptr(155)})
	_, events, err := e.Evaluate(context.Background(), testPlan(t), stream, cooldowns, nutriagent.Constraints{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	// A new spike three hours later is past the two hour glucose cooldown.
	stream = stream.Append(nutriagent.BiometricReading{Timestamp: base.Add(3 * time.Hour), GlucoseMgDl: fptr(158)})
	_, events, err = e.Evaluate(context.Background(), testPlan(t), stream, cooldowns, nutriagent.Constraints{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, base.Add(3*time.Hour), events[0].FiredAt)
}

func TestTriggersFireInPriorityOrder(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	stream := streamWith(base,
		nutriagent.BiometricReading{GlucoseMgDl: fptr(150), Steps: iptr(3000), SleepHours: fptr(5)},
	)

	e := newTestEngine()
	_, events, err := e.Evaluate(context.Background(), testPlan(t), stream, nutriagent.CooldownState{}, nutriagent.Constraints{})
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, "glucose_spike", events[0].TriggerID)
	assert.Equal(t, "sleep_debt", events[1].TriggerID)
	assert.Equal(t, "low_activity", events[2].TriggerID)
}

func TestNoReadingsNoAdaptation(t *testing.T) {
	e := newTestEngine()
	plan := testPlan(t)

	adapted, events, err := e.Evaluate(context.Background(), plan, nil, nutriagent.CooldownState{}, nutriagent.Constraints{})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, plan, adapted)
}

func TestRegisterReplacesByID(t *testing.T) {
	e := newTestEngine()
	fired := false
	e.Register(Trigger{
		ID:       "glucose_spike",
		Priority: 1,
		Cooldown: time.Hour,
		Predicate: func(window nutriagent.BiometricStream) (Detection, bool) {
			fired = true
			return Detection{}, false
		},
	})

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	stream := streamWith(base, nutriagent.BiometricReading{GlucoseMgDl: fptr(155)})

	_, events, err := e.Evaluate(context.Background(), testPlan(t), stream, nutriagent.CooldownState{}, nutriagent.Constraints{})
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Empty(t, events)
}
