// Package adaptation adjusts an existing meal plan in response to biometric
// readings. Triggers are evaluated in priority order against a window
// anchored to the latest reading; each firing trigger applies declarative
// plan changes, then the plan is repaired against the hard constraints. A
// trigger inside its cooldown is logged but applies nothing, so re-running
// the engine over the same stream is idempotent.
package adaptation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"nutriagent"
	"nutriagent/optimizer"
)

type Engine struct {
	cat      nutriagent.Catalog
	triggers []Trigger
	window   time.Duration
}

// NewEngine builds an engine with the built-in trigger table.
func NewEngine(cat nutriagent.Catalog, th Thresholds, window time.Duration) *Engine {
	e := &Engine{cat: cat, window: window}
	for _, t := range BuiltinTriggers(th) {
		e.Register(t)
	}
	return e
}

// Register adds a trigger, keeping the table in priority order. A trigger
// with an already-registered ID replaces the existing one.
func (e *Engine) Register(t Trigger) {
	if t.ConfidenceFn == nil {
		t.ConfidenceFn = DefaultConfidence
	}
	for i := range e.triggers {
		if e.triggers[i].ID == t.ID {
			e.triggers[i] = t
			sortTriggers(e.triggers)
			return
		}
	}
	e.triggers = append(e.triggers, t)
	sortTriggers(e.triggers)
}

// Evaluate runs every trigger against the stream and returns the adapted
// plan plus one event per firing trigger. The input plan is not modified;
// cooldowns is updated in place. Evaluation time is the latest reading's
// timestamp, so identical inputs always produce identical outputs.
func (e *Engine) Evaluate(ctx context.Context, plan *nutriagent.MealPlan, stream nutriagent.BiometricStream, cooldowns nutriagent.CooldownState, cons nutriagent.Constraints) (*nutriagent.MealPlan, []nutriagent.AdaptationEvent, error) {
	latest, ok := stream.Latest()
	if !ok {
		return plan.Clone(), nil, nil
	}
	now := latest.Timestamp
	window := stream.Window(now.Add(-e.window))

	pool, err := optimizer.CompliancePool(e.cat, cons)
	if err != nil {
		return nil, nil, err
	}

	adapted := plan.Clone()
	var events []nutriagent.AdaptationEvent

	for _, t := range e.triggers {
		if err := ctx.Err(); err != nil {
			return nil, nil, &nutriagent.RequestCancelledError{Stage: nutriagent.StageAdapt}
		}

		det, fired := t.Predicate(window)
		if !fired {
			continue
		}

		if last, seen := cooldowns[t.ID]; seen && now.Sub(last) < t.Cooldown {
			slog.Info("ADAPTATION: Trigger in cooldown, skipping",
				"trigger", t.ID,
				"last_fired", last,
				"cooldown", t.Cooldown,
			)
			continue
		}

		changes := t.Mutate(adapted, e.cat, det)
		if len(changes) == 0 {
			continue
		}

		optimizer.Repair(adapted, pool, e.cat)
		if err := adapted.Recompute(e.cat); err != nil {
			return nil, nil, err
		}

		cooldowns[t.ID] = now
		events = append(events, nutriagent.AdaptationEvent{
			TriggerID:  t.ID,
			FiredAt:    now,
			Confidence: t.ConfidenceFn(det),
			Changes:    changes,
		})

		slog.Info("ADAPTATION: Trigger fired",
			"trigger", t.ID,
			"observed", det.Observed,
			"changes", len(changes),
		)
	}

	if len(events) == 0 {
		return adapted, nil, nil
	}
	return adapted, events, nil
}

func sortTriggers(triggers []Trigger) {
	sort.SliceStable(triggers, func(i, j int) bool { return triggers[i].Priority < triggers[j].Priority })
}
