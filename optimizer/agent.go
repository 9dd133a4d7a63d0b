package optimizer

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"nutriagent"
	"nutriagent/agent"
)

// AgentName is the registry key for the optimization agent.
const AgentName = "plan_optimizer"

// PlanAgent adapts an Optimizer to the agent interface. The health signal,
// when present, scales the calorie and carb targets before the search runs.
type PlanAgent struct {
	optimizer *Optimizer
}

func NewPlanAgent(o *Optimizer) *PlanAgent {
	return &PlanAgent{optimizer: o}
}

func (p *PlanAgent) Name() string  { return AgentName }
func (p *PlanAgent) Title() string { return "Plan Optimizer" }

func (p *PlanAgent) Description() string {
	return "Searches the food catalog for a daily meal plan meeting the nutrition target within the hard constraints."
}

func (p *PlanAgent) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"profile", "constraints"},
		Properties: map[string]*jsonschema.Schema{
			"profile":     {Type: "object", Description: "User profile with preferences and restrictions."},
			"constraints": {Type: "object", Description: "Nutrition target, budget, meal slots and hard constraints."},
			"signal":      {Type: "object", Description: "Optional health signal; scales the nutrition target."},
		},
	}
}

func (p *PlanAgent) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"plan"},
		Properties: map[string]*jsonschema.Schema{
			"plan": {Type: "object", Description: "Optimized daily meal plan with derived totals."},
		},
	}
}

func (p *PlanAgent) Process(ctx context.Context, in agent.Input) (agent.Output, error) {
	if in.Profile == nil {
		return agent.Output{}, &nutriagent.ValidationError{Field: "profile", Message: "profile is required"}
	}
	if in.Constraints == nil {
		return agent.Output{}, &nutriagent.ValidationError{Field: "constraints", Message: "constraints are required"}
	}

	cons := *in.Constraints
	if in.Signal != nil {
		cons.Target = adjustTarget(cons.Target, in.Signal)
	}

	plan, err := p.optimizer.Optimize(ctx, *in.Profile, cons)
	if err != nil {
		return agent.Output{}, err
	}
	return agent.Output{Plan: plan}, nil
}

// adjustTarget applies the signal's metabolic adjustment to calories and, for
// glucose-related flags, shifts the carb budget toward protein.
func adjustTarget(t nutriagent.NutritionTarget, sig *nutriagent.HealthSignal) nutriagent.NutritionTarget {
	out := t
	out.Calories *= sig.MetabolicAdjustment

	if sig.HasFlag("glucose_spike") || sig.HasFlag("glucose_trend_rising") || sig.HasFlag("carb_sensitive") {
		out.CarbsG *= 0.85
		out.ProteinG *= 1.1
	}
	return out
}
