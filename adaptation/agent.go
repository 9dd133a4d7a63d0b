package adaptation

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"nutriagent"
	"nutriagent/agent"
)

// AgentName is the registry key for the adaptation agent.
const AgentName = "plan_adapter"

// AdaptAgent adapts an Engine to the agent interface.
type AdaptAgent struct {
	engine *Engine
}

func NewAdaptAgent(e *Engine) *AdaptAgent {
	return &AdaptAgent{engine: e}
}

func (a *AdaptAgent) Name() string  { return AgentName }
func (a *AdaptAgent) Title() string { return "Plan Adapter" }

func (a *AdaptAgent) Description() string {
	return "Applies rule-based plan adjustments when biometric readings cross thresholds, honoring per-trigger cooldowns."
}

func (a *AdaptAgent) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"plan", "stream", "constraints"},
		Properties: map[string]*jsonschema.Schema{
			"plan":        {Type: "object", Description: "The meal plan to adapt."},
			"stream":      {Type: "array", Description: "Biometric readings to evaluate triggers against."},
			"constraints": {Type: "object", Description: "Hard constraints the adapted plan must still satisfy."},
			"cooldowns":   {Type: "object", Description: "Per-trigger last-fired times for this session."},
		},
	}
}

func (a *AdaptAgent) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"plan"},
		Properties: map[string]*jsonschema.Schema{
			"plan":   {Type: "object", Description: "The adapted plan with recomputed totals."},
			"events": {Type: "array", Description: "One event per trigger that fired."},
		},
	}
}

func (a *AdaptAgent) Process(ctx context.Context, in agent.Input) (agent.Output, error) {
	if in.Plan == nil {
		return agent.Output{}, &nutriagent.ValidationError{Field: "plan", Message: "plan is required"}
	}
	if in.Constraints == nil {
		return agent.Output{}, &nutriagent.ValidationError{Field: "constraints", Message: "constraints are required"}
	}

	cooldowns := in.Cooldowns
	if cooldowns == nil {
		cooldowns = nutriagent.CooldownState{}
	}

	plan, events, err := a.engine.Evaluate(ctx, in.Plan, in.Stream, cooldowns, *in.Constraints)
	if err != nil {
		return agent.Output{}, err
	}
	return agent.Output{Plan: plan, Events: events}, nil
}
