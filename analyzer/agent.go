package analyzer

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"nutriagent"
	"nutriagent/agent"
)

// AgentName is the registry key for the analysis agent.
const AgentName = "health_analyzer"

// HealthAgent adapts an Analyzer to the agent interface.
type HealthAgent struct {
	analyzer *Analyzer
}

// NewHealthAgent wraps an analyzer for registration.
func NewHealthAgent(a *Analyzer) *HealthAgent {
	return &HealthAgent{analyzer: a}
}

func (h *HealthAgent) Name() string  { return AgentName }
func (h *HealthAgent) Title() string { return "Health Analyzer" }

func (h *HealthAgent) Description() string {
	return "Derives a metabolic adjustment, risk flags and a personalization confidence from the user's biometric stream."
}

func (h *HealthAgent) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"profile", "stream"},
		Properties: map[string]*jsonschema.Schema{
			"profile": {Type: "object", Description: "User profile with demographics and genetic traits."},
			"stream":  {Type: "array", Description: "Time-ordered biometric readings."},
		},
	}
}

func (h *HealthAgent) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"signal"},
		Properties: map[string]*jsonschema.Schema{
			"signal": {Type: "object", Description: "Health signal consumed by the optimizer and adaptation stages."},
		},
	}
}

func (h *HealthAgent) Process(ctx context.Context, in agent.Input) (agent.Output, error) {
	if in.Profile == nil {
		return agent.Output{}, &nutriagent.ValidationError{Field: "profile", Message: "profile is required"}
	}
	signal, err := h.analyzer.Analyze(ctx, *in.Profile, in.Stream)
	if err != nil {
		return agent.Output{}, err
	}
	return agent.Output{Signal: signal}, nil
}
