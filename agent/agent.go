// Package agent defines the single polymorphic interface every analysis step
// in the pipeline implements, plus a name-keyed registry. Agents communicate
// only through the typed, immutable Input/Output messages; no agent reaches
// into another's internal state.
package agent

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"nutriagent"
)

// Input is the typed message handed to an agent. Only the fields a given
// agent documents in its InputSchema are consulted.
type Input struct {
	Profile     *nutriagent.UserProfile
	Constraints *nutriagent.Constraints
	Stream      nutriagent.BiometricStream
	Signal      *nutriagent.HealthSignal
	Plan        *nutriagent.MealPlan
	Cooldowns   nutriagent.CooldownState
}

// Output is the typed message an agent produces. Fields not named in the
// agent's OutputSchema are left zero.
type Output struct {
	Signal *nutriagent.HealthSignal
	Plan   *nutriagent.MealPlan
	Events []nutriagent.AdaptationEvent
}

// Agent exposes one capability: Process. The schemas describe which Input
// and Output fields the agent reads and writes, for callers and telemetry.
type Agent interface {
	Name() string
	Title() string
	Description() string
	InputSchema() *jsonschema.Schema
	OutputSchema() *jsonschema.Schema
	Process(ctx context.Context, in Input) (Output, error)
}
