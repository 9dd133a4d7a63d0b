// Package coordinator orchestrates the analyze, optimize and adapt stages of
// a plan request. Each stage runs on a per-agent worker pool under its own
// timeout. Optimization is mandatory; the other stages degrade to a partial
// result so one flaky signal never loses the whole plan.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nutriagent"
	"nutriagent/adaptation"
	"nutriagent/agent"
	"nutriagent/analyzer"
	"nutriagent/optimizer"
)

type Config struct {
	StageTimeout    time.Duration
	WorkersPerAgent int
}

type Coordinator struct {
	pools        map[string]*pool
	stageTimeout time.Duration
	logger       nutriagent.SessionLogger

	mu       sync.Mutex
	sessions map[string]*session
}

// session holds per-user state carried across requests. Its mutex serializes
// the adapt stage, so concurrent requests for the same user never touch the
// cooldown map at the same time.
type session struct {
	mu        sync.Mutex
	cooldowns nutriagent.CooldownState
}

// NewCoordinator builds pools for every registered agent.
func NewCoordinator(registry agent.Registry, cfg Config, logger nutriagent.SessionLogger) *Coordinator {
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = nutriagent.NewNoOpSessionLogger()
	}
	pools := make(map[string]*pool, len(registry))
	for name, a := range registry {
		pools[name] = newPool(a, cfg.WorkersPerAgent)
	}
	return &Coordinator{
		pools:        pools,
		stageTimeout: cfg.StageTimeout,
		logger:       logger,
		sessions:     make(map[string]*session),
	}
}

// HandleRequest runs the full pipeline for one request. A nil error with
// StatusPartial means some non-mandatory stage degraded; the notes say which.
func (c *Coordinator) HandleRequest(ctx context.Context, req nutriagent.PlanRequest) (*nutriagent.PlanResult, error) {
	if err := req.Profile.Validate(); err != nil {
		return nil, err
	}
	if len(req.Constraints.MealSlots) == 0 {
		return nil, &nutriagent.ValidationError{Field: "meal_slots", Message: "at least one meal slot is required"}
	}

	slog.Info("COORDINATOR: Starting request", "user", req.Profile.Name, "readings", len(req.Readings))

	var stream nutriagent.BiometricStream
	for _, r := range req.Readings {
		stream = stream.Append(r)
	}

	result := &nutriagent.PlanResult{Status: nutriagent.StatusOK}

	// Analyze. Failure degrades to a neutral signal.
	signal := &nutriagent.HealthSignal{MetabolicAdjustment: 1, RiskFlags: []string{}, Confidence: 0}
	out, err := c.runStage(ctx, nutriagent.StageAnalyze, analyzer.AgentName, agent.Input{
		Profile: &req.Profile,
		Stream:  stream,
	}, nil)
	if err != nil {
		if cancelled(err) {
			return nil, err
		}
		slog.Warn("COORDINATOR: Analysis failed, continuing with neutral signal", "error", err)
		result.Status = nutriagent.StatusPartial
		result.Notes = append(result.Notes, fmt.Sprintf("analysis unavailable: %v", err))
	} else {
		signal = out.Signal
	}
	result.HealthSignal = signal

	if err := ctx.Err(); err != nil {
		return nil, &nutriagent.RequestCancelledError{Stage: nutriagent.StageOptimize}
	}

	// Optimize. Failure fails the request.
	out, err = c.runStage(ctx, nutriagent.StageOptimize, optimizer.AgentName, agent.Input{
		Profile:     &req.Profile,
		Constraints: &req.Constraints,
		Signal:      signal,
	}, nil)
	if err != nil {
		if cancelled(err) {
			return nil, err
		}
		result.Status = nutriagent.StatusFailed
		result.FailureStage = nutriagent.StageOptimize
		return result, err
	}
	result.Plan = out.Plan

	if err := ctx.Err(); err != nil {
		return nil, &nutriagent.RequestCancelledError{Stage: nutriagent.StageAdapt}
	}

	// Adapt. Failure degrades to the unadapted plan. The session lock keeps
	// concurrent requests for one user from mutating the cooldown map at once.
	sess := c.session(req.Profile.Name)
	sess.mu.Lock()
	out, err = c.runStage(ctx, nutriagent.StageAdapt, adaptation.AgentName, agent.Input{
		Profile:     &req.Profile,
		Constraints: &req.Constraints,
		Stream:      stream,
		Plan:        result.Plan,
		Cooldowns:   sess.cooldowns,
	}, nil)
	sess.mu.Unlock()
	if err != nil {
		if cancelled(err) {
			return nil, err
		}
		slog.Warn("COORDINATOR: Adaptation failed, returning unadapted plan", "error", err)
		result.Status = nutriagent.StatusPartial
		result.Notes = append(result.Notes, fmt.Sprintf("adaptation unavailable: %v", err))
	} else {
		result.Plan = out.Plan
		result.Adaptations = out.Events
	}

	result.Notes = append(result.Notes, notesFromSignal(signal)...)

	slog.Info("COORDINATOR: Request finished",
		"user", req.Profile.Name,
		"status", result.Status,
		"adaptations", len(result.Adaptations),
	)

	return result, nil
}

// runStage dispatches one agent call under the stage timeout. The after hook,
// when set, observes the outcome for instrumentation.
func (c *Coordinator) runStage(ctx context.Context, stage, agentName string, in agent.Input, after func(out agent.Output, err error, elapsed time.Duration)) (agent.Output, error) {
	p, ok := c.pools[agentName]
	if !ok {
		return agent.Output{}, fmt.Errorf("no agent registered under %q", agentName)
	}

	stageCtx, cancel := context.WithTimeout(ctx, c.stageTimeout)
	defer cancel()

	start := time.Now()
	out, err := p.dispatch(stageCtx, in)
	elapsed := time.Since(start)

	if err != nil {
		switch {
		case ctx.Err() != nil:
			err = &nutriagent.RequestCancelledError{Stage: stage}
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(stageCtx.Err(), context.DeadlineExceeded):
			err = &nutriagent.AgentTimeoutError{Stage: stage, Timeout: c.stageTimeout}
		}
	}

	c.logStage(stage, elapsed, out, err)
	if after != nil {
		after(out, err, elapsed)
	}
	return out, err
}

func (c *Coordinator) logStage(stage string, elapsed time.Duration, out agent.Output, err error) {
	entry := nutriagent.StageLog{
		Stage:       stage,
		Timestamp:   time.Now(),
		DurationMs:  elapsed.Milliseconds(),
		Adaptations: out.Events,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if lerr := c.logger.LogStage(entry); lerr != nil {
		slog.Error("Failed to log stage", "error", lerr, "stage", stage)
	}
}

// notesFromSignal renders the analysis as human-readable recommendations on
// the result.
func notesFromSignal(signal *nutriagent.HealthSignal) []string {
	if signal == nil {
		return nil
	}
	var notes []string
	for _, flag := range signal.RiskFlags {
		switch flag {
		case "glucose_spike", "glucose_trend_rising":
			notes = append(notes, "elevated glucose readings: plan favors protein over fast carbohydrates")
		case "low_activity":
			notes = append(notes, "activity below target: portions trimmed to match expenditure")
		case "sleep_debt":
			notes = append(notes, "sleep below target: plan favors protein to support recovery")
		case "elevated_stress":
			notes = append(notes, "elevated resting heart rate observed: portions eased")
		case "weight_change":
			notes = append(notes, "notable weight change observed: calorie target adjusted")
		}
	}
	if signal.Confidence <= 0.3 {
		notes = append(notes, "limited biometric data: plan is based mostly on demographic estimates")
	}
	return notes
}

// session returns the state for a user's session, creating it on first use.
func (c *Coordinator) session(user string) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[user]
	if !ok {
		s = &session{cooldowns: nutriagent.CooldownState{}}
		c.sessions[user] = s
	}
	return s
}

func cancelled(err error) bool {
	var rc *nutriagent.RequestCancelledError
	return errors.As(err, &rc)
}
