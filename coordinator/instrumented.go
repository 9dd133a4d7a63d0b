package coordinator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"nutriagent"
	"nutriagent/agent"
)

// InstrumentedCoordinator is a Coordinator with tracing and metrics around
// every request and stage.
type InstrumentedCoordinator struct {
	inner  *Coordinator
	tracer trace.Tracer
	meter  metric.Meter
}

func NewInstrumentedCoordinator(registry agent.Registry, cfg Config, logger nutriagent.SessionLogger, tracer trace.Tracer, meter metric.Meter) *InstrumentedCoordinator {
	return &InstrumentedCoordinator{
		inner:  NewCoordinator(registry, cfg, logger),
		tracer: tracer,
		meter:  meter,
	}
}

// HandleRequest mirrors Coordinator.HandleRequest with full instrumentation.
func (c *InstrumentedCoordinator) HandleRequest(ctx context.Context, req nutriagent.PlanRequest) (*nutriagent.PlanResult, error) {
	ctx, span := c.tracer.Start(ctx, "InstrumentedCoordinator.HandleRequest")
	defer span.End()

	requestsCounter, _ := c.meter.Int64Counter("plan_requests_total",
		metric.WithDescription("Total number of plan requests started"))
	completedCounter, _ := c.meter.Int64Counter("plan_requests_completed_total",
		metric.WithDescription("Total number of plan requests completed, by status"))
	failedCounter, _ := c.meter.Int64Counter("plan_requests_failed_total",
		metric.WithDescription("Total number of plan requests that failed"))
	adaptationsCounter, _ := c.meter.Int64Counter("plan_adaptations_total",
		metric.WithDescription("Total number of adaptation events applied to plans"))
	requestDurationHist, _ := c.meter.Float64Histogram("plan_request_duration_seconds",
		metric.WithDescription("End-to-end duration of plan requests in seconds"))
	readingsGauge, _ := c.meter.Int64Gauge("plan_request_readings_count",
		metric.WithDescription("Number of biometric readings attached to the request"))

	requestsCounter.Add(ctx, 1)
	readingsGauge.Record(ctx, int64(len(req.Readings)))
	span.SetAttributes(
		attribute.String("user", req.Profile.Name),
		attribute.Int("readings_count", len(req.Readings)),
		attribute.Int("meal_slots", len(req.Constraints.MealSlots)),
	)

	start := time.Now()
	result, err := c.inner.HandleRequest(ctx, req)
	requestDurationHist.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		failedCounter.Add(ctx, 1)
		span.SetStatus(codes.Error, "Plan request failed")
		span.RecordError(err)
		if result != nil {
			span.SetAttributes(attribute.String("failure_stage", result.FailureStage))
		}
		return result, err
	}

	completedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(result.Status)),
	))
	adaptationsCounter.Add(ctx, int64(len(result.Adaptations)))

	span.AddEvent("Plan request completed", trace.WithAttributes(
		attribute.String("status", string(result.Status)),
		attribute.Int("adaptations", len(result.Adaptations)),
	))

	return result, nil
}
