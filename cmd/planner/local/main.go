package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"nutriagent"
	"nutriagent/adaptation"
	"nutriagent/agent"
	"nutriagent/analyzer"
	"nutriagent/catalog"
	"nutriagent/catalog/storage"
	"nutriagent/coordinator"
	"nutriagent/optimizer"
	"nutriagent/scoring"
	"nutriagent/slack"
)

func main() {
	ctx := context.Background()

	var engineConfig nutriagent.EngineConfig
	if err := envdecode.Decode(&engineConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var searchConfig nutriagent.SearchConfig
	if err := envdecode.Decode(&searchConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var triggerConfig nutriagent.TriggerConfig
	if err := envdecode.Decode(&triggerConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	cat, err := catalog.Load(ctx, storage.NewFileCatalogSource(engineConfig.CatalogPath))
	if err != nil {
		slog.Error("SETUP: Failed to load catalog", "error", err, "path", engineConfig.CatalogPath)
		return
	}
	slog.Info("SETUP: Catalog loaded", "items", cat.Len())

	req, err := loadRequest(argOr(1, "artifacts/request.json"))
	if err != nil {
		slog.Error("SETUP: Failed to load plan request", "error", err)
		return
	}
	if req.Constraints.DailyBudget == 0 {
		req.Constraints.DailyBudget = engineConfig.DefaultBudget
	}

	registry, err := agent.NewRegistry(
		analyzer.NewHealthAgent(analyzer.New(analyzerThresholds(triggerConfig), true)),
		optimizer.NewPlanAgent(optimizer.New(cat, scoring.NewStaticScorer(), searchOptions(searchConfig))),
		adaptation.NewAdaptAgent(adaptation.NewEngine(cat, adaptationThresholds(triggerConfig), triggerConfig.Window)),
	)
	if err != nil {
		slog.Error("SETUP: Failed to create agent registry", "error", err)
		return
	}

	logger, cleanup, err := newSessionLogger(req.Profile.Name)
	if err != nil {
		slog.Error("SETUP: Failed to create session logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("Failed to flush session log", "error", err)
		}
	}()

	tracerProvider, meterProvider, otelShutdown, err := nutriagent.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	tracer := tracerProvider.Tracer(nutriagent.TracerNameCoordinator)
	ctx, span := tracer.Start(ctx, nutriagent.TracerNameCoordinator, trace.WithAttributes(
		attribute.String("user", req.Profile.Name),
		attribute.Int("readings_count", len(req.Readings)),
	))
	defer span.End()

	c := coordinator.NewInstrumentedCoordinator(
		registry,
		coordinator.Config{
			StageTimeout:    engineConfig.StageTimeout,
			WorkersPerAgent: engineConfig.WorkersPerAgent,
		},
		logger,
		tracer,
		meterProvider.Meter(nutriagent.TracerNameCoordinator),
	)

	result, err := c.HandleRequest(ctx, req)
	if err != nil {
		slog.Error("RESULT: Error handling plan request", "error", err)
		return
	}

	nutriagent.Dump(result)

	webhookURL := engineConfig.SlackWebhookURL
	if webhookURL == "" {
		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := new(bytes.Buffer)
			body.ReadFrom(r.Body) // nolint: errcheck
			slog.Info("FINAL: Received request",
				"method", r.Method,
				"path", r.URL.Path,
				"body", body.String(),
			)
			w.WriteHeader(http.StatusOK)
		}))
		defer testServer.Close()
		webhookURL = testServer.URL
	}

	slackClient := slack.NewClient(webhookURL, http.DefaultClient)
	if err := slackClient.PostPlanSummary(ctx, engineConfig.SlackChannel, req.Profile.Name, result); err != nil {
		slog.Error("Failed to post result to Slack", "error", err)
	}
}

func loadRequest(path string) (nutriagent.PlanRequest, error) {
	var req nutriagent.PlanRequest
	b, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read request: %w", err)
	}
	if err := json.Unmarshal(b, &req); err != nil {
		return req, fmt.Errorf("parse request: %w", err)
	}
	return req, nil
}

func analyzerThresholds(cfg nutriagent.TriggerConfig) analyzer.Thresholds {
	th := analyzer.DefaultThresholds()
	th.GlucoseHighMgDl = cfg.GlucoseHighMgDl
	th.StepsLow = cfg.StepsLow
	th.SleepPoorHours = cfg.SleepPoorHours
	th.HeartRateHigh = cfg.HeartRateHigh
	th.WeightDeltaKg = cfg.WeightDeltaKg
	th.Window = cfg.Window
	return th
}

func adaptationThresholds(cfg nutriagent.TriggerConfig) adaptation.Thresholds {
	th := adaptation.DefaultThresholds()
	th.GlucoseHighMgDl = cfg.GlucoseHighMgDl
	th.StepsLow = cfg.StepsLow
	th.SleepPoorHours = cfg.SleepPoorHours
	th.HeartRateHigh = cfg.HeartRateHigh
	th.WeightDeltaKg = cfg.WeightDeltaKg
	th.GlucoseCooldown = cfg.GlucoseCooldown
	th.DefaultCooldown = cfg.DefaultCooldown
	return th
}

func searchOptions(cfg nutriagent.SearchConfig) optimizer.Config {
	out := optimizer.DefaultConfig()
	out.PopulationSize = cfg.PopulationSize
	out.MaxGenerations = cfg.MaxGenerations
	out.ConvergenceThreshold = cfg.ConvergenceThreshold
	out.ConvergenceGenerations = cfg.ConvergenceGenerations
	out.ElitismFraction = cfg.ElitismFraction
	out.CrossoverRate = cfg.CrossoverRate
	out.MutationRate = cfg.MutationRate
	out.Seed = cfg.Seed
	out.BudgetTolerance = cfg.BudgetTolerance
	return out
}

func newSessionLogger(profileName string) (nutriagent.SessionLogger, func() error, error) {
	logFilePath := nutriagent.NewSessionLogFilePath(profileName)
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := nutriagent.NewFileSessionLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}

func argOr(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}
