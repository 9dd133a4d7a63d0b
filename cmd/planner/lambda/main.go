package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"nutriagent"
	"nutriagent/adaptation"
	"nutriagent/agent"
	"nutriagent/analyzer"
	"nutriagent/catalog"
	"nutriagent/catalog/storage"
	"nutriagent/coordinator"
	"nutriagent/optimizer"
	"nutriagent/scoring"
)

type Params struct {
	Request nutriagent.PlanRequest `json:"request"`
}

type Results struct {
	Result *nutriagent.PlanResult `json:"result"`
}

func main() {
	fn := func(ctx context.Context, params Params) (Results, error) {
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

		var scoringConfig nutriagent.ScoringConfig
		if err := envdecode.Decode(&scoringConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		// S3 config from env
		s3Bucket := os.Getenv("ARTIFACTS_S3_BUCKET")
		catalogKey := os.Getenv("ARTIFACTS_CATALOG_S3_KEY")
		if s3Bucket == "" || catalogKey == "" {
			return Results{}, fmt.Errorf("missing S3 config: ARTIFACTS_S3_BUCKET and ARTIFACTS_CATALOG_S3_KEY must be set")
		}

		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return Results{}, fmt.Errorf("failed to load AWS config: %w", err)
		}
		s3Client := s3.NewFromConfig(awsCfg)

		cat, err := catalog.Load(ctx, storage.NewS3CatalogSource(s3Client, s3Bucket, catalogKey))
		if err != nil {
			slog.Error("SETUP: Failed to load catalog from S3", "error", err)
			return Results{}, err
		}
		slog.Info("SETUP: Catalog loaded from S3", "items", cat.Len())

		// A Bedrock-backed scorer when a model is configured, static otherwise.
		var scorer nutriagent.PreferenceScorer = scoring.NewStaticScorer()
		if scoringConfig.ModelID != "" {
			scorer = scoring.NewBedrockScorer(bedrockruntime.NewFromConfig(awsCfg), scoring.BedrockOptions{
				ModelID:     scoringConfig.ModelID,
				MaxTokens:   scoringConfig.MaxTokens,
				Temperature: scoringConfig.Temperature,
			})
			slog.Info("SETUP: Using Bedrock preference scorer", "model_id", scoringConfig.ModelID)
		}

		registry, err := agent.NewRegistry(
			analyzer.NewHealthAgent(analyzer.New(analyzerThresholds(triggerConfig), true)),
			optimizer.NewPlanAgent(optimizer.New(cat, scorer, searchOptions(searchConfig))),
			adaptation.NewAdaptAgent(adaptation.NewEngine(cat, adaptationThresholds(triggerConfig), triggerConfig.Window)),
		)
		if err != nil {
			slog.Error("SETUP: Failed to create agent registry", "error", err)
			return Results{}, err
		}

		tracerProvider, meterProvider, otelShutdown, err := nutriagent.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return Results{}, err
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()

		c := coordinator.NewInstrumentedCoordinator(
			registry,
			coordinator.Config{
				StageTimeout:    engineConfig.StageTimeout,
				WorkersPerAgent: engineConfig.WorkersPerAgent,
			},
			nutriagent.NewStdoutSessionLogger(),
			tracerProvider.Tracer(nutriagent.TracerNameCoordinator),
			meterProvider.Meter(nutriagent.TracerNameCoordinator),
		)

		result, err := c.HandleRequest(ctx, params.Request)
		if err != nil {
			slog.Error("RESULT: Error handling plan request", "error", err)
			return Results{}, err
		}

		return Results{Result: result}, nil
	}

	lambda.Start(fn)
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
