package nutriagent

import "time"

// Config structs are decoded from the environment in cmd mains only; the
// core packages receive plain typed values through their constructors and
// never read environment variables themselves.

type EngineConfig struct {
	CatalogPath     string        `env:"CATALOG_PATH,default=artifacts/catalog.json"`
	StageTimeout    time.Duration `env:"STAGE_TIMEOUT,default=30s"`
	WorkersPerAgent int           `env:"WORKERS_PER_AGENT,default=2"`
	MealsPerDay     int           `env:"MEALS_PER_DAY,default=3"`
	DefaultBudget   float64       `env:"DEFAULT_DAILY_BUDGET,default=15"`
	SlackWebhookURL string        `env:"SLACK_WEBHOOK_URL,default="`
	SlackChannel    string        `env:"SLACK_CHANNEL,default=#meal-plans"`
}

type SearchConfig struct {
	PopulationSize         int     `env:"GA_POPULATION_SIZE,default=60"`
	MaxGenerations         int     `env:"GA_MAX_GENERATIONS,default=120"`
	ConvergenceThreshold   float64 `env:"GA_CONVERGENCE_THRESHOLD,default=0.001"`
	ConvergenceGenerations int     `env:"GA_CONVERGENCE_GENERATIONS,default=10"`
	ElitismFraction        float64 `env:"GA_ELITISM_FRACTION,default=0.1"`
	CrossoverRate          float64 `env:"GA_CROSSOVER_RATE,default=0.8"`
	MutationRate           float64 `env:"GA_MUTATION_RATE,default=0.25"`
	Seed                   int64   `env:"GA_SEED,default=42"`
	BudgetTolerance        float64 `env:"GA_BUDGET_TOLERANCE,default=0.5"`
}

type TriggerConfig struct {
	GlucoseHighMgDl float64       `env:"TRIGGER_GLUCOSE_HIGH,default=140"`
	StepsLow        int           `env:"TRIGGER_STEPS_LOW,default=5000"`
	SleepPoorHours  float64       `env:"TRIGGER_SLEEP_POOR,default=6"`
	HeartRateHigh   int           `env:"TRIGGER_HEART_RATE_HIGH,default=100"`
	WeightDeltaKg   float64       `env:"TRIGGER_WEIGHT_DELTA,default=2"`
	GlucoseCooldown time.Duration `env:"TRIGGER_GLUCOSE_COOLDOWN,default=2h"`
	DefaultCooldown time.Duration `env:"TRIGGER_DEFAULT_COOLDOWN,default=6h"`
	Window          time.Duration `env:"TRIGGER_WINDOW,default=168h"`
}

// ScoringConfig configures the optional Bedrock-backed preference scorer.
type ScoringConfig struct {
	ModelID     string  `env:"SCORING_MODEL_ID,default="`
	MaxTokens   int32   `env:"SCORING_MAX_TOKENS,default=256"`
	Temperature float32 `env:"SCORING_TEMPERATURE,default=0.1"`
}
