package optimizer

// Config holds the genetic search parameters. All runs with the same Config,
// catalog and constraints produce the same plan.
type Config struct {
	PopulationSize         int
	MaxGenerations         int
	ConvergenceThreshold   float64
	ConvergenceGenerations int
	ElitismFraction        float64
	CrossoverRate          float64
	MutationRate           float64
	Seed                   int64
	BudgetTolerance        float64
	Weights                Weights
}

// Weights balance the fitness components. Larger means that component
// dominates the search.
type Weights struct {
	Nutrition  float64
	Budget     float64
	Preference float64
	PrepTime   float64
}

// DefaultConfig returns parameters tuned for a 3-meal day over a
// catalog of a few hundred items.
func DefaultConfig() Config {
	return Config{
		PopulationSize:         60,
		MaxGenerations:         120,
		ConvergenceThreshold:   0.001,
		ConvergenceGenerations: 10,
		ElitismFraction:        0.1,
		CrossoverRate:          0.8,
		MutationRate:           0.25,
		Seed:                   42,
		BudgetTolerance:        0.5,
		Weights: Weights{
			Nutrition:  1.0,
			Budget:     2.0,
			Preference: 0.5,
			PrepTime:   0.2,
		},
	}
}

// Portion bounds in grams for a single item within a meal.
const (
	minPortionGrams = 20
	maxPortionGrams = 400
)

// calorieShare returns the fraction of the daily calorie target assigned to
// the named slot. Unknown slots split the remainder evenly.
func calorieShare(slot string, totalSlots int) float64 {
	switch slot {
	case "breakfast":
		return 0.25
	case "lunch":
		return 0.40
	case "dinner":
		return 0.35
	default:
		if totalSlots == 0 {
			return 0
		}
		return 1.0 / float64(totalSlots)
	}
}
