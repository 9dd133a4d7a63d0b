// Package optimizer searches for a daily meal plan with a genetic algorithm.
// Hard constraints (allergens, dietary restrictions) are enforced by pool
// filtering and repair; nutrition targets, budget, preferences and prep time
// are soft terms in the fitness function. The search is seeded and fully
// deterministic for a given catalog, constraints and config.
package optimizer

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"nutriagent"
)

type Optimizer struct {
	cat    nutriagent.Catalog
	scorer nutriagent.PreferenceScorer
	cfg    Config
}

func New(cat nutriagent.Catalog, scorer nutriagent.PreferenceScorer, cfg Config) *Optimizer {
	return &Optimizer{cat: cat, scorer: scorer, cfg: cfg}
}

// individual is one candidate plan plus its cached evaluation. seq is the
// creation sequence number used as the final tie-break, so equal-cost runs
// still pick the same winner.
type individual struct {
	plan *nutriagent.MealPlan
	cost float64
	pref float64
	seq  int
}

// Optimize runs the search and returns the best repaired plan found.
func (o *Optimizer) Optimize(ctx context.Context, profile nutriagent.UserProfile, cons nutriagent.Constraints) (*nutriagent.MealPlan, error) {
	pool, err := CompliancePool(o.cat, cons)
	if err != nil {
		return nil, err
	}

	prefs := o.scoreItems(ctx, profile, pool)
	rng := rand.New(rand.NewSource(o.cfg.Seed))

	population := make([]*individual, 0, o.cfg.PopulationSize)
	seq := 0
	for i := 0; i < o.cfg.PopulationSize; i++ {
		ind := &individual{plan: o.randomPlan(rng, pool, cons), seq: seq}
		seq++
		if err := o.evaluate(ind, pool, cons, prefs); err != nil {
			return nil, err
		}
		population = append(population, ind)
	}

	eliteCount := int(math.Ceil(float64(o.cfg.PopulationSize) * o.cfg.ElitismFraction))
	if eliteCount < 1 {
		eliteCount = 1
	}

	bestCost := math.Inf(1)
	stagnant := 0
	generations := 0

	for gen := 0; gen < o.cfg.MaxGenerations; gen++ {
		if ctx.Err() != nil {
			return nil, &nutriagent.RequestCancelledError{Stage: nutriagent.StageOptimize}
		}
		generations = gen + 1

		sortPopulation(population)

		improvement := bestCost - population[0].cost
		if population[0].cost < bestCost {
			bestCost = population[0].cost
		}
		if gen > 0 && improvement < o.cfg.ConvergenceThreshold {
			stagnant++
			if stagnant >= o.cfg.ConvergenceGenerations {
				break
			}
		} else {
			stagnant = 0
		}

		next := make([]*individual, 0, o.cfg.PopulationSize)
		for i := 0; i < eliteCount; i++ {
			next = append(next, &individual{
				plan: population[i].plan.Clone(),
				cost: population[i].cost,
				pref: population[i].pref,
				seq:  population[i].seq,
			})
		}

		for len(next) < o.cfg.PopulationSize {
			a := tournament(rng, population)
			b := tournament(rng, population)

			child := a.plan.Clone()
			if rng.Float64() < o.cfg.CrossoverRate {
				child = crossover(rng, a.plan, b.plan)
			}
			if rng.Float64() < o.cfg.MutationRate {
				o.mutate(rng, child, pool)
			}

			ind := &individual{plan: child, seq: seq}
			seq++
			if err := o.evaluate(ind, pool, cons, prefs); err != nil {
				return nil, err
			}
			next = append(next, ind)
		}
		population = next
	}

	sortPopulation(population)
	best := population[0]

	o.trimToBudget(best.plan, cons)
	if err := best.plan.Recompute(o.cat); err != nil {
		return nil, err
	}

	slog.Info("OPTIMIZER: Search finished",
		"generations", generations,
		"best_cost", best.cost,
		"plan_cost", best.plan.Totals.Cost,
		"plan_calories", best.plan.Totals.Calories,
	)

	return best.plan, nil
}

// scoreItems caches one preference score per pool item. Scorer failures
// degrade to a neutral score instead of failing the search.
func (o *Optimizer) scoreItems(ctx context.Context, profile nutriagent.UserProfile, pool []nutriagent.FoodItem) map[string]float64 {
	prefs := make(map[string]float64, len(pool))
	for _, it := range pool {
		score, err := o.scorer.Score(ctx, profile, it)
		if err != nil {
			slog.Warn("OPTIMIZER: Preference score failed, using neutral", "food_id", it.ID, "error", err)
			score = 3
		}
		prefs[it.ID] = score
	}
	return prefs
}

func (o *Optimizer) randomPlan(rng *rand.Rand, pool []nutriagent.FoodItem, cons nutriagent.Constraints) *nutriagent.MealPlan {
	plan := &nutriagent.MealPlan{Meals: make([]nutriagent.MealCandidate, len(cons.MealSlots))}
	for i, slot := range cons.MealSlots {
		itemCount := 1 + rng.Intn(3)
		items := make([]nutriagent.ItemPortion, 0, itemCount)
		for j := 0; j < itemCount; j++ {
			it := pool[rng.Intn(len(pool))]
			items = append(items, nutriagent.ItemPortion{
				FoodID: it.ID,
				Grams:  float64(50 + rng.Intn(251)),
			})
		}
		plan.Meals[i] = nutriagent.MealCandidate{Slot: slot, Items: items}
	}
	return plan
}

func (o *Optimizer) evaluate(ind *individual, pool []nutriagent.FoodItem, cons nutriagent.Constraints, prefs map[string]float64) error {
	Repair(ind.plan, pool, o.cat)
	if err := ind.plan.Recompute(o.cat); err != nil {
		return err
	}
	ind.cost, ind.pref = o.fitness(ind.plan, cons, prefs)
	return nil
}

// fitness computes the cost to minimize and the mean preference score of the
// plan's items (used only for tie-breaking).
func (o *Optimizer) fitness(plan *nutriagent.MealPlan, cons nutriagent.Constraints, prefs map[string]float64) (float64, float64) {
	w := o.cfg.Weights
	t := cons.Target

	cost := w.Nutrition * (sqRelDev(plan.Totals.Calories, t.Calories) +
		sqRelDev(plan.Totals.ProteinG, t.ProteinG) +
		sqRelDev(plan.Totals.CarbsG, t.CarbsG) +
		sqRelDev(plan.Totals.FatG, t.FatG))

	// Per-slot calorie distribution term.
	for _, m := range plan.Meals {
		n, err := m.Nutrition(o.cat)
		if err != nil {
			continue
		}
		want := t.Calories * calorieShare(m.Slot, len(cons.MealSlots))
		cost += 0.25 * w.Nutrition * sqRelDev(n.Calories, want)
	}

	// Budget overruns grow superlinearly so large overruns dominate.
	if cons.DailyBudget > 0 && plan.Totals.Cost > cons.DailyBudget {
		over := (plan.Totals.Cost - cons.DailyBudget) / cons.DailyBudget
		cost += w.Budget * 10 * over * over
	}

	// Preference: distance from the maximum score, plus a small reward for
	// items tagged as fitting their slot.
	var prefSum float64
	items := 0
	for _, m := range plan.Meals {
		for _, p := range m.Items {
			prefSum += prefs[p.FoodID]
			items++
			if it, err := o.cat.Get(p.FoodID); err == nil && it.HasTag(m.Slot) {
				cost -= 0.05 * w.Preference
			}
		}
	}
	meanPref := 3.0
	if items > 0 {
		meanPref = prefSum / float64(items)
	}
	cost += w.Preference * (5 - meanPref)

	if cons.MaxPrepTime > 0 && plan.Totals.PrepTimeMinutes > cons.MaxPrepTime {
		over := float64(plan.Totals.PrepTimeMinutes-cons.MaxPrepTime) / float64(cons.MaxPrepTime)
		cost += w.PrepTime * over
	}

	return cost, meanPref
}

// trimToBudget scales every portion down proportionally when the plan's cost
// exceeds the budget beyond tolerance. A portion that would land below the
// minimum is dropped rather than clamped back up, since clamping can leave an
// expensive plan over budget. A meal that loses all its items keeps the
// cheapest one at the minimum portion so the plan stays valid.
func (o *Optimizer) trimToBudget(plan *nutriagent.MealPlan, cons nutriagent.Constraints) {
	if cons.DailyBudget <= 0 {
		return
	}
	if err := plan.Recompute(o.cat); err != nil {
		return
	}
	limit := cons.DailyBudget + o.cfg.BudgetTolerance
	if plan.Totals.Cost <= limit {
		return
	}
	scale := cons.DailyBudget / plan.Totals.Cost
	for mi := range plan.Meals {
		meal := &plan.Meals[mi]
		kept := make([]nutriagent.ItemPortion, 0, len(meal.Items))
		for _, p := range meal.Items {
			g := p.Grams * scale
			if g < minPortionGrams {
				continue
			}
			p.Grams = g
			kept = append(kept, p)
		}
		if len(kept) == 0 && len(meal.Items) > 0 {
			kept = append(kept, nutriagent.ItemPortion{FoodID: o.cheapest(meal.Items), Grams: minPortionGrams})
		}
		meal.Items = kept
	}
}

// cheapest returns the lowest-cost food among the portions; the first item
// wins ties so the choice is stable.
func (o *Optimizer) cheapest(items []nutriagent.ItemPortion) string {
	bestID := items[0].FoodID
	bestCost := math.Inf(1)
	for _, p := range items {
		it, err := o.cat.Get(p.FoodID)
		if err != nil {
			continue
		}
		if it.CostPer100g < bestCost {
			bestCost = it.CostPer100g
			bestID = p.FoodID
		}
	}
	return bestID
}

// crossover builds a child by picking each meal slot from one parent.
func crossover(rng *rand.Rand, a, b *nutriagent.MealPlan) *nutriagent.MealPlan {
	child := a.Clone()
	for i := range child.Meals {
		if i < len(b.Meals) && rng.Float64() < 0.5 {
			items := make([]nutriagent.ItemPortion, len(b.Meals[i].Items))
			copy(items, b.Meals[i].Items)
			child.Meals[i].Items = items
		}
	}
	return child
}

// mutate applies one of two operators: swap a random item for a random pool
// item, or jitter a random portion by up to 20 percent.
func (o *Optimizer) mutate(rng *rand.Rand, plan *nutriagent.MealPlan, pool []nutriagent.FoodItem) {
	if len(plan.Meals) == 0 {
		return
	}
	meal := &plan.Meals[rng.Intn(len(plan.Meals))]
	if len(meal.Items) == 0 {
		return
	}
	idx := rng.Intn(len(meal.Items))

	if rng.Float64() < 0.5 {
		meal.Items[idx].FoodID = pool[rng.Intn(len(pool))].ID
	} else {
		jitter := 1 + (rng.Float64()*0.4 - 0.2)
		meal.Items[idx].Grams = clampGrams(meal.Items[idx].Grams * jitter)
	}
}

func tournament(rng *rand.Rand, population []*individual) *individual {
	best := population[rng.Intn(len(population))]
	for i := 0; i < 2; i++ {
		c := population[rng.Intn(len(population))]
		if less(c, best) {
			best = c
		}
	}
	return best
}

// sortPopulation orders by cost, then preference, then creation sequence.
func sortPopulation(population []*individual) {
	sort.SliceStable(population, func(i, j int) bool { return less(population[i], population[j]) })
}

func less(a, b *individual) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if a.pref != b.pref {
		return a.pref > b.pref
	}
	return a.seq < b.seq
}

// sqRelDev is the squared relative deviation of got from want.
func sqRelDev(got, want float64) float64 {
	if want == 0 {
		return 0
	}
	d := (got - want) / want
	return d * d
}
