package coordinator

import (
	"context"
	"sync/atomic"

	"nutriagent/agent"
)

// pool serializes work onto a fixed set of workers for one agent. Requests
// route to the least-busy worker; ties rotate round-robin so load spreads
// evenly under equal occupancy.
type pool struct {
	agent   agent.Agent
	slots   []chan struct{}
	active  []atomic.Int64
	nextIdx atomic.Uint64
}

func newPool(a agent.Agent, workers int) *pool {
	if workers < 1 {
		workers = 1
	}
	p := &pool{
		agent:  a,
		slots:  make([]chan struct{}, workers),
		active: make([]atomic.Int64, workers),
	}
	for i := range p.slots {
		p.slots[i] = make(chan struct{}, 1)
	}
	return p
}

// dispatch runs the agent on the selected worker, blocking until that worker
// is free or the context ends.
func (p *pool) dispatch(ctx context.Context, in agent.Input) (agent.Output, error) {
	idx := p.pick()
	p.active[idx].Add(1)
	defer p.active[idx].Add(-1)

	select {
	case p.slots[idx] <- struct{}{}:
		defer func() { <-p.slots[idx] }()
	case <-ctx.Done():
		return agent.Output{}, ctx.Err()
	}

	return p.agent.Process(ctx, in)
}

// pick chooses the least-busy worker, scanning from a rotating start index
// so equally idle workers take turns.
func (p *pool) pick() int {
	start := int(p.nextIdx.Add(1)-1) % len(p.slots)
	best := start
	bestLoad := p.active[start].Load()
	for i := 1; i < len(p.slots); i++ {
		idx := (start + i) % len(p.slots)
		if load := p.active[idx].Load(); load < bestLoad {
			best = idx
			bestLoad = load
		}
	}
	return best
}
