package agent

import "fmt"

// Registry maps agent names to implementations
type Registry map[string]Agent

// NewRegistry creates a new registry from the given agents, keyed by name.
func NewRegistry(agents ...Agent) (Registry, error) {
	reg := Registry{}
	for _, a := range agents {
		if _, dup := reg[a.Name()]; dup {
			return nil, fmt.Errorf("duplicate agent name %q", a.Name())
		}
		reg[a.Name()] = a
	}
	return reg, nil
}

// GetAgents returns all agents in the registry as a slice
func (r Registry) GetAgents() []Agent {
	agents := make([]Agent, 0, len(r))
	for _, a := range r {
		agents = append(agents, a)
	}
	return agents
}

// GetAgent retrieves an agent by name from the registry
func (r Registry) GetAgent(name string) (Agent, error) {
	a, exists := r[name]
	if !exists {
		return nil, fmt.Errorf("agent %q not found in registry", name)
	}
	return a, nil
}
