// Package registry holds the roster of analysis agents. The registry is
// assembled once at startup and read-only afterwards; the orchestrator
// fans out over whatever the registry lists, and the batch it returns
// carries exactly one result per listed agent.
package registry

import (
	"context"
	"sort"

	"github.com/procurant/docpipe/internal/config"
	"github.com/procurant/docpipe/internal/domain"
)

// Agent is one analysis unit the orchestrator can dispatch.
type Agent interface {
	// Descriptor returns the agent's identity and execution budget.
	Descriptor() domain.AgentDescriptor

	// Analyze extracts this agent's fields from the document. A nil map
	// with nil error means the agent ran but found nothing.
	Analyze(ctx context.Context, doc domain.Document) (map[string]domain.FieldValue, error)
}

// Registry is the immutable agent roster.
type Registry struct {
	agents []Agent
	byName map[string]Agent
}

// New builds a registry from the given agents. Registration fails on
// duplicate names, invalid descriptors, or a category left without any
// agent; a bad roster is a deployment error, not something to limp past
// at runtime.
func New(agents ...Agent) (*Registry, error) {
	r := &Registry{byName: make(map[string]Agent, len(agents))}
	perCategory := make(map[domain.AgentCategory]int, len(domain.Categories()))
	for _, a := range agents {
		desc := a.Descriptor()
		if err := desc.Validate(); err != nil {
			return nil, domain.NewConfigurationError("invalid agent descriptor %q: %v", desc.Name, err)
		}
		if _, exists := r.byName[desc.Name]; exists {
			return nil, domain.NewConfigurationError("duplicate agent name %q", desc.Name)
		}
		r.byName[desc.Name] = a
		r.agents = append(r.agents, a)
		perCategory[desc.Category]++
	}

	// Every category contributes to a benchmark dimension; an uncovered
	// category would silently hollow out downstream scoring.
	for _, cat := range domain.Categories() {
		if perCategory[cat] == 0 {
			return nil, domain.NewConfigurationError("category %q has no agents", cat)
		}
	}

	// Dispatch order is deterministic: category priority, then agent
	// priority descending, then name.
	sort.SliceStable(r.agents, func(i, j int) bool {
		di, dj := r.agents[i].Descriptor(), r.agents[j].Descriptor()
		pi, pj := domain.CategoryPriority(di.Category), domain.CategoryPriority(dj.Category)
		if pi != pj {
			return pi < pj
		}
		if di.Priority != dj.Priority {
			return di.Priority > dj.Priority
		}
		return di.Name < dj.Name
	})

	return r, nil
}

// List returns all agents in dispatch order.
func (r *Registry) List() []Agent {
	out := make([]Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

// ListCategory returns the agents of one category in dispatch order.
func (r *Registry) ListCategory(cat domain.AgentCategory) []Agent {
	var out []Agent
	for _, a := range r.agents {
		if a.Descriptor().Category == cat {
			out = append(out, a)
		}
	}
	return out
}

// Get looks an agent up by name.
func (r *Registry) Get(name string) (Agent, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Len returns the roster size.
func (r *Registry) Len() int { return len(r.agents) }

// Descriptors returns the descriptors in dispatch order.
func (r *Registry) Descriptors() []domain.AgentDescriptor {
	out := make([]domain.AgentDescriptor, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a.Descriptor())
	}
	return out
}

// DescriptorsFromConfig converts configured roster overrides into
// descriptors.
func DescriptorsFromConfig(entries []config.AgentConfig) ([]domain.AgentDescriptor, error) {
	out := make([]domain.AgentDescriptor, 0, len(entries))
	for _, e := range entries {
		d := domain.AgentDescriptor{
			Name:       e.Name,
			Category:   domain.AgentCategory(e.Category),
			Timeout:    e.Timeout,
			MaxRetries: e.MaxRetries,
			Priority:   e.Priority,
		}
		if err := d.Validate(); err != nil {
			return nil, domain.NewConfigurationError("invalid agent config %q: %v", e.Name, err)
		}
		out = append(out, d)
	}
	return out, nil
}
