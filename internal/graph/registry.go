// Package graph implements spec.md §4.5's orchestration graph: a registry
// of named agents, a fixed-pipeline scheduler with continue-on-error
// parallel fan-out, and the status-callback/Korean-translation plumbing the
// streaming HTTP layer reads from.
package graph

import (
	"github.com/finrag/stockagent/internal/agents"
	"github.com/finrag/stockagent/pkg/registry"
)

// Registry maps agent name to instance, reusing the teacher's generic
// BaseRegistry[T] verbatim rather than hand-rolling a map+mutex again.
type Registry struct {
	*registry.BaseRegistry[agents.Agent]
}

// NewRegistry returns an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[agents.Agent]()}
}

// MustRegister registers every given agent under its own Name(), panicking
// on a duplicate name — wiring is a startup-time programming error, not a
// runtime condition to recover from.
func (r *Registry) MustRegister(agentList ...agents.Agent) {
	for _, a := range agentList {
		if err := r.Register(a.Name(), a); err != nil {
			panic(err)
		}
	}
}
