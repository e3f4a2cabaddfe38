package embedfabric

import (
	"fmt"

	"github.com/finrag/stockagent/pkg/registry"
)

// Registry holds named Provider instances, grounded on
// pkg/embedders/registry.go's EmbedderRegistry (generalized onto
// pkg/registry.BaseRegistry directly rather than re-declaring the map/mutex
// by hand).
type Registry struct {
	*registry.BaseRegistry[Provider]
}

func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Provider]()}
}

func (r *Registry) RegisterProvider(name string, p Provider) error {
	if name == "" {
		return fmt.Errorf("embedfabric: provider name cannot be empty")
	}
	if p == nil {
		return fmt.Errorf("embedfabric: provider cannot be nil")
	}
	return r.Register(name, p)
}

func (r *Registry) GetProvider(name string) (Provider, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("embedfabric: provider %q not found", name)
	}
	return p, nil
}
