package vectorstore

import (
	"fmt"

	"github.com/finrag/stockagent/pkg/registry"
)

// ProviderType identifies a configured backend, grounded on
// pkg/vector/factory.go's ProviderType/ProviderConfig split (trimmed to the
// three backends this repo actually wires: Qdrant and Pinecone for
// production, chromem for local/offline mode).
type ProviderType string

const (
	ProviderChromem  ProviderType = "chromem"
	ProviderQdrant   ProviderType = "qdrant"
	ProviderPinecone ProviderType = "pinecone"
)

// Config selects and configures one backend.
type Config struct {
	Type     ProviderType
	Chromem  *ChromemConfig
	Qdrant   *QdrantConfig
	Pinecone *PineconeConfig
}

// New builds the concrete Provider for cfg.Type, grounded on
// pkg/vector/factory.go's NewProvider switch.
func New(cfg *Config) (Provider, error) {
	if cfg == nil {
		return NilProvider{}, nil
	}

	switch cfg.Type {
	case ProviderChromem, "":
		chromemCfg := ChromemConfig{}
		if cfg.Chromem != nil {
			chromemCfg = *cfg.Chromem
		}
		return NewChromemProvider(chromemCfg)

	case ProviderQdrant:
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("vectorstore: qdrant configuration is required")
		}
		return NewQdrantProvider(*cfg.Qdrant)

	case ProviderPinecone:
		if cfg.Pinecone == nil {
			return nil, fmt.Errorf("vectorstore: pinecone configuration is required")
		}
		return NewPineconeProvider(*cfg.Pinecone)

	default:
		return nil, fmt.Errorf("vectorstore: unknown provider type %q", cfg.Type)
	}
}

// Registry holds named Provider instances, grounded on
// pkg/vector/factory.go's Registry (generalized onto
// pkg/registry.BaseRegistry[Provider] instead of the teacher's hand-rolled
// map/mutex, matching internal/embedfabric.Registry's same treatment).
type Registry struct {
	*registry.BaseRegistry[Provider]
}

func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Provider]()}
}

func (r *Registry) RegisterProvider(name string, p Provider) error {
	if name == "" {
		return fmt.Errorf("vectorstore: provider name cannot be empty")
	}
	if p == nil {
		return fmt.Errorf("vectorstore: provider cannot be nil")
	}
	return r.Register(name, p)
}

func (r *Registry) GetProvider(name string) (Provider, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("vectorstore: provider %q not found", name)
	}
	return p, nil
}

// Close closes every registered provider, aggregating failures, grounded on
// pkg/vector/factory.go's Registry.Close.
func (r *Registry) Close() error {
	var errs []error
	for _, p := range r.List() {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("vectorstore: errors closing providers: %v", errs)
	}
	return nil
}
