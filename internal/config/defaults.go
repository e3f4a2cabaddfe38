package config

import (
	"fmt"
	"time"

	"github.com/finrag/stockagent/internal/embedfabric"
	"github.com/finrag/stockagent/internal/vectorstore"
)

// SetDefaults fills in the zero-config defaults described throughout
// spec.md §6/§9, grounded on pkg/config/config.go's SetDefaults pattern
// (nil-map initialization plus per-field fallbacks).
func (c *Config) SetDefaults() {
	if c.VectorStore == nil {
		c.VectorStore = make(map[string]VectorStoreConfig)
	}
	if c.Embedder == nil {
		c.Embedder = make(map[string]EmbedderConfig)
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.TechnicalDataTimeout == 0 {
		c.Server.TechnicalDataTimeout = 30 * time.Second
	}
	if c.TimeZone == "" {
		c.TimeZone = "Asia/Seoul"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Observability.Metrics.Namespace == "" {
		c.Observability.Metrics.Namespace = "stockagent"
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
}

// Validate reports the first structural problem found, grounded on
// pkg/config/config.go's Validate (fail on missing required cross-references).
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("config: invalid time_zone %q: %w", c.TimeZone, err)
	}
	for name, vs := range c.VectorStore {
		switch vs.Type {
		case "", "chromem", "qdrant", "pinecone":
		default:
			return fmt.Errorf("config: vector_stores[%s]: unknown type %q", name, vs.Type)
		}
	}
	return nil
}

// ToVectorStoreConfig converts one named VectorStoreConfig into
// internal/vectorstore.Config, the shape its factory consumes.
func (vs VectorStoreConfig) ToVectorStoreConfig() *vectorstore.Config {
	cfg := &vectorstore.Config{Type: vectorstore.ProviderType(vs.Type)}
	switch cfg.Type {
	case "qdrant":
		cfg.Qdrant = &vectorstore.QdrantConfig{Host: vs.Host, Port: vs.Port, APIKey: vs.APIKey, UseTLS: vs.UseTLS}
	case "pinecone":
		cfg.Pinecone = &vectorstore.PineconeConfig{APIKey: vs.APIKey, Host: vs.Host, IndexName: vs.IndexName, Environment: vs.Environment}
	default:
		cfg.Chromem = &vectorstore.ChromemConfig{PersistPath: vs.PersistPath, Compress: vs.Compress}
	}
	return cfg
}

// ToEmbedfabricConfig converts a named EmbedderConfig into
// internal/embedfabric.Config.
func (e EmbedderConfig) ToEmbedfabricConfig(name string) embedfabric.Config {
	return embedfabric.Config{
		Name:      name,
		Provider:  e.Provider,
		Dimension: e.Dimension,
		MaxTokens: e.MaxTokens,
		APIKey:    e.APIKey,
		BaseURL:   e.BaseURL,
		BatchSize: e.BatchSize,
	}
}
