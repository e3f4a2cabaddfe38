// Package config loads and hot-reloads the process-wide configuration
// spec.md §6 describes: vector-store/embedder provider settings, the
// technical-data HTTP service endpoint, the financial-report database
// DSN, and the server's listen address and time zone — distinct from
// internal/llmfabric.ConfigStore, which owns only the per-agent LLM
// provider/fallback config file spec.md §6 calls out separately.
package config

import "time"

// Config is the root process configuration, grounded on
// pkg/config/config.go's top-level Config struct (Databases/VectorStores/
// Embedders/Server/Logger maps), narrowed to this system's components.
type Config struct {
	Version     string `yaml:"version,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`

	Database    DatabaseConfig               `yaml:"database,omitempty"`
	VectorStore map[string]VectorStoreConfig `yaml:"vector_stores,omitempty"`
	Embedder    map[string]EmbedderConfig    `yaml:"embedders,omitempty"`

	LLMConfigPath string `yaml:"llm_config_path,omitempty"`

	Server        ServerConfig        `yaml:"server,omitempty"`
	Logger        LoggerConfig        `yaml:"logger,omitempty"`
	Observability ObservabilityConfig `yaml:"observability,omitempty"`

	// TimeZone localizes the time-decay computations in internal/retrieval
	// (spec.md §4.3(g): "times are localized to a configured time zone").
	TimeZone string `yaml:"time_zone,omitempty"`
}

// DatabaseConfig is the financial-report repository's Postgres DSN,
// grounded on pkg/config/database.go's DatabaseConfig shape, narrowed to
// the one connection internal/financial.Repository needs.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn,omitempty"`
	MaxConns        int32         `yaml:"max_conns,omitempty"`
	MinConns        int32         `yaml:"min_conns,omitempty"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty"`
}

// VectorStoreConfig names a backend (chromem/qdrant/pinecone) and its
// connection settings, mirrored onto internal/vectorstore.Config by
// ToVectorStoreConfig (kept as its own YAML-facing type rather than
// adding yaml tags to internal/vectorstore.Config, so that package stays
// free of a config-format dependency).
type VectorStoreConfig struct {
	Type string `yaml:"type,omitempty"`

	PersistPath string `yaml:"persist_path,omitempty"`
	Compress    bool   `yaml:"compress,omitempty"`

	Host   string `yaml:"host,omitempty"`
	Port   int    `yaml:"port,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`
	UseTLS bool   `yaml:"use_tls,omitempty"`

	IndexName   string `yaml:"index_name,omitempty"`
	Environment string `yaml:"environment,omitempty"`
}

// EmbedderConfig mirrors internal/embedfabric.Config for YAML decoding.
type EmbedderConfig struct {
	Provider  string `yaml:"provider,omitempty"`
	Dimension int    `yaml:"dimension,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	BatchSize int    `yaml:"batch_size,omitempty"`
}

// ServerConfig configures the HTTP/SSE endpoint (spec.md §6) and the
// technical-data service client (spec.md §6's "Technical-data service").
type ServerConfig struct {
	Port int `yaml:"port,omitempty"`

	TechnicalDataServiceURL string        `yaml:"technical_data_service_url,omitempty"`
	TechnicalDataTimeout    time.Duration `yaml:"technical_data_timeout,omitempty"`
}

// LoggerConfig configures slog output, grounded on pkg/config/logger.go's
// LoggerConfig shape.
type LoggerConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // "json" or "text"
}

// ObservabilityConfig controls the Prometheus-exposition metrics pipeline,
// narrowed from pkg/observability/config.go's Config{Tracing, Metrics} to
// the metrics half only (spec.md names no distributed-tracing requirement
// for this system).
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// MetricsConfig mirrors pkg/observability/config.go's MetricsConfig,
// narrowed to what internal/observability.New needs: whether to collect
// at all, the metric namespace prefix, and the scrape path.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
	Path      string `yaml:"path,omitempty"`
}
