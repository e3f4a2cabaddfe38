package config

import (
	"testing"

	"github.com/finrag/stockagent/internal/vectorstore"
	"github.com/stretchr/testify/assert"
)

func TestSetDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.NotNil(t, cfg.VectorStore)
	assert.NotNil(t, cfg.Embedder)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(30*1e9), cfg.Server.TechnicalDataTimeout.Nanoseconds())
	assert.Equal(t, "Asia/Seoul", cfg.TimeZone)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.EqualValues(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, "stockagent", cfg.Observability.Metrics.Namespace)
	assert.Equal(t, "/metrics", cfg.Observability.Metrics.Path)
}

func TestSetDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 9090}, TimeZone: "UTC"}
	cfg.SetDefaults()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "UTC", cfg.TimeZone)
}

func TestValidateRejectsUnknownTimeZone(t *testing.T) {
	cfg := &Config{TimeZone: "Not/A_Zone"}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsUnknownVectorStoreType(t *testing.T) {
	cfg := &Config{
		TimeZone:    "UTC",
		VectorStore: map[string]VectorStoreConfig{"default": {Type: "mongo"}},
	}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateAcceptsKnownVectorStoreTypes(t *testing.T) {
	for _, typ := range []string{"", "chromem", "qdrant", "pinecone"} {
		cfg := &Config{
			TimeZone:    "UTC",
			VectorStore: map[string]VectorStoreConfig{"default": {Type: typ}},
		}
		assert.NoError(t, cfg.Validate(), "type %q should validate", typ)
	}
}

func TestToVectorStoreConfigSelectsBackendByType(t *testing.T) {
	qdrant := VectorStoreConfig{Type: "qdrant", Host: "localhost", Port: 6334, APIKey: "k"}
	cfg := qdrant.ToVectorStoreConfig()
	assert.Equal(t, vectorstore.ProviderType("qdrant"), cfg.Type)
	assert.NotNil(t, cfg.Qdrant)
	assert.Equal(t, "localhost", cfg.Qdrant.Host)

	pinecone := VectorStoreConfig{Type: "pinecone", APIKey: "k", IndexName: "idx"}
	cfg = pinecone.ToVectorStoreConfig()
	assert.NotNil(t, cfg.Pinecone)
	assert.Equal(t, "idx", cfg.Pinecone.IndexName)

	chromem := VectorStoreConfig{Type: "", PersistPath: "/tmp/x"}
	cfg = chromem.ToVectorStoreConfig()
	assert.NotNil(t, cfg.Chromem)
	assert.Equal(t, "/tmp/x", cfg.Chromem.PersistPath)
}

func TestToEmbedfabricConfigCopiesFields(t *testing.T) {
	e := EmbedderConfig{Provider: "openai", APIKey: "k", Dimension: 1536, MaxTokens: 8191, BatchSize: 100}
	out := e.ToEmbedfabricConfig("default")
	assert.Equal(t, "default", out.Name)
	assert.Equal(t, "openai", out.Provider)
	assert.Equal(t, 1536, out.Dimension)
	assert.Equal(t, 8191, out.MaxTokens)
	assert.Equal(t, 100, out.BatchSize)
}
