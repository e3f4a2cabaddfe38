package embedfabric

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnsupportedProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "does-not-exist"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider type")
}

func TestNewBuildsOpenAIFamilyProvider(t *testing.T) {
	p, err := New(context.Background(), Config{Provider: "openai", Name: "text-embedding-3-small"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1536, p.Dimension())
	assert.Equal(t, "text-embedding-3-small", p.ModelName())
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	p, err := New(context.Background(), Config{Provider: "bge-m3"}, nil)
	require.NoError(t, err)

	require.NoError(t, reg.RegisterProvider("default", p))

	got, err := reg.GetProvider("default")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = reg.GetProvider("missing")
	assert.Error(t, err)
}
