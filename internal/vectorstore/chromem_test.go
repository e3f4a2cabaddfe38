package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromemUpsertAndSearchRoundTrip(t *testing.T) {
	p, err := NewChromemProvider(ChromemConfig{})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.Upsert(ctx, "reports", "doc-1", []float32{1, 0, 0}, map[string]any{"content": "first document", "stock_code": "005930"}))
	require.NoError(t, p.Upsert(ctx, "reports", "doc-2", []float32{0, 1, 0}, map[string]any{"content": "second document", "stock_code": "000660"}))

	results, err := p.Search(ctx, "reports", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "doc-1", results[0].ID)
}

func TestChromemSearchWithFilterNarrowsResults(t *testing.T) {
	p, err := NewChromemProvider(ChromemConfig{})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.Upsert(ctx, "reports", "doc-1", []float32{1, 0, 0}, map[string]any{"content": "a", "stock_code": "005930"}))
	require.NoError(t, p.Upsert(ctx, "reports", "doc-2", []float32{1, 0, 0}, map[string]any{"content": "b", "stock_code": "000660"}))

	results, err := p.SearchWithFilter(ctx, "reports", []float32{1, 0, 0}, 5, map[string]any{"stock_code": "000660"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-2", results[0].ID)
}

func TestChromemDeleteRemovesDocument(t *testing.T) {
	p, err := NewChromemProvider(ChromemConfig{})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.Upsert(ctx, "reports", "doc-1", []float32{1, 0, 0}, map[string]any{"content": "a"}))
	require.NoError(t, p.Delete(ctx, "reports", "doc-1"))

	results, err := p.Search(ctx, "reports", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNewRejectsUnknownProviderType(t *testing.T) {
	_, err := New(&Config{Type: "made-up"})
	assert.Error(t, err)
}

func TestNewNilConfigReturnsNilProvider(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, "nil", p.Name())
}

func TestRegistryRoundTrip(t *testing.T) {
	reg := NewRegistry()
	p, err := New(&Config{Type: ProviderChromem})
	require.NoError(t, err)

	require.NoError(t, reg.RegisterProvider("default", p))
	got, err := reg.GetProvider("default")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	assert.NoError(t, reg.Close())
}
