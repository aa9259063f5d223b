package embed

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps StaticEmbedder and counts inner calls.
type countingEmbedder struct {
	*StaticEmbedder

	mu         sync.Mutex
	embedCalls int
	batchCalls int
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.embedCalls++
	c.mu.Unlock()
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.batchCalls++
	c.mu.Unlock()
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_CacheHit(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachedEmbedder(inner, 10)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()

	first, err := cached.Embed(ctx, "repeated question")
	require.NoError(t, err)

	second, err := cached.Embed(ctx, "repeated question")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.embedCalls, "second call should be served from cache")
}

func TestCachedEmbedder_DistinctTexts(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachedEmbedder(inner, 10)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	_, err := cached.Embed(ctx, "question one")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "question two")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.embedCalls)
}

func TestCachedEmbedder_BatchPartialHit(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachedEmbedder(inner, 10)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()

	// Prime the cache with one text.
	primed, err := cached.Embed(ctx, "already cached")
	require.NoError(t, err)

	results, err := cached.EmbedBatch(ctx, []string{"already cached", "fresh text"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, primed, results[0])
	assert.Equal(t, 1, inner.batchCalls, "only uncached texts hit the inner embedder")
}

func TestCachedEmbedder_BatchAllCached(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachedEmbedder(inner, 10)
	defer func() { _ = cached.Close() }()

	ctx := context.Background()
	texts := []string{"a", "b"}

	_, err := cached.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	_, err = cached.EmbedBatch(ctx, texts)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.batchCalls, "fully cached batch should not call inner")
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachedEmbedder(inner, 10)
	defer func() { _ = cached.Close() }()

	assert.Equal(t, inner.Dimensions(), cached.Dimensions())
	assert.Equal(t, inner.ModelName(), cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
	assert.Same(t, Embedder(inner), cached.Inner())
}

func TestCachedEmbedder_DefaultSize(t *testing.T) {
	cached := NewCachedEmbedder(NewStaticEmbedder(), 0)
	defer func() { _ = cached.Close() }()

	_, err := cached.Embed(context.Background(), "size defaulting")
	assert.NoError(t, err)
}
