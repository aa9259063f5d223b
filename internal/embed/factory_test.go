package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder_Static(t *testing.T) {
	e, err := NewEmbedder(context.Background(), FactoryConfig{Provider: ProviderStatic})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	// Cache wrapping is on by default
	cached, ok := e.(*CachedEmbedder)
	require.True(t, ok)
	assert.IsType(t, &StaticEmbedder{}, cached.Inner())
}

func TestNewEmbedder_CacheDisabledByEnv(t *testing.T) {
	t.Setenv("DOCQA_EMBED_CACHE", "false")

	e, err := NewEmbedder(context.Background(), FactoryConfig{Provider: ProviderStatic})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.IsType(t, &StaticEmbedder{}, e)
}

func TestNewEmbedder_EnvProviderOverride(t *testing.T) {
	t.Setenv("DOCQA_EMBEDDER", "static")

	e, err := NewEmbedder(context.Background(), FactoryConfig{Provider: ProviderOllama})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	info := GetInfo(context.Background(), e)
	assert.Equal(t, ProviderStatic, info.Provider)
}

func TestParseProvider(t *testing.T) {
	assert.Equal(t, ProviderStatic, ParseProvider("static"))
	assert.Equal(t, ProviderStatic, ParseProvider("STATIC"))
	assert.Equal(t, ProviderOllama, ParseProvider("ollama"))
	assert.Equal(t, ProviderOllama, ParseProvider(""), "unknown defaults to ollama")
	assert.Equal(t, ProviderOllama, ParseProvider("bogus"))
}

func TestIsValidProvider(t *testing.T) {
	assert.True(t, IsValidProvider("ollama"))
	assert.True(t, IsValidProvider("Static"))
	assert.False(t, IsValidProvider("mlx"))
}

func TestGetInfo_Static(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	info := GetInfo(context.Background(), e)
	assert.Equal(t, ProviderStatic, info.Provider)
	assert.Equal(t, "static", info.Model)
	assert.Equal(t, StaticDimensions, info.Dimensions)
	assert.True(t, info.Available)
}
