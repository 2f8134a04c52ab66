package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StaticProvider(t *testing.T) {
	e, err := New(Config{Provider: ProviderStatic, CacheSize: 16}, nil)
	require.NoError(t, err)
	require.NotNil(t, e)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "static", e.ModelName())
	assert.Equal(t, StaticDimensions, e.Dimensions())
}

func TestNew_EmptyProviderDefaultsToStatic(t *testing.T) {
	e, err := New(Config{}, nil)
	require.NoError(t, err)
	require.NotNil(t, e)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "static", e.ModelName())
}

func TestNew_NoneProviderDisablesEmbeddings(t *testing.T) {
	e, err := New(Config{Provider: ProviderNone}, nil)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestNew_HTTPProviderWithoutCredentialDisablesEmbeddings(t *testing.T) {
	t.Setenv("RECALL_TEST_FACTORY_KEY", "")

	e, err := New(Config{
		Provider:   ProviderHTTP,
		APIKeyEnv:  "RECALL_TEST_FACTORY_KEY",
		Dimensions: 256,
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestNew_HTTPProviderWithCredential(t *testing.T) {
	t.Setenv("RECALL_TEST_FACTORY_KEY", "token")

	e, err := New(Config{
		Provider:   ProviderHTTP,
		Model:      "nomic-embed-text",
		APIKeyEnv:  "RECALL_TEST_FACTORY_KEY",
		Dimensions: 256,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, e)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "nomic-embed-text", e.ModelName())
	assert.Equal(t, 256, e.Dimensions())
}

func TestNew_UnknownProviderRejected(t *testing.T) {
	_, err := New(Config{Provider: "quantum"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantum")
}
