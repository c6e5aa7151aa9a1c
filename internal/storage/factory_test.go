package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myysophia/filehub-backend/internal/config"
)

func newTestFactory(t *testing.T) *DefaultFactory {
	t.Helper()
	return NewFactory(&config.StorageConfig{
		Local: config.LocalConfig{BaseDir: t.TempDir()},
	})
}

func TestFactory_UnknownTypeIsError(t *testing.T) {
	factory := newTestFactory(t)

	provider, err := factory.GetProvider("FTP")
	assert.Nil(t, provider)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "不支持的存储类型")
}

func TestFactory_ProviderCached(t *testing.T) {
	factory := newTestFactory(t)

	first, err := factory.GetProvider(ProviderLocal)
	require.NoError(t, err)
	second, err := factory.GetProvider(ProviderLocal)
	require.NoError(t, err)
	assert.Same(t, first, second)

	factory.ClearCache()
	third, err := factory.GetProvider(ProviderLocal)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestFactory_DefaultFallsBackToLocal(t *testing.T) {
	factory := newTestFactory(t)

	provider, err := factory.GetDefaultProvider()
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, provider.GetType())
}

func TestFactory_DefaultFromConfig(t *testing.T) {
	factory := NewFactory(&config.StorageConfig{
		Default: ProviderLocal,
		Local:   config.LocalConfig{BaseDir: t.TempDir()},
	})

	provider, err := factory.GetDefaultProvider()
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, provider.GetType())
}
