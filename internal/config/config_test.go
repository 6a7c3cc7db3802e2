package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "littlex.yaml")
	cfg := Default()
	cfg.Server.BaseURL = "http://example.test:8000"
	cfg.Sync.IntervalSeconds = 30
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://example.test:8000", got.Server.BaseURL)
	assert.Equal(t, 30*time.Second, got.SyncInterval())
}

func TestResolveEnvFillsEmptyFields(t *testing.T) {
	t.Setenv("LITTLEX_BASE_URL", "http://env.test")
	cfg := Config{}
	cfg.ResolveEnv()
	assert.Equal(t, "http://env.test", cfg.Server.BaseURL)
}

func TestResolveEnvDoesNotOverride(t *testing.T) {
	t.Setenv("LITTLEX_BASE_URL", "http://env.test")
	cfg := Default()
	cfg.ResolveEnv()
	assert.Equal(t, "http://localhost:8000", cfg.Server.BaseURL)
}

func TestTimeoutDefaultsWhenUnset(t *testing.T) {
	var cfg Config
	assert.Equal(t, 15*time.Second, cfg.Timeout())
}
