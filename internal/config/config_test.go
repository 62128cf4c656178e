package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/live-subtitle/backend/internal/job"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/data", cfg.DataPath)
	assert.Equal(t, "/data/subtitle-relay.db", cfg.DBPath)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 500, cfg.CacheSize)
	assert.Equal(t, job.DefaultPolicy(), cfg.Poll)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_PATH", "/srv/relay")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("TRANSLATOR_ENGINE", "DeepL")
	t.Setenv("DEEPL_API_KEY", "dk")
	t.Setenv("BACKEND_URL", "http://backend:8000/")
	t.Setenv("POLL_MAX_ATTEMPTS", "10")
	t.Setenv("POLL_RETRY_MAX", "1m")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/srv/relay/subtitle-relay.db", cfg.DBPath)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "deepl", cfg.TranslatorEngine)
	assert.Equal(t, "http://backend:8000", cfg.BackendURL)
	assert.Equal(t, 10, cfg.Poll.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Poll.RetryMax)

	opts := cfg.TranslateOptions(nil)
	assert.Equal(t, "deepl", opts.Engine)
	assert.Equal(t, "dk", opts.DeepLKey)
	assert.Equal(t, "gemini-2.0-flash", opts.GeminiModel())
}

func TestLoad_FileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 7000\ndb_path: /tmp/x.db\nopenai_model: gpt-4o\n"), 0o644))
	t.Setenv(EnvConfigFile, path)
	t.Setenv("PORT", "7100")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7100, cfg.Port)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("TRANSLATOR_ENGINE", "babelfish")
	_, err := Load("")
	assert.ErrorContains(t, err, "babelfish")

	t.Setenv("TRANSLATOR_ENGINE", "")
	t.Setenv("POLL_MAX_ATTEMPTS", "0")
	_, err = Load("")
	assert.ErrorContains(t, err, "poll_max_attempts")
}
