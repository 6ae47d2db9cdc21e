package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "datastory/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "DATABASE_DRIVER", "PORT", "UPLOAD_DIR", "MAX_FILE_SIZE",
		"MAX_STORED_ROWS", "LOG_LEVEL", "AI_TIMEOUT", "AI_MAX_CONCURRENT",
		"PROMPTS_DIR", "PROVIDERS_FILE", "INSIGHT_CHAIN", "STORY_CHAIN",
		"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
		"TEMPERATURE", "MAX_TOKENS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "datastory.db", cfg.Database.URL)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxFileSize)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.Empty(t, cfg.AI.Providers)
	assert.Empty(t, cfg.AI.InsightChain)
}

func TestLoadProvidersFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "o-key")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("DATABASE_URL", "postgres://localhost/datastory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	require.Len(t, cfg.AI.Providers, 2)
	assert.Equal(t, "gemini", cfg.AI.Providers[0].Name)
	assert.Equal(t, "gpt-4o", cfg.AI.Providers[1].Model)
	assert.Equal(t, []string{"gemini"}, cfg.AI.InsightChain)
	assert.Equal(t, []string{"gemini", "openai"}, cfg.AI.StoryChain)
}

func TestLoadChainOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "o-key")
	t.Setenv("INSIGHT_CHAIN", "openai")
	t.Setenv("STORY_CHAIN", "openai, gemini")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"openai"}, cfg.AI.InsightChain)
	assert.Equal(t, []string{"openai", "gemini"}, cfg.AI.StoryChain)
}

func TestLoadProvidersFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOCAL_KEY", "secret")
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  - name: local
    kind: openai
    model: llama3
    base_url: http://localhost:11434/v1
    api_key_env: LOCAL_KEY
  - kind: gemini
    model: gemini-1.5-pro
    api_key: inline
insight_chain: [gemini]
story_chain: [local, gemini]
`), 0o644))
	t.Setenv("PROVIDERS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.AI.Providers, 2)
	assert.Equal(t, "secret", cfg.AI.Providers[0].APIKey)
	assert.Equal(t, "gemini", cfg.AI.Providers[1].Name)
	assert.Equal(t, []string{"gemini"}, cfg.AI.InsightChain)
	assert.Equal(t, []string{"local", "gemini"}, cfg.AI.StoryChain)
}

func TestLoadRejectsUnknownChainProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("STORY_CHAIN", "gemini,claude")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigInvalid))
	assert.Contains(t, err.Error(), `unknown provider "claude"`)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_DRIVER", "mysql")

	_, err := Load()
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigInvalid))
}
