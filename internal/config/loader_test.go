package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherpai/sherpai/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(config.LoaderOptions{ConfigPaths: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "static", cfg.Generator.Provider)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, 345600, cfg.Cache.TTLSeconds)
	assert.Equal(t, 86400, cfg.Cache.FlagTTLSeconds)
	assert.Equal(t, 3, cfg.HTTP.MaxRetries)
	assert.True(t, cfg.Observability.Logging.RedactAPIKeys)
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  addr: ":9000"
  webhookSecret: hush
github:
  token: ghp_test
generator:
  provider: openrouter
  model: openai/gpt-4o
  apiKey: sk-or-test
cache:
  backend: redis
  redisURL: https://example.upstash.io
  redisToken: tok
review:
  instructions: "Focus on concurrency bugs."
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sherpai.yaml"), []byte(content), 0o600))

	cfg, err := config.Load(config.LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "hush", cfg.Server.WebhookSecret)
	assert.Equal(t, "openrouter", cfg.Generator.Provider)
	assert.Equal(t, "openai/gpt-4o", cfg.Generator.Model)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "Focus on concurrency bugs.", cfg.Review.Instructions)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("SHERPAI_TEST_TOKEN", "expanded-token")

	dir := t.TempDir()
	content := `
github:
  token: ${SHERPAI_TEST_TOKEN}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sherpai.yaml"), []byte(content), 0o600))

	cfg, err := config.Load(config.LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, "expanded-token", cfg.GitHub.Token)
}

func TestLoad_UnknownVarLeftIntact(t *testing.T) {
	dir := t.TempDir()
	content := `
github:
  token: ${DEFINITELY_NOT_SET_ANYWHERE}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sherpai.yaml"), []byte(content), 0o600))

	cfg, err := config.Load(config.LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, "${DEFINITELY_NOT_SET_ANYWHERE}", cfg.GitHub.Token)
}

func TestValidateForServe(t *testing.T) {
	valid := config.Config{
		Server:    config.ServerConfig{WebhookSecret: "hush"},
		GitHub:    config.GitHubConfig{Token: "ghp_x"},
		Generator: config.GeneratorConfig{Provider: "static"},
		Cache:     config.CacheConfig{Backend: "sqlite"},
	}
	assert.NoError(t, valid.ValidateForServe())

	missingSecret := valid
	missingSecret.Server.WebhookSecret = ""
	err := missingSecret.ValidateForServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.webhookSecret")

	missingKey := valid
	missingKey.Generator.Provider = "openrouter"
	err = missingKey.ValidateForServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generator.apiKey")

	redisNoToken := valid
	redisNoToken.Cache = config.CacheConfig{Backend: "redis", RedisURL: "https://x"}
	err = redisNoToken.ValidateForServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redisToken")
}

func TestValidateForLocal(t *testing.T) {
	static := config.Config{Generator: config.GeneratorConfig{Provider: "static"}}
	assert.NoError(t, static.ValidateForLocal())

	openrouter := config.Config{Generator: config.GeneratorConfig{Provider: "openrouter"}}
	assert.Error(t, openrouter.ValidateForLocal())
}
