package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 3, cfg.Orchestrator.MaxRounds)
	assert.Equal(t, 10, cfg.Orchestrator.DefaultMaxTurns)
	assert.Equal(t, "https://api.openai.com", cfg.Providers.OpenAI.BaseURL)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Empty(t, cfg.Vault.AppSecret)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  http_port: 9000
orchestrator:
  max_rounds: 5
  run_timeout: 2m
vault:
  app_secret: file-secret
database:
  driver: postgres
  host: db.internal
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, 5, cfg.Orchestrator.MaxRounds)
	assert.Equal(t, 2*time.Minute, cfg.Orchestrator.RunTimeout)
	assert.Equal(t, "file-secret", cfg.Vault.AppSecret)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	// Untouched values keep defaults.
	assert.Equal(t, 10, cfg.Orchestrator.DefaultMaxTurns)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9000\n"), 0o600))

	t.Setenv("AGENTVERSE_SERVER_HTTP_PORT", "9100")
	t.Setenv("AGENTVERSE_ORCHESTRATOR_MAX_ROUNDS", "7")
	t.Setenv("AGENTVERSE_VAULT_APP_SECRET", "env-secret")
	t.Setenv("AGENTVERSE_PROVIDERS_OPENAI_TIMEOUT", "90s")
	t.Setenv("AGENTVERSE_PROVIDERS_MOCK_ENABLED", "true")
	t.Setenv("AGENTVERSE_LOG_OUTPUT_PATHS", "stdout, /var/log/agentverse.log")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.HTTPPort)
	assert.Equal(t, 7, cfg.Orchestrator.MaxRounds)
	assert.Equal(t, "env-secret", cfg.Vault.AppSecret)
	assert.Equal(t, 90*time.Second, cfg.Providers.OpenAI.Timeout)
	assert.True(t, cfg.Providers.MockEnabled)
	assert.Equal(t, []string{"stdout", "/var/log/agentverse.log"}, cfg.Log.OutputPaths)
}

func TestEnvPrefixOverride(t *testing.T) {
	t.Setenv("AV_SERVER_HTTP_PORT", "1234")

	cfg, err := NewLoader().WithEnvPrefix("AV").Load()
	require.NoError(t, err)
	assert.Equal(t, 1234, cfg.Server.HTTPPort)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Vault.AppSecret = "secret"
	assert.NoError(t, cfg.Validate())

	bad := DefaultConfig()
	bad.Vault.AppSecret = ""
	bad.Server.HTTPPort = -1
	bad.Database.Driver = "oracle"
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_secret")
	assert.Contains(t, err.Error(), "HTTP port")
	assert.Contains(t, err.Error(), "driver")
}

func TestValidatorHook(t *testing.T) {
	called := false
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			called = true
			return nil
		}).
		Load()
	require.NoError(t, err)
	assert.True(t, called)
}

func TestDatabaseDSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "h", Port: 5432, User: "u", Password: "p", Name: "db", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=db sslmode=disable", pg.DSN())

	my := DatabaseConfig{Driver: "mysql", Host: "h", Port: 3306, User: "u", Password: "p", Name: "db"}
	assert.Equal(t, "u:p@tcp(h:3306)/db?parseTime=true", my.DSN())

	lite := DatabaseConfig{Driver: "sqlite", Name: "file.db"}
	assert.Equal(t, "file.db", lite.DSN())

	unknown := DatabaseConfig{Driver: "oracle"}
	assert.Empty(t, unknown.DSN())
}
