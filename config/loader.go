package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server" env:"SERVER"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" env:"ORCHESTRATOR"`
	Providers    ProvidersConfig    `yaml:"providers" env:"PROVIDERS"`
	Vault        VaultConfig        `yaml:"vault" env:"VAULT"`
	Redis        RedisConfig        `yaml:"redis" env:"REDIS"`
	Database     DatabaseConfig     `yaml:"database" env:"DATABASE"`
	Report       ReportConfig       `yaml:"report" env:"REPORT"`
	Log          LogConfig          `yaml:"log" env:"LOG"`
	Telemetry    TelemetryConfig    `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort     int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// OrchestratorConfig tunes conversation scheduling.
type OrchestratorConfig struct {
	// MaxRounds is the safety cap on full rounds per run.
	MaxRounds int `yaml:"max_rounds" env:"MAX_ROUNDS"`
	// DefaultMaxTurns is applied to sessions created without one.
	DefaultMaxTurns int `yaml:"default_max_turns" env:"DEFAULT_MAX_TURNS"`
	// RunTimeout bounds one whole conversation run.
	RunTimeout time.Duration `yaml:"run_timeout" env:"RUN_TIMEOUT"`
}

// ProvidersConfig holds per-backend endpoint settings. API keys are never
// configured here; they live encrypted in the vault per user.
type ProvidersConfig struct {
	OpenAI ProviderEndpoint `yaml:"openai" env:"OPENAI"`
	Gemini ProviderEndpoint `yaml:"gemini" env:"GEMINI"`
	// MockEnabled registers the deterministic mock backend, for local
	// development and tests.
	MockEnabled bool `yaml:"mock_enabled" env:"MOCK_ENABLED"`
}

// ProviderEndpoint configures one upstream LLM service.
type ProviderEndpoint struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Model   string        `yaml:"model" env:"MODEL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// VaultConfig configures credential encryption.
type VaultConfig struct {
	// AppSecret derives the AES key that seals stored API keys. It must
	// be set in production; the loader rejects an empty value.
	AppSecret string `yaml:"app_secret" env:"APP_SECRET"`
}

// RedisConfig configures the report cache.
type RedisConfig struct {
	Enabled      bool   `yaml:"enabled" env:"ENABLED"`
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	// Driver is postgres, mysql, or sqlite.
	Driver          string        `yaml:"driver" env:"DRIVER"`
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Name            string        `yaml:"name" env:"NAME"`
	SSLMode         string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// ReportConfig tunes report and summary generation.
type ReportConfig struct {
	// SummaryProvider names the backend used for AI summaries.
	SummaryProvider string `yaml:"summary_provider" env:"SUMMARY_PROVIDER"`
	// SummaryModel overrides the backend's default model.
	SummaryModel string `yaml:"summary_model" env:"SUMMARY_MODEL"`
	// CacheTTL bounds how long a rendered report is served from cache.
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Loader builds a Config from defaults, an optional YAML file, and
// environment overrides.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the AGENTVERSE env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "AGENTVERSE"}
}

// WithConfigPath sets the YAML file path. A missing file is not an error.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator appends a validation hook run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration. Precedence, lowest to highest:
// defaults, YAML file, environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("load config env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads configuration from path and panics on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}
	return cfg
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Orchestrator.MaxRounds <= 0 {
		errs = append(errs, "orchestrator max_rounds must be positive")
	}
	if c.Orchestrator.DefaultMaxTurns <= 0 {
		errs = append(errs, "orchestrator default_max_turns must be positive")
	}
	if c.Vault.AppSecret == "" {
		errs = append(errs, "vault app_secret must be set")
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, "database driver must be postgres, mysql, or sqlite")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DSN renders the database connection string for the configured driver.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
