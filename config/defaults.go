package config

import "time"

// DefaultConfig returns the configuration used when nothing overrides it.
// Vault.AppSecret deliberately has no default; Validate rejects it empty.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			MetricsPort:     9091,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Orchestrator: OrchestratorConfig{
			MaxRounds:       3,
			DefaultMaxTurns: 10,
			RunTimeout:      10 * time.Minute,
		},
		Providers: ProvidersConfig{
			OpenAI: ProviderEndpoint{
				BaseURL: "https://api.openai.com",
				Model:   "gpt-4o-mini",
				Timeout: 60 * time.Second,
			},
			Gemini: ProviderEndpoint{
				BaseURL: "https://generativelanguage.googleapis.com",
				Model:   "gemini-2.5-flash",
				Timeout: 60 * time.Second,
			},
			MockEnabled: false,
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			Name:            "agentverse.db",
			Host:            "localhost",
			Port:            5432,
			User:            "agentverse",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Report: ReportConfig{
			SummaryProvider: "openai",
			CacheTTL:        10 * time.Minute,
		},
		Log: LogConfig{
			Level:        "info",
			Format:       "json",
			OutputPaths:  []string{"stdout"},
			EnableCaller: true,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "agentverse",
			SampleRate:   0.1,
		},
	}
}
