package domain

import "time"

// Config holds the complete pepscore configuration.
type Config struct {
	// Mode selects how the orchestrator runs: "batch" or "worker"
	Mode RunMode `json:"mode"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`
	Scoring    ScoringConfig    `json:"scoring"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
	Metrics MetricsConfig `json:"metrics"`
}

// RunMode determines how declarations reach the engine.
type RunMode string

const (
	// ModeBatch scores every declaration matching the configured filter, then exits.
	ModeBatch RunMode = "batch"

	// ModeWorker scores declarations announced on the event bus until stopped.
	ModeWorker RunMode = "worker"
)

// ScoringConfig tunes the rule engine and orchestrator.
type ScoringConfig struct {
	// MaxWorkers bounds parallel rule evaluation for one declaration.
	MaxWorkers int `json:"maxWorkers"`

	// BatchConcurrency bounds how many declarations are scored at once.
	BatchConcurrency int `json:"batchConcurrency"`

	// AlertThreshold is the total score at which an assessment is HIGH.
	AlertThreshold float64 `json:"alertThreshold"`

	// DisabledRules are rule ids excluded from the registry.
	DisabledRules []string `json:"disabledRules"`

	// Year range for batch mode; zero means unbounded.
	YearFrom int `json:"yearFrom"`
	YearTo   int `json:"yearTo"`

	// SaveRetries bounds upsert retries on transient storage errors.
	SaveRetries int `json:"saveRetries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// MetricsConfig holds Prometheus exporter settings.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the exporter.
	Addr string `json:"addr"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + channels + in-memory cache
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Mode: ModeBatch,
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./pepscore.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
			RateTTL:      24 * time.Hour,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Scoring: ScoringConfig{
			MaxWorkers:       8,
			BatchConcurrency: 4,
			AlertThreshold:   1.0,
			SaveRetries:      3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "pepscore",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Mode = ModeWorker
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "pepscore",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       5 * time.Minute,
		RateTTL:        24 * time.Hour,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Scoring.BatchConcurrency = 16
	cfg.Tracing.Enabled = true
	return cfg
}
