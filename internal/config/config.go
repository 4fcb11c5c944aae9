// Package config loads pepscore configuration from an optional file and
// PEPSCORE_* environment variables on top of the tier defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opensource-finance/pepscore/internal/domain"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PEPSCORE_SCORING_MAX_WORKERS.
const EnvPrefix = "PEPSCORE"

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply.
func Load(path string) (*domain.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("tier", string(domain.TierCommunity))
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	base := domain.DefaultConfig()
	if domain.Tier(v.GetString("tier")) == domain.TierPro {
		base = domain.ProConfig()
	}
	setDefaults(v, base)

	cfg := &domain.Config{
		Mode: domain.RunMode(v.GetString("mode")),
		Tier: domain.Tier(v.GetString("tier")),
		Repository: domain.RepositoryConfig{
			Driver:           v.GetString("repository.driver"),
			SQLitePath:       v.GetString("repository.sqlite_path"),
			PostgresHost:     v.GetString("repository.postgres.host"),
			PostgresPort:     v.GetInt("repository.postgres.port"),
			PostgresUser:     v.GetString("repository.postgres.user"),
			PostgresPassword: v.GetString("repository.postgres.password"),
			PostgresDB:       v.GetString("repository.postgres.db"),
			PostgresSSLMode:  v.GetString("repository.postgres.sslmode"),
			MaxOpenConns:     v.GetInt("repository.max_open_conns"),
			MaxIdleConns:     v.GetInt("repository.max_idle_conns"),
			ConnMaxLifetime:  v.GetDuration("repository.conn_max_lifetime"),
		},
		Cache: domain.CacheConfig{
			Type:           v.GetString("cache.type"),
			LocalMaxSize:   v.GetInt("cache.local_max_size"),
			LocalTTL:       v.GetDuration("cache.local_ttl"),
			RedisAddr:      v.GetString("cache.redis.addr"),
			RedisPassword:  v.GetString("cache.redis.password"),
			RedisDB:        v.GetInt("cache.redis.db"),
			EnableTwoPhase: v.GetBool("cache.two_phase"),
			RateTTL:        v.GetDuration("cache.rate_ttl"),
		},
		EventBus: domain.EventBusConfig{
			Type:              v.GetString("event_bus.type"),
			ChannelBufferSize: v.GetInt("event_bus.buffer_size"),
			NATSUrl:           v.GetString("event_bus.nats.url"),
			NATSToken:         v.GetString("event_bus.nats.token"),
			NATSMaxReconnects: v.GetInt("event_bus.nats.max_reconnects"),
			NATSReconnectWait: v.GetInt("event_bus.nats.reconnect_wait"),
			NATSQueueGroup:    v.GetString("event_bus.nats.queue_group"),
		},
		Scoring: domain.ScoringConfig{
			MaxWorkers:       v.GetInt("scoring.max_workers"),
			BatchConcurrency: v.GetInt("scoring.batch_concurrency"),
			AlertThreshold:   v.GetFloat64("scoring.alert_threshold"),
			DisabledRules:    stringList(v, "scoring.disabled_rules"),
			YearFrom:         v.GetInt("scoring.year_from"),
			YearTo:           v.GetInt("scoring.year_to"),
			SaveRetries:      v.GetInt("scoring.save_retries"),
		},
		Logging: domain.LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Tracing: domain.TracingConfig{
			Enabled:     v.GetBool("tracing.enabled"),
			ServiceName: v.GetString("tracing.service_name"),
		},
		Metrics: domain.MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, c *domain.Config) {
	v.SetDefault("mode", string(c.Mode))

	v.SetDefault("repository.driver", c.Repository.Driver)
	v.SetDefault("repository.sqlite_path", c.Repository.SQLitePath)
	v.SetDefault("repository.postgres.host", c.Repository.PostgresHost)
	v.SetDefault("repository.postgres.port", c.Repository.PostgresPort)
	v.SetDefault("repository.postgres.user", c.Repository.PostgresUser)
	v.SetDefault("repository.postgres.password", c.Repository.PostgresPassword)
	v.SetDefault("repository.postgres.db", c.Repository.PostgresDB)
	v.SetDefault("repository.postgres.sslmode", c.Repository.PostgresSSLMode)
	v.SetDefault("repository.max_open_conns", c.Repository.MaxOpenConns)
	v.SetDefault("repository.max_idle_conns", c.Repository.MaxIdleConns)
	v.SetDefault("repository.conn_max_lifetime", c.Repository.ConnMaxLifetime)

	v.SetDefault("cache.type", c.Cache.Type)
	v.SetDefault("cache.local_max_size", c.Cache.LocalMaxSize)
	v.SetDefault("cache.local_ttl", c.Cache.LocalTTL)
	v.SetDefault("cache.redis.addr", c.Cache.RedisAddr)
	v.SetDefault("cache.redis.password", c.Cache.RedisPassword)
	v.SetDefault("cache.redis.db", c.Cache.RedisDB)
	v.SetDefault("cache.two_phase", c.Cache.EnableTwoPhase)
	v.SetDefault("cache.rate_ttl", c.Cache.RateTTL)

	v.SetDefault("event_bus.type", c.EventBus.Type)
	v.SetDefault("event_bus.buffer_size", c.EventBus.ChannelBufferSize)
	v.SetDefault("event_bus.nats.url", c.EventBus.NATSUrl)
	v.SetDefault("event_bus.nats.token", c.EventBus.NATSToken)
	v.SetDefault("event_bus.nats.max_reconnects", c.EventBus.NATSMaxReconnects)
	v.SetDefault("event_bus.nats.reconnect_wait", c.EventBus.NATSReconnectWait)
	v.SetDefault("event_bus.nats.queue_group", c.EventBus.NATSQueueGroup)

	v.SetDefault("scoring.max_workers", c.Scoring.MaxWorkers)
	v.SetDefault("scoring.batch_concurrency", c.Scoring.BatchConcurrency)
	v.SetDefault("scoring.alert_threshold", c.Scoring.AlertThreshold)
	v.SetDefault("scoring.disabled_rules", c.Scoring.DisabledRules)
	v.SetDefault("scoring.year_from", c.Scoring.YearFrom)
	v.SetDefault("scoring.year_to", c.Scoring.YearTo)
	v.SetDefault("scoring.save_retries", c.Scoring.SaveRetries)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)

	v.SetDefault("tracing.enabled", c.Tracing.Enabled)
	v.SetDefault("tracing.service_name", c.Tracing.ServiceName)

	v.SetDefault("metrics.addr", c.Metrics.Addr)
}

// stringList reads a list that may be given as a YAML sequence or as a
// comma-separated environment value.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate reports every invalid setting in cfg.
func Validate(cfg *domain.Config) error {
	var errs []error

	switch cfg.Mode {
	case domain.ModeBatch, domain.ModeWorker:
	default:
		errs = append(errs, fmt.Errorf("mode must be %q or %q, got %q", domain.ModeBatch, domain.ModeWorker, cfg.Mode))
	}
	switch cfg.Repository.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported repository driver %q", cfg.Repository.Driver))
	}
	switch cfg.Cache.Type {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unsupported cache type %q", cfg.Cache.Type))
	}
	switch cfg.EventBus.Type {
	case "channel", "nats":
	default:
		errs = append(errs, fmt.Errorf("unsupported event bus type %q", cfg.EventBus.Type))
	}
	if cfg.Scoring.AlertThreshold <= 0 {
		errs = append(errs, errors.New("scoring.alert_threshold must be positive"))
	}
	if cfg.Scoring.SaveRetries < 0 {
		errs = append(errs, errors.New("scoring.save_retries must not be negative"))
	}
	if cfg.Scoring.YearFrom > 0 && cfg.Scoring.YearTo > 0 && cfg.Scoring.YearFrom > cfg.Scoring.YearTo {
		errs = append(errs, fmt.Errorf("scoring.year_from %d is after year_to %d", cfg.Scoring.YearFrom, cfg.Scoring.YearTo))
	}

	return errors.Join(errs...)
}
