package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config is resolved in three layers: built-in defaults, the YAML file,
// then environment variables.
type Config struct {
	ServiceID string `env:"SERVICE_ID"`
	HTTPPort  int    `env:"HTTP_PORT"`
	GRPCPort  int    `env:"GRPC_PORT"`
	LogLevel  string `env:"LOG_LEVEL"`

	DatabaseURL string `env:"DB_URL"`
	MaxDBConns  int32  `env:"DB_MAX_CONNS"`
	RedisURL    string `env:"REDIS_URL"`

	KafkaBrokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP"`
	KafkaTopicVerdicts string   `env:"KAFKA_TOPIC_ARBITRATION_VERDICT"`

	OutboxPollInterval   time.Duration `env:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize      int           `env:"OUTBOX_BATCH_SIZE"`
	ConsumerPollInterval time.Duration `env:"CONSUMER_POLL_INTERVAL"`

	DealCacheTTL       time.Duration `env:"DEAL_CACHE_TTL"`
	LocalCacheCapacity uint64        `env:"LOCAL_CACHE_CAPACITY"`
	IdempotencyTTL     time.Duration `env:"IDEMPOTENCY_TTL"`
	EventDedupTTL      time.Duration `env:"EVENT_DEDUP_TTL"`

	JWTSecret      string `env:"JWT_SECRET"`
	JWTIssuer      string `env:"JWT_ISSUER"`
	ArbiterAddress string `env:"ARBITER_ADDRESS"`

	OTelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO"`
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL        string   `yaml:"postgres_url"`
		MaxDBConns         int32    `yaml:"max_db_conns"`
		RedisURL           string   `yaml:"redis_url"`
		KafkaBrokers       []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup string   `yaml:"kafka_consumer_group"`
		KafkaTopicVerdicts string   `yaml:"kafka_topic_arbitration_verdict"`
		OTelEndpoint       string   `yaml:"otel_endpoint"`
	} `yaml:"dependencies"`
	Escrow struct {
		DealCacheTTL       time.Duration `yaml:"deal_cache_ttl"`
		LocalCacheCapacity uint64        `yaml:"local_cache_capacity"`
		IdempotencyTTL     time.Duration `yaml:"idempotency_ttl"`
		EventDedupTTL      time.Duration `yaml:"event_dedup_ttl"`
		JWTIssuer          string        `yaml:"jwt_issuer"`
		ArbiterAddress     string        `yaml:"arbiter_address"`
	} `yaml:"escrow"`
	Worker struct {
		OutboxPollInterval   time.Duration `yaml:"outbox_poll_interval"`
		OutboxBatchSize      int           `yaml:"outbox_batch_size"`
		ConsumerPollInterval time.Duration `yaml:"consumer_poll_interval"`
	} `yaml:"worker"`
}

func defaultConfig() Config {
	return Config{
		ServiceID:            "M47-Deal-Escrow-Service",
		HTTPPort:             8080,
		GRPCPort:             9090,
		LogLevel:             "info",
		MaxDBConns:           20,
		KafkaConsumerGroup:   "m47-deal-escrow-service",
		KafkaTopicVerdicts:   domain.EventArbitrationVerdict,
		OutboxPollInterval:   2 * time.Second,
		OutboxBatchSize:      100,
		ConsumerPollInterval: 2 * time.Second,
		DealCacheTTL:         10 * time.Minute,
		LocalCacheCapacity:   10000,
		IdempotencyTTL:       7 * 24 * time.Hour,
		EventDedupTTL:        7 * 24 * time.Hour,
		JWTIssuer:            "viralforge-mesh",
		OTelSampleRatio:      1,
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := applyFile(&cfg, raw); err != nil {
			return Config{}, err
		}
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("POSTGRES_URL")
	}
	cfg.KafkaBrokers = trimNonEmpty(cfg.KafkaBrokers)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	setString(&cfg.ServiceID, f.Service.ID)
	setInt(&cfg.HTTPPort, f.Service.HTTPPort)
	setInt(&cfg.GRPCPort, f.Service.GRPCPort)
	setString(&cfg.LogLevel, f.Service.LogLevel)

	setString(&cfg.DatabaseURL, f.Dependencies.PostgresURL)
	if f.Dependencies.MaxDBConns > 0 {
		cfg.MaxDBConns = f.Dependencies.MaxDBConns
	}
	setString(&cfg.RedisURL, f.Dependencies.RedisURL)
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
	}
	setString(&cfg.KafkaConsumerGroup, f.Dependencies.KafkaConsumerGroup)
	setString(&cfg.KafkaTopicVerdicts, f.Dependencies.KafkaTopicVerdicts)
	setString(&cfg.OTelEndpoint, f.Dependencies.OTelEndpoint)

	setDuration(&cfg.DealCacheTTL, f.Escrow.DealCacheTTL)
	if f.Escrow.LocalCacheCapacity > 0 {
		cfg.LocalCacheCapacity = f.Escrow.LocalCacheCapacity
	}
	setDuration(&cfg.IdempotencyTTL, f.Escrow.IdempotencyTTL)
	setDuration(&cfg.EventDedupTTL, f.Escrow.EventDedupTTL)
	setString(&cfg.JWTIssuer, f.Escrow.JWTIssuer)
	setString(&cfg.ArbiterAddress, f.Escrow.ArbiterAddress)

	setDuration(&cfg.OutboxPollInterval, f.Worker.OutboxPollInterval)
	setInt(&cfg.OutboxBatchSize, f.Worker.OutboxBatchSize)
	setDuration(&cfg.ConsumerPollInterval, f.Worker.ConsumerPollInterval)
	return nil
}

func (c Config) validate() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be set to at least 32 bytes")
	}
	if c.ArbiterAddress != "" {
		if _, err := domain.ParseAddress(c.ArbiterAddress); err != nil {
			return fmt.Errorf("arbiter_address: %w", err)
		}
	}
	if c.HTTPPort <= 0 || c.GRPCPort <= 0 {
		return fmt.Errorf("http and grpc ports must be positive")
	}
	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be within [0, 1]")
	}
	return nil
}

func (c Config) slogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
