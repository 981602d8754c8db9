package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. Everything comes from the
// environment so main stays lean.
type Config struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL selects the Postgres stores. Empty means in-memory, which
	// is only suitable for local development and tests.
	DatabaseURL string

	Redis RedisConfig

	// KafkaBrokers enables the ledger event fan-out when non-empty.
	KafkaBrokers []string
	LedgerTopic  string

	// Collaborator endpoints. Empty values fall back to the local adapters,
	// which approve everything and fake delivery.
	PolicyURL    string
	TimingURL    string
	TransportURL string

	ShutdownTimeout time.Duration
}

// RedisConfig holds connection tuning for the optional Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("DOCRELAY_ADDR", ":8080"),
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		PolicyURL:       os.Getenv("POLICY_SERVICE_URL"),
		TimingURL:       os.Getenv("TIMING_SERVICE_URL"),
		TransportURL:    os.Getenv("TRANSPORT_PROVIDER_URL"),
		LedgerTopic:     envOr("LEDGER_TOPIC", "docrelay.audit.entries"),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if cfg.JWTSigningKey == "" {
		// Development fallback; override in any real deployment.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
