package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"taskhub/pkg/platform/middleware/metadata"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Server captures process-level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string

	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig

	CORSAllowedOrigins []string
	// TrustedProxies are the peers whose X-Forwarded-For and X-Real-IP
	// headers are believed. Empty means the socket address is the client.
	TrustedProxies []netip.Prefix
	Superuser      SuperuserConfig
}

// DatabaseConfig configures PostgreSQL. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
}

// RedisConfig configures the revocation list backend. An empty URL selects
// the in-memory list.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit sink. No brokers means log-only audit.
type KafkaConfig struct {
	Brokers           []string
	AuditTopic        string
	BufferSize        int
	ReplicationFactor int
}

type AuthConfig struct {
	SigningKey     string
	Issuer         string
	Audience       string
	AccessTokenTTL time.Duration
}

// RateLimitConfig throttles the public auth endpoints per client IP.
type RateLimitConfig struct {
	Disabled     bool
	AuthRequests int
	AuthWindow   time.Duration
}

// SuperuserConfig seeds the first superuser at startup when both fields are set.
type SuperuserConfig struct {
	Email    string
	Password string
}

func (s Server) IsProduction() bool { return s.Environment == "production" }

// FromEnv loads an optional .env file and builds the configuration so main
// stays lean.
func FromEnv() (Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Server{}, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	cfg := Server{
		Addr:        envOr("TASKHUB_ADDR", ":8080"),
		Environment: envOr("TASKHUB_ENV", "development"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 20, &errs),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5, &errs),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute, &errs),
			TxTimeout:       envDuration("TX_TIMEOUT", 5*time.Second, &errs),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10, &errs),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2, &errs),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second, &errs),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second, &errs),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second, &errs),
		},
		Kafka: KafkaConfig{
			Brokers:           splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:        envOr("KAFKA_AUDIT_TOPIC", "taskhub.audit"),
			BufferSize:        envInt("AUDIT_BUFFER_SIZE", 1024, &errs),
			ReplicationFactor: envInt("KAFKA_REPLICATION_FACTOR", 1, &errs),
		},
		Auth: AuthConfig{
			SigningKey:     envOr("JWT_SIGNING_KEY", devSigningKey),
			Issuer:         envOr("JWT_ISSUER", "taskhub"),
			Audience:       envOr("JWT_AUDIENCE", "taskhub-api"),
			AccessTokenTTL: envDuration("ACCESS_TOKEN_TTL", time.Hour, &errs),
		},
		RateLimit: RateLimitConfig{
			Disabled:     envBool("RATE_LIMIT_DISABLED", false, &errs),
			AuthRequests: envInt("RATE_LIMIT_AUTH_REQUESTS", 10, &errs),
			AuthWindow:   envDuration("RATE_LIMIT_AUTH_WINDOW", time.Minute, &errs),
		},
		CORSAllowedOrigins: splitList(envOr("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		Superuser: SuperuserConfig{
			Email:    os.Getenv("FIRST_SUPERUSER_EMAIL"),
			Password: os.Getenv("FIRST_SUPERUSER_PASSWORD"),
		},
	}

	proxies, err := metadata.ParseTrustedProxies(splitList(os.Getenv("TRUSTED_PROXIES")))
	if err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	cfg.TrustedProxies = proxies

	if cfg.IsProduction() && cfg.Auth.SigningKey == devSigningKey {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set in production"))
	}
	if cfg.Database.TxTimeout <= 0 {
		errs = append(errs, errors.New("TX_TIMEOUT must be positive"))
	}
	if cfg.Kafka.BufferSize <= 0 {
		errs = append(errs, errors.New("AUDIT_BUFFER_SIZE must be positive"))
	}
	if !cfg.RateLimit.Disabled && (cfg.RateLimit.AuthRequests <= 0 || cfg.RateLimit.AuthWindow <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_AUTH_REQUESTS and RATE_LIMIT_AUTH_WINDOW must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func envBool(key string, fallback bool, errs *[]error) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimRight(strings.TrimSpace(p), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}
