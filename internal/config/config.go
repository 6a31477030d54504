package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AccessTokenTTL is fixed; there is no refresh flow.
const AccessTokenTTL = 24 * time.Hour

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Env  string
	Port int

	StoreDriver string

	MongoURI                    string
	MongoDatabase               string
	MongoTLS                    bool
	MongoServerSelectionTimeout time.Duration

	DBURL string

	JWTSecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatsCacheTTL time.Duration

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	OTLPEndpoint    string
	OTLPSampleRatio float64

	SeedEmail    string
	SeedPassword string
	SeedName     string
	SeedRole     string
}

func Load() Config {
	// a missing .env is fine, real deployments use the environment
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),

		MongoURI:                    getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase:               getEnv("MONGO_DATABASE", "inventory_system"),
		MongoTLS:                    getEnvBool("MONGO_TLS", true),
		MongoServerSelectionTimeout: getEnvDuration("MONGO_SERVER_SELECTION_TIMEOUT", 5*time.Second),

		DBURL: buildDBURL(),

		JWTSecret: os.Getenv("JWT_SECRET_KEY"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		StatsCacheTTL: getEnvDuration("STATS_CACHE_TTL", 30*time.Second),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1),

		SeedEmail:    os.Getenv("SEED_USER_EMAIL"),
		SeedPassword: os.Getenv("SEED_USER_PASSWORD"),
		SeedName:     getEnv("SEED_USER_NAME", "admin"),
		SeedRole:     getEnv("SEED_USER_ROLE", "admin"),
	}
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreMongo, StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.JWTSecret == "" && c.Env != "dev" {
		return errors.New("JWT_SECRET_KEY is required")
	}

	if c.OTLPSampleRatio < 0 || c.OTLPSampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLE_RATIO must be within [0,1], got %v", c.OTLPSampleRatio)
	}

	if c.Port <= 0 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}

	return nil
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "inventory")
	pass := getEnv("DB_PASSWORD", "inventory")
	name := getEnv("DB_NAME", "inventory")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

// WithTimeoutFrom derives a deadline from a request context so client disconnects cancel the query.
func WithTimeoutFrom(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env value, using default", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)

		if err != nil {
			slog.Warn("invalid boolean env value, using default", "key", key, "value", v)
			return fallback
		}

		return b
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)

		if err != nil {
			slog.Warn("invalid float env value, using default", "key", key, "value", v)
			return fallback
		}

		return f
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil {
			slog.Warn("invalid duration env value, using default", "key", key, "value", v)
			return fallback
		}

		return d
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
