package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	StoreBackend  string // "memory", "redis" or "postgres"
	SeedOnStart   bool

	Redis     RedisConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	Assistant AssistantConfig
	Weights   WeightsConfig
}

// WeightsConfig holds the initial priority score weights. Managers can still
// change them at runtime through the weights endpoint.
type WeightsConfig struct {
	Impact   float64
	Urgency  float64
	Deadline float64
}

// RedisConfig holds connection settings for the Redis document store backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig holds connection settings for the Postgres backend.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig holds settings for the analytics event sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AssistantConfig holds settings for the text-generation API client.
type AssistantConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("WORKBOARD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	backend := os.Getenv("WORKBOARD_STORE")
	if backend == "" {
		backend = "memory"
	}

	model := os.Getenv("ASSISTANT_MODEL")
	if model == "" {
		model = "gemini-2.0-flash"
	}
	baseURL := os.Getenv("ASSISTANT_BASE_URL")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	topic := os.Getenv("KAFKA_ANALYTICS_TOPIC")
	if topic == "" {
		topic = "workboard.analytics"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		StoreBackend:  backend,
		SeedOnStart:   os.Getenv("WORKBOARD_SEED") != "false",
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   topic,
		},
		Assistant: AssistantConfig{
			APIKey:  os.Getenv("ASSISTANT_API_KEY"),
			Model:   model,
			BaseURL: baseURL,
			Timeout: envDuration("ASSISTANT_TIMEOUT", 30*time.Second),
		},
		Weights: WeightsConfig{
			Impact:   envFloat("WORKBOARD_WEIGHT_IMPACT", 3),
			Urgency:  envFloat("WORKBOARD_WEIGHT_URGENCY", 2),
			Deadline: envFloat("WORKBOARD_WEIGHT_DEADLINE", 5),
		},
	}
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

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return fallback
	}
	return f
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

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
