package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	// ConnectRetries bounds the boot-time wait for the database.
	ConnectRetries int
	RetryInterval  time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	ReservationCreated   string
	ReservationCancelled string
	TicketCancelled      string
}

type AuthConfig struct {
	// Secret signs access tokens (HS256).
	Secret string
	// TokenTTL is the access token lifetime.
	TokenTTL time.Duration
	// CacheTTL is how long verified tokens stay in the Redis cache.
	CacheTTL time.Duration
	// QRSecret encrypts ticket QR payloads.
	QRSecret string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN: getEnv("POSTGRES_DSN",
				fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
					getEnv("DB_USERNAME", "planetarium"),
					getEnv("DB_PASSWORD", "planetarium"),
					getEnv("DB_HOST", "localhost"),
					getEnv("DB_PORT", "5432"),
					getEnv("DB_NAME", "planetarium"),
				)),
			MaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:    time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			ConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
			RetryInterval:  2 * time.Second,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_ADDR", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				ReservationCreated:   getEnv("KAFKA_TOPIC_RESERVATION_CREATED", "planetarium.reservation.created"),
				ReservationCancelled: getEnv("KAFKA_TOPIC_RESERVATION_CANCELLED", "planetarium.reservation.cancelled"),
				TicketCancelled:      getEnv("KAFKA_TOPIC_TICKET_CANCELLED", "planetarium.ticket.cancelled"),
			},
		},
		Auth: AuthConfig{
			Secret:   getEnv("JWT_SECRET", "dev-only-secret"),
			TokenTTL: time.Duration(getEnvInt("JWT_TTL_MINUTES", 60)) * time.Minute,
			CacheTTL: time.Duration(getEnvInt("TOKEN_CACHE_TTL_MINUTES", 5)) * time.Minute,
			QRSecret: getEnv("QR_SECRET_KEY", "dev-only-qr-secret"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
