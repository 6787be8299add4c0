package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort int
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Dispatch DispatchConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode, c.MaxConns)
}

type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
	Prefetch int
}

type DispatchConfig struct {
	// HandleTimeout bounds delivery to a single connection so one
	// stalled subscriber cannot delay the rest of the group.
	HandleTimeout time.Duration
	// MaxInFlight bounds concurrent deliveries per dispatch call.
	MaxInFlight int
}

// Load reads configuration from the environment, with .env support.
func Load() (Config, error) {
	_ = godotenv.Load() // load .env if it exists

	cfg := Config{
		HTTPPort: getint("HTTP_PORT", 3000),
		Database: DatabaseConfig{
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getint("DB_PORT", 5432),
			User:     getenv("DB_USER", "postgres"),
			Password: getenv("DB_PASSWORD", ""),
			Database: getenv("DB_NAME", "water_delivery"),
			SSLMode:  getenv("DB_SSLMODE", "disable"),
			MaxConns: getint("DB_MAX_CONNS", 10),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     getenv("RABBITMQ_HOST", "localhost"),
			Port:     getint("RABBITMQ_PORT", 5672),
			User:     getenv("RABBITMQ_USER", "guest"),
			Password: getenv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getenv("RABBITMQ_VHOST", "/"),
			Prefetch: getint("RABBITMQ_PREFETCH", 1),
		},
		Dispatch: DispatchConfig{
			HandleTimeout: getdur("DISPATCH_HANDLE_TIMEOUT", 3*time.Second),
			MaxInFlight:   getint("DISPATCH_MAX_IN_FLIGHT", 16),
		},
	}

	if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.Database == "" {
		return Config{}, fmt.Errorf("database config incomplete")
	}
	if cfg.RabbitMQ.Host == "" || cfg.RabbitMQ.User == "" {
		return Config{}, fmt.Errorf("rabbitmq config incomplete")
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getdur(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
