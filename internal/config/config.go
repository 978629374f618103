package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPPort        string
	APIURL          string
	Environment     string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	Storage         StorageConfig
	Kafka           KafkaConfig

	// PaymentDemo confirms card payments without the hosted card element.
	PaymentDemo bool
}

type StorageConfig struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDBName   string
	DatabaseURL   string
	// StateTTL bounds how long idle client state is kept. Zero keeps it forever.
	StateTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

func (c *Config) IsProduction() bool { return c.Environment == "production" }

// Load reads the configuration from the environment. A .env file in the
// working directory or its parent is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("API_URL", "http://localhost:5000")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("PAYMENT_DEMO", false)
	v.SetDefault("STORAGE_DRIVER", DriverRedis)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB_NAME", "storefront")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("STATE_TTL", "720h")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ORDER_EVENTS_TOPIC", "order-events")
	v.AutomaticEnv()

	cfg := &Config{
		HTTPPort:        v.GetString("HTTP_PORT"),
		APIURL:          strings.TrimRight(strings.TrimSpace(v.GetString("API_URL")), "/"),
		Environment:     v.GetString("ENVIRONMENT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		PaymentDemo:     v.GetBool("PAYMENT_DEMO"),
		Storage: StorageConfig{
			Driver:        strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			MongoURI:      v.GetString("MONGO_URI"),
			MongoDBName:   v.GetString("MONGO_DB_NAME"),
			DatabaseURL:   v.GetString("DATABASE_URL"),
			StateTTL:      v.GetDuration("STATE_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("ORDER_EVENTS_TOPIC"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.HTTPPort == "" {
		errs = append(errs, errors.New("HTTP_PORT is required"))
	}
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_URL %q is not an absolute URL", c.APIURL))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.Storage.StateTTL < 0 {
		errs = append(errs, errors.New("STATE_TTL must not be negative"))
	}
	switch c.Storage.Driver {
	case DriverMemory, DriverRedis, DriverMongo:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("ORDER_EVENTS_TOPIC is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
