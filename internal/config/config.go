package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values come from environment variables (optionally a YAML file named by
// CONFIG_FILE, which env vars override) with defaults that run locally
// without any backing services.
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr" env:"HTTP_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`

	RedisAddr      string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword  string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisGeoKey    string        `yaml:"redis_geo_key" env:"REDIS_GEO_KEY" env-default:"stations_geo"`
	GeoRadiusKm    float64       `yaml:"geo_radius_km" env:"GEO_RADIUS_KM" env-default:"50"`
	InboxCapacity  int           `yaml:"inbox_capacity" env:"INBOX_CAPACITY" env-default:"100"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl" env:"IDEMPOTENCY_TTL" env-default:"24h"`

	KafkaBrokers []string `yaml:"kafka_brokers" env:"KAFKA_BROKERS" env-separator:","`
	KafkaTopic   string   `yaml:"kafka_topic" env:"KAFKA_TOPIC" env-default:"trip-events"`

	AMQPURL      string `yaml:"amqp_url" env:"AMQP_URL"`
	AMQPExchange string `yaml:"amqp_exchange" env:"AMQP_EXCHANGE" env-default:"notifications"`

	PushEndpoint string `yaml:"push_endpoint" env:"PUSH_ENDPOINT"`
	PushKey      string `yaml:"push_key" env:"PUSH_KEY"`

	PGDSN          string `yaml:"pg_dsn" env:"PG_DSN"`
	RunMigrations  bool   `yaml:"migrate" env:"MIGRATE"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations/001_init.sql"`

	StationsFile string `yaml:"stations_file" env:"STATIONS_FILE"`

	JWTSecret     string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL      time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"24h"`
	DevHeaderAuth bool          `yaml:"dev_header_auth" env:"AUTH_DEV_HEADERS"`
	StripeKey     string        `yaml:"stripe_key" env:"STRIPE_API_KEY"`

	OSRMEndpoint    string        `yaml:"osrm_endpoint" env:"OSRM_ENDPOINT"`
	ETACacheTTL     time.Duration `yaml:"eta_cache_ttl" env:"ETA_CACHE_TTL" env-default:"10m"`
	DefaultSpeedMps float64       `yaml:"default_speed_mps" env:"DEFAULT_SPEED_MPS" env-default:"11"`

	JoinMaxAttempts int           `yaml:"join_max_attempts" env:"JOIN_MAX_ATTEMPTS" env-default:"5"`
	JoinRetryDelay  time.Duration `yaml:"join_retry_delay" env:"JOIN_RETRY_DELAY" env-default:"10ms"`
	SweepInterval   time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL" env-default:"1m"`
	SweepGrace      time.Duration `yaml:"sweep_grace" env:"SWEEP_GRACE" env-default:"2h"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

// ConsumerConfig configures cmd/consumer.
type ConsumerConfig struct {
	KafkaBrokers  []string      `yaml:"kafka_brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	KafkaTopic    string        `yaml:"kafka_topic" env:"KAFKA_TOPIC" env-default:"trip-events"`
	KafkaGroup    string        `yaml:"kafka_group" env:"KAFKA_GROUP" env-default:"airport-shuttle-inbox"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	InboxCapacity int           `yaml:"inbox_capacity" env:"INBOX_CAPACITY" env-default:"100"`
	InboxTTL      time.Duration `yaml:"inbox_ttl" env:"INBOX_TTL" env-default:"720h"`
	MetricsAddr   string        `yaml:"metrics_addr" env:"METRICS_ADDR" env-default:":2112"`
	LogLevel      string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

func read(cfg any) error {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return cleanenv.ReadConfig(path, cfg)
	}
	return cleanenv.ReadEnv(cfg)
}

func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := read(&cfg); err != nil {
		return cfg, fmt.Errorf("config error: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c ServerConfig) Validate() error {
	var errs []error
	if c.JoinMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("JOIN_MAX_ATTEMPTS must be > 0"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("SWEEP_INTERVAL must be > 0"))
	}
	if c.GeoRadiusKm <= 0 {
		errs = append(errs, fmt.Errorf("GEO_RADIUS_KM must be > 0"))
	}
	if c.InboxCapacity <= 0 {
		errs = append(errs, fmt.Errorf("INBOX_CAPACITY must be > 0"))
	}
	if c.JWTSecret == "" && !c.DevHeaderAuth {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required unless AUTH_DEV_HEADERS=true"))
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		errs = append(errs, fmt.Errorf("KAFKA_TOPIC must be set when KAFKA_BROKERS is"))
	}
	return errors.Join(errs...)
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	var cfg ConsumerConfig
	if err := read(&cfg); err != nil {
		return cfg, fmt.Errorf("config error: %w", err)
	}
	var errs []error
	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS must not be empty"))
	}
	if cfg.InboxCapacity <= 0 {
		errs = append(errs, fmt.Errorf("INBOX_CAPACITY must be > 0"))
	}
	return cfg, errors.Join(errs...)
}
