package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

// EnvPrefix prefixes every environment override, e.g. CLINIC_DB_HOST.
// Leaf fields use split_words, not envconfig tags; a tagged leaf would also
// match its bare name ($USER, $PORT).
const EnvPrefix = "CLINIC"

// DefaultJWTSecret is only meant for local runs; main warns when it is in use.
const DefaultJWTSecret = "change-me"

type ServerConfig struct {
	Port            int           `mapstructure:"port" split_words:"true"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" split_words:"true"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" split_words:"true"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes" split_words:"true"`
	Timezone        string        `mapstructure:"timezone" split_words:"true"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host" split_words:"true"`
	Port            int           `mapstructure:"port" split_words:"true"`
	User            string        `mapstructure:"user" split_words:"true"`
	Password        string        `mapstructure:"password" split_words:"true"`
	Name            string        `mapstructure:"name" split_words:"true"`
	SSLMode         string        `mapstructure:"sslmode" split_words:"true"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true"`
	Migrate         bool          `mapstructure:"migrate" split_words:"true"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver       string `mapstructure:"driver" split_words:"true"`
	Seed         bool   `mapstructure:"seed" split_words:"true"`
	SeedPassword string `mapstructure:"seed_password" split_words:"true"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled" split_words:"true"`
	URL          string        `mapstructure:"url" split_words:"true"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret" split_words:"true"`
	Issuer      string `mapstructure:"issuer" split_words:"true"`
	ExpiryHours int    `mapstructure:"expiry_hours" split_words:"true"`
	BcryptCost  int    `mapstructure:"bcrypt_cost" split_words:"true"`
}

type BillingConfig struct {
	ConsultationFee int64  `mapstructure:"consultation_fee" split_words:"true"`
	FeeLabel        string `mapstructure:"fee_label" split_words:"true"`
}

type QueueConfig struct {
	RegularPrefix   string   `mapstructure:"regular_prefix" split_words:"true"`
	EmergencyPrefix string   `mapstructure:"emergency_prefix" split_words:"true"`
	NumberWidth     int      `mapstructure:"number_width" split_words:"true"`
	Weekdays        []string `mapstructure:"weekdays" split_words:"true"`
}

type OutboxConfig struct {
	Enabled       bool          `mapstructure:"enabled" split_words:"true"`
	Channel       string        `mapstructure:"channel" split_words:"true"`
	BatchSize     int           `mapstructure:"batch_size" split_words:"true"`
	PollInterval  time.Duration `mapstructure:"poll_interval" split_words:"true"`
	RetryAttempts int           `mapstructure:"retry_attempts" split_words:"true"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" split_words:"true"`
	MaxFailures   int           `mapstructure:"max_failures" split_words:"true"`
	Retention     time.Duration `mapstructure:"retention" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" split_words:"true"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst" split_words:"true"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" split_words:"true"`
	AllowedMethods []string `mapstructure:"allowed_methods" split_words:"true"`
	AllowedHeaders []string `mapstructure:"allowed_headers" split_words:"true"`
}

type CacheConfig struct {
	ClinicTTL time.Duration `mapstructure:"clinic_ttl" split_words:"true"`
	LabelTTL  time.Duration `mapstructure:"label_ttl" split_words:"true"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" split_words:"true"`
	Format string `mapstructure:"format" split_words:"true"`
}

// ClinicConfig is the profile served when none has been saved or the store is down.
type ClinicConfig struct {
	Name    string `mapstructure:"name" split_words:"true"`
	Address string `mapstructure:"address" split_words:"true"`
	Phone   string `mapstructure:"phone" split_words:"true"`
	Email   string `mapstructure:"email" split_words:"true"`
}

type WorkerConfig struct {
	HealthPort int `mapstructure:"health_port" split_words:"true"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server" envconfig:"SERVER"`
	Database  DatabaseConfig  `mapstructure:"database" envconfig:"DB"`
	Store     StoreConfig     `mapstructure:"store" envconfig:"STORE"`
	Redis     RedisConfig     `mapstructure:"redis" envconfig:"REDIS"`
	JWT       JWTConfig       `mapstructure:"jwt" envconfig:"JWT"`
	Billing   BillingConfig   `mapstructure:"billing" envconfig:"BILLING"`
	Queue     QueueConfig     `mapstructure:"queue" envconfig:"QUEUE"`
	Outbox    OutboxConfig    `mapstructure:"outbox" envconfig:"OUTBOX"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	Security  SecurityConfig  `mapstructure:"security" envconfig:"SECURITY"`
	Cache     CacheConfig     `mapstructure:"cache" envconfig:"CACHE"`
	Log       LogConfig       `mapstructure:"log" envconfig:"LOG"`
	Clinic    ClinicConfig    `mapstructure:"clinic" envconfig:"CLINIC"`
	Worker    WorkerConfig    `mapstructure:"worker" envconfig:"WORKER"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.request_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.timezone", "Asia/Jakarta")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "clinic")
	v.SetDefault("database.password", "clinic")
	v.SetDefault("database.name", "clinic")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.seed", true)
	v.SetDefault("store.seed_password", "sentosa123")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("jwt.secret", DefaultJWTSecret)
	v.SetDefault("jwt.issuer", "clinic-api")
	v.SetDefault("jwt.expiry_hours", 12)
	v.SetDefault("jwt.bcrypt_cost", 10)

	v.SetDefault("billing.consultation_fee", 150000)
	v.SetDefault("billing.fee_label", "Consultation fee")

	v.SetDefault("queue.regular_prefix", "A-")
	v.SetDefault("queue.emergency_prefix", "E-")
	v.SetDefault("queue.number_width", 3)
	v.SetDefault("queue.weekdays", []string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"})

	v.SetDefault("outbox.enabled", true)
	v.SetDefault("outbox.channel", "clinic.visits")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", 200*time.Millisecond)
	v.SetDefault("outbox.max_failures", 5)
	v.SetDefault("outbox.retention", 72*time.Hour)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.allowed_headers", []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"})

	v.SetDefault("cache.clinic_ttl", 5*time.Minute)
	v.SetDefault("cache.label_ttl", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("clinic.name", "Klinik Sentosa")
	v.SetDefault("clinic.address", "-")
	v.SetDefault("clinic.phone", "-")
	v.SetDefault("clinic.email", "-")

	v.SetDefault("worker.health_port", 8081)
}

// LoadConfig reads config.yml (or $CONFIG_FILE) on top of the defaults and
// then applies CLINIC_* environment overrides. A missing file is not an error.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		problems = append(problems, fmt.Sprintf("store.driver must be postgres or memory, got %q", c.Store.Driver))
	}
	if c.Billing.ConsultationFee < 0 {
		problems = append(problems, "billing.consultation_fee must not be negative")
	}
	if c.Queue.NumberWidth <= 0 {
		problems = append(problems, "queue.number_width must be positive")
	}
	if c.JWT.Secret == "" {
		problems = append(problems, "jwt.secret is required")
	}
	if c.Outbox.Enabled && (c.Outbox.BatchSize <= 0 || c.Outbox.PollInterval <= 0 ||
		c.Outbox.RetryAttempts <= 0 || c.Outbox.RetryDelay <= 0) {
		problems = append(problems, "outbox batch_size, poll_interval, retry_attempts and retry_delay must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location resolves Server.Timezone, falling back to the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("unknown timezone %q: %w", c.Server.Timezone, err)
	}
	return loc, nil
}

func (c *OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		Channel:       c.Channel,
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
		MaxFailures:   c.MaxFailures,
		Retention:     c.Retention,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
