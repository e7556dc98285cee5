package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Storage   string          `yaml:"storage"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Inventory InventoryConfig `yaml:"inventory"`
	Payment   PaymentConfig   `yaml:"payment"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type PostgresConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Name, p.SSLMode)
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type InventoryConfig struct {
	HoldTTL          time.Duration `yaml:"hold_ttl"`
	MinHoldTTL       time.Duration `yaml:"min_hold_ttl"`
	MaxHoldTTL       time.Duration `yaml:"max_hold_ttl"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	SweepBatch       int           `yaml:"sweep_batch"`
	LockTimeout      time.Duration `yaml:"lock_timeout"`
	TxRetries        int           `yaml:"tx_retries"`
	CalendarCacheTTL time.Duration `yaml:"calendar_cache_ttl"`
	MaxRangeDays     int           `yaml:"max_range_days"`
}

type PaymentConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	PollAttempts int           `yaml:"poll_attempts"`
	// GatewayMode selects the development gateway outcome: "pending",
	// "success" or "failure".
	GatewayMode string `yaml:"gateway_mode"`
	CheckoutURL string `yaml:"checkout_url"`
}

type RateLimitConfig struct {
	HoldsPerWindow int           `yaml:"holds_per_window"`
	Window         time.Duration `yaml:"window"`
}

func defaults() Config {
	return Config{
		App:     AppConfig{Name: "staygo", Environment: "development", Version: "dev"},
		Server:  ServerConfig{Host: "localhost", Port: 8080},
		Storage: StoragePostgres,
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
			Migrate: true,
		},
		Redis:   RedisConfig{Enabled: true, Addr: "localhost:6379"},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Inventory: InventoryConfig{
			HoldTTL:          15 * time.Minute,
			MinHoldTTL:       time.Minute,
			MaxHoldTTL:       30 * time.Minute,
			SweepInterval:    time.Minute,
			SweepBatch:       500,
			LockTimeout:      3 * time.Second,
			TxRetries:        3,
			CalendarCacheTTL: 30 * time.Second,
			MaxRangeDays:     366,
		},
		Payment: PaymentConfig{
			PollInterval: 5 * time.Second,
			PollAttempts: 5,
			GatewayMode:  "pending",
			CheckoutURL:  "http://localhost:8080/checkout",
		},
		RateLimit: RateLimitConfig{HoldsPerWindow: 20, Window: time.Minute},
	}
}

// New builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE, and environment variables (also read from .env), in that order
// of increasing precedence.
func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: read %s: %w", op, path, err)
		}

		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("%s: parse %s: %w", op, path, err)
		}
	}

	e := envReader{}

	e.str("APP_NAME", &cfg.App.Name)
	e.str("APP_ENV", &cfg.App.Environment)
	e.str("APP_VERSION", &cfg.App.Version)

	e.str("SERVER_HOST", &cfg.Server.Host)
	e.integer("SERVER_PORT", &cfg.Server.Port)

	e.str("STORAGE", &cfg.Storage)

	e.str("POSTGRES_HOST", &cfg.Postgres.Host)
	e.integer("POSTGRES_PORT", &cfg.Postgres.Port)
	e.str("POSTGRES_USER", &cfg.Postgres.User)
	e.str("POSTGRES_PASSWORD", &cfg.Postgres.Password)
	e.str("POSTGRES_DB", &cfg.Postgres.Name)
	e.str("POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	e.integer32("POSTGRES_MAX_CONNS", &cfg.Postgres.MaxConns)
	e.boolean("POSTGRES_MIGRATE", &cfg.Postgres.Migrate)

	e.boolean("REDIS_ENABLED", &cfg.Redis.Enabled)
	e.str("REDIS_ADDR", &cfg.Redis.Addr)
	e.str("REDIS_PASSWORD", &cfg.Redis.Password)
	e.integer("REDIS_DB", &cfg.Redis.DB)
	e.integer("REDIS_POOL_SIZE", &cfg.Redis.PoolSize)

	e.str("LOG_LEVEL", &cfg.Logging.Level)
	e.str("LOG_FORMAT", &cfg.Logging.Format)
	e.str("LOG_OUTPUT", &cfg.Logging.Output)
	e.str("LOG_FILE_PATH", &cfg.Logging.FilePath)

	e.duration("HOLD_TTL", &cfg.Inventory.HoldTTL)
	e.duration("HOLD_TTL_MIN", &cfg.Inventory.MinHoldTTL)
	e.duration("HOLD_TTL_MAX", &cfg.Inventory.MaxHoldTTL)
	e.duration("SWEEP_INTERVAL", &cfg.Inventory.SweepInterval)
	e.integer("SWEEP_BATCH", &cfg.Inventory.SweepBatch)
	e.duration("LOCK_TIMEOUT", &cfg.Inventory.LockTimeout)
	e.integer("TX_RETRIES", &cfg.Inventory.TxRetries)
	e.duration("CALENDAR_CACHE_TTL", &cfg.Inventory.CalendarCacheTTL)
	e.integer("MAX_RANGE_DAYS", &cfg.Inventory.MaxRangeDays)

	e.duration("PAYMENT_POLL_INTERVAL", &cfg.Payment.PollInterval)
	e.integer("PAYMENT_POLL_ATTEMPTS", &cfg.Payment.PollAttempts)
	e.str("PAYMENT_GATEWAY_MODE", &cfg.Payment.GatewayMode)
	e.str("PAYMENT_CHECKOUT_URL", &cfg.Payment.CheckoutURL)

	e.integer("RATE_LIMIT_HOLDS", &cfg.RateLimit.HoldsPerWindow)
	e.duration("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)

	if e.err != nil {
		return nil, fmt.Errorf("%s: %w", op, e.err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.Postgres.User == "" {
			return fmt.Errorf("missing POSTGRES_USER")
		}
		if c.Postgres.Password == "" {
			return fmt.Errorf("missing POSTGRES_PASSWORD")
		}
		if c.Postgres.Name == "" {
			return fmt.Errorf("missing POSTGRES_DB")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}

	inv := c.Inventory
	if inv.MinHoldTTL <= 0 || inv.MaxHoldTTL < inv.MinHoldTTL {
		return fmt.Errorf("hold ttl bounds [%s, %s] are invalid", inv.MinHoldTTL, inv.MaxHoldTTL)
	}
	if inv.SweepInterval <= 0 || inv.SweepInterval >= inv.HoldTTL {
		return fmt.Errorf("sweep interval %s must be positive and shorter than the hold ttl %s", inv.SweepInterval, inv.HoldTTL)
	}

	switch c.Payment.GatewayMode {
	case "pending", "success", "failure":
	default:
		return fmt.Errorf("unknown PAYMENT_GATEWAY_MODE %q", c.Payment.GatewayMode)
	}

	return nil
}

// envReader applies set environment variables and keeps the first parse error.
type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.err = fmt.Errorf("invalid %s: %w", key, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) integer32(key string, dst *int32) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			e.err = fmt.Errorf("invalid %s: %w", key, err)
			return
		}
		*dst = int32(n)
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.err = fmt.Errorf("invalid %s: %w", key, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.err = fmt.Errorf("invalid %s: %w", key, err)
			return
		}
		*dst = d
	}
}
