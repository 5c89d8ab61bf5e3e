package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	DriverSupabase = "supabase"
	DriverMongo    = "mongo"
)

type Config struct {
	Port          string        `env:"PORT,             default=8080"`
	Env           string        `env:"ENV,              default=development"`
	LogLevel      string        `env:"LOG_LEVEL,        default=info"`
	BackendDriver string        `env:"BACKEND_DRIVER,   default=supabase"`
	EmailDomain   string        `env:"EMAIL_DOMAIN,     default=miaoda.com"`
	JWTSecret     string        `env:"JWT_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL,      default=168h"`
	AuthIdleTTL   time.Duration `env:"AUTH_IDLE_TTL,    default=30m"`
	CookieSecure  bool          `env:"COOKIE_SECURE,    default=false"`
	Workers       int           `env:"DISPATCH_WORKERS, default=4"`

	Supabase SupabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type SupabaseConfig struct {
	URL     string `env:"SUPABASE_URL"`
	AnonKey string `env:"SUPABASE_ANON_KEY"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=inventory"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads an optional .env file, then the environment. A missing .env is
// not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Process(context.Background(), envconfig.OsLookuper())
}

// Process builds a Config from l and validates it.
func Process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the selected backend driver needs.
func (c *Config) Validate() error {
	c.BackendDriver = strings.ToLower(strings.TrimSpace(c.BackendDriver))
	switch c.BackendDriver {
	case DriverSupabase:
		if c.Supabase.URL == "" || c.Supabase.AnonKey == "" {
			return errors.New("config: SUPABASE_URL and SUPABASE_ANON_KEY are required for the supabase driver")
		}
	case DriverMongo:
		if c.JWTSecret == "" {
			return errors.New("config: JWT_SECRET is required for the mongo driver")
		}
	default:
		return fmt.Errorf("config: unknown BACKEND_DRIVER %q", c.BackendDriver)
	}
	if c.Workers <= 0 {
		return errors.New("config: DISPATCH_WORKERS must be positive")
	}
	return nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
