package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	Console  ConsoleConfig
	Backend  BackendConfig
	Cookie   CookieConfig
	Identity IdentityConfig
	Audit    AuditConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

// ConsoleConfig is the web console listener.
type ConsoleConfig struct {
	Port string `env:"CONSOLE_PORT, default=8080"`
}

// BackendConfig points the console and sessionctl at the identity API.
type BackendConfig struct {
	BaseURL string        `env:"BACKEND_URL,     default=http://localhost:8081"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT, default=10s"`
}

type CookieConfig struct {
	Name   string        `env:"COOKIE_NAME,   default=token"`
	Secure bool          `env:"COOKIE_SECURE, default=false"`
	TTL    time.Duration `env:"COOKIE_TTL,    default=168h"`
}

// IdentityConfig drives the local identity backend.
type IdentityConfig struct {
	Port      string        `env:"IDENTITY_PORT,      default=8081"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"IDENTITY_TOKEN_TTL, default=168h"`
}

// AuditConfig controls session event recording. Recording is off when
// disabled or when MongoDB is unreachable at startup.
type AuditConfig struct {
	Enabled bool `env:"AUDIT_ENABLED, default=true"`
	Workers int  `env:"AUDIT_WORKERS, default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=brewline"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := load(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
