package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"

	IdentityProviderFirebase = "firebase"
	IdentityProviderHMAC     = "hmac"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	StoreDriver string `env:"STORE_DRIVER, default=postgres"`

	Postgres PostgresConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Identity IdentityConfig
	Audit    AuditConfig
}

type PostgresConfig struct {
	URL            string `env:"DATABASE_URL"`
	MigrateOnStart bool   `env:"DB_MIGRATE_ON_START, default=true"`
	MaxOpenConns   int    `env:"DB_MAX_OPEN_CONNS,   default=20"`
}

type MongoConfig struct {
	URI                    string        `env:"MONGO_URI,                      default=mongodb://localhost:27017"`
	Database               string        `env:"MONGO_DB,                       default=identity_sync"`
	MaxPoolSize            uint64        `env:"MONGO_MAX_POOL_SIZE,            default=100"`
	ServerSelectionTimeout time.Duration `env:"MONGO_SERVER_SELECTION_TIMEOUT, default=5s"`
}

type RedisConfig struct {
	Enabled     bool          `env:"REDIS_ENABLED,      default=false"`
	Addr        string        `env:"REDIS_ADDR,         default=localhost:6379"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB,           default=0"`
	PoolSize    int           `env:"REDIS_POOL_SIZE,    default=10"`
	DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT, default=2s"`
	UserTTL     time.Duration `env:"USER_CACHE_TTL,     default=10m"`
}

type IdentityConfig struct {
	Provider          string        `env:"IDENTITY_PROVIDER,       default=firebase"`
	FirebaseProjectID string        `env:"FIREBASE_PROJECT_ID"`
	FirebaseJWKSURL   string        `env:"FIREBASE_JWKS_URL"`
	HMACSecret        string        `env:"IDENTITY_HMAC_SECRET"`
	HMACIssuer        string        `env:"IDENTITY_HMAC_ISSUER,    default=identity-sync-dev"`
	VerifyTimeout     time.Duration `env:"IDENTITY_VERIFY_TIMEOUT, default=5s"`
}

type AuditConfig struct {
	Enabled bool `env:"AUDIT_ENABLED, default=true"`
	Workers int  `env:"AUDIT_WORKERS, default=4"`
	Buffer  int  `env:"AUDIT_BUFFER,  default=256"`
}

// Load reads configuration from environment variables using go-envconfig and
// validates it.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom is Load with an explicit source of variables.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks rules that span more than one variable.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreDriverMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			errs = append(errs, errors.New("MONGO_URI and MONGO_DB are required for the mongo store"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.Identity.Provider {
	case IdentityProviderFirebase:
		if c.Identity.FirebaseProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required for the firebase provider"))
		}
	case IdentityProviderHMAC:
		if c.Identity.HMACSecret == "" {
			errs = append(errs, errors.New("IDENTITY_HMAC_SECRET is required for the hmac provider"))
		}
		if c.IsProduction() {
			errs = append(errs, errors.New("the hmac provider is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.Identity.Provider))
	}

	if c.Identity.VerifyTimeout <= 0 {
		errs = append(errs, errors.New("IDENTITY_VERIFY_TIMEOUT must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
