package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		SentryUrl string `env:"SENTRY_URL"`
		LogLevel  string `env:"LOG_LEVEL" env-default:"debug"`
		Timezone  string `env:"APP_TIMEZONE" env-default:"Local"`
	}
	Postgres struct {
		Port    int    `env:"POSTGRES_PORT" env-default:"5432"`
		Host    string `env:"POSTGRES_HOST" env-default:"localhost"`
		User    string `env:"POSTGRES_USER"`
		Pass    string `env:"POSTGRES_PASS"`
		Name    string `env:"POSTGRES_NAME"`
		SslMode string `env:"POSTGRES_SSL_MODE" env-default:"disable"`

		MaxConns        int32         `env:"POSTGRES_MAX_CONNS" env-default:"10"`
		MaxConnIdleTime time.Duration `env:"POSTGRES_MAX_CONN_IDLE_TIME" env-default:"5m"`
	}
	Storage struct {
		Endpoint      string   `env:"STORAGE_ENDPOINT" env-default:"localhost:9000"`
		AccessKey     string   `env:"STORAGE_ACCESS_KEY"`
		SecretKey     string   `env:"STORAGE_SECRET_KEY"`
		UseSSL        bool     `env:"STORAGE_USE_SSL" env-default:"false"`
		Bucket        string   `env:"STORAGE_BUCKET" env-default:"image"`
		PublicBaseURL string   `env:"STORAGE_PUBLIC_BASE_URL"`
		MomentPrefix  string   `env:"STORAGE_MOMENT_PREFIX" env-default:"moments"`
		AvatarPrefix  string   `env:"STORAGE_AVATAR_PREFIX" env-default:"avatars"`
		MaxFileSize   int64    `env:"STORAGE_MAX_FILE_SIZE" env-default:"5242880"`
		AllowedTypes  []string `env:"STORAGE_ALLOWED_TYPES" env-separator:"," env-default:"image/jpeg,image/jpg,image/png,image/gif,image/webp"`
	}
	Auth struct {
		JWTSecret  string        `env:"AUTH_JWT_SECRET" env-required:"true"`
		TokenTTL   time.Duration `env:"AUTH_TOKEN_TTL" env-default:"168h"`
		BcryptCost int           `env:"AUTH_BCRYPT_COST" env-default:"10"`
	}
	Redis struct {
		Addr string `env:"REDIS_ADDR" env-default:"localhost:6379"`
		DB   int    `env:"REDIS_DB" env-default:"0"`
		Key  string `env:"REDIS_PREFS_KEY" env-default:"moments:prefs"`
	}
	Feed struct {
		RefreshInterval time.Duration `env:"FEED_REFRESH_INTERVAL" env-default:"5m"`
		FetchTimeout    time.Duration `env:"FEED_FETCH_TIMEOUT" env-default:"15s"`
	}
	RateLimit struct {
		Posts int           `env:"RATE_LIMIT_POSTS" env-default:"5"`
		Per   time.Duration `env:"RATE_LIMIT_PER" env-default:"1m"`
		Burst int           `env:"RATE_LIMIT_BURST" env-default:"3"`
	}
}

var (
	once sync.Once
	cfg  *Config
)

func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			log.Fatalf("Failed to read configuration: %v\n%v", err, help)
		}
	})
	return cfg, nil
}

// GetDSN returns the lib/pq keyword DSN used by goose
func (c *Config) GetDSN() string {
	return fmt.Sprintf("dbname=%s user=%s password=%s host=%s port=%d sslmode=%s",
		c.Postgres.Name, c.Postgres.User, c.Postgres.Pass, c.Postgres.Host, c.Postgres.Port, c.Postgres.SslMode,
	)
}

// GetURL returns the postgres URL used by pgxpool
func (c *Config) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Pass,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.Name,
		c.Postgres.SslMode,
	)
}

// Location resolves App.Timezone, falling back to time.Local
func (c *Config) Location() *time.Location {
	if c.App.Timezone == "" || c.App.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
