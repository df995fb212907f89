package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	MirrorMemory = "memory"
	MirrorRedis  = "redis"
	MirrorCookie = "cookie"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	UserDirURL     string
	UserDirTimeout time.Duration

	MirrorBackend    string
	MirrorTTL        time.Duration
	MirrorSigningKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTLPEndpoint string

	PhoneHashKey string

	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: os.Getenv("DB_URL"),

		UserDirURL:     getEnv("USERDIR_URL", "https://randomuser.me/api/?results=1&nat=us"),
		UserDirTimeout: getEnvDuration("USERDIR_TIMEOUT", 10*time.Second),

		MirrorBackend:    getEnv("MIRROR_BACKEND", MirrorMemory),
		MirrorTTL:        getEnvDuration("MIRROR_TTL", 7*24*time.Hour),
		MirrorSigningKey: getEnv("MIRROR_SIGNING_KEY", "dev-mirror-key"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		PhoneHashKey: getEnv("PHONE_HASH_KEY", "dev-phone-key"),

		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getEnvDuration("LOGIN_RATE_WINDOW", time.Minute),
	}
}

func (c Config) Validate() error {
	switch c.MirrorBackend {
	case MirrorMemory, MirrorRedis, MirrorCookie:
	default:
		return fmt.Errorf("unknown MIRROR_BACKEND %q", c.MirrorBackend)
	}

	if c.Port <= 0 {
		return errors.New("PORT must be positive")
	}

	if c.IsProd() {
		if c.MirrorBackend == MirrorCookie && (c.MirrorSigningKey == "" || c.MirrorSigningKey == "dev-mirror-key") {
			return errors.New("MIRROR_SIGNING_KEY must be set in prod")
		}
		if c.PhoneHashKey == "" || c.PhoneHashKey == "dev-phone-key" {
			return errors.New("PHONE_HASH_KEY must be set in prod")
		}
	}

	return nil
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return d
	}
	return fallback
}
