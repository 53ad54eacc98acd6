package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the backend (chatd) configuration, read from the environment.
type Config struct {
	Port          int
	GinMode       string
	DatabasePath  string
	TokenSecret   string
	TokenExpiry   time.Duration
	TLSCertFile   string
	TLSKeyFile    string
	AuthRateLimit int
	LogLevel      string
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

// OSEnv reads the process environment.
func OSEnv() Env { return osEnv{} }

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(osEnv{})
}

func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:          3000,
		GinMode:       "release",
		DatabasePath:  "chatsync.db",
		TokenExpiry:   7 * 24 * time.Hour,
		AuthRateLimit: 10,
		LogLevel:      "info",
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	if raw := env.Getenv("DATABASE_PATH"); raw != "" {
		cfg.DatabasePath = raw
	}

	// Optional: without a secret the backend trusts the X-User-Id header alone.
	cfg.TokenSecret = env.Getenv("TOKEN_SECRET")

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")

	if raw := env.Getenv("TOKEN_EXPIRY_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid TOKEN_EXPIRY_SECONDS")
		}
		cfg.TokenExpiry = time.Duration(seconds) * time.Second
	}

	if raw := env.Getenv("AUTH_RATE_LIMIT"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return Config{}, fmt.Errorf("invalid AUTH_RATE_LIMIT")
		}
		cfg.AuthRateLimit = limit
	}

	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}

	return cfg, nil
}
