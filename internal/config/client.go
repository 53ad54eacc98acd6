package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig configures the chat CLI. It is read from an optional YAML file
// and then overridden by the environment.
type ClientConfig struct {
	BaseURL     string        `yaml:"base_url"`
	AuthURL     string        `yaml:"auth_url"`
	MessagesURL string        `yaml:"messages_url"`
	GroupsURL   string        `yaml:"groups_url"`
	UsersURL    string        `yaml:"users_url"`
	SessionFile string        `yaml:"session_file"`
	RedisURL    string        `yaml:"redis_url"`
	Timeout     time.Duration `yaml:"timeout"`
	LogLevel    string        `yaml:"log_level"`
}

// LoadClient reads path (which may be empty or missing) and applies env overrides.
func LoadClient(path string, env Env) (*ClientConfig, error) {
	var data []byte
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		data = raw
	}
	cfg, err := parseClient(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseClient unmarshals YAML bytes into a validated ClientConfig.
func ParseClient(data []byte) (*ClientConfig, error) {
	cfg, err := parseClient(data)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseClient(data []byte) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &cfg, nil
}

func (c *ClientConfig) applyEnv(env Env) error {
	if env == nil {
		return nil
	}
	for key, dst := range map[string]*string{
		"CHAT_BASE_URL":     &c.BaseURL,
		"CHAT_AUTH_URL":     &c.AuthURL,
		"CHAT_MESSAGES_URL": &c.MessagesURL,
		"CHAT_GROUPS_URL":   &c.GroupsURL,
		"CHAT_USERS_URL":    &c.UsersURL,
		"CHAT_SESSION_FILE": &c.SessionFile,
		"CHAT_REDIS_URL":    &c.RedisURL,
		"LOG_LEVEL":         &c.LogLevel,
	} {
		if v := env.Getenv(key); v != "" {
			*dst = v
		}
	}
	if raw := env.Getenv("CHAT_TIMEOUT_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("invalid CHAT_TIMEOUT_SECONDS")
		}
		c.Timeout = time.Duration(seconds) * time.Second
	}
	return nil
}

// applyDefaults derives the service URLs from BaseURL and fills the rest.
func (c *ClientConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:3000"
	}
	base := strings.TrimRight(c.BaseURL, "/")
	if c.AuthURL == "" {
		c.AuthURL = base + "/auth"
	}
	if c.MessagesURL == "" {
		c.MessagesURL = base + "/messages"
	}
	if c.GroupsURL == "" {
		c.GroupsURL = base + "/groups"
	}
	if c.UsersURL == "" {
		c.UsersURL = base + "/users"
	}
	if c.SessionFile == "" && c.RedisURL == "" {
		c.SessionFile = defaultSessionFile()
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

func (c *ClientConfig) validate() error {
	for name, raw := range map[string]string{
		"auth_url":     c.AuthURL,
		"messages_url": c.MessagesURL,
		"groups_url":   c.GroupsURL,
		"users_url":    c.UsersURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: %s must be an http(s) URL, got %q", name, raw)
		}
	}
	return nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "chatsync", "session.json")
}
