// Package config loads the server configuration from a YAML file, creating
// one with generated secrets on first run.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML support for strings like "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the persisted server configuration.
type Config struct {
	// JWTSecret signs bearer tokens. Generated on first run.
	JWTSecret string          `yaml:"jwt_secret"`
	Digest    DigestConfig    `yaml:"digest"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Git       GitConfig       `yaml:"git"`
}

// DigestConfig selects the password hashing scheme.
type DigestConfig struct {
	// Scheme is "md5" (legacy) or "pbkdf2".
	Scheme     string `yaml:"scheme"`
	Salt       string `yaml:"salt"`
	Iterations int    `yaml:"iterations"`
}

// RateLimitConfig shapes the per-client token bucket. Requests of 0 disables
// limiting.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
	Burst    int      `yaml:"burst"`
}

// GitConfig controls document history tracking.
type GitConfig struct {
	Enabled     bool   `yaml:"enabled"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Default returns a configuration with fresh secrets.
func Default() (*Config, error) {
	secret, err := randomHex(32)
	if err != nil {
		return nil, err
	}
	salt, err := randomHex(16)
	if err != nil {
		return nil, err
	}
	return &Config{
		JWTSecret: secret,
		Digest: DigestConfig{
			Scheme:     "pbkdf2",
			Salt:       salt,
			Iterations: 100000,
		},
		RateLimit: RateLimitConfig{
			Requests: 300,
			Window:   Duration(time.Minute),
			Burst:    50,
		},
		Git: GitConfig{
			Enabled:     true,
			AuthorName:  "seedd",
			AuthorEmail: "seedd@localhost",
		},
	}, nil
}

// Load reads the configuration at path. A missing file is created with
// defaults so a fresh deployment starts with usable secrets.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg, err := Default()
		if err != nil {
			return nil, err
		}
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, readable only by the owner since it
// holds secrets.
func (c *Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	switch c.Digest.Scheme {
	case "md5":
	case "pbkdf2":
		if c.Digest.Salt == "" {
			return fmt.Errorf("digest.salt is required for pbkdf2")
		}
		if c.Digest.Iterations <= 0 {
			return fmt.Errorf("digest.iterations must be positive")
		}
	default:
		return fmt.Errorf("unknown digest scheme %q", c.Digest.Scheme)
	}
	return nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
