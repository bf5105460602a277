// Package config loads the client configuration from a YAML file and the
// environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/sprites/internal/model"
)

const (
	// DefaultBaseURL is the production API URL.
	DefaultBaseURL = "https://api.sprites.dev"
	// EnvPrefix is the prefix of the environment variables (e.g SPRITES_TOKEN).
	EnvPrefix = "SPRITES"
)

// DefaultPath returns the default configuration file path (~/.sprites/config.yaml).
func DefaultPath() string {
	return filepath.Join(homedir.HomeDir(), ".sprites", "config.yaml")
}

// Config is the client configuration.
type Config struct {
	Token   string
	BaseURL string
	// RateLimit is the maximum API requests per second, 0 is unlimited.
	RateLimit float64
}

// Validate validates the configuration.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w: %w", err, model.ErrNotValid)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL must be http or https: %w", model.ErrNotValid)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit can't be negative: %w", model.ErrNotValid)
	}
	return nil
}

type fileConfigYAML struct {
	Token     string  `yaml:"token"`
	BaseURL   string  `yaml:"base_url"`
	RateLimit float64 `yaml:"rate_limit"`
}

type envConfig struct {
	Token     string `envconfig:"TOKEN"`
	BaseURL   string `envconfig:"BASE_URL"`
	RateLimit string `envconfig:"RATE_LIMIT"`
}

// Loader loads the configuration.
type Loader struct {
	fs        fs.FS
	envPrefix string
}

// NewLoader returns a loader that reads the files from the filesystem.
func NewLoader(filesystem fs.FS) *Loader {
	return &Loader{fs: filesystem, envPrefix: EnvPrefix}
}

// Load returns the defaults, overridden by the file on path (if exists) and
// then by the environment.
func (l *Loader) Load(ctx context.Context, path string) (Config, error) {
	cfg := Config{BaseURL: DefaultBaseURL}

	if path != "" {
		fileCfg, err := l.loadFile(ctx, path)
		if err != nil {
			return Config{}, err
		}
		cfg = Merge(cfg, fileCfg)
	}

	envCfg, err := l.loadEnv()
	if err != nil {
		return Config{}, err
	}
	cfg = Merge(cfg, envCfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) (Config, error) {
	data, err := fs.ReadFile(l.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return Config{}, ctx.Err()
	}

	var c fileConfigYAML
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parsing YAML: %w: %w", err, model.ErrNotValid)
	}

	return Config{Token: c.Token, BaseURL: c.BaseURL, RateLimit: c.RateLimit}, nil
}

func (l *Loader) loadEnv() (Config, error) {
	var e envConfig
	if err := envconfig.Process(l.envPrefix, &e); err != nil {
		return Config{}, fmt.Errorf("could not load environment: %w", err)
	}

	cfg := Config{Token: e.Token, BaseURL: e.BaseURL}
	if e.RateLimit != "" {
		rl, err := strconv.ParseFloat(e.RateLimit, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s_RATE_LIMIT: %w: %w", l.envPrefix, err, model.ErrNotValid)
		}
		cfg.RateLimit = rl
	}

	return cfg, nil
}

// Merge returns base with the non empty values of override set.
func Merge(base, override Config) Config {
	if override.Token != "" {
		base.Token = override.Token
	}
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.RateLimit != 0 {
		base.RateLimit = override.RateLimit
	}
	return base
}
