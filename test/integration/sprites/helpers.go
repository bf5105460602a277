package sprites

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/slok/sprites/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary  string
	Token   string
	BaseURL string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "sprites"
	}

	// go test changes the CWD to the test package directory, relative paths
	// would not resolve.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("SPRITES_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("sprites binary not found at %q: %w", c.Binary, err)
	}

	if c.Token == "" {
		return fmt.Errorf("token is required (SPRITES_INTEGRATION_TOKEN)")
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "SPRITES_INTEGRATION"
		envBinary     = "SPRITES_INTEGRATION_BINARY"
		envToken      = "SPRITES_INTEGRATION_TOKEN"
		envBaseURL    = "SPRITES_INTEGRATION_BASE_URL"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary:  os.Getenv(envBinary),
		Token:   os.Getenv(envToken),
		BaseURL: os.Getenv(envBaseURL),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

func (c Config) env(configPath string) []string {
	env := []string{
		"SPRITES_TOKEN=" + c.Token,
		"SPRITES_CONFIG=" + configPath,
	}
	if c.BaseURL != "" {
		env = append(env, "SPRITES_BASE_URL="+c.BaseURL)
	}
	return env
}

// Run runs a sprites command isolated from the user configuration file.
func Run(ctx context.Context, t *testing.T, config Config, args ...string) (stdout, stderr []byte, err error) {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	return testutils.RunSpritesArgs(ctx, config.env(configPath), config.Binary, args, true)
}
