package lib

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sdklib "github.com/slok/sprites/pkg/lib"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Token   string
	BaseURL string
}

func (c *Config) defaults() error {
	if c.Token == "" {
		return fmt.Errorf("token is required (SPRITES_INTEGRATION_TOKEN)")
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "SPRITES_INTEGRATION"
		envToken      = "SPRITES_INTEGRATION_TOKEN"
		envBaseURL    = "SPRITES_INTEGRATION_BASE_URL"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Token:   os.Getenv(envToken),
		BaseURL: os.Getenv(envBaseURL),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// UniqueName generates a unique sprite name for test isolation.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// NewTestClient creates an SDK client against the real API.
func NewTestClient(t *testing.T, config Config) *sdklib.Client {
	t.Helper()

	client, err := sdklib.New(sdklib.Config{
		Token:   config.Token,
		BaseURL: config.BaseURL,
	})
	require.NoError(t, err)

	return client
}

// CleanupSprite registers a cleanup function that deletes a sprite.
func CleanupSprite(t *testing.T, client *sdklib.Client, name string) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		// Best effort cleanup.
		_ = client.Sprites().Delete(ctx, name)
	})
}
