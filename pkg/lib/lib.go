package lib

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/slok/sprites/internal/api"
	appcheckpoints "github.com/slok/sprites/internal/app/checkpoints"
	appdoctor "github.com/slok/sprites/internal/app/doctor"
	appexec "github.com/slok/sprites/internal/app/exec"
	apppolicies "github.com/slok/sprites/internal/app/policies"
	appsprites "github.com/slok/sprites/internal/app/sprites"
	"github.com/slok/sprites/internal/log"
	"github.com/slok/sprites/internal/metrics"
	metricsprometheus "github.com/slok/sprites/internal/metrics/prometheus"
)

// DefaultBaseURL is the sprites API used when none is configured.
const DefaultBaseURL = api.DefaultBaseURL

// Config configures the SDK client.
//
// Only Token is required.
type Config struct {
	// Token is the API bearer token.
	Token string

	// BaseURL is the API base URL, exec sessions use the same host over
	// ws or wss.
	// Default: https://api.sprites.dev.
	BaseURL string

	// RateLimit is the maximum API requests per second, 0 disables the limit.
	RateLimit float64

	// Timeout is the timeout of each REST request, it doesn't apply to exec
	// sessions.
	// Default: no timeout.
	Timeout time.Duration

	// HTTPClient is the HTTP client used for REST requests.
	HTTPClient *http.Client

	// MetricsRegisterer enables the client Prometheus metrics when set.
	MetricsRegisterer prometheus.Registerer

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Token == "" {
		return fmt.Errorf("token is required: %w", ErrNotValid)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point for the sprites API.
//
// Create a Client with [New]. A Client is safe for concurrent use.
type Client struct {
	api         *api.Client
	sprites     *Sprites
	checkpoints *Checkpoints
	policies    *Policies
	exec        *Exec
	doctor      *appdoctor.Service
}

// New creates a new SDK client.
//
//	client, err := lib.New(lib.Config{Token: os.Getenv("SPRITES_TOKEN")})
//	if err != nil {
//	    return err
//	}
func New(cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var recorder metrics.Recorder = metrics.Noop
	if cfg.MetricsRegisterer != nil {
		r, err := metricsprometheus.NewRecorder(metricsprometheus.Config{Registry: cfg.MetricsRegisterer})
		if err != nil {
			return nil, fmt.Errorf("could not create metrics recorder: %w", err)
		}
		recorder = r
	}

	apiClient, err := api.NewClient(api.ClientConfig{
		BaseURL:         cfg.BaseURL,
		Token:           cfg.Token,
		RateLimit:       cfg.RateLimit,
		Timeout:         cfg.Timeout,
		HTTPClient:      cfg.HTTPClient,
		MetricsRecorder: recorder,
		Logger:          cfg.Logger,
	})
	if err != nil {
		return nil, mapError(fmt.Errorf("could not create api client: %w: %w", err, ErrNotValid))
	}

	spritesSvc, err := appsprites.NewService(appsprites.ServiceConfig{Client: apiClient, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create sprites service: %w", err)
	}

	checkpointsSvc, err := appcheckpoints.NewService(appcheckpoints.ServiceConfig{Client: apiClient, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create checkpoints service: %w", err)
	}

	policiesSvc, err := apppolicies.NewService(apppolicies.ServiceConfig{Client: apiClient, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create policies service: %w", err)
	}

	execSvc, err := appexec.NewService(appexec.ServiceConfig{
		Client:          apiClient,
		MetricsRecorder: recorder,
		Logger:          cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create exec service: %w", err)
	}

	doctorSvc, err := appdoctor.NewService(appdoctor.ServiceConfig{Client: apiClient, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create doctor service: %w", err)
	}

	return &Client{
		api:         apiClient,
		sprites:     &Sprites{svc: spritesSvc},
		checkpoints: &Checkpoints{svc: checkpointsSvc},
		policies:    &Policies{svc: policiesSvc},
		exec:        &Exec{svc: execSvc, logger: cfg.Logger},
		doctor:      doctorSvc,
	}, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string { return c.api.BaseURL() }

// WebsocketURL returns the base URL used by exec sessions.
func (c *Client) WebsocketURL() string { return c.api.WebsocketURL() }

// Sprites returns the sprites operations.
func (c *Client) Sprites() *Sprites { return c.sprites }

// Checkpoints returns the checkpoints operations.
func (c *Client) Checkpoints() *Checkpoints { return c.checkpoints }

// Policies returns the network policies operations.
func (c *Client) Policies() *Policies { return c.policies }

// Exec returns the command execution operations.
func (c *Client) Exec() *Exec { return c.exec }
