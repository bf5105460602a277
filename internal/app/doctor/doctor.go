// Package doctor checks the client setup against the sprites API.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/slok/sprites/internal/log"
	"github.com/slok/sprites/internal/model"
	"github.com/slok/sprites/internal/terminal"
)

// APIClient is the API client used by the service.
type APIClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	WebsocketURL() string
}

// ServiceConfig is the configuration for the doctor service.
type ServiceConfig struct {
	Client APIClient
	// Stdin is checked to be a terminal for the interactive commands.
	Stdin  *os.File
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("api client is required")
	}

	if c.Stdin == nil {
		c.Stdin = os.Stdin
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Doctor"})

	return nil
}

// Service runs the client setup checks.
type Service struct {
	client APIClient
	stdin  *os.File
	logger log.Logger
}

// NewService creates a new doctor service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client: cfg.Client,
		stdin:  cfg.Stdin,
		logger: cfg.Logger,
	}, nil
}

// Check runs all the checks, a failing check never stops the next ones.
func (s *Service) Check(ctx context.Context) []model.CheckResult {
	results := []model.CheckResult{
		s.checkAPI(ctx),
		s.checkWebsocketURL(),
		s.checkTerminal(),
	}

	ok, warnings, errs := model.CountByStatus(results)
	s.logger.Debugf("checks finished: %d ok, %d warnings, %d errors", ok, warnings, errs)

	return results
}

func (s *Service) checkAPI(ctx context.Context) model.CheckResult {
	const id = "api_access"

	q := url.Values{}
	q.Set("max_results", "1")
	var discard struct{}
	err := s.client.Get(ctx, "/v1/sprites", q, &discard)
	if err == nil {
		return model.CheckResult{ID: id, Message: "API reachable and token accepted", Status: model.CheckStatusOK}
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return model.CheckResult{ID: id, Message: fmt.Sprintf("token rejected: %s", apiErr.Message), Status: model.CheckStatusError}
		}
		return model.CheckResult{ID: id, Message: fmt.Sprintf("API answered with an error: %s", apiErr), Status: model.CheckStatusError}
	}

	return model.CheckResult{ID: id, Message: fmt.Sprintf("API not reachable: %s", err), Status: model.CheckStatusError}
}

func (s *Service) checkWebsocketURL() model.CheckResult {
	const id = "websocket_url"

	u, err := url.Parse(s.client.WebsocketURL())
	if err != nil {
		return model.CheckResult{ID: id, Message: fmt.Sprintf("invalid websocket URL: %s", err), Status: model.CheckStatusError}
	}

	switch u.Scheme {
	case "wss":
		return model.CheckResult{ID: id, Message: "exec sessions use " + u.Host + " over TLS", Status: model.CheckStatusOK}
	case "ws":
		return model.CheckResult{ID: id, Message: "exec sessions to " + u.Host + " are not encrypted", Status: model.CheckStatusWarning}
	}

	return model.CheckResult{ID: id, Message: fmt.Sprintf("unsupported websocket scheme %q", u.Scheme), Status: model.CheckStatusError}
}

func (s *Service) checkTerminal() model.CheckResult {
	const id = "terminal"

	if !terminal.IsTerminal(s.stdin) {
		return model.CheckResult{ID: id, Message: "stdin is not a terminal, console and attach won't use raw mode", Status: model.CheckStatusWarning}
	}

	cols, rows := terminal.Size(s.stdin)
	return model.CheckResult{ID: id, Message: fmt.Sprintf("stdin is a %dx%d terminal", cols, rows), Status: model.CheckStatusOK}
}
