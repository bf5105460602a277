// Package exec runs commands on sprites, one-shot over HTTP or streamed over
// an exec WebSocket session.
package exec

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/slok/sprites/internal/log"
	"github.com/slok/sprites/internal/metrics"
	"github.com/slok/sprites/internal/model"
)

// APIClient is the API client used by the service.
type APIClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	PostStream(ctx context.Context, path string, body any) ([]model.StreamEvent, error)
	WebsocketURL() string
	AuthHeaders() http.Header
}

// ServiceConfig is the configuration for the exec service.
type ServiceConfig struct {
	Client          APIClient
	Dialer          Dialer
	MetricsRecorder metrics.Recorder
	Logger          log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("api client is required")
	}

	if c.Dialer == nil {
		c.Dialer = NewWebsocketDialer()
	}

	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Noop
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Exec"})

	return nil
}

// Service handles command execution on sprites.
type Service struct {
	client  APIClient
	dialer  Dialer
	metrics metrics.Recorder
	logger  log.Logger
}

// NewService creates a new exec service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client:  cfg.Client,
		dialer:  cfg.Dialer,
		metrics: cfg.MetricsRecorder,
		logger:  cfg.Logger,
	}, nil
}

type createJSON struct {
	Command string `json:"command"`
}

type outputJSON struct {
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
}

// Create runs a command to completion without a session and returns its
// combined output.
func (s *Service) Create(ctx context.Context, sprite, command string) (*model.ExecOutput, error) {
	if err := model.ValidateSpriteName(sprite); err != nil {
		return nil, err
	}
	if command == "" {
		return nil, fmt.Errorf("command cannot be empty: %w", model.ErrNotValid)
	}

	var resp outputJSON
	if err := s.client.Post(ctx, execPath(sprite), createJSON{Command: command}, &resp); err != nil {
		return nil, fmt.Errorf("could not execute command on %q: %w", sprite, err)
	}
	s.logger.Debugf("executed command on sprite %s: exit code %d", sprite, resp.ExitCode)

	return &model.ExecOutput{ExitCode: resp.ExitCode, Output: resp.Output}, nil
}

type sessionJSON struct {
	ID        int        `json:"id"`
	Command   string     `json:"command"`
	IsActive  bool       `json:"is_active"`
	TTY       bool       `json:"tty"`
	Workdir   string     `json:"workdir"`
	CreatedAt *time.Time `json:"created,omitempty"`
}

func (j sessionJSON) toModel() model.ExecSessionInfo {
	return model.ExecSessionInfo{
		ID:        j.ID,
		Command:   j.Command,
		IsActive:  j.IsActive,
		TTY:       j.TTY,
		Workdir:   j.Workdir,
		CreatedAt: j.CreatedAt,
	}
}

// List returns the exec sessions of a sprite.
func (s *Service) List(ctx context.Context, sprite string) ([]model.ExecSessionInfo, error) {
	if err := model.ValidateSpriteName(sprite); err != nil {
		return nil, err
	}

	var resp []sessionJSON
	if err := s.client.Get(ctx, execPath(sprite), nil, &resp); err != nil {
		return nil, fmt.Errorf("could not list exec sessions of %q: %w", sprite, err)
	}

	sessions := make([]model.ExecSessionInfo, 0, len(resp))
	for _, j := range resp {
		sessions = append(sessions, j.toModel())
	}

	return sessions, nil
}

// GetSession returns an exec session of a sprite.
func (s *Service) GetSession(ctx context.Context, sprite string, id int) (*model.ExecSessionInfo, error) {
	sessions, err := s.List(ctx, sprite)
	if err != nil {
		return nil, err
	}

	for _, sess := range sessions {
		if sess.ID == id {
			return &sess, nil
		}
	}

	return nil, fmt.Errorf("exec session %d of %q: %w", id, sprite, model.ErrNotFound)
}

type killJSON struct {
	Signal string `json:"signal,omitempty"`
}

// Kill signals an exec session and returns the streamed signal and exit events.
func (s *Service) Kill(ctx context.Context, sprite string, id int, opts model.KillOpts) ([]model.StreamEvent, error) {
	if err := model.ValidateSpriteName(sprite); err != nil {
		return nil, err
	}

	path := execPath(sprite) + "/" + strconv.Itoa(id) + "/kill"
	events, err := s.client.PostStream(ctx, path, killJSON{Signal: opts.Signal})
	if err != nil {
		return nil, fmt.Errorf("could not kill exec session %d of %q: %w", id, sprite, err)
	}
	s.logger.Infof("exec session %d of sprite %s killed", id, sprite)

	return events, nil
}

func execPath(sprite string) string {
	return "/v1/sprites/" + url.PathEscape(sprite) + "/exec"
}
