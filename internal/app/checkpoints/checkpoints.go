// Package checkpoints has the sprite checkpoint and restore operations.
package checkpoints

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/slok/sprites/internal/log"
	"github.com/slok/sprites/internal/model"
)

// APIClient is the API client used by the service.
type APIClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	PostStream(ctx context.Context, path string, body any) ([]model.StreamEvent, error)
}

// ServiceConfig is the configuration for the checkpoints service.
type ServiceConfig struct {
	Client APIClient
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("api client is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.checkpoints"})

	return nil
}

// Service manages sprite checkpoints.
type Service struct {
	client APIClient
	logger log.Logger
}

// NewService creates a new checkpoints service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client: cfg.Client,
		logger: cfg.Logger,
	}, nil
}

type checkpointJSON struct {
	ID         string    `json:"id"`
	CreateTime time.Time `json:"create_time"`
	Comment    string    `json:"comment"`
	IsAuto     bool      `json:"is_auto"`
}

func (c checkpointJSON) toModel() model.Checkpoint {
	return model.Checkpoint{
		ID:         c.ID,
		CreateTime: c.CreateTime,
		Comment:    c.Comment,
		IsAuto:     c.IsAuto,
	}
}

type createJSON struct {
	Comment string `json:"comment,omitempty"`
}

// List returns the checkpoints of a sprite.
func (s *Service) List(ctx context.Context, sprite string) ([]model.Checkpoint, error) {
	if err := model.ValidateSpriteName(sprite); err != nil {
		return nil, err
	}

	var resp []checkpointJSON
	if err := s.client.Get(ctx, checkpointsPath(sprite), nil, &resp); err != nil {
		return nil, fmt.Errorf("could not list checkpoints of %q: %w", sprite, err)
	}

	cps := make([]model.Checkpoint, 0, len(resp))
	for _, c := range resp {
		cps = append(cps, c.toModel())
	}

	return cps, nil
}

// Get returns a checkpoint of a sprite.
func (s *Service) Get(ctx context.Context, sprite, id string) (*model.Checkpoint, error) {
	if err := validate(sprite, id); err != nil {
		return nil, err
	}

	var resp checkpointJSON
	if err := s.client.Get(ctx, checkpointPath(sprite, id), nil, &resp); err != nil {
		return nil, fmt.Errorf("could not get checkpoint %q of %q: %w", id, sprite, err)
	}

	cp := resp.toModel()
	return &cp, nil
}

// Create checkpoints a sprite and returns the streamed progress events.
func (s *Service) Create(ctx context.Context, sprite, comment string) ([]model.StreamEvent, error) {
	if err := model.ValidateSpriteName(sprite); err != nil {
		return nil, err
	}

	path := "/v1/sprites/" + url.PathEscape(sprite) + "/checkpoint"
	events, err := s.client.PostStream(ctx, path, createJSON{Comment: comment})
	if err != nil {
		return nil, fmt.Errorf("could not create checkpoint of %q: %w", sprite, err)
	}
	s.logger.Infof("checkpoint of %q created", sprite)

	return events, nil
}

// Restore restores a sprite to a checkpoint and returns the streamed progress events.
func (s *Service) Restore(ctx context.Context, sprite, id string) ([]model.StreamEvent, error) {
	if err := validate(sprite, id); err != nil {
		return nil, err
	}

	events, err := s.client.PostStream(ctx, checkpointPath(sprite, id)+"/restore", struct{}{})
	if err != nil {
		return nil, fmt.Errorf("could not restore %q to checkpoint %q: %w", sprite, id, err)
	}
	s.logger.Infof("sprite %q restored to checkpoint %q", sprite, id)

	return events, nil
}

func validate(sprite, id string) error {
	if err := model.ValidateSpriteName(sprite); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("checkpoint id is required: %w", model.ErrNotValid)
	}
	return nil
}

func checkpointsPath(sprite string) string {
	return "/v1/sprites/" + url.PathEscape(sprite) + "/checkpoints"
}

func checkpointPath(sprite, id string) string {
	return checkpointsPath(sprite) + "/" + url.PathEscape(id)
}
