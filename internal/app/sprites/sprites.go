// Package sprites has the sprite lifecycle operations.
package sprites

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/slok/sprites/internal/log"
	"github.com/slok/sprites/internal/model"
)

const (
	// DefaultWaitTimeout is the default time to wait for a sprite to be warm.
	DefaultWaitTimeout = 60 * time.Second

	defaultPollInterval = 500 * time.Millisecond
	spritesPath         = "/v1/sprites"
)

// APIClient is the API client used by the service.
type APIClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// ServiceConfig is the configuration for the sprites service.
type ServiceConfig struct {
	Client APIClient
	// PollInterval is the interval between status checks while waiting for a
	// sprite to be warm.
	PollInterval time.Duration
	Logger       log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("api client is required")
	}

	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.sprites"})

	return nil
}

// Service manages sprites.
type Service struct {
	client       APIClient
	pollInterval time.Duration
	logger       log.Logger
}

// NewService creates a new sprites service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client:       cfg.Client,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}, nil
}

// List returns a single page of sprites.
func (s *Service) List(ctx context.Context, opts model.ListSpritesOpts) (*model.Collection, error) {
	q := url.Values{}
	if opts.Prefix != "" {
		q.Set("prefix", opts.Prefix)
	}
	if opts.MaxResults > 0 {
		q.Set("max_results", strconv.Itoa(opts.MaxResults))
	}
	if opts.ContinuationToken != "" {
		q.Set("continuation_token", opts.ContinuationToken)
	}

	var resp listJSON
	if err := s.client.Get(ctx, spritesPath, q, &resp); err != nil {
		return nil, fmt.Errorf("could not list sprites: %w", err)
	}

	c := resp.toModel()
	s.logger.Debugf("listed %d sprites (more: %t)", len(c.Sprites), c.HasMore())

	return &c, nil
}

// ListAll returns all the sprites following the pagination. It stops on an
// empty or repeated continuation token, those would fetch the same page again.
func (s *Service) ListAll(ctx context.Context, prefix string) ([]model.Sprite, error) {
	opts := model.ListSpritesOpts{Prefix: prefix}
	all := []model.Sprite{}
	for {
		c, err := s.List(ctx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, c.Sprites...)

		if !c.HasMore() {
			return all, nil
		}

		token := *c.NextContinuationToken
		if token == "" || token == opts.ContinuationToken {
			s.logger.Warningf("server reported more sprites with an unusable continuation token %q, stopping pagination", token)
			return all, nil
		}
		opts.ContinuationToken = token
	}
}

// Get returns a sprite by name.
func (s *Service) Get(ctx context.Context, name string) (*model.Sprite, error) {
	if err := model.ValidateSpriteName(name); err != nil {
		return nil, err
	}

	var resp spriteJSON
	if err := s.client.Get(ctx, spritePath(name), nil, &resp); err != nil {
		return nil, fmt.Errorf("could not get sprite %q: %w", name, err)
	}

	sp := resp.toModel()
	return &sp, nil
}

// CreateRequest is the request to create a sprite.
type CreateRequest struct {
	Name string
	// Wait blocks until the sprite is warm.
	Wait bool
	// WaitTimeout is the max time to wait, defaults to 60s.
	WaitTimeout time.Duration
}

// Create creates a sprite, optionally waiting until it's warm.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Sprite, error) {
	if err := model.ValidateSpriteName(req.Name); err != nil {
		return nil, err
	}

	var resp spriteJSON
	if err := s.client.Post(ctx, spritesPath, createJSON{Name: req.Name}, &resp); err != nil {
		return nil, fmt.Errorf("could not create sprite %q: %w", req.Name, err)
	}
	sp := resp.toModel()
	s.logger.Infof("sprite %q created", sp.Name)

	if !req.Wait {
		return &sp, nil
	}

	name := sp.Name
	if name == "" {
		name = req.Name
	}
	return s.WaitUntilWarm(ctx, name, req.WaitTimeout)
}

// WaitUntilWarm polls the sprite until its status is warm. If the timeout is
// reached first it returns model.ErrTimeout.
func (s *Service) WaitUntilWarm(ctx context.Context, name string, timeout time.Duration) (*model.Sprite, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	errWaitTimeout := fmt.Errorf("sprite %q not warm after %s: %w", name, timeout, model.ErrTimeout)
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, errWaitTimeout)
	defer cancel()

	t := time.NewTicker(s.pollInterval)
	defer t.Stop()

	for {
		sp, err := s.Get(ctx, name)
		if err != nil {
			// Only our own deadline is a timeout, the parent context can end first.
			if errors.Is(context.Cause(ctx), errWaitTimeout) {
				return nil, errWaitTimeout
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		if sp.IsWarm() {
			return sp, nil
		}
		s.logger.Debugf("sprite %q is %s, waiting", name, sp.Status)

		select {
		case <-ctx.Done():
			if errors.Is(context.Cause(ctx), errWaitTimeout) {
				return nil, errWaitTimeout
			}
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// Update updates the mutable attributes of a sprite.
func (s *Service) Update(ctx context.Context, name string, upd model.SpriteUpdate) (*model.Sprite, error) {
	if err := model.ValidateSpriteName(name); err != nil {
		return nil, err
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	var resp spriteJSON
	if err := s.client.Put(ctx, spritePath(name), newUpdateJSON(upd), &resp); err != nil {
		return nil, fmt.Errorf("could not update sprite %q: %w", name, err)
	}

	sp := resp.toModel()
	return &sp, nil
}

// Delete deletes a sprite.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := model.ValidateSpriteName(name); err != nil {
		return err
	}

	if err := s.client.Delete(ctx, spritePath(name)); err != nil {
		return fmt.Errorf("could not delete sprite %q: %w", name, err)
	}
	s.logger.Infof("sprite %q deleted", name)

	return nil
}

func spritePath(name string) string {
	return spritesPath + "/" + url.PathEscape(name)
}
