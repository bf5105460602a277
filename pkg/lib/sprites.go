package lib

import (
	"context"
	"time"

	appsprites "github.com/slok/sprites/internal/app/sprites"
)

// Sprites are the sprite lifecycle operations.
type Sprites struct {
	svc *appsprites.Service
}

// List returns a page of sprites. Pass nil opts for the first page with
// the server default size.
func (s *Sprites) List(ctx context.Context, opts *ListSpritesOpts) (*Collection, error) {
	var o ListSpritesOpts
	if opts != nil {
		o = *opts
	}

	c, err := s.svc.List(ctx, o)
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

// ListAll returns all the sprites with the name prefix, following the pages.
func (s *Sprites) ListAll(ctx context.Context, prefix string) ([]Sprite, error) {
	sprites, err := s.svc.ListAll(ctx, prefix)
	if err != nil {
		return nil, mapError(err)
	}
	return sprites, nil
}

// Get returns a sprite.
//
// Returns [ErrNotFound] if the sprite does not exist.
func (s *Sprites) Get(ctx context.Context, name string) (*Sprite, error) {
	sp, err := s.svc.Get(ctx, name)
	if err != nil {
		return nil, mapError(err)
	}
	return sp, nil
}

// Create creates a sprite. With opts.Wait it blocks until the sprite is warm
// returning [ErrTimeout] when the wait timeout is exceeded.
func (s *Sprites) Create(ctx context.Context, name string, opts *CreateSpriteOpts) (*Sprite, error) {
	req := appsprites.CreateRequest{Name: name}
	if opts != nil {
		req.Wait = opts.Wait
		req.WaitTimeout = opts.WaitTimeout
	}

	sp, err := s.svc.Create(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	return sp, nil
}

// WaitUntilWarm polls the sprite until it is warm, a zero timeout uses the
// default one. Returns [ErrTimeout] when the timeout is exceeded.
func (s *Sprites) WaitUntilWarm(ctx context.Context, name string, timeout time.Duration) (*Sprite, error) {
	sp, err := s.svc.WaitUntilWarm(ctx, name, timeout)
	if err != nil {
		return nil, mapError(err)
	}
	return sp, nil
}

// Update updates the mutable attributes of a sprite.
func (s *Sprites) Update(ctx context.Context, name string, upd SpriteUpdate) (*Sprite, error) {
	sp, err := s.svc.Update(ctx, name, upd)
	if err != nil {
		return nil, mapError(err)
	}
	return sp, nil
}

// Delete deletes a sprite.
func (s *Sprites) Delete(ctx context.Context, name string) error {
	return mapError(s.svc.Delete(ctx, name))
}
