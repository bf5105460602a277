package lib

import (
	"context"

	appcheckpoints "github.com/slok/sprites/internal/app/checkpoints"
)

// Checkpoints are the checkpoint and restore operations.
type Checkpoints struct {
	svc *appcheckpoints.Service
}

// List returns the checkpoints of a sprite.
func (c *Checkpoints) List(ctx context.Context, sprite string) ([]Checkpoint, error) {
	cps, err := c.svc.List(ctx, sprite)
	if err != nil {
		return nil, mapError(err)
	}
	return cps, nil
}

// Get returns a checkpoint of a sprite.
func (c *Checkpoints) Get(ctx context.Context, sprite, id string) (*Checkpoint, error) {
	cp, err := c.svc.Get(ctx, sprite, id)
	if err != nil {
		return nil, mapError(err)
	}
	return cp, nil
}

// Create checkpoints a sprite and returns the streamed progress events. An
// error event is returned as an [APIError].
func (c *Checkpoints) Create(ctx context.Context, sprite, comment string) ([]StreamEvent, error) {
	events, err := c.svc.Create(ctx, sprite, comment)
	if err != nil {
		return nil, mapError(err)
	}
	return events, nil
}

// Restore restores a sprite to a checkpoint and returns the streamed
// progress events.
func (c *Checkpoints) Restore(ctx context.Context, sprite, id string) ([]StreamEvent, error) {
	events, err := c.svc.Restore(ctx, sprite, id)
	if err != nil {
		return nil, mapError(err)
	}
	return events, nil
}
