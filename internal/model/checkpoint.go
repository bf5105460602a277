package model

import "time"

// Checkpoint is a restorable snapshot of a sprite.
type Checkpoint struct {
	ID         string
	CreateTime time.Time
	Comment    string
	// IsAuto is true for checkpoints taken automatically by the platform.
	IsAuto bool
}
