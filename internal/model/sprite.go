package model

import (
	"fmt"
	"strings"
	"time"
)

// SpriteStatus represents the lifecycle status of a sprite.
type SpriteStatus string

const (
	// SpriteStatusCold indicates the sprite is suspended and will boot on demand.
	SpriteStatusCold SpriteStatus = "cold"
	// SpriteStatusWarm indicates the sprite is booted and ready to accept work.
	SpriteStatusWarm SpriteStatus = "warm"
	// SpriteStatusRunning indicates the sprite is actively running commands.
	SpriteStatusRunning SpriteStatus = "running"
)

// URLAuth is the authentication mode of the sprite public URL.
type URLAuth string

const (
	// URLAuthSprite requires sprite organization credentials to access the URL.
	URLAuthSprite URLAuth = "sprite"
	// URLAuthPublic makes the sprite URL publicly reachable.
	URLAuthPublic URLAuth = "public"
)

// URLSettings holds the public URL settings of a sprite.
type URLSettings struct {
	Auth URLAuth
}

// Sprite is a snapshot of a sprite as returned by the API. It is never
// mutated locally, fetch it again to observe state changes.
type Sprite struct {
	ID                 string
	Name               string
	Status             SpriteStatus
	Version            string
	URL                string
	URLSettings        URLSettings
	Organization       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	EnvironmentVersion string
}

// IsWarm returns true when the sprite is ready to accept work.
func (s Sprite) IsWarm() bool {
	return s.Status == SpriteStatusWarm
}

// Collection is a single page of sprites.
type Collection struct {
	Sprites               []Sprite
	NextContinuationToken *string
	// RawHasMore is the has_more flag as reported by the server.
	RawHasMore bool
}

// HasMore returns true if there are more pages to fetch.
//
// The server reports has_more=true even when no continuation token is
// returned, the token is the authoritative signal.
func (c Collection) HasMore() bool {
	return c.RawHasMore && c.NextContinuationToken != nil
}

// ListSpritesOpts are the options to list sprites.
type ListSpritesOpts struct {
	Prefix            string
	MaxResults        int
	ContinuationToken string
}

// SpriteUpdate holds the mutable attributes of a sprite.
type SpriteUpdate struct {
	URLSettings *URLSettings
}

// Validate validates the update.
func (u SpriteUpdate) Validate() error {
	if u.URLSettings == nil {
		return fmt.Errorf("at least one attribute is required: %w", ErrNotValid)
	}

	switch u.URLSettings.Auth {
	case URLAuthSprite, URLAuthPublic:
	default:
		return fmt.Errorf("unknown url auth %q: %w", u.URLSettings.Auth, ErrNotValid)
	}

	return nil
}

// ValidateSpriteName checks a sprite name can be safely used as an API path segment.
func ValidateSpriteName(name string) error {
	if name == "" {
		return fmt.Errorf("sprite name is required: %w", ErrNotValid)
	}
	if strings.ContainsAny(name, "/?#% ") {
		return fmt.Errorf("sprite name %q contains invalid characters: %w", name, ErrNotValid)
	}
	return nil
}
