package lib

import (
	"errors"
	"time"

	appexec "github.com/slok/sprites/internal/app/exec"
	"github.com/slok/sprites/internal/model"
	"github.com/slok/sprites/internal/session"
)

// --- Sprite types ---

// Sprite is a snapshot of a sprite as returned by the API.
type Sprite = model.Sprite

// SpriteStatus is the lifecycle status of a sprite.
type SpriteStatus = model.SpriteStatus

const (
	SpriteStatusCold    = model.SpriteStatusCold
	SpriteStatusWarm    = model.SpriteStatusWarm
	SpriteStatusRunning = model.SpriteStatusRunning
)

// URLAuth is the authentication mode of the sprite public URL.
type URLAuth = model.URLAuth

const (
	URLAuthSprite = model.URLAuthSprite
	URLAuthPublic = model.URLAuthPublic
)

// URLSettings holds the public URL settings of a sprite.
type URLSettings = model.URLSettings

// Collection is a single page of sprites, use [Collection.HasMore] to
// know if there are more pages.
type Collection = model.Collection

// ListSpritesOpts are the options to list sprites.
type ListSpritesOpts = model.ListSpritesOpts

// SpriteUpdate holds the mutable attributes of a sprite.
type SpriteUpdate = model.SpriteUpdate

// CreateSpriteOpts are the options to create a sprite.
type CreateSpriteOpts struct {
	// Wait blocks until the sprite is warm.
	Wait bool
	// WaitTimeout is the maximum time to wait when Wait is set.
	// Default: 60s.
	WaitTimeout time.Duration
}

// --- Checkpoint and policy types ---

// Checkpoint is a restorable snapshot of a sprite.
type Checkpoint = model.Checkpoint

// StreamEvent is an event of a streamed operation (checkpoint create and
// restore, exec kill).
type StreamEvent = model.StreamEvent

// Policy is the network policy attached to a sprite.
type Policy = model.Policy

// EgressPolicy defines the network egress filtering of a sprite.
type EgressPolicy = model.EgressPolicy

// EgressRule is a single domain egress rule.
type EgressRule = model.EgressRule

// EgressMode is the base egress mode.
type EgressMode = model.EgressMode

const (
	EgressModeAllowAll = model.EgressModeAllowAll
	EgressModeBlockAll = model.EgressModeBlockAll
)

// EgressAction is the action of an egress rule.
type EgressAction = model.EgressAction

const (
	EgressActionAllow = model.EgressActionAllow
	EgressActionDeny  = model.EgressActionDeny
)

// PolicyCheck is the result of checking a domain against a sprite policy.
type PolicyCheck = model.PolicyCheck

// --- Exec types ---

// ExecOpts configures a command execution.
//
// Pass nil to use defaults (no working dir, no extra env, no stdin, output
// only accumulated on the result).
type ExecOpts = model.ExecOpts

// ExecResult is the result of [Exec.Run].
type ExecResult = model.ExecResult

// ExecOutput is the result of [Exec.Create].
type ExecOutput = model.ExecOutput

// ExecSessionInfo describes an exec session of a sprite.
type ExecSessionInfo = model.ExecSessionInfo

// KillOpts are the options to kill an exec session.
type KillOpts = model.KillOpts

// Session is a live exec session, see [Exec.Connect].
type Session = session.Session

// SessionHandler is the caller logic run together with a session.
type SessionHandler = appexec.SessionHandler

// --- Doctor types ---

// CheckStatus is the outcome of a setup check.
type CheckStatus = model.CheckStatus

const (
	CheckStatusOK      = model.CheckStatusOK
	CheckStatusWarning = model.CheckStatusWarning
	CheckStatusError   = model.CheckStatusError
)

// CheckResult is the result of a single setup check.
type CheckResult = model.CheckResult

// --- Errors ---

var (
	// ErrNotFound is returned when a resource doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource with the same name exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned on invalid input.
	ErrNotValid = errors.New("not valid")
	// ErrTimeout is returned when waiting for a warm sprite times out.
	ErrTimeout = errors.New("timeout")
	// ErrProtocol is returned when an exec session breaks the wire protocol
	// or ends without an exit status.
	ErrProtocol = errors.New("protocol violation")
)

// APIError is returned for non-2xx API responses and error events of
// streamed operations. Use [errors.As] to get the status code and message.
type APIError = model.APIError

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case errors.Is(err, model.ErrTimeout):
		return joinErrors(err, ErrTimeout)
	case errors.Is(err, model.ErrProtocol):
		return joinErrors(err, ErrProtocol)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
