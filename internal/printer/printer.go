package printer

import "github.com/slok/sprites/internal/model"

// Printer knows how to print sprites resources in different formats.
type Printer interface {
	PrintSprites(sprites []model.Sprite) error
	PrintSprite(sprite model.Sprite) error
	PrintCheckpoints(checkpoints []model.Checkpoint) error
	PrintCheckpoint(checkpoint model.Checkpoint) error
	PrintPolicy(policy model.Policy) error
	PrintPolicyCheck(check model.PolicyCheck) error
	PrintExecSessions(sessions []model.ExecSessionInfo) error
	PrintEvents(events []model.StreamEvent) error
	PrintChecks(results []model.CheckResult) error
	PrintMessage(msg string) error
}
