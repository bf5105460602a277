package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sprites/internal/app/checkpoints"
)

func (c *RootCommand) newCheckpointsService(ctx context.Context) (*checkpoints.Service, error) {
	client, err := c.NewAPIClient(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := checkpoints.NewService(checkpoints.ServiceConfig{Client: client, Logger: c.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	return svc, nil
}

type CheckpointCreateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sprite  string
	comment string
}

// NewCheckpointCreateCommand returns the checkpoint create command.
func NewCheckpointCreateCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *CheckpointCreateCommand {
	c := &CheckpointCreateCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("create", "Checkpoint a sprite.")
	c.Cmd.Arg("sprite", "Sprite name.").Required().StringVar(&c.sprite)
	c.Cmd.Flag("comment", "Checkpoint comment.").Short('m').StringVar(&c.comment)

	return c
}

func (c CheckpointCreateCommand) Name() string { return c.Cmd.FullCommand() }

func (c CheckpointCreateCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newCheckpointsService(ctx)
	if err != nil {
		return err
	}

	events, err := svc.Create(ctx, c.sprite, c.comment)
	if err != nil {
		return fmt.Errorf("could not create checkpoint: %w", err)
	}

	return c.rootCmd.Printer().PrintEvents(events)
}

type CheckpointListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sprite string
}

// NewCheckpointListCommand returns the checkpoint list command.
func NewCheckpointListCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *CheckpointListCommand {
	c := &CheckpointListCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("list", "List the checkpoints of a sprite.").Alias("ls")
	c.Cmd.Arg("sprite", "Sprite name.").Required().StringVar(&c.sprite)

	return c
}

func (c CheckpointListCommand) Name() string { return c.Cmd.FullCommand() }

func (c CheckpointListCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newCheckpointsService(ctx)
	if err != nil {
		return err
	}

	cps, err := svc.List(ctx, c.sprite)
	if err != nil {
		return fmt.Errorf("could not list checkpoints: %w", err)
	}

	return c.rootCmd.Printer().PrintCheckpoints(cps)
}

type CheckpointGetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sprite string
	id     string
}

// NewCheckpointGetCommand returns the checkpoint get command.
func NewCheckpointGetCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *CheckpointGetCommand {
	c := &CheckpointGetCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("get", "Show a checkpoint.")
	c.Cmd.Arg("sprite", "Sprite name.").Required().StringVar(&c.sprite)
	c.Cmd.Arg("id", "Checkpoint ID.").Required().StringVar(&c.id)

	return c
}

func (c CheckpointGetCommand) Name() string { return c.Cmd.FullCommand() }

func (c CheckpointGetCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newCheckpointsService(ctx)
	if err != nil {
		return err
	}

	cp, err := svc.Get(ctx, c.sprite, c.id)
	if err != nil {
		return fmt.Errorf("could not get checkpoint: %w", err)
	}

	return c.rootCmd.Printer().PrintCheckpoint(*cp)
}

type CheckpointRestoreCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sprite string
	id     string
}

// NewCheckpointRestoreCommand returns the checkpoint restore command.
func NewCheckpointRestoreCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *CheckpointRestoreCommand {
	c := &CheckpointRestoreCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("restore", "Restore a sprite to a checkpoint.")
	c.Cmd.Arg("sprite", "Sprite name.").Required().StringVar(&c.sprite)
	c.Cmd.Arg("id", "Checkpoint ID.").Required().StringVar(&c.id)

	return c
}

func (c CheckpointRestoreCommand) Name() string { return c.Cmd.FullCommand() }

func (c CheckpointRestoreCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newCheckpointsService(ctx)
	if err != nil {
		return err
	}

	events, err := svc.Restore(ctx, c.sprite, c.id)
	if err != nil {
		return fmt.Errorf("could not restore checkpoint: %w", err)
	}

	return c.rootCmd.Printer().PrintEvents(events)
}
