package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sprites/internal/app/sprites"
	"github.com/slok/sprites/internal/model"
)

func (c *RootCommand) newSpritesService(ctx context.Context) (*sprites.Service, error) {
	client, err := c.NewAPIClient(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := sprites.NewService(sprites.ServiceConfig{Client: client, Logger: c.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	return svc, nil
}

type ListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	prefix string
}

// NewListCommand returns the list command.
func NewListCommand(rootCmd *RootCommand, app *kingpin.Application) *ListCommand {
	c := &ListCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("list", "List sprites.").Alias("ls")
	c.Cmd.Flag("prefix", "Only list sprites with this name prefix.").StringVar(&c.prefix)

	return c
}

func (c ListCommand) Name() string { return c.Cmd.FullCommand() }

func (c ListCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newSpritesService(ctx)
	if err != nil {
		return err
	}

	ss, err := svc.ListAll(ctx, c.prefix)
	if err != nil {
		return fmt.Errorf("could not list sprites: %w", err)
	}

	return c.rootCmd.Printer().PrintSprites(ss)
}

type GetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name string
}

// NewGetCommand returns the get command.
func NewGetCommand(rootCmd *RootCommand, app *kingpin.Application) *GetCommand {
	c := &GetCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("get", "Show a sprite.")
	c.Cmd.Arg("name", "Sprite name.").Required().StringVar(&c.name)

	return c
}

func (c GetCommand) Name() string { return c.Cmd.FullCommand() }

func (c GetCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newSpritesService(ctx)
	if err != nil {
		return err
	}

	sp, err := svc.Get(ctx, c.name)
	if err != nil {
		return fmt.Errorf("could not get sprite: %w", err)
	}

	return c.rootCmd.Printer().PrintSprite(*sp)
}

type CreateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name    string
	wait    bool
	timeout time.Duration
}

// NewCreateCommand returns the create command.
func NewCreateCommand(rootCmd *RootCommand, app *kingpin.Application) *CreateCommand {
	c := &CreateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("create", "Create a sprite.")
	c.Cmd.Arg("name", "Sprite name.").Required().StringVar(&c.name)
	c.Cmd.Flag("wait", "Wait until the sprite is warm.").BoolVar(&c.wait)
	c.Cmd.Flag("timeout", "Maximum time to wait for the sprite.").Default(sprites.DefaultWaitTimeout.String()).DurationVar(&c.timeout)

	return c
}

func (c CreateCommand) Name() string { return c.Cmd.FullCommand() }

func (c CreateCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newSpritesService(ctx)
	if err != nil {
		return err
	}

	sp, err := svc.Create(ctx, sprites.CreateRequest{Name: c.name, Wait: c.wait, WaitTimeout: c.timeout})
	if err != nil {
		return fmt.Errorf("could not create sprite: %w", err)
	}

	return c.rootCmd.Printer().PrintSprite(*sp)
}

type WaitCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name    string
	timeout time.Duration
}

// NewWaitCommand returns the wait command.
func NewWaitCommand(rootCmd *RootCommand, app *kingpin.Application) *WaitCommand {
	c := &WaitCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("wait", "Wait until a sprite is warm.")
	c.Cmd.Arg("name", "Sprite name.").Required().StringVar(&c.name)
	c.Cmd.Flag("timeout", "Maximum time to wait.").Default(sprites.DefaultWaitTimeout.String()).DurationVar(&c.timeout)

	return c
}

func (c WaitCommand) Name() string { return c.Cmd.FullCommand() }

func (c WaitCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newSpritesService(ctx)
	if err != nil {
		return err
	}

	sp, err := svc.WaitUntilWarm(ctx, c.name, c.timeout)
	if err != nil {
		return fmt.Errorf("sprite is not warm: %w", err)
	}

	return c.rootCmd.Printer().PrintSprite(*sp)
}

type UpdateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name    string
	urlAuth string
}

// NewUpdateCommand returns the update command.
func NewUpdateCommand(rootCmd *RootCommand, app *kingpin.Application) *UpdateCommand {
	c := &UpdateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("update", "Update a sprite.")
	c.Cmd.Arg("name", "Sprite name.").Required().StringVar(&c.name)
	c.Cmd.Flag("url-auth", "Public URL authentication.").Required().EnumVar(&c.urlAuth, string(model.URLAuthSprite), string(model.URLAuthPublic))

	return c
}

func (c UpdateCommand) Name() string { return c.Cmd.FullCommand() }

func (c UpdateCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newSpritesService(ctx)
	if err != nil {
		return err
	}

	sp, err := svc.Update(ctx, c.name, model.SpriteUpdate{
		URLSettings: &model.URLSettings{Auth: model.URLAuth(c.urlAuth)},
	})
	if err != nil {
		return fmt.Errorf("could not update sprite: %w", err)
	}

	return c.rootCmd.Printer().PrintSprite(*sp)
}

type RemoveCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	names []string
}

// NewRemoveCommand returns the rm command.
func NewRemoveCommand(rootCmd *RootCommand, app *kingpin.Application) *RemoveCommand {
	c := &RemoveCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("rm", "Delete sprites.")
	c.Cmd.Arg("names", "Sprite names.").Required().StringsVar(&c.names)

	return c
}

func (c RemoveCommand) Name() string { return c.Cmd.FullCommand() }

func (c RemoveCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newSpritesService(ctx)
	if err != nil {
		return err
	}

	for _, name := range c.names {
		if err := svc.Delete(ctx, name); err != nil {
			return fmt.Errorf("could not delete sprite %q: %w", name, err)
		}
		if err := c.rootCmd.Printer().PrintMessage(fmt.Sprintf("Sprite %s deleted", name)); err != nil {
			return err
		}
	}

	return nil
}
