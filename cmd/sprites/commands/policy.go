package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sprites/internal/app/policies"
)

func (c *RootCommand) newPoliciesService(ctx context.Context) (*policies.Service, error) {
	client, err := c.NewAPIClient(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := policies.NewService(policies.ServiceConfig{Client: client, Logger: c.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	return svc, nil
}

type PolicyGetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sprite string
}

// NewPolicyGetCommand returns the policy get command.
func NewPolicyGetCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *PolicyGetCommand {
	c := &PolicyGetCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("get", "Show the network policy of a sprite.")
	c.Cmd.Arg("sprite", "Sprite name.").Required().StringVar(&c.sprite)

	return c
}

func (c PolicyGetCommand) Name() string { return c.Cmd.FullCommand() }

func (c PolicyGetCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newPoliciesService(ctx)
	if err != nil {
		return err
	}

	p, err := svc.Get(ctx, c.sprite)
	if err != nil {
		return fmt.Errorf("could not get policy: %w", err)
	}

	return c.rootCmd.Printer().PrintPolicy(*p)
}

type PolicySetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sprite string
	file   string
}

// NewPolicySetCommand returns the policy set command.
func NewPolicySetCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *PolicySetCommand {
	c := &PolicySetCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("set", "Replace the network policy of a sprite.")
	c.Cmd.Arg("sprite", "Sprite name.").Required().StringVar(&c.sprite)
	c.Cmd.Flag("file", "JSON policy file, comments and trailing commas are allowed.").Short('f').Required().StringVar(&c.file)

	return c
}

func (c PolicySetCommand) Name() string { return c.Cmd.FullCommand() }

func (c PolicySetCommand) Run(ctx context.Context) error {
	absPath, err := filepath.Abs(c.file)
	if err != nil {
		return fmt.Errorf("could not resolve policy file path: %w", err)
	}

	p, err := policies.LoadFile(os.DirFS("/"), absPath[1:])
	if err != nil {
		return fmt.Errorf("could not load policy: %w", err)
	}

	svc, err := c.rootCmd.newPoliciesService(ctx)
	if err != nil {
		return err
	}

	updated, err := svc.Update(ctx, c.sprite, p)
	if err != nil {
		return fmt.Errorf("could not update policy: %w", err)
	}

	return c.rootCmd.Printer().PrintPolicy(*updated)
}

type PolicyCheckCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sprite string
	domain string
}

// NewPolicyCheckCommand returns the policy check command.
func NewPolicyCheckCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *PolicyCheckCommand {
	c := &PolicyCheckCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("check", "Check if a sprite can reach a domain.")
	c.Cmd.Arg("sprite", "Sprite name.").Required().StringVar(&c.sprite)
	c.Cmd.Arg("domain", "Domain.").Required().StringVar(&c.domain)

	return c
}

func (c PolicyCheckCommand) Name() string { return c.Cmd.FullCommand() }

func (c PolicyCheckCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newPoliciesService(ctx)
	if err != nil {
		return err
	}

	res, err := svc.Check(ctx, c.sprite, c.domain)
	if err != nil {
		return fmt.Errorf("could not check policy: %w", err)
	}

	return c.rootCmd.Printer().PrintPolicyCheck(*res)
}
