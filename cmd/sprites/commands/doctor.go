package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sprites/internal/app/doctor"
	"github.com/slok/sprites/internal/model"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("doctor", "Check the client setup.")
	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	client, err := c.rootCmd.NewAPIClient(ctx)
	if err != nil {
		return err
	}

	svc, err := doctor.NewService(doctor.ServiceConfig{
		Client: client,
		Stdin:  c.rootCmd.stdinFile(),
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	results := svc.Check(ctx)
	if err := c.rootCmd.Printer().PrintChecks(results); err != nil {
		return err
	}

	_, _, errs := model.CountByStatus(results)
	if errs > 0 {
		return fmt.Errorf("%d checks failed", errs)
	}

	return nil
}
