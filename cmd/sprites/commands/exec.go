package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sprites/internal/app/exec"
	"github.com/slok/sprites/internal/model"
	"github.com/slok/sprites/internal/terminal"
	utilsenv "github.com/slok/sprites/internal/utils/env"
)

func (c *RootCommand) newExecService(ctx context.Context) (*exec.Service, error) {
	client, err := c.NewAPIClient(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := exec.NewService(exec.ServiceConfig{Client: client, Logger: c.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	return svc, nil
}

// newDriver returns a terminal driver bound to the command standard streams.
func (c *RootCommand) newDriver() (*terminal.Driver, error) {
	d, err := terminal.NewDriver(terminal.DriverConfig{
		Input:  c.Stdin,
		Output: c.Stdout,
		Logger: c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create terminal driver: %w", err)
	}
	return d, nil
}

// stdinFile returns the command standard input as a file when it is one.
func (c *RootCommand) stdinFile() *os.File {
	f, _ := c.Stdin.(*os.File)
	return f
}

func exitResult(code int) error {
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

type ExecCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sprite     string
	command    []string
	workingDir string
	envSpecs   []string
	tty        bool
}

// NewExecCommand returns the exec command.
func NewExecCommand(rootCmd *RootCommand, app *kingpin.Application) *ExecCommand {
	c := &ExecCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("exec", "Execute a command in a sprite.")
	c.Cmd.Arg("sprite", "Sprite name.").Required().StringVar(&c.sprite)
	c.Cmd.Arg("command", "Command to execute (use -- before command).").Required().StringsVar(&c.command)
	c.Cmd.Flag("workdir", "Working directory for command execution.").Short('w').StringVar(&c.workingDir)
	c.Cmd.Flag("env", "Environment variables (KEY=VALUE or KEY from current environment). Can be repeated.").Short('e').StringsVar(&c.envSpecs)
	c.Cmd.Flag("tty", "Allocate a pseudo-TTY.").Short('t').BoolVar(&c.tty)

	return c
}

func (c ExecCommand) Name() string { return c.Cmd.FullCommand() }

func (c ExecCommand) Run(ctx context.Context) error {
	cmdEnv, err := utilsenv.ParseSpecs(c.envSpecs)
	if err != nil {
		return fmt.Errorf("invalid --env value: %w", err)
	}

	svc, err := c.rootCmd.newExecService(ctx)
	if err != nil {
		return err
	}

	opts := model.ExecOpts{
		WorkingDir: c.workingDir,
		Env:        cmdEnv,
	}

	if c.tty {
		driver, err := c.rootCmd.newDriver()
		if err != nil {
			return err
		}

		opts.Cols, opts.Rows = terminal.Size(c.rootCmd.stdinFile())
		code, err := svc.Interactive(ctx, exec.InteractiveRequest{
			Sprite:  c.sprite,
			Command: c.command,
			Opts:    opts,
			Driver:  driver,
		})
		if err != nil {
			return fmt.Errorf("could not execute command: %w", err)
		}
		return exitResult(code)
	}

	// Only forward piped input, a terminal would keep the remote stdin open.
	var stdin io.Reader
	if f := c.rootCmd.stdinFile(); f == nil || !terminal.IsTerminal(f) {
		stdin = c.rootCmd.Stdin
	}
	opts.Stdin = stdin
	opts.Stdout = c.rootCmd.Stdout
	opts.Stderr = c.rootCmd.Stderr

	res, err := svc.Run(ctx, exec.RunRequest{
		Sprite:  c.sprite,
		Command: c.command,
		Opts:    opts,
	})
	if err != nil {
		return fmt.Errorf("could not execute command: %w", err)
	}

	return exitResult(res.ExitCode)
}

type ConsoleCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sprite     string
	command    []string
	workingDir string
}

// NewConsoleCommand returns the console command.
func NewConsoleCommand(rootCmd *RootCommand, app *kingpin.Application) *ConsoleCommand {
	c := &ConsoleCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("console", "Open an interactive shell in a sprite.").Alias("shell")
	c.Cmd.Arg("sprite", "Sprite name.").Required().StringVar(&c.sprite)
	c.Cmd.Arg("command", "Shell to run.").Default("bash").StringsVar(&c.command)
	c.Cmd.Flag("workdir", "Working directory for the shell.").Short('w').StringVar(&c.workingDir)

	return c
}

func (c ConsoleCommand) Name() string { return c.Cmd.FullCommand() }

func (c ConsoleCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newExecService(ctx)
	if err != nil {
		return err
	}

	driver, err := c.rootCmd.newDriver()
	if err != nil {
		return err
	}

	cols, rows := terminal.Size(c.rootCmd.stdinFile())
	code, err := svc.Interactive(ctx, exec.InteractiveRequest{
		Sprite:  c.sprite,
		Command: c.command,
		Opts:    model.ExecOpts{WorkingDir: c.workingDir, Cols: cols, Rows: rows},
		Driver:  driver,
	})
	if err != nil {
		return fmt.Errorf("console failed: %w", err)
	}

	return exitResult(code)
}

type AttachCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sprite string
	id     int
}

// NewAttachCommand returns the attach command.
func NewAttachCommand(rootCmd *RootCommand, app *kingpin.Application) *AttachCommand {
	c := &AttachCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("attach", "Attach the terminal to a running exec session.")
	c.Cmd.Arg("sprite", "Sprite name.").Required().StringVar(&c.sprite)
	c.Cmd.Arg("session-id", "Exec session ID.").Required().IntVar(&c.id)

	return c
}

func (c AttachCommand) Name() string { return c.Cmd.FullCommand() }

func (c AttachCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newExecService(ctx)
	if err != nil {
		return err
	}

	info, err := svc.GetSession(ctx, c.sprite, c.id)
	if err != nil {
		return fmt.Errorf("could not get exec session: %w", err)
	}

	driver, err := c.rootCmd.newDriver()
	if err != nil {
		return err
	}

	code, err := svc.Attach(ctx, exec.AttachRequest{
		Sprite:    c.sprite,
		SessionID: c.id,
		TTY:       info.TTY,
		Driver:    driver,
	})
	if err != nil {
		return fmt.Errorf("could not attach to session: %w", err)
	}

	return exitResult(code)
}

type SessionsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sprite string
}

// NewSessionsCommand returns the sessions command.
func NewSessionsCommand(rootCmd *RootCommand, app *kingpin.Application) *SessionsCommand {
	c := &SessionsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("sessions", "List the exec sessions of a sprite.")
	c.Cmd.Arg("sprite", "Sprite name.").Required().StringVar(&c.sprite)

	return c
}

func (c SessionsCommand) Name() string { return c.Cmd.FullCommand() }

func (c SessionsCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newExecService(ctx)
	if err != nil {
		return err
	}

	ss, err := svc.List(ctx, c.sprite)
	if err != nil {
		return fmt.Errorf("could not list exec sessions: %w", err)
	}

	return c.rootCmd.Printer().PrintExecSessions(ss)
}

type KillCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sprite string
	id     int
	signal string
}

// NewKillCommand returns the kill command.
func NewKillCommand(rootCmd *RootCommand, app *kingpin.Application) *KillCommand {
	c := &KillCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("kill", "Kill an exec session.")
	c.Cmd.Arg("sprite", "Sprite name.").Required().StringVar(&c.sprite)
	c.Cmd.Arg("session-id", "Exec session ID.").Required().IntVar(&c.id)
	c.Cmd.Flag("signal", "Signal to send (e.g. SIGKILL), the server default is used when empty.").Short('s').StringVar(&c.signal)

	return c
}

func (c KillCommand) Name() string { return c.Cmd.FullCommand() }

func (c KillCommand) Run(ctx context.Context) error {
	svc, err := c.rootCmd.newExecService(ctx)
	if err != nil {
		return err
	}

	events, err := svc.Kill(ctx, c.sprite, c.id, model.KillOpts{Signal: c.signal})
	if err != nil {
		return fmt.Errorf("could not kill exec session: %w", err)
	}

	return c.rootCmd.Printer().PrintEvents(events)
}
