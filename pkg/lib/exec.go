package lib

import (
	"context"
	"fmt"
	"io"
	"os"

	appexec "github.com/slok/sprites/internal/app/exec"
	"github.com/slok/sprites/internal/log"
	"github.com/slok/sprites/internal/terminal"
)

// Exec are the command execution operations.
type Exec struct {
	svc    *appexec.Service
	logger log.Logger
}

// Create runs a command to completion over HTTP and returns its combined
// output. Use [Exec.Run] for separated streams and stdin.
func (e *Exec) Create(ctx context.Context, sprite, command string) (*ExecOutput, error) {
	out, err := e.svc.Create(ctx, sprite, command)
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// List returns the exec sessions of a sprite.
func (e *Exec) List(ctx context.Context, sprite string) ([]ExecSessionInfo, error) {
	sessions, err := e.svc.List(ctx, sprite)
	if err != nil {
		return nil, mapError(err)
	}
	return sessions, nil
}

// Kill signals an exec session and returns the streamed events. Pass nil
// opts to use the server default signal.
func (e *Exec) Kill(ctx context.Context, sprite string, id int, opts *KillOpts) ([]StreamEvent, error) {
	var o KillOpts
	if opts != nil {
		o = *opts
	}

	events, err := e.svc.Kill(ctx, sprite, id, o)
	if err != nil {
		return nil, mapError(err)
	}
	return events, nil
}

// Run runs a command over an exec session and blocks until it exits.
//
// The output is accumulated on the result and streamed to opts.Stdout and
// opts.Stderr when set. A session that ends without an exit status returns
// [ErrProtocol].
func (e *Exec) Run(ctx context.Context, sprite string, command []string, opts *ExecOpts) (*ExecResult, error) {
	var o ExecOpts
	if opts != nil {
		o = *opts
	}

	res, err := e.svc.Run(ctx, appexec.RunRequest{Sprite: sprite, Command: command, Opts: o})
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

// Connect opens an exec session running the command, and runs the handler
// with it until the remote process exits, the connection closes or the
// context is done. Observers registered on the handler Setup never miss
// output.
func (e *Exec) Connect(ctx context.Context, sprite string, command []string, opts *ExecOpts, h SessionHandler) (*Session, error) {
	var o ExecOpts
	if opts != nil {
		o = *opts
	}

	sess, err := e.svc.Connect(ctx, appexec.ConnectRequest{
		Sprite:  sprite,
		Command: command,
		Opts:    o,
		Stdin:   true,
	}, h)
	if err != nil {
		return sess, mapError(err)
	}
	return sess, nil
}

// TerminalOpts configures the terminal bridged to an interactive session.
type TerminalOpts struct {
	WorkingDir string
	Env        map[string]string
	// Input is the terminal input, set in raw mode when it is a terminal.
	// Default: os.Stdin.
	Input io.Reader
	// Output receives the remote terminal output.
	// Default: os.Stdout.
	Output io.Writer
	// Cols and Rows are the terminal size, taken from Input when it is a
	// terminal and they are not set.
	Cols uint16
	Rows uint16
}

// Interactive runs a command with a TTY bridged to a local terminal and
// returns its exit code.
func (e *Exec) Interactive(ctx context.Context, sprite string, command []string, opts *TerminalOpts) (int, error) {
	var o TerminalOpts
	if opts != nil {
		o = *opts
	}

	d, cols, rows, err := e.newDriver(o)
	if err != nil {
		return 0, err
	}

	code, err := e.svc.Interactive(ctx, appexec.InteractiveRequest{
		Sprite:  sprite,
		Command: command,
		Opts: ExecOpts{
			WorkingDir: o.WorkingDir,
			Env:        o.Env,
			Cols:       cols,
			Rows:       rows,
		},
		Driver: d,
	})
	if err != nil {
		return 0, mapError(err)
	}
	return code, nil
}

// Attach bridges a local terminal to an existing exec session and returns
// its exit code.
func (e *Exec) Attach(ctx context.Context, sprite string, id int, opts *TerminalOpts) (int, error) {
	var o TerminalOpts
	if opts != nil {
		o = *opts
	}

	info, err := e.svc.GetSession(ctx, sprite, id)
	if err != nil {
		return 0, mapError(err)
	}

	d, _, _, err := e.newDriver(o)
	if err != nil {
		return 0, err
	}

	code, err := e.svc.Attach(ctx, appexec.AttachRequest{
		Sprite:    sprite,
		SessionID: id,
		TTY:       info.TTY,
		Driver:    d,
	})
	if err != nil {
		return 0, mapError(err)
	}
	return code, nil
}

func (e *Exec) newDriver(o TerminalOpts) (d *terminal.Driver, cols, rows uint16, err error) {
	if o.Input == nil {
		o.Input = os.Stdin
	}

	cols, rows = o.Cols, o.Rows
	if f, ok := o.Input.(*os.File); ok && (cols == 0 || rows == 0) {
		cols, rows = terminal.Size(f)
	}

	d, err = terminal.NewDriver(terminal.DriverConfig{
		Input:  o.Input,
		Output: o.Output,
		Logger: e.logger,
	})
	if err != nil {
		return nil, 0, 0, mapError(fmt.Errorf("could not create terminal driver: %w", err))
	}

	return d, cols, rows, nil
}
