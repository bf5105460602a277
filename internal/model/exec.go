package model

import (
	"fmt"
	"io"
	"time"
)

// ExecOpts contains options for executing a command in a sprite.
type ExecOpts struct {
	// WorkingDir is the directory to run the command in (optional).
	WorkingDir string
	// Env contains additional environment variables for this exec.
	Env map[string]string
	// Stdin is the input stream for the command (optional).
	Stdin io.Reader
	// Stdout receives output as it arrives (optional), it's also accumulated on the result.
	Stdout io.Writer
	// Stderr receives error output as it arrives (optional), it's also accumulated on the result.
	Stderr io.Writer
	// TTY allocates a pseudo-TTY for the command (useful for interactive shells).
	TTY bool
	// Cols and Rows set the initial terminal size when TTY is set.
	Cols uint16
	Rows uint16
}

// ExecResult contains the result of a blocking exec operation.
type ExecResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ExecOutput is the result of a one-shot, non-interactive exec request.
type ExecOutput struct {
	ExitCode int
	Output   string
}

// ExecSessionInfo describes an exec session running (or that ran) on a sprite.
type ExecSessionInfo struct {
	ID        int
	Command   string
	IsActive  bool
	TTY       bool
	Workdir   string
	CreatedAt *time.Time
}

// KillOpts are the options to kill an exec session.
type KillOpts struct {
	// Signal is the signal name (e.g. SIGTERM), empty uses the server default.
	Signal string
}

// ValidateCommand validates a command to be executed.
func ValidateCommand(command []string) error {
	if len(command) == 0 || command[0] == "" {
		return fmt.Errorf("command cannot be empty: %w", ErrNotValid)
	}
	return nil
}
