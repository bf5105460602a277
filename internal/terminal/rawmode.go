package terminal

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// RawMode sets a terminal in raw mode (no line buffering, no echo).
type RawMode interface {
	// MakeRaw sets raw mode and returns the function that restores the
	// previous mode.
	MakeRaw() (restore func() error, err error)
}

// NoopRawMode doesn't change any terminal mode.
const NoopRawMode = noopRawMode(0)

type noopRawMode int

func (noopRawMode) MakeRaw() (func() error, error) { return func() error { return nil }, nil }

type fdRawMode struct {
	fd int
}

// NewRawMode returns the raw mode handler for a file, if the file is not a
// terminal it will be a noop.
func NewRawMode(f *os.File) RawMode {
	if f == nil || !IsTerminal(f) {
		return NoopRawMode
	}

	return fdRawMode{fd: int(f.Fd())}
}

func (r fdRawMode) MakeRaw() (func() error, error) {
	oldState, err := term.MakeRaw(r.fd)
	if err != nil {
		return nil, fmt.Errorf("could not set raw mode: %w", err)
	}

	return func() error {
		err := term.Restore(r.fd, oldState)
		if err != nil {
			return fmt.Errorf("could not restore terminal: %w", err)
		}
		return nil
	}, nil
}

// IsTerminal returns true if the file is a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

const (
	defaultCols uint16 = 80
	defaultRows uint16 = 24
)

// Size returns the terminal size of the file, if it can't be obtained it
// returns 80x24.
func Size(f *os.File) (cols, rows uint16) {
	if f == nil || !IsTerminal(f) {
		return defaultCols, defaultRows
	}

	c, r, err := term.GetSize(int(f.Fd()))
	if err != nil || c <= 0 || r <= 0 {
		return defaultCols, defaultRows
	}

	return uint16(c), uint16(r)
}
