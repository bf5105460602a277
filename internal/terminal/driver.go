// Package terminal bridges a live terminal to a remote exec session.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/muesli/cancelreader"
	"github.com/oklog/run"

	"github.com/slok/sprites/internal/log"
	"github.com/slok/sprites/internal/model"
)

// Session is the exec session the driver bridges the terminal to.
type Session interface {
	OnStdout(fn func(data []byte))
	OnStderr(fn func(data []byte))
	OnExit(fn func(code int))
	Write(data []byte) error
	SendEOF() error
}

// DriverConfig is the configuration of the Driver.
type DriverConfig struct {
	// Input must be a file (a terminal or a pipe) or finite, other readers
	// can't be interrupted while blocked on a read.
	Input   io.Reader
	Output  io.Writer
	RawMode RawMode
	Logger  log.Logger
}

func (c *DriverConfig) defaults() error {
	if c.Input == nil {
		c.Input = os.Stdin
	}

	if c.Output == nil {
		c.Output = os.Stdout
	}

	if c.RawMode == nil {
		f, _ := c.Input.(*os.File)
		c.RawMode = NewRawMode(f)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "terminal.Driver"})

	return nil
}

// Driver bridges a terminal input and output with an exec session.
type Driver struct {
	input   io.Reader
	output  io.Writer
	rawMode RawMode
	logger  log.Logger
}

// NewDriver returns a new terminal driver.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	err := cfg.defaults()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w: %w", err, model.ErrNotValid)
	}

	return &Driver{
		input:   cfg.Input,
		output:  cfg.Output,
		rawMode: cfg.RawMode,
		logger:  cfg.Logger,
	}, nil
}

// Bind registers the terminal output and the exit observers on the session.
// It must be called before the session messages start to be consumed, so no
// output is lost.
func (d *Driver) Bind(s Session) *Bridge {
	b := &Bridge{
		driver: d,
		sess:   s,
		exited: make(chan struct{}),
	}

	write := d.outputWriter()
	s.OnStdout(write)
	s.OnStderr(write)
	s.OnExit(func(int) { b.exitOnce.Do(func() { close(b.exited) }) })

	return b
}

// Run binds the session and runs the bridge, only safe when the session read
// loop has not started yet.
func (d *Driver) Run(ctx context.Context, s Session) error {
	return d.Bind(s).Run(ctx)
}

// Bridge is a terminal bound to a session.
type Bridge struct {
	driver   *Driver
	sess     Session
	exited   chan struct{}
	exitOnce sync.Once
}

// Run sets the terminal in raw mode and forwards the terminal input to the
// session. It returns when the remote process exits or the context is done.
// The input being closed stops the forwarding but not the output. The
// terminal is always restored.
//
// Run doesn't consume the session messages, the session read loop must be
// running concurrently.
func (b *Bridge) Run(ctx context.Context) error {
	d := b.driver

	restore, err := d.rawMode.MakeRaw()
	if err != nil {
		return fmt.Errorf("could not set terminal raw mode: %w", err)
	}
	defer func() {
		if err := restore(); err != nil {
			d.logger.Warningf("could not restore terminal: %s", err)
		}
	}()

	in, err := d.newInputReader()
	if err != nil {
		return fmt.Errorf("could not create input reader: %w", err)
	}
	defer in.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group

	// Input forwarding.
	g.Add(
		func() error {
			err := d.forward(in, b.sess)
			if err != nil {
				return err
			}
			// Input closed, keep the output until the process ends.
			<-ctx.Done()
			return nil
		},
		func(_ error) {
			cancel()
			in.Cancel()
		},
	)

	// Remote process lifecycle.
	g.Add(
		func() error {
			select {
			case <-b.exited:
				d.logger.Debugf("remote process exited, stopping input")
			case <-ctx.Done():
			}
			return nil
		},
		func(_ error) {
			cancel()
		},
	)

	return g.Run()
}

// newInputReader returns a cancellable input reader. Files that can't be
// polled (e.g regular files) fall back to a reader that is only cancelled
// on the next read.
func (d *Driver) newInputReader() (cancelreader.CancelReader, error) {
	in, err := cancelreader.NewReader(d.input)
	if err == nil {
		return in, nil
	}

	d.logger.Debugf("input can't be polled, using fallback reader: %s", err)
	return cancelreader.NewReader(struct{ io.Reader }{d.input})
}

const inputBufferSize = 1024

func (d *Driver) forward(in io.Reader, s Session) error {
	// In raw mode reads return as soon as a key is pressed.
	buf := make([]byte, inputBufferSize)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			werr := s.Write(buf[:n])
			if werr != nil {
				if errors.Is(werr, model.ErrClosed) {
					return nil
				}
				return fmt.Errorf("could not forward input: %w", werr)
			}
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, cancelreader.ErrCanceled):
			return nil
		case errors.Is(err, io.EOF), errors.Is(err, os.ErrClosed), errors.Is(err, io.ErrClosedPipe):
			d.logger.Debugf("input closed")
			if err := s.SendEOF(); err != nil && !errors.Is(err, model.ErrClosed) {
				d.logger.Warningf("could not send stdin EOF: %s", err)
			}
			return nil
		default:
			return fmt.Errorf("could not read input: %w", err)
		}
	}
}

type flusher interface {
	Flush() error
}

func (d *Driver) outputWriter() func([]byte) {
	f, canFlush := d.output.(flusher)
	return func(data []byte) {
		if _, err := d.output.Write(data); err != nil {
			d.logger.Warningf("could not write output: %s", err)
			return
		}
		if canFlush {
			if err := f.Flush(); err != nil {
				d.logger.Warningf("could not flush output: %s", err)
			}
		}
	}
}
