// Package session implements an exec session over a single WebSocket
// connection.
package session

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/slok/sprites/internal/log"
	"github.com/slok/sprites/internal/model"
	"github.com/slok/sprites/internal/protocol"
)

// Conn is the connection a session owns. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Config is the configuration of a Session.
type Config struct {
	Conn Conn
	// TTY is the mode of the remote process, can't change for the session lifetime.
	TTY    bool
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Conn == nil {
		return fmt.Errorf("conn is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "session.Session"})

	return nil
}

// Session is a single remote process execution. Observers are registered with
// OnStdout, OnStderr and OnExit and fired by ReadLoop in the order data was
// received. Writes and reads are safe to be used concurrently.
type Session struct {
	conn   Conn
	tty    bool
	logger log.Logger

	writeMu sync.Mutex

	obsMu     sync.RWMutex
	observers map[protocol.Kind][]func(protocol.Frame)

	exitMu   sync.Mutex
	exitCode int
	exited   bool
	done     chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New returns a new session that owns the connection.
func New(cfg Config) (*Session, error) {
	err := cfg.defaults()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w: %w", err, model.ErrNotValid)
	}

	return &Session{
		conn:      cfg.Conn,
		tty:       cfg.TTY,
		logger:    cfg.Logger,
		observers: map[protocol.Kind][]func(protocol.Frame){},
		done:      make(chan struct{}),
	}, nil
}

// TTY returns true if the session is in TTY mode.
func (s *Session) TTY() bool { return s.tty }

// OnStdout registers an observer for stdout data. In TTY mode all the remote
// output is received as stdout.
func (s *Session) OnStdout(fn func(data []byte)) {
	s.on(protocol.KindStdout, func(f protocol.Frame) { fn(f.Data) })
}

// OnStderr registers an observer for stderr data.
func (s *Session) OnStderr(fn func(data []byte)) {
	s.on(protocol.KindStderr, func(f protocol.Frame) { fn(f.Data) })
}

// OnExit registers an observer for the remote process exit.
func (s *Session) OnExit(fn func(code int)) {
	s.on(protocol.KindExit, func(f protocol.Frame) { fn(f.ExitCode) })
}

func (s *Session) on(kind protocol.Kind, fn func(protocol.Frame)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers[kind] = append(s.observers[kind], fn)
}

// Write sends stdin data to the remote process.
func (s *Session) Write(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	err := s.send(protocol.EncodeStdin(data, s.tty))
	if err != nil {
		return fmt.Errorf("could not write stdin: %w", err)
	}

	return nil
}

// SendEOF signals the remote process that stdin has been closed. TTY sessions
// can't represent a stdin close so it's a no-op on them.
func (s *Session) SendEOF() error {
	if s.tty {
		return nil
	}

	err := s.send(protocol.EncodeEOF())
	if err != nil {
		return fmt.Errorf("could not send stdin EOF: %w", err)
	}

	return nil
}

func (s *Session) send(msg []byte) error {
	if s.closed.Load() {
		return model.ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.conn.WriteMessage(websocket.BinaryMessage, msg)
}

// Close closes the underlying connection, unblocking ReadLoop. Safe to call
// multiple times.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.conn.Close()
	})

	return s.closeErr
}

// ExitCode returns the remote process exit code, false if it didn't exit yet.
func (s *Session) ExitCode() (int, bool) {
	s.exitMu.Lock()
	defer s.exitMu.Unlock()
	return s.exitCode, s.exited
}

// Exited returns a channel that is closed once the exit code is recorded.
func (s *Session) Exited() <-chan struct{} { return s.done }

// ReadLoop consumes the inbound messages dispatching them to the registered
// observers. It returns when the remote closes the connection, the session
// is closed or an exit has been received. Once the exit is recorded no more
// messages are processed.
func (s *Session) ReadLoop() error {
	for {
		if _, ok := s.ExitCode(); ok {
			return nil
		}

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if s.isNormalClose(err) {
				s.logger.Debugf("connection closed")
				return nil
			}
			return fmt.Errorf("could not read message: %w", err)
		}

		frame, err := protocol.Decode(msg, s.tty)
		if err != nil {
			return fmt.Errorf("could not decode message: %w", err)
		}

		switch frame.Kind {
		case protocol.KindNone:
			continue
		case protocol.KindExit:
			if !s.setExit(frame.ExitCode) {
				s.logger.Warningf("ignoring duplicated exit with code %d", frame.ExitCode)
				return nil
			}
			s.logger.Debugf("remote process exited with code %d", frame.ExitCode)
			s.dispatch(frame)
			return nil
		default:
			s.dispatch(frame)
		}
	}
}

func (s *Session) isNormalClose(err error) bool {
	if s.closed.Load() {
		return true
	}

	if errors.Is(err, io.EOF) {
		return true
	}

	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func (s *Session) setExit(code int) bool {
	s.exitMu.Lock()
	defer s.exitMu.Unlock()

	if s.exited {
		return false
	}
	s.exitCode = code
	s.exited = true
	close(s.done)

	return true
}

func (s *Session) dispatch(f protocol.Frame) {
	s.obsMu.RLock()
	obs := make([]func(protocol.Frame), len(s.observers[f.Kind]))
	copy(obs, s.observers[f.Kind])
	s.obsMu.RUnlock()

	for _, fn := range obs {
		fn(f)
	}
}
