package exec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/oklog/run"

	"github.com/slok/sprites/internal/log"
	"github.com/slok/sprites/internal/model"
	"github.com/slok/sprites/internal/session"
	"github.com/slok/sprites/internal/terminal"
)

// ConnectRequest is the request to open an exec session.
type ConnectRequest struct {
	Sprite string
	// Command to run, ignored when SessionID is set.
	Command []string
	// SessionID attaches to an existing session.
	SessionID *int
	Opts      model.ExecOpts
	// Stdin tells the server the client will send stdin data.
	Stdin bool
}

// SessionHandler is the caller logic that runs together with the session
// read loop.
type SessionHandler struct {
	// Setup is called before any message is consumed, observers registered
	// here never miss output.
	Setup func(s *session.Session)
	// Run writes to the session. Returning nil doesn't end the session, it
	// ends when the remote process exits, the connection closes or the
	// context is done.
	Run func(ctx context.Context, s *session.Session) error
}

// Connect opens an exec session and runs the handler concurrently with the
// session read loop until both are done. The returned session is closed and
// has the exit code if the remote process exited.
func (s *Service) Connect(ctx context.Context, req ConnectRequest, h SessionHandler) (*session.Session, error) {
	u, err := BuildURL(s.client.WebsocketURL(), req.Sprite, URLOpts{
		Command:    req.Command,
		SessionID:  req.SessionID,
		TTY:        req.Opts.TTY,
		Stdin:      req.Stdin,
		Cols:       req.Opts.Cols,
		Rows:       req.Opts.Rows,
		WorkingDir: req.Opts.WorkingDir,
		Env:        req.Opts.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid exec request: %w", err)
	}

	conn, err := s.dialer.Dial(ctx, u, s.client.AuthHeaders())
	if err != nil {
		return nil, fmt.Errorf("could not connect to sprite %q: %w", req.Sprite, err)
	}

	sess, err := session.New(session.Config{
		Conn:   conn,
		TTY:    req.Opts.TTY,
		Logger: s.logger.WithValues(log.Kv{"sprite": req.Sprite}),
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("could not create session: %w", err)
	}
	defer sess.Close()

	start := time.Now()
	s.metrics.AddActiveExecSession(ctx, req.Opts.TTY, 1)
	defer func() {
		s.metrics.AddActiveExecSession(ctx, req.Opts.TTY, -1)
		s.metrics.ObserveExecSession(ctx, req.Opts.TTY, time.Since(start))
	}()
	s.logger.Debugf("exec session connected to sprite %s", req.Sprite)

	if h.Setup != nil {
		h.Setup(sess)
	}

	hctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group

	// Session read loop.
	g.Add(
		func() error {
			return sess.ReadLoop()
		},
		func(_ error) {
			_ = sess.Close()
		},
	)

	// Caller logic.
	g.Add(
		func() error {
			if h.Run != nil {
				if err := h.Run(hctx, sess); err != nil {
					return err
				}
			}
			<-hctx.Done()
			return nil
		},
		func(_ error) {
			cancel()
		},
	)

	if err := g.Run(); err != nil {
		return sess, err
	}

	if err := ctx.Err(); err != nil {
		return sess, err
	}

	return sess, nil
}

// RunRequest is the request to run a command to completion.
type RunRequest struct {
	Sprite  string
	Command []string
	Opts    model.ExecOpts
}

// Run runs a command on a sprite, streaming its output to the optional
// writers of the options and returning it accumulated with the exit code.
func (s *Service) Run(ctx context.Context, req RunRequest) (*model.ExecResult, error) {
	if err := model.ValidateCommand(req.Command); err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	setup := func(sess *session.Session) {
		sess.OnStdout(s.tee(&stdout, req.Opts.Stdout))
		sess.OnStderr(s.tee(&stderr, req.Opts.Stderr))
	}

	hasStdin := req.Opts.Stdin != nil
	runFn := func(_ context.Context, sess *session.Session) error {
		if !hasStdin {
			// A broken connection is reported by the read loop.
			if err := sess.SendEOF(); err != nil {
				s.logger.Debugf("could not send stdin EOF: %s", err)
			}
			return nil
		}

		// Readers can't be interrupted, the pump outlives the session if
		// stdin never ends, later writes fail with a closed error.
		go func() {
			if _, err := io.Copy(sessionWriter{sess}, req.Opts.Stdin); err != nil {
				s.logger.Debugf("stdin forwarding stopped: %s", err)
				return
			}
			if err := sess.SendEOF(); err != nil {
				s.logger.Debugf("could not send stdin EOF: %s", err)
			}
		}()

		return nil
	}

	sess, err := s.Connect(ctx, ConnectRequest{
		Sprite:  req.Sprite,
		Command: req.Command,
		Opts:    req.Opts,
		Stdin:   hasStdin,
	}, SessionHandler{Setup: setup, Run: runFn})
	if err != nil {
		return nil, err
	}

	code, ok := sess.ExitCode()
	if !ok {
		return nil, fmt.Errorf("session closed without exit status: %w", model.ErrProtocol)
	}

	return &model.ExecResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: code,
	}, nil
}

// InteractiveRequest is the request to run a command bridged to a terminal.
type InteractiveRequest struct {
	Sprite  string
	Command []string
	Opts    model.ExecOpts
	Driver  *terminal.Driver
}

// Interactive runs a command in TTY mode bridged to the driver terminal and
// returns the remote exit code.
func (s *Service) Interactive(ctx context.Context, req InteractiveRequest) (int, error) {
	if err := model.ValidateCommand(req.Command); err != nil {
		return 0, err
	}

	opts := req.Opts
	opts.TTY = true

	return s.drive(ctx, ConnectRequest{
		Sprite:  req.Sprite,
		Command: req.Command,
		Opts:    opts,
		Stdin:   true,
	}, req.Driver)
}

// AttachRequest is the request to attach a terminal to an existing session.
type AttachRequest struct {
	Sprite    string
	SessionID int
	// TTY must match the mode of the session being attached.
	TTY    bool
	Driver *terminal.Driver
}

// Attach bridges the driver terminal to an existing exec session and returns
// the remote exit code.
func (s *Service) Attach(ctx context.Context, req AttachRequest) (int, error) {
	id := req.SessionID
	return s.drive(ctx, ConnectRequest{
		Sprite:    req.Sprite,
		SessionID: &id,
		Opts:      model.ExecOpts{TTY: req.TTY},
		Stdin:     true,
	}, req.Driver)
}

func (s *Service) drive(ctx context.Context, req ConnectRequest, d *terminal.Driver) (int, error) {
	if d == nil {
		return 0, fmt.Errorf("terminal driver is required: %w", model.ErrNotValid)
	}

	var bridge *terminal.Bridge
	sess, err := s.Connect(ctx, req, SessionHandler{
		Setup: func(sess *session.Session) { bridge = d.Bind(sess) },
		Run:   func(ctx context.Context, _ *session.Session) error { return bridge.Run(ctx) },
	})
	if err != nil {
		return 0, err
	}

	code, ok := sess.ExitCode()
	if !ok {
		return 0, fmt.Errorf("session closed without exit status: %w", model.ErrProtocol)
	}

	return code, nil
}

func (s *Service) tee(buf *bytes.Buffer, w io.Writer) func([]byte) {
	return func(data []byte) {
		buf.Write(data)
		if w == nil {
			return
		}
		if _, err := w.Write(data); err != nil {
			s.logger.Warningf("could not write exec output: %s", err)
		}
	}
}

type sessionWriter struct{ s *session.Session }

func (w sessionWriter) Write(p []byte) (int, error) {
	if err := w.s.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
