package exec_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/sprites/internal/api"
	"github.com/slok/sprites/internal/app/exec"
	"github.com/slok/sprites/internal/model"
	"github.com/slok/sprites/internal/session"
	"github.com/slok/sprites/internal/terminal"
)

type metricsRecorderMock struct{ mock.Mock }

func (m *metricsRecorderMock) ObserveAPIRequest(context.Context, string, string, int, time.Duration) {
}

func (m *metricsRecorderMock) AddActiveExecSession(_ context.Context, tty bool, delta int) {
	m.Called(tty, delta)
}

func (m *metricsRecorderMock) ObserveExecSession(_ context.Context, tty bool, _ time.Duration) {
	m.Called(tty)
}

func newService(t *testing.T, h http.Handler) *exec.Service {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := api.NewClient(api.ClientConfig{BaseURL: srv.URL, Token: "t0k3n"})
	require.NoError(t, err)

	svc, err := exec.NewService(exec.ServiceConfig{Client: c})
	require.NoError(t, err)

	return svc
}

// wsHandler upgrades the request and runs the remote side script, the
// request is sent on reqs when not nil.
func wsHandler(t *testing.T, reqs chan<- *http.Request, script func(conn *websocket.Conn)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reqs != nil {
			reqs <- r
		}

		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("could not upgrade: %s", err)
			return
		}
		defer conn.Close()

		script(conn)
	}
}

func send(conn *websocket.Conn, id byte, data string) {
	_ = conn.WriteMessage(websocket.BinaryMessage, append([]byte{id}, data...))
}

func sendExit(conn *websocket.Conn, code int) {
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"exit","exit_code":`+itoa(code)+`}`))
}

func itoa(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}

// readUntilEOF reads the framed stdin until the EOF frame.
func readUntilEOF(conn *websocket.Conn) string {
	var stdin bytes.Buffer
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil || len(msg) == 0 {
			return stdin.String()
		}
		if msg[0] == 4 {
			return stdin.String()
		}
		stdin.Write(msg[1:])
	}
}

func TestNewService(t *testing.T) {
	_, err := exec.NewService(exec.ServiceConfig{})
	assert.Error(t, err)
}

func TestBuildURL(t *testing.T) {
	id := 7

	tests := map[string]struct {
		base   string
		sprite string
		opts   exec.URLOpts
		expURL string
		expErr error
	}{
		"A command should be set as repeated cmd arguments.": {
			base:   "wss://api.sprites.dev",
			sprite: "s1",
			opts:   exec.URLOpts{Command: []string{"echo", "hi there"}},
			expURL: "wss://api.sprites.dev/v1/sprites/s1/exec?cmd=echo&cmd=hi+there",
		},

		"All the options should be set sorted.": {
			base:   "ws://localhost:8080/",
			sprite: "s1",
			opts: exec.URLOpts{
				Command:    []string{"bash"},
				TTY:        true,
				Stdin:      true,
				Cols:       120,
				Rows:       40,
				WorkingDir: "/app",
				Env:        map[string]string{"B": "2", "A": "1"},
			},
			expURL: "ws://localhost:8080/v1/sprites/s1/exec?cmd=bash&cols=120&env=A%3D1&env=B%3D2&path=%2Fapp&rows=40&stdin=true&tty=true",
		},

		"Terminal size without TTY should be ignored.": {
			base:   "ws://localhost",
			sprite: "s1",
			opts:   exec.URLOpts{Command: []string{"ls"}, Cols: 80, Rows: 24},
			expURL: "ws://localhost/v1/sprites/s1/exec?cmd=ls",
		},

		"Attaching should use the session id and omit the command.": {
			base:   "wss://api.sprites.dev",
			sprite: "s1",
			opts:   exec.URLOpts{Command: []string{"ignored"}, SessionID: &id, TTY: true},
			expURL: "wss://api.sprites.dev/v1/sprites/s1/exec/7?tty=true",
		},

		"The sprite name should be escaped as a path segment.": {
			base:   "wss://api.sprites.dev/prefix/",
			sprite: "my;sprite",
			opts:   exec.URLOpts{SessionID: &id},
			expURL: "wss://api.sprites.dev/prefix/v1/sprites/my%3Bsprite/exec/7",
		},

		"An empty command should fail.": {
			base:   "wss://api.sprites.dev",
			sprite: "s1",
			opts:   exec.URLOpts{},
			expErr: model.ErrNotValid,
		},

		"An invalid sprite name should fail.": {
			base:   "wss://api.sprites.dev",
			sprite: "a/b",
			opts:   exec.URLOpts{Command: []string{"ls"}},
			expErr: model.ErrNotValid,
		},

		"A non websocket base URL should fail.": {
			base:   "https://api.sprites.dev",
			sprite: "s1",
			opts:   exec.URLOpts{Command: []string{"ls"}},
			expErr: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			gotURL, err := exec.BuildURL(test.base, test.sprite, test.opts)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
			} else if assert.NoError(err) {
				assert.Equal(test.expURL, gotURL)
			}
		})
	}
}

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		opts      func() model.ExecOpts
		script    func(conn *websocket.Conn)
		expResult *model.ExecResult
		expErr    error
	}{
		"Stdout followed by an exit control message should return the result.": {
			script: func(conn *websocket.Conn) {
				send(conn, 1, "hi\n")
				sendExit(conn, 0)
			},
			expResult: &model.ExecResult{Stdout: []byte("hi\n"), ExitCode: 0},
		},

		"Stdout and stderr with an exit frame should be accumulated.": {
			script: func(conn *websocket.Conn) {
				send(conn, 1, "o1")
				send(conn, 2, "e1")
				send(conn, 1, "o2")
				send(conn, 3, "\x03")
			},
			expResult: &model.ExecResult{Stdout: []byte("o1o2"), Stderr: []byte("e1"), ExitCode: 3},
		},

		"Messages after the exit should be ignored.": {
			script: func(conn *websocket.Conn) {
				send(conn, 1, "a")
				sendExit(conn, 1)
				send(conn, 1, "b")
			},
			expResult: &model.ExecResult{Stdout: []byte("a"), ExitCode: 1},
		},

		"Stdin should be forwarded until its EOF.": {
			opts: func() model.ExecOpts { return model.ExecOpts{Stdin: strings.NewReader("ping")} },
			script: func(conn *websocket.Conn) {
				in := readUntilEOF(conn)
				send(conn, 1, in)
				sendExit(conn, 0)
			},
			expResult: &model.ExecResult{Stdout: []byte("ping"), ExitCode: 0},
		},

		"A connection closed without exit should fail.": {
			script: func(conn *websocket.Conn) {
				send(conn, 1, "partial")
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			},
			expErr: model.ErrProtocol,
		},

		"An invalid control message should fail.": {
			script: func(conn *websocket.Conn) {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"exit"`))
			},
			expErr: model.ErrProtocol,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			svc := newService(t, wsHandler(t, nil, test.script))

			opts := model.ExecOpts{}
			if test.opts != nil {
				opts = test.opts()
			}
			var stdout bytes.Buffer
			opts.Stdout = &stdout

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			gotResult, err := svc.Run(ctx, exec.RunRequest{Sprite: "s1", Command: []string{"echo", "hi"}, Opts: opts})

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			require.NoError(err)
			assert.Equal(string(test.expResult.Stdout), string(gotResult.Stdout))
			assert.Equal(string(test.expResult.Stderr), string(gotResult.Stderr))
			assert.Equal(test.expResult.ExitCode, gotResult.ExitCode)
			assert.Equal(string(test.expResult.Stdout), stdout.String())
		})
	}
}

func TestServiceRunRequest(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	reqs := make(chan *http.Request, 1)
	svc := newService(t, wsHandler(t, reqs, func(conn *websocket.Conn) {
		_, msg, _ := conn.ReadMessage()
		assert.Equal([]byte{4}, msg)
		sendExit(conn, 0)
	}))

	_, err := svc.Run(context.Background(), exec.RunRequest{
		Sprite:  "s1",
		Command: []string{"ls", "-la"},
		Opts:    model.ExecOpts{WorkingDir: "/tmp", Env: map[string]string{"K": "V"}},
	})
	require.NoError(err)

	r := <-reqs
	assert.Equal("/v1/sprites/s1/exec", r.URL.Path)
	assert.Equal("cmd=ls&cmd=-la&env=K%3DV&path=%2Ftmp", r.URL.RawQuery)
	assert.Equal("Bearer t0k3n", r.Header.Get("Authorization"))
}

func TestServiceRunHandshakeRejected(t *testing.T) {
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"sprite not found"}`))
	}))

	_, err := svc.Run(context.Background(), exec.RunRequest{Sprite: "s1", Command: []string{"ls"}})

	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorContains(t, err, "sprite not found")
}

func TestServiceConnectContextCancel(t *testing.T) {
	assert := assert.New(t)

	svc := newService(t, wsHandler(t, nil, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	sess, err := svc.Connect(ctx, exec.ConnectRequest{Sprite: "s1", Command: []string{"sleep", "100"}}, exec.SessionHandler{
		Run: func(context.Context, *session.Session) error {
			cancel()
			return nil
		},
	})

	assert.ErrorIs(err, context.Canceled)
	if assert.NotNil(sess) {
		_, ok := sess.ExitCode()
		assert.False(ok)
	}
}

func TestServiceConnectMetrics(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(wsHandler(t, nil, func(conn *websocket.Conn) { sendExit(conn, 0) }))
	defer srv.Close()

	c, err := api.NewClient(api.ClientConfig{BaseURL: srv.URL, Token: "t0k3n"})
	require.NoError(err)

	mr := &metricsRecorderMock{}
	mr.On("AddActiveExecSession", false, 1).Once()
	mr.On("AddActiveExecSession", false, -1).Once()
	mr.On("ObserveExecSession", false).Once()

	svc, err := exec.NewService(exec.ServiceConfig{Client: c, MetricsRecorder: mr})
	require.NoError(err)

	_, err = svc.Run(context.Background(), exec.RunRequest{Sprite: "s1", Command: []string{"true"}})
	require.NoError(err)

	mr.AssertExpectations(t)
}

func TestServiceInteractive(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	reqs := make(chan *http.Request, 1)
	svc := newService(t, wsHandler(t, reqs, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, append([]byte("echo: "), msg...))
		sendExit(conn, 2)
	}))

	var out bytes.Buffer
	d, err := terminal.NewDriver(terminal.DriverConfig{
		Input:   strings.NewReader("ls\r"),
		Output:  &out,
		RawMode: terminal.NoopRawMode,
	})
	require.NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	code, err := svc.Interactive(ctx, exec.InteractiveRequest{
		Sprite:  "s1",
		Command: []string{"bash"},
		Opts:    model.ExecOpts{Cols: 100, Rows: 30},
		Driver:  d,
	})
	require.NoError(err)

	assert.Equal(2, code)
	assert.Equal("echo: ls\r", out.String())
	r := <-reqs
	assert.Equal("cmd=bash&cols=100&rows=30&stdin=true&tty=true", r.URL.RawQuery)
}

func TestServiceAttach(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	reqs := make(chan *http.Request, 1)
	svc := newService(t, wsHandler(t, reqs, func(conn *websocket.Conn) {
		send(conn, 1, "resumed")
		sendExit(conn, 0)
	}))

	var out bytes.Buffer
	d, err := terminal.NewDriver(terminal.DriverConfig{
		Input:   strings.NewReader(""),
		Output:  &out,
		RawMode: terminal.NoopRawMode,
	})
	require.NoError(err)

	code, err := svc.Attach(context.Background(), exec.AttachRequest{Sprite: "s1", SessionID: 42, Driver: d})
	require.NoError(err)

	assert.Equal(0, code)
	assert.Equal("resumed", out.String())
	r := <-reqs
	assert.Equal("/v1/sprites/s1/exec/42", r.URL.Path)
	assert.Equal("stdin=true", r.URL.RawQuery)
}

func TestServiceCreate(t *testing.T) {
	tests := map[string]struct {
		command   string
		status    int
		body      string
		expOutput *model.ExecOutput
		expErr    error
	}{
		"A command should return its output.": {
			command:   "uname",
			status:    http.StatusOK,
			body:      `{"exit_code":0,"output":"Linux\n"}`,
			expOutput: &model.ExecOutput{ExitCode: 0, Output: "Linux\n"},
		},

		"An empty command should fail.": {
			command: "",
			expErr:  model.ErrNotValid,
		},

		"A missing sprite should fail.": {
			command: "uname",
			status:  http.StatusNotFound,
			body:    `{"error":"not found"}`,
			expErr:  model.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(http.MethodPost, r.Method)
				assert.Equal("/v1/sprites/s1/exec", r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(`{"command":"`+test.command+`"}`, string(body))
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			}))

			gotOutput, err := svc.Create(context.Background(), "s1", test.command)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
			} else if assert.NoError(err) {
				assert.Equal(test.expOutput, gotOutput)
			}
		})
	}
}

func TestServiceList(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`[
			{"id":1,"command":"bash","is_active":true,"tty":true,"workdir":"/home/sprite"},
			{"id":2,"command":"make","is_active":false,"tty":false,"created":"2026-01-02T03:04:05Z"}
		]`))
	}))

	gotSessions, err := svc.List(context.Background(), "s1")
	require.NoError(err)

	require.Len(gotSessions, 2)
	assert.Equal(model.ExecSessionInfo{ID: 1, Command: "bash", IsActive: true, TTY: true, Workdir: "/home/sprite"}, gotSessions[0])
	assert.Equal(2, gotSessions[1].ID)
	if assert.NotNil(gotSessions[1].CreatedAt) {
		assert.Equal(2026, gotSessions[1].CreatedAt.Year())
	}

	gotSession, err := svc.GetSession(context.Background(), "s1", 2)
	require.NoError(err)
	assert.Equal("make", gotSession.Command)

	_, err = svc.GetSession(context.Background(), "s1", 3)
	assert.ErrorIs(err, model.ErrNotFound)
}

func TestServiceKill(t *testing.T) {
	tests := map[string]struct {
		opts      model.KillOpts
		expBody   string
		resp      string
		expEvents int
		expErr    bool
	}{
		"Killing with the default signal should stream the events.": {
			expBody:   `{}`,
			resp:      "{\"type\":\"signal\",\"signal\":\"SIGTERM\"}\n{\"type\":\"exited\",\"exit_code\":143}\n{\"type\":\"complete\"}\n",
			expEvents: 3,
		},

		"Killing with a signal should send it.": {
			opts:      model.KillOpts{Signal: "SIGKILL"},
			expBody:   `{"signal":"SIGKILL"}`,
			resp:      "{\"type\":\"signal\",\"signal\":\"SIGKILL\"}\n{\"type\":\"complete\"}\n",
			expEvents: 2,
		},

		"An error event should fail.": {
			expBody: `{}`,
			resp:    "{\"type\":\"error\",\"error\":\"no such session\"}\n",
			expErr:  true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(http.MethodPost, r.Method)
				assert.Equal("/v1/sprites/s1/exec/9/kill", r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(test.expBody, string(body))
				_, _ = w.Write([]byte(test.resp))
			}))

			gotEvents, err := svc.Kill(context.Background(), "s1", 9, test.opts)

			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Len(gotEvents, test.expEvents)
			}
		})
	}
}
