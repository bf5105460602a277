package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/sprites/internal/api"
	"github.com/slok/sprites/internal/model"
)

func TestNewClient(t *testing.T) {
	tests := map[string]struct {
		cfg    api.ClientConfig
		expErr bool
	}{
		"A valid config should not fail.": {
			cfg: api.ClientConfig{Token: "t0k3n"},
		},

		"A missing token should fail.": {
			cfg:    api.ClientConfig{},
			expErr: true,
		},

		"A non HTTP base URL should fail.": {
			cfg:    api.ClientConfig{Token: "t0k3n", BaseURL: "ftp://example.com"},
			expErr: true,
		},

		"A negative rate limit should fail.": {
			cfg:    api.ClientConfig{Token: "t0k3n", RateLimit: -1},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			c, err := api.NewClient(test.cfg)

			if test.expErr {
				assert.ErrorIs(err, model.ErrNotValid)
				assert.Nil(c)
			} else {
				assert.NoError(err)
				assert.NotNil(c)
			}
		})
	}
}

func TestClientURLs(t *testing.T) {
	tests := map[string]struct {
		baseURL  string
		expWSURL string
	}{
		"HTTPS should be converted to WSS.": {
			baseURL:  "https://api.sprites.dev",
			expWSURL: "wss://api.sprites.dev",
		},

		"HTTP should be converted to WS.": {
			baseURL:  "http://127.0.0.1:8080/",
			expWSURL: "ws://127.0.0.1:8080",
		},

		"The default base URL should be used if missing.": {
			expWSURL: "wss://api.sprites.dev",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			c, err := api.NewClient(api.ClientConfig{Token: "t0k3n", BaseURL: test.baseURL})
			require.NoError(err)

			assert.Equal(test.expWSURL, c.WebsocketURL())
			assert.Equal("Bearer t0k3n", c.AuthHeaders().Get("authorization"))
		})
	}
}

type spriteJSON struct {
	Name string `json:"name"`
}

func TestClientRequests(t *testing.T) {
	tests := map[string]struct {
		handler func(t *testing.T) http.HandlerFunc
		call    func(c *api.Client) (any, error)
		exp     any
		expErr  error
		expMsg  string
	}{
		"A GET should be authenticated and decode the JSON response.": {
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, http.MethodGet, r.Method)
					assert.Equal(t, "/v1/sprites/s1", r.URL.Path)
					assert.Equal(t, "p", r.URL.Query().Get("prefix"))
					assert.Equal(t, "Bearer t0k3n", r.Header.Get("Authorization"))
					assert.NotEmpty(t, r.Header.Get("x-request-id"))
					_, _ = w.Write([]byte(`{"name":"s1"}`))
				}
			},
			call: func(c *api.Client) (any, error) {
				var s spriteJSON
				err := c.Get(context.Background(), "/v1/sprites/s1", url.Values{"prefix": {"p"}}, &s)
				return s, err
			},
			exp: spriteJSON{Name: "s1"},
		},

		"A POST should send the body as JSON.": {
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, http.MethodPost, r.Method)
					assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
					body, _ := io.ReadAll(r.Body)
					assert.JSONEq(t, `{"name":"s2"}`, string(body))
					w.WriteHeader(http.StatusCreated)
					_, _ = w.Write(body)
				}
			},
			call: func(c *api.Client) (any, error) {
				var s spriteJSON
				err := c.Post(context.Background(), "/v1/sprites", map[string]string{"name": "s2"}, &s)
				return s, err
			},
			exp: spriteJSON{Name: "s2"},
		},

		"A 204 response should return nothing.": {
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, http.MethodDelete, r.Method)
					w.WriteHeader(http.StatusNoContent)
				}
			},
			call: func(c *api.Client) (any, error) {
				return nil, c.Delete(context.Background(), "/v1/sprites/s1")
			},
		},

		"An error field should be used as the error message.": {
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNotFound)
					_, _ = w.Write([]byte(`{"error":"sprite not found"}`))
				}
			},
			call: func(c *api.Client) (any, error) {
				return nil, c.Get(context.Background(), "/v1/sprites/missing", nil, nil)
			},
			expErr: model.ErrNotFound,
			expMsg: "api error (404): sprite not found",
		},

		"An errors list should be joined as the error message.": {
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusUnprocessableEntity)
					_, _ = w.Write([]byte(`{"errors":["name is invalid","name is too long"]}`))
				}
			},
			call: func(c *api.Client) (any, error) {
				return nil, c.Put(context.Background(), "/v1/sprites/x", map[string]any{}, nil)
			},
			expErr: model.ErrNotValid,
			expMsg: "api error (422): name is invalid, name is too long",
		},

		"A JSON error body without messages should be an unknown error.": {
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusConflict)
					_, _ = w.Write([]byte(`{}`))
				}
			},
			call: func(c *api.Client) (any, error) {
				return nil, c.Post(context.Background(), "/v1/sprites", map[string]any{}, nil)
			},
			expErr: model.ErrAlreadyExists,
			expMsg: "api error (409): Unknown error",
		},

		"A non JSON error body should be used raw.": {
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusBadGateway)
					_, _ = w.Write([]byte("  upstream unavailable\n"))
				}
			},
			call: func(c *api.Client) (any, error) {
				return nil, c.Get(context.Background(), "/v1/sprites", nil, nil)
			},
			expMsg: "api error (502): upstream unavailable",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			srv := httptest.NewServer(test.handler(t))
			defer srv.Close()

			c, err := api.NewClient(api.ClientConfig{Token: "t0k3n", BaseURL: srv.URL})
			require.NoError(err)

			got, err := test.call(c)

			if test.expMsg != "" {
				require.Error(err)
				assert.Equal(test.expMsg, err.Error())
				if test.expErr != nil {
					assert.ErrorIs(err, test.expErr)
				}
				var apiErr *model.APIError
				assert.ErrorAs(err, &apiErr)
				return
			}

			require.NoError(err)
			assert.Equal(test.exp, got)
		})
	}
}

func TestClientPostStream(t *testing.T) {
	exitCode := 0

	tests := map[string]struct {
		body      string
		status    int
		expEvents []model.StreamEvent
		expMsg    string
	}{
		"NDJSON events should be parsed line by line.": {
			status: http.StatusOK,
			body: `{"type":"signal","signal":"SIGTERM","pid":1847}
{"type":"exited","pid":1847}

{"type":"complete","exit_code":0}
`,
			expEvents: []model.StreamEvent{
				{Type: "signal", Signal: "SIGTERM", PID: 1847},
				{Type: "exited", PID: 1847},
				{Type: "complete", ExitCode: &exitCode},
			},
		},

		"An error event should fail the operation.": {
			status: http.StatusOK,
			body: `{"type":"info","data":"creating checkpoint"}
{"type":"error","error":"disk full"}
{"type":"complete"}`,
			expMsg: "disk full",
		},

		"A failed response should fail before parsing events.": {
			status: http.StatusNotFound,
			body:   `{"error":"sprite not found"}`,
			expMsg: "api error (404): sprite not found",
		},

		"An invalid event should fail.": {
			status: http.StatusOK,
			body:   "{\"type\":\"info\"}\nnot json\n",
			expMsg: "could not parse /v1/stream stream: invalid event on line 2: invalid character 'o' in literal null (expecting 'u')",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				assert.NoError(json.NewDecoder(r.Body).Decode(&body))
				w.Header().Set("Content-Type", "application/x-ndjson")
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			}))
			defer srv.Close()

			c, err := api.NewClient(api.ClientConfig{Token: "t0k3n", BaseURL: srv.URL})
			require.NoError(err)

			events, err := c.PostStream(context.Background(), "/v1/stream", nil)

			if test.expMsg != "" {
				require.Error(err)
				assert.Equal(test.expMsg, err.Error())
				return
			}

			require.NoError(err)
			assert.Equal(test.expEvents, events)
		})
	}
}

func TestClientRateLimitContextCancel(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := api.NewClient(api.ClientConfig{Token: "t0k3n", BaseURL: srv.URL, RateLimit: 0.001})
	require.NoError(err)

	// First request consumes the burst.
	require.NoError(c.Get(context.Background(), "/", nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.Get(ctx, "/", nil, nil)
	require.Error(err)
}
