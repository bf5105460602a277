package policies_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/sprites/internal/api"
	"github.com/slok/sprites/internal/app/policies"
	"github.com/slok/sprites/internal/model"
)

func newService(t *testing.T, h http.HandlerFunc) *policies.Service {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := api.NewClient(api.ClientConfig{BaseURL: srv.URL, Token: "t0k3n"})
	require.NoError(t, err)

	svc, err := policies.NewService(policies.ServiceConfig{Client: c})
	require.NoError(t, err)

	return svc
}

func TestServiceGet(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(http.MethodGet, r.Method)
		assert.Equal("/v1/sprites/s1/policies", r.URL.Path)
		_, _ = w.Write([]byte(`{"egress":{"policy":"block-all","rules":[{"domain":"*.github.com","action":"allow"}]}}`))
	})

	p, err := svc.Get(context.Background(), "s1")
	require.NoError(err)

	exp := &model.Policy{Egress: model.EgressPolicy{
		Policy: model.EgressModeBlockAll,
		Rules:  []model.EgressRule{{Domain: "*.github.com", Action: model.EgressActionAllow}},
	}}
	assert.Equal(exp, p)
}

func TestServiceUpdate(t *testing.T) {
	tests := map[string]struct {
		policy  model.Policy
		expBody string
		expErr  error
	}{
		"Updating with a mode should post the policy.": {
			policy:  model.Policy{Egress: model.EgressPolicy{Policy: model.EgressModeAllowAll}},
			expBody: `{"egress":{"policy":"allow-all"}}`,
		},

		"Updating with rules should post them in order.": {
			policy: model.Policy{Egress: model.EgressPolicy{
				Policy: model.EgressModeBlockAll,
				Rules: []model.EgressRule{
					{Domain: "evil.github.com", Action: model.EgressActionDeny},
					{Domain: "*.github.com", Action: model.EgressActionAllow},
				},
			}},
			expBody: `{"egress":{"policy":"block-all","rules":[{"domain":"evil.github.com","action":"deny"},{"domain":"*.github.com","action":"allow"}]}}`,
		},

		"An invalid policy should fail without calling the API.": {
			policy: model.Policy{},
			expErr: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(http.MethodPost, r.Method)
				var body json.RawMessage
				assert.NoError(json.NewDecoder(r.Body).Decode(&body))
				assert.JSONEq(test.expBody, string(body))
				_, _ = w.Write(body)
			})

			p, err := svc.Update(context.Background(), "s1", test.policy)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			if assert.NoError(err) {
				assert.Equal(test.policy, *p)
			}
		})
	}
}

func TestServiceCheck(t *testing.T) {
	tests := map[string]struct {
		domain     string
		expAllowed bool
	}{
		"A domain matching an allow rule should be allowed.": {
			domain:     "api.github.com",
			expAllowed: true,
		},

		"A domain without rules on a block-all policy should be blocked.": {
			domain:     "example.com",
			expAllowed: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"egress":{"policy":"block-all","rules":[{"domain":"*.github.com","action":"allow"}]}}`))
			})

			res, err := svc.Check(context.Background(), "s1", test.domain)
			require.NoError(err)
			assert.Equal(test.expAllowed, res.Allowed)
		})
	}
}

func TestLoadFile(t *testing.T) {
	tests := map[string]struct {
		data      string
		expPolicy model.Policy
		expErr    bool
	}{
		"A policy with comments and trailing commas should be loaded.": {
			data: `{
  // Only GitHub.
  "egress": {
    "policy": "block-all",
    "rules": [
      {"domain": "*.github.com", "action": "allow"}, /* API and web */
    ],
  },
}`,
			expPolicy: model.Policy{Egress: model.EgressPolicy{
				Policy: model.EgressModeBlockAll,
				Rules:  []model.EgressRule{{Domain: "*.github.com", Action: model.EgressActionAllow}},
			}},
		},

		"An invalid policy should fail.": {
			data:   `{"egress":{"rules":[{"domain":"a*.com","action":"allow"}]}}`,
			expErr: true,
		},

		"Invalid JSON should fail.": {
			data:   `{"egress":`,
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			fsys := fstest.MapFS{"policy.json": {Data: []byte(test.data)}}
			p, err := policies.LoadFile(fsys, "policy.json")

			if test.expErr {
				assert.ErrorIs(err, model.ErrNotValid)
				return
			}
			if assert.NoError(err) {
				assert.Equal(test.expPolicy, p)
			}
		})
	}
}
