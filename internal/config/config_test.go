package config_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"

	"github.com/slok/sprites/internal/config"
	"github.com/slok/sprites/internal/model"
)

func TestLoaderLoad(t *testing.T) {
	tests := map[string]struct {
		files  fstest.MapFS
		path   string
		env    map[string]string
		expCfg config.Config
		expErr error
	}{
		"Without file nor env the defaults should be used.": {
			files:  fstest.MapFS{},
			path:   "config.yaml",
			expCfg: config.Config{BaseURL: "https://api.sprites.dev"},
		},

		"The file values should override the defaults.": {
			files: fstest.MapFS{
				"config.yaml": {Data: []byte("token: file-token\nbase_url: http://127.0.0.1:8080\nrate_limit: 5\n")},
			},
			path:   "config.yaml",
			expCfg: config.Config{Token: "file-token", BaseURL: "http://127.0.0.1:8080", RateLimit: 5},
		},

		"The environment should override the file.": {
			files: fstest.MapFS{
				"config.yaml": {Data: []byte("token: file-token\nrate_limit: 5\n")},
			},
			path: "config.yaml",
			env: map[string]string{
				"SPRITES_TOKEN":      "env-token",
				"SPRITES_RATE_LIMIT": "2.5",
			},
			expCfg: config.Config{Token: "env-token", BaseURL: "https://api.sprites.dev", RateLimit: 2.5},
		},

		"Invalid YAML should fail.": {
			files: fstest.MapFS{
				"config.yaml": {Data: []byte("token: [")},
			},
			path:   "config.yaml",
			expErr: model.ErrNotValid,
		},

		"A non HTTP base URL should fail.": {
			files:  fstest.MapFS{},
			env:    map[string]string{"SPRITES_BASE_URL": "ftp://example.com"},
			expErr: model.ErrNotValid,
		},

		"An invalid rate limit on the environment should fail.": {
			files:  fstest.MapFS{},
			env:    map[string]string{"SPRITES_RATE_LIMIT": "fast"},
			expErr: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			for _, k := range []string{"SPRITES_TOKEN", "SPRITES_BASE_URL", "SPRITES_RATE_LIMIT"} {
				t.Setenv(k, test.env[k])
			}

			cfg, err := config.NewLoader(test.files).Load(context.Background(), test.path)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			if assert.NoError(err) {
				assert.Equal(test.expCfg, cfg)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := config.Config{Token: "a", BaseURL: "https://a", RateLimit: 1}

	got := config.Merge(base, config.Config{Token: "b"})

	assert.Equal(t, config.Config{Token: "b", BaseURL: "https://a", RateLimit: 1}, got)
}
