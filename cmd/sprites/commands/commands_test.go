package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/sprites/internal/config"
	"github.com/slok/sprites/internal/model"
)

func TestRootCommandLoadConfig(t *testing.T) {
	tests := map[string]struct {
		file   string
		env    map[string]string
		root   RootCommand
		expCfg config.Config
		expErr error
	}{
		"Missing config file and token should fail.": {
			expErr: model.ErrNotValid,
		},

		"The config file should be loaded.": {
			file: "token: file-token\nbase_url: https://file.example.com\n",
			expCfg: config.Config{
				Token:   "file-token",
				BaseURL: "https://file.example.com",
			},
		},

		"The environment should override the file.": {
			file: "token: file-token\n",
			env:  map[string]string{"SPRITES_TOKEN": "env-token"},
			expCfg: config.Config{
				Token:   "env-token",
				BaseURL: config.DefaultBaseURL,
			},
		},

		"The flags should override the environment and the file.": {
			file: "token: file-token\nrate_limit: 2\n",
			env:  map[string]string{"SPRITES_TOKEN": "env-token"},
			root: RootCommand{Token: "flag-token", BaseURL: "http://127.0.0.1:8080", RateLimit: 5},
			expCfg: config.Config{
				Token:     "flag-token",
				BaseURL:   "http://127.0.0.1:8080",
				RateLimit: 5,
			},
		},

		"An invalid base URL flag should fail.": {
			root:   RootCommand{Token: "t0k3n", BaseURL: "ftp://example.com"},
			expErr: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			t.Setenv("SPRITES_TOKEN", "")
			t.Setenv("SPRITES_BASE_URL", "")
			t.Setenv("SPRITES_RATE_LIMIT", "")
			for k, v := range test.env {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "config.yaml")
			if test.file != "" {
				require.NoError(os.WriteFile(path, []byte(test.file), 0o600))
			}

			root := test.root
			root.ConfigPath = path

			gotCfg, err := root.LoadConfig(context.TODO())

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			require.NoError(err)
			assert.Equal(test.expCfg, gotCfg)
		})
	}
}

func TestExitResult(t *testing.T) {
	tests := map[string]struct {
		code    int
		expErr  bool
		expCode int
	}{
		"A zero exit code should not fail.": {
			code: 0,
		},

		"A non zero exit code should return an exit error.": {
			code:    3,
			expErr:  true,
			expCode: 3,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			err := exitResult(test.code)

			if !test.expErr {
				assert.NoError(err)
				return
			}
			var exitErr *ExitError
			if assert.ErrorAs(err, &exitErr) {
				assert.Equal(test.expCode, exitErr.Code)
			}
		})
	}
}
