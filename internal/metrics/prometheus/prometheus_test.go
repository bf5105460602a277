package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]struct {
		path    string
		expPath string
	}{
		"Sprite list should not be changed.": {
			path:    "/v1/sprites",
			expPath: "/v1/sprites",
		},

		"Sprite names should be replaced.": {
			path:    "/v1/sprites/my-sprite",
			expPath: "/v1/sprites/{id}",
		},

		"A sprite named as a route segment should be replaced.": {
			path:    "/v1/sprites/exec/exec",
			expPath: "/v1/sprites/{id}/exec",
		},

		"Checkpoint ids should be replaced.": {
			path:    "/v1/sprites/my-sprite/checkpoints/v1/restore",
			expPath: "/v1/sprites/{id}/checkpoints/{id}/restore",
		},

		"Exec session ids should be replaced.": {
			path:    "/v1/sprites/my-sprite/exec/1847/kill",
			expPath: "/v1/sprites/{id}/exec/{id}/kill",
		},

		"Query strings should be removed.": {
			path:    "/v1/sprites?prefix=a",
			expPath: "/v1/sprites",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expPath, normalizePath(test.path))
		})
	}
}

func TestRecorder(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	reg := prometheus.NewRegistry()
	r, err := NewRecorder(Config{Registry: reg})
	require.NoError(err)

	ctx := context.Background()
	r.ObserveAPIRequest(ctx, "GET", "/v1/sprites/a", 200, time.Second)
	r.ObserveAPIRequest(ctx, "GET", "/v1/sprites/b", 200, time.Second)
	r.ObserveAPIRequest(ctx, "GET", "/v1/sprites/c", 404, time.Second)
	r.AddActiveExecSession(ctx, true, 1)
	r.AddActiveExecSession(ctx, true, 1)
	r.AddActiveExecSession(ctx, true, -1)
	r.ObserveExecSession(ctx, true, 2*time.Second)

	assert.Equal(2.0, testutil.ToFloat64(r.apiRequests.WithLabelValues("GET", "/v1/sprites/{id}", "200")))
	assert.Equal(1.0, testutil.ToFloat64(r.apiRequests.WithLabelValues("GET", "/v1/sprites/{id}", "404")))
	assert.Equal(1.0, testutil.ToFloat64(r.execActive.WithLabelValues("true")))
	assert.Equal(1, testutil.CollectAndCount(r.execDuration))

	// Registering twice on the same registry should fail.
	_, err = NewRecorder(Config{Registry: reg})
	assert.Error(err)
}
