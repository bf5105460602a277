// Package prometheus implements the metrics recorder with Prometheus.
package prometheus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/slok/sprites/internal/metrics"
)

const defaultPrefix = "sprites_client"

// Config is the configuration of the Recorder.
type Config struct {
	Registry prometheus.Registerer
	// Prefix is the metric names prefix, defaults to sprites_client.
	Prefix string
}

func (c *Config) defaults() error {
	if c.Registry == nil {
		c.Registry = prometheus.DefaultRegisterer
	}

	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}

	return nil
}

// Recorder records the client metrics on Prometheus.
type Recorder struct {
	apiRequests  *prometheus.CounterVec
	apiDuration  *prometheus.HistogramVec
	execActive   *prometheus.GaugeVec
	execDuration *prometheus.HistogramVec
}

// NewRecorder returns a new Prometheus recorder with its metrics registered.
func NewRecorder(cfg Config) (*Recorder, error) {
	err := cfg.defaults()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	r := &Recorder{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Prefix,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests.",
		}, []string{"method", "path", "status"}),

		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Prefix,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		execActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Prefix,
			Subsystem: "exec",
			Name:      "sessions_active",
			Help:      "Number of running exec sessions.",
		}, []string{"tty"}),

		execDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Prefix,
			Subsystem: "exec",
			Name:      "session_duration_seconds",
			Help:      "Exec session duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		}, []string{"tty"}),
	}

	for _, c := range []prometheus.Collector{r.apiRequests, r.apiDuration, r.execActive, r.execDuration} {
		if err := cfg.Registry.Register(c); err != nil {
			return nil, fmt.Errorf("could not register metric: %w", err)
		}
	}

	return r, nil
}

var _ metrics.Recorder = &Recorder{}

func (r *Recorder) ObserveAPIRequest(_ context.Context, method, path string, statusCode int, duration time.Duration) {
	path = normalizePath(path)
	r.apiRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	r.apiDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (r *Recorder) AddActiveExecSession(_ context.Context, tty bool, delta int) {
	r.execActive.WithLabelValues(strconv.FormatBool(tty)).Add(float64(delta))
}

func (r *Recorder) ObserveExecSession(_ context.Context, tty bool, duration time.Duration) {
	r.execDuration.WithLabelValues(strconv.FormatBool(tty)).Observe(duration.Seconds())
}

// Segments followed by a user defined name or id.
var idParents = map[string]bool{
	"sprites":     true,
	"checkpoints": true,
	"exec":        true,
}

// Segments that are part of a route and not an id.
var routeSegments = map[string]bool{
	"exec":        true,
	"checkpoints": true,
	"checkpoint":  true,
	"policies":    true,
	"restore":     true,
	"kill":        true,
}

// normalizePath replaces sprite names and ids with placeholders to bound the
// label cardinality, e.g /v1/sprites/my-sprite/exec/12/kill is
// /v1/sprites/{id}/exec/{id}/kill.
func normalizePath(path string) string {
	path, _, _ = strings.Cut(path, "?")
	segs := strings.Split(path, "/")
	for i := 1; i < len(segs); i++ {
		if !idParents[segs[i-1]] || segs[i] == "" {
			continue
		}
		// The sprite name position can't be a route segment.
		if segs[i-1] != "sprites" && routeSegments[segs[i]] {
			continue
		}
		segs[i] = "{id}"
	}
	return strings.Join(segs, "/")
}
