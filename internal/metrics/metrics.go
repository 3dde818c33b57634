package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/egv/cmdverify/internal/contracts"
)

// Recorder turns engine events into Prometheus metrics and, on Close, writes
// them in the node_exporter textfile format.
type Recorder struct {
	registry      *prometheus.Registry
	path          string
	checksTotal   *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	lastSuccess   prometheus.Gauge
	lastRunTime   prometheus.Gauge
}

func NewRecorder(path string) *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		path:     path,
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cmdverify_checks_total",
			Help: "Checks finished, by status.",
		}, []string{"status"}),
		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cmdverify_check_duration_seconds",
			Help:    "Wall-clock duration of each check.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"check"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cmdverify_last_run_success",
			Help: "1 when the last run had no failed checks, 0 otherwise.",
		}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cmdverify_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}
	registry.MustRegister(r.checksTotal, r.checkDuration, r.lastSuccess, r.lastRunTime)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) Emit(_ context.Context, event contracts.Event) error {
	switch event.Type {
	case contracts.EventTypeCheckFinished:
		if event.Result == nil {
			return nil
		}
		r.checksTotal.WithLabelValues(string(event.Result.Status)).Inc()
		if event.Result.Status != contracts.CheckStatusSkipped {
			r.checkDuration.WithLabelValues(event.Result.Name).Observe(event.Result.Duration.Seconds())
		}
	case contracts.EventTypeRunFinished:
		if event.Summary == nil {
			return nil
		}
		if event.Summary.Failed() == 0 {
			r.lastSuccess.Set(1)
		} else {
			r.lastSuccess.Set(0)
		}
		finished := event.Summary.FinishedAt
		if finished.IsZero() {
			finished = event.Timestamp
		}
		r.lastRunTime.Set(float64(finished.Unix()))
	}
	return nil
}

// Close writes the textfile when a path was configured.
func (r *Recorder) Close() error {
	if r == nil || r.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(r.path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", r.path, err)
	}
	return nil
}
