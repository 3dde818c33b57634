package verification

import (
	"context"
	"errors"

	"github.com/egv/cmdverify/internal/config"
	"github.com/egv/cmdverify/internal/contracts"
	"github.com/egv/cmdverify/internal/metrics"
	"github.com/egv/cmdverify/internal/sinks"
)

// openSinks connects every sink named in the report section. A sink that
// cannot connect closes the ones already opened and surfaces as a
// configuration error.
func openSinks(ctx context.Context, manifest config.Manifest, extra contracts.EventSink) (*contracts.FanoutEventSink, error) {
	opened := []contracts.EventSink{}
	if extra != nil {
		opened = append(opened, extra)
	}

	report := manifest.Report
	if report.Redis != nil {
		sink, err := sinks.NewRedisSink(ctx, sinks.RedisOptions{
			Addr:      report.Redis.Addr,
			Password:  report.Redis.Password,
			DB:        report.Redis.DB,
			KeyPrefix: report.Redis.KeyPrefix,
			History:   report.Redis.History,
		})
		if err != nil {
			_ = closeAll(opened)
			return nil, WrapConfigurationError(err, "cannot connect to the Redis report sink",
				"Check report.redis.addr and report.redis.password in "+manifest.Path+".",
				"Remove the report.redis section to run without Redis.")
		}
		opened = append(opened, sink)
	}
	if report.NATS != nil {
		sink, err := sinks.NewNATSSink(sinks.NATSOptions{
			URL:     report.NATS.URL,
			Subject: report.NATS.Subject,
		})
		if err != nil {
			_ = closeAll(opened)
			return nil, WrapConfigurationError(err, "cannot connect to the NATS report sink",
				"Check report.nats.url in "+manifest.Path+".",
				"Remove the report.nats section to run without NATS.")
		}
		opened = append(opened, sink)
	}
	if report.MetricsFile != "" {
		opened = append(opened, metrics.NewRecorder(report.MetricsFile))
	}
	return contracts.NewFanoutEventSink(opened...), nil
}

// closeAll closes connection-backed sinks opened before a later one failed.
// The caller's own sink is left alone.
func closeAll(opened []contracts.EventSink) error {
	var err error
	for _, sink := range opened {
		switch s := sink.(type) {
		case *sinks.RedisSink:
			err = errors.Join(err, s.Close())
		case *sinks.NATSSink:
			err = errors.Join(err, s.Close())
		}
	}
	return err
}
