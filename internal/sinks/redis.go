package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/egv/cmdverify/internal/contracts"
)

type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	History   int
}

// RedisSink keeps the latest result of every check in a hash and a bounded
// list of run summaries.
//
//	<prefix>:check:<name>  hash  status, exit_code, duration_ms, finished_at, run_id, reasons
//	<prefix>:runs          list  JSON run summaries, newest first
//	<prefix>:last_run      string  id of the newest run
type RedisSink struct {
	client  *redis.Client
	prefix  string
	history int
}

// NewRedisSink connects and pings the server so a bad address fails before
// any check runs.
func NewRedisSink(ctx context.Context, opts RedisOptions) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return newRedisSink(client, opts), nil
}

func newRedisSink(client *redis.Client, opts RedisOptions) *RedisSink {
	prefix := strings.TrimSuffix(strings.TrimSpace(opts.KeyPrefix), ":")
	if prefix == "" {
		prefix = "cmdverify"
	}
	history := opts.History
	if history <= 0 {
		history = 50
	}
	return &RedisSink{client: client, prefix: prefix, history: history}
}

func (s *RedisSink) CheckKey(name string) string { return s.prefix + ":check:" + name }
func (s *RedisSink) RunsKey() string { return s.prefix + ":runs" }
func (s *RedisSink) LastRunKey() string { return s.prefix + ":last_run" }

func (s *RedisSink) Emit(ctx context.Context, event contracts.Event) error {
	switch event.Type {
	case contracts.EventTypeCheckFinished:
		if event.Result == nil {
			return nil
		}
		return s.storeResult(ctx, event.RunID, *event.Result)
	case contracts.EventTypeRunFinished:
		if event.Summary == nil {
			return nil
		}
		return s.storeSummary(ctx, *event.Summary)
	default:
		return nil
	}
}

func (s *RedisSink) storeResult(ctx context.Context, runID string, result contracts.CheckResult) error {
	reasons, err := json.Marshal(result.Reasons)
	if err != nil {
		return err
	}
	finishedAt := result.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}
	err = s.client.HSet(ctx, s.CheckKey(result.Name), map[string]any{
		"status":      string(result.Status),
		"exit_code":   strconv.Itoa(result.ExitCode),
		"duration_ms": strconv.FormatInt(result.Duration.Milliseconds(), 10),
		"finished_at": finishedAt.UTC().Format(time.RFC3339),
		"run_id":      runID,
		"reasons":     string(reasons),
	}).Err()
	if err != nil {
		return fmt.Errorf("redis hset %s: %w", s.CheckKey(result.Name), err)
	}
	return nil
}

func (s *RedisSink) storeSummary(ctx context.Context, summary contracts.RunSummary) error {
	payload, err := json.Marshal(contracts.NewSummaryRecord(summary))
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.RunsKey(), payload)
		pipe.LTrim(ctx, s.RunsKey(), 0, int64(s.history-1))
		pipe.Set(ctx, s.LastRunKey(), summary.RunID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis store run %s: %w", summary.RunID, err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
