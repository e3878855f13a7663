package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	latestSuitesKey = "evaluation:latest:suites"
	latestRunKey    = "evaluation:latest:run"
)

// RedisIndex keeps the most recent summary of each suite and the most recent
// run summary in redis.
type RedisIndex struct {
	rdb redis.Cmdable
}

func NewRedisIndex(rdb redis.Cmdable) *RedisIndex {
	return &RedisIndex{rdb: rdb}
}

// Publish overwrites the stored summary of every suite in run and the run itself.
func (x *RedisIndex) Publish(ctx context.Context, run RunSummary) error {
	fields := make(map[string]interface{}, len(run.SuiteSummaries))
	for kind, s := range run.SuiteSummaries {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode suite summary %q: %w", kind, err)
		}
		fields[kind] = data
	}
	runData, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}

	pipe := x.rdb.TxPipeline()
	if len(fields) > 0 {
		pipe.HSet(ctx, latestSuitesKey, fields)
	}
	pipe.Set(ctx, latestRunKey, runData, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish evaluation summary: %w", err)
	}
	return nil
}

// LatestSuites returns the most recent summary of every suite kind ever
// published.
func (x *RedisIndex) LatestSuites(ctx context.Context) (map[string]Summary, error) {
	raw, err := x.rdb.HGetAll(ctx, latestSuitesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read suite summaries: %w", err)
	}
	out := make(map[string]Summary, len(raw))
	for kind, v := range raw {
		var s Summary
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			return nil, fmt.Errorf("decode suite summary %q: %w", kind, err)
		}
		out[kind] = s
	}
	return out, nil
}

// LatestRun returns the last published run, or nil when none exists.
func (x *RedisIndex) LatestRun(ctx context.Context) (*RunSummary, error) {
	v, err := x.rdb.Get(ctx, latestRunKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read run summary: %w", err)
	}
	var run RunSummary
	if err := json.Unmarshal([]byte(v), &run); err != nil {
		return nil, fmt.Errorf("decode run summary: %w", err)
	}
	return &run, nil
}
