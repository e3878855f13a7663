package evaluation

import (
	"time"

	"lead-orchestrator/internal/common/config"
)

// Policy holds the benchmark thresholds and inter-probe delays.
type Policy struct {
	MinSuccessRate          float64
	MaxAvgLatency           time.Duration
	SuitePassRate           float64
	LeadConsistencyDelay    time.Duration
	MessageConsistencyDelay time.Duration
	BenchmarkDelay          time.Duration
	MessageBenchmarkDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MinSuccessRate:          0.8,
		MaxAvgLatency:           10 * time.Second,
		SuitePassRate:           0.7,
		LeadConsistencyDelay:    time.Second,
		MessageConsistencyDelay: 2 * time.Second,
		BenchmarkDelay:          500 * time.Millisecond,
		MessageBenchmarkDelay:   2 * time.Second,
	}
}

// PolicyFromConfig converts the millisecond config values, keeping defaults for unset ones.
func PolicyFromConfig(cfg config.EvaluationConfig) Policy {
	p := DefaultPolicy()
	if cfg.MinSuccessRate > 0 {
		p.MinSuccessRate = cfg.MinSuccessRate
	}
	if cfg.MaxAvgLatency > 0 {
		p.MaxAvgLatency = config.GetDuration(cfg.MaxAvgLatency)
	}
	if cfg.SuitePassRate > 0 {
		p.SuitePassRate = cfg.SuitePassRate
	}
	if cfg.LeadConsistencyDelay > 0 {
		p.LeadConsistencyDelay = config.GetDuration(cfg.LeadConsistencyDelay)
	}
	if cfg.MessageConsistencyDelay > 0 {
		p.MessageConsistencyDelay = config.GetDuration(cfg.MessageConsistencyDelay)
	}
	if cfg.BenchmarkDelay > 0 {
		p.BenchmarkDelay = config.GetDuration(cfg.BenchmarkDelay)
	}
	if cfg.MessageBenchmarkDelay > 0 {
		p.MessageBenchmarkDelay = config.GetDuration(cfg.MessageBenchmarkDelay)
	}
	return p
}

// Healthy reports whether a benchmark met both policy thresholds.
func (p Policy) Healthy(successRate float64, avgLatency time.Duration) bool {
	return successRate >= p.MinSuccessRate && avgLatency < p.MaxAvgLatency
}
