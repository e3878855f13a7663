package runevaluation

import (
	"time"

	"lead-orchestrator/internal/common/config"
)

const defaultTimeout = 30 * time.Minute

type Config struct {
	Timeout time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Config{Timeout: timeout}
}
