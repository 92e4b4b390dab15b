package config

import (
	"os"
	"time"
)

// Timeouts holds the readiness monitoring budget.
// Values can be customized via environment variables for slow clusters.
type Timeouts struct {
	// PollInterval is the pause between readiness observations.
	PollInterval time.Duration

	// ReadyDeadline is the wall-clock budget for the workload to become
	// ready, measured from monitor start.
	ReadyDeadline time.Duration
}

// LoadTimeouts loads the monitoring budget from environment variables.
// If a variable is not set or invalid, the default value is used.
//
// Environment Variables:
//   - KUBESHIP_POLL_INTERVAL (default: 10s)
//   - KUBESHIP_READY_DEADLINE (default: 300s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		PollInterval:  parseDuration("KUBESHIP_POLL_INTERVAL", 10*time.Second),
		ReadyDeadline: parseDuration("KUBESHIP_READY_DEADLINE", 300*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}
