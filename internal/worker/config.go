// Package worker provides background job processing for CityAir.
package worker

import "time"

// ReimportConfig holds configuration for the pollution re-import job.
type ReimportConfig struct {
	// WindowDays is the length of the trailing date window to re-import,
	// ending yesterday. Default: 7.
	WindowDays int

	// Concurrency is the number of cities imported concurrently.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each city's import.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultReimportConfig returns the default re-import configuration.
func DefaultReimportConfig() ReimportConfig {
	return ReimportConfig{
		WindowDays:  7,
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// normalized fills in defaults for zero-valued fields.
func (c ReimportConfig) normalized() ReimportConfig {
	if c.WindowDays <= 0 {
		c.WindowDays = 7
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}
