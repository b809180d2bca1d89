package config

import (
	"fmt"
	"runtime"
	"strings"
)

// PurgeConfig holds the parameters of a purge run
type PurgeConfig struct {
	Prefix        string `json:"prefix" yaml:"prefix" toml:"prefix"`                                                    // folder path inside the bucket
	RetentionDays int    `json:"retention_days" yaml:"retention_days" toml:"retention_days"`                            // versions older than this many days are deleted
	WorkerCount   int    `json:"worker_count,omitempty" yaml:"worker_count,omitempty" toml:"worker_count,omitempty"`    // optional: number of concurrent delete workers
	BatchSize     int    `json:"batch_size,omitempty" yaml:"batch_size,omitempty" toml:"batch_size,omitempty"`          // optional: candidates per batch
}

// ApplyDefaults sets default values if they are not provided.
// The worker default scales with the machine but is capped to keep the
// number of outstanding delete calls friendly to provider rate limits.
func (pc *PurgeConfig) ApplyDefaults() {
	if pc.WorkerCount <= 0 {
		pc.WorkerCount = defaultWorkerCount()
	}
	if pc.BatchSize <= 0 {
		pc.BatchSize = 10000
	}
}

func defaultWorkerCount() int {
	n := 2 * runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	if n > 8 {
		n = 8
	}
	return n
}

// Validate validates the purge configuration
func (pc *PurgeConfig) Validate() error {
	if pc.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be greater than 0, got %d", pc.RetentionDays)
	}
	if pc.WorkerCount < 0 {
		return fmt.Errorf("worker_count cannot be negative")
	}
	if pc.BatchSize < 0 {
		return fmt.Errorf("batch_size cannot be negative")
	}
	return nil
}

// NormalizedPrefix returns the folder prefix with exactly one trailing
// separator. An empty prefix stays empty and means the whole bucket.
func (pc *PurgeConfig) NormalizedPrefix() string {
	p := strings.TrimRight(pc.Prefix, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}
