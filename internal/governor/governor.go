// Package governor implements the resource governor component (C4):
// a process-wide memory cap applied once at startup, and the
// per-request time-budget cascade that splits a total analysis timeout
// into a per-path share, per spec.md §4.4.
package governor

import (
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"symbolicd/internal/config"
	"symbolicd/internal/logging"
)

var log = logging.Get(logging.CategoryGovernor)

// ApplyMemoryLimit sets the process-wide RLIMIT_AS to
// cfg.Limits.MemoryLimitMB megabytes. On platforms where RLIMIT_AS is
// unsupported (anything but linux), this logs a warning and continues
// unenforced rather than failing startup — the cap is defense in
// depth, not the only backstop against runaway memory use (the
// isolation unit's own teardown and the orchestrator's timeouts still
// apply).
func ApplyMemoryLimit(cfg *config.Config) error {
	if runtime.GOOS != "linux" {
		log.Warn("RLIMIT_AS is not supported on %s; memory_limit_mb=%d will not be enforced", runtime.GOOS, cfg.Limits.MemoryLimitMB)
		return nil
	}

	limitBytes := uint64(cfg.Limits.MemoryLimitMB) * 1024 * 1024
	rlimit := unix.Rlimit{Cur: limitBytes, Max: limitBytes}
	if err := unix.Setrlimit(unix.RLIMIT_AS, &rlimit); err != nil {
		return fmt.Errorf("governor: setrlimit RLIMIT_AS: %w", err)
	}
	log.Info("applied memory cap of %d MB", cfg.Limits.MemoryLimitMB)
	return nil
}

// Budget is one request's time-budget cascade: a total deadline for
// the whole operation, and the per-path share the engine must respect
// while enumerating individual symbolic paths.
type Budget struct {
	Total   time.Duration
	PerPath time.Duration
}

// NewBudget derives a Budget from a requested total timeout in seconds
// (clamped to the configured default when zero) and the configured
// PerPathTimeoutRatio.
func NewBudget(cfg *config.Config, requestedTimeoutSec int) Budget {
	totalSec := requestedTimeoutSec
	if totalSec <= 0 {
		totalSec = cfg.Limits.DefaultAnalysisTimeoutSec
	}
	total := time.Duration(totalSec) * time.Second
	perPath := time.Duration(float64(total) * config.PerPathTimeoutRatio)
	return Budget{Total: total, PerPath: perPath}
}
