// Package scheduler decides which pending or stalled run orders to
// (re)start under a local concurrency ceiling.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/sylva-labs/algorun/internal/ledger"
)

// ActiveCounter reports how many orchestration invocations are
// currently running on this host.
type ActiveCounter func(ctx context.Context) (int, error)

// Scheduler selects eligible run orders for the free execution slots.
type Scheduler struct {
	store  ledger.Store
	count  ActiveCounter
	logger *slog.Logger
}

// New creates a Scheduler.
func New(store ledger.Store, count ActiveCounter, logger *slog.Logger) *Scheduler {
	return &Scheduler{store: store, count: count, logger: logger}
}

// SelectNextRuns returns up to maxConcurrent−active eligible order
// ids, or nothing when no slot is free. Eligibility and ordering are
// the ledger's (waiting orders first, then newest first).
func (s *Scheduler) SelectNextRuns(ctx context.Context, maxConcurrent int) ([]string, error) {
	active, err := s.count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count active executions: %w", err)
	}

	slots := maxConcurrent - active
	s.logger.Debug("scheduling pass", "max_concurrent", maxConcurrent, "active", active, "slots", slots)
	if slots <= 0 {
		return nil, nil
	}

	return s.store.FindEligibleOrderIDs(ctx, slots)
}

// ProcessTableCounter counts local orchestration invocations by
// scanning the OS process table for the given command signature. This
// is a coarse, best-effort, single-host ceiling, not a lock: a race
// between the snapshot and a new launch can exceed the intended
// concurrency.
func ProcessTableCounter(signature string) ActiveCounter {
	return func(ctx context.Context) (int, error) {
		out, err := exec.CommandContext(ctx, "ps", "-eo", "args=").Output()
		if err != nil {
			return 0, fmt.Errorf("failed to read process table: %w", err)
		}

		count := 0
		for _, line := range strings.Split(string(out), "\n") {
			if strings.Contains(line, signature) {
				count++
			}
		}
		return count, nil
	}
}
