package commands

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/sylva-labs/algorun/internal/scheduler"
)

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run one scheduling pass",
		Long: `Select run orders eligible to (re)start and launch an independent
execute invocation for each, keeping the number of concurrently active
invocations on this host under the configured ceiling.

Intended to be invoked periodically, e.g. from cron or a systemd
timer. The concurrency check is best effort: it counts matching
entries in the local process table, it is not a lock.`,
		RunE: runSchedule,
	}

	return cmd
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sched := scheduler.New(store, scheduler.ProcessTableCounter(cfg.Scheduler.Signature), logger)
	ids, err := sched.SelectNextRuns(cmd.Context(), cfg.Scheduler.MaxConcurrent)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No free slots or no eligible run orders")
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable: %w", err)
	}
	cfgFile, _ := cmd.Flags().GetString("config")

	launched := 0
	for _, id := range ids {
		args := []string{"execute", "--order", id}
		if cfgFile != "" {
			args = append(args, "--config", cfgFile)
		}

		c := exec.Command(exe, args...)
		if err := c.Start(); err != nil {
			logger.Error("failed to launch execution", "order", id, "error", err)
			continue
		}
		// Detach: the invocation outlives this scheduling pass and
		// reports through the ledger, not through us.
		if err := c.Process.Release(); err != nil {
			logger.Warn("failed to release execution process", "order", id, "error", err)
		}
		logger.Info("launched execution", "order", id)
		launched++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Launched %d of %d eligible run orders\n", launched, len(ids))
	return nil
}
