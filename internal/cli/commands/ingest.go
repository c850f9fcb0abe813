package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sylva-labs/algorun/internal/ingest"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch run-order definitions from the defining repository",
		Long: `Read every .yaml definition from the configured GitHub repository and
record it as a run order. Definitions are keyed by their repository
path: a definition seen before is skipped, so ingest can run
repeatedly. Invalid definitions are recorded with status INVALID for
audit.`,
		RunE: runIngest,
	}

	return cmd
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if cfg.GitHub.Repository == "" {
		return fmt.Errorf("github.repository is not configured")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	reader := ingest.NewReader(cfg.GitHub.Repository, cfg.GitHub.Token, logger)
	orders, err := reader.FetchRunOrders(ctx)
	if err != nil {
		return err
	}

	inserted := 0
	for _, ord := range orders {
		added, err := store.InsertOrderIfAbsent(ctx, ord)
		if err != nil {
			return err
		}
		if added {
			logger.Info("recorded run order", "source", ord.SourceID, "status", ord.Status)
			inserted++
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d definitions, %d new\n", len(orders), inserted)
	return nil
}
