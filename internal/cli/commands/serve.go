package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sylva-labs/algorun/internal/api"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only query API",
		Long: `Expose run orders, runs, per-run detail and output file download over
HTTP. The API only reads the ledger; orchestration happens in execute
invocations.`,
		RunE: runServe,
	}

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(api.Config{
		Store:      store,
		OutputPath: cfg.Runner.OutputPath,
		Port:       cfg.API.Port,
		Logger:     logger,
	})
	return srv.Serve(ctx)
}
