package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sylva-labs/algorun/internal/dataprov"
	"github.com/sylva-labs/algorun/internal/execute"
	"github.com/sylva-labs/algorun/internal/runner"
)

// ExecuteOptions holds options for the execute command.
type ExecuteOptions struct {
	OrderID string
}

// NewExecuteCommand creates the execute command.
func NewExecuteCommand() *cobra.Command {
	opts := &ExecuteOptions{}

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Run one orchestration invocation for a run order",
		Long: `Drive a single run order through the execution pipeline: order the
dataset, clone and build the algorithm, run it in a container, collect
its output and clean up.

If the order already has a run waiting for data, that run is resumed.
If the dataset is still being prepared, the run is parked in
WAITING_FOR_DATA and the command exits cleanly; a later scheduling
pass resumes it.`,
		Example: `  # Execute a run order by id
  algorun execute --order 4f1c2a…`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExecute(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.OrderID, "order", "", "Run order id to execute")
	_ = cmd.MarkFlagRequired("order")

	return cmd
}

func runExecute(cmd *cobra.Command, opts *ExecuteOptions) error {
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

	ctx := cmd.Context()
	ord, err := store.GetOrder(ctx, opts.OrderID)
	if err != nil {
		return err
	}
	if ord == nil {
		return fmt.Errorf("run order not found: %s", opts.OrderID)
	}

	r := runner.New(
		runner.Config{
			WorkPath:           cfg.Runner.Path,
			OutputPath:         cfg.Runner.OutputPath,
			DockerfileTemplate: cfg.Runner.DockerfileTemplate,
			WorkspacePath:      cfg.DataService.WorkspacePath,
			MountPath:          cfg.Runner.MountPath,
			ContainerOutputDir: cfg.Runner.ContainerOutputDir,
		},
		store,
		dataprov.NewClient(cfg.DataService.BaseURL, cfg.DataService.Token, logger),
		execute.New(logger),
		logger,
	)

	return r.Execute(ctx, ord)
}
