package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	OrderID string
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs of a run order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRuns(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.OrderID, "order", "", "Run order id")
	_ = cmd.MarkFlagRequired("order")

	return cmd
}

func runRuns(cmd *cobra.Command, opts *RunsOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), opts.OrderID)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"ID", "Status", "Started", "Ended", "Workspace"})
	for _, run := range runs {
		ended := ""
		if run.End != nil {
			ended = run.End.Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{
			run.ID, run.Status, run.Start.Format("2006-01-02 15:04:05"), ended, run.Workspace,
		})
	}
	t.Render()
	return nil
}
