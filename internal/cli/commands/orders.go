package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewOrdersCommand creates the orders command.
func NewOrdersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List run orders",
		RunE:  runOrders,
	}

	return cmd
}

func runOrders(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	orders, err := store.ListOrders(cmd.Context())
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"ID", "Status", "Algorithm", "Version", "Dataset", "Created"})
	for _, o := range orders {
		dataset := o.Dataset
		if dataset == "" {
			dataset = o.LocalPath
		}
		t.AppendRow(table.Row{
			o.ID, o.Status, o.Algorithm.Name, o.Algorithm.Version,
			dataset, o.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
	return nil
}
