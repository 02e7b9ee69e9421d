package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List vector tables",
	Args:  cobra.NoArgs,
	RunE:  runTables,
}

var tablesDropCmd = &cobra.Command{
	Use:   "drop <name>",
	Short: "Delete a vector table and all of its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTablesDrop,
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	tablesCmd.AddCommand(tablesDropCmd)
}

func runTables(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, err := openBackend(ctx, false)
	if err != nil {
		return err
	}
	defer b.Close()

	names, err := b.store.TableNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	if len(names) == 0 {
		fmt.Println("No tables found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tROWS\tDIMENSION\tMODEL\tCREATED")
	for _, name := range names {
		table, err := b.store.OpenTable(ctx, name)
		if err != nil {
			return err
		}
		count, err := table.Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", name, err)
		}
		schema := table.Schema()
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", name, count, schema.Dimension, schema.EmbeddingModel,
			schema.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runTablesDrop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, err := openBackend(ctx, false)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.store.DropTable(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	fmt.Printf("Dropped table %s\n", args[0])
	return nil
}
