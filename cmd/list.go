package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/tiebreaker/internal/report"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all imported files",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	sources, err := db.ListSources()
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	if len(sources) == 0 {
		fmt.Fprintln(os.Stdout, "Nothing imported yet. Run 'tiebreaker import' to load the ATP data tree.")
		return nil
	}
	report.PrintSources(os.Stdout, sources)

	span, err := db.Span()
	if err != nil {
		return fmt.Errorf("summarize matches: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\n%d matches (%s to %s, %d undated), %d players, %d ranking rows\n",
		span.Matches, span.First, span.Last, span.Undated, span.Players, span.Rankings)
	return nil
}
