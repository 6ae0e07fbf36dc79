// ABOUTME: Sync history command
// ABOUTME: Lists recent reconciliation runs from the local history database
package cli

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ruteo/fieldsync/config"
	"github.com/ruteo/fieldsync/db"
)

// HistoryCommand lists recent sync runs, newest first.
func HistoryCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum runs to show")
	_ = fs.Parse(args)

	history, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	runs, err := db.RecentSyncRuns(history, *limit)
	if err != nil {
		return fmt.Errorf("failed to read sync history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No sync runs recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FINISHED\tTRIGGER\tSYNCED\tPURGED\tFAILED\tRUN")
	fmt.Fprintln(w, "--------\t-------\t------\t------\t------\t---")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			run.Trigger, run.Synced(), run.Purged, run.Failed, run.RunID[:8])
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d run(s)\n", len(runs))
	return nil
}
