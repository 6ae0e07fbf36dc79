// ABOUTME: Planned-visit cache commands
// ABOUTME: Lists the cached route and refreshes it from the remote API
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ruteo/fieldsync/config"
)

// PlannedListCommand prints the cached planned visits.
func PlannedListCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("planned list", flag.ExitOnError)
	_ = fs.Parse(args)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	visits, err := st.PlannedVisits()
	if err != nil {
		return fmt.Errorf("failed to list planned visits: %w", err)
	}

	if len(visits) == 0 {
		fmt.Println("No planned visits cached. Run 'fieldsync planned refresh' while online.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BUYER\tACTIVITY\tSCHEDULED\tID")
	fmt.Fprintln(w, "-----\t--------\t---------\t--")
	for _, v := range visits {
		activity := v.ActivityType
		if activity == "" {
			activity = "-"
		}
		scheduled := "-"
		if v.ScheduledFor != nil {
			scheduled = v.ScheduledFor.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.BuyerName, activity, scheduled, v.ID)
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d planned visit(s)\n", len(visits))
	return nil
}

// PlannedRefreshCommand replaces the cache with a fresh snapshot.
func PlannedRefreshCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("planned refresh", flag.ExitOnError)
	timeout := fs.Duration("timeout", 30*time.Second, "Fetch timeout")
	_ = fs.Parse(args)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	client, err := newRemote(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	visits, err := client.FetchPlannedVisits(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch planned visits: %w", err)
	}
	if err := st.ReplacePlanned(visits); err != nil {
		return fmt.Errorf("failed to replace planned cache: %w", err)
	}

	fmt.Printf("✓ Cached %d planned visit(s)\n", len(visits))
	return nil
}
