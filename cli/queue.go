// ABOUTME: Queue inspection and maintenance commands
// ABOUTME: Lists and removes locally queued drafts and reports
package cli

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/ruteo/fieldsync/config"
)

// QueueListCommand lists every locally queued record.
func QueueListCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("queue list", flag.ExitOnError)
	_ = fs.Parse(args)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	drafts, err := st.Drafts()
	if err != nil {
		return fmt.Errorf("failed to list drafts: %w", err)
	}
	reports, err := st.Reports()
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if len(drafts) == 0 && len(reports) == 0 {
		fmt.Println("Queues are empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tBUYER\tQUEUED\tID")
	fmt.Fprintln(w, "----\t-----\t------\t--")
	for _, d := range drafts {
		fmt.Fprintf(w, "draft\t%s\t%s\t%s\n",
			d.BuyerName, d.CreatedAt.Local().Format("2006-01-02 15:04"), d.ID)
	}
	for _, r := range reports {
		fmt.Fprintf(w, "report\t%s\t%s\t%s\n",
			r.BuyerName, r.Timestamp.Local().Format("2006-01-02 15:04"), r.ID)
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d pending record(s)\n", len(drafts)+len(reports))
	return nil
}

// QueueRemoveCommand drops a queued record by id.
func QueueRemoveCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("queue remove", flag.ExitOnError)
	kind := fs.String("kind", "", "Record kind: draft or report (required)")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("record id is required")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid record id %q: %w", fs.Arg(0), err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	switch *kind {
	case "draft":
		if err := st.RemoveDraft(id); err != nil {
			return fmt.Errorf("failed to remove draft: %w", err)
		}
	case "report":
		if err := st.RemoveReport(id); err != nil {
			return fmt.Errorf("failed to remove report: %w", err)
		}
	default:
		return fmt.Errorf("--kind must be draft or report")
	}

	fmt.Printf("✓ Removed %s %s\n", *kind, id)
	return nil
}
