// ABOUTME: Clear command for dropping all locally queued records
// ABOUTME: Destructive; requires confirmation and leaves the planned cache intact
package cli

import (
	"flag"
	"fmt"
	"strings"

	"github.com/ruteo/fieldsync/config"
)

// ClearCommand drops every queued draft and report. Unsynced work is lost.
func ClearCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	force := fs.Bool("force", false, "Skip confirmation prompt")
	_ = fs.Parse(args)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	reports, drafts, err := st.Counts()
	if err != nil {
		return fmt.Errorf("failed to count pending records: %w", err)
	}
	if reports+drafts == 0 {
		fmt.Println("Queues are already empty")
		return nil
	}

	if !*force {
		fmt.Printf("This will drop %d unsynced record(s) (%d reports, %d drafts). Continue? [y/N] ",
			reports+drafts, reports, drafts)
		var answer string
		_, _ = fmt.Scanln(&answer)
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := st.ClearQueues(); err != nil {
		return fmt.Errorf("failed to clear queues: %w", err)
	}

	fmt.Printf("✓ Dropped %d record(s)\n", reports+drafts)
	return nil
}
