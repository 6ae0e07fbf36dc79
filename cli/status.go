// ABOUTME: One-shot status command
// ABOUTME: Queries the running daemon's API, falling back to the local store when the daemon is down
package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ruteo/fieldsync/config"
	"github.com/ruteo/fieldsync/db"
	"github.com/ruteo/fieldsync/sync"
)

var (
	statusOnline  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statusOffline = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// StatusCommand prints current sync state. It prefers the live daemon API;
// a stopped daemon degrades to queue counts read straight from disk.
func StatusCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	_ = fs.Parse(args)

	if status, err := fetchDaemonStatus(cfg.ListenAddr); err == nil {
		printDaemonStatus(status)
		return nil
	}

	fmt.Println(statusDim.Render("daemon not running, reading local state"))
	return printLocalStatus()
}

func fetchDaemonStatus(addr string) (*sync.Status, error) {
	httpClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := httpClient.Get(fmt.Sprintf("http://%s/api/status", addr))
	if err != nil {
		return nil, fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	var status sync.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode daemon status: %w", err)
	}
	return &status, nil
}

func printDaemonStatus(status *sync.Status) {
	conn := statusOffline.Render("offline")
	if status.Online {
		conn = statusOnline.Render("online")
	}
	state := "idle"
	if status.Syncing {
		state = "syncing"
	}

	fmt.Printf("Connectivity: %s\n", conn)
	fmt.Printf("Sync:         %s\n", state)
	fmt.Printf("Pending:      %d (%d reports, %d drafts)\n",
		status.Pending, status.PendingReports, status.PendingDrafts)

	if last := status.LastSync; last != nil {
		fmt.Printf("Last run:     %s  synced %d  purged %d  failed %d  (%s)\n",
			last.Finished.Local().Format(time.RFC3339), last.Synced(), last.Purged, last.Failed, last.Trigger)
	} else {
		fmt.Println("Last run:     none")
	}
}

func printLocalStatus() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	reports, drafts, err := st.Counts()
	if err != nil {
		return fmt.Errorf("failed to count pending records: %w", err)
	}

	fmt.Printf("Pending:      %d (%d reports, %d drafts)\n", reports+drafts, reports, drafts)

	history, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	last, err := db.LastSyncRun(history)
	if err != nil {
		return fmt.Errorf("failed to read sync history: %w", err)
	}
	if last != nil {
		fmt.Printf("Last run:     %s  synced %d  purged %d  failed %d  (%s)\n",
			last.FinishedAt.Local().Format(time.RFC3339), last.Synced(), last.Purged, last.Failed, last.Trigger)
	} else {
		fmt.Println("Last run:     none")
	}
	return nil
}
