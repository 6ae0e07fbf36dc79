// ABOUTME: Maintenance utility for exporting queued records to JSON.
// ABOUTME: Lets support staff recover unsynced work before wiping a device.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ruteo/fieldsync/config"
	"github.com/ruteo/fieldsync/models"
	"github.com/ruteo/fieldsync/store"
)

type dump struct {
	Reports []models.VisitReport  `json:"reports"`
	Drafts  []models.VisitDraft   `json:"drafts"`
	Planned []models.PlannedVisit `json:"planned,omitempty"`
}

func main() {
	path := flag.String("path", "", "Queue store path (default: the agent's own store)")
	out := flag.String("out", "", "Output file (default: stdout)")
	includePlanned := flag.Bool("planned", false, "Include the planned-visit cache")
	flag.Parse()

	storePath := *path
	if storePath == "" {
		storePath = config.QueuePath()
	}

	if err := run(storePath, *out, *includePlanned); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
}

func run(storePath, out string, includePlanned bool) error {
	st, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("failed to open queue store (is the daemon running?): %w", err)
	}
	defer func() { _ = st.Close() }()

	var d dump
	if d.Reports, err = st.Reports(); err != nil {
		return fmt.Errorf("failed to read reports: %w", err)
	}
	if d.Drafts, err = st.Drafts(); err != nil {
		return fmt.Errorf("failed to read drafts: %w", err)
	}
	if includePlanned {
		if d.Planned, err = st.PlannedVisits(); err != nil {
			return fmt.Errorf("failed to read planned cache: %w", err)
		}
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	data = append(data, '\n')

	if out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d report(s), %d draft(s) to %s\n", len(d.Reports), len(d.Drafts), out)
	return nil
}
