// ABOUTME: Sync reconciler that drains the offline queues against the remote store
// ABOUTME: Two-phase run: drafts first, then reports with NOT_FOUND purge gating
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/ruteo/fieldsync/models"
	"github.com/ruteo/fieldsync/remote"
	"github.com/ruteo/fieldsync/store"
)

// RemoteStore is the slice of the field-ops API the reconciler needs.
// Satisfied by *remote.Client.
type RemoteStore interface {
	CreateVisit(ctx context.Context, id uuid.UUID, payload json.RawMessage) error
	CompleteVisit(ctx context.Context, id uuid.UUID, data json.RawMessage, coords *models.Coords) error
	FetchPlannedVisits(ctx context.Context) ([]models.PlannedVisit, error)
	Ping(ctx context.Context) error
}

// Result summarizes one reconciliation run.
type Result struct {
	RunID         string    `json:"run_id"`
	Trigger       string    `json:"trigger"`
	Started       time.Time `json:"started"`
	Finished      time.Time `json:"finished"`
	SyncedDrafts  int       `json:"synced_drafts"`
	SyncedReports int       `json:"synced_reports"`
	Purged        int       `json:"purged"`
	Failed        int       `json:"failed"`
}

// Synced is the total number of records confirmed by the remote store this
// run. Purged records never count as synced.
func (r Result) Synced() int {
	return r.SyncedDrafts + r.SyncedReports
}

// Trigger source labels, recorded in the sync history.
const (
	TriggerManual = "manual"
	TriggerOnline = "online"
	TriggerWrite  = "write"
	TriggerTimer  = "timer"
)

// Reconciler drains the draft and report queues against the remote store.
// It assumes the caller enforces the at-most-one-run guard; the Controller
// does that, and one-shot CLI runs are exclusive by construction.
type Reconciler struct {
	store  *store.Store
	remote RemoteStore
	logger zerolog.Logger
}

// NewReconciler wires a reconciler over the queue store and remote client.
func NewReconciler(st *store.Store, rs RemoteStore, logger zerolog.Logger) *Reconciler {
	return &Reconciler{store: st, remote: rs, logger: logger.With().Str("component", "reconciler").Logger()}
}

func newRunID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Run executes one reconciliation pass.
//
// Phase A drains drafts: each remote create uses the draft's pre-minted id,
// so a retry after a failed run lands on the same record. Phase B re-reads
// the draft queue once Phase A has finished and uses that snapshot to gate
// NOT_FOUND purges: a report whose target id still has a queued draft is
// kept for a future run, because the create must land first.
//
// One record's failure never aborts the run.
func (r *Reconciler) Run(ctx context.Context, trigger string) (Result, error) {
	res := Result{RunID: newRunID(), Trigger: trigger, Started: time.Now().UTC()}

	drafts, err := r.store.Drafts()
	if err != nil {
		return res, err
	}
	reports, err := r.store.Reports()
	if err != nil {
		return res, err
	}

	if len(drafts) == 0 && len(reports) == 0 {
		res.Finished = res.Started
		return res, nil
	}

	r.logger.Info().
		Str("run_id", res.RunID).
		Str("trigger", trigger).
		Int("drafts", len(drafts)).
		Int("reports", len(reports)).
		Msg("reconciliation started")

	// Phase A: drain drafts.
	for _, d := range drafts {
		if err := r.remote.CreateVisit(ctx, d.ID, d.Payload); err != nil {
			r.logger.Warn().Err(err).Stringer("id", d.ID).Msg("draft create failed, keeping queued")
			res.Failed++
			continue
		}
		if err := r.store.RemoveDraft(d.ID); err != nil {
			r.logger.Error().Err(err).Stringer("id", d.ID).Msg("failed to dequeue synced draft")
			res.Failed++
			continue
		}
		res.SyncedDrafts++
	}

	// Phase B: drain reports against the post-Phase-A draft snapshot.
	stillLocal := make(map[uuid.UUID]bool)
	remaining, err := r.store.Drafts()
	if err != nil {
		return res, err
	}
	for _, d := range remaining {
		stillLocal[d.ID] = true
	}

	for _, rep := range reports {
		err := r.remote.CompleteVisit(ctx, rep.ID, rep.Data, rep.Coords)
		switch {
		case err == nil:
			if err := r.store.RemoveReport(rep.ID); err != nil {
				r.logger.Error().Err(err).Stringer("id", rep.ID).Msg("failed to dequeue synced report")
				res.Failed++
				continue
			}
			res.SyncedReports++

		case errors.Is(err, remote.ErrVisitNotFound):
			if stillLocal[rep.ID] {
				// The matching create is still pending (it may have just
				// failed in Phase A). Not terminal yet.
				r.logger.Debug().Stringer("id", rep.ID).Msg("target visit still local, keeping report")
				res.Failed++
				continue
			}
			// No pending create and no remote record: this report
			// addresses a visit that will never exist.
			if err := r.store.RemoveReport(rep.ID); err != nil {
				r.logger.Error().Err(err).Stringer("id", rep.ID).Msg("failed to purge orphaned report")
				res.Failed++
				continue
			}
			r.logger.Warn().Stringer("id", rep.ID).Msg("purged report for nonexistent visit")
			res.Purged++

		default:
			r.logger.Warn().Err(err).Stringer("id", rep.ID).Msg("report update failed, keeping queued")
			res.Failed++
		}
	}

	res.Finished = time.Now().UTC()
	r.logger.Info().
		Str("run_id", res.RunID).
		Int("synced", res.Synced()).
		Int("purged", res.Purged).
		Int("failed", res.Failed).
		Msg("reconciliation finished")
	return res, nil
}
