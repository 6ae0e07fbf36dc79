// ABOUTME: Connectivity and trigger controller for the sync engine
// ABOUTME: Owns online/syncing/pending state, collapses triggers into one guarded run, fans out events
package sync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ruteo/fieldsync/models"
	"github.com/ruteo/fieldsync/store"
)

// EventType labels controller events delivered to observers.
type EventType string

const (
	// EventOnline / EventOffline mark connectivity transitions.
	EventOnline  EventType = "online"
	EventOffline EventType = "offline"
	// EventSyncStarted / EventSyncFinished track the syncing flag.
	EventSyncStarted  EventType = "sync_started"
	EventSyncFinished EventType = "sync_finished"
	// EventSynced is the one-time summary notification after a run that
	// confirmed at least one record. Purge-only runs never emit it.
	EventSynced EventType = "synced"
	// EventPendingChanged fires when the aggregate pending count moves.
	EventPendingChanged EventType = "pending_changed"
)

// Event is delivered to observers on every state change.
type Event struct {
	Type    EventType
	Online  bool
	Pending int
	Synced  int
}

// Status is a point-in-time snapshot for the HTTP API and TUI.
type Status struct {
	Online         bool      `json:"online"`
	Syncing        bool      `json:"syncing"`
	Pending        int       `json:"pending"`
	PendingReports int       `json:"pending_reports"`
	PendingDrafts  int       `json:"pending_drafts"`
	LastSync       *Result   `json:"last_sync,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

// ResolvedVisit is the read-fallback answer for a single visit id: the local
// draft if one is queued, else the queued report, else the planned cache.
type ResolvedVisit struct {
	Source  string               `json:"source"` // "draft", "report", or "planned"
	Draft   *models.VisitDraft   `json:"draft,omitempty"`
	Report  *models.VisitReport  `json:"report,omitempty"`
	Planned *models.PlannedVisit `json:"planned,omitempty"`
}

// Config holds Controller construction options. A struct because the wiring
// has grown past comfortable positional parameters.
type Config struct {
	Store         *store.Store
	Remote        RemoteStore
	Logger        zerolog.Logger
	SyncInterval  time.Duration // periodic reconciliation cadence while online
	ProbeInterval time.Duration // connectivity probe cadence
	OnRun         func(Result)  // optional hook, receives every non-idle run
}

const defaultSyncInterval = time.Minute

// Controller is the process-wide sync lifecycle owner. All triggers (online
// edge, local write, timer, manual) funnel into runSync, which enforces the
// at-most-one-concurrent-run rule with a compare-and-swap guard.
type Controller struct {
	store    *store.Store
	remote   RemoteStore
	rec      *Reconciler
	monitor  *Monitor
	logger   zerolog.Logger
	onRun    func(Result)
	interval time.Duration

	syncing atomic.Bool
	pending atomic.Int64

	mu        sync.Mutex
	observers map[int]func(Event)
	nextObs   int
	lastRun   *Result

	stop  chan struct{}
	wg    sync.WaitGroup
	runWG sync.WaitGroup
}

// NewController wires the controller. Call Start to attach listeners.
func NewController(cfg Config) *Controller {
	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	logger := cfg.Logger.With().Str("component", "controller").Logger()

	c := &Controller{
		store:     cfg.Store,
		remote:    cfg.Remote,
		rec:       NewReconciler(cfg.Store, cfg.Remote, cfg.Logger),
		logger:    logger,
		onRun:     cfg.OnRun,
		interval:  interval,
		observers: make(map[int]func(Event)),
		stop:      make(chan struct{}),
	}
	c.monitor = NewMonitor(cfg.Remote, cfg.ProbeInterval, c.handleConnectivity)
	return c
}

// Start probes connectivity, computes the initial pending count, and attaches
// the three trigger sources: connectivity edges, queue-changed notifications,
// and the periodic timer.
func (c *Controller) Start() error {
	changes := c.store.Watch()

	if err := c.refreshPending(); err != nil {
		return err
	}

	c.monitor.Start()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case col := <-changes:
				if col == store.Planned {
					continue
				}
				if err := c.refreshPending(); err != nil {
					c.logger.Error().Err(err).Msg("failed to refresh pending count")
				}
				if c.monitor.Online() {
					c.runSync(TriggerWrite)
				}
			case <-c.stop:
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if c.monitor.Online() {
					c.runSync(TriggerTimer)
				}
			case <-c.stop:
				return
			}
		}
	}()

	c.logger.Info().Bool("online", c.monitor.Online()).Int("pending", c.PendingCount()).Msg("controller started")
	return nil
}

// Stop detaches listeners and waits for any in-flight run to finish.
func (c *Controller) Stop() {
	c.monitor.Stop()
	close(c.stop)
	c.wg.Wait()
	c.runWG.Wait()
}

// handleConnectivity is the monitor's edge callback. Going online kicks a
// reconciliation and a planned-cache refresh; going offline only flags state.
func (c *Controller) handleConnectivity(online bool) {
	if online {
		c.logger.Info().Msg("connectivity restored")
		c.notify(Event{Type: EventOnline, Online: true, Pending: c.PendingCount()})
		c.runSync(TriggerOnline)
		c.runWG.Add(1)
		go func() {
			defer c.runWG.Done()
			if err := c.RefreshPlanned(context.Background()); err != nil {
				c.logger.Warn().Err(err).Msg("planned cache refresh failed")
			}
		}()
		return
	}
	c.logger.Info().Msg("connectivity lost")
	c.notify(Event{Type: EventOffline, Online: false, Pending: c.PendingCount()})
}

// TriggerSync is the manual entry point. Returns true when a run was
// started, false when offline or a run is already in progress.
func (c *Controller) TriggerSync() bool {
	return c.runSync(TriggerManual)
}

// runSync starts a guarded reconciliation run in the background. Overlapping
// triggers collapse here: the CAS admits exactly one run at a time and the
// losers return immediately.
func (c *Controller) runSync(trigger string) bool {
	if !c.monitor.Online() {
		return false
	}
	if !c.syncing.CompareAndSwap(false, true) {
		return false
	}

	c.runWG.Add(1)
	go func() {
		defer c.runWG.Done()
		defer c.syncing.Store(false)

		c.notify(Event{Type: EventSyncStarted, Online: true, Pending: c.PendingCount()})

		res, err := c.rec.Run(context.Background(), trigger)
		if err != nil {
			c.logger.Error().Err(err).Str("trigger", trigger).Msg("reconciliation aborted")
		}

		if err := c.refreshPending(); err != nil {
			c.logger.Error().Err(err).Msg("failed to refresh pending count")
		}

		if res.Synced()+res.Purged+res.Failed > 0 {
			c.mu.Lock()
			c.lastRun = &res
			c.mu.Unlock()
			if c.onRun != nil {
				c.onRun(res)
			}
		}

		c.notify(Event{Type: EventSyncFinished, Online: c.monitor.Online(), Pending: c.PendingCount(), Synced: res.Synced()})
		if res.Synced() > 0 {
			c.notify(Event{Type: EventSynced, Online: c.monitor.Online(), Pending: c.PendingCount(), Synced: res.Synced()})
		}
	}()
	return true
}

// EnqueueReport durably queues a completion report. The write is local and
// succeeds offline; the queue-changed trigger takes it from there.
func (c *Controller) EnqueueReport(r *models.VisitReport) error {
	if err := c.store.PutReport(r); err != nil {
		return err
	}
	return c.refreshPending()
}

// EnqueueDraft durably queues a new-visit draft under its pre-minted id.
func (c *Controller) EnqueueDraft(d *models.VisitDraft) error {
	if err := c.store.PutDraft(d); err != nil {
		return err
	}
	return c.refreshPending()
}

// RemoveReport drops a queued report.
func (c *Controller) RemoveReport(id uuid.UUID) error {
	if err := c.store.RemoveReport(id); err != nil {
		return err
	}
	return c.refreshPending()
}

// RemoveDraft drops a queued draft.
func (c *Controller) RemoveDraft(id uuid.UUID) error {
	if err := c.store.RemoveDraft(id); err != nil {
		return err
	}
	return c.refreshPending()
}

// ClearAll purges both pending queues. Destructive; callers own the
// confirmation step.
func (c *Controller) ClearAll() error {
	if err := c.store.ClearQueues(); err != nil {
		return err
	}
	return c.refreshPending()
}

// RefreshPlanned replaces the planned-visit cache from the remote store.
func (c *Controller) RefreshPlanned(ctx context.Context) error {
	if !c.monitor.Online() {
		return fmt.Errorf("cannot refresh planned cache while offline")
	}
	visits, err := c.remote.FetchPlannedVisits(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch planned visits: %w", err)
	}
	if err := c.store.ReplacePlanned(visits); err != nil {
		return err
	}
	c.logger.Debug().Int("visits", len(visits)).Msg("planned cache refreshed")
	return nil
}

// LookupVisit resolves a visit id from local state: pending draft first,
// then pending report, then the planned cache. Returns nil when nothing
// local knows the id.
func (c *Controller) LookupVisit(id uuid.UUID) (*ResolvedVisit, error) {
	if d, err := c.store.GetDraft(id); err != nil {
		return nil, err
	} else if d != nil {
		return &ResolvedVisit{Source: "draft", Draft: d}, nil
	}
	if r, err := c.store.GetReport(id); err != nil {
		return nil, err
	} else if r != nil {
		return &ResolvedVisit{Source: "report", Report: r}, nil
	}
	if p, err := c.store.GetPlanned(id); err != nil {
		return nil, err
	} else if p != nil {
		return &ResolvedVisit{Source: "planned", Planned: p}, nil
	}
	return nil, nil
}

// Reports lists the queued completion reports.
func (c *Controller) Reports() ([]models.VisitReport, error) {
	return c.store.Reports()
}

// Drafts lists the queued new-visit drafts.
func (c *Controller) Drafts() ([]models.VisitDraft, error) {
	return c.store.Drafts()
}

// PlannedVisits lists the cached planned-visit snapshot.
func (c *Controller) PlannedVisits() ([]models.PlannedVisit, error) {
	return c.store.PlannedVisits()
}

// PendingCount is the live sum of both queue lengths.
func (c *Controller) PendingCount() int {
	return int(c.pending.Load())
}

// IsSyncing reports whether a reconciliation run is in progress.
func (c *Controller) IsSyncing() bool {
	return c.syncing.Load()
}

// IsOnline reports the last observed connectivity state.
func (c *Controller) IsOnline() bool {
	return c.monitor.Online()
}

// SetOnline forces the connectivity state. Exposed for the API's
// airplane-mode override and for tests; the next probe may flip it back.
func (c *Controller) SetOnline(online bool) {
	c.monitor.SetOnline(online)
}

// LastSync returns the most recent non-idle run summary, or nil.
func (c *Controller) LastSync() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRun == nil {
		return nil
	}
	res := *c.lastRun
	return &res
}

// Snapshot assembles the status payload.
func (c *Controller) Snapshot() (Status, error) {
	reports, drafts, err := c.store.Counts()
	if err != nil {
		return Status{}, err
	}
	return Status{
		Online:         c.IsOnline(),
		Syncing:        c.IsSyncing(),
		Pending:        reports + drafts,
		PendingReports: reports,
		PendingDrafts:  drafts,
		LastSync:       c.LastSync(),
		CheckedAt:      time.Now().UTC(),
	}, nil
}

// Subscribe registers an observer for controller events. The returned
// function unsubscribes it.
func (c *Controller) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

func (c *Controller) notify(ev Event) {
	c.mu.Lock()
	fns := make([]func(Event), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// refreshPending recomputes the pending count from both queue lengths and
// notifies observers when it moved.
func (c *Controller) refreshPending() error {
	reports, drafts, err := c.store.Counts()
	if err != nil {
		return err
	}
	total := int64(reports + drafts)
	if c.pending.Swap(total) != total {
		c.notify(Event{Type: EventPendingChanged, Online: c.monitor.Online(), Pending: int(total)})
	}
	return nil
}
