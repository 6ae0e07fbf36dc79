// ABOUTME: Badger-backed durable queue store for offline visit records
// ABOUTME: Three named collections with upsert-by-id semantics and change notifications
package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"

	"github.com/ruteo/fieldsync/models"
)

// Collection names the three durable collections.
type Collection string

const (
	// Reports holds pending visit-completion reports.
	Reports Collection = "reports"
	// Drafts holds pending new-visit drafts.
	Drafts Collection = "drafts"
	// Planned holds the read-through cache of remote planned visits.
	Planned Collection = "planned"
)

// Key prefixes per collection. A record is stored as prefix + UUID string,
// which also makes iteration order deterministic.
var prefixes = map[Collection][]byte{
	Reports: []byte("report:"),
	Drafts:  []byte("draft:"),
	Planned: []byte("planned:"),
}

// Store is the durable queue store. Each mutating operation replaces a whole
// record atomically within its collection and emits a change notification.
type Store struct {
	db *badger.DB

	mu      sync.Mutex
	changes []chan Collection
}

// Open opens (or creates) the store at the given directory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store backed by in-memory Badger.
// Used by tests and by one-shot commands that must not touch the daemon's
// directory lock.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory queue store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Watch returns a channel that receives the collection name after every
// mutation. The channel is buffered and sends are non-blocking; a slow
// consumer sees a collapsed stream, which is fine for edge-triggered sync.
func (s *Store) Watch() <-chan Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Collection, 16)
	s.changes = append(s.changes, ch)
	return ch
}

func (s *Store) notify(col Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.changes {
		select {
		case ch <- col:
		default:
		}
	}
}

func key(col Collection, id uuid.UUID) []byte {
	return append(append([]byte{}, prefixes[col]...), id.String()...)
}

func (s *Store) setJSON(col Collection, id uuid.UUID, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", col, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(col, id), raw)
	})
	if err != nil {
		return fmt.Errorf("failed to write %s record: %w", col, err)
	}
	s.notify(col)
	return nil
}

func (s *Store) remove(col Collection, id uuid.UUID) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(col, id))
	})
	if err != nil {
		return fmt.Errorf("failed to remove %s record: %w", col, err)
	}
	s.notify(col)
	return nil
}

// listRaw returns the raw values of a collection in key order.
func (s *Store) listRaw(col Collection) ([][]byte, error) {
	var out [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixes[col]
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, raw)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s collection: %w", col, err)
	}
	return out, nil
}

// PutReport upserts a completion report. A re-submission with the same id
// replaces the prior entry; the collection never holds two entries per id.
func (s *Store) PutReport(r *models.VisitReport) error {
	return s.setJSON(Reports, r.ID, r)
}

// PutDraft upserts a new-visit draft by its locally-minted id.
func (s *Store) PutDraft(d *models.VisitDraft) error {
	return s.setJSON(Drafts, d.ID, d)
}

// RemoveReport deletes a report. Removing an absent id is not an error.
func (s *Store) RemoveReport(id uuid.UUID) error {
	return s.remove(Reports, id)
}

// RemoveDraft deletes a draft. Removing an absent id is not an error.
func (s *Store) RemoveDraft(id uuid.UUID) error {
	return s.remove(Drafts, id)
}

// Reports returns all queued completion reports in key order.
func (s *Store) Reports() ([]models.VisitReport, error) {
	raws, err := s.listRaw(Reports)
	if err != nil {
		return nil, err
	}
	out := make([]models.VisitReport, 0, len(raws))
	for _, raw := range raws {
		var r models.VisitReport
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("failed to decode report record: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Drafts returns all queued new-visit drafts in key order.
func (s *Store) Drafts() ([]models.VisitDraft, error) {
	raws, err := s.listRaw(Drafts)
	if err != nil {
		return nil, err
	}
	out := make([]models.VisitDraft, 0, len(raws))
	for _, raw := range raws {
		var d models.VisitDraft
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("failed to decode draft record: %w", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// GetDraft returns the draft with the given id, or nil if not queued.
func (s *Store) GetDraft(id uuid.UUID) (*models.VisitDraft, error) {
	var d *models.VisitDraft
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(Drafts, id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		d = &models.VisitDraft{}
		return json.Unmarshal(raw, d)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read draft record: %w", err)
	}
	return d, nil
}

// GetReport returns the report with the given id, or nil if not queued.
func (s *Store) GetReport(id uuid.UUID) (*models.VisitReport, error) {
	var r *models.VisitReport
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(Reports, id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		r = &models.VisitReport{}
		return json.Unmarshal(raw, r)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read report record: %w", err)
	}
	return r, nil
}

// PlannedVisits returns the cached planned-visit snapshot.
func (s *Store) PlannedVisits() ([]models.PlannedVisit, error) {
	raws, err := s.listRaw(Planned)
	if err != nil {
		return nil, err
	}
	out := make([]models.PlannedVisit, 0, len(raws))
	for _, raw := range raws {
		var p models.PlannedVisit
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode planned record: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// GetPlanned returns the cached planned visit with the given id, or nil.
func (s *Store) GetPlanned(id uuid.UUID) (*models.PlannedVisit, error) {
	var p *models.PlannedVisit
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(Planned, id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		p = &models.PlannedVisit{}
		return json.Unmarshal(raw, p)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read planned record: %w", err)
	}
	return p, nil
}

// ReplacePlanned swaps the planned cache wholesale: the old snapshot is
// dropped and the new one written in a single transaction. No incremental
// merge, the cache is never authoritative.
func (s *Store) ReplacePlanned(visits []models.PlannedVisit) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixes[Planned]
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for i := range visits {
			raw, err := json.Marshal(&visits[i])
			if err != nil {
				return err
			}
			if err := txn.Set(key(Planned, visits[i].ID), raw); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace planned cache: %w", err)
	}
	s.notify(Planned)
	return nil
}

// Clear drops every record in one collection.
func (s *Store) Clear(col Collection) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixes[col]
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear %s collection: %w", col, err)
	}
	s.notify(col)
	return nil
}

// ClearQueues drops both pending queues. The planned cache is untouched;
// it is derived data and refreshes on its own.
func (s *Store) ClearQueues() error {
	if err := s.Clear(Reports); err != nil {
		return err
	}
	return s.Clear(Drafts)
}

// Counts returns the lengths of the two pending queues.
func (s *Store) Counts() (reports int, drafts int, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		for col, n := range map[Collection]*int{Reports: &reports, Drafts: &drafts} {
			opts.Prefix = prefixes[col]
			it := txn.NewIterator(opts)
			for it.Rewind(); it.Valid(); it.Next() {
				*n++
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count pending queues: %w", err)
	}
	return reports, drafts, nil
}
