package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/metrics"
)

// LedgerUsecase owns the per-group weekly completion state.
// All reads and writes of entries go through mu; snapshots are written
// outside of it and never overwrite a newer snapshot with an older one.
type LedgerUsecase struct {
	store   repo.SnapshotStore
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	entries  map[string]*domain.WeeklyLedgerEntry
	inflight map[string]map[string]struct{} // group ID -> event IDs being classified
	version  uint64

	writeMu sync.Mutex
	written uint64
}

// NewLedgerUsecase creates a new ledger usecase
func NewLedgerUsecase(store repo.SnapshotStore, logger *zap.Logger, m *metrics.Metrics) *LedgerUsecase {
	return &LedgerUsecase{
		store:    store,
		logger:   logger.Named("ledger"),
		metrics:  m,
		entries:  make(map[string]*domain.WeeklyLedgerEntry),
		inflight: make(map[string]map[string]struct{}),
	}
}

// GetOrInit returns a copy of the group's entry for weekStart, creating it
// if absent and resetting it if it belongs to another week
func (uc *LedgerUsecase) GetOrInit(groupID, weekStart string) *domain.WeeklyLedgerEntry {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.getOrInitLocked(groupID, weekStart).Clone()
}

// RecordEventSeen marks eventID as accounted for. Returns false if it already was.
func (uc *LedgerUsecase) RecordEventSeen(groupID, weekStart, eventID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	changed := uc.getOrInitLocked(groupID, weekStart).MarkSeen(eventID)
	if changed {
		uc.version++
	}
	return changed
}

// RecordCompletion marks contactID as completed. Returns false if it already was.
func (uc *LedgerUsecase) RecordCompletion(groupID, weekStart, contactID, name string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	changed := uc.getOrInitLocked(groupID, weekStart).MarkCompleted(contactID, name)
	if changed {
		uc.version++
	}
	return changed
}

// IsEventSeen reports whether eventID was accounted for in the group's current entry
func (uc *LedgerUsecase) IsEventSeen(groupID, eventID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	e, ok := uc.entries[groupID]
	return ok && e.HasSeen(eventID)
}

// IsContactCompleted reports whether contactID completed in the group's current entry
func (uc *LedgerUsecase) IsContactCompleted(groupID, contactID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	e, ok := uc.entries[groupID]
	return ok && e.HasCompleted(contactID)
}

// Entry returns a copy of the group's entry as stored, without any reset
func (uc *LedgerUsecase) Entry(groupID string) (*domain.WeeklyLedgerEntry, bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	e, ok := uc.entries[groupID]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Snapshot returns copies of every entry keyed by group ID
func (uc *LedgerUsecase) Snapshot() map[string]*domain.WeeklyLedgerEntry {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.snapshotLocked()
}

// AdmitVerdict is the result of trying to reserve an event for classification
type AdmitVerdict int

const (
	Admitted AdmitVerdict = iota
	AlreadySeen
	AlreadyCompleted
)

// Reservation is an event reserved for classification.
// It must be finished with Commit or Abort.
type Reservation struct {
	GroupID   string
	WeekStart string
	EventID   string
}

// Admit resets a stale entry, then reserves eventID unless it was already
// seen, is being classified right now, or the sender already completed.
func (uc *LedgerUsecase) Admit(groupID, weekStart, eventID, contactID string) (*Reservation, AdmitVerdict) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	e := uc.getOrInitLocked(groupID, weekStart)
	if e.HasSeen(eventID) {
		return nil, AlreadySeen
	}
	if _, busy := uc.inflight[groupID][eventID]; busy {
		return nil, AlreadySeen
	}
	if e.HasCompleted(contactID) {
		return nil, AlreadyCompleted
	}

	if uc.inflight[groupID] == nil {
		uc.inflight[groupID] = make(map[string]struct{})
	}
	uc.inflight[groupID][eventID] = struct{}{}

	return &Reservation{GroupID: groupID, WeekStart: weekStart, EventID: eventID}, Admitted
}

// Abort releases a reservation without recording anything
func (uc *LedgerUsecase) Abort(r *Reservation) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.releaseLocked(r)
}

// Commit applies a classification result, marks the event seen and persists.
// Returns false if the entry moved to another week while the event was being
// classified; nothing is recorded in that case.
func (uc *LedgerUsecase) Commit(ctx context.Context, r *Reservation, completed bool, contactID, name string) bool {
	uc.mu.Lock()
	uc.releaseLocked(r)
	e, ok := uc.entries[r.GroupID]
	if !ok || e.WeekStart != r.WeekStart {
		uc.mu.Unlock()
		return false
	}
	if completed {
		e.MarkCompleted(contactID, name)
	}
	e.MarkSeen(r.EventID)
	uc.version++
	uc.mu.Unlock()

	uc.Persist(ctx)
	return true
}

// Persist writes the full ledger snapshot. Write failures are logged;
// in-memory state is kept either way.
func (uc *LedgerUsecase) Persist(ctx context.Context) {
	uc.mu.Lock()
	snapshot := uc.snapshotLocked()
	version := uc.version
	uc.mu.Unlock()

	uc.writeMu.Lock()
	defer uc.writeMu.Unlock()

	// A concurrent caller already wrote this version or a newer one
	if version < uc.written {
		return
	}

	err := uc.store.Save(ctx, repo.SnapshotLedger, snapshot)
	uc.metrics.Persisted(repo.SnapshotLedger, err)
	if err != nil {
		uc.logger.Error("persist ledger failed", zap.Error(err))
		return
	}
	uc.written = version
}

// Load replaces in-memory state with the persisted snapshot.
// A malformed snapshot is logged and treated as empty.
func (uc *LedgerUsecase) Load(ctx context.Context) {
	loaded := make(map[string]*domain.WeeklyLedgerEntry)
	found, err := uc.store.Load(ctx, repo.SnapshotLedger, &loaded)
	if err != nil {
		uc.logger.Warn("ledger snapshot unreadable, starting empty", zap.Error(err))
		loaded = make(map[string]*domain.WeeklyLedgerEntry)
	}

	entries := make(map[string]*domain.WeeklyLedgerEntry, len(loaded))
	for groupID, e := range loaded {
		if e == nil {
			continue
		}
		if e.GroupID == "" {
			e.GroupID = groupID
		}
		entries[groupID] = e
	}

	uc.mu.Lock()
	uc.entries = entries
	uc.version++
	uc.mu.Unlock()

	if found {
		uc.logger.Info("ledger loaded", zap.Int("groups", len(entries)))
	}
}

func (uc *LedgerUsecase) getOrInitLocked(groupID, weekStart string) *domain.WeeklyLedgerEntry {
	e, ok := uc.entries[groupID]
	if !ok {
		e = domain.NewWeeklyLedgerEntry(groupID, weekStart)
		uc.entries[groupID] = e
		uc.version++
		return e
	}
	if e.IsStale(weekStart) {
		uc.logger.Info("week rollover, resetting entry",
			zap.String("group_id", groupID),
			zap.String("from", e.WeekStart),
			zap.String("to", weekStart),
			zap.Int("completed", len(e.Completed)))
		e.ResetTo(weekStart)
		uc.version++
	}
	return e
}

func (uc *LedgerUsecase) releaseLocked(r *Reservation) {
	if r == nil {
		return
	}
	events := uc.inflight[r.GroupID]
	delete(events, r.EventID)
	if len(events) == 0 {
		delete(uc.inflight, r.GroupID)
	}
}

func (uc *LedgerUsecase) snapshotLocked() map[string]*domain.WeeklyLedgerEntry {
	out := make(map[string]*domain.WeeklyLedgerEntry, len(uc.entries))
	for id, e := range uc.entries {
		out[id] = e.Clone()
	}
	return out
}
