package tracker

import (
	"sync"
	"time"
)

// State of an enforcement record.
type State uint8

const (
	StateInProgress State = iota
	StateCompleted
)

// Record is one offender's entry in the ledger.
type Record struct {
	State     State
	CreatedAt time.Time
}

// Tracker is the in-memory enforcement ledger. It is the only shared mutable
// state in the pipeline; TryClaim is the single synchronization point that
// guarantees at most one enforcement run per offender for the lifetime of
// the process. Records are never evicted.
type Tracker struct {
	mu      sync.Mutex
	records map[string]*Record
}

func New() *Tracker {
	return &Tracker{
		records: make(map[string]*Record),
	}
}

// TryClaim atomically claims an offender for enforcement. It returns true
// when the caller now owns processing; false when the offender is already
// in progress or completed. Concurrent callers for the same offender resolve
// deterministically: exactly one wins.
func (t *Tracker) TryClaim(offenderID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.records[offenderID]; exists {
		return false
	}

	t.records[offenderID] = &Record{
		State:     StateInProgress,
		CreatedAt: time.Now(),
	}
	return true
}

// Finalize marks an offender's record completed. Idempotent; finalizing an
// unknown offender is a no-op.
func (t *Tracker) Finalize(offenderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, exists := t.records[offenderID]; exists {
		rec.State = StateCompleted
	}
}

// IsTracked reports whether an offender has a record in any state. The
// coordinator uses this to discard duplicate intake events before spending
// a classification call.
func (t *Tracker) IsTracked(offenderID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, exists := t.records[offenderID]
	return exists
}

// Get returns a copy of an offender's record.
func (t *Tracker) Get(offenderID string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, exists := t.records[offenderID]
	if !exists {
		return Record{}, false
	}
	return *rec, true
}

// Len returns the number of tracked offenders. The ledger grows for the
// lifetime of the process; the health endpoint surfaces this.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.records)
}
