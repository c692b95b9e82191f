package ledger

import (
	"context"
	"sync"

	"github.com/nao1215/newsledger/internal/model"
)

// MemoryLedger keeps visits in process memory.
// It satisfies the full Ledger contract except durability.
type MemoryLedger struct {
	// visits maps model.SourceID to model.Timestamp.
	visits sync.Map
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Get returns the last recorded visit for id.
func (m *MemoryLedger) Get(_ context.Context, id model.SourceID) (model.Timestamp, bool, error) {
	return load(&m.visits, id)
}

// RecordVisit advances the visit for id to ts if ts is newer.
func (m *MemoryLedger) RecordVisit(_ context.Context, id model.SourceID, ts model.Timestamp) error {
	if id == "" {
		return ErrEmptySourceID
	}
	advance(&m.visits, id, ts)
	return nil
}

// List returns every record sorted by source id.
func (m *MemoryLedger) List(_ context.Context) ([]model.VisitRecord, error) {
	return snapshot(&m.visits), nil
}

// Close is a no-op.
func (m *MemoryLedger) Close() error {
	return nil
}

// load reads one entry of a visits map.
func load(visits *sync.Map, id model.SourceID) (model.Timestamp, bool, error) {
	v, ok := visits.Load(id)
	if !ok {
		return 0, false, nil
	}
	ts, _ := v.(model.Timestamp) //nolint:errcheck // only Timestamps are stored
	return ts, true, nil
}

// advance moves id forward to ts with a compare-and-swap loop.
// It reports the previous value and whether the map was changed.
// Contention is per key: writers for other sources never block.
func advance(visits *sync.Map, id model.SourceID, ts model.Timestamp) (prev model.Timestamp, hadPrev, changed bool) {
	for {
		cur, loaded := visits.LoadOrStore(id, ts)
		if !loaded {
			return 0, false, true
		}
		curTS, _ := cur.(model.Timestamp) //nolint:errcheck // only Timestamps are stored
		if ts <= curTS {
			return curTS, true, false
		}
		if visits.CompareAndSwap(id, cur, ts) {
			return curTS, true, true
		}
	}
}

// revert undoes an advance of id to ts, unless another writer already moved it.
func revert(visits *sync.Map, id model.SourceID, ts, prev model.Timestamp, hadPrev bool) {
	if hadPrev {
		visits.CompareAndSwap(id, ts, prev)
		return
	}
	visits.CompareAndDelete(id, ts)
}

// snapshot copies a visits map into sorted records.
func snapshot(visits *sync.Map) []model.VisitRecord {
	records := make([]model.VisitRecord, 0)
	visits.Range(func(k, v any) bool {
		id, _ := k.(model.SourceID)   //nolint:errcheck // only SourceIDs are stored
		ts, _ := v.(model.Timestamp) //nolint:errcheck // only Timestamps are stored
		records = append(records, model.VisitRecord{SourceID: id, LastVisitedAt: ts})
		return true
	})
	sortRecords(records)
	return records
}
