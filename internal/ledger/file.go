package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nao1215/newsledger/internal/model"
)

// FileLedger stores visits in a single JSON document of the form
//
//	{"source-a": 1710498600123, "source-b": 1710412200000}
//
// The document is loaded fully at open and rewritten after every accepted
// RecordVisit. Rewrites go through a temporary file and a rename so a crash
// never leaves a truncated ledger behind.
type FileLedger struct {
	// path is the JSON document location.
	path string

	// visits is the in-memory copy of the document.
	visits sync.Map

	// flushMu serializes rewrites of the single backing file.
	// Per-source decisions are taken before it is acquired.
	flushMu sync.Mutex

	// persisted mirrors the document on disk. Guarded by flushMu.
	// A rewrite is built from it, never from visits, so a value whose own
	// flush has not succeeded is never written on behalf of another source.
	persisted map[model.SourceID]model.Timestamp
}

// OpenFileLedger loads the ledger at path.
// A missing file is an empty ledger; it is created on the first write.
func OpenFileLedger(path string) (*FileLedger, error) {
	f := &FileLedger{path: path, persisted: make(map[model.SourceID]model.Timestamp)}

	data, err := os.ReadFile(path) //nolint:gosec // ledger path comes from configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return nil, storageErr("open", "", err)
	}

	if len(data) == 0 {
		return f, nil
	}

	var doc map[string]int64
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, storageErr("open", "", fmt.Errorf("malformed ledger %s: %w", path, err))
	}
	for id, ms := range doc {
		f.visits.Store(model.SourceID(id), model.Timestamp(ms))
		f.persisted[model.SourceID(id)] = model.Timestamp(ms)
	}

	return f, nil
}

// Path returns the location of the backing document.
func (f *FileLedger) Path() string {
	return f.path
}

// Get returns the last recorded visit for id.
func (f *FileLedger) Get(_ context.Context, id model.SourceID) (model.Timestamp, bool, error) {
	return load(&f.visits, id)
}

// RecordVisit advances the visit for id and flushes the document.
// When the flush fails the in-memory value is rolled back so that the caller
// and later Get calls agree that the visit is unconfirmed.
func (f *FileLedger) RecordVisit(_ context.Context, id model.SourceID, ts model.Timestamp) error {
	if id == "" {
		return ErrEmptySourceID
	}

	prev, hadPrev, changed := advance(&f.visits, id, ts)
	if !changed {
		return nil
	}

	if err := f.flush(id, ts); err != nil {
		revert(&f.visits, id, ts, prev, hadPrev)
		return storageErr("record", id, err)
	}
	return nil
}

// List returns every record sorted by source id.
func (f *FileLedger) List(_ context.Context) ([]model.VisitRecord, error) {
	return snapshot(&f.visits), nil
}

// Close is a no-op; every accepted write is already on disk.
func (f *FileLedger) Close() error {
	return nil
}

// flush writes the confirmed state plus ts for id to disk atomically.
func (f *FileLedger) flush(id model.SourceID, ts model.Timestamp) error {
	f.flushMu.Lock()
	defer f.flushMu.Unlock()

	if cur, ok := f.persisted[id]; ok && cur >= ts {
		return nil
	}

	doc := make(map[string]int64, len(f.persisted)+1)
	for sid, v := range f.persisted {
		doc[string(sid)] = int64(v)
	}
	doc[string(id)] = int64(ts)

	if err := f.write(doc); err != nil {
		return err
	}
	f.persisted[id] = ts
	return nil
}

// write replaces the backing file with doc through a temporary file.
func (f *FileLedger) write(doc map[string]int64) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to close ledger: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to replace ledger: %w", err)
	}

	return nil
}
