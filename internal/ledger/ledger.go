package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nao1215/newsledger/internal/model"
)

// Ledger records the last successful visit per source.
//
// Implementations must be safe for concurrent use.
type Ledger interface {
	// Get returns the last recorded visit for id.
	// ok is false when the source has never been visited; that is not an error.
	Get(ctx context.Context, id model.SourceID) (ts model.Timestamp, ok bool, err error)

	// RecordVisit stores ts as the last visit for id unless the stored value
	// is already at or past ts, in which case the call is a no-op.
	RecordVisit(ctx context.Context, id model.SourceID, ts model.Timestamp) error

	// List returns every record sorted by source id.
	List(ctx context.Context) ([]model.VisitRecord, error)

	// Close releases the backing store.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Default file names used inside the data directory.
const (
	DefaultFileName   = "ledger.json"
	DefaultSQLiteName = "newsledger.db"
)

// Options selects and configures a ledger backend.
type Options struct {
	// Backend is one of memory, file, sqlite, redis.
	Backend string

	// Dir is the data directory for the file and sqlite backends.
	Dir string

	// Path overrides the file or database path inside Dir.
	Path string

	// RedisURL is the redis:// URL for the redis backend.
	RedisURL string

	// RedisKey is the hash key holding the visits.
	RedisKey string
}

// Open creates the ledger described by opts.
func Open(ctx context.Context, opts Options) (Ledger, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendMemory:
		return NewMemoryLedger(), nil
	case "", BackendFile:
		return OpenFileLedger(resolvePath(opts, DefaultFileName))
	case BackendSQLite:
		return OpenSQLiteLedger(ctx, resolvePath(opts, DefaultSQLiteName), DefaultSQLiteOptions())
	case BackendRedis:
		return OpenRedisLedger(ctx, opts.RedisURL, opts.RedisKey)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// resolvePath returns opts.Path if set, otherwise name inside opts.Dir.
func resolvePath(opts Options, name string) string {
	if opts.Path != "" {
		return opts.Path
	}
	return filepath.Join(opts.Dir, name)
}

// sortRecords orders records by source id for stable listings.
func sortRecords(records []model.VisitRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].SourceID < records[j].SourceID
	})
}
