// Package ledger provides the visit ledger: a durable record of the most
// recent successfully processed timestamp per source.
//
// The ingestion loop asks the ledger when a source was last visited and only
// treats content newer than that as new. Once every article of a pass has been
// published it records the new high-water mark.
//
// # Guarantees
//
// All backends implement the same contract:
//   - Get never fails for an unknown source; absence means "never visited".
//   - RecordVisit never moves a source backwards. An older (or equal)
//     timestamp is silently ignored.
//   - Updates for the same source are linearizable. Updates for different
//     sources never change each other's outcome. The file and sqlite
//     backends still serialize their physical writes.
//   - I/O failures are returned as *StorageError, which matches ErrStorage.
//     Callers must treat the affected source as not yet confirmed processed.
//
// # Backends
//
//   - MemoryLedger: in-process map, for tests and dry runs
//   - FileLedger: one JSON document mapping source id to epoch milliseconds
//   - SQLiteLedger: modernc.org/sqlite with a conditional upsert
//   - RedisLedger: a Redis hash updated by a compare-and-set script
package ledger
