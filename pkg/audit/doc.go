// Package audit persists per-row evaluation traces produced by the
// extraction engine.
//
// Every parsed row can be stored as a Record: the row's source coordinates,
// the rule document name and version, the extracted result bag and the
// ordered list of rule attempts. Records are written through a Storage
// backend (see the storage subpackage) and are queried by run, document,
// field, rule, outcome or time window.
//
// # Components
//
//   - Record and Entry: the persisted shape of one row and one rule attempt
//   - Query: filter and pagination parameters shared by every backend
//   - Storage: the backend interface (memory, SQLite)
//   - recorder.Recorder: converts engine traces into records asynchronously
//   - retention.Pruner: age and count based pruning on a cron schedule
//
// Audit records are diagnostics. Nothing in the extraction path reads them
// back, and a failing audit write never changes a result bag.
package audit
