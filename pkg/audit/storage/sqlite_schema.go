package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the audit tables. Timestamps are stored as Unix
// nanoseconds so both drivers read them back identically.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    source TEXT NOT NULL,
    sheet TEXT,
    row_number INTEGER NOT NULL,
    config_name TEXT NOT NULL,
    config_version TEXT,
    trace_id TEXT,
    bag TEXT NOT NULL,
    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_entries (
    record_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    field TEXT NOT NULL,
    rule_id TEXT NOT NULL,
    strategy TEXT NOT NULL,
    outcome TEXT NOT NULL,
    value TEXT,
    detail TEXT,
    PRIMARY KEY (record_id, seq)
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_records_recorded_at ON audit_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_audit_records_run_id ON audit_records(run_id);
CREATE INDEX IF NOT EXISTS idx_audit_records_config_name ON audit_records(config_name);
CREATE INDEX IF NOT EXISTS idx_audit_entries_field_rule ON audit_entries(field, rule_id, outcome);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertRecord = `
INSERT INTO audit_records (
    id, run_id, source, sheet, row_number,
    config_name, config_version, trace_id, bag, recorded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const insertEntry = `
INSERT INTO audit_entries (
    record_id, seq, field, rule_id, strategy, outcome, value, detail
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const selectRecords = `
SELECT id, run_id, source, sheet, row_number,
       config_name, config_version, trace_id, bag, recorded_at
FROM audit_records r
`
