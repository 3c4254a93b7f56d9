package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)

	"mercator-hq/pricelist/pkg/audit"
	"mercator-hq/pricelist/pkg/extraction/engine"
	"mercator-hq/pricelist/pkg/rules/ast"
)

const backendSQLite = "sqlite"

// Supported database/sql driver names.
const (
	DriverModernc = "sqlite"
	DriverCGo     = "sqlite3"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver is the database/sql driver: "sqlite" (modernc.org/sqlite)
	// or "sqlite3" (github.com/mattn/go-sqlite3).
	// Default: "sqlite"
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		Driver:       DriverModernc,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, creates the schema and verifies its
// version.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverModernc
	}
	if config.Driver != DriverModernc && config.Driver != DriverCGo {
		return nil, audit.NewStorageError(backendSQLite, "open",
			fmt.Errorf("unknown driver %q (must be %q or %q)", config.Driver, DriverModernc, DriverCGo))
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open(config.Driver, dsn(config))
	if err != nil {
		return nil, audit.NewStorageError(backendSQLite, "open", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// dsn builds the connection string. The two drivers spell connection
// pragmas differently; busy_timeout must be set per connection.
func dsn(config *SQLiteConfig) string {
	ms := config.BusyTimeout.Milliseconds()
	if config.Driver == DriverCGo {
		return fmt.Sprintf("file:%s?_busy_timeout=%d", config.Path, ms)
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", config.Path, ms)
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError(backendSQLite, "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError(backendSQLite, "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError(backendSQLite, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return audit.NewStorageError(backendSQLite, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError(backendSQLite, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists one record and its entries in a transaction.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	return s.StoreBatch(ctx, []*audit.Record{record})
}

// StoreBatch persists records in a single transaction.
func (s *SQLiteStorage) StoreBatch(ctx context.Context, records []*audit.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return audit.NewStorageError(backendSQLite, "begin", err)
	}
	defer tx.Rollback()

	recStmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return audit.NewStorageError(backendSQLite, "prepare", err)
	}
	defer recStmt.Close()

	entryStmt, err := tx.PrepareContext(ctx, insertEntry)
	if err != nil {
		return audit.NewStorageError(backendSQLite, "prepare", err)
	}
	defer entryStmt.Close()

	for _, record := range records {
		bag, err := json.Marshal(record.Bag)
		if err != nil {
			return audit.NewStorageError(backendSQLite, "marshal_bag", err)
		}

		_, err = recStmt.ExecContext(ctx,
			record.ID, record.RunID, record.Source, record.Sheet, record.RowNumber,
			record.ConfigName, record.ConfigVersion, record.TraceID, string(bag),
			record.Timestamp.UnixNano(),
		)
		if err != nil {
			return audit.NewStorageError(backendSQLite, "store", err)
		}

		for i, e := range record.Entries {
			_, err = entryStmt.ExecContext(ctx,
				record.ID, i, e.Field, e.RuleID, string(e.Strategy), string(e.Outcome), e.Value, e.Detail,
			)
			if err != nil {
				return audit.NewStorageError(backendSQLite, "store_entry", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return audit.NewStorageError(backendSQLite, "commit", err)
	}
	return nil
}

// Query retrieves records matching the query filters with their entries.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	where, args := buildWhereClause(query)

	order := "ASC"
	if query.SortOrder == "desc" {
		order = "DESC"
	}

	sqlQuery := selectRecords + where +
		fmt.Sprintf(" ORDER BY r.recorded_at %s, r.row_number %s, r.id %s", order, order, order)
	if query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", query.Limit)
	} else if query.Offset > 0 {
		sqlQuery += " LIMIT -1"
	}
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError(backendSQLite, "query", err)
	}
	defer rows.Close()

	var records []*audit.Record
	byID := make(map[string]*audit.Record)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError(backendSQLite, "scan", err)
		}
		records = append(records, record)
		byID[record.ID] = record
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError(backendSQLite, "query", err)
	}
	rows.Close()

	if err := s.loadEntries(ctx, byID); err != nil {
		return nil, err
	}

	if records == nil {
		records = []*audit.Record{}
	}
	return records, nil
}

// entryBatch bounds the ids bound per entry query, well under SQLite's
// host parameter limit.
const entryBatch = 500

func (s *SQLiteStorage) loadEntries(ctx context.Context, byID map[string]*audit.Record) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	for start := 0; start < len(ids); start += entryBatch {
		end := min(start+entryBatch, len(ids))
		if err := s.loadEntryBatch(ctx, ids[start:end], byID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) loadEntryBatch(ctx context.Context, ids []string, byID map[string]*audit.Record) error {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	sqlQuery := `SELECT record_id, field, rule_id, strategy, outcome, value, detail
		FROM audit_entries WHERE record_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY record_id, seq`

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return audit.NewStorageError(backendSQLite, "query_entries", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			recordID, strategy, outcome string
			value, detail               sql.NullString
			e                           audit.Entry
		)
		if err := rows.Scan(&recordID, &e.Field, &e.RuleID, &strategy, &outcome, &value, &detail); err != nil {
			return audit.NewStorageError(backendSQLite, "scan_entry", err)
		}
		e.Strategy = ast.StrategyType(strategy)
		e.Outcome = engine.Outcome(outcome)
		e.Value = value.String
		e.Detail = detail.String

		record := byID[recordID]
		record.Entries = append(record.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return audit.NewStorageError(backendSQLite, "query_entries", err)
	}
	return nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhereClause(query)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records r"+where, args...).Scan(&count)
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "count", err)
	}
	return count, nil
}

// Delete removes matching records and their entries.
func (s *SQLiteStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhereClause(query)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "begin", err)
	}
	defer tx.Rollback()

	// Records go first: entry filters in where read audit_entries.
	result, err := tx.ExecContext(ctx, "DELETE FROM audit_records WHERE id IN (SELECT r.id FROM audit_records r"+where+")", args...)
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "delete", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "rows_affected", err)
	}

	_, err = tx.ExecContext(ctx,
		"DELETE FROM audit_entries WHERE record_id NOT IN (SELECT id FROM audit_records)")
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "delete_entries", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, audit.NewStorageError(backendSQLite, "commit", err)
	}

	s.logger.Debug("audit records deleted", "count", deleted)
	return deleted, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError(backendSQLite, "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// buildWhereClause renders the filters of a query against alias r.
func buildWhereClause(query *audit.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if query.StartTime != nil {
		conditions = append(conditions, "r.recorded_at >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "r.recorded_at <= ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if query.RunID != "" {
		conditions = append(conditions, "r.run_id = ?")
		args = append(args, query.RunID)
	}
	if query.ConfigName != "" {
		conditions = append(conditions, "r.config_name = ?")
		args = append(args, query.ConfigName)
	}
	if query.Source != "" {
		conditions = append(conditions, "r.source = ?")
		args = append(args, query.Source)
	}

	if query.HasEntryFilter() {
		var entryConds []string
		if query.Field != "" {
			entryConds = append(entryConds, "e.field = ?")
			args = append(args, query.Field)
		}
		if query.RuleID != "" {
			entryConds = append(entryConds, "e.rule_id = ?")
			args = append(args, query.RuleID)
		}
		if query.Outcome != "" {
			entryConds = append(entryConds, "e.outcome = ?")
			args = append(args, string(query.Outcome))
		}
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM audit_entries e WHERE e.record_id = r.id AND "+
				strings.Join(entryConds, " AND ")+")")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var (
		record                  audit.Record
		sheet, version, traceID sql.NullString
		bag                     string
		recordedAt              int64
	)

	err := rows.Scan(
		&record.ID, &record.RunID, &record.Source, &sheet, &record.RowNumber,
		&record.ConfigName, &version, &traceID, &bag, &recordedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Sheet = sheet.String
	record.ConfigVersion = version.String
	record.TraceID = traceID.String
	record.Timestamp = time.Unix(0, recordedAt)
	if err := json.Unmarshal([]byte(bag), &record.Bag); err != nil {
		return nil, fmt.Errorf("decode bag of %s: %w", record.ID, err)
	}
	return &record, nil
}
