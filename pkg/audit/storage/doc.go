// Package storage provides audit storage backends.
//
// MemoryStorage keeps records in a map and is meant for tests and one-off
// runs. SQLiteStorage persists records to a SQLite file with one row per
// record and one row per rule attempt, so field, rule and outcome filters
// are answered by the database. It works with either the pure Go driver
// registered as "sqlite" (modernc.org/sqlite) or the cgo driver registered
// as "sqlite3" (github.com/mattn/go-sqlite3).
package storage
