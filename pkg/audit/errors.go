package audit

import "fmt"

// StorageError wraps a backend failure with the backend name ("memory",
// "sqlite") and the operation that failed.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit %s %s: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// NewStorageError returns a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// QueryError reports a query rejected by Validate.
type QueryError struct {
	Query *Query
	Cause error
}

func (e *QueryError) Error() string {
	return "invalid audit query: " + e.Cause.Error()
}

func (e *QueryError) Unwrap() error { return e.Cause }

// NewQueryError returns a QueryError.
func NewQueryError(query *Query, cause error) *QueryError {
	return &QueryError{Query: query, Cause: cause}
}

// RecorderError reports a row whose record was dropped before reaching
// storage. Cause is context.Canceled after Close and
// context.DeadlineExceeded when the write buffer stayed full.
type RecorderError struct {
	RunID     string
	RowNumber int
	Cause     error
}

func (e *RecorderError) Error() string {
	return fmt.Sprintf("audit record of row %d (run %s) dropped: %v", e.RowNumber, e.RunID, e.Cause)
}

func (e *RecorderError) Unwrap() error { return e.Cause }

// RetentionError reports a failed pruning phase, "age" or "count".
type RetentionError struct {
	Phase string
	Cause error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("audit pruning by %s: %v", e.Phase, e.Cause)
}

func (e *RetentionError) Unwrap() error { return e.Cause }
