package ingest

import "fmt"

// IngestionError wraps a storage failure with the id of the record whose
// transaction rolled back. Malformed-record errors pass through unwrapped
// (they are detected before any write); everything raised inside the
// transaction, resolution failures included, arrives wrapped here and stays
// matchable through Unwrap.
type IngestionError struct {
	PostID string
	Err    error
}

// Error implements the error interface.
func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest post %s: %v", e.PostID, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *IngestionError) Unwrap() error { return e.Err }
