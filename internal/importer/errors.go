package importer

import "fmt"

// FormatError reports an unusable header. It aborts the run before any batch.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format error: %s: %v", e.Reason, e.Err)
	}
	return "format error: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// MalformedRowError reports a data record that cannot be aligned with the
// header. The record is excluded and the run continues.
type MalformedRowError struct {
	Line   int
	Fields int
	Want   int
	Err    error
}

func (e *MalformedRowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed row at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed row at line %d: got %d fields, header has %d", e.Line, e.Fields, e.Want)
}

func (e *MalformedRowError) Unwrap() error { return e.Err }

// ValidationWarning records a value that was coerced during row parsing.
type ValidationWarning struct {
	Line   int
	SKU    string
	Field  string
	Value  string
	Reason string
}

func (w ValidationWarning) String() string {
	return fmt.Sprintf("line %d sku=%q %s=%q: %s", w.Line, w.SKU, w.Field, w.Value, w.Reason)
}

// BatchTransactionError wraps any failure inside a batch transaction. The
// batch was rolled back in full.
type BatchTransactionError struct {
	Seq  int
	Rows int
	Err  error
}

func (e *BatchTransactionError) Error() string {
	return fmt.Sprintf("batch %d (%d rows) rolled back: %v", e.Seq, e.Rows, e.Err)
}

func (e *BatchTransactionError) Unwrap() error { return e.Err }

// Skip reasons for rows that are neither errors nor written.
const (
	SkipEmptyKey         = "empty_key"
	SkipDuplicateInBatch = "duplicate_in_batch"
)

// SkippedRow is a row excluded from writing without being an error.
type SkippedRow struct {
	Line   int
	SKU    string
	Reason string
}
