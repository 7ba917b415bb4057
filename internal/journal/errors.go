package journal

import "fmt"

// DecodeError means the repaired text is still not valid YAML: the export
// was malformed in a way the repair passes do not recognize. Err carries the
// decoder's own diagnostic (with line position) verbatim.
type DecodeError struct {
	Err      error
	Repaired string // the repaired intermediate text, for debug artifacts
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding repaired export: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MappingError means the export decoded but violates a mandatory invariant.
// EntryIndex is the zero-based position of the offending entry, or -1 for a
// document-level violation.
type MappingError struct {
	EntryIndex int
	Field      string
	Reason     string
	Repaired   string // set by Parse before the error is returned
}

func (e *MappingError) Error() string {
	if e.EntryIndex < 0 {
		return fmt.Sprintf("mapping export: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("mapping entry %d: %s: %s", e.EntryIndex, e.Field, e.Reason)
}
