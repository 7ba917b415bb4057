// Package journal parses exported medical-journal documents into a typed,
// immutable model.
//
// The pipeline is a straight line: repair the raw text (internal/repair),
// decode it as YAML into a generic tree, and map the tree onto the Document
// model with explicit per-field rules. A parse either yields a complete
// Document or an error; partial documents are never produced, so a caller
// can never show a silently incomplete medical history.
//
// The pipeline holds no shared state and is safe to run concurrently on
// different inputs.
package journal

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/evertsson/medjournal/internal/repair"
)

// Parse repairs and parses raw export text into a Document.
//
// On failure the returned error is a *DecodeError or *MappingError, both of
// which carry the repaired intermediate text so callers can persist it as a
// diagnostic artifact.
func Parse(text string) (*Document, error) {
	repaired := repair.Repair(text)

	var tree map[string]interface{}
	if err := yaml.Unmarshal([]byte(repaired), &tree); err != nil {
		return nil, &DecodeError{Repaired: repaired, Err: err}
	}

	doc, err := mapDocument(tree)
	if err != nil {
		var me *MappingError
		if errors.As(err, &me) {
			me.Repaired = repaired
		}
		return nil, err
	}
	return doc, nil
}

// ParseFile reads an export file and parses it. The file is read fully into
// memory before the pipeline runs; no I/O happens after this point.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading export %s: %w", path, err)
	}
	return Parse(string(data))
}

// Repair exposes the intermediate repaired text without decoding it.
// Diagnostic entry point for support tooling and test fixtures only;
// production consumers go through Parse.
func Repair(text string) string {
	return repair.Repair(text)
}
