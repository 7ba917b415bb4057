package journal

import (
	"fmt"
	"strings"
	"time"
)

// mapDocument builds the typed model from the generic YAML tree. Field names
// are matched explicitly against the export contract's snake_case keys — no
// struct-tag reflection. Optional fields tolerate absence, null, and type
// mismatch; only a missing or empty entry id aborts the parse.
func mapDocument(tree map[string]interface{}) (*Document, error) {
	doc := &Document{
		Metadata: mapMetadata(asMap(tree["metadata"])),
	}

	rawEntries := asSlice(tree["entries"])
	if len(rawEntries) > 0 {
		doc.Entries = make([]Entry, 0, len(rawEntries))
	}
	for i, raw := range rawEntries {
		m := asMap(raw)
		if m == nil {
			return nil, &MappingError{EntryIndex: i, Field: "entry", Reason: "not a mapping"}
		}
		entry, err := mapEntry(i, m)
		if err != nil {
			return nil, err
		}
		doc.Entries = append(doc.Entries, entry)
	}
	return doc, nil
}

func mapMetadata(m map[string]interface{}) Metadata {
	md := Metadata{
		FormatVersion: optString(m, "format_version"),
		CreatedAt:     optString(m, "created_at"),
		Source:        optString(m, "source"),
	}
	if pm := asMap(m["patient"]); pm != nil {
		md.Patient = &Patient{
			Name:           optString(pm, "name"),
			BirthDate:      optString(pm, "birth_date"),
			PersonalNumber: optString(pm, "personal_number"),
		}
	}
	if em := asMap(m["export_info"]); em != nil {
		info := &ExportInfo{
			TotalEntries: optInt(em, "total_entries"),
			Providers:    stringList(em, "healthcare_providers"),
		}
		if rm := asMap(em["date_range"]); rm != nil {
			info.DateRange = &DateRange{
				Start: optString(rm, "start"),
				End:   optString(rm, "end"),
			}
		}
		md.ExportInfo = info
	}
	return md
}

func mapEntry(index int, m map[string]interface{}) (Entry, error) {
	id := optString(m, "id")
	if strings.TrimSpace(id) == "" {
		return Entry{}, &MappingError{EntryIndex: index, Field: "id", Reason: "missing or empty"}
	}

	entry := Entry{
		ID:          id,
		Date:        optString(m, "date"),
		Time:        optString(m, "time"),
		Category:    optString(m, "category"),
		Type:        optString(m, "type"),
		Status:      optString(m, "status"),
		Attachments: stringList(m, "attachments"),
		Tags:        stringList(m, "tags"),
	}

	if pm := asMap(m["provider"]); pm != nil {
		entry.Provider = &Provider{
			Name:     optString(pm, "name"),
			Region:   optString(pm, "region"),
			Location: optString(pm, "location"),
		}
	}
	if rm := asMap(m["responsible_person"]); rm != nil {
		entry.ResponsiblePerson = &ResponsiblePerson{
			Name: optString(rm, "name"),
			Role: optString(rm, "role"),
		}
	}
	if cm := asMap(m["content"]); cm != nil {
		entry.Content = &Content{
			Summary: optString(cm, "summary"),
			Details: optString(cm, "details"),
			Notes:   stringList(cm, "notes"),
		}
	}
	return entry, nil
}

// asMap returns v as a string-keyed map, or nil when it is anything else.
func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

// asSlice returns v as a slice, or nil when it is anything else.
func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

// optString resolves an optional scalar field. Absence, null, and non-scalar
// values become ""; non-string scalars (the decoder types bare dates and
// counts on its own) are rendered back to their literal text.
func optString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool, int, int64, uint64, float64:
		return fmt.Sprintf("%v", v)
	case time.Time:
		// The decoder turns unquoted ISO dates into timestamps; render
		// them back to the text shape the export used.
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format(time.RFC3339)
	default:
		return ""
	}
}

// optInt resolves an optional integer field; anything unusable becomes 0.
func optInt(m map[string]interface{}, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// stringList resolves an optional list-of-strings field. Absence and null
// become nil; scalar elements of other types are rendered to text and
// non-scalar elements are dropped. Duplicates are kept.
func stringList(m map[string]interface{}, key string) []string {
	if m == nil {
		return nil
	}
	raw := asSlice(m[key])
	if raw == nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch e := v.(type) {
		case string:
			out = append(out, e)
		case bool, int, int64, uint64, float64:
			out = append(out, fmt.Sprintf("%v", e))
		}
	}
	return out
}
