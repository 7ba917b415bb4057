// Package timeline turns a parsed journal into display-ready views.
//
// The Document model keeps entries in export order and stores dates as the
// loose strings the exporter produced; anything presentational — sorting,
// date interpretation, filtering — happens here instead. All functions are
// pure and never modify their input.
package timeline

import (
	"sort"
	"strings"
	"time"

	"github.com/evertsson/medjournal/internal/journal"
)

// Filter selects a subset of entries. Zero values match everything.
// Category and Provider match case-insensitively; From and To are inclusive
// ISO date bounds. Entries whose date cannot be read are excluded whenever a
// date bound is set.
type Filter struct {
	Category string
	Provider string
	From     string
	To       string
}

// dateFormats are the shapes seen in real exports, ISO first.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04",
	"02/01/2006",
}

// EntryDate interprets an entry's loose date string. ok is false when the
// date is absent or unreadable — "unknown" is a normal state, never an error.
func EntryDate(e journal.Entry) (time.Time, bool) {
	s := strings.TrimSpace(e.Date)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Sort returns the entries ordered newest first. Entries with an unknown
// date sort after all dated ones; ties keep export order (the sort is
// stable). The input slice is not touched.
func Sort(entries []journal.Entry) []journal.Entry {
	out := make([]journal.Entry, len(entries))
	copy(out, entries)

	sort.SliceStable(out, func(i, j int) bool {
		di, oki := EntryDate(out[i])
		dj, okj := EntryDate(out[j])
		if oki != okj {
			return oki // dated before undated
		}
		if !oki {
			return false
		}
		return di.After(dj)
	})
	return out
}

// Apply returns the entries matching the filter, in their original order.
func Apply(entries []journal.Entry, f Filter) []journal.Entry {
	var from, to time.Time
	var fromOK, toOK bool
	if f.From != "" {
		from, fromOK = parseBound(f.From)
	}
	if f.To != "" {
		to, toOK = parseBound(f.To)
	}

	var out []journal.Entry
	for _, e := range entries {
		if f.Category != "" && !strings.EqualFold(e.Category, f.Category) {
			continue
		}
		if f.Provider != "" {
			if e.Provider == nil || !strings.EqualFold(e.Provider.Name, f.Provider) {
				continue
			}
		}
		if f.From != "" || f.To != "" {
			d, ok := EntryDate(e)
			if !ok {
				continue
			}
			if fromOK && d.Before(from) {
				continue
			}
			if toOK && d.After(to) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Categories counts entries per category label. Entries without a category
// are counted under "".
func Categories(entries []journal.Entry) map[string]int {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.Category]++
	}
	return counts
}

func parseBound(s string) (time.Time, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
