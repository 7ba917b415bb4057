// Package repair normalizes structurally damaged journal exports.
//
// The browser extension that scrapes the health portal emits YAML that is
// almost valid but breaks indentation, array, and quoting rules in a handful
// of recurring ways. Each known malformation shape has its own pass here.
// Repair never fails: anything it does not recognize is left untouched and
// surfaces later as a decode error. Well-formed exports come back
// byte-for-byte identical, and running Repair on its own output is a no-op.
package repair

import (
	"regexp"
	"strings"
)

// indentStep is the nesting width the exporter uses for every level.
const indentStep = 2

// Repair applies the known malformation fixes in a fixed order and returns
// the corrected text. The order matters: dangling empty arrays must be merged
// before indentation is shifted (a `[]` at column zero would otherwise stop
// the shift early), and quote escaping assumes field boundaries are already
// consistent.
func Repair(text string) string {
	lines := strings.Split(text, "\n")
	lines = mergeDanglingArrays(lines)
	lines = normalizeDashGap(lines)
	lines = normalizeDashIndent(lines)
	lines = escapeEmbeddedQuotes(lines)
	return strings.Join(lines, "\n")
}

// keyOnlyRe matches a line that introduces a nested block: a bare key and
// colon with nothing after it, optionally opened by a list dash.
var keyOnlyRe = regexp.MustCompile(`^(?:- )?[\w-]+:$`)

// mergeDanglingArrays fixes exports that put an empty inline array on its own
// line at column zero, directly below the field it belongs to:
//
//	attachments:
//	[]
//
// becomes `attachments: []`. Only a lone `[]` with no indentation is merged;
// an indented `[]` is already valid block-style YAML and is left alone.
func mergeDanglingArrays(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimRight(line, "\r") == "[]" && len(out) > 0 {
			prev := strings.TrimRight(out[len(out)-1], "\r")
			if keyOnlyRe.MatchString(strings.TrimLeft(prev, " ")) {
				out[len(out)-1] = prev + " []"
				continue
			}
		}
		out = append(out, line)
	}
	return out
}

// dashGapRe matches a list-item dash followed by more than one space before
// the first field of the item.
var dashGapRe = regexp.MustCompile(`^(\s*)-\s{2,}([\w-]+:.*)$`)

// normalizeDashGap compacts the gap between a dash and the item's first
// field to a single space: `-     id: "e1"` becomes `- id: "e1"`. The
// exporter pads this gap inconsistently while still aligning the item's
// remaining fields to dash indent + 2, which the extra gap breaks.
func normalizeDashGap(lines []string) []string {
	for i, line := range lines {
		lines[i] = dashGapRe.ReplaceAllString(line, "$1- $2")
	}
	return lines
}

// normalizeDashIndent fixes list items whose dash sits one level too shallow,
// at the same indent as the key that owns the sequence:
//
//	entries:
//	  - id: "a"
//	    date: "2024-01-10"
//	- id: "b"
//	  date: "2024-01-11"
//
// The second item (and every line belonging to it, however deeply nested) is
// shifted right until the dash sits below its owning key like its siblings.
//
// The pass tracks block-opening keys on an indent stack. A dash is expected
// one step deeper than the nearest key at or above its own indent; when it is
// shallower, the dash line and all following lines deeper than the dash are
// shifted by the difference, stopping at the first line at or left of the
// original dash (the next item or key).
func normalizeDashIndent(lines []string) []string {
	var keys []int // indents of open block keys, shallowest first
	for i := 0; i < len(lines); i++ {
		t := strings.TrimRight(lines[i], "\r")
		body := strings.TrimLeft(t, " ")
		if body == "" || strings.HasPrefix(body, "#") {
			continue
		}
		indent := len(t) - len(body)

		if strings.HasPrefix(body, "- ") || body == "-" {
			// Keys nested deeper than this dash are closed by it.
			for len(keys) > 0 && keys[len(keys)-1] > indent {
				keys = keys[:len(keys)-1]
			}
			if len(keys) > 0 {
				want := keys[len(keys)-1] + indentStep
				if indent < want {
					shiftItem(lines, i, indent, want-indent)
					indent = want
				}
			}
			// A dash that opens a nested block (`- content:`) acts as a
			// block key for the lines below it.
			if rest := strings.TrimPrefix(body, "- "); keyOnlyRe.MatchString(rest) && rest != body {
				keys = append(keys, indent+indentStep)
			}
			continue
		}

		// Any non-dash line at or left of an open key closes that key.
		for len(keys) > 0 && keys[len(keys)-1] >= indent {
			keys = keys[:len(keys)-1]
		}
		if keyOnlyRe.MatchString(body) {
			keys = append(keys, indent)
		}
	}
	return lines
}

// shiftItem indents the dash line at index i and every following line that
// belongs to the same list item (indent deeper than the dash) by delta
// spaces. Blank lines inside the item are left as-is.
func shiftItem(lines []string, i, dashIndent, delta int) {
	pad := strings.Repeat(" ", delta)
	lines[i] = pad + lines[i]
	for j := i + 1; j < len(lines); j++ {
		t := strings.TrimRight(lines[j], "\r")
		body := strings.TrimLeft(t, " ")
		if body == "" {
			continue
		}
		if len(t)-len(body) <= dashIndent {
			return
		}
		lines[j] = pad + lines[j]
	}
}

// scalarKeyRe matches the prefix of a `key: value` line (optionally a list
// item's first field), up to and including the gap before the value.
var scalarKeyRe = regexp.MustCompile(`^\s*(?:- )?[\w-]+: `)

// escapeEmbeddedQuotes escapes unescaped double quotes inside double-quoted
// scalar values. The scraper copies quotation marks out of journal notes
// verbatim, producing values like:
//
//	summary: "Patienten beskriver "tryck" över bröstet"
//
// A scalar is treated as quoted when the value begins and ends with an
// unescaped double quote; every quote strictly between them that is not
// already escaped gets a backslash. Works for `key: "…"` fields, `- "…"`
// list items, and whole-line quoted scalars.
func escapeEmbeddedQuotes(lines []string) []string {
	for i, line := range lines {
		t := strings.TrimRight(line, "\r")
		cr := line[len(t):]

		var prefix, scalar string
		if m := scalarKeyRe.FindString(t); m != "" {
			prefix, scalar = m, t[len(m):]
		} else {
			body := strings.TrimLeft(t, " ")
			prefix = t[:len(t)-len(body)]
			if strings.HasPrefix(body, "- ") {
				prefix += "- "
				body = body[2:]
			}
			scalar = body
		}

		if fixed, changed := escapeInnerQuotes(scalar); changed {
			lines[i] = prefix + fixed + cr
		}
	}
	return lines
}

// escapeInnerQuotes escapes bare double quotes between the opening and
// closing quote of a quoted scalar. Returns the input unchanged when the
// value is not a quoted scalar or needs no fixing.
func escapeInnerQuotes(s string) (string, bool) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s, false
	}
	inner := s[1 : len(s)-1]
	trailing := 0
	for trailing < len(inner) && inner[len(inner)-1-trailing] == '\\' {
		trailing++
	}
	if trailing%2 == 1 {
		// The closing quote is itself escaped; not a terminated scalar.
		return s, false
	}

	var b strings.Builder
	b.Grow(len(s) + 4)
	b.WriteByte('"')
	changed := false
	escaped := false
	for j := 0; j < len(inner); j++ {
		c := inner[j]
		switch {
		case escaped:
			b.WriteByte(c)
			escaped = false
		case c == '\\':
			b.WriteByte(c)
			escaped = true
		case c == '"':
			b.WriteString(`\"`)
			changed = true
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	if !changed {
		return s, false
	}
	return b.String(), true
}
