// Package assist builds plain-text context blocks from a parsed journal for
// the AI assistant's prompts. The personal number is always masked; raw
// identifiers never enter a prompt.
package assist

import (
	"fmt"
	"strings"

	"github.com/evertsson/medjournal/internal/journal"
	"github.com/evertsson/medjournal/internal/timeline"
)

// DefaultMaxChars bounds the context block size.
const DefaultMaxChars = 8000

// Options controls context building.
type Options struct {
	MaxChars   int // overall character budget, DefaultMaxChars when <= 0
	MaxEntries int // cap on included entries, 0 = no cap
}

// BuildContext renders a document as an assistant context block: a patient
// header followed by entries newest first, truncated to the budget. Omitted
// entries are summarized in a trailing line so the assistant knows the
// history is longer than what it sees.
func BuildContext(doc *journal.Document, opts Options) string {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}

	var b strings.Builder
	writeHeader(&b, doc)

	entries := timeline.Sort(doc.Entries)
	if opts.MaxEntries > 0 && len(entries) > opts.MaxEntries {
		entries = entries[:opts.MaxEntries]
	}

	included := 0
	for _, e := range entries {
		block := formatEntry(e)
		if b.Len()+len(block) > opts.MaxChars {
			break
		}
		b.WriteString(block)
		included++
	}

	if omitted := len(doc.Entries) - included; omitted > 0 {
		b.WriteString(fmt.Sprintf("\n(%d äldre poster utelämnade)\n", omitted))
	}
	return b.String()
}

func writeHeader(b *strings.Builder, doc *journal.Document) {
	b.WriteString("# Journalöversikt\n")
	if p := doc.Metadata.Patient; p != nil {
		if p.Name != "" {
			fmt.Fprintf(b, "Patient: %s\n", p.Name)
		}
		if p.BirthDate != "" {
			fmt.Fprintf(b, "Född: %s\n", p.BirthDate)
		}
		if masked := p.MaskedPersonalNumber(); masked != "" {
			fmt.Fprintf(b, "Personnummer: %s\n", masked)
		}
	}
	fmt.Fprintf(b, "Antal poster: %d\n\n", len(doc.Entries))
}

func formatEntry(e journal.Entry) string {
	var b strings.Builder

	date := e.Date
	if date == "" {
		date = "okänt datum"
	}
	head := "## " + date
	if e.Time != "" {
		head += " " + e.Time
	}
	if e.Category != "" {
		head += " — " + e.Category
	}
	if e.Type != "" && e.Type != e.Category {
		head += " (" + e.Type + ")"
	}
	b.WriteString(head + "\n")

	if e.Provider != nil && e.Provider.Name != "" {
		line := e.Provider.Name
		if e.Provider.Location != "" {
			line += ", " + e.Provider.Location
		}
		b.WriteString(line + "\n")
	}
	if e.ResponsiblePerson != nil && e.ResponsiblePerson.Name != "" {
		line := e.ResponsiblePerson.Name
		if e.ResponsiblePerson.Role != "" {
			line += " (" + e.ResponsiblePerson.Role + ")"
		}
		b.WriteString(line + "\n")
	}
	if e.Status != "" {
		b.WriteString("Status: " + e.Status + "\n")
	}
	if e.Content != nil {
		if e.Content.Summary != "" {
			b.WriteString(e.Content.Summary + "\n")
		}
		if e.Content.Details != "" {
			b.WriteString(e.Content.Details + "\n")
		}
		for _, note := range e.Content.Notes {
			b.WriteString("- " + note + "\n")
		}
	}
	b.WriteString("\n")
	return b.String()
}
