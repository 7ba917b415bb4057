package journal

import "strings"

// Document is one patient's full exported journal history. Entries keep the
// exact order they had in the export; consumers sort for display. The whole
// model is immutable after Parse returns it.
type Document struct {
	Metadata Metadata
	Entries  []Entry
}

// Metadata describes the export itself. All values are stored exactly as
// they appeared in the export; nothing is normalized here.
type Metadata struct {
	FormatVersion string
	CreatedAt     string
	Source        string
	Patient       *Patient
	ExportInfo    *ExportInfo
}

// Patient identifies the exported patient. Every field is optional.
type Patient struct {
	Name      string
	BirthDate string
	// PersonalNumber is the national identifier. Sensitive: never log or
	// display it raw — use MaskedPersonalNumber for any output path.
	PersonalNumber string
}

// MaskedPersonalNumber returns the personal number with the last four
// digits replaced, or "" when absent.
func (p *Patient) MaskedPersonalNumber() string {
	pn := p.PersonalNumber
	if pn == "" {
		return ""
	}
	if len(pn) <= 4 {
		return strings.Repeat("*", len(pn))
	}
	return pn[:len(pn)-4] + "****"
}

// ExportInfo is summary data reported by the exporter. TotalEntries is what
// the exporter claims, not what was decoded; the two may legitimately
// disagree and no validation ties them together.
type ExportInfo struct {
	TotalEntries int
	DateRange    *DateRange
	Providers    []string
}

// DateRange is the reported span of the export.
type DateRange struct {
	Start string
	End   string
}

// Entry is one journal record. ID is the only mandatory field. Date and Time
// are loosely formatted strings (ISO preferred, not guaranteed); Category,
// Type, and Status are open free-text labels. Duplicate IDs are legal — the
// upstream scraper is known to double-submit — and lists are never
// deduplicated.
type Entry struct {
	ID                string
	Date              string
	Time              string
	Category          string
	Type              string
	Status            string
	Provider          *Provider
	ResponsiblePerson *ResponsiblePerson
	Content           *Content
	Attachments       []string
	Tags              []string
}

// Provider is the care unit behind an entry.
type Provider struct {
	Name     string
	Region   string
	Location string
}

// ResponsiblePerson is the clinician responsible for an entry.
type ResponsiblePerson struct {
	Name string
	Role string
}

// Content holds the free-text body of an entry.
type Content struct {
	Summary string
	Details string
	Notes   []string
}
