package assist

import (
	"strings"
	"testing"

	"github.com/evertsson/medjournal/internal/journal"
)

func sampleDocument() *journal.Document {
	return &journal.Document{
		Metadata: journal.Metadata{
			Patient: &journal.Patient{
				Name:           "Anna Andersson",
				BirthDate:      "1980-01-01",
				PersonalNumber: "19800101-1234",
			},
		},
		Entries: []journal.Entry{
			{
				ID:       "e1",
				Date:     "2024-01-10",
				Time:     "09:15",
				Category: "Besök",
				Status:   "Klar",
				Provider: &journal.Provider{Name: "Vårdcentralen Eken", Location: "Lund"},
				Content: &journal.Content{
					Summary: "Årskontroll",
					Notes:   []string{"Blodtryck 120/80"},
				},
			},
			{
				ID:       "e2",
				Date:     "2024-02-01",
				Category: "Provtagning",
			},
		},
	}
}

func TestBuildContextMasksPersonalNumber(t *testing.T) {
	ctx := BuildContext(sampleDocument(), Options{})
	if strings.Contains(ctx, "19800101-1234") {
		t.Fatal("raw personal number leaked into context")
	}
	if !strings.Contains(ctx, "19800101-****") {
		t.Error("masked personal number missing from header")
	}
	if !strings.Contains(ctx, "Anna Andersson") {
		t.Error("patient name missing from header")
	}
}

func TestBuildContextNewestFirst(t *testing.T) {
	ctx := BuildContext(sampleDocument(), Options{})
	feb := strings.Index(ctx, "2024-02-01")
	jan := strings.Index(ctx, "2024-01-10")
	if feb < 0 || jan < 0 {
		t.Fatalf("entries missing from context:\n%s", ctx)
	}
	if feb > jan {
		t.Error("entries not ordered newest first")
	}
	if !strings.Contains(ctx, "Årskontroll") || !strings.Contains(ctx, "- Blodtryck 120/80") {
		t.Errorf("entry content missing:\n%s", ctx)
	}
	if !strings.Contains(ctx, "Vårdcentralen Eken, Lund") {
		t.Errorf("provider line missing:\n%s", ctx)
	}
}

func TestBuildContextRespectsBudget(t *testing.T) {
	doc := sampleDocument()
	ctx := BuildContext(doc, Options{MaxChars: len("# Journalöversikt\n") + 120})
	if len(ctx) > 400 {
		t.Errorf("context exceeds budget: %d chars", len(ctx))
	}
	if !strings.Contains(ctx, "utelämnade") {
		t.Errorf("omitted-entries marker missing:\n%s", ctx)
	}
}

func TestBuildContextMaxEntries(t *testing.T) {
	ctx := BuildContext(sampleDocument(), Options{MaxEntries: 1})
	if !strings.Contains(ctx, "2024-02-01") {
		t.Error("newest entry should be the one kept")
	}
	if strings.Contains(ctx, "2024-01-10") {
		t.Error("older entry should have been dropped by MaxEntries")
	}
	if !strings.Contains(ctx, "(1 äldre poster utelämnade)") {
		t.Errorf("omitted count wrong:\n%s", ctx)
	}
}

func TestBuildContextUnknownDate(t *testing.T) {
	doc := &journal.Document{Entries: []journal.Entry{{ID: "x", Category: "Besök"}}}
	ctx := BuildContext(doc, Options{})
	if !strings.Contains(ctx, "okänt datum") {
		t.Errorf("unknown date not labelled:\n%s", ctx)
	}
}
