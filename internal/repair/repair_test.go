package repair

import (
	"fmt"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// wellFormedExport is a canonical export as the scraper produces it on a good
// day. Repair must return it byte-for-byte identical.
const wellFormedExport = `metadata:
  format_version: "1.0"
  created_at: "2024-03-01T10:00:00Z"
  source: "journalen"
  patient:
    name: "Anna Andersson"
    birth_date: "1980-01-01"
    personal_number: "19800101-1234"
  export_info:
    total_entries: 2
    date_range:
      start: "2024-01-10"
      end: "2024-01-11"
    healthcare_providers:
      - "Vårdcentralen Eken"
entries:
  - id: "e1"
    date: "2024-01-10"
    time: "09:15"
    category: "Besök"
    type: "Läkarbesök"
    provider:
      name: "Vårdcentralen Eken"
      region: "Region Skåne"
      location: "Lund"
    status: "Klar"
    responsible_person:
      name: "Dr. Berg"
      role: "Läkare"
    content:
      summary: "Årskontroll"
      details: "Rutinkontroll utan anmärkning"
      notes:
        - "Blodtryck 120/80"
        - "Återbesök om ett år"
    attachments: []
    tags:
      - "kontroll"
  - id: "e2"
    date: "2024-01-11"
    category: "Provtagning"
    status: "Klar"
    attachments: []
    tags: []
`

func TestRepairPassThrough(t *testing.T) {
	got := Repair(wellFormedExport)
	if got != wellFormedExport {
		t.Errorf("well-formed input was modified:\n%s", diffHint(wellFormedExport, got))
	}
}

func TestRepairIdempotent(t *testing.T) {
	inputs := map[string]string{
		"well-formed":     wellFormedExport,
		"dangling array":  "metadata:\n  source: \"x\"\nentries:\n  - id: \"e1\"\n    attachments:\n[]\n",
		"dash gap":        "entries:\n  -     id: \"e1\"\n    date: \"2024-01-10\"\n",
		"indent shift":    "entries:\n  - id: \"e1\"\n    date: \"2024-01-10\"\n- id: \"e2\"\n  date: \"2024-01-11\"\n",
		"embedded quotes": "entries:\n  - id: \"e1\"\n    content:\n      summary: \"Patienten beskriver \"tryck\" över bröstet\"\n",
		"not yaml at all": "<html>definitely not an export</html>\n",
	}
	for name, in := range inputs {
		once := Repair(in)
		twice := Repair(once)
		if twice != once {
			t.Errorf("%s: repair is not idempotent:\n%s", name, diffHint(once, twice))
		}
	}
}

func TestMergeDanglingArrays(t *testing.T) {
	in := "entries:\n" +
		"  - id: \"e1\"\n" +
		"    attachments:\n" +
		"[]\n" +
		"    tags: []\n"
	want := "entries:\n" +
		"  - id: \"e1\"\n" +
		"    attachments: []\n" +
		"    tags: []\n"
	if got := Repair(in); got != want {
		t.Errorf("dangling array not merged:\n%s", diffHint(want, got))
	}
}

func TestMergeDanglingArraysLeavesIndentedArrays(t *testing.T) {
	// An indented [] below its key is valid block YAML already.
	in := "attachments:\n  []\n"
	if got := Repair(in); got != in {
		t.Errorf("valid indented array was modified: %q", got)
	}
}

func TestNormalizeDashGap(t *testing.T) {
	in := "entries:\n" +
		"  -     id: \"e1\"\n" +
		"    date: \"2024-01-10\"\n"
	want := "entries:\n" +
		"  - id: \"e1\"\n" +
		"    date: \"2024-01-10\"\n"
	if got := Repair(in); got != want {
		t.Errorf("dash gap not compacted:\n%s", diffHint(want, got))
	}
	mustDecode(t, Repair(in))
}

func TestNormalizeDashIndentShiftsWholeItem(t *testing.T) {
	in := "entries:\n" +
		"- id: \"e1\"\n" +
		"  date: \"2024-01-10\"\n" +
		"  provider:\n" +
		"    name: \"Vårdcentralen Eken\"\n" +
		"    region: \"Region Skåne\"\n" +
		"  tags:\n" +
		"    - \"kontroll\"\n"
	want := "entries:\n" +
		"  - id: \"e1\"\n" +
		"    date: \"2024-01-10\"\n" +
		"    provider:\n" +
		"      name: \"Vårdcentralen Eken\"\n" +
		"      region: \"Region Skåne\"\n" +
		"    tags:\n" +
		"      - \"kontroll\"\n"
	got := Repair(in)
	if got != want {
		t.Errorf("shifted item mismatch:\n%s", diffHint(want, got))
	}

	tree := mustDecode(t, got)
	entries := tree["entries"].([]interface{})
	entry := entries[0].(map[string]interface{})
	provider := entry["provider"].(map[string]interface{})
	if provider["name"] != "Vårdcentralen Eken" {
		t.Errorf("provider.name = %v after repair", provider["name"])
	}
}

func TestNormalizeDashIndentMixedItems(t *testing.T) {
	// One well-formed item followed by one shifted item with a nested list
	// and a dangling empty array. Both must survive with full fidelity.
	in := "entries:\n" +
		"  - id: \"e1\"\n" +
		"    date: \"2024-01-10\"\n" +
		"    tags: []\n" +
		"- id: \"e2\"\n" +
		"  date: \"2024-01-11\"\n" +
		"  content:\n" +
		"    notes:\n" +
		"      - \"Blodtryck 120/80\"\n" +
		"  attachments:\n" +
		"[]\n" +
		"  tags:\n" +
		"    - \"prov\"\n" +
		"    - \"prov\"\n"
	got := Repair(in)
	tree := mustDecode(t, got)

	entries := tree["entries"].([]interface{})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after repair, got %d", len(entries))
	}
	second := entries[1].(map[string]interface{})
	if second["id"] != "e2" {
		t.Errorf("second entry id = %v", second["id"])
	}
	content := second["content"].(map[string]interface{})
	notes := content["notes"].([]interface{})
	if len(notes) != 1 || notes[0] != "Blodtryck 120/80" {
		t.Errorf("nested notes lost in shift: %v", notes)
	}
	if atts := second["attachments"].([]interface{}); len(atts) != 0 {
		t.Errorf("attachments should be empty, got %v", atts)
	}
	tags := second["tags"].([]interface{})
	if len(tags) != 2 {
		t.Errorf("duplicate tags must be preserved, got %v", tags)
	}
}

func TestNormalizeDashIndentNestedList(t *testing.T) {
	// The shift also applies to scalar list items one level too shallow.
	in := "content:\n" +
		"  notes:\n" +
		"    - \"first\"\n" +
		"  - \"second\"\n"
	want := "content:\n" +
		"  notes:\n" +
		"    - \"first\"\n" +
		"    - \"second\"\n"
	if got := Repair(in); got != want {
		t.Errorf("nested scalar item not shifted:\n%s", diffHint(want, got))
	}
}

func TestEscapeEmbeddedQuotes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "inline field value",
			in:   `      summary: "Patienten beskriver "tryck" över bröstet"`,
			want: `      summary: "Patienten beskriver \"tryck\" över bröstet"`,
		},
		{
			name: "list item scalar",
			in:   `        - "Citat: "vila mera""`,
			want: `        - "Citat: \"vila mera\""`,
		},
		{
			name: "whole-line scalar",
			in:   `"fritext med "citat" mitt i"`,
			want: `"fritext med \"citat\" mitt i"`,
		},
		{
			name: "already escaped stays put",
			in:   `summary: "redan \"fixad\" text"`,
			want: `summary: "redan \"fixad\" text"`,
		},
		{
			name: "unquoted value untouched",
			in:   `summary: Patienten sa "hej"`,
			want: `summary: Patienten sa "hej"`,
		},
		{
			name: "plain quoted value untouched",
			in:   `summary: "ingen inre citat"`,
			want: `summary: "ingen inre citat"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Repair(tt.in); got != tt.want {
				t.Errorf("Repair(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEscapedQuotesDecodeToLiterals(t *testing.T) {
	in := "content:\n" +
		"  summary: \"Patienten beskriver \"tryck\" över bröstet\"\n"
	tree := mustDecode(t, Repair(in))
	content := tree["content"].(map[string]interface{})
	want := `Patienten beskriver "tryck" över bröstet`
	if content["summary"] != want {
		t.Errorf("summary = %q, want %q", content["summary"], want)
	}
}

func TestRepairLeavesUnknownMalformationsAlone(t *testing.T) {
	// A tab-indented document is broken in a way Repair does not know.
	// It must pass through untouched and fail at decode time instead.
	in := "entries:\n\t- id: \"e1\"\n"
	if got := Repair(in); got != in {
		t.Errorf("unknown malformation was modified: %q", got)
	}
}

func TestRepairFullDamagedExportDecodes(t *testing.T) {
	in := "metadata:\n" +
		"  format_version: \"1.0\"\n" +
		"  patient:\n" +
		"    name: \"Anna Andersson\"\n" +
		"entries:\n" +
		"  -     id: \"e1\"\n" +
		"    date: \"2024-01-10\"\n" +
		"    attachments:\n" +
		"[]\n" +
		"- id: \"e2\"\n" +
		"  content:\n" +
		"    summary: \"Ont i \"vänster\" arm\"\n" +
		"  tags: []\n"
	repaired := Repair(in)
	tree := mustDecode(t, repaired)
	entries := tree["entries"].([]interface{})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

// mustDecode parses repaired text with the same decoder the pipeline uses.
func mustDecode(t *testing.T, text string) map[string]interface{} {
	t.Helper()
	var tree map[string]interface{}
	if err := yaml.Unmarshal([]byte(text), &tree); err != nil {
		t.Fatalf("repaired text does not decode: %v\n%s", err, text)
	}
	return tree
}

// diffHint shows the first differing line of two texts.
func diffHint(want, got string) string {
	wantLines := strings.Split(want, "\n")
	gotLines := strings.Split(got, "\n")
	n := len(wantLines)
	if len(gotLines) < n {
		n = len(gotLines)
	}
	for i := 0; i < n; i++ {
		if wantLines[i] != gotLines[i] {
			return fmt.Sprintf("line %d:\n  want: %s\n  got:  %s", i+1, wantLines[i], gotLines[i])
		}
	}
	return fmt.Sprintf("line count differs: want %d, got %d", len(wantLines), len(gotLines))
}
