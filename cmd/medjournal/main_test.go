package main

import "testing"

func TestParseFlags(t *testing.T) {
	f, err := parseFlags([]string{"export.yaml", "--profile", "anna", "--category=Besök", "--limit", "10"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if len(f.args) != 1 || f.args[0] != "export.yaml" {
		t.Errorf("args = %v", f.args)
	}
	if f.profile != "anna" || f.category != "Besök" || f.limit != 10 {
		t.Errorf("flags = %+v", f)
	}
}

func TestParseFlagsShortProfile(t *testing.T) {
	f, err := parseFlags([]string{"-p", "erik"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if f.profile != "erik" {
		t.Errorf("profile = %q", f.profile)
	}
}

func TestParseFlagsErrors(t *testing.T) {
	cases := [][]string{
		{"--unknown"},
		{"--profile"},
		{"--limit", "zero"},
		{"--limit", "-3"},
		{"--max-chars", "nan"},
	}
	for _, args := range cases {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("parseFlags(%v) should fail", args)
		}
	}
}

func TestParseFlagsDateRange(t *testing.T) {
	f, err := parseFlags([]string{"--from=2024-01-01", "--to=2024-12-31"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if f.from != "2024-01-01" || f.to != "2024-12-31" {
		t.Errorf("range = %q..%q", f.from, f.to)
	}
}
