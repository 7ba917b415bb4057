package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/evertsson/medjournal/internal/assist"
	"github.com/evertsson/medjournal/internal/config"
	"github.com/evertsson/medjournal/internal/journal"
	"github.com/evertsson/medjournal/internal/mcp"
	"github.com/evertsson/medjournal/internal/store"
)

// cliFlags holds the flags shared across commands. Remaining positional
// arguments end up in args.
type cliFlags struct {
	profile  string
	db       string
	category string
	from     string
	to       string
	limit    int
	maxChars int
	args     []string
}

// parseFlags walks the argument list with the usual manual loop. Unknown
// flags are an error; values may be attached with '=' or follow as the next
// argument.
func parseFlags(args []string) (cliFlags, error) {
	f := cliFlags{limit: 50}

	take := func(i *int, name string) (string, error) {
		arg := args[*i]
		if eq := strings.IndexByte(arg, '='); eq >= 0 {
			return arg[eq+1:], nil
		}
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name := arg
		if eq := strings.IndexByte(arg, '='); eq >= 0 {
			name = arg[:eq]
		}
		switch name {
		case "--profile", "-p":
			v, err := take(&i, name)
			if err != nil {
				return f, err
			}
			f.profile = v
		case "--db":
			v, err := take(&i, name)
			if err != nil {
				return f, err
			}
			f.db = v
		case "--category":
			v, err := take(&i, name)
			if err != nil {
				return f, err
			}
			f.category = v
		case "--from":
			v, err := take(&i, name)
			if err != nil {
				return f, err
			}
			f.from = v
		case "--to":
			v, err := take(&i, name)
			if err != nil {
				return f, err
			}
			f.to = v
		case "--limit":
			v, err := take(&i, name)
			if err != nil {
				return f, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return f, fmt.Errorf("--limit must be a positive number, got %q", v)
			}
			f.limit = n
		case "--max-chars":
			v, err := take(&i, name)
			if err != nil {
				return f, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return f, fmt.Errorf("--max-chars must be a positive number, got %q", v)
			}
			f.maxChars = n
		default:
			if strings.HasPrefix(arg, "-") {
				return f, fmt.Errorf("unknown flag: %s", name)
			}
			f.args = append(f.args, arg)
		}
	}
	return f, nil
}

// resolve layers config sources and opens the store.
func resolve(f cliFlags) (config.ResolvedConfig, store.Store, error) {
	cfg, err := config.ResolveConfig(config.ResolveOptions{
		CLIDBPath:  f.db,
		CLIProfile: f.profile,
	})
	if err != nil {
		return cfg, nil, err
	}
	s, err := store.NewStore(store.Config{DBPath: cfg.DBPath.Value})
	if err != nil {
		return cfg, nil, fmt.Errorf("opening store: %w", err)
	}
	return cfg, s, nil
}

func runImport(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.args) == 0 {
		return errors.New("usage: medjournal import <file>... [--profile <name>]")
	}

	cfg, s, err := resolve(f)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := context.Background()

	profile, err := s.EnsureProfile(ctx, cfg.DefaultProfile.Value)
	if err != nil {
		return err
	}

	failures := 0
	for _, path := range f.args {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", path, err)
			failures++
			continue
		}

		doc, err := journal.Parse(string(raw))
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", path, err)
			writeRepairArtifact(path, err)
			failures++
			continue
		}

		if _, err := s.SaveDocument(ctx, profile.ID, path, string(raw), doc); err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", path, err)
			failures++
			continue
		}
		fmt.Printf("Imported %s into %q (%d entries)\n", path, profile.Name, len(doc.Entries))
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d file(s) failed to import", failures, len(f.args))
	}
	return nil
}

// writeRepairArtifact saves the repaired-but-still-invalid text next to the
// input so the malformation can be reported upstream.
func writeRepairArtifact(path string, parseErr error) {
	var repaired string
	var de *journal.DecodeError
	var me *journal.MappingError
	switch {
	case errors.As(parseErr, &de):
		repaired = de.Repaired
	case errors.As(parseErr, &me):
		repaired = me.Repaired
	default:
		return
	}
	artifact := path + ".repaired"
	if err := os.WriteFile(artifact, []byte(repaired), 0o600); err == nil {
		fmt.Fprintf(os.Stderr, "  repaired text written to %s\n", artifact)
	}
}

func runEntries(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, s, err := resolve(f)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := context.Background()

	profile, err := s.GetProfile(ctx, cfg.DefaultProfile.Value)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("no profile named %q", cfg.DefaultProfile.Value)
	}

	entries, err := s.ListEntries(ctx, store.EntryQuery{
		ProfileID: profile.ID,
		Category:  f.category,
		From:      f.from,
		To:        f.to,
		Limit:     f.limit,
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No entries found.")
		return nil
	}

	for _, e := range entries {
		date := e.Date
		if date == "" {
			date = "????-??-??"
		}
		line := fmt.Sprintf("%-10s  %-14s  %-20s  %s", date, e.EntryID, e.Category, e.Summary)
		if e.ProviderName != "" {
			line += "  [" + e.ProviderName + "]"
		}
		fmt.Println(strings.TrimRight(line, " "))
	}
	fmt.Printf("\n%d entries\n", len(entries))
	return nil
}

func runShow(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.args) != 1 {
		return errors.New("usage: medjournal show <entry-id> [--profile <name>]")
	}
	id := f.args[0]

	cfg, s, err := resolve(f)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := context.Background()

	doc, err := latestDocument(ctx, s, cfg.DefaultProfile.Value)
	if err != nil {
		return err
	}

	found := 0
	for _, e := range doc.Entries {
		if e.ID != id {
			continue
		}
		found++
		if found > 1 {
			fmt.Printf("\n--- duplicate %d ---\n", found)
		}
		printEntry(e)
	}
	if found == 0 {
		return fmt.Errorf("no entry with id %q", id)
	}
	return nil
}

func printEntry(e journal.Entry) {
	fmt.Printf("Id:       %s\n", e.ID)
	if e.Date != "" {
		when := e.Date
		if e.Time != "" {
			when += " " + e.Time
		}
		fmt.Printf("Date:     %s\n", when)
	}
	if e.Category != "" {
		fmt.Printf("Category: %s\n", e.Category)
	}
	if e.Type != "" {
		fmt.Printf("Type:     %s\n", e.Type)
	}
	if e.Status != "" {
		fmt.Printf("Status:   %s\n", e.Status)
	}
	if p := e.Provider; p != nil && p.Name != "" {
		loc := p.Name
		if p.Location != "" {
			loc += ", " + p.Location
		}
		if p.Region != "" {
			loc += " (" + p.Region + ")"
		}
		fmt.Printf("Provider: %s\n", loc)
	}
	if r := e.ResponsiblePerson; r != nil && r.Name != "" {
		who := r.Name
		if r.Role != "" {
			who += " (" + r.Role + ")"
		}
		fmt.Printf("By:       %s\n", who)
	}
	if c := e.Content; c != nil {
		if c.Summary != "" {
			fmt.Printf("Summary:  %s\n", c.Summary)
		}
		if c.Details != "" {
			fmt.Printf("Details:  %s\n", c.Details)
		}
		for _, note := range c.Notes {
			fmt.Printf("  - %s\n", note)
		}
	}
	if len(e.Tags) > 0 {
		fmt.Printf("Tags:     %s\n", strings.Join(e.Tags, ", "))
	}
	if len(e.Attachments) > 0 {
		fmt.Printf("Files:    %s\n", strings.Join(e.Attachments, ", "))
	}
}

func runRepair(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.args) != 1 {
		return errors.New("usage: medjournal repair <file>")
	}

	data, err := os.ReadFile(f.args[0])
	if err != nil {
		return fmt.Errorf("reading export %s: %w", f.args[0], err)
	}
	fmt.Print(journal.Repair(string(data)))
	return nil
}

func runContext(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, s, err := resolve(f)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := context.Background()

	doc, err := latestDocument(ctx, s, cfg.DefaultProfile.Value)
	if err != nil {
		return err
	}

	opts := assist.Options{MaxChars: cfg.ContextBudget()}
	if f.maxChars > 0 {
		opts.MaxChars = f.maxChars
	}
	fmt.Print(assist.BuildContext(doc, opts))
	return nil
}

func runProfiles(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	_, s, err := resolve(f)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := context.Background()

	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles yet. Run: medjournal import <file> --profile <name>")
		return nil
	}
	for _, p := range profiles {
		line := p.Name
		if latest, err := s.LatestDocument(ctx, p.ID); err == nil && latest != nil {
			line += fmt.Sprintf("  (%d entries, imported %s)",
				latest.EntryCount, latest.ImportedAt.UTC().Format("2006-01-02"))
		}
		fmt.Println(line)
	}
	return nil
}

func runStats(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, s, err := resolve(f)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Profiles:  %d\n", st.ProfileCount)
	fmt.Printf("Documents: %d\n", st.DocumentCount)
	fmt.Printf("Entries:   %d\n", st.EntryCount)
	if st.DBSizeBytes > 0 {
		fmt.Printf("DB size:   %d bytes\n", st.DBSizeBytes)
	}
	dbPath := cfg.DBPath.Value
	if dbPath == "" {
		dbPath = store.DefaultDBPath
	}
	fmt.Printf("DB path:   %s (%s)\n", dbPath, cfg.DBPath.Source)
	return nil
}

func runMCP(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	_, s, err := resolve(f)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := mcp.NewServer(mcp.ServerConfig{Store: s, Version: version})
	return mcp.ServeStdio(srv)
}

// latestDocument loads and re-parses the newest import for a profile name.
func latestDocument(ctx context.Context, s store.Store, profileName string) (*journal.Document, error) {
	profile, err := s.GetProfile(ctx, profileName)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("no profile named %q", profileName)
	}
	latest, err := s.LatestDocument(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("profile %q has no imports", profileName)
	}
	return journal.Parse(latest.RawText)
}
