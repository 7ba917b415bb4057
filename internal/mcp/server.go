// Package mcp exposes imported journals to AI assistants over the Model
// Context Protocol.
//
// Tools cover import, entry listing/detail, the repair diagnostic, and the
// prompt context builder; profiles are published as a resource. Stdio
// transport only — the assistant runs on the same machine as the journal
// data, which never leaves it.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/evertsson/medjournal/internal/assist"
	"github.com/evertsson/medjournal/internal/journal"
	"github.com/evertsson/medjournal/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store   store.Store
	Version string
}

// dbMu serializes tool calls that touch the database. The mcp-go library
// dispatches handlers concurrently via goroutines, and SQLite allows only
// one writer at a time.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all journal tools and
// resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"MedJournal",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerImportTool(s, cfg.Store)
	registerEntriesTool(s, cfg.Store)
	registerEntryTool(s, cfg.Store)
	registerRepairTool(s)
	registerContextTool(s, cfg.Store)
	registerProfilesResource(s, cfg.Store)

	return s
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func registerImportTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("journal_import",
		mcp.WithDescription("Import a journal export into a patient profile. Repairs known scraper malformations, parses, and stores the document. All-or-nothing: a malformed export imports nothing."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("path",
			mcp.Description("Path to the export file. Either path or text is required."),
		),
		mcp.WithString("text",
			mcp.Description("Inline export text. Either path or text is required."),
		),
		mcp.WithString("profile",
			mcp.Description("Profile name to import into (default: 'default'). Created if missing."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		path, _ := req.RequireString("path")
		text, _ := req.RequireString("text")
		if path == "" && text == "" {
			return mcp.NewToolResultError("either path or text is required"), nil
		}

		sourceFile := "mcp-inline"
		if path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("reading export: %v", err)), nil
			}
			text = string(data)
			sourceFile = path
		}

		doc, err := journal.Parse(text)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("parse failed: %v", err)), nil
		}

		profileName := "default"
		if p, err := req.RequireString("profile"); err == nil && p != "" {
			profileName = p
		}
		profile, err := st.EnsureProfile(ctx, profileName)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("profile error: %v", err)), nil
		}

		docID, err := st.SaveDocument(ctx, profile.ID, sourceFile, text, doc)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("store error: %v", err)), nil
		}

		payload := map[string]interface{}{
			"document_id": docID,
			"profile":     profile.Name,
			"entries":     len(doc.Entries),
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerEntriesTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("journal_entries",
		mcp.WithDescription("List journal entries for a profile, newest first, optionally filtered by category or ISO date range."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("profile",
			mcp.Description("Profile name (default: 'default')"),
		),
		mcp.WithString("category",
			mcp.Description("Filter by category label (exact match)"),
		),
		mcp.WithString("from",
			mcp.Description("Inclusive lower date bound (ISO, e.g. 2024-01-01)"),
		),
		mcp.WithString("to",
			mcp.Description("Inclusive upper date bound (ISO)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries (default: 50, max: 200)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		profile, result := requireProfile(ctx, st, req)
		if result != nil {
			return result, nil
		}

		q := store.EntryQuery{ProfileID: profile.ID, Limit: 50}
		if v, err := req.RequireString("category"); err == nil {
			q.Category = v
		}
		if v, err := req.RequireString("from"); err == nil {
			q.From = v
		}
		if v, err := req.RequireString("to"); err == nil {
			q.To = v
		}
		if v, err := req.RequireFloat("limit"); err == nil {
			limit := int(v)
			if limit > 200 {
				limit = 200
			}
			if limit > 0 {
				q.Limit = limit
			}
		}

		entries, err := st.ListEntries(ctx, q)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing entries: %v", err)), nil
		}

		type entryInfo struct {
			EntryID  string   `json:"id"`
			Date     string   `json:"date,omitempty"`
			Time     string   `json:"time,omitempty"`
			Category string   `json:"category,omitempty"`
			Type     string   `json:"type,omitempty"`
			Status   string   `json:"status,omitempty"`
			Provider string   `json:"provider,omitempty"`
			Summary  string   `json:"summary,omitempty"`
			Tags     []string `json:"tags,omitempty"`
		}
		out := make([]entryInfo, 0, len(entries))
		for _, e := range entries {
			out = append(out, entryInfo{
				EntryID:  e.EntryID,
				Date:     e.Date,
				Time:     e.Time,
				Category: e.Category,
				Type:     e.Type,
				Status:   e.Status,
				Provider: e.ProviderName,
				Summary:  e.Summary,
				Tags:     e.Tags,
			})
		}

		data, _ := json.MarshalIndent(map[string]interface{}{
			"profile": profile.Name,
			"count":   len(out),
			"entries": out,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerEntryTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("journal_entry",
		mcp.WithDescription("Fetch the full detail of a journal entry by id from a profile's latest import. Duplicate ids return every match."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entry id"),
		),
		mcp.WithString("profile",
			mcp.Description("Profile name (default: 'default')"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		id, err := req.RequireString("id")
		if err != nil || id == "" {
			return mcp.NewToolResultError("id is required"), nil
		}

		profile, result := requireProfile(ctx, st, req)
		if result != nil {
			return result, nil
		}

		doc, result := latestParsedDocument(ctx, st, profile)
		if result != nil {
			return result, nil
		}

		var matches []journal.Entry
		for _, e := range doc.Entries {
			if e.ID == id {
				matches = append(matches, e)
			}
		}
		if len(matches) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("no entry with id %q", id)), nil
		}

		data, _ := json.MarshalIndent(map[string]interface{}{
			"profile": profile.Name,
			"count":   len(matches),
			"entries": matches,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerRepairTool(s *server.MCPServer) {
	tool := mcp.NewTool("journal_repair",
		mcp.WithDescription("Run only the repair stage on export text and return the corrected text without parsing it. Diagnostic tool for inspecting what the pipeline would change."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Raw export text"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}
		return mcp.NewToolResultText(journal.Repair(text)), nil
	})
}

func registerContextTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("journal_context",
		mcp.WithDescription("Build a prompt context block from a profile's latest import: patient header (identifier masked) plus entries newest first, within a character budget."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("profile",
			mcp.Description("Profile name (default: 'default')"),
		),
		mcp.WithNumber("max_chars",
			mcp.Description("Character budget for the context block (default: 8000)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		profile, result := requireProfile(ctx, st, req)
		if result != nil {
			return result, nil
		}

		doc, result := latestParsedDocument(ctx, st, profile)
		if result != nil {
			return result, nil
		}

		opts := assist.Options{}
		if v, err := req.RequireFloat("max_chars"); err == nil && v > 0 {
			opts.MaxChars = int(v)
		}
		return mcp.NewToolResultText(assist.BuildContext(doc, opts)), nil
	})
}

// --- Resources ---

func registerProfilesResource(s *server.MCPServer, st store.Store) {
	resource := mcp.NewResource(
		"journal://profiles",
		"Patient Profiles",
		mcp.WithResourceDescription("All patient profiles with their latest import summary."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		profiles, err := st.ListProfiles(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing profiles: %w", err)
		}

		type profileInfo struct {
			Name       string `json:"name"`
			Entries    int    `json:"entries"`
			SourceFile string `json:"source_file,omitempty"`
			ImportedAt string `json:"imported_at,omitempty"`
		}
		out := make([]profileInfo, 0, len(profiles))
		for _, p := range profiles {
			info := profileInfo{Name: p.Name}
			if latest, err := st.LatestDocument(ctx, p.ID); err == nil && latest != nil {
				info.Entries = latest.EntryCount
				info.SourceFile = latest.SourceFile
				info.ImportedAt = latest.ImportedAt.UTC().Format("2006-01-02T15:04:05Z")
			}
			out = append(out, info)
		}

		data, _ := json.MarshalIndent(map[string]interface{}{
			"profiles": out,
			"count":    len(out),
		}, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

// --- Helpers ---

// requireProfile resolves the optional profile argument to an existing
// profile. Returns a tool error result when the profile is unknown.
func requireProfile(ctx context.Context, st store.Store, req mcp.CallToolRequest) (*store.Profile, *mcp.CallToolResult) {
	name := "default"
	if v, err := req.RequireString("profile"); err == nil && v != "" {
		name = v
	}
	profile, err := st.GetProfile(ctx, name)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("profile error: %v", err))
	}
	if profile == nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("no profile named %q", name))
	}
	return profile, nil
}

// latestParsedDocument re-parses the profile's most recent import. The store
// keeps raw text only; the typed model is always rebuilt by the pipeline.
func latestParsedDocument(ctx context.Context, st store.Store, profile *store.Profile) (*journal.Document, *mcp.CallToolResult) {
	latest, err := st.LatestDocument(ctx, profile.ID)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("loading document: %v", err))
	}
	if latest == nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("profile %q has no imports", profile.Name))
	}
	doc, err := journal.Parse(latest.RawText)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("re-parsing stored document: %v", err))
	}
	return doc, nil
}
