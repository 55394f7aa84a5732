package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"mcpdex/internal/domain"
	"mcpdex/internal/infra/telemetry"
)

// Seed files are TOML: one [servers.<name>] table per manual entry.
//
//	[servers.calculator]
//	endpoint = "http://calc.tools.svc:8080/mcp"
//	displayName = "Calculator"
//	[servers.calculator.arguments]
//	precision = "high"

var ErrSeedNotFound = errors.New("seed file not found")

type SeedIssueKind string

const (
	SeedIssueInvalid   SeedIssueKind = "invalid"
	SeedIssueDuplicate SeedIssueKind = "duplicate"
)

type SeedIssue struct {
	Name    string        `json:"name,omitempty"`
	Kind    SeedIssueKind `json:"kind"`
	Message string        `json:"message"`
}

type SeedResult struct {
	Path    string              `json:"path"`
	Servers []domain.ToolServer `json:"servers"`
	Issues  []SeedIssue         `json:"issues,omitempty"`
}

// ReadSeedFile parses a seed file. Invalid entries become issues, not
// errors, so one bad table does not block the rest of the import.
func ReadSeedFile(path string) (SeedResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return SeedResult{Path: path}, ErrSeedNotFound
		}
		return SeedResult{}, fmt.Errorf("read seed: %w", err)
	}

	var payload map[string]any
	if err := toml.Unmarshal(data, &payload); err != nil {
		return SeedResult{}, fmt.Errorf("parse seed toml: %w", err)
	}

	result := SeedResult{Path: path}
	raw, ok := payload["servers"].(map[string]any)
	if !ok {
		if _, present := payload["servers"]; present {
			return SeedResult{}, errors.New("servers must be a table of server entries")
		}
		return result, nil
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	result.Servers = make([]domain.ToolServer, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		table, ok := raw[name].(map[string]any)
		if !ok {
			result.Issues = append(result.Issues, SeedIssue{
				Name:    name,
				Kind:    SeedIssueInvalid,
				Message: "entry must be a table",
			})
			continue
		}
		server, issue, ok := parseSeedServer(name, table)
		if !ok {
			if issue != nil {
				result.Issues = append(result.Issues, *issue)
			}
			continue
		}
		// Quoted TOML keys can collide after name trimming.
		if seen[server.Name] {
			result.Issues = append(result.Issues, SeedIssue{
				Name:    server.Name,
				Kind:    SeedIssueDuplicate,
				Message: "name already defined by another entry",
			})
			continue
		}
		seen[server.Name] = true
		result.Servers = append(result.Servers, server)
	}
	return result, nil
}

func parseSeedServer(name string, table map[string]any) (domain.ToolServer, *SeedIssue, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ToolServer{}, &SeedIssue{
			Kind:    SeedIssueInvalid,
			Message: "server name is required",
		}, false
	}

	endpoint, ok := readSeedString(table, "endpoint")
	if !ok {
		return domain.ToolServer{}, &SeedIssue{
			Name:    name,
			Kind:    SeedIssueInvalid,
			Message: "endpoint must be a string",
		}, false
	}
	if endpoint == "" {
		endpoint, ok = readSeedString(table, "url")
		if !ok {
			return domain.ToolServer{}, &SeedIssue{
				Name:    name,
				Kind:    SeedIssueInvalid,
				Message: "url must be a string",
			}, false
		}
	}

	displayName, ok := readSeedString(table, "displayName")
	if !ok {
		return domain.ToolServer{}, &SeedIssue{
			Name:    name,
			Kind:    SeedIssueInvalid,
			Message: "displayName must be a string",
		}, false
	}

	arguments, ok := readSeedStringMap(table, "arguments")
	if !ok {
		return domain.ToolServer{}, &SeedIssue{
			Name:    name,
			Kind:    SeedIssueInvalid,
			Message: "arguments must be a table of strings",
		}, false
	}

	server := domain.ToolServer{
		Name:        name,
		DisplayName: displayName,
		Endpoint:    endpoint,
		Provenance:  domain.ProvenanceManual,
		Arguments:   arguments,
	}
	if err := server.Validate(); err != nil {
		return domain.ToolServer{}, &SeedIssue{
			Name:    name,
			Kind:    SeedIssueInvalid,
			Message: err.Error(),
		}, false
	}
	return server, nil, true
}

func readSeedString(table map[string]any, key string) (string, bool) {
	value, ok := table[key]
	if !ok {
		return "", true
	}
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func readSeedStringMap(table map[string]any, key string) (map[string]string, bool) {
	value, ok := table[key]
	if !ok {
		return nil, true
	}
	raw, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out[k] = s
	}
	return out, true
}

// SeedSummary reports what an import pass did.
type SeedSummary struct {
	Path     string      `json:"path"`
	Imported int         `json:"imported"`
	Skipped  int         `json:"skipped"`
	Issues   []SeedIssue `json:"issues,omitempty"`
}

// ImportSeed creates every seed server not already in the store. The
// pass is idempotent: existing names are skipped so a daemon restart
// never duplicates or overwrites operator edits.
func ImportSeed(store *Store, result SeedResult, logger *zap.Logger) (SeedSummary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	summary := SeedSummary{Path: result.Path, Issues: result.Issues}
	for _, server := range result.Servers {
		_, err := store.Create(server)
		switch {
		case err == nil:
			summary.Imported++
		case errors.Is(err, domain.ErrServerExists):
			summary.Skipped++
		default:
			return summary, fmt.Errorf("import %q: %w", server.Name, err)
		}
	}
	logger.Info("seed import complete",
		telemetry.EventField(telemetry.EventSeedImport),
		zap.String("path", result.Path),
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped),
		zap.Int("issues", len(summary.Issues)),
	)
	return summary, nil
}
