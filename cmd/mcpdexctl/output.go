package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"mcpdex/internal/domain"
	"mcpdex/internal/infra/daemon"
)

func writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printCatalog(view domain.CatalogView, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(view)
	}
	fmt.Printf("etag=%s servers=%d\n", view.ETag, len(view.Servers))
	for _, server := range view.Servers {
		fmt.Printf("%s\t%s\t%s\n", server.Name, server.Provenance, server.Endpoint)
	}
	return nil
}

func printServer(server domain.ToolServer, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(server)
	}
	fmt.Printf("name=%s provenance=%s\n", server.Name, server.Provenance)
	if server.DisplayName != "" {
		fmt.Printf("displayName=%s\n", server.DisplayName)
	}
	fmt.Printf("endpoint=%s\n", server.Endpoint)
	if server.SourceRef != "" {
		fmt.Printf("sourceRef=%s\n", server.SourceRef)
	}
	for _, key := range sortedKeys(server.Arguments) {
		fmt.Printf("arg.%s=%s\n", key, server.Arguments[key])
	}
	return nil
}

func printRefresh(summary domain.RefreshSummary, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(summary)
	}
	fmt.Printf("cycle=%s mode=%s status=%s discovered=%d catalog=%d duration=%dms\n",
		summary.CycleID, summary.Mode, summary.Status, summary.Discovered, summary.CatalogSize, summary.DurationMs)
	if summary.Reason != "" {
		fmt.Printf("reason=%s\n", summary.Reason)
	}
	if summary.Coalesced {
		fmt.Println("coalesced=true")
	}
	for _, outcome := range summary.Providers {
		fmt.Printf("provider=%s status=%s servers=%d\n", outcome.Provider, outcome.Status, outcome.Servers)
	}
	for _, name := range sortedRecordNames(summary.Registrations) {
		record := summary.Registrations[name]
		line := fmt.Sprintf("registration=%s outcome=%s", name, record.Outcome)
		if record.Error != "" {
			line += " error=" + record.Error
		}
		fmt.Println(line)
	}
	return nil
}

func printStatus(report domain.DiscoveryStatusReport, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(report)
	}
	fmt.Printf("enabled=%t mode=%s timeout=%ds inFlight=%t\n",
		report.Enabled, report.Mode, report.TimeoutSeconds, report.InFlight)
	if report.Namespace != "" {
		fmt.Printf("namespace=%s\n", report.Namespace)
	}
	fmt.Printf("apiConfigured=%t\n", report.APIConfigured)
	if cycle := report.LastCycle; cycle != nil {
		fmt.Printf("lastCycle=%s status=%s servers=%d completed=%s\n",
			cycle.ID, cycle.Status, cycle.Servers, cycle.CompletedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	for _, name := range sortedKeys(report.LastSyncErrors) {
		fmt.Printf("syncError=%s: %s\n", name, report.LastSyncErrors[name])
	}
	return nil
}

type importSummary struct {
	Path    string   `json:"path"`
	Created []string `json:"created,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

func printImportSummary(summary importSummary, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(summary)
	}
	fmt.Printf("created=%d skipped=%d invalid=%d\n", len(summary.Created), len(summary.Skipped), len(summary.Invalid))
	for _, name := range summary.Created {
		fmt.Printf("created %s\n", name)
	}
	for _, name := range summary.Skipped {
		fmt.Printf("skipped %s (already present)\n", name)
	}
	for _, entry := range summary.Invalid {
		fmt.Printf("invalid %s\n", entry)
	}
	return nil
}

func printDaemonStatus(status daemon.Status, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(map[string]any{
			"installed":  status.Installed,
			"running":    status.Running,
			"service":    status.ServiceName,
			"configPath": status.ConfigPath,
			"apiAddress": status.APIAddress,
			"logPath":    status.LogPath,
		})
	}
	state := "stopped"
	if !status.Installed {
		state = "not installed"
	} else if status.Running {
		state = "running"
	}
	fmt.Printf("%s service=%s\n", state, status.ServiceName)
	if status.ConfigPath != "" {
		fmt.Printf("config=%s\n", status.ConfigPath)
	}
	if status.APIAddress != "" {
		fmt.Printf("api=%s\n", status.APIAddress)
	}
	if status.LogPath != "" {
		fmt.Printf("log=%s\n", status.LogPath)
	}
	return nil
}

func printDaemonAction(action string, status daemon.Status, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(map[string]any{
			"action":     action,
			"installed":  status.Installed,
			"running":    status.Running,
			"service":    status.ServiceName,
			"configPath": status.ConfigPath,
			"apiAddress": status.APIAddress,
			"logPath":    status.LogPath,
		})
	}
	fmt.Printf("%s service=%s\n", action, status.ServiceName)
	if status.ConfigPath != "" {
		fmt.Printf("config=%s\n", status.ConfigPath)
	}
	if status.APIAddress != "" {
		fmt.Printf("api=%s\n", status.APIAddress)
	}
	if status.LogPath != "" {
		fmt.Printf("log=%s\n", status.LogPath)
	}
	return nil
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedRecordNames(records map[string]domain.RegistrationRecord) []string {
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
