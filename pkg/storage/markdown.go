package storage

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

// mdWriter keeps the first write error so the report code can stay linear
type mdWriter struct {
	w   io.Writer
	err error
}

func (m *mdWriter) printf(format string, args ...interface{}) {
	if m.err != nil {
		return
	}
	_, m.err = fmt.Fprintf(m.w, format, args...)
}

// WriteMarkdown renders a human-readable report of result
func WriteMarkdown(result *models.ScanResult, writer io.Writer) error {
	md := &mdWriter{w: writer}
	s := result.Summary

	md.printf("# Reconnaissance Report: %s\n\n", s.Target)
	md.printf("- **Run ID**: %s\n", s.RunID)
	md.printf("- **Target type**: %s\n", s.Type)
	md.printf("- **Profile**: %s\n", result.Config.ProfileName)
	md.printf("- **Modules**: %s\n", strings.Join(result.Config.EnabledModules, ", "))
	md.printf("- **Started**: %s\n", s.StartTime.Format(time.RFC1123))
	md.printf("- **Duration**: %.2fs\n", s.DurationTotal)

	md.printf("\n## Summary\n\n")
	md.printf("| Metric | Value |\n|---|---|\n")
	md.printf("| Hosts discovered | %d |\n", s.HostsDiscovered)
	md.printf("| Hosts scanned | %d |\n", len(result.Results))
	md.printf("| Open ports | %d |\n", s.OpenPortsTotal)
	md.printf("| Subdomains | %d |\n", s.SubdomainsFound)
	md.printf("| IP class | %s |\n", s.IPClass)
	md.printf("| Port profile | %s |\n", s.PortsServiceProfile)
	if s.CIDRNotes != nil {
		md.printf("| CIDR cap | %d (skipped %d) |\n", s.CIDRNotes.Limit, s.CIDRNotes.Skipped)
	}

	if len(s.RiskTags) > 0 {
		md.printf("\n## Risk Tags\n\n")
		for _, tag := range s.RiskTags {
			md.printf("- **%s**: %s\n", tag, s.RiskDetails[tag])
		}
	}

	if len(s.ModuleErrors) > 0 {
		md.printf("\n## Module Errors\n\n")
		for _, module := range sortedKeys(s.ModuleErrors) {
			md.printf("- %s: %d\n", module, s.ModuleErrors[module])
		}
	}

	targets := make([]string, 0, len(result.Results))
	for t := range result.Results {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	for _, t := range targets {
		writeTarget(md, result.Results[t])
	}

	return md.err
}

func writeTarget(md *mdWriter, res models.TargetResult) {
	md.printf("\n## Target: %s\n\n", res.Target)

	md.printf("| Module | Status | Duration | Error |\n|---|---|---|---|\n")
	for _, name := range sortedKeys(res.Modules) {
		mr := res.Modules[name]
		md.printf("| %s | %s | %.2fs | %s |\n", name, mr.Status, mr.Duration, escapeCell(mr.Error))
	}

	if scan, ok := res.PortScan(); ok {
		md.printf("\n### Open Ports on %s\n\n", scan.Address)
		if len(scan.Details) == 0 {
			md.printf("No open ports among %d scanned.\n", scan.ScannedCount)
		} else {
			md.printf("| Port | Service | Risk | Attacks |\n|---|---|---|---|\n")
			for _, d := range scan.Details {
				md.printf("| %d | %s | %s | %s |\n", d.Port, escapeCell(d.Service), escapeCell(d.Risk), escapeCell(d.Attacks))
			}
		}
	}

	if subs, ok := res.Modules["subdomains"]; ok && !subs.Failed() {
		if names, ok := subs.Data.([]string); ok && len(names) > 0 {
			md.printf("\n### Subdomains\n\n")
			for _, name := range names {
				md.printf("- %s\n", name)
			}
		}
	}

	if endpoints, ok := res.WebEndpoints(); ok && len(endpoints) > 0 {
		md.printf("\n### Web Endpoints\n\n")
		for _, u := range sortedKeys(endpoints) {
			ep := endpoints[u]
			if ep.Error != "" {
				md.printf("- %s: error: %s\n", u, ep.Error)
				continue
			}
			md.printf("- %s: %d, server %s", u, ep.StatusCode, ep.Server)
			if ep.Title != "" {
				md.printf(", title %q", ep.Title)
			}
			md.printf("\n")
		}
	}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
