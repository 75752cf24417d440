package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

func printBanner() {
	color.Cyan("%s v%s", appName, appVersion)
	color.Cyan("%s", strings.Repeat("=", 40))
}

// displaySummary prints a colored run summary
func displaySummary(result *models.ScanResult) {
	s := result.Summary
	out := color.Output
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(out)
	bold.Fprintf(out, "Scan %s\n", s.RunID)
	fmt.Fprintf(out, "Target:       %s (%s, %s)\n", s.Target, s.Type, s.IPClass)
	fmt.Fprintf(out, "Duration:     %.2fs\n", s.DurationTotal)
	fmt.Fprintf(out, "Hosts:        %d discovered, %d scanned\n", s.HostsDiscovered, len(result.Results))
	if s.CIDRNotes != nil && s.CIDRNotes.Skipped > 0 {
		yellow.Fprintf(out, "CIDR cap:     %d hosts, %d skipped\n", s.CIDRNotes.Limit, s.CIDRNotes.Skipped)
	}
	fmt.Fprintf(out, "Subdomains:   %d\n", s.SubdomainsFound)
	fmt.Fprintf(out, "Port profile: %s\n", s.PortsServiceProfile)
	fmt.Fprintf(out, "Open ports:   %d %v\n", s.OpenPortsTotal, s.OpenPortsList)

	if len(s.ModuleTimings) > 0 {
		bold.Fprintln(out, "\nModule timings")
		for _, m := range sortedKeys(s.ModuleTimings) {
			line := fmt.Sprintf("  %-11s %.2fs", m, s.ModuleTimings[m])
			if n := s.ModuleErrors[m]; n > 0 {
				yellow.Fprintf(out, "%s (%d failed)\n", line, n)
				continue
			}
			fmt.Fprintln(out, line)
		}
	}

	for _, target := range sortedKeys(result.Results) {
		res := result.Results[target]
		scan, ok := res.PortScan()
		if !ok || len(scan.Details) == 0 {
			continue
		}
		bold.Fprintf(out, "\nOpen ports on %s (%s)\n", target, scan.Address)
		for _, d := range scan.Details {
			fmt.Fprintf(out, "  %-6d %-16s %s\n", d.Port, d.Service, d.Risk)
		}
	}

	if len(s.RiskTags) == 0 {
		color.Green("\nNo risk tags raised")
		return
	}
	bold.Fprintln(out, "\nRisk tags")
	for _, tag := range s.RiskTags {
		red.Fprintf(out, "  %s", tag)
		fmt.Fprintf(out, ": %s\n", s.RiskDetails[tag])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
