package orchestrator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ExclusiveAccount/reconforge/pkg/config"
	"github.com/ExclusiveAccount/reconforge/pkg/knowledge"
	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

// IP classes reported in the summary
const (
	IPClassLoopback = "loopback"
	IPClassPrivate  = "private"
	IPClassPublic   = "public"
)

// Summarize folds per-target results into run-level counts, timings and risk
// tags. Run identity and timestamps are left to the caller.
func Summarize(kb *knowledge.Base, cfg models.RunConfig, primary string, hosts int, results map[string]models.TargetResult) models.ScanSummary {
	summary := models.ScanSummary{
		HostsDiscovered:     hosts,
		ModuleTimings:       make(map[string]float64),
		ModuleErrors:        make(map[string]int),
		IPClass:             ClassifyIP(primary),
		PortsServiceProfile: "n/a",
		OpenPortsList:       []int{},
	}

	openSet := make(map[int]struct{})
	for _, res := range results {
		for module, d := range res.Timings {
			summary.ModuleTimings[module] += d
		}
		for module, mr := range res.Modules {
			if mr.Failed() {
				summary.ModuleErrors[module]++
			}
		}

		if scan, ok := res.PortScan(); ok {
			summary.OpenPortsTotal += len(scan.OpenPorts)
			for _, p := range scan.OpenPorts {
				openSet[p] = struct{}{}
			}
		}

		if subs, ok := res.Modules[config.ModuleSubdomains]; ok && !subs.Failed() {
			if names, ok := subs.Data.([]string); ok {
				summary.SubdomainsFound += len(names)
			}
		}
	}

	for p := range openSet {
		summary.OpenPortsList = append(summary.OpenPortsList, p)
	}
	sort.Ints(summary.OpenPortsList)

	tags := kb.DeriveRiskTags(results)
	summary.RiskTags = make([]string, len(tags))
	for i, tag := range tags {
		summary.RiskTags[i] = string(tag)
	}
	summary.RiskDetails = kb.Descriptions(tags)

	if cfg.ModuleEnabled(config.ModulePorts) {
		summary.PortsServiceProfile = PortProfileLabel(cfg.ProfileName, len(config.PortsFor(cfg.ProfileName)))
	}

	return summary
}

// ClassifyIP labels s by literal address prefix. It is applied to the primary
// target string as given, so a name such as 10.example.com counts as private.
func ClassifyIP(s string) string {
	switch {
	case strings.HasPrefix(s, "127."):
		return IPClassLoopback
	case strings.HasPrefix(s, "192.168."), strings.HasPrefix(s, "10."):
		return IPClassPrivate
	case strings.HasPrefix(s, "172."):
		parts := strings.SplitN(s, ".", 3)
		if len(parts) < 2 {
			return IPClassPublic
		}
		if octet, err := strconv.Atoi(parts[1]); err == nil && octet >= 16 && octet <= 31 {
			return IPClassPrivate
		}
	}
	return IPClassPublic
}

// PortProfileLabel names the port list a profile scanned, e.g. top_100
func PortProfileLabel(profile string, n int) string {
	switch profile {
	case config.ProfileFast:
		return fmt.Sprintf("top_%d", n)
	case config.ProfileFull:
		return fmt.Sprintf("extended_%d", n)
	default:
		return fmt.Sprintf("custom_%d", n)
	}
}
