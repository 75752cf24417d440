package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ModuleStatus is the outcome of a single module run
type ModuleStatus string

const (
	StatusSuccess ModuleStatus = "success"
	StatusError   ModuleStatus = "error"
	StatusSkipped ModuleStatus = "skipped"
)

// ErrorKind classifies why a module failed
type ErrorKind string

const (
	ErrorTimeout     ErrorKind = "timeout"
	ErrorNetwork     ErrorKind = "network"
	ErrorNotFound    ErrorKind = "not_found"
	ErrorParse       ErrorKind = "parse"
	ErrorUnsupported ErrorKind = "unsupported"
	ErrorInternal    ErrorKind = "internal"
)

// ModuleResult is the outcome of one module against one target
type ModuleResult struct {
	Module    string       `json:"module"`               // Module name (dns, whois, ...)
	Status    ModuleStatus `json:"status"`               // success, error or skipped
	Duration  float64      `json:"duration"`             // Elapsed seconds
	Data      interface{}  `json:"data,omitempty"`       // Module payload on success
	Error     string       `json:"error,omitempty"`      // Failure message
	ErrorKind ErrorKind    `json:"error_kind,omitempty"` // Failure cause
}

// UnmarshalJSON restores the typed payload of the modules whose data shape is
// known, so a result loaded from disk behaves like one fresh from a run.
// Other payloads decode generically.
func (m *ModuleResult) UnmarshalJSON(b []byte) error {
	type plain ModuleResult
	var aux struct {
		plain
		Data json.RawMessage `json:"data,omitempty"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*m = ModuleResult(aux.plain)
	m.Data = nil
	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		return nil
	}

	var err error
	switch m.Module {
	case "ports":
		var v PortScanResult
		err = json.Unmarshal(aux.Data, &v)
		m.Data = v
	case "web":
		var v map[string]WebEndpoint
		err = json.Unmarshal(aux.Data, &v)
		m.Data = v
	case "dns":
		var v map[string][]string
		err = json.Unmarshal(aux.Data, &v)
		m.Data = v
	case "subdomains":
		var v []string
		err = json.Unmarshal(aux.Data, &v)
		m.Data = v
	default:
		var v interface{}
		err = json.Unmarshal(aux.Data, &v)
		m.Data = v
	}
	if err != nil {
		return fmt.Errorf("decoding %s data: %w", m.Module, err)
	}
	return nil
}

// Failed reports whether the module ended in error
func (m ModuleResult) Failed() bool {
	return m.Status == StatusError
}

// KnowledgeRecord is static service and risk metadata for a port
type KnowledgeRecord struct {
	Port        int    `json:"port,omitempty"`
	Service     string `json:"service"`
	Risk        string `json:"risk"`
	Description string `json:"description"`
	Attacks     string `json:"attacks"`
}

// PortScanResult holds the outcome of scanning one address
type PortScanResult struct {
	Address       string            `json:"address"`                  // Address actually dialed
	AddressSource string            `json:"address_source,omitempty"` // dns_a, hostname or target
	OpenPorts     []int             `json:"open_ports"`               // Sorted ascending
	ScannedCount  int               `json:"scanned_count"`            // Always len(requested ports)
	Details       []KnowledgeRecord `json:"details"`                  // Enrichment for each open port
}

// HasOpenPort checks if the scan found the specified port open
func (p *PortScanResult) HasOpenPort(port int) bool {
	for _, open := range p.OpenPorts {
		if open == port {
			return true
		}
	}
	return false
}

// WebEndpoint is the probe outcome for one URL
type WebEndpoint struct {
	StatusCode int      `json:"status_code,omitempty"`
	Server     string   `json:"server,omitempty"`
	Title      string   `json:"title,omitempty"`
	Redirects  []string `json:"redirects,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// TargetResult collects every module outcome for one normalized target
type TargetResult struct {
	Target  string                  `json:"target"`
	Modules map[string]ModuleResult `json:"modules"`
	Timings map[string]float64      `json:"timings"`
}

// NewTargetResult returns an empty result for target
func NewTargetResult(target string) TargetResult {
	return TargetResult{
		Target:  target,
		Modules: make(map[string]ModuleResult),
		Timings: make(map[string]float64),
	}
}

// Record stores a module outcome and its duration. Skipped modules never ran
// and carry no timing.
func (t TargetResult) Record(res ModuleResult) {
	t.Modules[res.Module] = res
	if res.Status != StatusSkipped {
		t.Timings[res.Module] = res.Duration
	}
}

// PortScan returns the port scan payload if the ports module succeeded
func (t TargetResult) PortScan() (*PortScanResult, bool) {
	res, ok := t.Modules["ports"]
	if !ok || res.Failed() {
		return nil, false
	}
	switch v := res.Data.(type) {
	case *PortScanResult:
		return v, v != nil
	case PortScanResult:
		return &v, true
	}
	return nil, false
}

// WebEndpoints returns the web probe payload if the web module succeeded
func (t TargetResult) WebEndpoints() (map[string]WebEndpoint, bool) {
	res, ok := t.Modules["web"]
	if !ok || res.Failed() {
		return nil, false
	}
	endpoints, ok := res.Data.(map[string]WebEndpoint)
	return endpoints, ok
}

// CIDRNotes describes how a network block was capped
type CIDRNotes struct {
	CapApplied bool `json:"cap_applied"`
	Limit      int  `json:"limit"`
	Skipped    int  `json:"skipped"`
}

// ScanSummary aggregates a run
type ScanSummary struct {
	RunID               string             `json:"run_id"`
	Target              string             `json:"target"`
	Type                TargetType         `json:"type"`
	StartTime           time.Time          `json:"start_time"`
	EndTime             time.Time          `json:"end_time"`
	DurationTotal       float64            `json:"duration_total"`
	HostsDiscovered     int                `json:"hosts_discovered"`
	OpenPortsTotal      int                `json:"open_ports_total"`
	SubdomainsFound     int                `json:"subdomains_found"`
	CIDRNotes           *CIDRNotes         `json:"cidr_notes,omitempty"`
	RiskTags            []string           `json:"risk_tags"`
	RiskDetails         map[string]string  `json:"risk_details"`
	ModuleTimings       map[string]float64 `json:"module_timings"`
	ModuleErrors        map[string]int     `json:"module_errors"`
	IPClass             string             `json:"ip_class"`
	PortsServiceProfile string             `json:"ports_service_profile"`
	OpenPortsList       []int              `json:"open_ports_list"`
}

// ScanResult is the full output of one run
type ScanResult struct {
	Config  RunConfig               `json:"config"`
	Summary ScanSummary             `json:"summary"`
	Results map[string]TargetResult `json:"results"`
}
