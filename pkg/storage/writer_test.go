package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

func sampleResult() *models.ScanResult {
	target := models.NewTargetResult("192.0.2.10")
	target.Record(models.ModuleResult{
		Module:   "ports",
		Status:   models.StatusSuccess,
		Duration: 1.25,
		Data: models.PortScanResult{
			Address:      "192.0.2.10",
			OpenPorts:    []int{22},
			ScannedCount: 100,
			Details:      []models.KnowledgeRecord{{Port: 22, Service: "SSH", Risk: "Medium", Attacks: "Brute force"}},
		},
	})
	target.Record(models.ModuleResult{Module: "whois", Status: models.StatusError, Error: "whois: i/o timeout", ErrorKind: models.ErrorTimeout})
	target.Record(models.ModuleResult{
		Module: "web",
		Status: models.StatusSuccess,
		Data: map[string]models.WebEndpoint{
			"http://192.0.2.10":  {StatusCode: 200, Server: "nginx", Title: "Welcome"},
			"https://192.0.2.10": {Error: "connection refused"},
		},
	})

	return &models.ScanResult{
		Config: models.RunConfig{TargetInput: "192.0.2.10", TargetType: models.TargetIP, ProfileName: "Fast", EnabledModules: []string{"whois", "ports", "web"}},
		Summary: models.ScanSummary{
			RunID:           "run-1",
			Target:          "192.0.2.10",
			Type:            models.TargetIP,
			StartTime:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			HostsDiscovered: 1,
			OpenPortsTotal:  1,
			RiskTags:        []string{"ssh_exposed"},
			RiskDetails:     map[string]string{"ssh_exposed": "SSH reachable"},
			ModuleErrors:    map[string]int{"whois": 1},
			IPClass:         "public",
			OpenPortsList:   []int{22},
		},
		Results: map[string]models.TargetResult{target.Target: target},
	}
}

func TestNewResultWriterUsesTimestampDir(t *testing.T) {
	base := t.TempDir()
	w, err := newResultWriter(base, time.Date(2024, 5, 1, 9, 7, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("newResultWriter: %v", err)
	}
	want := filepath.Join(base, "2024-05-01_0907")
	if w.RunDir() != want {
		t.Errorf("RunDir() = %q, want %q", w.RunDir(), want)
	}
	if info, err := os.Stat(want); err != nil || !info.IsDir() {
		t.Errorf("run dir not created: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	w, err := NewResultWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewResultWriter: %v", err)
	}

	path, err := w.Save(sampleResult())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != ResultsFile {
		t.Errorf("path = %q", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"target_input": "192.0.2.10"`, `"open_ports_list": [`, `"error_kind": "timeout"`, `"address": "192.0.2.10"`} {
		if !bytes.Contains(raw, []byte(want)) {
			t.Errorf("results.json missing %s", want)
		}
	}

	loaded, err := LoadResult(path)
	if err != nil {
		t.Fatalf("LoadResult: %v", err)
	}
	if loaded.Summary.RunID != "run-1" || loaded.Results["192.0.2.10"].Modules["whois"].ErrorKind != models.ErrorTimeout {
		t.Errorf("loaded result = %+v", loaded.Summary)
	}

	target := loaded.Results["192.0.2.10"]
	scan, ok := target.PortScan()
	if !ok {
		t.Fatalf("PortScan() after reload: data is %T", target.Modules["ports"].Data)
	}
	if diff := cmp.Diff([]int{22}, scan.OpenPorts); diff != "" {
		t.Errorf("open ports mismatch (-want +got):\n%s", diff)
	}
	endpoints, ok := target.WebEndpoints()
	if !ok || endpoints["http://192.0.2.10"].Server != "nginx" {
		t.Errorf("WebEndpoints() after reload = %v, %v", endpoints, ok)
	}

	var before, after bytes.Buffer
	if err := WriteMarkdown(sampleResult(), &before); err != nil {
		t.Fatal(err)
	}
	if err := WriteMarkdown(loaded, &after); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before.String(), after.String()); diff != "" {
		t.Errorf("report of reloaded result differs (-saved +loaded):\n%s", diff)
	}
}

func TestLoadResultRestoresModuleData(t *testing.T) {
	target := models.NewTargetResult("example.com")
	dns := map[string][]string{"A": {"192.0.2.1"}, "MX": {}}
	subs := []string{"api.example.com", "www.example.com"}
	target.Record(models.ModuleResult{Module: "dns", Status: models.StatusSuccess, Data: dns})
	target.Record(models.ModuleResult{Module: "subdomains", Status: models.StatusSuccess, Data: subs})
	target.Record(models.ModuleResult{Module: "whois", Status: models.StatusSuccess, Data: map[string]interface{}{"registrar": "Example Registrar"}})
	target.Record(models.ModuleResult{Module: "web", Status: models.StatusSkipped})

	w, err := NewResultWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path, err := w.Save(&models.ScanResult{Results: map[string]models.TargetResult{"example.com": target}})
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadResult(path)
	if err != nil {
		t.Fatalf("LoadResult: %v", err)
	}

	modules := loaded.Results["example.com"].Modules
	if diff := cmp.Diff(dns, modules["dns"].Data); diff != "" {
		t.Errorf("dns data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(subs, modules["subdomains"].Data); diff != "" {
		t.Errorf("subdomains data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]interface{}{"registrar": "Example Registrar"}, modules["whois"].Data); diff != "" {
		t.Errorf("whois data mismatch (-want +got):\n%s", diff)
	}
	if modules["web"].Data != nil || modules["web"].Status != models.StatusSkipped {
		t.Errorf("web = %+v, want skipped without data", modules["web"])
	}
}

func TestLoadResultRejectsMismatchedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), ResultsFile)
	raw := `{"results":{"192.0.2.10":{"target":"192.0.2.10","modules":{"ports":{"module":"ports","status":"success","data":["22"]}}}}}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadResult(path); err == nil {
		t.Error("expected an error for a ports payload that is not a scan result")
	}
}

func TestSaveFailsWhenRunDirRemoved(t *testing.T) {
	w, err := NewResultWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(w.RunDir()); err != nil {
		t.Fatal(err)
	}

	result := sampleResult()
	if _, err := w.Save(result); err == nil {
		t.Error("expected an error writing into a missing directory")
	}
	if result.Summary.RunID != "run-1" {
		t.Error("result changed by a failed save")
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdown(sampleResult(), &buf); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	report := buf.String()

	for _, want := range []string{
		"# Reconnaissance Report: 192.0.2.10",
		"- **ssh_exposed**: SSH reachable",
		"- whois: 1",
		"| 22 | SSH | Medium | Brute force |",
		"| whois | error | 0.00s | whois: i/o timeout |",
		`- http://192.0.2.10: 200, server nginx, title "Welcome"`,
		"- https://192.0.2.10: error: connection refused",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q\n%s", want, report)
		}
	}
}

func TestSaveReport(t *testing.T) {
	w, err := NewResultWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path, err := w.SaveReport(sampleResult())
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if filepath.Base(path) != ReportFile {
		t.Errorf("path = %q", path)
	}
}
