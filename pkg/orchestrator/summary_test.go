package orchestrator

import (
	"testing"

	"github.com/ExclusiveAccount/reconforge/pkg/config"
	"github.com/ExclusiveAccount/reconforge/pkg/knowledge"
	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

func TestClassifyIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"127.0.0.1", IPClassLoopback},
		{"192.168.1.5", IPClassPrivate},
		{"10.0.0.1", IPClassPrivate},
		{"172.20.0.5", IPClassPrivate},
		{"172.16.0.1", IPClassPrivate},
		{"172.31.255.254", IPClassPrivate},
		{"172.32.0.1", IPClassPublic},
		{"172.abc", IPClassPublic},
		{"172.", IPClassPublic},
		{"8.8.8.8", IPClassPublic},
		{"10.example.com", IPClassPrivate},
		{"example.com", IPClassPublic},
		{"192.0.2.0/28", IPClassPublic},
	}
	for _, tt := range tests {
		if got := ClassifyIP(tt.in); got != tt.want {
			t.Errorf("ClassifyIP(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPortProfileLabel(t *testing.T) {
	tests := []struct {
		profile string
		n       int
		want    string
	}{
		{config.ProfileFast, 100, "top_100"},
		{config.ProfileFull, 1052, "extended_1052"},
		{config.ProfileCustom, 100, "custom_100"},
		{"Other", 7, "custom_7"},
	}
	for _, tt := range tests {
		if got := PortProfileLabel(tt.profile, tt.n); got != tt.want {
			t.Errorf("PortProfileLabel(%q, %d) = %q, want %q", tt.profile, tt.n, got, tt.want)
		}
	}
}

func TestSummarizeNoResults(t *testing.T) {
	cfg := models.RunConfig{TargetInput: "example.com", ProfileName: config.ProfileFast, EnabledModules: []string{"ports"}}
	s := Summarize(knowledge.Default(), cfg, "example.com", 1, map[string]models.TargetResult{})

	if s.OpenPortsList == nil || len(s.OpenPortsList) != 0 {
		t.Errorf("OpenPortsList = %#v, want empty non-nil", s.OpenPortsList)
	}
	if s.RiskTags == nil || len(s.RiskTags) != 0 {
		t.Errorf("RiskTags = %#v, want empty non-nil", s.RiskTags)
	}
	if s.PortsServiceProfile != "top_100" {
		t.Errorf("PortsServiceProfile = %q", s.PortsServiceProfile)
	}
}

func TestSummarizeSumsTimingsAcrossTargets(t *testing.T) {
	a := models.NewTargetResult("192.0.2.1")
	a.Record(models.ModuleResult{Module: "ports", Status: models.StatusSuccess, Duration: 1.5, Data: models.PortScanResult{OpenPorts: []int{23}}})
	a.Record(models.ModuleResult{Module: "web", Status: models.StatusError, Duration: 0.5, Error: "refused"})
	b := models.NewTargetResult("192.0.2.2")
	b.Record(models.ModuleResult{Module: "ports", Status: models.StatusSuccess, Duration: 2, Data: &models.PortScanResult{OpenPorts: []int{21, 23}}})

	cfg := models.RunConfig{ProfileName: config.ProfileFull}
	s := Summarize(knowledge.Default(), cfg, "192.0.2.1", 2, map[string]models.TargetResult{a.Target: a, b.Target: b})

	if s.ModuleTimings["ports"] != 3.5 || s.ModuleTimings["web"] != 0.5 {
		t.Errorf("ModuleTimings = %v", s.ModuleTimings)
	}
	if s.ModuleErrors["web"] != 1 || len(s.ModuleErrors) != 1 {
		t.Errorf("ModuleErrors = %v", s.ModuleErrors)
	}
	if s.OpenPortsTotal != 3 || len(s.OpenPortsList) != 2 {
		t.Errorf("OpenPortsTotal %d, OpenPortsList %v", s.OpenPortsTotal, s.OpenPortsList)
	}
	if s.PortsServiceProfile != "n/a" {
		t.Errorf("PortsServiceProfile = %q", s.PortsServiceProfile)
	}
}
