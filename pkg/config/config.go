package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ExclusiveAccount/reconforge/pkg/discovery"
	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

const (
	DefaultConcurrency    = 25
	MinConcurrency        = 1
	MaxConcurrency        = 50
	DefaultConnectTimeout = 0.5 // seconds
	MinConnectTimeout     = 0.1
	MaxConnectTimeout     = 5.0
	DefaultCIDRLimit      = 64

	// SoftRuntimeLimit stops scheduling new targets once a run has been going this long.
	// The hard external limit is assumed to be two minutes.
	SoftRuntimeLimit = 110 * time.Second

	DefaultOutputDir = "data/runs"
)

// Module names
const (
	ModuleDNS        = "dns"
	ModuleWhois      = "whois"
	ModuleSubdomains = "subdomains"
	ModulePorts      = "ports"
	ModuleWeb        = "web"
)

// KnownModules lists every module a run may enable, in execution order
var KnownModules = []string{ModuleDNS, ModuleWhois, ModuleSubdomains, ModulePorts, ModuleWeb}

// Profile names
const (
	ProfileFast   = "Fast"
	ProfileFull   = "Full"
	ProfileCustom = "Custom"
)

// Profile is a named bundle of scan defaults
type Profile struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Modules     []string `json:"modules"`
	Ports       []int    `json:"port_list"`
	Concurrency int      `json:"concurrency"`
	Timeout     float64  `json:"timeout"`
	WebProbe    bool     `json:"web_probe"`
}

// Profiles returns the built-in profiles keyed by name
func Profiles() map[string]Profile {
	return map[string]Profile{
		ProfileFast: {
			Name:        ProfileFast,
			Description: "Passive only + top 100 ports",
			Modules:     []string{ModuleDNS, ModuleWhois, ModuleSubdomains, ModulePorts},
			Ports:       TopPorts(),
			Concurrency: DefaultConcurrency,
			Timeout:     DefaultConnectTimeout,
		},
		ProfileFull: {
			Name:        ProfileFull,
			Description: "Passive + extended ports + web probe",
			Modules:     []string{ModuleDNS, ModuleWhois, ModuleSubdomains, ModulePorts, ModuleWeb},
			Ports:       ExtendedPorts(),
			Concurrency: DefaultConcurrency,
			Timeout:     DefaultConnectTimeout,
			WebProbe:    true,
		},
		ProfileCustom: {
			Name:        ProfileCustom,
			Description: "User defined settings",
			Modules:     []string{},
			Ports:       []int{},
			Concurrency: DefaultConcurrency,
			Timeout:     DefaultConnectTimeout,
		},
	}
}

// ProfileNames returns the profile names in display order
func ProfileNames() []string {
	return []string{ProfileFast, ProfileFull, ProfileCustom}
}

// LookupProfile returns the named profile
func LookupProfile(name string) (Profile, bool) {
	p, ok := Profiles()[name]
	return p, ok
}

// PortsFor returns the port list a run with the given profile scans.
// Custom carries no port list of its own and uses the Fast list.
func PortsFor(profileName string) []int {
	if profileName == ProfileCustom {
		return TopPorts()
	}
	if p, ok := LookupProfile(profileName); ok && len(p.Ports) > 0 {
		return p.Ports
	}
	return TopPorts()
}

// Options are the caller-supplied inputs for a run. Zero values take the profile defaults.
type Options struct {
	Target         string   `json:"target" yaml:"target"`
	Profile        string   `json:"profile" yaml:"profile"`
	Modules        []string `json:"modules" yaml:"modules"`
	Concurrency    int      `json:"concurrency" yaml:"concurrency"`
	ConnectTimeout float64  `json:"connect_timeout" yaml:"connect_timeout"`
	CIDRLimit      int      `json:"cidr_limit" yaml:"cidr_limit"`
}

// DefaultOptions returns options for a Fast scan with no target
func DefaultOptions() Options {
	return Options{
		Profile:        ProfileFast,
		Concurrency:    DefaultConcurrency,
		ConnectTimeout: DefaultConnectTimeout,
		CIDRLimit:      DefaultCIDRLimit,
	}
}

// NewRunConfig validates opts and builds an immutable RunConfig.
// Module lists are validated here so the orchestrator never sees an unknown name.
func NewRunConfig(opts Options) (models.RunConfig, error) {
	target := strings.TrimSpace(opts.Target)
	if target == "" {
		return models.RunConfig{}, fmt.Errorf("target is required")
	}

	profileName := opts.Profile
	if profileName == "" {
		profileName = ProfileFast
	}
	profile, ok := LookupProfile(profileName)
	if !ok {
		return models.RunConfig{}, fmt.Errorf("unknown profile %q (want one of %s)", profileName, strings.Join(ProfileNames(), ", "))
	}

	modules := opts.Modules
	if modules == nil {
		modules = profile.Modules
	}
	modules, err := normalizeModules(modules)
	if err != nil {
		return models.RunConfig{}, err
	}

	concurrency := opts.Concurrency
	if concurrency == 0 {
		concurrency = profile.Concurrency
	}
	if concurrency < MinConcurrency || concurrency > MaxConcurrency {
		return models.RunConfig{}, fmt.Errorf("concurrency %d out of range [%d, %d]", concurrency, MinConcurrency, MaxConcurrency)
	}

	timeout := opts.ConnectTimeout
	if timeout == 0 {
		timeout = profile.Timeout
	}
	if timeout < MinConnectTimeout || timeout > MaxConnectTimeout {
		return models.RunConfig{}, fmt.Errorf("connect timeout %.2fs out of range [%.1f, %.1f]", timeout, MinConnectTimeout, MaxConnectTimeout)
	}

	limit := opts.CIDRLimit
	if limit == 0 {
		limit = DefaultCIDRLimit
	}
	if limit < 1 {
		return models.RunConfig{}, fmt.Errorf("cidr limit must be positive, got %d", limit)
	}

	normalized := discovery.Classify(target)

	return models.RunConfig{
		TargetInput:    normalized.Value,
		TargetType:     normalized.Type,
		ProfileName:    profileName,
		EnabledModules: modules,
		Concurrency:    concurrency,
		ConnectTimeout: timeout,
		CIDRLimit:      limit,
	}, nil
}

// IsKnownModule reports whether name is a module a run can enable
func IsKnownModule(name string) bool {
	for _, m := range KnownModules {
		if m == name {
			return true
		}
	}
	return false
}

func normalizeModules(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if !IsKnownModule(name) {
			return nil, fmt.Errorf("unknown module %q (want any of %s)", raw, strings.Join(KnownModules, ", "))
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

// File is the on-disk configuration: default scan options plus output settings
type File struct {
	Options   `yaml:",inline"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	LogLevel  string `json:"log_level" yaml:"log_level"`
}

// DefaultFile returns the configuration used when no file is present
func DefaultFile() File {
	return File{
		Options:   DefaultOptions(),
		OutputDir: DefaultOutputDir,
		LogLevel:  "info",
	}
}

// LoadConfigFromFile loads configuration from a YAML or JSON file.
// Fields absent from the file keep their defaults.
func LoadConfigFromFile(filePath string) (File, error) {
	cfg := DefaultFile()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return cfg, err
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config format %q", filepath.Ext(filePath))
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	return cfg, nil
}
