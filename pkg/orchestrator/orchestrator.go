// Package orchestrator drives a reconnaissance run: it classifies and expands the
// target, walks each host through the passive probes, the port scan and the web
// probe under a soft runtime budget, and folds everything into a ScanResult.
package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ExclusiveAccount/reconforge/pkg/config"
	"github.com/ExclusiveAccount/reconforge/pkg/discovery"
	"github.com/ExclusiveAccount/reconforge/pkg/knowledge"
	"github.com/ExclusiveAccount/reconforge/pkg/models"
	"github.com/ExclusiveAccount/reconforge/pkg/probes"
)

// passiveWorkers bounds the passive probes running at once for a target
const passiveWorkers = 3

// passiveModules run concurrently before any module touches the target
var passiveModules = []string{config.ModuleDNS, config.ModuleWhois, config.ModuleSubdomains}

// Address sources recorded on a port scan result
const (
	SourceDNSA     = "dns_a"
	SourceHostname = "hostname"
	SourceTarget   = "target"
)

// PortScanner scans one address. *discovery.PortScanner satisfies it.
type PortScanner interface {
	Scan(ctx context.Context, address string, ports []int, concurrency int, timeout time.Duration) models.PortScanResult
}

// Orchestrator runs scans. It holds no per-run state and may run several scans
// concurrently.
type Orchestrator struct {
	logger    *logrus.Logger
	registry  *probes.Registry
	scanner   PortScanner
	knowledge *knowledge.Base
	softLimit time.Duration
	now       func() time.Time
	newRunID  func() string
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRegistry sets the probes used for the dns, whois, subdomains and web modules
func WithRegistry(r *probes.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// WithPortScanner replaces the TCP connect scanner
func WithPortScanner(s PortScanner) Option {
	return func(o *Orchestrator) { o.scanner = s }
}

// WithKnowledge replaces the enrichment tables
func WithKnowledge(kb *knowledge.Base) Option {
	return func(o *Orchestrator) { o.knowledge = kb }
}

// WithSoftLimit sets the runtime budget checked before each target
func WithSoftLimit(d time.Duration) Option {
	return func(o *Orchestrator) { o.softLimit = d }
}

// WithClock sets the clock used for the budget and the run timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRunIDs sets the run ID generator
func WithRunIDs(gen func() string) Option {
	return func(o *Orchestrator) { o.newRunID = gen }
}

// New creates an orchestrator. Every module except ports must resolve to a
// registered probe.
func New(logger *logrus.Logger, opts ...Option) (*Orchestrator, error) {
	if logger == nil {
		logger = logrus.New()
	}

	o := &Orchestrator{
		logger:    logger,
		softLimit: config.SoftRuntimeLimit,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.registry == nil {
		o.registry = probes.DefaultRegistry(logger)
	}
	if o.scanner == nil {
		o.scanner = discovery.NewPortScanner(logger)
	}
	if o.knowledge == nil {
		o.knowledge = knowledge.Default()
	}

	for _, name := range config.KnownModules {
		if name == config.ModulePorts {
			continue
		}
		if _, ok := o.registry.Get(name); !ok {
			return nil, fmt.Errorf("no probe registered for module %q", name)
		}
	}
	return o, nil
}

// Run executes one scan. Errors are returned only for an unusable config; probe
// and scanner failures are recorded in the result and never abort the run.
func (o *Orchestrator) Run(ctx context.Context, cfg models.RunConfig) (*models.ScanResult, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	start := o.now()
	runID := o.newRunID()
	log := o.logger.WithFields(logrus.Fields{
		"run_id": runID,
		"target": cfg.TargetInput,
	})
	log.Infof("Starting scan with profile %s, modules %v", cfg.ProfileName, cfg.EnabledModules)

	primary := discovery.Classify(cfg.TargetInput)
	targets := []models.Target{primary}
	var notes *models.CIDRNotes

	if primary.Type == models.TargetCIDR {
		hosts, skipped := discovery.ExpandCIDR(primary.Value, cfg.CIDRLimit)
		targets = make([]models.Target, 0, len(hosts))
		for _, h := range hosts {
			targets = append(targets, models.Target{Value: h, Type: models.TargetIP})
		}
		notes = &models.CIDRNotes{CapApplied: true, Limit: cfg.CIDRLimit, Skipped: skipped}
		log.Infof("CIDR expansion: scanning %d hosts, skipped %d", len(hosts), skipped)
	}

	results := make(map[string]models.TargetResult, len(targets))
	for i, target := range targets {
		if elapsed := o.now().Sub(start); elapsed > o.softLimit {
			log.Warnf("Soft runtime limit reached after %s, %d of %d targets not scanned",
				elapsed.Round(time.Millisecond), len(targets)-i, len(targets))
			break
		}
		if err := ctx.Err(); err != nil {
			log.Warnf("Scan cancelled, %d of %d targets not scanned", len(targets)-i, len(targets))
			break
		}

		log.Debugf("Scanning %s (%s)", target.Value, target.Type)
		results[target.Value] = o.scanTarget(ctx, log, cfg, target)
	}

	primaryValue := cfg.TargetInput
	if len(targets) > 0 {
		primaryValue = targets[0].Value
	}

	summary := Summarize(o.knowledge, cfg, primaryValue, len(targets), results)
	summary.RunID = runID
	summary.Target = cfg.TargetInput
	summary.Type = primary.Type
	summary.StartTime = start
	summary.EndTime = o.now()
	summary.DurationTotal = summary.EndTime.Sub(start).Seconds()
	summary.CIDRNotes = notes

	log.WithFields(logrus.Fields{
		"duration":   fmt.Sprintf("%.2fs", summary.DurationTotal),
		"open_ports": summary.OpenPortsTotal,
		"risk_tags":  len(summary.RiskTags),
	}).Info("Scan complete")

	return &models.ScanResult{
		Config:  cfg,
		Summary: summary,
		Results: results,
	}, nil
}

func validate(cfg models.RunConfig) error {
	if cfg.TargetInput == "" {
		return fmt.Errorf("run config has no target")
	}
	for _, m := range cfg.EnabledModules {
		if !config.IsKnownModule(m) {
			return fmt.Errorf("run config enables unknown module %q", m)
		}
	}
	if cfg.Concurrency < config.MinConcurrency || cfg.Concurrency > config.MaxConcurrency {
		return fmt.Errorf("run config concurrency %d out of range", cfg.Concurrency)
	}
	if cfg.ConnectTimeout < config.MinConnectTimeout || cfg.ConnectTimeout > config.MaxConnectTimeout {
		return fmt.Errorf("run config connect timeout %.2fs out of range [%.1f, %.1f]",
			cfg.ConnectTimeout, config.MinConnectTimeout, config.MaxConnectTimeout)
	}
	// the type Run expands on, not whatever the caller put in TargetType
	if discovery.Classify(cfg.TargetInput).Type == models.TargetCIDR && cfg.CIDRLimit < 1 {
		return fmt.Errorf("run config cidr limit must be positive")
	}
	return nil
}

// scanTarget runs the passive phase, then the port scan and the web probe in order
func (o *Orchestrator) scanTarget(ctx context.Context, log *logrus.Entry, cfg models.RunConfig, target models.Target) models.TargetResult {
	res := models.NewTargetResult(target.Value)
	req := probes.Request{Target: target.Value, Type: target.Type, Timeout: cfg.Timeout()}

	for _, mr := range o.passivePhase(ctx, cfg, req) {
		if mr.Failed() {
			log.Warnf("%s failed for %s: %s", mr.Module, target.Value, mr.Error)
		}
		res.Record(mr)
	}

	if cfg.ModuleEnabled(config.ModulePorts) {
		mr := o.scanPorts(ctx, cfg, target, res)
		if mr.Failed() {
			log.Warnf("port scan failed for %s: %s", target.Value, mr.Error)
		}
		res.Record(mr)
	}

	if cfg.ModuleEnabled(config.ModuleWeb) {
		res.Record(o.runProbe(ctx, config.ModuleWeb, req))
	}

	return res
}

// passivePhase runs the enabled passive probes, at most passiveWorkers at a time.
// Each task writes only its own slot and nothing is read before Wait returns.
func (o *Orchestrator) passivePhase(ctx context.Context, cfg models.RunConfig, req probes.Request) []models.ModuleResult {
	var names []string
	for _, name := range passiveModules {
		if cfg.ModuleEnabled(name) {
			names = append(names, name)
		}
	}

	slots := make([]models.ModuleResult, len(names))
	g := new(errgroup.Group)
	g.SetLimit(passiveWorkers)
	for i, name := range names {
		g.Go(func() error {
			slots[i] = o.runProbe(ctx, name, req)
			return nil
		})
	}
	_ = g.Wait()

	return slots
}

// runProbe executes a registered probe, or records it as skipped when it does
// not apply to the target type
func (o *Orchestrator) runProbe(ctx context.Context, name string, req probes.Request) models.ModuleResult {
	p, ok := o.registry.Get(name)
	if !ok {
		return models.ModuleResult{
			Module:    name,
			Status:    models.StatusError,
			Error:     fmt.Sprintf("no probe registered for %s", name),
			ErrorKind: models.ErrorInternal,
		}
	}
	if !p.Supports(req.Type) {
		return models.ModuleResult{Module: name, Status: models.StatusSkipped}
	}
	return probes.Execute(ctx, p, req)
}

// scanPorts resolves the scan address, scans the profile's port list and
// enriches the open ports
func (o *Orchestrator) scanPorts(ctx context.Context, cfg models.RunConfig, target models.Target, res models.TargetResult) (mr models.ModuleResult) {
	start := time.Now()
	mr.Module = config.ModulePorts

	defer func() {
		if r := recover(); r != nil {
			mr.Status = models.StatusError
			mr.Data = nil
			mr.Error = fmt.Sprintf("port scanner panic: %v", r)
			mr.ErrorKind = models.ErrorInternal
		}
		mr.Duration = time.Since(start).Seconds()
	}()

	address, source := ScanAddress(target, res)
	scan := o.scanner.Scan(ctx, address, config.PortsFor(cfg.ProfileName), cfg.Concurrency, cfg.Timeout())
	scan.Address = address
	scan.AddressSource = source
	scan.Details = o.knowledge.Enrich(scan.OpenPorts)

	mr.Status = models.StatusSuccess
	mr.Data = scan
	return mr
}

// ScanAddress picks the address to port scan. Domains use the first A record from
// a successful DNS probe and fall back to the hostname itself, leaving resolution
// to the dialer. URLs scan their host.
func ScanAddress(target models.Target, res models.TargetResult) (string, string) {
	switch target.Type {
	case models.TargetDomain:
		if dns, ok := res.Modules[config.ModuleDNS]; ok && !dns.Failed() {
			if records, ok := dns.Data.(map[string][]string); ok && len(records["A"]) > 0 {
				return records["A"][0], SourceDNSA
			}
		}
		return target.Value, SourceHostname
	case models.TargetURL:
		if u, err := url.Parse(target.Value); err == nil && u.Hostname() != "" {
			return u.Hostname(), SourceHostname
		}
	}
	return target.Value, SourceTarget
}
