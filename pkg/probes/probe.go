// Package probes implements the collaborators a scan runs against each target:
// DNS records, WHOIS/RDAP registration data, certificate-transparency subdomains and
// HTTP(S) endpoint probing. Every probe owns its timeout and reports failure as a
// typed *Error instead of panicking past its boundary.
package probes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

// Request is the input to a probe run
type Request struct {
	Target  string
	Type    models.TargetType
	Timeout time.Duration // Per-connection timeout from the run config; probes may ignore it
}

// Probe is a single reconnaissance collaborator
type Probe interface {
	// Name is the module identifier the probe is registered under
	Name() string
	// Supports reports whether the probe applies to targets of type t
	Supports(t models.TargetType) bool
	// Run executes the probe. The payload must be JSON-serializable.
	Run(ctx context.Context, req Request) (interface{}, error)
}

// Error is a probe failure with a classified cause
type Error struct {
	Probe string
	Kind  models.ErrorKind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Probe, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps err for probe, classifying it unless kind is given
func newError(probe string, kind models.ErrorKind, err error) *Error {
	if kind == "" {
		kind = KindOf(err)
	}
	return &Error{Probe: probe, Kind: kind, Err: err}
}

// KindOf classifies an error returned by a probe or the network stack
func KindOf(err error) models.ErrorKind {
	if err == nil {
		return ""
	}

	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrorTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return models.ErrorNotFound
		}
		if dnsErr.IsTimeout {
			return models.ErrorTimeout
		}
		return models.ErrorNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.ErrorTimeout
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return models.ErrorParse
	}

	var opErr *net.OpError
	var urlErr *url.Error
	if errors.As(err, &opErr) || errors.As(err, &urlErr) || errors.Is(err, context.Canceled) {
		return models.ErrorNetwork
	}

	return models.ErrorInternal
}

// Registry maps module names to probes
type Registry struct {
	probes map[string]Probe
}

// NewRegistry builds a registry, rejecting duplicate names
func NewRegistry(probes ...Probe) (*Registry, error) {
	r := &Registry{probes: make(map[string]Probe, len(probes))}
	for _, p := range probes {
		if p == nil {
			return nil, fmt.Errorf("nil probe")
		}
		if _, dup := r.probes[p.Name()]; dup {
			return nil, fmt.Errorf("probe %q registered twice", p.Name())
		}
		r.probes[p.Name()] = p
	}
	return r, nil
}

// Get returns the probe registered under name
func (r *Registry) Get(name string) (Probe, bool) {
	p, ok := r.probes[name]
	return p, ok
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.probes))
	for name := range r.probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns the registry of the built-in probes
func DefaultRegistry(logger *logrus.Logger) *Registry {
	r, err := NewRegistry(
		NewDNSProbe("", logger),
		NewWhoisProbe(logger),
		NewSubdomainProbe("", logger),
		NewWebProbe(logger),
	)
	if err != nil {
		// names are distinct constants
		panic(err)
	}
	return r
}

// Execute runs p and converts the outcome into a ModuleResult. A panic inside the
// probe is recovered and reported as an internal error.
func Execute(ctx context.Context, p Probe, req Request) (res models.ModuleResult) {
	start := time.Now()
	res.Module = p.Name()

	defer func() {
		if r := recover(); r != nil {
			res.Status = models.StatusError
			res.Data = nil
			res.Error = fmt.Sprintf("%s: panic: %v", p.Name(), r)
			res.ErrorKind = models.ErrorInternal
		}
		res.Duration = time.Since(start).Seconds()
	}()

	data, err := p.Run(ctx, req)
	if err != nil {
		res.Status = models.StatusError
		res.Error = err.Error()
		res.ErrorKind = KindOf(err)
		return res
	}

	res.Status = models.StatusSuccess
	res.Data = data
	return res
}
