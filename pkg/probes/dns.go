package probes

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/reconforge/pkg/config"
	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

const (
	dnsQueryTimeout   = 2 * time.Second
	fallbackResolver  = "8.8.8.8:53"
	defaultResolvConf = "/etc/resolv.conf"
)

// DNSRecordTypes are the record types the DNS probe resolves, in output order
var DNSRecordTypes = []string{"A", "AAAA", "MX", "NS", "TXT", "SOA", "CNAME"}

var dnsTypeCodes = map[string]uint16{
	"A":     mdns.TypeA,
	"AAAA":  mdns.TypeAAAA,
	"MX":    mdns.TypeMX,
	"NS":    mdns.TypeNS,
	"TXT":   mdns.TypeTXT,
	"SOA":   mdns.TypeSOA,
	"CNAME": mdns.TypeCNAME,
}

// DNSProbe resolves the common record types of a domain
type DNSProbe struct {
	nameserver string
	timeout    time.Duration
	logger     *logrus.Logger
}

// NewDNSProbe creates a DNS probe querying nameserver (host:port). An empty
// nameserver uses the first entry of /etc/resolv.conf.
func NewDNSProbe(nameserver string, logger *logrus.Logger) *DNSProbe {
	if logger == nil {
		logger = logrus.New()
	}
	if nameserver == "" {
		nameserver = systemNameserver(defaultResolvConf)
	}
	return &DNSProbe{
		nameserver: nameserver,
		timeout:    dnsQueryTimeout,
		logger:     logger,
	}
}

// systemNameserver reads the first nameserver from a resolv.conf file
func systemNameserver(path string) string {
	conf, err := mdns.ClientConfigFromFile(path)
	if err != nil || len(conf.Servers) == 0 {
		return fallbackResolver
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port)
}

func (p *DNSProbe) Name() string { return config.ModuleDNS }

func (p *DNSProbe) Supports(t models.TargetType) bool {
	return t == models.TargetDomain
}

// Run resolves every type in DNSRecordTypes. Types with no records map to an
// empty list. The probe only fails when no query got an answer at all.
func (p *DNSProbe) Run(ctx context.Context, req Request) (interface{}, error) {
	domain := strings.TrimSuffix(strings.TrimSpace(req.Target), ".")
	if domain == "" {
		return nil, newError(p.Name(), models.ErrorUnsupported, errors.New("empty domain"))
	}

	records := make(map[string][]string, len(DNSRecordTypes))
	var firstErr error
	failures := 0

	for _, rtype := range DNSRecordTypes {
		values, err := p.query(ctx, domain, dnsTypeCodes[rtype])
		if err != nil {
			failures++
			if firstErr == nil {
				firstErr = err
			}
			p.logger.Debugf("dns %s %s: %v", rtype, domain, err)
			values = []string{}
		}
		records[rtype] = values
	}

	if failures == len(DNSRecordTypes) {
		return nil, newError(p.Name(), "", fmt.Errorf("resolving %s via %s: %w", domain, p.nameserver, firstErr))
	}
	return records, nil
}

// query performs one lookup, retrying over TCP when the UDP answer is truncated
func (p *DNSProbe) query(ctx context.Context, domain string, qtype uint16) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := new(mdns.Msg)
	msg.SetQuestion(mdns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	client := &mdns.Client{Timeout: p.timeout}
	resp, _, err := client.ExchangeContext(ctx, msg, p.nameserver)
	if err == nil && resp.Truncated {
		client.Net = "tcp"
		resp, _, err = client.ExchangeContext(ctx, msg, p.nameserver)
	}
	if err != nil {
		return nil, err
	}

	switch resp.Rcode {
	case mdns.RcodeSuccess, mdns.RcodeNameError:
	default:
		return nil, fmt.Errorf("server returned %s", mdns.RcodeToString[resp.Rcode])
	}

	values := []string{}
	for _, rr := range resp.Answer {
		if rr.Header().Rrtype != qtype {
			continue
		}
		if v := formatRR(rr); v != "" {
			values = append(values, v)
		}
	}
	return values, nil
}

func formatRR(rr mdns.RR) string {
	switch r := rr.(type) {
	case *mdns.A:
		return r.A.String()
	case *mdns.AAAA:
		return r.AAAA.String()
	case *mdns.MX:
		return fmt.Sprintf("%d %s", r.Preference, trimDot(r.Mx))
	case *mdns.NS:
		return trimDot(r.Ns)
	case *mdns.TXT:
		return strings.Join(r.Txt, "")
	case *mdns.SOA:
		return fmt.Sprintf("%s %s %d %d %d %d %d", trimDot(r.Ns), trimDot(r.Mbox), r.Serial, r.Refresh, r.Retry, r.Expire, r.Minttl)
	case *mdns.CNAME:
		return trimDot(r.Target)
	}
	return ""
}

func trimDot(name string) string {
	return strings.TrimSuffix(name, ".")
}
