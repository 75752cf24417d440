package probes

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/reconforge/pkg/config"
	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

const whoisTimeout = 10 * time.Second

// WhoisProbe looks up registration data: WHOIS for domains, RIR/RDAP-style
// network records for addresses and networks
type WhoisProbe struct {
	lookup func(ctx context.Context, query string) (string, error)
	logger *logrus.Logger
}

// NewWhoisProbe creates a WHOIS probe backed by github.com/likexian/whois
func NewWhoisProbe(logger *logrus.Logger) *WhoisProbe {
	if logger == nil {
		logger = logrus.New()
	}
	client := whois.NewClient().SetTimeout(whoisTimeout)
	return &WhoisProbe{
		logger: logger,
		lookup: func(ctx context.Context, query string) (string, error) {
			return whoisWithContext(ctx, client, query)
		},
	}
}

// whoisWithContext runs a blocking WHOIS query but stops waiting once ctx is done
func whoisWithContext(ctx context.Context, client *whois.Client, query string) (string, error) {
	type reply struct {
		raw string
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		raw, err := client.Whois(query)
		ch <- reply{raw, err}
	}()

	select {
	case r := <-ch:
		return r.raw, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *WhoisProbe) Name() string { return config.ModuleWhois }

func (p *WhoisProbe) Supports(models.TargetType) bool { return true }

// Run dispatches on target type. URL targets are looked up by their host.
func (p *WhoisProbe) Run(ctx context.Context, req Request) (interface{}, error) {
	target := strings.TrimSpace(req.Target)

	switch req.Type {
	case models.TargetDomain:
		return p.lookupDomain(ctx, target)
	case models.TargetIP:
		return p.lookupAddress(ctx, target)
	case models.TargetCIDR:
		// the network address stands in for the whole block
		return p.lookupAddress(ctx, strings.SplitN(target, "/", 2)[0])
	case models.TargetURL:
		u, err := url.Parse(target)
		if err != nil || u.Hostname() == "" {
			return nil, newError(p.Name(), models.ErrorUnsupported, fmt.Errorf("no host in %q", target))
		}
		if _, err := netip.ParseAddr(u.Hostname()); err == nil {
			return p.lookupAddress(ctx, u.Hostname())
		}
		return p.lookupDomain(ctx, u.Hostname())
	}
	return nil, newError(p.Name(), models.ErrorUnsupported, fmt.Errorf("unsupported target type %q", req.Type))
}

func (p *WhoisProbe) lookupDomain(ctx context.Context, domain string) (map[string]interface{}, error) {
	raw, err := p.lookup(ctx, domain)
	if err != nil {
		return nil, newError(p.Name(), "", fmt.Errorf("whois %s: %w", domain, err))
	}

	info, err := whoisparser.Parse(raw)
	if err != nil {
		kind := models.ErrorParse
		if errors.Is(err, whoisparser.ErrNotFoundDomain) {
			kind = models.ErrorNotFound
		}
		return nil, newError(p.Name(), kind, fmt.Errorf("parsing whois for %s: %w", domain, err))
	}

	result := map[string]interface{}{
		"registrar":       "",
		"creation_date":   "",
		"expiration_date": "",
		"emails":          contactEmails(info),
		"org":             "",
	}
	if info.Registrar != nil {
		result["registrar"] = info.Registrar.Name
	}
	if info.Registrant != nil {
		result["org"] = info.Registrant.Organization
	}
	if info.Domain != nil {
		result["creation_date"] = info.Domain.CreatedDate
		result["expiration_date"] = info.Domain.ExpirationDate
		result["name_servers"] = info.Domain.NameServers
		result["status"] = info.Domain.Status
	}
	return result, nil
}

func contactEmails(info whoisparser.WhoisInfo) []string {
	var emails []string
	for _, c := range []*whoisparser.Contact{info.Registrar, info.Registrant, info.Administrative, info.Technical, info.Billing} {
		if c != nil && c.Email != "" {
			emails = append(emails, strings.ToLower(c.Email))
		}
	}
	return uniqueStrings(emails)
}

var (
	asnPatterns = linePatterns(
		`origin:[ \t]*(\S.*)`,
		`OriginAS:[ \t]*(\S.*)`,
		`aut-num:[ \t]*(\S.*)`,
	)
	asnDescriptionPatterns = linePatterns(
		`OrgName:[ \t]*(\S.*)`,
		`org-name:[ \t]*(\S.*)`,
		`descr:[ \t]*(\S.*)`,
		`owner:[ \t]*(\S.*)`,
	)
	networkPatterns = linePatterns(
		`CIDR:[ \t]*(\S.*)`,
		`route6?:[ \t]*(\S.*)`,
		`inet6?num:[ \t]*(\S.*)`,
		`NetRange:[ \t]*(\S.*)`,
	)
	objectPatterns = linePatterns(
		`NetHandle:[ \t]*(\S.*)`,
		`OrgId:[ \t]*(\S.*)`,
		`(?:admin|tech|abuse)-c:[ \t]*(\S.*)`,
		`Org(?:Abuse|Tech|NOC)Handle:[ \t]*(\S.*)`,
	)
)

// linePatterns anchors each field pattern at the start of a line
func linePatterns(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile("(?im)^[ \\t]*" + p)
	}
	return out
}

func (p *WhoisProbe) lookupAddress(ctx context.Context, address string) (map[string]interface{}, error) {
	if _, err := netip.ParseAddr(address); err != nil {
		return nil, newError(p.Name(), models.ErrorUnsupported, fmt.Errorf("invalid address %q", address))
	}

	raw, err := p.lookup(ctx, address)
	if err != nil {
		return nil, newError(p.Name(), "", fmt.Errorf("whois %s: %w", address, err))
	}
	return parseNetworkWhois(raw), nil
}

// parseNetworkWhois pulls ASN and network ownership out of a RIR response
func parseNetworkWhois(raw string) map[string]interface{} {
	text := strings.ReplaceAll(raw, "\r\n", "\n")

	var objects []string
	for _, pattern := range objectPatterns {
		objects = append(objects, findAll(pattern, text)...)
	}

	return map[string]interface{}{
		"asn":             normalizeASN(firstAny(text, asnPatterns...)),
		"asn_description": firstAny(text, asnDescriptionPatterns...),
		"network":         firstAny(text, networkPatterns...),
		"objects":         uniqueStrings(objects),
	}
}

func normalizeASN(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.ToUpper(s), "AS")
	return s
}

func findFirst(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func findAll(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if v := strings.TrimSpace(m[1]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// firstAny checks patterns in order and returns the first match
func firstAny(text string, patterns ...*regexp.Regexp) string {
	for _, p := range patterns {
		if v := findFirst(p, text); v != "" {
			return v
		}
	}
	return ""
}

func uniqueStrings(in []string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
