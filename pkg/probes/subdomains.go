package probes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/reconforge/pkg/config"
	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

const (
	crtShURL         = "https://crt.sh/"
	subdomainTimeout = 5 * time.Second
	maxCTBody        = 32 << 20
)

// SubdomainProbe enumerates subdomains from certificate transparency logs (crt.sh)
type SubdomainProbe struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

// NewSubdomainProbe creates a subdomain probe. An empty baseURL uses crt.sh.
func NewSubdomainProbe(baseURL string, logger *logrus.Logger) *SubdomainProbe {
	if logger == nil {
		logger = logrus.New()
	}
	if baseURL == "" {
		baseURL = crtShURL
	}
	return &SubdomainProbe{
		baseURL: baseURL,
		client:  &http.Client{Timeout: subdomainTimeout},
		logger:  logger,
	}
}

func (p *SubdomainProbe) Name() string { return config.ModuleSubdomains }

func (p *SubdomainProbe) Supports(t models.TargetType) bool {
	return t == models.TargetDomain
}

type ctEntry struct {
	NameValue string `json:"name_value"`
}

// Run returns the sorted unique names below the domain found in CT logs
func (p *SubdomainProbe) Run(ctx context.Context, req Request) (interface{}, error) {
	domain := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(req.Target), "."))
	if domain == "" {
		return nil, newError(p.Name(), models.ErrorUnsupported, errors.New("empty domain"))
	}

	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, newError(p.Name(), models.ErrorInternal, err)
	}
	q := u.Query()
	q.Set("q", "%."+domain)
	q.Set("output", "json")
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, newError(p.Name(), models.ErrorInternal, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, newError(p.Name(), "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError(p.Name(), models.ErrorNetwork, fmt.Errorf("crt.sh returned %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCTBody))
	if err != nil {
		return nil, newError(p.Name(), "", err)
	}

	var entries []ctEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, newError(p.Name(), models.ErrorParse, fmt.Errorf("decoding crt.sh response: %w", err))
	}

	var names []string
	for _, e := range entries {
		names = append(names, strings.Split(e.NameValue, "\n")...)
	}
	subs := FilterSubdomains(domain, names)
	p.logger.Debugf("crt.sh returned %d entries, %d subdomains of %s", len(entries), len(subs), domain)
	return subs, nil
}

// FilterSubdomains keeps the names that sit strictly below domain, lowercased,
// wildcard labels stripped, deduplicated and sorted
func FilterSubdomains(domain string, names []string) []string {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	suffix := "." + domain

	seen := make(map[string]struct{})
	out := []string{}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		name = strings.TrimPrefix(name, "*.")
		name = strings.TrimSuffix(name, ".")
		if name == domain || !strings.HasSuffix(name, suffix) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
