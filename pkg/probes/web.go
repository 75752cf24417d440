package probes

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/ExclusiveAccount/reconforge/pkg/config"
	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

const (
	defaultWebTimeout = 3 * time.Second
	maxRedirects      = 10
	maxTitleBody      = 1 << 20
	userAgent         = "reconforge/1.0"
)

// WebProbe fetches HTTP and HTTPS endpoints and records status, Server header,
// page title and redirect chain
type WebProbe struct {
	logger    *logrus.Logger
	transport http.RoundTripper
}

// NewWebProbe creates a web probe. Certificate verification is disabled so
// self-signed endpoints still report headers.
func NewWebProbe(logger *logrus.Logger) *WebProbe {
	if logger == nil {
		logger = logrus.New()
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	return &WebProbe{logger: logger, transport: transport}
}

func (p *WebProbe) Name() string { return config.ModuleWeb }

func (p *WebProbe) Supports(models.TargetType) bool { return true }

// Run probes the target as given when it is a URL, otherwise both its http://
// and https:// forms. Per-endpoint failures are recorded in the endpoint entry.
func (p *WebProbe) Run(ctx context.Context, req Request) (interface{}, error) {
	target := strings.TrimSpace(req.Target)
	if target == "" {
		return nil, newError(p.Name(), models.ErrorUnsupported, errors.New("empty target"))
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultWebTimeout
	}

	results := make(map[string]models.WebEndpoint)
	for _, u := range WebURLs(target) {
		results[u] = p.probe(ctx, u, timeout)
	}
	return results, nil
}

// WebURLs returns the URLs probed for target
func WebURLs(target string) []string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return []string{target}
	}
	return []string{"http://" + target, "https://" + target}
}

func (p *WebProbe) probe(ctx context.Context, rawURL string, timeout time.Duration) models.WebEndpoint {
	var redirects []string
	client := &http.Client{
		Timeout:   timeout,
		Transport: p.transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.New("stopped after 10 redirects")
			}
			redirects = append(redirects, via[len(via)-1].URL.String())
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return models.WebEndpoint{Error: err.Error()}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		p.logger.Debugf("web probe %s: %v", rawURL, err)
		return models.WebEndpoint{Error: err.Error()}
	}
	defer resp.Body.Close()

	server := resp.Header.Get("Server")
	if server == "" {
		server = "Unknown"
	}

	ep := models.WebEndpoint{
		StatusCode: resp.StatusCode,
		Server:     server,
		Redirects:  redirects,
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		ep.Title = extractTitle(io.LimitReader(resp.Body, maxTitleBody))
	}
	return ep
}

// extractTitle returns the text of the first <title> element
func extractTitle(r io.Reader) string {
	z := html.NewTokenizer(r)
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			inTitle = string(name) == "title"
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(z.Text()))
			}
		case html.EndTagToken:
			inTitle = false
		}
	}
}
