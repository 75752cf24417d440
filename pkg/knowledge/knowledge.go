// Package knowledge holds the static port and risk tables used to annotate scan output.
package knowledge

import (
	"sort"
	"strings"
	"sync"

	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

// Base is a read-only lookup service over port metadata and risk tag descriptions.
// A Base is safe for concurrent use; nothing mutates it after construction.
type Base struct {
	ports        map[int]models.KnowledgeRecord
	unknown      models.KnowledgeRecord
	descriptions map[RiskTag]string
	allowlist    map[int]struct{}
	portTags     map[int]RiskTag
}

var (
	defaultBase *Base
	defaultOnce sync.Once
)

// Default returns the process-wide Base built from the built-in tables
func Default() *Base {
	defaultOnce.Do(func() {
		defaultBase = New(defaultPortRecords, defaultTagDescriptions)
	})
	return defaultBase
}

// New builds a Base from the given tables. The maps are copied.
func New(ports map[int]models.KnowledgeRecord, descriptions map[RiskTag]string) *Base {
	b := &Base{
		ports:        make(map[int]models.KnowledgeRecord, len(ports)),
		unknown:      UnknownPort,
		descriptions: make(map[RiskTag]string, len(descriptions)),
		allowlist:    make(map[int]struct{}, len(commonPorts)),
		portTags:     make(map[int]RiskTag, len(portTags)),
	}
	for port, rec := range ports {
		b.ports[port] = rec
	}
	for tag, desc := range descriptions {
		b.descriptions[tag] = desc
	}
	for _, port := range commonPorts {
		b.allowlist[port] = struct{}{}
	}
	for port, tag := range portTags {
		b.portTags[port] = tag
	}
	return b
}

// Lookup returns the record for port, or the Unknown record
func (b *Base) Lookup(port int) models.KnowledgeRecord {
	rec, ok := b.ports[port]
	if !ok {
		rec = b.unknown
	}
	rec.Port = port
	return rec
}

// Enrich returns one record per open port, in the given order
func (b *Base) Enrich(openPorts []int) []models.KnowledgeRecord {
	details := make([]models.KnowledgeRecord, 0, len(openPorts))
	for _, port := range openPorts {
		details = append(details, b.Lookup(port))
	}
	return details
}

// IsCommonPort reports whether port is on the common-ports allowlist
func (b *Base) IsCommonPort(port int) bool {
	_, ok := b.allowlist[port]
	return ok
}

// TargetTags returns the risk tags raised by a single target's results
func (b *Base) TargetTags(res models.TargetResult) map[RiskTag]struct{} {
	tags := make(map[RiskTag]struct{})

	if scan, ok := res.PortScan(); ok {
		for _, port := range scan.OpenPorts {
			if tag, ok := b.portTags[port]; ok {
				tags[tag] = struct{}{}
			}
			if !b.IsCommonPort(port) {
				tags[TagNonstandardPortsOpen] = struct{}{}
			}
		}
	}

	if endpoints, ok := res.WebEndpoints(); ok {
		for _, ep := range endpoints {
			if disclosesServer(ep) {
				tags[TagServerVersionDisclosure] = struct{}{}
				break
			}
		}
	}

	return tags
}

// DeriveRiskTags unions the tags of every target and returns them sorted
func (b *Base) DeriveRiskTags(results map[string]models.TargetResult) []RiskTag {
	union := make(map[RiskTag]struct{})
	for _, res := range results {
		for tag := range b.TargetTags(res) {
			union[tag] = struct{}{}
		}
	}

	tags := make([]RiskTag, 0, len(union))
	for tag := range union {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Describe returns the human-readable description of tag
func (b *Base) Describe(tag RiskTag) string {
	if desc, ok := b.descriptions[tag]; ok {
		return desc
	}
	return NoDescription
}

// Descriptions maps each tag to its description
func (b *Base) Descriptions(tags []RiskTag) map[string]string {
	out := make(map[string]string, len(tags))
	for _, tag := range tags {
		out[string(tag)] = b.Describe(tag)
	}
	return out
}

// Tags returns every tag with a known description, sorted
func (b *Base) Tags() []RiskTag {
	tags := make([]RiskTag, 0, len(b.descriptions))
	for tag := range b.descriptions {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// disclosesServer reports whether a web endpoint returned a real Server header.
// The web probe fills in "Unknown" when the header is absent.
func disclosesServer(ep models.WebEndpoint) bool {
	server := strings.TrimSpace(ep.Server)
	return ep.Error == "" && server != "" && !strings.EqualFold(server, "Unknown")
}
