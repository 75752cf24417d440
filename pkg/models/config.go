package models

import "time"

// RunConfig holds the settings for a single run. Build it with config.NewRunConfig.
type RunConfig struct {
	TargetInput    string     `json:"target_input" yaml:"target_input"`       // Free-text target
	TargetType     TargetType `json:"target_type" yaml:"target_type"`         // Classified type of TargetInput
	ProfileName    string     `json:"profile_name" yaml:"profile_name"`       // Fast, Full or Custom
	EnabledModules []string   `json:"enabled_modules" yaml:"enabled_modules"` // Ordered, no duplicates
	Concurrency    int        `json:"concurrency" yaml:"concurrency"`         // Simultaneous connection attempts (1-50)
	ConnectTimeout float64    `json:"connect_timeout" yaml:"connect_timeout"` // Seconds per connection (0.1-5.0)
	CIDRLimit      int        `json:"cidr_limit" yaml:"cidr_limit"`           // Max hosts expanded from a CIDR
}

// Timeout returns ConnectTimeout as a duration
func (c RunConfig) Timeout() time.Duration {
	return time.Duration(c.ConnectTimeout * float64(time.Second))
}

// ModuleEnabled reports whether name is in EnabledModules
func (c RunConfig) ModuleEnabled(name string) bool {
	for _, m := range c.EnabledModules {
		if m == name {
			return true
		}
	}
	return false
}
