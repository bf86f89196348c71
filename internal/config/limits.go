package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"jules-backend/internal/domain/entity"
	"jules-backend/pkg/usagelimit"
)

// LimitsFile is the YAML layout of USAGE_LIMITS_FILE:
//
//	limits:
//	  chatMessages: 10
//	messages:
//	  chatMessages: "Create an account to keep chatting."
//
// Features that are not listed keep their defaults.
type LimitsFile struct {
	Limits   map[string]int    `yaml:"limits"`
	Messages map[string]string `yaml:"messages"`
}

// LoadUsagePolicy returns the default policy when path is empty, otherwise
// the defaults overlaid with the file's values.
func LoadUsagePolicy(path string) (usagelimit.Policy, error) {
	policy := usagelimit.DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	// #nosec G304 -- path comes from the operator's environment
	data, err := os.ReadFile(path)
	if err != nil {
		return usagelimit.Policy{}, fmt.Errorf("failed to read limits file: %w", err)
	}
	return ParseUsagePolicy(data, policy)
}

// ParseUsagePolicy overlays the YAML document onto base and validates the
// result.
func ParseUsagePolicy(data []byte, base usagelimit.Policy) (usagelimit.Policy, error) {
	var file LimitsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return usagelimit.Policy{}, fmt.Errorf("failed to parse limits file: %w", err)
	}

	out := usagelimit.Policy{
		Limits:   make(usagelimit.Limits, len(base.Limits)+len(file.Limits)),
		Messages: make(map[entity.Feature]string, len(base.Messages)+len(file.Messages)),
	}
	for f, n := range base.Limits {
		out.Limits[f] = n
	}
	for f, m := range base.Messages {
		out.Messages[f] = m
	}
	for name, n := range file.Limits {
		out.Limits[entity.Feature(name)] = n
	}
	for name, m := range file.Messages {
		out.Messages[entity.Feature(name)] = m
	}

	if err := out.Validate(); err != nil {
		return usagelimit.Policy{}, fmt.Errorf("limits file validation failed: %w", err)
	}
	return out, nil
}
