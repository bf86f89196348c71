package usagelimit

import (
	"encoding/json"
	"fmt"

	"jules-backend/internal/domain/entity"
)

// FeatureUsage is the quota state of a single feature.
type FeatureUsage struct {
	Current   int `json:"current"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// IsLimitReached reports whether no uses remain.
func (u FeatureUsage) IsLimitReached() bool {
	return u.Current >= u.Limit
}

// Evaluate computes the quota state for a (current, limit) pair.
func Evaluate(current, limit int) FeatureUsage {
	return FeatureUsage{
		Current:   current,
		Limit:     limit,
		Remaining: max(0, limit-current),
	}
}

// Decision is the outcome of a limit check.
type Decision struct {
	// Allowed is false when any evaluated feature has reached its limit.
	Allowed bool

	// Usage holds the breakdown for every evaluated feature.
	Usage map[entity.Feature]FeatureUsage

	// Denial describes the feature that tripped. Nil when Allowed.
	Denial *UsageLimitReachedError
}

// String returns a human-readable representation of the decision.
func (d *Decision) String() string {
	if d.Allowed {
		return fmt.Sprintf("Decision{Allowed: true, Features: %d}", len(d.Usage))
	}
	return fmt.Sprintf("Decision{Allowed: false, Feature: %s, Usage: %d/%d}",
		d.Denial.Feature, d.Denial.Current, d.Denial.Limit)
}

// Err returns the denial as an error, or nil when allowed.
func (d *Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return d.Denial
}

// HeaderValue encodes the usage breakdown as the JSON object carried in the
// usage response header: {"feature": {"current", "limit", "remaining"}}.
func (d *Decision) HeaderValue() string {
	return EncodeUsage(d.Usage)
}

// EncodeUsage renders a usage breakdown as compact JSON.
func EncodeUsage(usage map[entity.Feature]FeatureUsage) string {
	if len(usage) == 0 {
		return "{}"
	}
	b, err := json.Marshal(usage)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Check evaluates counts against limits. The first tripped feature in
// entity.Features order is reported in the denial so results are stable.
func Check(counts entity.UsageCounts, limits Limits) *Decision {
	d := &Decision{
		Allowed: true,
		Usage:   make(map[entity.Feature]FeatureUsage, len(limits)),
	}
	for _, f := range entity.Features {
		limit, ok := limits[f]
		if !ok {
			continue
		}
		u := Evaluate(counts.Get(f), limit)
		d.Usage[f] = u
		if u.IsLimitReached() && d.Denial == nil {
			d.Allowed = false
			d.Denial = &UsageLimitReachedError{
				Feature: f,
				Current: u.Current,
				Limit:   u.Limit,
				Message: UpgradeMessage(f),
			}
		}
	}
	return d
}

// UsageLimitReachedError is the policy denial surfaced to clients as 429.
type UsageLimitReachedError struct {
	Feature entity.Feature
	Current int
	Limit   int
	Message string
}

func (e *UsageLimitReachedError) Error() string {
	return fmt.Sprintf("usage limit reached for %s: %d/%d", e.Feature, e.Current, e.Limit)
}
