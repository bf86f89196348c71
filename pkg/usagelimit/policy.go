package usagelimit

import (
	"fmt"

	"jules-backend/internal/domain/entity"
)

// Limits maps a feature to the number of uses allowed per session.
type Limits map[entity.Feature]int

// DefaultLimits returns the fixed free-tier quota.
func DefaultLimits() Limits {
	return Limits{
		entity.FeatureFitChecks:         1,
		entity.FeatureProfilePicReviews: 1,
		entity.FeatureChatMessages:      5,
	}
}

// Only returns the subset of l for the given features. Features without a
// configured limit are skipped.
func (l Limits) Only(features ...entity.Feature) Limits {
	out := make(Limits, len(features))
	for _, f := range features {
		if limit, ok := l[f]; ok {
			out[f] = limit
		}
	}
	return out
}

var defaultMessages = map[entity.Feature]string{
	entity.FeatureFitChecks:         "You've used your free fit check. Sign up to get unlimited outfit feedback.",
	entity.FeatureProfilePicReviews: "You've used your free profile picture review. Sign up to review more photos.",
	entity.FeatureChatMessages:      "You've reached the free chat limit. Sign up to keep the conversation going.",
}

// UpgradeMessage returns the fixed signup copy for f.
func UpgradeMessage(f entity.Feature) string {
	if msg, ok := defaultMessages[f]; ok {
		return msg
	}
	return "You've reached the free usage limit. Sign up to continue."
}

// Policy bundles limits with the upgrade copy shown on denial.
type Policy struct {
	Limits   Limits
	Messages map[entity.Feature]string
}

// DefaultPolicy returns DefaultLimits with the built-in upgrade copy.
func DefaultPolicy() Policy {
	msgs := make(map[entity.Feature]string, len(defaultMessages))
	for f, m := range defaultMessages {
		msgs[f] = m
	}
	return Policy{Limits: DefaultLimits(), Messages: msgs}
}

// Message returns the upgrade copy for f, falling back to UpgradeMessage.
func (p Policy) Message(f entity.Feature) string {
	if msg, ok := p.Messages[f]; ok && msg != "" {
		return msg
	}
	return UpgradeMessage(f)
}

// Validate rejects unknown features and negative limits.
func (p Policy) Validate() error {
	for f, limit := range p.Limits {
		if !f.Valid() {
			return fmt.Errorf("limits: %w: %q", entity.ErrUnknownFeature, string(f))
		}
		if limit < 0 {
			return fmt.Errorf("limits: %s must be >= 0, got %d", f, limit)
		}
	}
	for f := range p.Messages {
		if !f.Valid() {
			return fmt.Errorf("messages: %w: %q", entity.ErrUnknownFeature, string(f))
		}
	}
	return nil
}

// Check evaluates counts against the policy limits for the given features.
// With no features, every configured limit is evaluated.
func (p Policy) Check(counts entity.UsageCounts, features ...entity.Feature) *Decision {
	limits := p.Limits
	if len(features) > 0 {
		limits = limits.Only(features...)
	}
	d := Check(counts, limits)
	if d.Denial != nil {
		d.Denial.Message = p.Message(d.Denial.Feature)
	}
	return d
}
