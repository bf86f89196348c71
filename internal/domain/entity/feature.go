package entity

import "fmt"

// Feature names a rate-limited capability available to anonymous visitors.
type Feature string

const (
	FeatureFitChecks         Feature = "fitChecks"
	FeatureChatMessages      Feature = "chatMessages"
	FeatureProfilePicReviews Feature = "profilePicReviews"
)

// Features lists every recognized feature in a stable order.
var Features = []Feature{
	FeatureFitChecks,
	FeatureChatMessages,
	FeatureProfilePicReviews,
}

// Valid reports whether f is one of the recognized features.
func (f Feature) Valid() bool {
	switch f {
	case FeatureFitChecks, FeatureChatMessages, FeatureProfilePicReviews:
		return true
	}
	return false
}

// ParseFeature converts a raw name into a Feature.
// It returns an error wrapping ErrUnknownFeature for unrecognized names.
func ParseFeature(name string) (Feature, error) {
	f := Feature(name)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}
	return f, nil
}

// UsageCounts holds per-feature usage for a session. Counts never decrease.
type UsageCounts struct {
	FitChecks         int `json:"fitChecks"`
	ChatMessages      int `json:"chatMessages"`
	ProfilePicReviews int `json:"profilePicReviews"`
}

// Get returns the count for f. Unknown features count as zero.
func (u UsageCounts) Get(f Feature) int {
	switch f {
	case FeatureFitChecks:
		return u.FitChecks
	case FeatureChatMessages:
		return u.ChatMessages
	case FeatureProfilePicReviews:
		return u.ProfilePicReviews
	}
	return 0
}

// Increment adds one to the count for f and returns the new value.
func (u *UsageCounts) Increment(f Feature) (int, error) {
	switch f {
	case FeatureFitChecks:
		u.FitChecks++
		return u.FitChecks, nil
	case FeatureChatMessages:
		u.ChatMessages++
		return u.ChatMessages, nil
	case FeatureProfilePicReviews:
		u.ProfilePicReviews++
		return u.ProfilePicReviews, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFeature, string(f))
}

// Set overwrites the count for f. Unknown features are ignored.
func (u *UsageCounts) Set(f Feature, n int) {
	switch f {
	case FeatureFitChecks:
		u.FitChecks = n
	case FeatureChatMessages:
		u.ChatMessages = n
	case FeatureProfilePicReviews:
		u.ProfilePicReviews = n
	}
}

// Plus returns the per-feature sum of u and o.
func (u UsageCounts) Plus(o UsageCounts) UsageCounts {
	return UsageCounts{
		FitChecks:         u.FitChecks + o.FitChecks,
		ChatMessages:      u.ChatMessages + o.ChatMessages,
		ProfilePicReviews: u.ProfilePicReviews + o.ProfilePicReviews,
	}
}

// AsMap returns the counts keyed by feature.
func (u UsageCounts) AsMap() map[Feature]int {
	return map[Feature]int{
		FeatureFitChecks:         u.FitChecks,
		FeatureChatMessages:      u.ChatMessages,
		FeatureProfilePicReviews: u.ProfilePicReviews,
	}
}
