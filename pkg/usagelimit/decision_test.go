package usagelimit

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jules-backend/internal/domain/entity"
)

func TestEvaluate_Grid(t *testing.T) {
	for current := 0; current <= 7; current++ {
		for limit := 0; limit <= 6; limit++ {
			u := Evaluate(current, limit)
			if got, want := u.IsLimitReached(), current >= limit; got != want {
				t.Fatalf("IsLimitReached(%d,%d) = %v", current, limit, got)
			}
			want := limit - current
			if want < 0 {
				want = 0
			}
			if u.Remaining != want {
				t.Fatalf("Remaining(%d,%d) = %d, want %d", current, limit, u.Remaining, want)
			}
		}
	}
}

func TestCheck_DeniesAfterSingleFitCheck(t *testing.T) {
	counts := entity.UsageCounts{}
	_, err := counts.Increment(entity.FeatureFitChecks)
	require.NoError(t, err)

	d := Check(counts, Limits{entity.FeatureFitChecks: 1})

	require.False(t, d.Allowed)
	require.NotNil(t, d.Denial)
	assert.Equal(t, entity.FeatureFitChecks, d.Denial.Feature)
	assert.Equal(t, 1, d.Denial.Current)
	assert.Equal(t, 1, d.Denial.Limit)
	assert.Equal(t, 0, d.Usage[entity.FeatureFitChecks].Remaining)
	assert.NotEmpty(t, d.Denial.Message)

	var limitErr *UsageLimitReachedError
	assert.True(t, errors.As(d.Err(), &limitErr))
}

func TestCheck_AllowReportsBreakdown(t *testing.T) {
	counts := entity.UsageCounts{ChatMessages: 3}

	d := Check(counts, DefaultLimits())

	require.True(t, d.Allowed)
	assert.Nil(t, d.Err())
	want := map[entity.Feature]FeatureUsage{
		entity.FeatureFitChecks:         {Current: 0, Limit: 1, Remaining: 1},
		entity.FeatureChatMessages:      {Current: 3, Limit: 5, Remaining: 2},
		entity.FeatureProfilePicReviews: {Current: 0, Limit: 1, Remaining: 1},
	}
	if diff := cmp.Diff(want, d.Usage); diff != "" {
		t.Errorf("usage mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_DeniesWhenAnyFeatureTrips(t *testing.T) {
	counts := entity.UsageCounts{ChatMessages: 5, ProfilePicReviews: 1}

	d := Check(counts, DefaultLimits())

	require.False(t, d.Allowed)
	// chatMessages precedes profilePicReviews in entity.Features.
	assert.Equal(t, entity.FeatureChatMessages, d.Denial.Feature)
	assert.Len(t, d.Usage, 3)
}

func TestCheck_OnlyRequestedFeatures(t *testing.T) {
	counts := entity.UsageCounts{FitChecks: 1}

	d := Check(counts, DefaultLimits().Only(entity.FeatureChatMessages))

	assert.True(t, d.Allowed)
	assert.Len(t, d.Usage, 1)
}

func TestPolicy_CustomMessage(t *testing.T) {
	p := DefaultPolicy()
	p.Messages[entity.FeatureChatMessages] = "custom"

	d := p.Check(entity.UsageCounts{ChatMessages: 5}, entity.FeatureChatMessages)

	require.False(t, d.Allowed)
	assert.Equal(t, "custom", d.Denial.Message)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := Policy{Limits: Limits{"selfies": 3}}
	assert.ErrorIs(t, bad.Validate(), entity.ErrUnknownFeature)

	neg := Policy{Limits: Limits{entity.FeatureFitChecks: -1}}
	assert.Error(t, neg.Validate())
}

func TestHeaderValue(t *testing.T) {
	d := Check(entity.UsageCounts{ChatMessages: 2}, DefaultLimits().Only(entity.FeatureChatMessages))

	var decoded map[string]FeatureUsage
	require.NoError(t, json.Unmarshal([]byte(d.HeaderValue()), &decoded))
	assert.Equal(t, FeatureUsage{Current: 2, Limit: 5, Remaining: 3}, decoded["chatMessages"])

	assert.Equal(t, "{}", EncodeUsage(nil))
}
