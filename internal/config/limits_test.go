package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jules-backend/internal/domain/entity"
	"jules-backend/pkg/usagelimit"
)

func TestLoadUsagePolicy_EmptyPathIsDefault(t *testing.T) {
	got, err := LoadUsagePolicy("")
	require.NoError(t, err)
	if diff := cmp.Diff(usagelimit.DefaultPolicy(), got); diff != "" {
		t.Errorf("policy mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadUsagePolicy_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
limits:
  chatMessages: 10
messages:
  chatMessages: "Create an account to keep chatting."
`), 0o600))

	got, err := LoadUsagePolicy(path)
	require.NoError(t, err)

	want := usagelimit.DefaultLimits()
	want[entity.FeatureChatMessages] = 10
	if diff := cmp.Diff(want, got.Limits); diff != "" {
		t.Errorf("limits mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Create an account to keep chatting.", got.Message(entity.FeatureChatMessages))
	assert.Equal(t, usagelimit.UpgradeMessage(entity.FeatureFitChecks), got.Message(entity.FeatureFitChecks))
}

func TestParseUsagePolicy_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown feature", yaml: "limits:\n  videoCalls: 3\n"},
		{name: "negative limit", yaml: "limits:\n  fitChecks: -1\n"},
		{name: "unknown message feature", yaml: "messages:\n  videoCalls: hi\n"},
		{name: "not yaml", yaml: "limits: [1, 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUsagePolicy([]byte(tt.yaml), usagelimit.DefaultPolicy())
			assert.Error(t, err)
		})
	}
}

func TestLoadUsagePolicy_MissingFile(t *testing.T) {
	_, err := LoadUsagePolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseUsagePolicy_DoesNotMutateBase(t *testing.T) {
	base := usagelimit.DefaultPolicy()
	_, err := ParseUsagePolicy([]byte("limits:\n  fitChecks: 3\n"), base)
	require.NoError(t, err)
	assert.Equal(t, 1, base.Limits[entity.FeatureFitChecks])
}
