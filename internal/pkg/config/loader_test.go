package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadString(t *testing.T) {
	tests := []struct {
		name         string
		env          string
		wantValue    string
		wantFallback bool
	}{
		{"unset uses default", "", "*/15 * * * *", false},
		{"valid value", "0 * * * *", "0 * * * *", false},
		{"descriptor", "@hourly", "@hourly", false},
		{"invalid falls back", "every minute", "*/15 * * * *", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_CRON", tt.env)

			res := LoadString("TEST_CRON", "*/15 * * * *", ValidateCronSchedule)

			assert.Equal(t, tt.wantValue, res.Value)
			assert.Equal(t, tt.wantFallback, res.FallbackApplied)
			if tt.wantFallback {
				assert.Contains(t, res.Warning, "TEST_CRON")
			} else {
				assert.Empty(t, res.Warning)
			}
		})
	}
}

func TestLoadInt(t *testing.T) {
	t.Setenv("TEST_PORT", "9100")
	assert.Equal(t, 9100, LoadInt("TEST_PORT", 9091, nil).Value)

	t.Setenv("TEST_PORT", "80")
	res := LoadInt("TEST_PORT", 9091, func(v int) error { return ValidateIntRange(v, 1024, 65535) })
	assert.Equal(t, 9091, res.Value)
	assert.True(t, res.FallbackApplied)

	t.Setenv("TEST_PORT", "abc")
	assert.True(t, LoadInt("TEST_PORT", 9091, nil).FallbackApplied)
}

func TestLoadDuration(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "2m")
	assert.Equal(t, 2*time.Minute, LoadDuration("TEST_TIMEOUT", time.Minute, ValidatePositiveDuration).Value)

	t.Setenv("TEST_TIMEOUT", "-5s")
	res := LoadDuration("TEST_TIMEOUT", time.Minute, ValidatePositiveDuration)
	assert.Equal(t, time.Minute, res.Value)
	assert.True(t, res.FallbackApplied)

	t.Setenv("TEST_TIMEOUT", "soon")
	assert.True(t, LoadDuration("TEST_TIMEOUT", time.Minute, nil).FallbackApplied)
}

func TestLoadBool(t *testing.T) {
	t.Setenv("TEST_FLAG", "true")
	assert.True(t, LoadBool("TEST_FLAG", false).Value)

	t.Setenv("TEST_FLAG", "maybe")
	res := LoadBool("TEST_FLAG", false)
	assert.False(t, res.Value)
	assert.True(t, res.FallbackApplied)
}
