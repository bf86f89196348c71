package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "required field error",
			field:    "userId",
			message:  "is required",
			expected: "validation error on field 'userId': is required",
		},
		{
			name:     "empty field name",
			field:    "",
			message:  "test message",
			expected: "validation error on field '': test message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ValidationError{Field: tt.field, Message: tt.message}
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestSentinelErrors_Distinct(t *testing.T) {
	all := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrSessionNotFound,
		ErrDuplicateSession,
		ErrUnknownFeature,
		ErrSessionRequired,
		ErrSessionExpired,
		ErrMigrationTransaction,
	}
	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestMigrationError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("write conflict")
	err := fmt.Errorf("migrate: %w", &MigrationError{
		Op:        "migrate",
		SessionID: "0123456789abcdef",
		Errors:    []string{"reassign conversations: write conflict"},
		Err:       cause,
	})

	assert.True(t, errors.Is(err, ErrMigrationTransaction))
	assert.True(t, errors.Is(err, cause))

	var migErr *MigrationError
	assert.True(t, errors.As(err, &migErr))
	assert.Equal(t, []string{"reassign conversations: write conflict"}, migErr.Errors)
	assert.Contains(t, err.Error(), "01234567...")
	assert.NotContains(t, err.Error(), "0123456789abcdef")
}
