package mongo

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"

	"jules-backend/internal/domain/entity"
)

func TestSessionDoc_BSONLayout(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := entity.NewAnonymousSession("abc", "198.51.100.7", "ua", now)
	s.Usage.ChatMessages = 3

	raw, err := bson.Marshal(newSessionDoc(s))
	assert.NoError(t, err)
	var m bson.M
	assert.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, "abc", m["_id"])
	assert.EqualValues(t, 3, m["chat_messages"])
	assert.Contains(t, m, "expires_at")

	var back sessionDoc
	assert.NoError(t, bson.Unmarshal(raw, &back))
	if diff := cmp.Diff(s, back.entity()); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestFitCheckDoc_OwnerDiscriminator(t *testing.T) {
	fc := &entity.FitCheck{ID: "f1", Owner: entity.AnonymousOwner("sess"), CreatedAt: time.Unix(0, 0).UTC()}
	raw, err := bson.Marshal(newFitCheckDoc(fc))
	assert.NoError(t, err)

	var m bson.M
	assert.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, "anonymous", m["owner_kind"])
	assert.Equal(t, "sess", m["owner_id"])
	assert.NotContains(t, m, "migrated_at")
	assert.NotContains(t, m, "migrated_from_session")
}

func TestUsageField(t *testing.T) {
	for _, f := range entity.Features {
		field, ok := usageField(f)
		assert.True(t, ok, f)
		assert.NotEmpty(t, field)
	}
	_, ok := usageField("bogus")
	assert.False(t, ok)
}
