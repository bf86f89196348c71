package mongo

import (
	"time"

	"jules-backend/internal/domain/entity"
)

type sessionDoc struct {
	ID                string    `bson:"_id"`
	FitChecks         int       `bson:"fit_checks"`
	ChatMessages      int       `bson:"chat_messages"`
	ProfilePicReviews int       `bson:"profile_pic_reviews"`
	IPAddress         string    `bson:"ip_address,omitempty"`
	UserAgent         string    `bson:"user_agent,omitempty"`
	CreatedAt         time.Time `bson:"created_at"`
	LastActivityAt    time.Time `bson:"last_activity_at"`
	ExpiresAt         time.Time `bson:"expires_at"`
}

func newSessionDoc(s *entity.AnonymousSession) sessionDoc {
	return sessionDoc{
		ID:                s.SessionID,
		FitChecks:         s.Usage.FitChecks,
		ChatMessages:      s.Usage.ChatMessages,
		ProfilePicReviews: s.Usage.ProfilePicReviews,
		IPAddress:         s.IPAddress,
		UserAgent:         s.UserAgent,
		CreatedAt:         s.CreatedAt.UTC(),
		LastActivityAt:    s.LastActivityAt.UTC(),
		ExpiresAt:         s.ExpiresAt.UTC(),
	}
}

func (d sessionDoc) entity() *entity.AnonymousSession {
	return &entity.AnonymousSession{
		SessionID: d.ID,
		Usage: entity.UsageCounts{
			FitChecks:         d.FitChecks,
			ChatMessages:      d.ChatMessages,
			ProfilePicReviews: d.ProfilePicReviews,
		},
		IPAddress:      d.IPAddress,
		UserAgent:      d.UserAgent,
		CreatedAt:      d.CreatedAt,
		LastActivityAt: d.LastActivityAt,
		ExpiresAt:      d.ExpiresAt,
	}
}

// usageField maps a feature to its counter field.
func usageField(f entity.Feature) (string, bool) {
	switch f {
	case entity.FeatureFitChecks:
		return "fit_checks", true
	case entity.FeatureChatMessages:
		return "chat_messages", true
	case entity.FeatureProfilePicReviews:
		return "profile_pic_reviews", true
	}
	return "", false
}

type fitCheckDoc struct {
	ID           string     `bson:"_id"`
	OwnerKind    string     `bson:"owner_kind"`
	OwnerID      string     `bson:"owner_id"`
	Context      string     `bson:"context"`
	Rating       int        `bson:"rating"`
	Feedback     string     `bson:"feedback"`
	CreatedAt    time.Time  `bson:"created_at"`
	MigratedAt   *time.Time `bson:"migrated_at,omitempty"`
	MigratedFrom string     `bson:"migrated_from_session,omitempty"`
}

func newFitCheckDoc(fc *entity.FitCheck) fitCheckDoc {
	return fitCheckDoc{
		ID:           fc.ID,
		OwnerKind:    string(fc.Owner.Kind),
		OwnerID:      fc.Owner.ID,
		Context:      fc.Context,
		Rating:       fc.Rating,
		Feedback:     fc.Feedback,
		CreatedAt:    fc.CreatedAt.UTC(),
		MigratedAt:   fc.MigratedAt,
		MigratedFrom: fc.MigratedFrom,
	}
}

func (d fitCheckDoc) entity() *entity.FitCheck {
	return &entity.FitCheck{
		ID:           d.ID,
		Owner:        entity.Owner{Kind: entity.OwnerKind(d.OwnerKind), ID: d.OwnerID},
		Context:      d.Context,
		Rating:       d.Rating,
		Feedback:     d.Feedback,
		CreatedAt:    d.CreatedAt,
		MigratedAt:   d.MigratedAt,
		MigratedFrom: d.MigratedFrom,
	}
}

type conversationDoc struct {
	ID           string           `bson:"_id"`
	OwnerKind    string           `bson:"owner_kind"`
	OwnerID      string           `bson:"owner_id"`
	Messages     []entity.Message `bson:"messages"`
	CreatedAt    time.Time        `bson:"created_at"`
	UpdatedAt    time.Time        `bson:"updated_at"`
	MigratedAt   *time.Time       `bson:"migrated_at,omitempty"`
	MigratedFrom string           `bson:"migrated_from_session,omitempty"`
}

func newConversationDoc(c *entity.Conversation) conversationDoc {
	msgs := c.Messages
	if msgs == nil {
		msgs = []entity.Message{}
	}
	return conversationDoc{
		ID:           c.ID,
		OwnerKind:    string(c.Owner.Kind),
		OwnerID:      c.Owner.ID,
		Messages:     msgs,
		CreatedAt:    c.CreatedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
		MigratedAt:   c.MigratedAt,
		MigratedFrom: c.MigratedFrom,
	}
}

func (d conversationDoc) entity() *entity.Conversation {
	return &entity.Conversation{
		ID:           d.ID,
		Owner:        entity.Owner{Kind: entity.OwnerKind(d.OwnerKind), ID: d.OwnerID},
		Messages:     d.Messages,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		MigratedAt:   d.MigratedAt,
		MigratedFrom: d.MigratedFrom,
	}
}

type migrationDoc struct {
	SessionID          string     `bson:"_id"`
	UserID             string     `bson:"user_id"`
	FitChecksMoved     int        `bson:"fit_checks_moved"`
	ConversationsMoved int        `bson:"conversations_moved"`
	MigratedAt         time.Time  `bson:"migrated_at"`
	RolledBackAt       *time.Time `bson:"rolled_back_at,omitempty"`
}

func (d migrationDoc) entity() *entity.MigrationRecord {
	return &entity.MigrationRecord{
		SessionID:          d.SessionID,
		UserID:             d.UserID,
		FitChecksMoved:     d.FitChecksMoved,
		ConversationsMoved: d.ConversationsMoved,
		MigratedAt:         d.MigratedAt,
		RolledBackAt:       d.RolledBackAt,
	}
}
