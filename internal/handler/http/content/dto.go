// Package content serves the feature endpoints whose use is metered for
// anonymous visitors: fit checks, chat and profile picture reviews.
package content

import (
	"time"

	"jules-backend/internal/domain/entity"
)

// FitCheckDTO is a stored outfit review.
type FitCheckDTO struct {
	ID        string    `json:"id" example:"3f8e0a4c-8c55-4d0b-9d43-7f3f4c1b2a10"`
	Context   string    `json:"context" example:"Dinner date at a rooftop bar"`
	Rating    int       `json:"rating" example:"8"`
	Feedback  string    `json:"feedback"`
	CreatedAt time.Time `json:"createdAt"`
}

func fitCheckDTO(fc *entity.FitCheck) FitCheckDTO {
	return FitCheckDTO{
		ID:        fc.ID,
		Context:   fc.Context,
		Rating:    fc.Rating,
		Feedback:  fc.Feedback,
		CreatedAt: fc.CreatedAt,
	}
}

// ConversationDTO is a chat thread.
type ConversationDTO struct {
	ID        string           `json:"id"`
	Messages  []entity.Message `json:"messages"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func conversationDTO(c *entity.Conversation) ConversationDTO {
	msgs := c.Messages
	if msgs == nil {
		msgs = []entity.Message{}
	}
	return ConversationDTO{
		ID:        c.ID,
		Messages:  msgs,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type reviewRequest struct {
	Context  string `json:"context"`
	ImageURL string `json:"imageUrl"`
}

type messageRequest struct {
	Message string `json:"message"`
}
