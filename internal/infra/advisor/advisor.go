// Package advisor talks to the language model behind the fit check,
// profile picture review and chat features.
package advisor

import (
	"context"
	"errors"

	"jules-backend/internal/domain/entity"
)

// ErrUnavailable is returned when the model provider cannot be reached or
// its circuit breaker is open.
var ErrUnavailable = errors.New("advisor unavailable")

// Review is a scored critique.
type Review struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// ReviewRequest describes the picture being reviewed. ImageURL is optional.
type ReviewRequest struct {
	Context  string
	ImageURL string
}

// Advisor produces model-generated content for the feature handlers.
type Advisor interface {
	ReviewOutfit(ctx context.Context, req ReviewRequest) (*Review, error)
	ReviewProfilePicture(ctx context.Context, req ReviewRequest) (*Review, error)
	// Reply returns the assistant's next message for the conversation.
	Reply(ctx context.Context, history []entity.Message) (string, error)
}

// clampRating keeps model ratings on the 1 to 10 scale.
func clampRating(r int) int {
	return min(max(r, 1), 10)
}
