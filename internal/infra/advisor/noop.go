package advisor

import (
	"context"
	"fmt"
	"strings"

	"jules-backend/internal/domain/entity"
)

// Noop answers with canned content. It is used when no API key is
// configured so the product flows stay exercisable in development.
type Noop struct{}

func (Noop) ReviewOutfit(_ context.Context, req ReviewRequest) (*Review, error) {
	return &Review{Rating: 7, Feedback: cannedFeedback("outfit", req.Context)}, nil
}

func (Noop) ReviewProfilePicture(_ context.Context, req ReviewRequest) (*Review, error) {
	return &Review{Rating: 7, Feedback: cannedFeedback("photo", req.Context)}, nil
}

func (Noop) Reply(_ context.Context, history []entity.Message) (string, error) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == entity.RoleUser {
			return fmt.Sprintf("You said: %q. Tell me more about what you're going for.", history[i].Content), nil
		}
	}
	return "What would you like help with?", nil
}

func cannedFeedback(subject, context string) string {
	context = strings.TrimSpace(context)
	if context == "" {
		return fmt.Sprintf("Solid %s. Add one standout piece to make it memorable.", subject)
	}
	return fmt.Sprintf("Solid %s for %s. Add one standout piece to make it memorable.", subject, context)
}
