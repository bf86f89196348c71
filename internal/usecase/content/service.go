// Package content implements the feature use cases that produce content owned
// by a user or an anonymous session: fit checks, chat conversations and
// profile picture reviews.
//
// Usage accounting is not done here; the HTTP gate increments the session's
// counter after a feature call succeeds.
//
// Writes for an anonymous owner run in a transaction that first locks the
// session record, so they serialize with migration and the expiry sweep. A
// session that is gone or expired by then fails with entity.ErrSessionRequired
// and nothing is stored.
package content

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/infra/advisor"
	"jules-backend/internal/repository"
)

const (
	maxContextLen = 500
	maxMessageLen = 2000
)

// Service creates and reads owned content.
type Service struct {
	Tx            repository.Transactor
	FitChecks     repository.FitCheckRepository
	Conversations repository.ConversationRepository
	Advisor       advisor.Advisor
	Now           func() time.Time
	NewID         func() string
}

func NewService(tx repository.Transactor, repos repository.Repositories, adv advisor.Advisor) *Service {
	return &Service{
		Tx:            tx,
		FitChecks:     repos.FitChecks,
		Conversations: repos.Conversations,
		Advisor:       adv,
		Now:           time.Now,
		NewID:         uuid.NewString,
	}
}

// write runs fn in a transaction. For an anonymous owner the session is
// locked first and must still be live.
func (s *Service) write(ctx context.Context, owner entity.Owner, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return s.Tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if owner.IsAnonymous() {
			sess, err := repos.Sessions.GetForUpdate(ctx, owner.ID)
			if err != nil {
				return fmt.Errorf("lock session: %w", err)
			}
			if sess == nil || sess.IsExpired(s.now()) {
				return entity.ErrSessionRequired
			}
		}
		return fn(ctx, repos)
	})
}

// ReviewInput is the body of a fit check or profile picture review.
type ReviewInput struct {
	Context  string
	ImageURL string
}

func (in ReviewInput) validate() error {
	if utf8.RuneCountInString(in.Context) > maxContextLen {
		return &entity.ValidationError{Field: "context", Message: fmt.Sprintf("must be at most %d characters", maxContextLen)}
	}
	if in.ImageURL != "" {
		return entity.ValidateImageURL(in.ImageURL)
	}
	return nil
}

func (s *Service) now() time.Time { return s.Now().UTC() }

// CreateFitCheck asks the advisor for an outfit review and stores it for owner.
func (s *Service) CreateFitCheck(ctx context.Context, owner entity.Owner, in ReviewInput) (*entity.FitCheck, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	rv, err := s.Advisor.ReviewOutfit(ctx, advisor.ReviewRequest{Context: in.Context, ImageURL: in.ImageURL})
	if err != nil {
		return nil, fmt.Errorf("fit check review: %w", err)
	}
	fc := &entity.FitCheck{
		ID:        s.NewID(),
		Owner:     owner,
		Context:   strings.TrimSpace(in.Context),
		Rating:    rv.Rating,
		Feedback:  rv.Feedback,
		CreatedAt: s.now(),
	}
	err = s.write(ctx, owner, func(ctx context.Context, repos repository.Repositories) error {
		return repos.FitChecks.Create(ctx, fc)
	})
	if err != nil {
		return nil, fmt.Errorf("create fit check: %w", err)
	}
	return fc, nil
}

func (s *Service) ListFitChecks(ctx context.Context, owner entity.Owner) ([]*entity.FitCheck, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	list, err := s.FitChecks.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list fit checks: %w", err)
	}
	return list, nil
}

// ReviewProfilePicture returns a review without persisting it.
func (s *Service) ReviewProfilePicture(ctx context.Context, owner entity.Owner, in ReviewInput) (*advisor.Review, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	rv, err := s.Advisor.ReviewProfilePicture(ctx, advisor.ReviewRequest{Context: in.Context, ImageURL: in.ImageURL})
	if err != nil {
		return nil, fmt.Errorf("profile picture review: %w", err)
	}
	return rv, nil
}

// StartConversation opens a conversation with the user's first message and
// the advisor's reply.
func (s *Service) StartConversation(ctx context.Context, owner entity.Owner, message string) (*entity.Conversation, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	msg, err := s.userMessage(message)
	if err != nil {
		return nil, err
	}
	reply, err := s.Advisor.Reply(ctx, []entity.Message{msg})
	if err != nil {
		return nil, fmt.Errorf("chat reply: %w", err)
	}

	now := s.now()
	c := &entity.Conversation{
		ID:        s.NewID(),
		Owner:     owner,
		Messages:  []entity.Message{msg, {Role: entity.RoleAssistant, Content: reply, CreatedAt: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.write(ctx, owner, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Conversations.Create(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

// SendMessage appends a user message and the advisor's reply. A conversation
// that belongs to someone else is reported as not found.
func (s *Service) SendMessage(ctx context.Context, owner entity.Owner, conversationID, message string) (*entity.Conversation, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	msg, err := s.userMessage(message)
	if err != nil {
		return nil, err
	}
	c, err := s.Conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if c == nil || c.Owner != owner {
		return nil, entity.ErrNotFound
	}

	history := append(c.Messages[:len(c.Messages):len(c.Messages)], msg)
	reply, err := s.Advisor.Reply(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("chat reply: %w", err)
	}
	now := s.now()
	added := []entity.Message{msg, {Role: entity.RoleAssistant, Content: reply, CreatedAt: now}}
	// the conversation may have been migrated during the advisor call
	err = s.write(ctx, owner, func(ctx context.Context, repos repository.Repositories) error {
		cur, err := repos.Conversations.Get(ctx, c.ID)
		if err != nil {
			return err
		}
		if cur == nil || cur.Owner != owner {
			return entity.ErrNotFound
		}
		return repos.Conversations.AppendMessages(ctx, c.ID, added, now)
	})
	if err != nil {
		return nil, fmt.Errorf("append messages: %w", err)
	}
	c.Messages = append(c.Messages, added...)
	c.UpdatedAt = now
	return c, nil
}

func (s *Service) ListConversations(ctx context.Context, owner entity.Owner) ([]*entity.Conversation, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	list, err := s.Conversations.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return list, nil
}

func (s *Service) userMessage(text string) (entity.Message, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return entity.Message{}, &entity.ValidationError{Field: "message", Message: "is required"}
	case utf8.RuneCountInString(text) > maxMessageLen:
		return entity.Message{}, &entity.ValidationError{Field: "message", Message: fmt.Sprintf("must be at most %d characters", maxMessageLen)}
	}
	return entity.Message{Role: entity.RoleUser, Content: text, CreatedAt: s.now()}, nil
}
