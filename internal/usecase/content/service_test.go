package content_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/infra/adapter/persistence/memory"
	"jules-backend/internal/infra/advisor"
	"jules-backend/internal/usecase/content"
	"jules-backend/internal/usecase/migration"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubAdvisor struct {
	advisor.Noop
	err     error
	history []entity.Message
}

func (s *stubAdvisor) ReviewOutfit(ctx context.Context, req advisor.ReviewRequest) (*advisor.Review, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &advisor.Review{Rating: 8, Feedback: "sharp"}, nil
}

func (s *stubAdvisor) Reply(ctx context.Context, history []entity.Message) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.history = history
	return "reply", nil
}

func newService() (*content.Service, *stubAdvisor) {
	svc, adv, _ := newServiceWithStore()
	return svc, adv
}

// newServiceWithStore seeds live sessions sess-1 and sess-2.
func newServiceWithStore() (*content.Service, *stubAdvisor, *memory.Store) {
	store := memory.NewStore()
	repos := store.Repositories()
	for _, id := range []string{"sess-1", "sess-2"} {
		_ = repos.Sessions.Create(context.Background(), entity.NewAnonymousSession(id, "", "", t0))
	}
	adv := &stubAdvisor{}
	svc := content.NewService(store, repos, adv)
	svc.Now = func() time.Time { return t0 }
	n := 0
	svc.NewID = func() string { n++; return "id-" + string(rune('0'+n)) }
	return svc, adv, store
}

func TestCreateFitCheck(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	owner := entity.AnonymousOwner("sess-1")

	fc, err := svc.CreateFitCheck(ctx, owner, content.ReviewInput{Context: "  office  "})
	require.NoError(t, err)
	assert.Equal(t, "office", fc.Context)
	assert.Equal(t, 8, fc.Rating)
	assert.Equal(t, owner, fc.Owner)

	list, err := svc.ListFitChecks(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, fc.ID, list[0].ID)

	other, err := svc.ListFitChecks(ctx, entity.UserOwner("u-1"))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCreateFitCheck_Validation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.CreateFitCheck(ctx, entity.Owner{}, content.ReviewInput{})
	var ve *entity.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = svc.CreateFitCheck(ctx, entity.UserOwner("u"), content.ReviewInput{ImageURL: "http://insecure"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "imageUrl", ve.Field)

	_, err = svc.CreateFitCheck(ctx, entity.UserOwner("u"), content.ReviewInput{Context: strings.Repeat("x", 501)})
	require.ErrorAs(t, err, &ve)
}

func TestCreateFitCheck_AdvisorFailureStoresNothing(t *testing.T) {
	svc, adv := newService()
	adv.err = advisor.ErrUnavailable
	owner := entity.AnonymousOwner("sess-1")

	_, err := svc.CreateFitCheck(context.Background(), owner, content.ReviewInput{})
	require.ErrorIs(t, err, advisor.ErrUnavailable)

	list, err := svc.ListFitChecks(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConversationFlow(t *testing.T) {
	svc, adv := newService()
	ctx := context.Background()
	owner := entity.AnonymousOwner("sess-1")

	c, err := svc.StartConversation(ctx, owner, "what should I wear?")
	require.NoError(t, err)
	require.Len(t, c.Messages, 2)
	assert.Equal(t, entity.RoleAssistant, c.Messages[1].Role)

	c, err = svc.SendMessage(ctx, owner, c.ID, "and shoes?")
	require.NoError(t, err)
	assert.Len(t, c.Messages, 4)
	assert.Len(t, adv.history, 3, "advisor sees the prior turns plus the new message")

	list, err := svc.ListConversations(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Messages, 4)
}

func TestSendMessage_OtherOwnerIsNotFound(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	c, err := svc.StartConversation(ctx, entity.AnonymousOwner("sess-1"), "hi")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, entity.AnonymousOwner("sess-2"), c.ID, "hijack")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = svc.SendMessage(ctx, entity.AnonymousOwner("sess-1"), "missing", "hi")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSendMessage_EmptyMessage(t *testing.T) {
	svc, _ := newService()
	_, err := svc.StartConversation(context.Background(), entity.UserOwner("u"), "   ")
	var ve *entity.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "message", ve.Field)
}

func TestReviewProfilePicture(t *testing.T) {
	svc, _ := newService()
	rv, err := svc.ReviewProfilePicture(context.Background(), entity.UserOwner("u"), content.ReviewInput{Context: "hiking"})
	require.NoError(t, err)
	assert.Contains(t, rv.Feedback, "hiking")

	svc.Advisor = &failingAdvisor{}
	_, err = svc.ReviewProfilePicture(context.Background(), entity.UserOwner("u"), content.ReviewInput{})
	assert.Error(t, err)
}

type failingAdvisor struct{ advisor.Noop }

func (failingAdvisor) ReviewProfilePicture(context.Context, advisor.ReviewRequest) (*advisor.Review, error) {
	return nil, errors.New("boom")
}

// blockingAdvisor holds ReviewOutfit until release is closed.
type blockingAdvisor struct {
	advisor.Noop
	started chan struct{}
	release chan struct{}
}

func (b *blockingAdvisor) ReviewOutfit(ctx context.Context, req advisor.ReviewRequest) (*advisor.Review, error) {
	close(b.started)
	<-b.release
	return &advisor.Review{Rating: 6, Feedback: "fine"}, nil
}

func TestCreateFitCheck_SessionMigratedDuringAdvisorCall(t *testing.T) {
	svc, _, store := newServiceWithStore()
	repos := store.Repositories()
	ctx := context.Background()
	adv := &blockingAdvisor{started: make(chan struct{}), release: make(chan struct{})}
	svc.Advisor = adv

	errc := make(chan error, 1)
	go func() {
		_, err := svc.CreateFitCheck(ctx, entity.AnonymousOwner("sess-1"), content.ReviewInput{Context: "gala"})
		errc <- err
	}()
	<-adv.started

	mig := migration.NewService(store, repos)
	mig.Now = func() time.Time { return t0 }
	_, err := mig.Migrate(ctx, "sess-1", "user-42")
	require.NoError(t, err)
	close(adv.release)

	require.ErrorIs(t, <-errc, entity.ErrSessionRequired)

	orphans, err := repos.FitChecks.ListOrphanedOwners(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, orphans, "no content may be left owned by the deleted session")
	total, err := repos.FitChecks.CountTotal(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreate_RequiresLiveSession(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.CreateFitCheck(ctx, entity.AnonymousOwner("never-issued"), content.ReviewInput{})
	assert.ErrorIs(t, err, entity.ErrSessionRequired)

	_, err = svc.StartConversation(ctx, entity.AnonymousOwner("never-issued"), "hi")
	assert.ErrorIs(t, err, entity.ErrSessionRequired)

	svc.Now = func() time.Time { return t0.Add(25 * time.Hour) }
	_, err = svc.CreateFitCheck(ctx, entity.AnonymousOwner("sess-1"), content.ReviewInput{})
	assert.ErrorIs(t, err, entity.ErrSessionRequired, "expired session")

	_, err = svc.CreateFitCheck(ctx, entity.UserOwner("u-1"), content.ReviewInput{})
	assert.NoError(t, err, "signed-in users need no session")
}

func TestSendMessage_AfterConversationMigrated(t *testing.T) {
	svc, _, store := newServiceWithStore()
	ctx := context.Background()
	owner := entity.AnonymousOwner("sess-1")

	c, err := svc.StartConversation(ctx, owner, "hi")
	require.NoError(t, err)

	// the conversation moves to the user, the session lives on
	_, err = store.Repositories().Conversations.MigrateOwner(ctx, "sess-1", "user-42", t0)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, owner, c.ID, "still mine?")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
