package content

import (
	"net/http"
	"time"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/handler/http/anonymous"
)

// Register mounts the feature routes. Writes go through the resolver in
// create mode and the usage gate; reads only adopt an existing session.
func Register(mux *http.ServeMux, svc Service, res *anonymous.Resolver, gate *anonymous.Gate) {
	limited := func(f entity.Feature, h http.Handler) http.Handler {
		return res.Middleware(gate.Limit(f)(h))
	}
	read := func(h http.Handler) http.Handler {
		return res.Optional(anonymous.RequireSession(time.Now)(h))
	}

	mux.Handle("POST   /fit-checks", limited(entity.FeatureFitChecks, CreateFitCheckHandler{svc}))
	mux.Handle("GET    /fit-checks", read(ListFitChecksHandler{svc}))

	mux.Handle("POST   /conversations", limited(entity.FeatureChatMessages, StartConversationHandler{svc}))
	mux.Handle("GET    /conversations", read(ListConversationsHandler{svc}))
	mux.Handle("POST   /conversations/{id}/messages", limited(entity.FeatureChatMessages, SendMessageHandler{svc}))

	mux.Handle("POST   /profile-pic-reviews", limited(entity.FeatureProfilePicReviews, ProfilePicReviewHandler{svc}))
}
