package testutil

import (
	"context"
	"net/http"

	"shiplog/pkg/domain"
	"shiplog/pkg/requestcontext"
)

// WithCaller adds an actor ID and role to the request context, simulating
// what the auth middleware does for authenticated requests.
func WithCaller(req *http.Request, actorID domain.ActorID, role domain.Role) *http.Request {
	ctx := requestcontext.WithActorID(req.Context(), actorID)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
