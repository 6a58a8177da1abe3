package testutil

import (
	"net/http"

	id "taskhub/pkg/domain"
	"taskhub/pkg/requestcontext"
)

// WithActor simulates the auth middleware for handler tests.
func WithActor(req *http.Request, actor id.Actor) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}
