package admin

import (
	"log/slog"
	"net/http"

	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/platform/httputil"
	"taskhub/pkg/requestcontext"
)

// RequireSuperuser admits only actors flagged as superusers. It must run
// after auth.RequireAuth.
func RequireSuperuser(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor, ok := requestcontext.Actor(ctx)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !actor.IsSuperuser {
				logger.WarnContext(ctx, "superuser route denied",
					"user_id", actor.UserID.String(),
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "superuser privileges required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
