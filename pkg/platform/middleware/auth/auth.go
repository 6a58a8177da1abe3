package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/platform/httputil"
	"taskhub/pkg/requestcontext"
)

// TokenValidator validates a bearer credential.
type TokenValidator interface {
	ValidateToken(token string) (*Claims, error)
}

// TokenRevocationChecker reports whether a credential was revoked by logout.
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// ActorResolver turns a validated subject into the actor used by services.
// Unknown users resolve to CodeUnauthorized, inactive ones to CodeForbidden.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID id.UserID) (id.Actor, error)
}

// Claims is what the middleware needs from a validated credential.
type Claims struct {
	UserID    string
	JTI       string
	ExpiresAt time.Time
}

const bearerPrefix = "Bearer "

// RequireAuth rejects requests without a valid, unrevoked bearer credential
// and stores the resolved actor in the request context.
func RequireAuth(validator TokenValidator, revocationChecker TokenRevocationChecker, resolver ActorResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token", "request_id", requestID)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token", "error", err, "request_id", requestID)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			if revocationChecker != nil {
				if claims.JTI == "" {
					logger.WarnContext(ctx, "unauthorized access - missing token jti", "request_id", requestID)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
					return
				}
				revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation", "error", err, "request_id", requestID)
					httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate token"))
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked", "jti", claims.JTI, "request_id", requestID)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked"))
					return
				}
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - bad subject", "request_id", requestID)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
				return
			}

			actor, err := resolver.ResolveActor(ctx, userID)
			if err != nil {
				logger.WarnContext(ctx, "actor resolution failed", "error", err, "user_id", userID.String(), "request_id", requestID)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithActor(ctx, actor)
			ctx = requestcontext.WithToken(ctx, claims.JTI, claims.ExpiresAt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
