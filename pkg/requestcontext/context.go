// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them without importing net/http.
//
//	actor, ok := requestcontext.Actor(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithActor(ctx, id.Actor{UserID: userID})
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "taskhub/pkg/domain"
)

type (
	actorKey       struct{}
	tokenIDKey     struct{}
	tokenExpiryKey struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	deviceKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// -----------------------------------------------------------------------------
// Auth context
// -----------------------------------------------------------------------------

// Actor retrieves the authenticated actor. ok is false for anonymous requests.
func Actor(ctx context.Context) (id.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(id.Actor)
	if !ok || actor.IsZero() {
		return id.Actor{}, false
	}
	return actor, true
}

// WithActor injects the authenticated actor.
func WithActor(ctx context.Context, actor id.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// UserID is a shortcut for the actor's user id; nil UUID when anonymous.
func UserID(ctx context.Context) id.UserID {
	actor, _ := Actor(ctx)
	return actor.UserID
}

// TokenID retrieves the jti of the bearer credential used on this request.
func TokenID(ctx context.Context) string {
	v, _ := ctx.Value(tokenIDKey{}).(string)
	return v
}

// TokenExpiry retrieves the expiry of the bearer credential used on this request.
func TokenExpiry(ctx context.Context) time.Time {
	v, _ := ctx.Value(tokenExpiryKey{}).(time.Time)
	return v
}

// WithToken injects the credential identity so logout can revoke it.
func WithToken(ctx context.Context, jti string, expiresAt time.Time) context.Context {
	ctx = context.WithValue(ctx, tokenIDKey{}, jti)
	return context.WithValue(ctx, tokenExpiryKey{}, expiresAt)
}

// -----------------------------------------------------------------------------
// Client metadata (IP, User-Agent, device label)
// -----------------------------------------------------------------------------

func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(userAgentKey{}).(string)
	return v
}

// Device retrieves the parsed device label (e.g. "Firefox on Linux").
func Device(ctx context.Context) string {
	v, _ := ctx.Value(deviceKey{}).(string)
	return v
}

// WithClientMetadata injects client IP, User-Agent and device label.
func WithClientMetadata(ctx context.Context, clientIP, userAgent, device string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	ctx = context.WithValue(ctx, userAgentKey{}, userAgent)
	return context.WithValue(ctx, deviceKey{}, device)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time, falling back to time.Now() outside
// HTTP requests.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
