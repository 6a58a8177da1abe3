// Package service implements account use cases: registration, login and
// logout, actor resolution for authenticated requests, and administration.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"taskhub/internal/audit"
	identitymetrics "taskhub/internal/identity/metrics"
	"taskhub/internal/identity/models"
	"taskhub/internal/identity/token"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/platform/sentinel"
	"taskhub/pkg/platform/tx"
)

const (
	tracerName            = "taskhub/internal/identity/service"
	defaultAccessTokenTTL = time.Hour
	tokenTypeBearer       = "bearer"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, userID id.UserID) error
	List(ctx context.Context, skip, limit int) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, expiresIn time.Duration) (token.Issued, error)
}

// RevocationList remembers logged-out token ids until they would have
// expired anyway.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// WorkspacePurger removes the workspace data that depends on a user. It must
// join the transaction carried by ctx.
type WorkspacePurger interface {
	PurgeUser(ctx context.Context, userID id.UserID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	RunReadTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages accounts and the credentials issued for them.
type Service struct {
	users  UserStore
	tokens TokenIssuer
	trl    RevocationList
	purger WorkspacePurger

	tx             StoreTx
	logger         *slog.Logger
	metrics        *identitymetrics.Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
	accessTTL      time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *identitymetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithTx sets the transaction runner. It must be the runner the workspace
// purger uses so DeleteUser commits as one unit.
func WithTx(runner StoreTx) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

func New(users UserStore, tokens TokenIssuer, trl RevocationList, purger WorkspacePurger, opts ...Option) *Service {
	s := &Service{
		users:     users,
		tokens:    tokens,
		trl:       trl,
		purger:    purger,
		logger:    slog.Default(),
		accessTTL: defaultAccessTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewMemoryRunner()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

func (s *Service) observe(ctx context.Context, operation string) (context.Context, func(*error)) {
	ctx, span := s.tracer.Start(ctx, "identity."+operation)
	return ctx, func(errp *error) {
		if *errp != nil {
			*errp = normalize(*errp)
			code := dErrors.CodeOf(*errp)
			span.SetAttributes(attribute.String("error.code", string(code)))
			span.RecordError(*errp)
			span.SetStatus(codes.Error, string(code))
			if code == dErrors.CodeInternal || code == dErrors.CodeTimeout {
				s.logger.ErrorContext(ctx, "identity operation failed",
					"operation", operation,
					"error", *errp,
				)
			}
		}
		span.End()
	}
}

func normalize(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !dErrors.HasCode(err, dErrors.CodeTimeout) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation timed out")
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
}

func validationErr(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	return err
}

// storeErr maps a user store failure. A missing row is reported as not
// found; anything else is internal and described by msg.
func storeErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) findUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "failed to load user")
	}
	return u, nil
}

func (s *Service) emit(ctx context.Context, e audit.Event) {
	s.logger.InfoContext(ctx, string(e.Action), "log_type", "audit", "user_id", e.TargetUserID.String())
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"action", string(e.Action),
			"error", err,
		)
	}
}
