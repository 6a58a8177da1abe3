package service

import (
	"context"
	"errors"
	"time"

	"taskhub/internal/audit"
	"taskhub/internal/identity/models"
	"taskhub/internal/identity/secrets"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/platform/sentinel"
	"taskhub/pkg/requestcontext"
)

var errBadCredentials = dErrors.New(dErrors.CodeUnauthorized, "incorrect email or password")

// Register creates an active account. Emails are unique ignoring case.
func (s *Service) Register(ctx context.Context, email, password string, fullName *string) (user *models.User, err error) {
	ctx, done := s.observe(ctx, "register")
	defer done(&err)

	if err := models.ValidatePassword(password); err != nil {
		return nil, validationErr(err)
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, err
	}
	u, err := models.NewUser(id.NewUserID(), email, fullName, hash, requestcontext.Now(ctx))
	if err != nil {
		return nil, validationErr(err)
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, u); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "a user with this email already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementRegistrations()
	}
	s.emit(ctx, audit.Event{Action: audit.ActionUserRegistered, ActorID: u.ID, TargetUserID: u.ID})
	return u, nil
}

// Login exchanges credentials for a bearer access token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (result models.AccessToken, err error) {
	ctx, done := s.observe(ctx, "login")
	defer done(&err)

	normalized, err := models.NormalizeEmail(email)
	if err != nil {
		s.failedLogin("credentials")
		return models.AccessToken{}, errBadCredentials
	}

	var u *models.User
	err = s.tx.RunReadTx(ctx, func(txCtx context.Context) error {
		u, err = s.users.FindByEmail(txCtx, normalized)
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.failedLogin("credentials")
			return models.AccessToken{}, errBadCredentials
		}
		return models.AccessToken{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := secrets.Verify(password, u.HashedPassword); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.failedLogin("credentials")
			return models.AccessToken{}, errBadCredentials
		}
		return models.AccessToken{}, err
	}
	if !u.IsActive {
		s.failedLogin("inactive")
		return models.AccessToken{}, dErrors.New(dErrors.CodeForbidden, "inactive user")
	}

	issued, err := s.tokens.GenerateAccessToken(u.ID, s.accessTTL)
	if err != nil {
		return models.AccessToken{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	if s.metrics != nil {
		s.metrics.IncrementLogins()
	}
	s.logger.InfoContext(ctx, "user logged in", "user_id", u.ID.String())
	return models.AccessToken{
		AccessToken: issued.Token,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int(s.accessTTL.Seconds()),
	}, nil
}

func (s *Service) failedLogin(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementFailedLogins(reason)
	}
}

// Logout revokes the presented token until it expires. A token that has
// already expired needs no entry.
func (s *Service) Logout(ctx context.Context, actor id.Actor, jti string, expiresAt time.Time) (err error) {
	ctx, done := s.observe(ctx, "logout")
	defer done(&err)

	if jti == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "token has no identifier")
	}
	ttl := expiresAt.Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return nil
	}
	if err := s.trl.RevokeToken(ctx, jti, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	if s.metrics != nil {
		s.metrics.IncrementLogouts()
	}
	s.logger.InfoContext(ctx, "user logged out", "user_id", actor.UserID.String())
	return nil
}

// IsTokenRevoked reports whether jti was revoked by a logout.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.trl.IsRevoked(ctx, jti)
}

// ResolveActor maps a token subject to the actor used by the workspace.
// Unknown users are unauthorized; inactive users are forbidden.
func (s *Service) ResolveActor(ctx context.Context, userID id.UserID) (actor id.Actor, err error) {
	ctx, done := s.observe(ctx, "resolve_actor")
	defer done(&err)

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "user no longer exists")
		}
		return id.Actor{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if !u.IsActive {
		return id.Actor{}, dErrors.New(dErrors.CodeForbidden, "inactive user")
	}
	return u.Actor(), nil
}

// Me returns the actor's own account.
func (s *Service) Me(ctx context.Context, actor id.Actor) (user *models.User, err error) {
	ctx, done := s.observe(ctx, "me")
	defer done(&err)
	return s.findUser(ctx, actor.UserID)
}
