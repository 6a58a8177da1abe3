package service

import (
	"context"
	"errors"

	"taskhub/internal/audit"
	"taskhub/internal/identity/models"
	"taskhub/internal/identity/secrets"
	wsmodels "taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/platform/sentinel"
	"taskhub/pkg/requestcontext"
)

// ListUsers returns one page of accounts and the total count from the same
// snapshot. Superusers only.
func (s *Service) ListUsers(ctx context.Context, actor id.Actor, page wsmodels.Pagination) (result wsmodels.Page[*models.User], err error) {
	ctx, done := s.observe(ctx, "list_users")
	defer done(&err)

	if !actor.IsSuperuser {
		return result, errNotSuperuser
	}
	err = s.tx.RunReadTx(ctx, func(txCtx context.Context) error {
		items, err := s.users.List(txCtx, page.Skip, page.Limit)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
		}
		count, err := s.users.Count(txCtx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count users")
		}
		result = wsmodels.Page[*models.User]{Data: items, Count: count}
		return nil
	})
	if err != nil {
		return wsmodels.Page[*models.User]{}, err
	}
	return result, nil
}

// DeleteUser removes an account together with its owned projects, its
// memberships and its comments, all in one transaction. Superusers only,
// and never their own account.
func (s *Service) DeleteUser(ctx context.Context, actor id.Actor, userID id.UserID) (err error) {
	ctx, done := s.observe(ctx, "delete_user")
	defer done(&err)

	if !actor.IsSuperuser {
		return errNotSuperuser
	}
	if actor.UserID == userID {
		return dErrors.New(dErrors.CodeForbidden, "superusers are not allowed to delete themselves")
	}

	var email string
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := s.findUser(txCtx, userID)
		if err != nil {
			return err
		}
		email = u.Email
		if err := s.purger.PurgeUser(txCtx, userID); err != nil {
			return err
		}
		if err := s.users.Delete(txCtx, userID); err != nil {
			return storeErr(err, "failed to delete user")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementUsersDeleted()
	}
	s.emit(ctx, audit.Event{
		Action:       audit.ActionUserDeleted,
		ActorID:      actor.UserID,
		TargetUserID: userID,
		Attributes:   map[string]string{"email": email},
	})
	return nil
}

// EnsureSuperuser makes sure an active superuser with email exists, creating
// or promoting the account. Safe to call on every start.
func (s *Service) EnsureSuperuser(ctx context.Context, email, password string) (err error) {
	ctx, done := s.observe(ctx, "ensure_superuser")
	defer done(&err)

	if email == "" {
		return nil
	}
	normalized, err := models.NormalizeEmail(email)
	if err != nil {
		return validationErr(err)
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.users.FindByEmail(txCtx, normalized)
		switch {
		case err == nil:
			if existing.IsSuperuser && existing.IsActive {
				return nil
			}
			existing.IsSuperuser = true
			existing.IsActive = true
			existing.UpdatedAt = requestcontext.Now(txCtx)
			if err := s.users.Update(txCtx, existing); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to promote superuser")
			}
			s.logger.InfoContext(txCtx, "promoted existing user to superuser", "user_id", existing.ID.String())
			return nil
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up superuser")
		}

		if err := models.ValidatePassword(password); err != nil {
			return validationErr(err)
		}
		hash, err := secrets.Hash(password)
		if err != nil {
			return err
		}
		u, err := models.NewUser(id.NewUserID(), normalized, nil, hash, requestcontext.Now(txCtx))
		if err != nil {
			return validationErr(err)
		}
		u.IsSuperuser = true
		if err := s.users.Create(txCtx, u); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create superuser")
		}
		s.logger.InfoContext(txCtx, "created first superuser", "user_id", u.ID.String())
		return nil
	})
}
