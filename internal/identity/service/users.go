package service

import (
	"context"
	"strings"

	"taskhub/internal/audit"
	"taskhub/internal/identity/models"
	"taskhub/internal/identity/secrets"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/requestcontext"
)

var errNotSuperuser = dErrors.New(dErrors.CodeForbidden, "not enough privileges")

// UpdateMe changes the actor's own display name and password. A nil argument
// leaves that field alone. Activation and privileges are not self-service.
func (s *Service) UpdateMe(ctx context.Context, actor id.Actor, fullName, password *string) (user *models.User, err error) {
	ctx, done := s.observe(ctx, "update_me")
	defer done(&err)

	var hash string
	if password != nil {
		if err := models.ValidatePassword(*password); err != nil {
			return nil, validationErr(err)
		}
		if hash, err = secrets.Hash(*password); err != nil {
			return nil, err
		}
	}

	var changed []string
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := s.findUser(txCtx, actor.UserID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(txCtx)
		if changed, err = u.Apply(models.UserPatch{FullName: fullName}, now); err != nil {
			return validationErr(err)
		}
		if hash != "" {
			if err := u.SetPassword(hash, now); err != nil {
				return err
			}
		}
		if len(changed) > 0 || hash != "" {
			if err := s.users.Update(txCtx, u); err != nil {
				return storeErr(err, "failed to update user")
			}
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	if (len(changed) > 0 || hash != "") && s.metrics != nil {
		s.metrics.IncrementUsersUpdated("self")
	}
	if len(changed) > 0 {
		s.emitUpdate(ctx, actor.UserID, user.ID, changed)
	}
	if hash != "" {
		s.emit(ctx, audit.Event{Action: audit.ActionUserPasswordChanged, ActorID: actor.UserID, TargetUserID: user.ID})
	}
	return user, nil
}

// GetUser returns any account. Superusers only.
func (s *Service) GetUser(ctx context.Context, actor id.Actor, userID id.UserID) (user *models.User, err error) {
	ctx, done := s.observe(ctx, "get_user")
	defer done(&err)

	if !actor.IsSuperuser {
		return nil, errNotSuperuser
	}
	err = s.tx.RunReadTx(ctx, func(txCtx context.Context) error {
		user, err = s.findUser(txCtx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser applies patch to any account. Superusers only. A superuser may
// rename themselves but cannot deactivate or demote their own account.
// Deactivation takes effect on the target's next request.
func (s *Service) UpdateUser(ctx context.Context, actor id.Actor, userID id.UserID, patch models.UserPatch) (user *models.User, err error) {
	ctx, done := s.observe(ctx, "update_user")
	defer done(&err)

	if !actor.IsSuperuser {
		return nil, errNotSuperuser
	}
	if patch.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no fields to update")
	}
	if actor.UserID == userID && (isFalse(patch.IsActive) || isFalse(patch.IsSuperuser)) {
		return nil, dErrors.New(dErrors.CodeForbidden, "superusers are not allowed to deactivate or demote themselves")
	}

	var changed []string
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := s.findUser(txCtx, userID)
		if err != nil {
			return err
		}
		if changed, err = u.Apply(patch, requestcontext.Now(txCtx)); err != nil {
			return validationErr(err)
		}
		if len(changed) > 0 {
			if err := s.users.Update(txCtx, u); err != nil {
				return storeErr(err, "failed to update user")
			}
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(changed) > 0 {
		if s.metrics != nil {
			s.metrics.IncrementUsersUpdated("admin")
		}
		s.emitUpdate(ctx, actor.UserID, userID, changed)
	}
	return user, nil
}

func (s *Service) emitUpdate(ctx context.Context, actorID, userID id.UserID, changed []string) {
	s.emit(ctx, audit.Event{
		Action:       audit.ActionUserUpdated,
		ActorID:      actorID,
		TargetUserID: userID,
		Attributes:   map[string]string{"fields": strings.Join(changed, ",")},
	})
}

func isFalse(b *bool) bool { return b != nil && !*b }
