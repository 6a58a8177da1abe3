package service

import (
	"context"
	"errors"

	"taskhub/internal/audit"
	"taskhub/internal/workspace/models"
	"taskhub/internal/workspace/policy"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/platform/sentinel"
	"taskhub/pkg/requestcontext"
)

// ListMembers returns the project's memberships, owner included.
func (s *Service) ListMembers(ctx context.Context, actor id.Actor, projectID id.ProjectID) (members []*models.ProjectMember, err error) {
	ctx, done := s.observe(ctx, "list_members", actor)
	defer done(&err)

	err = s.tx.RunReadTx(ctx, func(txCtx context.Context) error {
		a, err := s.projectAccess(txCtx, actor, projectID)
		if err != nil {
			return err
		}
		if err := policy.CanListMembers(a).Err("project"); err != nil {
			return err
		}
		members, err = s.members.ListByProject(txCtx, projectID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

// assignableRole rejects unknown roles and the owner role, which only the
// project's owner holds.
func assignableRole(role models.Role) error {
	if !role.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid role")
	}
	if role == models.RoleOwner {
		return dErrors.New(dErrors.CodeInvalidInput, "owner role is reserved for the project owner")
	}
	return nil
}

// AddMember gives userID a role in the project.
func (s *Service) AddMember(ctx context.Context, actor id.Actor, projectID id.ProjectID, userID id.UserID, role models.Role) (member *models.ProjectMember, err error) {
	ctx, done := s.observe(ctx, "add_member", actor)
	defer done(&err)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.projectAccess(txCtx, actor, projectID)
		if err != nil {
			return err
		}
		if err := policy.CanManageMembers(a).Err("project"); err != nil {
			return err
		}
		if err := assignableRole(role); err != nil {
			return err
		}
		exists, err := s.users.Exists(txCtx, userID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
		}
		if !exists {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		m, err := models.NewProjectMember(id.NewMemberID(), projectID, userID, role, requestcontext.Now(txCtx))
		if err != nil {
			return validationErr(err)
		}
		if err := s.members.Create(txCtx, m); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "user is already a member of this project")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add member")
		}
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionMemberAdded,
		ActorID:      actor.UserID,
		ProjectID:    projectID,
		TargetUserID: userID,
		Attributes:   map[string]string{"role": role.String()},
	})
	return member, nil
}

// membershipOf finds userID's membership in the project behind a, refusing
// to touch the owner's own row.
func (s *Service) membershipOf(ctx context.Context, a policy.Access, userID id.UserID, refusal string) (*models.ProjectMember, error) {
	if a.Project.IsOwnedBy(userID) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, refusal)
	}
	m, err := s.members.FindByProjectAndUser(ctx, a.Project.ID, userID)
	if err != nil {
		return nil, storeErr(err, "member", "load member")
	}
	return m, nil
}

// ChangeMemberRole sets a new role on an existing membership.
func (s *Service) ChangeMemberRole(ctx context.Context, actor id.Actor, projectID id.ProjectID, userID id.UserID, role models.Role) (member *models.ProjectMember, err error) {
	ctx, done := s.observe(ctx, "change_member_role", actor)
	defer done(&err)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.projectAccess(txCtx, actor, projectID)
		if err != nil {
			return err
		}
		if err := policy.CanManageMembers(a).Err("project"); err != nil {
			return err
		}
		if err := assignableRole(role); err != nil {
			return err
		}
		m, err := s.membershipOf(txCtx, a, userID, "the project owner's role cannot be changed")
		if err != nil {
			return err
		}
		if err := s.members.UpdateRole(txCtx, m.ID, role); err != nil {
			return storeErr(err, "member", "update member role")
		}
		m.Role = role
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionMemberRoleChanged,
		ActorID:      actor.UserID,
		ProjectID:    projectID,
		TargetUserID: userID,
		Attributes:   map[string]string{"role": role.String()},
	})
	return member, nil
}

// RemoveMember deletes userID's membership. Tasks assigned to it become
// unassigned; they are not deleted.
func (s *Service) RemoveMember(ctx context.Context, actor id.Actor, projectID id.ProjectID, userID id.UserID) (err error) {
	ctx, done := s.observe(ctx, "remove_member", actor)
	defer done(&err)

	var cleared int
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.projectAccess(txCtx, actor, projectID)
		if err != nil {
			return err
		}
		if err := policy.CanManageMembers(a).Err("project"); err != nil {
			return err
		}
		m, err := s.membershipOf(txCtx, a, userID, "the project owner cannot be removed")
		if err != nil {
			return err
		}
		if cleared, err = s.tasks.ClearAssignee(txCtx, m.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear task assignments")
		}
		if err := s.members.Delete(txCtx, m.ID); err != nil {
			return storeErr(err, "member", "remove member")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionMemberRemoved,
		ActorID:      actor.UserID,
		ProjectID:    projectID,
		TargetUserID: userID,
		Attributes:   map[string]string{"tasks_unassigned": itoa(cleared)},
	})
	return nil
}
