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

// CreateProject creates a project owned by actor and records the owner's
// membership in the same transaction.
func (s *Service) CreateProject(ctx context.Context, actor id.Actor, name string, description *string) (project *models.Project, err error) {
	ctx, done := s.observe(ctx, "create_project", actor)
	defer done(&err)

	if err := policy.CanCreateProject(actor).Err("project"); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	p, err := models.NewProject(id.NewProjectID(), name, description, actor.UserID, now)
	if err != nil {
		return nil, validationErr(err)
	}
	owner, err := models.NewProjectMember(id.NewMemberID(), p.ID, actor.UserID, models.RoleOwner, now)
	if err != nil {
		return nil, validationErr(err)
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projects.Create(txCtx, p); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "project name must be unique")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create project")
		}
		if err := s.members.Create(txCtx, owner); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record owner membership")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementProjectCreated()
	}
	s.emit(ctx, audit.Event{
		Action:     audit.ActionProjectCreated,
		ActorID:    actor.UserID,
		ProjectID:  p.ID,
		Attributes: map[string]string{"name": p.Name},
	})
	return p, nil
}

// GetProject returns a project the actor owns, belongs to, or may see as a
// superuser. Anyone else is told it does not exist.
func (s *Service) GetProject(ctx context.Context, actor id.Actor, projectID id.ProjectID) (project *models.Project, err error) {
	ctx, done := s.observe(ctx, "get_project", actor)
	defer done(&err)

	err = s.tx.RunReadTx(ctx, func(txCtx context.Context) error {
		a, err := s.projectAccess(txCtx, actor, projectID)
		if err != nil {
			return err
		}
		if err := policy.CanReadProject(a).Err("project"); err != nil {
			return err
		}
		project = a.Project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// ListProjects returns one page of projects plus the size of the whole
// visible set. Superusers see every project; others see the projects they
// own or belong to. Page and count share one snapshot.
func (s *Service) ListProjects(ctx context.Context, actor id.Actor, page models.Pagination) (result models.Page[*models.Project], err error) {
	ctx, done := s.observe(ctx, "list_projects", actor)
	defer done(&err)

	err = s.tx.RunReadTx(ctx, func(txCtx context.Context) error {
		filter := models.ProjectFilter{All: policy.CanListAllProjects(actor)}
		if !filter.All {
			ids, err := s.visibleProjectIDs(txCtx, actor.UserID)
			if err != nil {
				return err
			}
			filter.ProjectIDs = ids
		}
		items, err := s.projects.List(txCtx, filter, page)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list projects")
		}
		count, err := s.projects.Count(txCtx, filter)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count projects")
		}
		result = models.Page[*models.Project]{Data: items, Count: count}
		return nil
	})
	if err != nil {
		return models.Page[*models.Project]{}, err
	}
	return result, nil
}

// UpdateProject applies patch. Only the owner or a superuser may.
func (s *Service) UpdateProject(ctx context.Context, actor id.Actor, projectID id.ProjectID, patch models.ProjectPatch) (project *models.Project, err error) {
	ctx, done := s.observe(ctx, "update_project", actor)
	defer done(&err)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.projectAccess(txCtx, actor, projectID)
		if err != nil {
			return err
		}
		if err := policy.CanUpdateProject(a).Err("project"); err != nil {
			return err
		}
		p := a.Project
		if patch.IsEmpty() {
			project = p
			return nil
		}
		if err := p.Apply(patch, requestcontext.Now(txCtx)); err != nil {
			return validationErr(err)
		}
		if err := s.projects.Update(txCtx, p); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "project name must be unique")
			}
			return storeErr(err, "project", "update project")
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !patch.IsEmpty() {
		s.emit(ctx, audit.Event{Action: audit.ActionProjectUpdated, ActorID: actor.UserID, ProjectID: project.ID})
	}
	return project, nil
}

// DeleteProject removes the project with its tasks, their comments and its
// memberships. Only the owner or a superuser may.
func (s *Service) DeleteProject(ctx context.Context, actor id.Actor, projectID id.ProjectID) (err error) {
	ctx, done := s.observe(ctx, "delete_project", actor)
	defer done(&err)

	var removed cascadeCounts
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.projectAccess(txCtx, actor, projectID)
		if err != nil {
			return err
		}
		if err := policy.CanDeleteProject(a).Err("project"); err != nil {
			return err
		}
		removed, err = s.cascadeProject(txCtx, projectID)
		return err
	})
	if err != nil {
		return err
	}

	s.recordCascade(removed)
	s.emit(ctx, audit.Event{
		Action:    audit.ActionProjectDeleted,
		ActorID:   actor.UserID,
		ProjectID: projectID,
		Attributes: map[string]string{
			"tasks_removed":   itoa(removed.tasks),
			"members_removed": itoa(removed.members),
		},
	})
	return nil
}
