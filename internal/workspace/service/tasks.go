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

// CreateTaskInput carries the fields of a new task. AssignedMemberID, when
// set, must be a membership of the same project.
type CreateTaskInput struct {
	Title            string
	Description      *string
	AssignedMemberID *id.MemberID
}

// assign points task at memberID after checking the membership exists and
// belongs to the task's project.
func (s *Service) assign(ctx context.Context, task *models.Task, memberID id.MemberID) error {
	m, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return storeErr(err, "member", "load member")
	}
	if err := task.Assign(m, requestcontext.Now(ctx)); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return dErrors.New(dErrors.CodeInvalidInput, dErrors.MessageOf(err))
		}
		return err
	}
	return nil
}

// assigneeErr reports a membership removed concurrently, after assign checked
// it but before the task write, as a missing member.
func assigneeErr(err error, entity, action string) error {
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.New(dErrors.CodeNotFound, "member not found")
	}
	return storeErr(err, entity, action)
}

// CreateTask adds a pending task to the project.
func (s *Service) CreateTask(ctx context.Context, actor id.Actor, projectID id.ProjectID, in CreateTaskInput) (task *models.Task, err error) {
	ctx, done := s.observe(ctx, "create_task", actor)
	defer done(&err)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.projectAccess(txCtx, actor, projectID)
		if err != nil {
			return err
		}
		if err := policy.CanCreateTask(a).Err("project"); err != nil {
			return err
		}
		t, err := models.NewTask(id.NewTaskID(), projectID, in.Title, in.Description, requestcontext.Now(txCtx))
		if err != nil {
			return validationErr(err)
		}
		if in.AssignedMemberID != nil {
			if err := s.assign(txCtx, t, *in.AssignedMemberID); err != nil {
				return err
			}
		}
		if err := s.tasks.Create(txCtx, t); err != nil {
			return assigneeErr(err, "project", "create task")
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementTaskCreated()
	}
	s.emit(ctx, audit.Event{Action: audit.ActionTaskCreated, ActorID: actor.UserID, ProjectID: projectID, TaskID: task.ID})
	return task, nil
}

// GetTask returns a task in a project the actor can see.
func (s *Service) GetTask(ctx context.Context, actor id.Actor, taskID id.TaskID) (task *models.Task, err error) {
	ctx, done := s.observe(ctx, "get_task", actor)
	defer done(&err)

	err = s.tx.RunReadTx(ctx, func(txCtx context.Context) error {
		t, a, err := s.taskAccess(txCtx, actor, taskID)
		if err != nil {
			return err
		}
		if err := policy.CanReadTask(a).Err("task"); err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns one page of tasks plus the size of the whole matching
// set. Superusers see every task; others see tasks of projects they own or
// belong to.
func (s *Service) ListTasks(ctx context.Context, actor id.Actor, query models.TaskQuery, page models.Pagination) (result models.Page[*models.Task], err error) {
	ctx, done := s.observe(ctx, "list_tasks", actor)
	defer done(&err)

	if query.Status != nil && !query.Status.IsValid() {
		return models.Page[*models.Task]{}, dErrors.New(dErrors.CodeInvalidInput, "invalid status")
	}

	err = s.tx.RunReadTx(ctx, func(txCtx context.Context) error {
		filter := models.TaskFilter{
			All:       policy.CanListAllTasks(actor),
			ProjectID: query.ProjectID,
			Status:    query.Status,
		}
		if !filter.All {
			ids, err := s.visibleProjectIDs(txCtx, actor.UserID)
			if err != nil {
				return err
			}
			filter.ProjectIDs = ids
		}
		items, err := s.tasks.List(txCtx, filter, page)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tasks")
		}
		count, err := s.tasks.Count(txCtx, filter)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count tasks")
		}
		result = models.Page[*models.Task]{Data: items, Count: count}
		return nil
	})
	if err != nil {
		return models.Page[*models.Task]{}, err
	}
	return result, nil
}

// UpdateTask applies patch. Owners, managers and superusers may change any
// field; the assigned member may change only the status. Any status may
// follow any other.
func (s *Service) UpdateTask(ctx context.Context, actor id.Actor, taskID id.TaskID, patch models.TaskPatch) (task *models.Task, err error) {
	ctx, done := s.observe(ctx, "update_task", actor)
	defer done(&err)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, a, err := s.taskAccess(txCtx, actor, taskID)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			if err := policy.CanReadTask(a).Err("task"); err != nil {
				return err
			}
			task = t
			return nil
		}
		if err := policy.CanUpdateTask(a, t, patch).Err("task"); err != nil {
			return err
		}
		if err := t.Apply(patch, requestcontext.Now(txCtx)); err != nil {
			return validationErr(err)
		}
		if err := s.tasks.Update(txCtx, t); err != nil {
			return storeErr(err, "task", "update task")
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !patch.IsEmpty() {
		e := audit.Event{Action: audit.ActionTaskUpdated, ActorID: actor.UserID, ProjectID: task.ProjectID, TaskID: task.ID}
		if patch.Status != nil {
			e.Attributes = map[string]string{"status": task.Status.String()}
		}
		s.emit(ctx, e)
	}
	return task, nil
}

// AssignTask points the task at a membership of the same project. On any
// failure the previous assignment is left untouched.
func (s *Service) AssignTask(ctx context.Context, actor id.Actor, taskID id.TaskID, memberID id.MemberID) (task *models.Task, err error) {
	ctx, done := s.observe(ctx, "assign_task", actor)
	defer done(&err)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, a, err := s.taskAccess(txCtx, actor, taskID)
		if err != nil {
			return err
		}
		if err := policy.CanAssignTask(a).Err("task"); err != nil {
			return err
		}
		if err := s.assign(txCtx, t, memberID); err != nil {
			return err
		}
		if err := s.tasks.Update(txCtx, t); err != nil {
			return assigneeErr(err, "task", "assign task")
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{
		Action:     audit.ActionTaskAssigned,
		ActorID:    actor.UserID,
		ProjectID:  task.ProjectID,
		TaskID:     task.ID,
		Attributes: map[string]string{"member_id": memberID.String()},
	})
	return task, nil
}

// UnassignTask clears the task's assignee.
func (s *Service) UnassignTask(ctx context.Context, actor id.Actor, taskID id.TaskID) (task *models.Task, err error) {
	ctx, done := s.observe(ctx, "unassign_task", actor)
	defer done(&err)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, a, err := s.taskAccess(txCtx, actor, taskID)
		if err != nil {
			return err
		}
		if err := policy.CanAssignTask(a).Err("task"); err != nil {
			return err
		}
		t.Unassign(requestcontext.Now(txCtx))
		if err := s.tasks.Update(txCtx, t); err != nil {
			return storeErr(err, "task", "unassign task")
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{Action: audit.ActionTaskUnassigned, ActorID: actor.UserID, ProjectID: task.ProjectID, TaskID: task.ID})
	return task, nil
}

// DeleteTask removes the task and its comments.
func (s *Service) DeleteTask(ctx context.Context, actor id.Actor, taskID id.TaskID) (err error) {
	ctx, done := s.observe(ctx, "delete_task", actor)
	defer done(&err)

	var projectID id.ProjectID
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, a, err := s.taskAccess(txCtx, actor, taskID)
		if err != nil {
			return err
		}
		if err := policy.CanDeleteTask(a).Err("task"); err != nil {
			return err
		}
		if _, err := s.comments.DeleteByTasks(txCtx, []id.TaskID{t.ID}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete task comments")
		}
		if err := s.tasks.Delete(txCtx, t.ID); err != nil {
			return storeErr(err, "task", "delete task")
		}
		projectID = t.ProjectID
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, audit.Event{Action: audit.ActionTaskDeleted, ActorID: actor.UserID, ProjectID: projectID, TaskID: taskID})
	return nil
}
