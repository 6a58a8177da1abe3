package service

import (
	"context"

	"taskhub/internal/audit"
	"taskhub/internal/workspace/models"
	"taskhub/internal/workspace/policy"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/requestcontext"
)

// AddComment records a comment by actor on a task of a project actor
// belongs to.
func (s *Service) AddComment(ctx context.Context, actor id.Actor, taskID id.TaskID, content string) (comment *models.Comment, err error) {
	ctx, done := s.observe(ctx, "add_comment", actor)
	defer done(&err)

	var projectID id.ProjectID
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, a, err := s.taskAccess(txCtx, actor, taskID)
		if err != nil {
			return err
		}
		if err := policy.CanAddComment(a).Err("task"); err != nil {
			return err
		}
		c, err := models.NewComment(id.NewCommentID(), t.ID, actor.UserID, content, requestcontext.Now(txCtx))
		if err != nil {
			return validationErr(err)
		}
		if err := s.comments.Create(txCtx, c); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add comment")
		}
		comment = c
		projectID = t.ProjectID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{Action: audit.ActionCommentAdded, ActorID: actor.UserID, ProjectID: projectID, TaskID: taskID})
	return comment, nil
}

// ListComments returns the task's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, actor id.Actor, taskID id.TaskID) (comments []*models.Comment, err error) {
	ctx, done := s.observe(ctx, "list_comments", actor)
	defer done(&err)

	err = s.tx.RunReadTx(ctx, func(txCtx context.Context) error {
		_, a, err := s.taskAccess(txCtx, actor, taskID)
		if err != nil {
			return err
		}
		if err := policy.CanListComments(a).Err("task"); err != nil {
			return err
		}
		comments, err = s.comments.ListByTask(txCtx, taskID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list comments")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}
