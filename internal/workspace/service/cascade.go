package service

import (
	"context"
	"strconv"

	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
)

type cascadeCounts struct {
	projects int
	tasks    int
	comments int
	members  int
}

func (c *cascadeCounts) add(o cascadeCounts) {
	c.projects += o.projects
	c.tasks += o.tasks
	c.comments += o.comments
	c.members += o.members
}

// cascadeProject removes a project and everything hanging off it, children
// first. Must run inside a transaction.
func (s *Service) cascadeProject(ctx context.Context, projectID id.ProjectID) (cascadeCounts, error) {
	var n cascadeCounts
	taskIDs, err := s.tasks.ListIDsByProject(ctx, projectID)
	if err != nil {
		return n, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list project tasks")
	}
	if n.comments, err = s.comments.DeleteByTasks(ctx, taskIDs); err != nil {
		return n, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete task comments")
	}
	if n.tasks, err = s.tasks.DeleteByProject(ctx, projectID); err != nil {
		return n, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete project tasks")
	}
	if n.members, err = s.members.DeleteByProject(ctx, projectID); err != nil {
		return n, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete project members")
	}
	if err := s.projects.Delete(ctx, projectID); err != nil {
		return n, storeErr(err, "project", "delete project")
	}
	n.projects = 1
	return n, nil
}

// PurgeUser removes everything that depends on a user who is about to be
// deleted: owned projects (cascaded), memberships (clearing task
// assignments first) and authored comments. Callers run it inside the
// transaction that deletes the user row.
func (s *Service) PurgeUser(ctx context.Context, userID id.UserID) (err error) {
	ctx, done := s.observe(ctx, "purge_user", actorFromUser(userID))
	defer done(&err)

	var removed cascadeCounts
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		owned, err := s.projects.ListIDsByOwner(txCtx, userID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list owned projects")
		}
		for _, pid := range owned {
			n, err := s.cascadeProject(txCtx, pid)
			if err != nil {
				return err
			}
			removed.add(n)
		}

		memberships, err := s.members.ListByUser(txCtx, userID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list memberships")
		}
		for _, m := range memberships {
			if _, err := s.tasks.ClearAssignee(txCtx, m.ID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear task assignments")
			}
			if err := s.members.Delete(txCtx, m.ID); err != nil {
				return storeErr(err, "member", "delete membership")
			}
			removed.members++
		}

		n, err := s.comments.DeleteByAuthor(txCtx, userID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete authored comments")
		}
		removed.comments += n
		return nil
	})
	if err != nil {
		return err
	}

	s.recordCascade(removed)
	s.logger.InfoContext(ctx, "purged user workspace data",
		"user_id", userID.String(),
		"projects_removed", removed.projects,
		"tasks_removed", removed.tasks,
		"comments_removed", removed.comments,
		"members_removed", removed.members,
	)
	return nil
}

func (s *Service) recordCascade(n cascadeCounts) {
	if s.metrics == nil {
		return
	}
	for range n.projects {
		s.metrics.IncrementProjectDeleted()
	}
	s.metrics.AddCascade("task", n.tasks)
	s.metrics.AddCascade("comment", n.comments)
	s.metrics.AddCascade("member", n.members)
}

func actorFromUser(userID id.UserID) id.Actor {
	return id.Actor{UserID: userID}
}

func itoa(n int) string { return strconv.Itoa(n) }
