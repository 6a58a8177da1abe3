package models

import (
	"slices"

	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// Pagination is a validated skip/limit window. Results are ordered by
// (created_at, id) so windows are stable.
type Pagination struct {
	Skip  int
	Limit int
}

func NewPagination(skip, limit int) (Pagination, error) {
	if skip < 0 {
		return Pagination{}, dErrors.New(dErrors.CodeInvariantViolation, "skip must not be negative")
	}
	if limit < 1 || limit > MaxLimit {
		return Pagination{}, dErrors.New(dErrors.CodeInvariantViolation, "limit must be between 1 and 100")
	}
	return Pagination{Skip: skip, Limit: limit}, nil
}

// Page is one window of a listing plus the size of the full matching set.
type Page[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// ProjectFilter selects projects. All=true ignores ProjectIDs; otherwise only
// the listed projects match and an empty list matches nothing.
type ProjectFilter struct {
	All        bool
	ProjectIDs []id.ProjectID
}

// TaskFilter selects tasks. Scope follows ProjectFilter; ProjectID and Status
// narrow further.
type TaskFilter struct {
	All        bool
	ProjectIDs []id.ProjectID
	ProjectID  *id.ProjectID
	Status     *TaskStatus
}

// Matches reports whether the project passes the filter scope.
func (f ProjectFilter) Matches(projectID id.ProjectID) bool {
	return f.All || slices.Contains(f.ProjectIDs, projectID)
}

// Matches reports whether task passes every clause of the filter.
func (f TaskFilter) Matches(task *Task) bool {
	if !f.All && !slices.Contains(f.ProjectIDs, task.ProjectID) {
		return false
	}
	if f.ProjectID != nil && *f.ProjectID != task.ProjectID {
		return false
	}
	if f.Status != nil && *f.Status != task.Status {
		return false
	}
	return true
}

// Bounds clips the window to a result set of n rows.
func (p Pagination) Bounds(n int) (start, end int) {
	start = min(p.Skip, n)
	end = min(start+p.Limit, n)
	return start, end
}

// TaskQuery narrows a task listing within whatever the caller may see.
type TaskQuery struct {
	ProjectID *id.ProjectID
	Status    *TaskStatus
}
