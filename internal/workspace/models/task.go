package models

import (
	"time"

	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
)

// Task belongs to exactly one project. AssignedMemberID, when set, refers to
// a membership of that same project; removing the member clears it.
type Task struct {
	ID               id.TaskID    `json:"id"`
	ProjectID        id.ProjectID `json:"project_id"`
	Title            string       `json:"title"`
	Description      *string      `json:"description"`
	Status           TaskStatus   `json:"status"`
	AssignedMemberID *id.MemberID `json:"assigned_member_id"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// NewTask builds a pending task. Assignment is validated by the service,
// which knows the member's project.
func NewTask(taskID id.TaskID, projectID id.ProjectID, title string, description *string, now time.Time) (*Task, error) {
	if projectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "task requires a project")
	}
	title, err := requiredText("title", title, MaxTaskTitleLength)
	if err != nil {
		return nil, err
	}
	desc, err := optionalText("description", description, MaxTaskDescriptionLength)
	if err != nil {
		return nil, err
	}
	return &Task{
		ID:          taskID,
		ProjectID:   projectID,
		Title:       title,
		Description: desc,
		Status:      TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// TaskPatch carries optional changes. An empty description clears it.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// OnlyStatus reports whether the patch touches nothing but the status.
func (p TaskPatch) OnlyStatus() bool {
	return p.Status != nil && p.Title == nil && p.Description == nil
}

// Apply validates the patch and mutates the task only if every field passes.
func (t *Task) Apply(patch TaskPatch, now time.Time) error {
	title := t.Title
	desc := t.Description
	status := t.Status
	if patch.Title != nil {
		v, err := requiredText("title", *patch.Title, MaxTaskTitleLength)
		if err != nil {
			return err
		}
		title = v
	}
	if patch.Description != nil {
		v, err := optionalText("description", patch.Description, MaxTaskDescriptionLength)
		if err != nil {
			return err
		}
		desc = v
	}
	if patch.Status != nil {
		if !patch.Status.IsValid() {
			return dErrors.New(dErrors.CodeInvariantViolation, "invalid status")
		}
		status = *patch.Status
	}
	t.Title = title
	t.Description = desc
	t.Status = status
	t.UpdatedAt = now
	return nil
}

// Assign points the task at member. The caller has checked the member
// belongs to the task's project.
func (t *Task) Assign(member *ProjectMember, now time.Time) error {
	if member.ProjectID != t.ProjectID {
		return dErrors.New(dErrors.CodeInvariantViolation, "assignee is not a member of the task's project")
	}
	memberID := member.ID
	t.AssignedMemberID = &memberID
	t.UpdatedAt = now
	return nil
}

func (t *Task) Unassign(now time.Time) {
	t.AssignedMemberID = nil
	t.UpdatedAt = now
}

func (t *Task) IsAssignedTo(memberID id.MemberID) bool {
	return t.AssignedMemberID != nil && *t.AssignedMemberID == memberID
}
