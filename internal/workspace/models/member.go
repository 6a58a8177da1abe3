package models

import (
	"time"

	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
)

// ProjectMember links a user to a project with one role. A user holds at
// most one membership per project.
type ProjectMember struct {
	ID        id.MemberID  `json:"id"`
	ProjectID id.ProjectID `json:"project_id"`
	UserID    id.UserID    `json:"user_id"`
	Role      Role         `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
}

func NewProjectMember(memberID id.MemberID, projectID id.ProjectID, userID id.UserID, role Role, now time.Time) (*ProjectMember, error) {
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	if projectID.IsNil() || userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "membership requires project and user")
	}
	return &ProjectMember{
		ID:        memberID,
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
	}, nil
}
