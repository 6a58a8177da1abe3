package handler

import (
	"taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
)

// invalid turns model parse failures into request validation errors.
func invalid(err error) error {
	return dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
}

type CreateProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (r *UpdateProjectRequest) Patch() models.ProjectPatch {
	return models.ProjectPatch{Name: r.Name, Description: r.Description}
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`

	parsedUserID id.UserID
	parsedRole   models.Role
}

func (r *AddMemberRequest) Validate() error {
	userID, err := id.ParseUserID(r.UserID)
	if err != nil {
		return err
	}
	role, err := models.ParseRole(r.Role)
	if err != nil {
		return invalid(err)
	}
	r.parsedUserID = userID
	r.parsedRole = role
	return nil
}

type ChangeRoleRequest struct {
	Role string `json:"role"`

	parsedRole models.Role
}

func (r *ChangeRoleRequest) Validate() error {
	role, err := models.ParseRole(r.Role)
	if err != nil {
		return invalid(err)
	}
	r.parsedRole = role
	return nil
}

type CreateTaskRequest struct {
	Title            string  `json:"title"`
	Description      *string `json:"description"`
	AssignedMemberID *string `json:"assigned_member_id"`

	parsedMemberID *id.MemberID
}

func (r *CreateTaskRequest) Validate() error {
	if r.AssignedMemberID != nil {
		memberID, err := id.ParseMemberID(*r.AssignedMemberID)
		if err != nil {
			return err
		}
		r.parsedMemberID = &memberID
	}
	return nil
}

type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`

	patch models.TaskPatch
}

func (r *UpdateTaskRequest) Validate() error {
	r.patch = models.TaskPatch{Title: r.Title, Description: r.Description}
	if r.Status != nil {
		status, err := models.ParseTaskStatus(*r.Status)
		if err != nil {
			return invalid(err)
		}
		r.patch.Status = &status
	}
	return nil
}

type AssignTaskRequest struct {
	MemberID string `json:"member_id"`

	parsedMemberID id.MemberID
}

func (r *AssignTaskRequest) Validate() error {
	memberID, err := id.ParseMemberID(r.MemberID)
	if err != nil {
		return err
	}
	r.parsedMemberID = memberID
	return nil
}

type AddCommentRequest struct {
	Content string `json:"content"`
}
