package handler

import (
	"strings"

	"taskhub/internal/identity/models"
	dErrors "taskhub/pkg/domain-errors"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

func (r *RegisterRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	return nil
}

// UpdateMeRequest is the body of PATCH /users/me.
type UpdateMeRequest struct {
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

func (r *UpdateMeRequest) Validate() error {
	if r.FullName == nil && r.Password == nil {
		return dErrors.New(dErrors.CodeBadRequest, "no fields to update")
	}
	return nil
}

// UpdateUserRequest is the body of PATCH /admin/users/{user_id}.
type UpdateUserRequest struct {
	FullName    *string `json:"full_name"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

func (r *UpdateUserRequest) Patch() models.UserPatch {
	return models.UserPatch{FullName: r.FullName, IsActive: r.IsActive, IsSuperuser: r.IsSuperuser}
}
