// Package adapters connects the workspace to other modules.
package adapters

import (
	"context"
	"errors"

	"taskhub/internal/identity/models"
	id "taskhub/pkg/domain"
	"taskhub/pkg/platform/sentinel"
)

// UserLookup is the slice of the identity user store the workspace needs.
type UserLookup interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
}

// UserDirectory answers membership lookups against the identity user store.
type UserDirectory struct {
	users UserLookup
}

func NewUserDirectory(users UserLookup) *UserDirectory {
	return &UserDirectory{users: users}
}

// Exists reports whether an account with userID exists. Inactive accounts
// still count.
func (d *UserDirectory) Exists(ctx context.Context, userID id.UserID) (bool, error) {
	_, err := d.users.FindByID(ctx, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return false, err
}
