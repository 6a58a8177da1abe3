package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
)

const (
	MaxEmailLength    = 255
	MaxFullNameLength = 255
	MinPasswordLength = 8
	MaxPasswordLength = 40
)

// User is an account that can authenticate. HashedPassword never leaves the
// process in JSON.
type User struct {
	ID             id.UserID `json:"id"`
	Email          string    `json:"email"`
	FullName       *string   `json:"full_name"`
	HashedPassword string    `json:"-"`
	IsActive       bool      `json:"is_active"`
	IsSuperuser    bool      `json:"is_superuser"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser builds an active, non-superuser account from already validated
// credentials.
func NewUser(userID id.UserID, email string, fullName *string, hashedPassword string, now time.Time) (*User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if hashedPassword == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash is required")
	}
	var name *string
	if fullName != nil {
		if name, err = normalizeFullName(*fullName); err != nil {
			return nil, err
		}
	}
	return &User{
		ID:             userID,
		Email:          email,
		FullName:       name,
		HashedPassword: hashedPassword,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// normalizeFullName trims name. A blank name normalizes to nil.
func normalizeFullName(name string) (*string, error) {
	n := strings.TrimSpace(name)
	if utf8.RuneCountInString(n) > MaxFullNameLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("full_name must be at most %d characters", MaxFullNameLength))
	}
	if n == "" {
		return nil, nil
	}
	return &n, nil
}

// NormalizeEmail trims and lower-cases an address after checking its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "email is required")
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "email is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "email is not a valid address")
	}
	return email, nil
}

// ValidatePassword enforces the password length policy.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength))
	}
	return nil
}

// UserPatch holds the account fields a superuser may change. Nil fields are
// left as they are; an empty FullName clears the name.
type UserPatch struct {
	FullName    *string `json:"full_name"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

func (p UserPatch) IsEmpty() bool {
	return p.FullName == nil && p.IsActive == nil && p.IsSuperuser == nil
}

// Apply validates and applies p, returning the names of the fields that
// actually changed.
func (u *User) Apply(p UserPatch, now time.Time) ([]string, error) {
	var changed []string
	if p.FullName != nil {
		name, err := normalizeFullName(*p.FullName)
		if err != nil {
			return nil, err
		}
		if !sameName(u.FullName, name) {
			u.FullName = name
			changed = append(changed, "full_name")
		}
	}
	if p.IsActive != nil && *p.IsActive != u.IsActive {
		u.IsActive = *p.IsActive
		changed = append(changed, "is_active")
	}
	if p.IsSuperuser != nil && *p.IsSuperuser != u.IsSuperuser {
		u.IsSuperuser = *p.IsSuperuser
		changed = append(changed, "is_superuser")
	}
	if len(changed) > 0 {
		u.UpdatedAt = now
	}
	return changed, nil
}

// SetPassword replaces the stored hash.
func (u *User) SetPassword(hashedPassword string, now time.Time) error {
	if hashedPassword == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "password hash is required")
	}
	u.HashedPassword = hashedPassword
	u.UpdatedAt = now
	return nil
}

func sameName(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Actor is the identity the workspace sees for this user.
func (u *User) Actor() id.Actor {
	return id.Actor{UserID: u.ID, IsSuperuser: u.IsSuperuser}
}

// AccessToken is returned by a successful login.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
