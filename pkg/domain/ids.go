// Package domain holds identifier primitives shared across modules.
//
// Every aggregate gets its own UUID-backed type so a task id can never be
// passed where a project id is expected. Parse functions are the only way
// to build an id from untrusted input and reject nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "taskhub/pkg/domain-errors"
)

// UserID identifies a user.
type UserID uuid.UUID

// ProjectID identifies a project.
type ProjectID uuid.UUID

// MemberID identifies a member.
type MemberID uuid.UUID

// TaskID identifies a task.
type TaskID uuid.UUID

// CommentID identifies a comment.
type CommentID uuid.UUID

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be nil")
	}
	return parsed, nil
}

// ParseUserID validates s as a non-nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

func NewUserID() UserID { return UserID(uuid.New()) }

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ParseProjectID validates s as a non-nil UUID.
func ParseProjectID(s string) (ProjectID, error) {
	u, err := parseUUID(s, "project id")
	if err != nil {
		return ProjectID{}, err
	}
	return ProjectID(u), nil
}

func NewProjectID() ProjectID { return ProjectID(uuid.New()) }

func (id ProjectID) String() string { return uuid.UUID(id).String() }
func (id ProjectID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ProjectID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ProjectID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ParseMemberID validates s as a non-nil UUID.
func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID(s, "member id")
	if err != nil {
		return MemberID{}, err
	}
	return MemberID(u), nil
}

func NewMemberID() MemberID { return MemberID(uuid.New()) }

func (id MemberID) String() string { return uuid.UUID(id).String() }
func (id MemberID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id MemberID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *MemberID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ParseTaskID validates s as a non-nil UUID.
func ParseTaskID(s string) (TaskID, error) {
	u, err := parseUUID(s, "task id")
	if err != nil {
		return TaskID{}, err
	}
	return TaskID(u), nil
}

func NewTaskID() TaskID { return TaskID(uuid.New()) }

func (id TaskID) String() string { return uuid.UUID(id).String() }
func (id TaskID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id TaskID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *TaskID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ParseCommentID validates s as a non-nil UUID.
func ParseCommentID(s string) (CommentID, error) {
	u, err := parseUUID(s, "comment id")
	if err != nil {
		return CommentID{}, err
	}
	return CommentID(u), nil
}

func NewCommentID() CommentID { return CommentID(uuid.New()) }

func (id CommentID) String() string { return uuid.UUID(id).String() }
func (id CommentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id CommentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *CommentID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
