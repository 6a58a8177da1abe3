package models

import (
	"strings"

	dErrors "taskhub/pkg/domain-errors"
)

// TaskStatus moves freely between its three values; no transition is guarded.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

func (s TaskStatus) String() string { return string(s) }

func ParseTaskStatus(s string) (TaskStatus, error) {
	st := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "status must be one of pending, in_progress, completed")
	}
	return st, nil
}
