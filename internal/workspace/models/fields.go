package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	dErrors "taskhub/pkg/domain-errors"
)

// Field bounds, counted in characters.
const (
	MaxProjectNameLength        = 255
	MaxProjectDescriptionLength = 255
	MaxTaskTitleLength          = 255
	MaxTaskDescriptionLength    = 500
	MaxCommentLength            = 1000
)

func requiredText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", dErrors.New(dErrors.CodeInvariantViolation, field+" is required")
	}
	if utf8.RuneCountInString(value) > max {
		return "", dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return value, nil
}

// optionalText trims value; blank collapses to nil.
func optionalText(field string, value *string, max int) (*string, error) {
	if value == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(v) > max {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return &v, nil
}
