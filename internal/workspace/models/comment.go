package models

import (
	"time"

	id "taskhub/pkg/domain"
)

// Comment is immutable once written.
type Comment struct {
	ID        id.CommentID `json:"id"`
	TaskID    id.TaskID    `json:"task_id"`
	AuthorID  id.UserID    `json:"author_id"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
}

func NewComment(commentID id.CommentID, taskID id.TaskID, authorID id.UserID, content string, now time.Time) (*Comment, error) {
	content, err := requiredText("content", content, MaxCommentLength)
	if err != nil {
		return nil, err
	}
	return &Comment{
		ID:        commentID,
		TaskID:    taskID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
	}, nil
}
