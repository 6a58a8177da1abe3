package comment

import (
	"context"
	"slices"
	"sort"
	"sync"

	"taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	"taskhub/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	comments map[id.CommentID]*models.Comment
}

func NewInMemory() *InMemory {
	return &InMemory{comments: make(map[id.CommentID]*models.Comment)}
}

func (s *InMemory) Create(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[c.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	cp := *c
	s.comments[c.ID] = &cp
	return nil
}

func (s *InMemory) ListByTask(_ context.Context, taskID id.TaskID) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Comment{}
	for _, c := range s.comments {
		if c.TaskID == taskID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemory) deleteWhere(match func(*models.Comment) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for cid, c := range s.comments {
		if match(c) {
			delete(s.comments, cid)
			n++
		}
	}
	return n
}

func (s *InMemory) DeleteByTasks(_ context.Context, taskIDs []id.TaskID) (int, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	return s.deleteWhere(func(c *models.Comment) bool { return slices.Contains(taskIDs, c.TaskID) }), nil
}

func (s *InMemory) DeleteByAuthor(_ context.Context, authorID id.UserID) (int, error) {
	return s.deleteWhere(func(c *models.Comment) bool { return c.AuthorID == authorID }), nil
}
