package task

import (
	"context"
	"sort"
	"sync"

	"taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	"taskhub/pkg/platform/sentinel"
)

type InMemory struct {
	mu    sync.RWMutex
	tasks map[id.TaskID]*models.Task
}

func NewInMemory() *InMemory {
	return &InMemory{tasks: make(map[id.TaskID]*models.Task)}
}

func clone(t *models.Task) *models.Task {
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.AssignedMemberID != nil {
		m := *t.AssignedMemberID
		c.AssignedMemberID = &m
	}
	return &c
}

func (s *InMemory) Create(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.tasks[t.ID] = clone(t)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, taskID id.TaskID) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(t), nil
}

func (s *InMemory) Update(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.tasks[t.ID] = clone(t)
	return nil
}

func (s *InMemory) Delete(_ context.Context, taskID id.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[taskID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.tasks, taskID)
	return nil
}

func (s *InMemory) matching(filter models.TaskFilter) []*models.Task {
	out := make([]*models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (s *InMemory) List(_ context.Context, filter models.TaskFilter, page models.Pagination) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.matching(filter)
	start, end := page.Bounds(len(all))
	out := make([]*models.Task, 0, end-start)
	for _, t := range all[start:end] {
		out = append(out, clone(t))
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context, filter models.TaskFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matching(filter)), nil
}

func (s *InMemory) ListIDsByProject(_ context.Context, projectID id.ProjectID) ([]id.TaskID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []id.TaskID
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			out = append(out, t.ID)
		}
	}
	return out, nil
}

func (s *InMemory) DeleteByProject(_ context.Context, projectID id.ProjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for tid, t := range s.tasks {
		if t.ProjectID == projectID {
			delete(s.tasks, tid)
			n++
		}
	}
	return n, nil
}

// ClearAssignee unsets the assignment on every task pointing at memberID.
func (s *InMemory) ClearAssignee(_ context.Context, memberID id.MemberID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.IsAssignedTo(memberID) {
			t.AssignedMemberID = nil
			n++
		}
	}
	return n, nil
}
