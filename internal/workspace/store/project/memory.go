package project

import (
	"context"
	"sort"
	"sync"

	"taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	"taskhub/pkg/platform/sentinel"
)

// InMemory is a map-backed project store. Names are unique exactly as
// stored.
type InMemory struct {
	mu       sync.RWMutex
	projects map[id.ProjectID]*models.Project
}

func NewInMemory() *InMemory {
	return &InMemory{projects: make(map[id.ProjectID]*models.Project)}
}

func clone(p *models.Project) *models.Project {
	c := *p
	if p.Description != nil {
		d := *p.Description
		c.Description = &d
	}
	return &c
}

func (s *InMemory) nameTaken(name string, except id.ProjectID) bool {
	for _, p := range s.projects {
		if p.ID != except && p.Name == name {
			return true
		}
	}
	return false
}

func (s *InMemory) Create(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok || s.nameTaken(p.Name, p.ID) {
		return sentinel.ErrAlreadyUsed
	}
	s.projects[p.ID] = clone(p)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, projectID id.ProjectID) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemory) Update(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.nameTaken(p.Name, p.ID) {
		return sentinel.ErrAlreadyUsed
	}
	s.projects[p.ID] = clone(p)
	return nil
}

func (s *InMemory) Delete(_ context.Context, projectID id.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.projects, projectID)
	return nil
}

func (s *InMemory) matching(filter models.ProjectFilter) []*models.Project {
	out := make([]*models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if filter.Matches(p.ID) {
			out = append(out, p)
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

func (s *InMemory) List(_ context.Context, filter models.ProjectFilter, page models.Pagination) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.matching(filter)
	start, end := page.Bounds(len(all))
	out := make([]*models.Project, 0, end-start)
	for _, p := range all[start:end] {
		out = append(out, clone(p))
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context, filter models.ProjectFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matching(filter)), nil
}

func (s *InMemory) ListIDsByOwner(_ context.Context, ownerID id.UserID) ([]id.ProjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []id.ProjectID
	for _, p := range s.projects {
		if p.OwnerID == ownerID {
			out = append(out, p.ID)
		}
	}
	return out, nil
}
