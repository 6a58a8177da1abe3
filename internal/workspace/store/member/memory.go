package member

import (
	"context"
	"sort"
	"sync"

	"taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	"taskhub/pkg/platform/sentinel"
)

// InMemory is a map-backed membership store that enforces one membership
// per (project, user).
type InMemory struct {
	mu      sync.RWMutex
	members map[id.MemberID]*models.ProjectMember
}

func NewInMemory() *InMemory {
	return &InMemory{members: make(map[id.MemberID]*models.ProjectMember)}
}

func clone(m *models.ProjectMember) *models.ProjectMember {
	c := *m
	return &c
}

func sorted(ms []*models.ProjectMember) []*models.ProjectMember {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		return ms[i].ID.String() < ms[j].ID.String()
	})
	return ms
}

func (s *InMemory) Create(_ context.Context, m *models.ProjectMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	for _, existing := range s.members {
		if existing.ProjectID == m.ProjectID && existing.UserID == m.UserID {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.members[m.ID] = clone(m)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, memberID id.MemberID) (*models.ProjectMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(m), nil
}

func (s *InMemory) FindByProjectAndUser(_ context.Context, projectID id.ProjectID, userID id.UserID) (*models.ProjectMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.ProjectID == projectID && m.UserID == userID {
			return clone(m), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByProject(_ context.Context, projectID id.ProjectID) ([]*models.ProjectMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.ProjectMember{}
	for _, m := range s.members {
		if m.ProjectID == projectID {
			out = append(out, clone(m))
		}
	}
	return sorted(out), nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.ProjectMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.ProjectMember{}
	for _, m := range s.members {
		if m.UserID == userID {
			out = append(out, clone(m))
		}
	}
	return sorted(out), nil
}

func (s *InMemory) UpdateRole(_ context.Context, memberID id.MemberID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok {
		return sentinel.ErrNotFound
	}
	m.Role = role
	return nil
}

func (s *InMemory) Delete(_ context.Context, memberID id.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[memberID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.members, memberID)
	return nil
}

func (s *InMemory) DeleteByProject(_ context.Context, projectID id.ProjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for mid, m := range s.members {
		if m.ProjectID == projectID {
			delete(s.members, mid)
			n++
		}
	}
	return n, nil
}
