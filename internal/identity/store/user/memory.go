package user

import (
	"context"
	"sort"
	"strings"
	"sync"

	"taskhub/internal/identity/models"
	id "taskhub/pkg/domain"
	"taskhub/pkg/platform/sentinel"
)

// InMemory is a map-backed user store. Emails are unique ignoring case.
type InMemory struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[id.UserID]*models.User)}
}

func clone(u *models.User) *models.User {
	c := *u
	if u.FullName != nil {
		n := *u.FullName
		c.FullName = &n
	}
	return &c
}

func (s *InMemory) emailTaken(email string, except id.UserID) bool {
	for _, u := range s.users {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (s *InMemory) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok || s.emailTaken(u.Email, u.ID) {
		return sentinel.ErrAlreadyUsed
	}
	s.users[u.ID] = clone(u)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(u), nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return clone(u), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.emailTaken(u.Email, u.ID) {
		return sentinel.ErrAlreadyUsed
	}
	s.users[u.ID] = clone(u)
	return nil
}

func (s *InMemory) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, userID)
	return nil
}

// List returns users ordered by (created_at, id).
func (s *InMemory) List(_ context.Context, skip, limit int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, clone(u))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	start := min(skip, len(all))
	end := min(start+limit, len(all))
	return all[start:end], nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}
