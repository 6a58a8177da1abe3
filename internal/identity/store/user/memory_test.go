package user

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taskhub/internal/identity/models"
	id "taskhub/pkg/domain"
	"taskhub/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryUserStoreSuite) newUser(email string, at time.Time) *models.User {
	u, err := models.NewUser(id.NewUserID(), email, nil, "hash", at)
	s.Require().NoError(err)
	return u
}

func (s *InMemoryUserStoreSuite) TestLookup() {
	u := s.newUser("jane.doe@example.com", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, u))

	s.Run("by id", func() {
		found, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(u, found)
	})

	s.Run("by email ignoring case", func() {
		found, err := s.store.FindByEmail(s.ctx, "Jane.Doe@Example.com")
		s.Require().NoError(err)
		s.Equal(u.ID, found.ID)
	})

	s.Run("missing", func() {
		_, err := s.store.FindByID(s.ctx, id.NewUserID())
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindByEmail(s.ctx, "nobody@example.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryUserStoreSuite) TestEmailUniqueness() {
	s.Require().NoError(s.store.Create(s.ctx, s.newUser("dup@example.com", time.Now())))
	err := s.store.Create(s.ctx, s.newUser("DUP@example.com", time.Now()))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *InMemoryUserStoreSuite) TestUpdateAndDelete() {
	u := s.newUser("a@example.com", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, u))

	u.IsSuperuser = true
	s.Require().NoError(s.store.Update(s.ctx, u))
	found, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.True(found.IsSuperuser)

	s.Require().NoError(s.store.Delete(s.ctx, u.ID))
	s.ErrorIs(s.store.Delete(s.ctx, u.ID), sentinel.ErrNotFound)
	s.ErrorIs(s.store.Update(s.ctx, u), sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestListPages() {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		s.Require().NoError(s.store.Create(s.ctx, s.newUser(fmt.Sprintf("u%d@example.com", i), base.Add(time.Duration(i)*time.Minute))))
	}

	page, err := s.store.List(s.ctx, 3, 10)
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal("u3@example.com", page[0].Email)

	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(5, n)
}
