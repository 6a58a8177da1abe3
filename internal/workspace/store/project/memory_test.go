package project

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	"taskhub/pkg/platform/sentinel"
)

type ProjectStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	base  time.Time
}

func TestProjectStoreSuite(t *testing.T) {
	suite.Run(t, new(ProjectStoreSuite))
}

func (s *ProjectStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *ProjectStoreSuite) newProject(name string, owner id.UserID, offset int) *models.Project {
	p, err := models.NewProject(id.NewProjectID(), name, nil, owner, s.base.Add(time.Duration(offset)*time.Minute))
	s.Require().NoError(err)
	return p
}

func (s *ProjectStoreSuite) TestCreateAndFind() {
	s.Run("creates and finds by id", func() {
		p := s.newProject("Alpha", id.NewUserID(), 0)
		s.Require().NoError(s.store.Create(s.ctx, p))

		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(p.Name, found.Name)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.NewProjectID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned copies are detached", func() {
		p := s.newProject("Detached", id.NewUserID(), 0)
		s.Require().NoError(s.store.Create(s.ctx, p))
		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		found.Name = "mutated"
		again, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal("Detached", again.Name)
	})
}

func (s *ProjectStoreSuite) TestNameUniqueness() {
	owner := id.NewUserID()
	s.Require().NoError(s.store.Create(s.ctx, s.newProject("Alpha", owner, 0)))

	s.Run("rejects duplicate name for another owner", func() {
		err := s.store.Create(s.ctx, s.newProject("Alpha", id.NewUserID(), 1))
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("rejects rename onto existing name", func() {
		beta := s.newProject("Beta", owner, 2)
		s.Require().NoError(s.store.Create(s.ctx, beta))
		beta.Name = "Alpha"
		s.ErrorIs(s.store.Update(s.ctx, beta), sentinel.ErrAlreadyUsed)
	})

	s.Run("allows saving a project under its own name", func() {
		gamma := s.newProject("Gamma", owner, 3)
		s.Require().NoError(s.store.Create(s.ctx, gamma))
		s.NoError(s.store.Update(s.ctx, gamma))
	})
}

func (s *ProjectStoreSuite) TestListAndCount() {
	owner := id.NewUserID()
	var ids []id.ProjectID
	for i, name := range []string{"p0", "p1", "p2", "p3", "p4"} {
		p := s.newProject(name, owner, i)
		s.Require().NoError(s.store.Create(s.ctx, p))
		ids = append(ids, p.ID)
	}

	s.Run("pages are ordered and disjoint", func() {
		all := models.ProjectFilter{All: true}
		first, err := s.store.List(s.ctx, all, models.Pagination{Skip: 0, Limit: 2})
		s.Require().NoError(err)
		second, err := s.store.List(s.ctx, all, models.Pagination{Skip: 2, Limit: 2})
		s.Require().NoError(err)
		tail, err := s.store.List(s.ctx, all, models.Pagination{Skip: 4, Limit: 2})
		s.Require().NoError(err)
		s.Equal([]string{"p0", "p1"}, names(first))
		s.Equal([]string{"p2", "p3"}, names(second))
		s.Equal([]string{"p4"}, names(tail))
	})

	s.Run("skip beyond end is empty", func() {
		out, err := s.store.List(s.ctx, models.ProjectFilter{All: true}, models.Pagination{Skip: 50, Limit: 10})
		s.Require().NoError(err)
		s.Empty(out)
	})

	s.Run("scoped filter counts only listed ids", func() {
		f := models.ProjectFilter{ProjectIDs: ids[1:3]}
		n, err := s.store.Count(s.ctx, f)
		s.Require().NoError(err)
		s.Equal(2, n)
		n, err = s.store.Count(s.ctx, models.ProjectFilter{})
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Run("lists ids by owner", func() {
		owned, err := s.store.ListIDsByOwner(s.ctx, owner)
		s.Require().NoError(err)
		s.ElementsMatch(ids, owned)
	})
}

func (s *ProjectStoreSuite) TestDelete() {
	p := s.newProject("Doomed", id.NewUserID(), 0)
	s.Require().NoError(s.store.Create(s.ctx, p))
	s.Require().NoError(s.store.Delete(s.ctx, p.ID))
	s.ErrorIs(s.store.Delete(s.ctx, p.ID), sentinel.ErrNotFound)
}

func names(ps []*models.Project) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}
