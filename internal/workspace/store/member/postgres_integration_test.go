//go:build integration

package member_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"taskhub/internal/workspace/models"
	"taskhub/internal/workspace/store/member"
	id "taskhub/pkg/domain"
	"taskhub/pkg/platform/sentinel"
	"taskhub/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *member.PostgresStore
	ctx      context.Context

	alice, bob id.UserID
	projectA   id.ProjectID
	projectB   id.ProjectID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = member.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "task_comments", "tasks", "project_members", "projects", "users"))
	s.alice = s.insertUser()
	s.bob = s.insertUser()
	s.projectA = s.insertProject("Alpha", s.alice)
	s.projectB = s.insertProject("Beta", s.bob)
}

func (s *PostgresStoreSuite) insertUser() id.UserID {
	userID := id.NewUserID()
	_, err := s.postgres.Exec(s.ctx, `INSERT INTO users (id, email, hashed_password) VALUES ($1, $2, 'x')`,
		uuid.UUID(userID), uuid.NewString()+"@example.com")
	s.Require().NoError(err)
	return userID
}

func (s *PostgresStoreSuite) insertProject(name string, owner id.UserID) id.ProjectID {
	projectID := id.NewProjectID()
	_, err := s.postgres.Exec(s.ctx, `
		INSERT INTO projects (id, name, owner_id, created_at, updated_at) VALUES ($1, $2, $3, NOW(), NOW())`,
		uuid.UUID(projectID), name, uuid.UUID(owner))
	s.Require().NoError(err)
	return projectID
}

func (s *PostgresStoreSuite) newMember(projectID id.ProjectID, userID id.UserID, role models.Role, offset time.Duration) *models.ProjectMember {
	m, err := models.NewProjectMember(id.NewMemberID(), projectID, userID, role, time.Now().UTC().Truncate(time.Microsecond).Add(offset))
	s.Require().NoError(err)
	return m
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	m := s.newMember(s.projectA, s.bob, models.RoleEmployee, 0)
	s.Require().NoError(s.store.Create(s.ctx, m))

	byID, err := s.store.FindByID(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(m.ProjectID, byID.ProjectID)
	s.Equal(m.UserID, byID.UserID)
	s.Equal(models.RoleEmployee, byID.Role)
	s.True(m.CreatedAt.Equal(byID.CreatedAt))

	byPair, err := s.store.FindByProjectAndUser(s.ctx, s.projectA, s.bob)
	s.Require().NoError(err)
	s.Equal(m.ID, byPair.ID)

	_, err = s.store.FindByProjectAndUser(s.ctx, s.projectB, s.bob)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByID(s.ctx, id.NewMemberID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestOneMembershipPerProject() {
	s.Require().NoError(s.store.Create(s.ctx, s.newMember(s.projectA, s.bob, models.RoleViewer, 0)))

	err := s.store.Create(s.ctx, s.newMember(s.projectA, s.bob, models.RoleManager, 0))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	s.NoError(s.store.Create(s.ctx, s.newMember(s.projectB, s.bob, models.RoleManager, 0)))
}

func (s *PostgresStoreSuite) TestMissingUserIsInvalidState() {
	err := s.store.Create(s.ctx, s.newMember(s.projectA, id.NewUserID(), models.RoleViewer, 0))
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *PostgresStoreSuite) TestListings() {
	first := s.newMember(s.projectA, s.alice, models.RoleOwner, 0)
	second := s.newMember(s.projectA, s.bob, models.RoleViewer, time.Second)
	other := s.newMember(s.projectB, s.bob, models.RoleOwner, 2*time.Second)
	for _, m := range []*models.ProjectMember{second, first, other} {
		s.Require().NoError(s.store.Create(s.ctx, m))
	}

	byProject, err := s.store.ListByProject(s.ctx, s.projectA)
	s.Require().NoError(err)
	s.Require().Len(byProject, 2)
	s.Equal(first.ID, byProject[0].ID)
	s.Equal(second.ID, byProject[1].ID)

	byUser, err := s.store.ListByUser(s.ctx, s.bob)
	s.Require().NoError(err)
	s.Require().Len(byUser, 2)
	s.Equal(second.ID, byUser[0].ID)
	s.Equal(other.ID, byUser[1].ID)

	none, err := s.store.ListByProject(s.ctx, id.NewProjectID())
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)
}

func (s *PostgresStoreSuite) TestUpdateRoleAndDelete() {
	m := s.newMember(s.projectA, s.bob, models.RoleViewer, 0)
	s.Require().NoError(s.store.Create(s.ctx, m))

	s.Require().NoError(s.store.UpdateRole(s.ctx, m.ID, models.RoleManager))
	found, err := s.store.FindByID(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleManager, found.Role)

	s.Require().NoError(s.store.Delete(s.ctx, m.ID))
	s.ErrorIs(s.store.Delete(s.ctx, m.ID), sentinel.ErrNotFound)
	s.ErrorIs(s.store.UpdateRole(s.ctx, m.ID, models.RoleViewer), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDeleteByProject() {
	s.Require().NoError(s.store.Create(s.ctx, s.newMember(s.projectA, s.alice, models.RoleOwner, 0)))
	s.Require().NoError(s.store.Create(s.ctx, s.newMember(s.projectA, s.bob, models.RoleViewer, 0)))
	kept := s.newMember(s.projectB, s.bob, models.RoleOwner, 0)
	s.Require().NoError(s.store.Create(s.ctx, kept))

	n, err := s.store.DeleteByProject(s.ctx, s.projectA)
	s.Require().NoError(err)
	s.Equal(2, n)

	_, err = s.store.FindByID(s.ctx, kept.ID)
	s.NoError(err)
}
