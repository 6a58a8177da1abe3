//go:build integration

package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	userstore "taskhub/internal/identity/store/user"
	"taskhub/internal/platform/postgres"
	"taskhub/internal/workspace/adapters"
	"taskhub/internal/workspace/models"
	"taskhub/internal/workspace/service"
	commentstore "taskhub/internal/workspace/store/comment"
	memberstore "taskhub/internal/workspace/store/member"
	projectstore "taskhub/internal/workspace/store/project"
	taskstore "taskhub/internal/workspace/store/task"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/testutil/containers"
)

// PostgresServiceSuite drives the service through real stores and the
// PostgreSQL transaction runner.
type PostgresServiceSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	runner   *postgres.TxRunner
	projects *projectstore.PostgresStore
	service  *service.Service
	ctx      context.Context

	owner, bob, carol id.Actor
}

func TestPostgresServiceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresServiceSuite))
}

func (s *PostgresServiceSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	db := s.postgres.DB
	s.runner = postgres.NewTxRunner(db, 5*time.Second)
	s.projects = projectstore.NewPostgres(db)
	s.service = service.New(
		s.projects,
		memberstore.NewPostgres(db),
		taskstore.NewPostgres(db),
		commentstore.NewPostgres(db),
		adapters.NewUserDirectory(userstore.NewPostgres(db)),
		service.WithTx(s.runner),
	)
	s.ctx = context.Background()
}

func (s *PostgresServiceSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "task_comments", "tasks", "project_members", "projects", "users"))
	s.owner = id.Actor{UserID: s.insertUser()}
	s.bob = id.Actor{UserID: s.insertUser()}
	s.carol = id.Actor{UserID: s.insertUser()}
}

func (s *PostgresServiceSuite) insertUser() id.UserID {
	userID := id.NewUserID()
	_, err := s.postgres.Exec(s.ctx, `INSERT INTO users (id, email, hashed_password) VALUES ($1, $2, 'x')`,
		uuid.UUID(userID), uuid.NewString()+"@example.com")
	s.Require().NoError(err)
	return userID
}

func (s *PostgresServiceSuite) rows(table string, projectID id.ProjectID) int {
	query := map[string]string{
		"projects":        `SELECT COUNT(*) FROM projects WHERE id = $1`,
		"project_members": `SELECT COUNT(*) FROM project_members WHERE project_id = $1`,
		"tasks":           `SELECT COUNT(*) FROM tasks WHERE project_id = $1`,
		"task_comments":   `SELECT COUNT(*) FROM task_comments c JOIN tasks t ON t.id = c.task_id WHERE t.project_id = $1`,
	}[table]
	var n int
	s.Require().NoError(s.postgres.DB.QueryRowContext(s.ctx, query, uuid.UUID(projectID)).Scan(&n))
	return n
}

// seed creates a project owned by owner with bob as employee, one task
// assigned to bob and one comment by bob.
func (s *PostgresServiceSuite) seed(name string) (*models.Project, *models.ProjectMember, *models.Task) {
	p, err := s.service.CreateProject(s.ctx, s.owner, name, nil)
	s.Require().NoError(err)
	m, err := s.service.AddMember(s.ctx, s.owner, p.ID, s.bob.UserID, models.RoleEmployee)
	s.Require().NoError(err)
	t, err := s.service.CreateTask(s.ctx, s.owner, p.ID, service.CreateTaskInput{Title: "Ship", AssignedMemberID: &m.ID})
	s.Require().NoError(err)
	_, err = s.service.AddComment(s.ctx, s.bob, t.ID, "on it")
	s.Require().NoError(err)
	return p, m, t
}

func (s *PostgresServiceSuite) TestDeleteProjectCascades() {
	doomed, _, _ := s.seed("Doomed")
	kept, _, _ := s.seed("Kept")

	s.Require().NoError(s.service.DeleteProject(s.ctx, s.owner, doomed.ID))

	for _, table := range []string{"projects", "project_members", "tasks", "task_comments"} {
		s.Zero(s.rows(table, doomed.ID), table)
	}
	s.Equal(1, s.rows("projects", kept.ID))
	s.Equal(2, s.rows("project_members", kept.ID))
	s.Equal(1, s.rows("tasks", kept.ID))
	s.Equal(1, s.rows("task_comments", kept.ID))
}

func (s *PostgresServiceSuite) TestDeleteProjectByNonOwnerChangesNothing() {
	p, _, _ := s.seed("Alpha")

	err := s.service.DeleteProject(s.ctx, s.bob, p.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal(1, s.rows("projects", p.ID))
	s.Equal(1, s.rows("tasks", p.ID))
}

func (s *PostgresServiceSuite) TestRemoveMemberClearsAssignment() {
	p, _, t := s.seed("Alpha")

	s.Require().NoError(s.service.RemoveMember(s.ctx, s.owner, p.ID, s.bob.UserID))

	got, err := s.service.GetTask(s.ctx, s.owner, t.ID)
	s.Require().NoError(err)
	s.Nil(got.AssignedMemberID)
	s.Equal(1, s.rows("project_members", p.ID))
	s.Equal(1, s.rows("task_comments", p.ID))

	err = s.service.RemoveMember(s.ctx, s.owner, p.ID, s.bob.UserID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *PostgresServiceSuite) TestAssignAcrossProjectsLeavesTaskUntouched() {
	alpha, bobInAlpha, t := s.seed("Alpha")
	beta, err := s.service.CreateProject(s.ctx, s.owner, "Beta", nil)
	s.Require().NoError(err)
	carolInBeta, err := s.service.AddMember(s.ctx, s.owner, beta.ID, s.carol.UserID, models.RoleEmployee)
	s.Require().NoError(err)

	_, err = s.service.AssignTask(s.ctx, s.owner, t.ID, carolInBeta.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	got, err := s.service.GetTask(s.ctx, s.owner, t.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.AssignedMemberID)
	s.Equal(bobInAlpha.ID, *got.AssignedMemberID)
	s.Equal(alpha.ID, got.ProjectID)
}

func (s *PostgresServiceSuite) TestListTasksCountsWholeSet() {
	p, _, _ := s.seed("Alpha")
	for _, title := range []string{"two", "three", "four"} {
		_, err := s.service.CreateTask(s.ctx, s.owner, p.ID, service.CreateTaskInput{Title: title})
		s.Require().NoError(err)
	}

	page, err := s.service.ListTasks(s.ctx, s.bob, models.TaskQuery{ProjectID: &p.ID}, models.Pagination{Skip: 1, Limit: 2})
	s.Require().NoError(err)
	s.Len(page.Data, 2)
	s.Equal(4, page.Count)

	page, err = s.service.ListTasks(s.ctx, s.carol, models.TaskQuery{}, models.Pagination{Limit: 10})
	s.Require().NoError(err)
	s.Empty(page.Data)
	s.Zero(page.Count)
}

func (s *PostgresServiceSuite) TestFailedUnitOfWorkRollsBack() {
	p, err := models.NewProject(id.NewProjectID(), "Phantom", nil, s.owner.UserID, time.Now().UTC())
	s.Require().NoError(err)
	boom := errors.New("later step failed")

	err = s.runner.RunInTx(s.ctx, func(ctx context.Context) error {
		if err := s.projects.Create(ctx, p); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)
	s.Zero(s.rows("projects", p.ID))
}
