package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"taskhub/internal/audit"
	"taskhub/internal/workspace/models"
	"taskhub/internal/workspace/service/mocks"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/platform/sentinel"
)

// StoreErrorSuite checks that store failures surface with the right code
// and that nothing is audited for failed operations.
type StoreErrorSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	projects  *mocks.MockProjectStore
	members   *mocks.MockMemberStore
	tasks     *mocks.MockTaskStore
	comments  *mocks.MockCommentStore
	users     *mocks.MockUserDirectory
	publisher *mocks.MockAuditPublisher
	service   *Service

	ctx     context.Context
	owner   id.Actor
	project *models.Project
}

func TestStoreErrorSuite(t *testing.T) {
	suite.Run(t, new(StoreErrorSuite))
}

func (s *StoreErrorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.projects = mocks.NewMockProjectStore(s.ctrl)
	s.members = mocks.NewMockMemberStore(s.ctrl)
	s.tasks = mocks.NewMockTaskStore(s.ctrl)
	s.comments = mocks.NewMockCommentStore(s.ctrl)
	s.users = mocks.NewMockUserDirectory(s.ctrl)
	s.publisher = mocks.NewMockAuditPublisher(s.ctrl)
	s.service = New(s.projects, s.members, s.tasks, s.comments, s.users, WithAuditPublisher(s.publisher))

	s.ctx = context.Background()
	s.owner = id.Actor{UserID: id.NewUserID()}
	s.project = &models.Project{ID: id.NewProjectID(), Name: "Alpha", OwnerID: s.owner.UserID}
}

func (s *StoreErrorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *StoreErrorSuite) expectOwnerAccess() {
	s.projects.EXPECT().FindByID(gomock.Any(), s.project.ID).Return(s.project, nil)
	s.members.EXPECT().FindByProjectAndUser(gomock.Any(), s.project.ID, s.owner.UserID).Return(nil, sentinel.ErrNotFound)
}

func (s *StoreErrorSuite) TestCreateProject() {
	s.Run("name taken", func() {
		s.projects.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyUsed)

		_, err := s.service.CreateProject(s.ctx, s.owner, "Alpha", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("membership write fails", func() {
		s.projects.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.members.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

		_, err := s.service.CreateProject(s.ctx, s.owner, "Alpha", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("success is audited once", func() {
		s.projects.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.members.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(audit.ActionProjectCreated, e.Action)
			s.Equal(s.owner.UserID, e.ActorID)
			return nil
		})

		_, err := s.service.CreateProject(s.ctx, s.owner, "Alpha", nil)
		s.NoError(err)
	})

	s.Run("audit failure does not fail the operation", func() {
		s.projects.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.members.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("buffer closed"))

		_, err := s.service.CreateProject(s.ctx, s.owner, "Alpha", nil)
		s.NoError(err)
	})
}

func (s *StoreErrorSuite) TestProjectLookupFails() {
	s.projects.EXPECT().FindByID(gomock.Any(), s.project.ID).Return(nil, errors.New("connection reset"))

	_, err := s.service.GetProject(s.ctx, s.owner, s.project.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *StoreErrorSuite) TestMembershipLookupFails() {
	s.projects.EXPECT().FindByID(gomock.Any(), s.project.ID).Return(s.project, nil)
	s.members.EXPECT().FindByProjectAndUser(gomock.Any(), s.project.ID, s.owner.UserID).Return(nil, errors.New("timeout"))

	err := s.service.DeleteProject(s.ctx, s.owner, s.project.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *StoreErrorSuite) TestDeleteProjectStopsOnCascadeFailure() {
	taskIDs := []id.TaskID{id.NewTaskID()}
	s.expectOwnerAccess()
	s.tasks.EXPECT().ListIDsByProject(gomock.Any(), s.project.ID).Return(taskIDs, nil)
	s.comments.EXPECT().DeleteByTasks(gomock.Any(), taskIDs).Return(0, nil)
	s.tasks.EXPECT().DeleteByProject(gomock.Any(), s.project.ID).Return(0, errors.New("lock timeout"))

	err := s.service.DeleteProject(s.ctx, s.owner, s.project.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *StoreErrorSuite) TestAddMemberDirectoryFails() {
	s.expectOwnerAccess()
	s.users.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, errors.New("users table gone"))

	_, err := s.service.AddMember(s.ctx, s.owner, s.project.ID, id.NewUserID(), models.RoleViewer)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *StoreErrorSuite) TestListProjectsCountFails() {
	s.projects.EXPECT().ListIDsByOwner(gomock.Any(), s.owner.UserID).Return([]id.ProjectID{s.project.ID}, nil)
	s.members.EXPECT().ListByUser(gomock.Any(), s.owner.UserID).Return(nil, nil)
	s.projects.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any()).Return([]*models.Project{s.project}, nil)
	s.projects.EXPECT().Count(gomock.Any(), gomock.Any()).Return(0, errors.New("canceled"))

	_, err := s.service.ListProjects(s.ctx, s.owner, models.Pagination{Limit: 10})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *StoreErrorSuite) TestTimeoutIsReported() {
	s.projects.EXPECT().FindByID(gomock.Any(), s.project.ID).Return(nil, context.DeadlineExceeded)

	_, err := s.service.GetProject(s.ctx, s.owner, s.project.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *StoreErrorSuite) TestAssigneeRemovedBeforeWrite() {
	task := &models.Task{ID: id.NewTaskID(), ProjectID: s.project.ID, Title: "Ship", Status: models.TaskStatusPending}
	member := &models.ProjectMember{ID: id.NewMemberID(), ProjectID: s.project.ID, UserID: id.NewUserID(), Role: models.RoleEmployee}
	gone := fmt.Errorf("task assignee missing: %w", sentinel.ErrInvalidState)

	s.Run("assign", func() {
		s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)
		s.expectOwnerAccess()
		s.members.EXPECT().FindByID(gomock.Any(), member.ID).Return(member, nil)
		s.tasks.EXPECT().Update(gomock.Any(), gomock.Any()).Return(gone)

		_, err := s.service.AssignTask(s.ctx, s.owner, task.ID, member.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal("member not found", dErrors.MessageOf(err))
	})

	s.Run("create", func() {
		s.expectOwnerAccess()
		s.members.EXPECT().FindByID(gomock.Any(), member.ID).Return(member, nil)
		s.tasks.EXPECT().Create(gomock.Any(), gomock.Any()).Return(gone)

		_, err := s.service.CreateTask(s.ctx, s.owner, s.project.ID, CreateTaskInput{Title: "Ship", AssignedMemberID: &member.ID})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
