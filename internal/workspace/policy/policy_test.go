package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
)

type PolicySuite struct {
	suite.Suite
	owner   id.UserID
	project *models.Project
	task    *models.Task
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

func (s *PolicySuite) SetupTest() {
	now := time.Now()
	s.owner = id.NewUserID()
	p, err := models.NewProject(id.NewProjectID(), "Alpha", nil, s.owner, now)
	s.Require().NoError(err)
	s.project = p
	t, err := models.NewTask(id.NewTaskID(), p.ID, "Design API", nil, now)
	s.Require().NoError(err)
	s.task = t
}

func (s *PolicySuite) member(role models.Role) Access {
	userID := id.NewUserID()
	m, err := models.NewProjectMember(id.NewMemberID(), s.project.ID, userID, role, time.Now())
	s.Require().NoError(err)
	return Access{Actor: id.Actor{UserID: userID}, Project: s.project, Member: m}
}

func (s *PolicySuite) ownerAccess() Access {
	return Access{Actor: id.Actor{UserID: s.owner}, Project: s.project}
}

func (s *PolicySuite) stranger() Access {
	return Access{Actor: id.Actor{UserID: id.NewUserID()}, Project: s.project}
}

func (s *PolicySuite) superuser() Access {
	return Access{Actor: id.Actor{UserID: id.NewUserID(), IsSuperuser: true}, Project: s.project}
}

func (s *PolicySuite) TestRoleRanking() {
	s.True(AtLeast(models.RoleOwner, models.RoleManager))
	s.True(AtLeast(models.RoleManager, models.RoleManager))
	s.False(AtLeast(models.RoleEmployee, models.RoleManager))
	s.False(AtLeast(models.RoleViewer, models.RoleEmployee))
	s.Equal(0, Rank(models.Role("admin")))
}

func (s *PolicySuite) TestEffectiveRole() {
	s.Run("owner without membership row", func() {
		r, ok := s.ownerAccess().EffectiveRole()
		s.True(ok)
		s.Equal(models.RoleOwner, r)
	})

	s.Run("membership of another project is ignored", func() {
		a := s.member(models.RoleManager)
		a.Member.ProjectID = id.NewProjectID()
		_, ok := a.EffectiveRole()
		s.False(ok)
	})
}

func (s *PolicySuite) TestProjectRules() {
	cases := []struct {
		name   string
		access Access
		read   Decision
		update Decision
		manage Decision
	}{
		{"superuser", s.superuser(), Permit, Permit, Permit},
		{"owner", s.ownerAccess(), Permit, Permit, Permit},
		{"manager", s.member(models.RoleManager), Permit, Deny, Deny},
		{"employee", s.member(models.RoleEmployee), Permit, Deny, Deny},
		{"viewer", s.member(models.RoleViewer), Permit, Deny, Deny},
		{"stranger", s.stranger(), Hide, Deny, Deny},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.Equal(tc.read, CanReadProject(tc.access))
			s.Equal(tc.read, CanListMembers(tc.access))
			s.Equal(tc.update, CanUpdateProject(tc.access))
			s.Equal(tc.update, CanDeleteProject(tc.access))
			s.Equal(tc.manage, CanManageMembers(tc.access))
		})
	}
}

func (s *PolicySuite) TestTaskRules() {
	cases := []struct {
		name    string
		access  Access
		create  Decision
		comment Decision
		read    Decision
	}{
		{"superuser", s.superuser(), Permit, Permit, Permit},
		{"owner", s.ownerAccess(), Permit, Permit, Permit},
		{"manager", s.member(models.RoleManager), Permit, Permit, Permit},
		{"employee", s.member(models.RoleEmployee), Deny, Permit, Permit},
		{"viewer", s.member(models.RoleViewer), Deny, Permit, Permit},
		{"stranger", s.stranger(), Deny, Deny, Hide},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.Equal(tc.create, CanCreateTask(tc.access))
			s.Equal(tc.create, CanAssignTask(tc.access))
			s.Equal(tc.create, CanDeleteTask(tc.access))
			s.Equal(tc.comment, CanAddComment(tc.access))
			s.Equal(tc.read, CanReadTask(tc.access))
			s.Equal(tc.read, CanListComments(tc.access))
		})
	}
}

func (s *PolicySuite) TestUpdateTask() {
	completed := models.TaskStatusCompleted
	title := "renamed"
	statusOnly := models.TaskPatch{Status: &completed}
	withTitle := models.TaskPatch{Status: &completed, Title: &title}

	assignee := s.member(models.RoleEmployee)
	s.Require().NoError(s.task.Assign(assignee.Member, time.Now()))
	other := s.member(models.RoleEmployee)

	s.Equal(Permit, CanUpdateTask(assignee, s.task, statusOnly))
	s.Equal(Deny, CanUpdateTask(assignee, s.task, withTitle))
	s.Equal(Deny, CanUpdateTask(other, s.task, statusOnly))
	s.Equal(Permit, CanUpdateTask(s.member(models.RoleManager), s.task, withTitle))
	s.Equal(Permit, CanUpdateTask(s.ownerAccess(), s.task, withTitle))
	s.Equal(Permit, CanUpdateTask(s.superuser(), s.task, withTitle))
	s.Equal(Deny, CanUpdateTask(s.stranger(), s.task, statusOnly))
}

func (s *PolicySuite) TestCreateAndListRules() {
	s.Equal(Deny, CanCreateProject(id.Actor{}))
	s.Equal(Permit, CanCreateProject(id.Actor{UserID: id.NewUserID()}))
	s.True(CanListAllProjects(id.Actor{UserID: id.NewUserID(), IsSuperuser: true}))
	s.False(CanListAllTasks(id.Actor{UserID: id.NewUserID()}))
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Permit.Err("project"))
	assert.True(t, dErrors.HasCode(Deny.Err("project"), dErrors.CodeForbidden))
	assert.True(t, dErrors.HasCode(Hide.Err("project"), dErrors.CodeNotFound))
}
