package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taskhub/internal/audit"
	"taskhub/internal/identity/models"
	"taskhub/internal/identity/store/revocation"
	userstore "taskhub/internal/identity/store/user"
	"taskhub/internal/identity/token"
	"taskhub/internal/workspace/adapters"
	wsmodels "taskhub/internal/workspace/models"
	wsservice "taskhub/internal/workspace/service"
	commentstore "taskhub/internal/workspace/store/comment"
	memberstore "taskhub/internal/workspace/store/member"
	projectstore "taskhub/internal/workspace/store/project"
	taskstore "taskhub/internal/workspace/store/task"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/platform/sentinel"
	"taskhub/pkg/platform/tx"
)

const testPassword = "correct-horse"

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	users     *userstore.InMemory
	jwt       *token.JWTService
	trl       *revocation.InMemoryTRL
	workspace *wsservice.Service
	sink      *audit.MemorySink
	publisher *audit.Publisher
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.users = userstore.NewInMemory()
	s.jwt = token.NewJWTService("test-signing-key", "taskhub", "taskhub-api")
	s.trl = revocation.NewInMemoryTRL()
	runner := tx.NewMemoryRunner()
	s.workspace = wsservice.New(
		projectstore.NewInMemory(),
		memberstore.NewInMemory(),
		taskstore.NewInMemory(),
		commentstore.NewInMemory(),
		adapters.NewUserDirectory(s.users),
		wsservice.WithTx(runner),
	)
	s.sink = audit.NewMemorySink()
	s.publisher = audit.NewPublisher(s.sink)
	s.service = New(s.users, s.jwt, s.trl, s.workspace,
		WithTx(runner),
		WithAuditPublisher(s.publisher),
	)
}

func (s *ServiceSuite) register(email string) *models.User {
	u, err := s.service.Register(s.ctx, email, testPassword, nil)
	s.Require().NoError(err)
	return u
}

func (s *ServiceSuite) superuser() id.Actor {
	s.Require().NoError(s.service.EnsureSuperuser(s.ctx, "admin@example.com", "admin-password"))
	u, err := s.users.FindByEmail(s.ctx, "admin@example.com")
	s.Require().NoError(err)
	return u.Actor()
}

func (s *ServiceSuite) TestRegister() {
	s.Run("creates an active user", func() {
		name := "  Jane Doe "
		u, err := s.service.Register(s.ctx, "Jane@Example.com", testPassword, &name)
		s.Require().NoError(err)
		s.Equal("jane@example.com", u.Email)
		s.Equal("Jane Doe", *u.FullName)
		s.True(u.IsActive)
		s.False(u.IsSuperuser)
		s.NotEqual(testPassword, u.HashedPassword)
	})

	s.Run("duplicate email ignoring case", func() {
		_, err := s.service.Register(s.ctx, "JANE@example.com", testPassword, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("password bounds", func() {
		_, err := s.service.Register(s.ctx, "short@example.com", "short", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.service.Register(s.ctx, "long@example.com", strings.Repeat("x", 41), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("malformed email", func() {
		_, err := s.service.Register(s.ctx, "not-an-email", testPassword, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.publisher.Flush(s.ctx)
	events := s.sink.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionUserRegistered, events[0].Action)
}

func (s *ServiceSuite) TestLogin() {
	u := s.register("login@example.com")

	s.Run("valid credentials", func() {
		result, err := s.service.Login(s.ctx, "LOGIN@example.com", testPassword)
		s.Require().NoError(err)
		s.Equal("bearer", result.TokenType)
		s.Equal(int(time.Hour.Seconds()), result.ExpiresIn)

		claims, err := s.jwt.ValidateToken(result.AccessToken)
		s.Require().NoError(err)
		s.Equal(u.ID.String(), claims.Subject)
	})

	s.Run("wrong password and unknown email look the same", func() {
		_, errWrong := s.service.Login(s.ctx, "login@example.com", "wrong-password")
		_, errUnknown := s.service.Login(s.ctx, "nobody@example.com", testPassword)
		s.True(dErrors.HasCode(errWrong, dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(errUnknown, dErrors.CodeUnauthorized))
		s.Equal(dErrors.MessageOf(errWrong), dErrors.MessageOf(errUnknown))
	})

	s.Run("inactive user", func() {
		u.IsActive = false
		s.Require().NoError(s.users.Update(s.ctx, u))
		_, err := s.service.Login(s.ctx, "login@example.com", testPassword)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestLogoutRevokesToken() {
	u := s.register("logout@example.com")
	result, err := s.service.Login(s.ctx, u.Email, testPassword)
	s.Require().NoError(err)
	claims, err := s.jwt.ValidateToken(result.AccessToken)
	s.Require().NoError(err)

	revoked, err := s.service.IsTokenRevoked(s.ctx, claims.ID)
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.service.Logout(s.ctx, u.Actor(), claims.ID, claims.ExpiresAt.Time))

	revoked, err = s.service.IsTokenRevoked(s.ctx, claims.ID)
	s.Require().NoError(err)
	s.True(revoked)

	s.Run("expired token needs no entry", func() {
		s.NoError(s.service.Logout(s.ctx, u.Actor(), "old-jti", time.Now().Add(-time.Minute)))
		revoked, err := s.service.IsTokenRevoked(s.ctx, "old-jti")
		s.Require().NoError(err)
		s.False(revoked)
	})
}

func (s *ServiceSuite) TestResolveActor() {
	u := s.register("resolve@example.com")

	actor, err := s.service.ResolveActor(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(id.Actor{UserID: u.ID}, actor)

	_, err = s.service.ResolveActor(s.ctx, id.NewUserID())
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	u.IsActive = false
	s.Require().NoError(s.users.Update(s.ctx, u))
	_, err = s.service.ResolveActor(s.ctx, u.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestMe() {
	u := s.register("me@example.com")
	me, err := s.service.Me(s.ctx, u.Actor())
	s.Require().NoError(err)
	s.Equal(u.ID, me.ID)
}

func (s *ServiceSuite) TestEnsureSuperuserIsIdempotent() {
	admin := s.superuser()
	s.True(admin.IsSuperuser)
	s.Require().NoError(s.service.EnsureSuperuser(s.ctx, "admin@example.com", "admin-password"))

	n, err := s.users.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	s.Run("promotes an existing account", func() {
		u := s.register("promote@example.com")
		s.Require().NoError(s.service.EnsureSuperuser(s.ctx, "promote@example.com", ""))
		found, err := s.users.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.True(found.IsSuperuser)
	})

	s.Run("no email configured", func() {
		s.NoError(s.service.EnsureSuperuser(s.ctx, "", ""))
	})
}

func (s *ServiceSuite) TestListUsers() {
	admin := s.superuser()
	plain := s.register("plain@example.com")
	s.register("other@example.com")

	_, err := s.service.ListUsers(s.ctx, plain.Actor(), wsmodels.Pagination{Limit: 10})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	page, err := s.service.ListUsers(s.ctx, admin, wsmodels.Pagination{Skip: 1, Limit: 1})
	s.Require().NoError(err)
	s.Len(page.Data, 1)
	s.Equal(3, page.Count)
}

func (s *ServiceSuite) TestDeleteUserCascades() {
	admin := s.superuser()
	leaving := s.register("leaving@example.com").Actor()
	staying := s.register("staying@example.com").Actor()

	owned, err := s.workspace.CreateProject(s.ctx, leaving, "Leaving's project", nil)
	s.Require().NoError(err)
	_, err = s.workspace.CreateTask(s.ctx, leaving, owned.ID, wsservice.CreateTaskInput{Title: "Doomed"})
	s.Require().NoError(err)

	shared, err := s.workspace.CreateProject(s.ctx, staying, "Shared", nil)
	s.Require().NoError(err)
	membership, err := s.workspace.AddMember(s.ctx, staying, shared.ID, leaving.UserID, wsmodels.RoleEmployee)
	s.Require().NoError(err)
	task, err := s.workspace.CreateTask(s.ctx, staying, shared.ID, wsservice.CreateTaskInput{
		Title:            "Survives",
		AssignedMemberID: &membership.ID,
	})
	s.Require().NoError(err)
	_, err = s.workspace.AddComment(s.ctx, leaving, task.ID, "on it")
	s.Require().NoError(err)

	s.Run("only superusers", func() {
		err := s.service.DeleteUser(s.ctx, staying, leaving.UserID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("not themselves", func() {
		err := s.service.DeleteUser(s.ctx, admin, admin.UserID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown user", func() {
		err := s.service.DeleteUser(s.ctx, admin, id.NewUserID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Require().NoError(s.service.DeleteUser(s.ctx, admin, leaving.UserID))

	_, err = s.users.FindByID(s.ctx, leaving.UserID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.workspace.GetProject(s.ctx, admin, owned.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	got, err := s.workspace.GetTask(s.ctx, staying, task.ID)
	s.Require().NoError(err)
	s.Nil(got.AssignedMemberID)

	comments, err := s.workspace.ListComments(s.ctx, staying, task.ID)
	s.Require().NoError(err)
	s.Empty(comments)

	members, err := s.workspace.ListMembers(s.ctx, staying, shared.ID)
	s.Require().NoError(err)
	s.Len(members, 1)

	s.publisher.Flush(s.ctx)
	last := s.sink.Events()[len(s.sink.Events())-1]
	s.Equal(audit.ActionUserDeleted, last.Action)
	s.Equal(leaving.UserID, last.TargetUserID)
}

func (s *ServiceSuite) TestUpdateMe() {
	u := s.register("self@example.com")
	name := "  Ada  "
	password := "new-password"

	updated, err := s.service.UpdateMe(s.ctx, u.Actor(), &name, &password)
	s.Require().NoError(err)
	s.Equal("Ada", *updated.FullName)

	_, err = s.service.Login(s.ctx, u.Email, testPassword)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	_, err = s.service.Login(s.ctx, u.Email, password)
	s.Require().NoError(err)

	s.Run("short password changes nothing", func() {
		other := "Someone else"
		short := "short"
		_, err := s.service.UpdateMe(s.ctx, u.Actor(), &other, &short)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		found, err := s.users.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal("Ada", *found.FullName)
	})

	s.Run("nothing to change", func() {
		same, err := s.service.UpdateMe(s.ctx, u.Actor(), nil, nil)
		s.Require().NoError(err)
		s.Equal(u.ID, same.ID)
	})

	s.Run("account gone", func() {
		_, err := s.service.UpdateMe(s.ctx, id.Actor{UserID: id.NewUserID()}, &name, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.publisher.Flush(s.ctx)
	var actions []audit.Action
	for _, e := range s.sink.Events() {
		actions = append(actions, e.Action)
	}
	s.Equal([]audit.Action{
		audit.ActionUserRegistered,
		audit.ActionUserUpdated,
		audit.ActionUserPasswordChanged,
	}, actions)
}

func (s *ServiceSuite) TestGetUser() {
	admin := s.superuser()
	plain := s.register("plain@example.com")

	got, err := s.service.GetUser(s.ctx, admin, plain.ID)
	s.Require().NoError(err)
	s.Equal(plain.Email, got.Email)

	_, err = s.service.GetUser(s.ctx, plain.Actor(), admin.UserID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.GetUser(s.ctx, admin, id.NewUserID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestUpdateUser() {
	admin := s.superuser()
	target := s.register("target@example.com")
	yes, no := true, false

	s.Run("only superusers", func() {
		_, err := s.service.UpdateUser(s.ctx, target.Actor(), target.ID, models.UserPatch{IsSuperuser: &yes})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("empty patch", func() {
		_, err := s.service.UpdateUser(s.ctx, admin, target.ID, models.UserPatch{})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("cannot lock themselves out", func() {
		_, err := s.service.UpdateUser(s.ctx, admin, admin.UserID, models.UserPatch{IsActive: &no})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		_, err = s.service.UpdateUser(s.ctx, admin, admin.UserID, models.UserPatch{IsSuperuser: &no})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown user", func() {
		_, err := s.service.UpdateUser(s.ctx, admin, id.NewUserID(), models.UserPatch{IsActive: &no})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("deactivation locks the account out", func() {
		updated, err := s.service.UpdateUser(s.ctx, admin, target.ID, models.UserPatch{IsActive: &no})
		s.Require().NoError(err)
		s.False(updated.IsActive)

		_, err = s.service.Login(s.ctx, target.Email, testPassword)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		_, err = s.service.ResolveActor(s.ctx, target.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("promotion and rename", func() {
		name := "Promoted"
		updated, err := s.service.UpdateUser(s.ctx, admin, target.ID, models.UserPatch{
			FullName:    &name,
			IsActive:    &yes,
			IsSuperuser: &yes,
		})
		s.Require().NoError(err)
		s.True(updated.IsActive)
		s.True(updated.IsSuperuser)

		actor, err := s.service.ResolveActor(s.ctx, target.ID)
		s.Require().NoError(err)
		s.True(actor.IsSuperuser)
	})

	s.publisher.Flush(s.ctx)
	last := s.sink.Events()[len(s.sink.Events())-1]
	s.Equal(audit.ActionUserUpdated, last.Action)
	s.Equal(admin.UserID, last.ActorID)
	s.Equal(target.ID, last.TargetUserID)
	s.Equal("full_name,is_active,is_superuser", last.Attributes["fields"])
}
