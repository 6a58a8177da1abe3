// Package service implements the workspace use cases: projects, memberships,
// tasks and comments. Every operation loads what it needs, asks the policy,
// checks cross-entity rules and commits in a single transaction. Audit events
// are published only after the transaction commits.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"taskhub/internal/audit"
	workspacemetrics "taskhub/internal/workspace/metrics"
	"taskhub/internal/workspace/models"
	"taskhub/internal/workspace/policy"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/platform/sentinel"
	"taskhub/pkg/platform/tx"
)

const tracerName = "taskhub/internal/workspace/service"

type ProjectStore interface {
	Create(ctx context.Context, p *models.Project) error
	FindByID(ctx context.Context, projectID id.ProjectID) (*models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, projectID id.ProjectID) error
	List(ctx context.Context, filter models.ProjectFilter, page models.Pagination) ([]*models.Project, error)
	Count(ctx context.Context, filter models.ProjectFilter) (int, error)
	ListIDsByOwner(ctx context.Context, ownerID id.UserID) ([]id.ProjectID, error)
}

type MemberStore interface {
	Create(ctx context.Context, member *models.ProjectMember) error
	FindByID(ctx context.Context, memberID id.MemberID) (*models.ProjectMember, error)
	FindByProjectAndUser(ctx context.Context, projectID id.ProjectID, userID id.UserID) (*models.ProjectMember, error)
	ListByProject(ctx context.Context, projectID id.ProjectID) ([]*models.ProjectMember, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.ProjectMember, error)
	UpdateRole(ctx context.Context, memberID id.MemberID, role models.Role) error
	Delete(ctx context.Context, memberID id.MemberID) error
	DeleteByProject(ctx context.Context, projectID id.ProjectID) (int, error)
}

type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	FindByID(ctx context.Context, taskID id.TaskID) (*models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, taskID id.TaskID) error
	List(ctx context.Context, filter models.TaskFilter, page models.Pagination) ([]*models.Task, error)
	Count(ctx context.Context, filter models.TaskFilter) (int, error)
	ListIDsByProject(ctx context.Context, projectID id.ProjectID) ([]id.TaskID, error)
	DeleteByProject(ctx context.Context, projectID id.ProjectID) (int, error)
	ClearAssignee(ctx context.Context, memberID id.MemberID) (int, error)
}

type CommentStore interface {
	Create(ctx context.Context, c *models.Comment) error
	ListByTask(ctx context.Context, taskID id.TaskID) ([]*models.Comment, error)
	DeleteByTasks(ctx context.Context, taskIDs []id.TaskID) (int, error)
	DeleteByAuthor(ctx context.Context, authorID id.UserID) (int, error)
}

// UserDirectory answers whether a user account exists.
type UserDirectory interface {
	Exists(ctx context.Context, userID id.UserID) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// StoreTx runs a unit of work atomically. RunReadTx gives every query inside
// fn the same snapshot.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	RunReadTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service orchestrates the workspace.
type Service struct {
	projects ProjectStore
	members  MemberStore
	tasks    TaskStore
	comments CommentStore
	users    UserDirectory

	tx             StoreTx
	logger         *slog.Logger
	metrics        *workspacemetrics.Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *workspacemetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithTx sets the transaction runner. Defaults to an in-memory runner.
func WithTx(runner StoreTx) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service.
func New(projects ProjectStore, members MemberStore, tasks TaskStore, comments CommentStore, users UserDirectory, opts ...Option) *Service {
	s := &Service{
		projects: projects,
		members:  members,
		tasks:    tasks,
		comments: comments,
		users:    users,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewMemoryRunner()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// observe wraps one operation in a span and records its outcome. The
// returned func must be deferred with a pointer to the operation's error.
func (s *Service) observe(ctx context.Context, operation string, actor id.Actor) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "workspace."+operation, trace.WithAttributes(
		attribute.String("actor.id", actor.UserID.String()),
		attribute.Bool("actor.superuser", actor.IsSuperuser),
	))
	return ctx, func(errp *error) {
		outcome := "ok"
		if *errp != nil {
			*errp = normalize(*errp)
			outcome = string(dErrors.CodeOf(*errp))
			span.RecordError(*errp)
			span.SetStatus(codes.Error, outcome)
			if outcome == string(dErrors.CodeInternal) || outcome == string(dErrors.CodeTimeout) {
				s.logger.ErrorContext(ctx, "workspace operation failed",
					"operation", operation,
					"error", *errp,
				)
			}
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveOperation(operation, outcome, start)
		}
	}
}

// normalize guarantees every error leaving the service carries a code.
func normalize(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !dErrors.HasCode(err, dErrors.CodeTimeout) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation timed out")
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
}

// validationErr converts model invariant failures into client errors.
func validationErr(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	return err
}

func storeErr(err error, entity, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
}

func (s *Service) loadProject(ctx context.Context, projectID id.ProjectID) (*models.Project, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, storeErr(err, "project", "load project")
	}
	return p, nil
}

func (s *Service) loadTask(ctx context.Context, taskID id.TaskID) (*models.Task, error) {
	t, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, storeErr(err, "task", "load task")
	}
	return t, nil
}

// access loads the actor's standing in project.
func (s *Service) access(ctx context.Context, actor id.Actor, project *models.Project) (policy.Access, error) {
	a := policy.Access{Actor: actor, Project: project}
	m, err := s.members.FindByProjectAndUser(ctx, project.ID, actor.UserID)
	switch {
	case err == nil:
		a.Member = m
	case !errors.Is(err, sentinel.ErrNotFound):
		return a, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load membership")
	}
	return a, nil
}

// projectAccess loads project and the actor's standing in it.
func (s *Service) projectAccess(ctx context.Context, actor id.Actor, projectID id.ProjectID) (policy.Access, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return policy.Access{}, err
	}
	return s.access(ctx, actor, project)
}

// taskAccess loads task, its project and the actor's standing in it.
func (s *Service) taskAccess(ctx context.Context, actor id.Actor, taskID id.TaskID) (*models.Task, policy.Access, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, policy.Access{}, err
	}
	a, err := s.projectAccess(ctx, actor, task.ProjectID)
	if err != nil {
		return nil, policy.Access{}, err
	}
	return task, a, nil
}

// visibleProjectIDs lists projects the actor owns or belongs to.
func (s *Service) visibleProjectIDs(ctx context.Context, userID id.UserID) ([]id.ProjectID, error) {
	owned, err := s.projects.ListIDsByOwner(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list owned projects")
	}
	memberships, err := s.members.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list memberships")
	}
	seen := make(map[id.ProjectID]struct{}, len(owned)+len(memberships))
	out := make([]id.ProjectID, 0, len(owned)+len(memberships))
	for _, pid := range owned {
		if _, ok := seen[pid]; !ok {
			seen[pid] = struct{}{}
			out = append(out, pid)
		}
	}
	for _, m := range memberships {
		if _, ok := seen[m.ProjectID]; !ok {
			seen[m.ProjectID] = struct{}{}
			out = append(out, m.ProjectID)
		}
	}
	return out, nil
}

// emit publishes events after commit. Publishing never fails the operation.
func (s *Service) emit(ctx context.Context, events ...audit.Event) {
	for _, e := range events {
		s.logger.InfoContext(ctx, string(e.Action), "log_type", "audit", "project_id", e.ProjectID.String())
		if s.auditPublisher == nil {
			continue
		}
		if err := s.auditPublisher.Emit(ctx, e); err != nil {
			s.logger.WarnContext(ctx, "failed to publish audit event",
				"action", string(e.Action),
				"error", err,
			)
		}
	}
}
