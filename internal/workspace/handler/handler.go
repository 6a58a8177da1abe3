// Package handler exposes the workspace over HTTP. It decodes requests,
// takes the actor from the request context and maps service errors to
// statuses; every authorization decision is left to the service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskhub/internal/workspace/models"
	"taskhub/internal/workspace/service"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/platform/httputil"
	"taskhub/pkg/requestcontext"
)

// Service defines the workspace operations exposed over HTTP.
type Service interface {
	CreateProject(ctx context.Context, actor id.Actor, name string, description *string) (*models.Project, error)
	GetProject(ctx context.Context, actor id.Actor, projectID id.ProjectID) (*models.Project, error)
	ListProjects(ctx context.Context, actor id.Actor, page models.Pagination) (models.Page[*models.Project], error)
	UpdateProject(ctx context.Context, actor id.Actor, projectID id.ProjectID, patch models.ProjectPatch) (*models.Project, error)
	DeleteProject(ctx context.Context, actor id.Actor, projectID id.ProjectID) error

	ListMembers(ctx context.Context, actor id.Actor, projectID id.ProjectID) ([]*models.ProjectMember, error)
	AddMember(ctx context.Context, actor id.Actor, projectID id.ProjectID, userID id.UserID, role models.Role) (*models.ProjectMember, error)
	ChangeMemberRole(ctx context.Context, actor id.Actor, projectID id.ProjectID, userID id.UserID, role models.Role) (*models.ProjectMember, error)
	RemoveMember(ctx context.Context, actor id.Actor, projectID id.ProjectID, userID id.UserID) error

	CreateTask(ctx context.Context, actor id.Actor, projectID id.ProjectID, in service.CreateTaskInput) (*models.Task, error)
	GetTask(ctx context.Context, actor id.Actor, taskID id.TaskID) (*models.Task, error)
	ListTasks(ctx context.Context, actor id.Actor, query models.TaskQuery, page models.Pagination) (models.Page[*models.Task], error)
	UpdateTask(ctx context.Context, actor id.Actor, taskID id.TaskID, patch models.TaskPatch) (*models.Task, error)
	AssignTask(ctx context.Context, actor id.Actor, taskID id.TaskID, memberID id.MemberID) (*models.Task, error)
	UnassignTask(ctx context.Context, actor id.Actor, taskID id.TaskID) (*models.Task, error)
	DeleteTask(ctx context.Context, actor id.Actor, taskID id.TaskID) error

	AddComment(ctx context.Context, actor id.Actor, taskID id.TaskID, content string) (*models.Comment, error)
	ListComments(ctx context.Context, actor id.Actor, taskID id.TaskID) ([]*models.Comment, error)
}

// Handler wires workspace endpoints to the workspace service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts workspace endpoints. The router must already enforce
// authentication.
func (h *Handler) Register(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Post("/", h.HandleCreateProject)
		r.Get("/", h.HandleListProjects)
		r.Route("/{project_id}", func(r chi.Router) {
			r.Get("/", h.HandleGetProject)
			r.Patch("/", h.HandleUpdateProject)
			r.Delete("/", h.HandleDeleteProject)

			r.Get("/members", h.HandleListMembers)
			r.Post("/members", h.HandleAddMember)
			r.Patch("/members/{user_id}", h.HandleChangeMemberRole)
			r.Delete("/members/{user_id}", h.HandleRemoveMember)

			r.Post("/tasks", h.HandleCreateTask)
		})
	})
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.HandleListTasks)
		r.Route("/{task_id}", func(r chi.Router) {
			r.Get("/", h.HandleGetTask)
			r.Patch("/", h.HandleUpdateTask)
			r.Delete("/", h.HandleDeleteTask)

			r.Put("/assignee", h.HandleAssignTask)
			r.Delete("/assignee", h.HandleUnassignTask)

			r.Post("/comments", h.HandleAddComment)
			r.Get("/comments", h.HandleListComments)
		})
	})
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (id.Actor, bool) {
	actor, ok := requestcontext.Actor(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
	}
	return actor, ok
}

// fail writes err and logs it with the request id. Client errors are logged
// at debug level.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	level := slog.LevelDebug
	if status := httputil.StatusFor(dErrors.CodeOf(err)); status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"path", r.URL.Path,
		"error", err,
	)
	httputil.WriteError(w, err)
}

// decode reads the JSON body into dst and runs its Validate method if it has
// one.
func decode(r *http.Request, dst any) error {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		return err
	}
	if v, ok := dst.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

func parsePagination(r *http.Request) (models.Pagination, error) {
	skip, err := httputil.QueryInt(r, "skip", 0)
	if err != nil {
		return models.Pagination{}, err
	}
	limit, err := httputil.QueryInt(r, "limit", models.DefaultLimit)
	if err != nil {
		return models.Pagination{}, err
	}
	page, err := models.NewPagination(skip, limit)
	if err != nil {
		return models.Pagination{}, dErrors.New(dErrors.CodeInvalidInput, dErrors.MessageOf(err))
	}
	return page, nil
}

func projectIDParam(r *http.Request) (id.ProjectID, error) {
	return id.ParseProjectID(chi.URLParam(r, "project_id"))
}

func taskIDParam(r *http.Request) (id.TaskID, error) {
	return id.ParseTaskID(chi.URLParam(r, "task_id"))
}

func userIDParam(r *http.Request) (id.UserID, error) {
	return id.ParseUserID(chi.URLParam(r, "user_id"))
}

// listOf keeps empty listings serialised as [] rather than null.
func listOf[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
