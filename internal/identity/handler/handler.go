package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taskhub/internal/identity/models"
	wsmodels "taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/platform/httputil"
	"taskhub/pkg/requestcontext"
)

// Service defines the account operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, email, password string, fullName *string) (*models.User, error)
	Login(ctx context.Context, email, password string) (models.AccessToken, error)
	Logout(ctx context.Context, actor id.Actor, jti string, expiresAt time.Time) error
	Me(ctx context.Context, actor id.Actor) (*models.User, error)
	UpdateMe(ctx context.Context, actor id.Actor, fullName, password *string) (*models.User, error)
	ListUsers(ctx context.Context, actor id.Actor, page wsmodels.Pagination) (wsmodels.Page[*models.User], error)
	GetUser(ctx context.Context, actor id.Actor, userID id.UserID) (*models.User, error)
	UpdateUser(ctx context.Context, actor id.Actor, userID id.UserID, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, actor id.Actor, userID id.UserID) error
}

// Handler wires account endpoints to the identity service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts endpoints that need no credential.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
}

// RegisterAuthenticated mounts endpoints behind auth.RequireAuth.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/users/me", h.HandleMe)
	r.Patch("/users/me", h.HandleUpdateMe)
}

// RegisterAdmin mounts superuser endpoints. The router must already enforce
// authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/users", h.HandleListUsers)
	r.Get("/admin/users/{user_id}", h.HandleGetUser)
	r.Patch("/admin/users/{user_id}", h.HandleUpdateUser)
	r.Delete("/admin/users/{user_id}", h.HandleDeleteUser)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (id.Actor, bool) {
	actor, ok := requestcontext.Actor(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
	}
	return actor, ok
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.service.Register(ctx, req.Email, req.Password, req.FullName)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, token)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.service.Logout(ctx, actor, requestcontext.TokenID(ctx), requestcontext.TokenExpiry(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	user, err := h.service.Me(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req UpdateMeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.service.UpdateMe(ctx, actor, req.FullName, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	page, err := parsePagination(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.ListUsers(r.Context(), actor, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.service.GetUser(r.Context(), actor, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req UpdateUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.service.UpdateUser(ctx, actor, userID, req.Patch())
	if err != nil {
		h.logger.WarnContext(ctx, "user update failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteUser(ctx, actor, userID); err != nil {
		h.logger.WarnContext(ctx, "user deletion failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parsePagination(r *http.Request) (wsmodels.Pagination, error) {
	skip, err := httputil.QueryInt(r, "skip", 0)
	if err != nil {
		return wsmodels.Pagination{}, err
	}
	limit, err := httputil.QueryInt(r, "limit", wsmodels.DefaultLimit)
	if err != nil {
		return wsmodels.Pagination{}, err
	}
	page, err := wsmodels.NewPagination(skip, limit)
	if err != nil {
		return wsmodels.Pagination{}, dErrors.New(dErrors.CodeInvalidInput, dErrors.MessageOf(err))
	}
	return page, nil
}
