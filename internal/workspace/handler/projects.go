package handler

import (
	"net/http"

	"taskhub/pkg/platform/httputil"
)

func (h *Handler) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req CreateProjectRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	project, err := h.service.CreateProject(r.Context(), actor, req.Name, req.Description)
	if err != nil {
		h.fail(w, r, "create project failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, project)
}

func (h *Handler) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	page, err := parsePagination(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.ListProjects(r.Context(), actor, page)
	if err != nil {
		h.fail(w, r, "list projects failed", err)
		return
	}
	result.Data = listOf(result.Data)
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	projectID, err := projectIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	project, err := h.service.GetProject(r.Context(), actor, projectID)
	if err != nil {
		h.fail(w, r, "get project failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, project)
}

func (h *Handler) HandleUpdateProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	projectID, err := projectIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req UpdateProjectRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	project, err := h.service.UpdateProject(r.Context(), actor, projectID, req.Patch())
	if err != nil {
		h.fail(w, r, "update project failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, project)
}

func (h *Handler) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	projectID, err := projectIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteProject(r.Context(), actor, projectID); err != nil {
		h.fail(w, r, "delete project failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	projectID, err := projectIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	members, err := h.service.ListMembers(r.Context(), actor, projectID)
	if err != nil {
		h.fail(w, r, "list members failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(members))
}

func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	projectID, err := projectIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req AddMemberRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	member, err := h.service.AddMember(r.Context(), actor, projectID, req.parsedUserID, req.parsedRole)
	if err != nil {
		h.fail(w, r, "add member failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, member)
}

func (h *Handler) HandleChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	projectID, err := projectIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req ChangeRoleRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	member, err := h.service.ChangeMemberRole(r.Context(), actor, projectID, userID, req.parsedRole)
	if err != nil {
		h.fail(w, r, "change member role failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	projectID, err := projectIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.RemoveMember(r.Context(), actor, projectID, userID); err != nil {
		h.fail(w, r, "remove member failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
