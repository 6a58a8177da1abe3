package handler

import (
	"net/http"

	"taskhub/internal/workspace/models"
	"taskhub/internal/workspace/service"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
	"taskhub/pkg/platform/httputil"
)

func (h *Handler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	projectID, err := projectIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req CreateTaskRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	task, err := h.service.CreateTask(r.Context(), actor, projectID, service.CreateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		AssignedMemberID: req.parsedMemberID,
	})
	if err != nil {
		h.fail(w, r, "create task failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, task)
}

func parseTaskQuery(r *http.Request) (models.TaskQuery, error) {
	var q models.TaskQuery
	values := r.URL.Query()
	if raw := values.Get("project_id"); raw != "" {
		projectID, err := id.ParseProjectID(raw)
		if err != nil {
			return q, err
		}
		q.ProjectID = &projectID
	}
	if raw := values.Get("status"); raw != "" {
		status, err := models.ParseTaskStatus(raw)
		if err != nil {
			return q, dErrors.New(dErrors.CodeInvalidInput, dErrors.MessageOf(err))
		}
		q.Status = &status
	}
	return q, nil
}

func (h *Handler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	page, err := parsePagination(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	query, err := parseTaskQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.ListTasks(r.Context(), actor, query, page)
	if err != nil {
		h.fail(w, r, "list tasks failed", err)
		return
	}
	result.Data = listOf(result.Data)
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	taskID, err := taskIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	task, err := h.service.GetTask(r.Context(), actor, taskID)
	if err != nil {
		h.fail(w, r, "get task failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

func (h *Handler) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	taskID, err := taskIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req UpdateTaskRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	task, err := h.service.UpdateTask(r.Context(), actor, taskID, req.patch)
	if err != nil {
		h.fail(w, r, "update task failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

func (h *Handler) HandleAssignTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	taskID, err := taskIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req AssignTaskRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	task, err := h.service.AssignTask(r.Context(), actor, taskID, req.parsedMemberID)
	if err != nil {
		h.fail(w, r, "assign task failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

func (h *Handler) HandleUnassignTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	taskID, err := taskIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	task, err := h.service.UnassignTask(r.Context(), actor, taskID)
	if err != nil {
		h.fail(w, r, "unassign task failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

func (h *Handler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	taskID, err := taskIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteTask(r.Context(), actor, taskID); err != nil {
		h.fail(w, r, "delete task failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	taskID, err := taskIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req AddCommentRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	comment, err := h.service.AddComment(r.Context(), actor, taskID, req.Content)
	if err != nil {
		h.fail(w, r, "add comment failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, comment)
}

func (h *Handler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	taskID, err := taskIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	comments, err := h.service.ListComments(r.Context(), actor, taskID)
	if err != nil {
		h.fail(w, r, "list comments failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(comments))
}
