// Package audit records who changed what in the workspace. Events are
// buffered in memory and shipped to a sink (Kafka or the log) by a background
// worker after the originating transaction commits. Delivery is best-effort:
// a full buffer drops the oldest events.
package audit

import (
	"context"
	"time"

	id "taskhub/pkg/domain"
	"taskhub/pkg/requestcontext"
)

// Action names an audited state change.
type Action string

const (
	ActionUserRegistered      Action = "user_registered"
	ActionUserUpdated         Action = "user_updated"
	ActionUserPasswordChanged Action = "user_password_changed"
	ActionUserDeleted         Action = "user_deleted"

	ActionProjectCreated Action = "project_created"
	ActionProjectUpdated Action = "project_updated"
	ActionProjectDeleted Action = "project_deleted"

	ActionMemberAdded       Action = "member_added"
	ActionMemberRoleChanged Action = "member_role_changed"
	ActionMemberRemoved     Action = "member_removed"

	ActionTaskCreated    Action = "task_created"
	ActionTaskUpdated    Action = "task_updated"
	ActionTaskAssigned   Action = "task_assigned"
	ActionTaskUnassigned Action = "task_unassigned"
	ActionTaskDeleted    Action = "task_deleted"

	ActionCommentAdded Action = "comment_added"
)

// Event is the wire shape of one audit record.
type Event struct {
	Timestamp    time.Time         `json:"timestamp"`
	Action       Action            `json:"action"`
	ActorID      id.UserID         `json:"actor_id,omitzero"`
	ProjectID    id.ProjectID      `json:"project_id,omitzero"`
	TaskID       id.TaskID         `json:"task_id,omitzero"`
	TargetUserID id.UserID         `json:"target_user_id,omitzero"`
	RequestID    string            `json:"request_id,omitempty"`
	ClientIP     string            `json:"client_ip,omitempty"`
	Device       string            `json:"device,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// enrich fills correlation fields from the request context without
// overwriting anything the caller set.
func (e Event) enrich(ctx context.Context) Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = requestcontext.Now(ctx)
	}
	if e.ActorID.IsNil() {
		e.ActorID = requestcontext.UserID(ctx)
	}
	if e.RequestID == "" {
		e.RequestID = requestcontext.RequestID(ctx)
	}
	if e.ClientIP == "" {
		e.ClientIP = requestcontext.ClientIP(ctx)
	}
	if e.Device == "" {
		e.Device = requestcontext.Device(ctx)
	}
	return e
}

// key partitions events so a project's history stays ordered.
func (e Event) key() []byte {
	switch {
	case !e.ProjectID.IsNil():
		return []byte(e.ProjectID.String())
	case !e.TargetUserID.IsNil():
		return []byte(e.TargetUserID.String())
	default:
		return nil
	}
}
