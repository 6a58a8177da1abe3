// Package policy decides which workspace operations an actor may perform.
//
// Every function is pure: callers load the project and the actor's
// membership first and pass them in as an Access. Superusers are permitted
// everything. Role ordering exists only here.
package policy

import (
	"taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	dErrors "taskhub/pkg/domain-errors"
)

// Decision is the outcome of a check.
type Decision int

const (
	// Permit allows the operation.
	Permit Decision = iota
	// Deny answers Forbidden: the actor may know the entity exists.
	Deny
	// Hide answers NotFound so the entity's existence does not leak.
	Hide
)

func (d Decision) Allowed() bool { return d == Permit }

// Err converts the decision to a coded error naming entity.
func (d Decision) Err(entity string) error {
	switch d {
	case Permit:
		return nil
	case Hide:
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	default:
		return dErrors.New(dErrors.CodeForbidden, "not permitted to perform this action on "+entity)
	}
}

// Access is an actor's standing in one project.
type Access struct {
	Actor   id.Actor
	Project *models.Project
	// Member is the actor's membership in Project, nil when there is none.
	Member *models.ProjectMember
}

var roleRank = map[models.Role]int{
	models.RoleViewer:   1,
	models.RoleEmployee: 2,
	models.RoleManager:  3,
	models.RoleOwner:    4,
}

// Rank orders roles; unknown roles rank zero.
func Rank(r models.Role) int { return roleRank[r] }

// AtLeast reports whether r is at or above min.
func AtLeast(r models.Role, min models.Role) bool { return Rank(r) >= Rank(min) }

// EffectiveRole is Owner for the project's owner, otherwise the membership
// role. ok is false when the actor has no relationship to the project.
func (a Access) EffectiveRole() (models.Role, bool) {
	if a.Project != nil && a.Project.IsOwnedBy(a.Actor.UserID) {
		return models.RoleOwner, true
	}
	if a.Member != nil && a.Project != nil && a.Member.ProjectID == a.Project.ID && a.Member.UserID == a.Actor.UserID {
		return a.Member.Role, true
	}
	return "", false
}

func (a Access) related() bool {
	_, ok := a.EffectiveRole()
	return ok
}

func (a Access) atLeast(min models.Role) bool {
	r, ok := a.EffectiveRole()
	return ok && AtLeast(r, min)
}

// requireRole permits superusers and actors at or above min; everyone else
// is denied.
func (a Access) requireRole(min models.Role) Decision {
	if a.Actor.IsSuperuser || a.atLeast(min) {
		return Permit
	}
	return Deny
}

// visible permits superusers and anyone related to the project; strangers
// are answered as if the project did not exist.
func (a Access) visible() Decision {
	if a.Actor.IsSuperuser || a.related() {
		return Permit
	}
	return Hide
}

// CanCreateProject: any authenticated actor.
func CanCreateProject(actor id.Actor) Decision {
	if actor.IsZero() {
		return Deny
	}
	return Permit
}

// CanListAllProjects gates the administrative listing of every project.
func CanListAllProjects(actor id.Actor) bool { return actor.IsSuperuser }

// CanListAllTasks gates the administrative listing of every task.
func CanListAllTasks(actor id.Actor) bool { return actor.IsSuperuser }

func CanReadProject(a Access) Decision { return a.visible() }

func CanUpdateProject(a Access) Decision { return a.requireRole(models.RoleOwner) }

func CanDeleteProject(a Access) Decision { return a.requireRole(models.RoleOwner) }

// CanListMembers: anyone who can see the project.
func CanListMembers(a Access) Decision { return a.visible() }

// CanManageMembers covers add, remove and role changes.
func CanManageMembers(a Access) Decision { return a.requireRole(models.RoleOwner) }

func CanCreateTask(a Access) Decision { return a.requireRole(models.RoleManager) }

func CanReadTask(a Access) Decision { return a.visible() }

// CanUpdateTask permits owners, managers and superusers to change any field.
// The member the task is assigned to may change its status and nothing else.
func CanUpdateTask(a Access, task *models.Task, patch models.TaskPatch) Decision {
	if a.requireRole(models.RoleManager).Allowed() {
		return Permit
	}
	if a.Member != nil && a.related() && task.IsAssignedTo(a.Member.ID) && patch.OnlyStatus() {
		return Permit
	}
	return Deny
}

// CanAssignTask covers both assign and unassign.
func CanAssignTask(a Access) Decision { return a.requireRole(models.RoleManager) }

func CanDeleteTask(a Access) Decision { return a.requireRole(models.RoleManager) }

// CanAddComment: any member of the task's project, whatever the role.
func CanAddComment(a Access) Decision { return a.requireRole(models.RoleViewer) }

func CanListComments(a Access) Decision { return a.visible() }
