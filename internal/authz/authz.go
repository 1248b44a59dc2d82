// Package authz decides who may read, write, assign or delete leads and
// tasks. Checks run in two phases: a synchronous role gate that never touches
// the store, then an ownership check that looks up the target row.
package authz

import (
	"context"
	"fmt"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"

	"github.com/google/uuid"
)

// Decision is the outcome of an ownership check
type Decision int

const (
	Forbidden Decision = iota
	Allowed
	NotFound
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case NotFound:
		return "not_found"
	default:
		return "forbidden"
	}
}

// Err converts a non-allowed decision into the matching apperr, naming the
// resource in the not-found message. It returns nil for Allowed.
func (d Decision) Err(resource string) error {
	switch d {
	case Allowed:
		return nil
	case NotFound:
		return apperr.NotFound(resource + " not found")
	default:
		return apperr.Forbidden("Forbidden")
	}
}

// Store answers the ownership questions. Every lookup is scoped to tenantID;
// found is false when no row with that id exists in the tenant.
type Store interface {
	LeadAssignee(ctx context.Context, tenantID, leadID uuid.UUID) (assignee *uuid.UUID, found bool, err error)
	TaskLeadID(ctx context.Context, tenantID, taskID uuid.UUID) (leadID *uuid.UUID, found bool, err error)
	UserInTenant(ctx context.Context, tenantID, userID uuid.UUID) (bool, error)
}

// Actor is the caller an ownership check is made for
type Actor struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     auth.Role
}

// ActorFromSession builds an Actor from a resolved session
func ActorFromSession(s *auth.Session) Actor {
	return Actor{UserID: s.UserID, TenantID: s.TenantID, Role: s.Role}
}

// Engine runs ownership checks against a Store
type Engine struct {
	store Store
}

// NewEngine creates a new authorization engine
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// IsReadOnly reports whether role may not write anything
func IsReadOnly(role auth.Role) bool {
	return role == auth.RoleReadonly
}

// CanWriteLeads is false for readonly and support
func CanWriteLeads(role auth.Role) bool {
	return !IsReadOnly(role) && role != auth.RoleSupport
}

// CanSetLeadAssignment is true only for admin and manager
func CanSetLeadAssignment(role auth.Role) bool {
	return role == auth.RoleAdmin || role == auth.RoleManager
}

// CanManageUsers is true only for admin
func CanManageUsers(role auth.Role) bool {
	return role == auth.RoleAdmin
}

// CanUpdateLead decides whether actor may modify the lead
func (e *Engine) CanUpdateLead(ctx context.Context, actor Actor, leadID uuid.UUID) (Decision, error) {
	return e.leadOwnership(ctx, actor, leadID)
}

// CanDeleteLead decides whether actor may delete the lead
func (e *Engine) CanDeleteLead(ctx context.Context, actor Actor, leadID uuid.UUID) (Decision, error) {
	return e.leadOwnership(ctx, actor, leadID)
}

func (e *Engine) leadOwnership(ctx context.Context, actor Actor, leadID uuid.UUID) (Decision, error) {
	switch actor.Role {
	case auth.RoleAdmin, auth.RoleManager:
		return Allowed, nil
	case auth.RoleSales:
	default:
		return Forbidden, nil
	}

	assignee, found, err := e.store.LeadAssignee(ctx, actor.TenantID, leadID)
	if err != nil {
		return Forbidden, fmt.Errorf("lead assignee: %w", err)
	}
	if !found {
		return NotFound, nil
	}
	if assignee != nil && *assignee == actor.UserID {
		return Allowed, nil
	}
	return Forbidden, nil
}

// CanUpdateTask decides whether actor may modify the task. Sales may update
// standalone tasks and tasks whose lead is assigned to them.
func (e *Engine) CanUpdateTask(ctx context.Context, actor Actor, taskID uuid.UUID) (Decision, error) {
	switch actor.Role {
	case auth.RoleAdmin, auth.RoleManager:
		return Allowed, nil
	case auth.RoleSales:
	default:
		return Forbidden, nil
	}

	leadID, found, err := e.store.TaskLeadID(ctx, actor.TenantID, taskID)
	if err != nil {
		return Forbidden, fmt.Errorf("task lead: %w", err)
	}
	if !found {
		return NotFound, nil
	}
	if leadID == nil {
		return Allowed, nil
	}

	assignee, found, err := e.store.LeadAssignee(ctx, actor.TenantID, *leadID)
	if err != nil {
		return Forbidden, fmt.Errorf("lead assignee: %w", err)
	}
	if found && assignee != nil && *assignee == actor.UserID {
		return Allowed, nil
	}
	return Forbidden, nil
}

// CanReadLead decides whether actor may read the lead and its messages.
// Every role needs the lead to exist in the tenant; sales also need to own it.
func (e *Engine) CanReadLead(ctx context.Context, actor Actor, leadID uuid.UUID) (Decision, error) {
	assignee, found, err := e.store.LeadAssignee(ctx, actor.TenantID, leadID)
	if err != nil {
		return Forbidden, fmt.Errorf("lead assignee: %w", err)
	}
	if !found {
		return NotFound, nil
	}
	if actor.Role != auth.RoleSales {
		return Allowed, nil
	}
	if assignee != nil && *assignee == actor.UserID {
		return Allowed, nil
	}
	return Forbidden, nil
}

// IsUserInTenant validates an assignment target
func (e *Engine) IsUserInTenant(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	ok, err := e.store.UserInTenant(ctx, tenantID, userID)
	if err != nil {
		return false, fmt.Errorf("user in tenant: %w", err)
	}
	return ok, nil
}
