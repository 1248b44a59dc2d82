package services

import (
	"context"
	"fmt"
	"strings"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"
	"leadcrm/internal/authz"
	"leadcrm/internal/repo"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
)

// TaskService handles follow-up tasks
type TaskService struct {
	store *repo.Store
	authz *authz.Engine
}

// NewTaskService creates a new task service
func NewTaskService(store *repo.Store, engine *authz.Engine) *TaskService {
	return &TaskService{store: store, authz: engine}
}

// CreateTaskRequest is the body of a task creation
type CreateTaskRequest struct {
	Title  string       `json:"title" validate:"max=500"`
	DueAt  OptionalTime `json:"due_at"`
	LeadID OptionalUUID `json:"lead_id"`
}

// UpdateTaskRequest is the body of a task patch
type UpdateTaskRequest struct {
	Done  *bool        `json:"done"`
	Title *string      `json:"title" validate:"omitempty,max=500"`
	DueAt OptionalTime `json:"due_at"`
}

// List returns the tenant's tasks by due date. Sales see standalone tasks
// and tasks on their own leads.
func (s *TaskService) List(ctx context.Context, session *auth.Session) ([]models.Task, error) {
	var owner *uuid.UUID
	if session.Role == auth.RoleSales {
		owner = &session.UserID
	}
	tasks, err := s.store.ListTasks(ctx, session.TenantID, owner)
	if err != nil {
		return nil, storeErr("list tasks", "Task", err)
	}
	return tasks, nil
}

// Create adds a task, optionally attached to a lead the caller can see
func (s *TaskService) Create(ctx context.Context, session *auth.Session, req CreateTaskRequest) (*models.Task, error) {
	if !authz.CanWriteLeads(session.Role) {
		return nil, apperr.Forbidden("Forbidden")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if req.DueAt.Invalid {
		return nil, apperr.Validation("Invalid due_at")
	}
	if req.LeadID.Invalid {
		return nil, apperr.Validation("Invalid lead_id")
	}

	if req.LeadID.Value != nil {
		d, err := s.authz.CanReadLead(ctx, authz.ActorFromSession(session), *req.LeadID.Value)
		if err != nil {
			return nil, apperr.Upstream(err)
		}
		switch d {
		case authz.NotFound:
			return nil, apperr.Validation("Invalid lead_id")
		case authz.Forbidden:
			return nil, apperr.Forbidden("Forbidden")
		}
	}

	task := &models.Task{
		LeadID: req.LeadID.Value,
		Title:  title,
		DueAt:  req.DueAt.Value,
	}
	task.TenantID = session.TenantID

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, storeErr("create task", "Task", err)
	}
	return task, nil
}

// Update changes a task's done flag, title or due date
func (s *TaskService) Update(ctx context.Context, session *auth.Session, id uuid.UUID, req UpdateTaskRequest) (*models.Task, error) {
	d, err := s.authz.CanUpdateTask(ctx, authz.ActorFromSession(session), id)
	if err := decide(d, err, "Task"); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Done != nil {
		updates["done"] = *req.Done
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperr.Validation("title is required")
		}
		updates["title"] = title
	}
	if req.DueAt.Set {
		if req.DueAt.Invalid {
			return nil, apperr.Validation("Invalid due_at")
		}
		updates["due_at"] = timeOrNil(req.DueAt.Value)
	}

	task, err := s.store.UpdateTask(ctx, session.TenantID, id, updates)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("update task %s", id), "Task", err)
	}
	return task, nil
}
