package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"
	"leadcrm/internal/authz"
	"leadcrm/internal/quota"
	"leadcrm/internal/repo"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// UserService manages a tenant's members
type UserService struct {
	store      *repo.Store
	identities auth.IdentityProvider
	quota      *quota.Guard
}

// NewUserService creates a new user service
func NewUserService(store *repo.Store, identities auth.IdentityProvider, guard *quota.Guard) *UserService {
	return &UserService{store: store, identities: identities, quota: guard}
}

// UserView is the public shape of a tenant member
type UserView struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

func newUserView(u *models.User) UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// CreateUserRequest is the body of a member creation
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"max=200"`
	Role     string `json:"role"`
}

// UpdateUserRequest is the body of a member patch
type UpdateUserRequest struct {
	Name *string `json:"name" validate:"omitempty,max=200"`
	Role *string `json:"role"`
}

// List returns the tenant's members to admins and managers. Everyone else
// gets an empty list.
func (s *UserService) List(ctx context.Context, session *auth.Session) ([]UserView, error) {
	if session.Role != auth.RoleAdmin && session.Role != auth.RoleManager {
		return []UserView{}, nil
	}
	users, err := s.store.ListUsers(ctx, session.TenantID)
	if err != nil {
		return nil, storeErr("list users", "User", err)
	}
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, newUserView(&users[i]))
	}
	return views, nil
}

// Create registers a new member with a confirmed identity. Unknown or
// non-assignable roles fall back to sales.
func (s *UserService) Create(ctx context.Context, session *auth.Session, req CreateUserRequest) (*UserView, error) {
	if !authz.CanManageUsers(session.Role) {
		return nil, apperr.Forbidden("Forbidden")
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperr.Validation("Email and password are required")
	}
	role := auth.Role(req.Role)
	if !role.IsAssignable() {
		role = auth.RoleSales
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = email
	}

	if err := s.quota.Require(ctx, session.TenantID, quota.Users); err != nil {
		return nil, err
	}

	id, err := s.identities.CreateUser(ctx, email, req.Password, true)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return nil, apperr.Validation("Email already registered")
		}
		return nil, apperr.Upstream(fmt.Errorf("create identity: %w", err))
	}

	user := &models.User{
		TenantID: session.TenantID,
		Email:    strings.ToLower(email),
		Name:     name,
		Role:     string(role),
	}
	user.ID = id

	if err := s.store.CreateUser(ctx, user); err != nil {
		if delErr := s.identities.DeleteUser(ctx, id); delErr != nil {
			log.Error().Err(delErr).Str("user_id", id.String()).Msg("failed to remove identity after user insert failure")
		}
		return nil, storeErr("create user", "User", err)
	}

	log.Info().
		Str("tenant_id", session.TenantID.String()).
		Str("user_id", id.String()).
		Str("role", user.Role).
		Msg("user created")

	view := newUserView(user)
	return &view, nil
}

// Update changes a member's name or role. Admins cannot change their own
// role and the tenant's last admin cannot be demoted.
func (s *UserService) Update(ctx context.Context, session *auth.Session, id uuid.UUID, req UpdateUserRequest) (*UserView, error) {
	if !authz.CanManageUsers(session.Role) {
		return nil, apperr.Forbidden("Forbidden")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	var newRole auth.Role
	if req.Role != nil {
		newRole = auth.Role(*req.Role)
		if newRole != auth.RoleAdmin && !newRole.IsAssignable() {
			return nil, apperr.Validation("Invalid role")
		}
		updates["role"] = string(newRole)
	}

	target, err := s.store.GetUser(ctx, session.TenantID, id)
	if err != nil {
		return nil, storeErr("load user", "User", err)
	}

	if req.Role != nil && newRole != auth.RoleAdmin {
		if target.ID == session.UserID {
			return nil, apperr.Validation("Cannot change your own role from admin")
		}
		if current, _ := auth.NormalizeRole(target.Role); current == auth.RoleAdmin {
			admins, err := s.store.CountByRole(ctx, session.TenantID, string(auth.RoleAdmin))
			if err != nil {
				return nil, storeErr("count admins", "User", err)
			}
			if admins <= 1 {
				return nil, apperr.Validation("Cannot demote the last admin")
			}
		}
	}

	if len(updates) == 0 {
		view := newUserView(target)
		return &view, nil
	}

	user, err := s.store.UpdateUser(ctx, session.TenantID, id, updates)
	if err != nil {
		return nil, storeErr("update user", "User", err)
	}
	view := newUserView(user)
	return &view, nil
}
