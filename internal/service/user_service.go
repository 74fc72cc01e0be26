package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/models"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateUserRequest represents payload for creating users. CompanyID is honoured for super admins only.
type CreateUserRequest struct {
	CompanyID string          `json:"company_id" validate:"omitempty,uuid"`
	Email     string          `json:"email" validate:"required,email"`
	FullName  string          `json:"full_name" validate:"required,max=255"`
	Role      models.UserRole `json:"role" validate:"required,oneof=ADMIN MANAGER EMPLOYEE"`
	Active    bool            `json:"active"`
	Password  string          `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest payload for updating users.
type UpdateUserRequest struct {
	FullName string          `json:"full_name" validate:"required,max=255"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN MANAGER EMPLOYEE"`
	Active   *bool           `json:"active"`
}

func (r *CreateUserRequest) normalize() {
	r.CompanyID = strings.TrimSpace(r.CompanyID)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
}

func (r *UpdateUserRequest) normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
}

// UserService handles user management inside one company.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	validate, logger = defaults(validate, logger)
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users of the actor's company.
func (s *UserService) List(ctx context.Context, actor models.Actor, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	filter.CompanyID = actor.CompanyID
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a user of the actor's company.
func (s *UserService) Get(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	if !sameCompany(actor, user) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return user, nil
}

// Create adds a user to the actor's company, or to req.CompanyID when the actor is a super admin.
func (s *UserService) Create(ctx context.Context, actor models.Actor, req CreateUserRequest) (*models.User, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid create user payload")
	}

	companyID := actor.CompanyID
	if actor.Role == models.RoleSuperAdmin && req.CompanyID != "" {
		companyID = req.CompanyID
	}
	if companyID == "" {
		return nil, appErrors.Clone(appErrors.ErrTenantRequired, "")
	}

	email := req.Email
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check email uniqueness")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		CompanyID:    &companyID,
		Email:        email,
		FullName:     req.FullName,
		Role:         req.Role,
		Active:       req.Active,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, writeError(err, "email already exists", "company not found", "failed to create user")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"id": user.ID, "email": user.Email, "role": user.Role})
	s.audit(ctx, actor, models.AuditActionUserCreate, user, nil, newPayload)
	return user, nil
}

// Update modifies name, role and active flag of a user in the actor's company.
func (s *UserService) Update(ctx context.Context, actor models.Actor, id string, req UpdateUserRequest) (*models.User, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid update payload")
	}

	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "super admin accounts are managed from the CLI")
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"role": user.Role, "active": user.Active})
	user.FullName = req.FullName
	user.Role = req.Role
	if req.Active != nil {
		user.Active = *req.Active
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to update user")
	}
	if !user.Active {
		s.revokeSessions(ctx, user.ID)
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"role": user.Role, "active": user.Active})
	s.audit(ctx, actor, models.AuditActionUserUpdate, user, oldPayload, newPayload)
	return user, nil
}

// Deactivate marks the user inactive and revokes its sessions. Users are never hard deleted.
func (s *UserService) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	if id == actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")
	}
	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !user.Active {
		return nil
	}

	user.Active = false
	if err := s.repo.Update(ctx, user); err != nil {
		return appErrors.Internal(err, "failed to deactivate user")
	}
	s.revokeSessions(ctx, user.ID)

	s.audit(ctx, actor, models.AuditActionUserUpdate, user, []byte(`{"active":true}`), []byte(`{"active":false}`))
	return nil
}

func (s *UserService) revokeSessions(ctx context.Context, userID string) {
	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke sessions of deactivated user", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *UserService) audit(ctx context.Context, actor models.Actor, action string, user *models.User, oldValues, newValues []byte) {
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		CompanyID:  user.CompanyID,
		UserID:     optional(actor.UserID),
		Action:     action,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}

func sameCompany(actor models.Actor, user *models.User) bool {
	return user.CompanyID != nil && *user.CompanyID == actor.CompanyID
}
