package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/models"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type departmentRepository interface {
	List(ctx context.Context, companyID string) ([]models.Department, error)
	FindByID(ctx context.Context, companyID, id string) (*models.Department, error)
	Create(ctx context.Context, d *models.Department) error
	Update(ctx context.Context, d *models.Department) error
	Delete(ctx context.Context, companyID, id string) error
}

// DepartmentRequest is the create and update payload.
type DepartmentRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Location string `json:"location" validate:"max=255"`
}

func (r *DepartmentRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Location = strings.TrimSpace(r.Location)
}

// DepartmentService manages departments of a tenant.
type DepartmentService struct {
	repo      departmentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepartmentService constructs a DepartmentService.
func NewDepartmentService(repo departmentRepository, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	validate, logger = defaults(validate, logger)
	return &DepartmentService{repo: repo, validator: validate, logger: logger}
}

// List returns every department of the tenant ordered by name.
func (s *DepartmentService) List(ctx context.Context, actor models.Actor) ([]models.Department, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	departments, err := s.repo.List(ctx, actor.CompanyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list departments")
	}
	return departments, nil
}

// Create adds a department.
func (s *DepartmentService) Create(ctx context.Context, actor models.Actor, req DepartmentRequest) (*models.Department, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid department payload")
	}
	d := &models.Department{
		ID:        uuid.NewString(),
		CompanyID: actor.CompanyID,
		Name:      req.Name,
		Location:  req.Location,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, writeError(err, "department name already exists", "department not found", "failed to create department")
	}
	return d, nil
}

// Update renames or relocates a department.
func (s *DepartmentService) Update(ctx context.Context, actor models.Actor, id string, req DepartmentRequest) (*models.Department, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid department payload")
	}
	d, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, lookupError(err, "department not found", "failed to load department")
	}
	d.Name = req.Name
	d.Location = req.Location
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, writeError(err, "department name already exists", "department not found", "failed to update department")
	}
	return d, nil
}

// Delete removes a department. Employees and assessments keep a dangling weak reference.
func (s *DepartmentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireTenant(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, actor.CompanyID, id); err != nil {
		return lookupError(err, "department not found", "failed to delete department")
	}
	return nil
}
