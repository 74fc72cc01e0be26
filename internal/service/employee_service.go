package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/risk"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type employeeRepository interface {
	List(ctx context.Context, companyID string) ([]models.Employee, error)
	FindByID(ctx context.Context, companyID, id string) (*models.Employee, error)
	Create(ctx context.Context, e *models.Employee) error
	Update(ctx context.Context, e *models.Employee) error
	Deactivate(ctx context.Context, companyID, id string) error
}

// EmployeeRequest is the create and update payload.
type EmployeeRequest struct {
	PersonnelNumber string  `json:"personnel_number" validate:"required,max=50"`
	FullName        string  `json:"full_name" validate:"required,max=255"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Position        string  `json:"position" validate:"max=255"`
	DepartmentID    *string `json:"department_id" validate:"omitempty,uuid"`
	Location        string  `json:"location" validate:"max=255"`
	ExposureGroup   string  `json:"exposure_group" validate:"max=100"`
	LineManager     bool    `json:"line_manager"`
	Active          *bool   `json:"active"`
	HiredOn         *string `json:"hired_on"`
}

func (r *EmployeeRequest) normalize() {
	r.PersonnelNumber = strings.TrimSpace(r.PersonnelNumber)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = trimmed(r.Email)
	r.Position = strings.TrimSpace(r.Position)
	r.DepartmentID = trimmed(r.DepartmentID)
	r.Location = strings.TrimSpace(r.Location)
	r.ExposureGroup = strings.TrimSpace(r.ExposureGroup)
	r.HiredOn = trimmed(r.HiredOn)
}

var employeeAccessors = risk.Accessors[models.Employee]{
	Search: []func(models.Employee) string{
		func(e models.Employee) string { return e.FullName },
		func(e models.Employee) string { return e.PersonnelNumber },
		func(e models.Employee) string { return deref(e.Email) },
	},
	Categories: map[string]func(models.Employee) string{
		"department":     func(e models.Employee) string { return deref(e.DepartmentName) },
		"location":       func(e models.Employee) string { return e.Location },
		"exposure_group": func(e models.Employee) string { return e.ExposureGroup },
		"status":         models.Employee.ActivityLabel,
	},
	Date: func(e models.Employee) *string { return risk.DateOf(e.HiredOn) },
}

// EmployeeService manages the employees of a tenant.
type EmployeeService struct {
	repo      employeeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEmployeeService constructs an EmployeeService.
func NewEmployeeService(repo employeeRepository, validate *validator.Validate, logger *zap.Logger) *EmployeeService {
	validate, logger = defaults(validate, logger)
	return &EmployeeService{repo: repo, validator: validate, logger: logger}
}

// List filters the tenant's employees and returns the requested page.
func (s *EmployeeService) List(ctx context.Context, actor models.Actor, query models.ListQuery) ([]models.Employee, *models.Pagination, error) {
	if err := requireTenant(actor); err != nil {
		return nil, nil, err
	}
	employees, err := s.repo.List(ctx, actor.CompanyID)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list employees")
	}
	filtered := risk.Filter(employees, query.Criteria(), employeeAccessors)
	items, pagination := models.Paginate(filtered, query.Page, query.PageSize)
	return items, pagination, nil
}

// Get returns one employee.
func (s *EmployeeService) Get(ctx context.Context, actor models.Actor, id string) (*models.Employee, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	e, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, lookupError(err, "employee not found", "failed to load employee")
	}
	return e, nil
}

// Create adds an employee. New employees are active unless stated otherwise.
func (s *EmployeeService) Create(ctx context.Context, actor models.Actor, req EmployeeRequest) (*models.Employee, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	e := &models.Employee{ID: uuid.NewString(), CompanyID: actor.CompanyID, Active: true}
	if err := s.apply(e, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, writeError(err, "personnel number already exists", "employee not found", "failed to create employee")
	}
	return e, nil
}

// Update overwrites an employee.
func (s *EmployeeService) Update(ctx context.Context, actor models.Actor, id string, req EmployeeRequest) (*models.Employee, error) {
	e, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(e, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, writeError(err, "personnel number already exists", "employee not found", "failed to update employee")
	}
	return e, nil
}

// Deactivate marks an employee inactive; history referencing it stays intact.
func (s *EmployeeService) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	if err := requireTenant(actor); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, actor.CompanyID, id); err != nil {
		return lookupError(err, "employee not found", "failed to deactivate employee")
	}
	return nil
}

func (s *EmployeeService) apply(e *models.Employee, req EmployeeRequest) error {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return invalid(err, "invalid employee payload")
	}
	hiredOn, err := parseDate("hired_on", req.HiredOn)
	if err != nil {
		return err
	}
	e.PersonnelNumber = req.PersonnelNumber
	e.FullName = req.FullName
	e.Email = req.Email
	e.Position = req.Position
	e.DepartmentID = req.DepartmentID
	e.Location = req.Location
	e.ExposureGroup = req.ExposureGroup
	e.LineManager = req.LineManager
	e.HiredOn = hiredOn
	if req.Active != nil {
		e.Active = *req.Active
	}
	return nil
}
