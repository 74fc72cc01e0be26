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

type trainingRepository interface {
	List(ctx context.Context, companyID string) ([]models.Training, error)
	FindByID(ctx context.Context, companyID, id string) (*models.Training, error)
	Create(ctx context.Context, t *models.Training) error
	Update(ctx context.Context, t *models.Training) error
	Delete(ctx context.Context, companyID, id string) error
}

// TrainingRequest is the create and update payload.
type TrainingRequest struct {
	EmployeeID  string                `json:"employee_id" validate:"required,uuid"`
	Title       string                `json:"title" validate:"required,max=255"`
	CompletedOn *string               `json:"completed_on"`
	ValidUntil  *string               `json:"valid_until"`
	Status      models.TrainingStatus `json:"status" validate:"omitempty,oneof=scheduled completed expired"`
}

func (r *TrainingRequest) normalize() {
	r.EmployeeID = strings.TrimSpace(r.EmployeeID)
	r.Title = strings.TrimSpace(r.Title)
	r.CompletedOn = trimmed(r.CompletedOn)
	r.ValidUntil = trimmed(r.ValidUntil)
}

var trainingAccessors = risk.Accessors[models.Training]{
	Search: []func(models.Training) string{
		func(t models.Training) string { return t.Title },
		func(t models.Training) string { return t.EmployeeName },
	},
	Categories: map[string]func(models.Training) string{
		"status":     func(t models.Training) string { return string(t.Status) },
		"department": func(t models.Training) string { return deref(t.DepartmentName) },
	},
	Date: func(t models.Training) *string { return risk.DateOf(t.CompletedOn) },
}

// TrainingService manages training records.
type TrainingService struct {
	repo      trainingRepository
	cache     DashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTrainingService constructs a TrainingService.
func NewTrainingService(repo trainingRepository, cache DashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *TrainingService {
	validate, logger = defaults(validate, logger)
	return &TrainingService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List filters the tenant's trainings and returns one page.
func (s *TrainingService) List(ctx context.Context, actor models.Actor, query models.ListQuery) ([]models.Training, *models.Pagination, error) {
	filtered, err := s.Filtered(ctx, actor, query)
	if err != nil {
		return nil, nil, err
	}
	items, pagination := models.Paginate(filtered, query.Page, query.PageSize)
	return items, pagination, nil
}

// Filtered returns every tenant training matching query.
func (s *TrainingService) Filtered(ctx context.Context, actor models.Actor, query models.ListQuery) ([]models.Training, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	trainings, err := s.repo.List(ctx, actor.CompanyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list trainings")
	}
	return risk.Filter(trainings, query.Criteria(), trainingAccessors), nil
}

// Create records a training. Without a status it is completed when a completion date is given.
func (s *TrainingService) Create(ctx context.Context, actor models.Actor, req TrainingRequest) (*models.Training, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	t := &models.Training{ID: uuid.NewString(), CompanyID: actor.CompanyID}
	if err := s.apply(t, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, appErrors.Internal(err, "failed to create training")
	}
	invalidate(ctx, s.cache, actor.CompanyID)
	return t, nil
}

// Update overwrites a training.
func (s *TrainingService) Update(ctx context.Context, actor models.Actor, id string, req TrainingRequest) (*models.Training, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	t, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, lookupError(err, "training not found", "failed to load training")
	}
	if err := s.apply(t, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, lookupError(err, "training not found", "failed to update training")
	}
	invalidate(ctx, s.cache, actor.CompanyID)
	return t, nil
}

// Delete removes a training.
func (s *TrainingService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireTenant(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, actor.CompanyID, id); err != nil {
		return lookupError(err, "training not found", "failed to delete training")
	}
	invalidate(ctx, s.cache, actor.CompanyID)
	return nil
}

func (s *TrainingService) apply(t *models.Training, req TrainingRequest) error {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return invalid(err, "invalid training payload")
	}
	completedOn, err := parseDate("completed_on", req.CompletedOn)
	if err != nil {
		return err
	}
	validUntil, err := parseDate("valid_until", req.ValidUntil)
	if err != nil {
		return err
	}
	if completedOn != nil && validUntil != nil && validUntil.Before(*completedOn) {
		return appErrors.Clone(appErrors.ErrValidation, "valid_until must not be before completed_on")
	}
	t.EmployeeID = req.EmployeeID
	t.Title = req.Title
	t.CompletedOn = completedOn
	t.ValidUntil = validUntil
	switch {
	case req.Status != "":
		t.Status = req.Status
	case completedOn != nil:
		t.Status = models.TrainingCompleted
	default:
		t.Status = models.TrainingScheduled
	}
	return nil
}
