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

type investigationRepository interface {
	List(ctx context.Context, companyID string) ([]models.Investigation, error)
	FindByID(ctx context.Context, companyID, id string) (*models.Investigation, error)
	CountOpen(ctx context.Context, companyID string) (int, error)
	Create(ctx context.Context, inv *models.Investigation) error
	Update(ctx context.Context, inv *models.Investigation) error
	Delete(ctx context.Context, companyID, id string) error
}

// InvestigationRequest is the create and update payload.
type InvestigationRequest struct {
	IncidentID     *string                    `json:"incident_id" validate:"omitempty,uuid"`
	Code           string                     `json:"code" validate:"required,max=50"`
	Title          string                     `json:"title" validate:"required,max=255"`
	Status         models.InvestigationStatus `json:"status" validate:"omitempty,oneof=open in_progress completed"`
	InvestigatorID *string                    `json:"investigator_id" validate:"omitempty,uuid"`
	StartedOn      *string                    `json:"started_on"`
	DueOn          *string                    `json:"due_on"`
	RootCause      string                     `json:"root_cause"`
	Findings       string                     `json:"findings"`
}

func (r *InvestigationRequest) normalize() {
	r.IncidentID = trimmed(r.IncidentID)
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	r.Title = strings.TrimSpace(r.Title)
	r.InvestigatorID = trimmed(r.InvestigatorID)
	r.StartedOn = trimmed(r.StartedOn)
	r.DueOn = trimmed(r.DueOn)
}

var investigationAccessors = risk.Accessors[models.Investigation]{
	Search: []func(models.Investigation) string{
		func(i models.Investigation) string { return i.Title },
		func(i models.Investigation) string { return deref(i.InvestigatorName) },
		func(i models.Investigation) string { return i.Code },
	},
	Categories: map[string]func(models.Investigation) string{
		"status": func(i models.Investigation) string { return string(i.Status) },
	},
	Date: func(i models.Investigation) *string { return risk.DateOf(i.StartedOn) },
}

// InvestigationService manages root-cause investigations.
type InvestigationService struct {
	repo      investigationRepository
	cache     DashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInvestigationService constructs an InvestigationService.
func NewInvestigationService(repo investigationRepository, cache DashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *InvestigationService {
	validate, logger = defaults(validate, logger)
	return &InvestigationService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List filters the tenant's investigations and returns one page.
func (s *InvestigationService) List(ctx context.Context, actor models.Actor, query models.ListQuery) ([]models.Investigation, *models.Pagination, error) {
	if err := requireTenant(actor); err != nil {
		return nil, nil, err
	}
	investigations, err := s.repo.List(ctx, actor.CompanyID)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list investigations")
	}
	filtered := risk.Filter(investigations, query.Criteria(), investigationAccessors)
	items, pagination := models.Paginate(filtered, query.Page, query.PageSize)
	return items, pagination, nil
}

// Get returns one investigation.
func (s *InvestigationService) Get(ctx context.Context, actor models.Actor, id string) (*models.Investigation, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	inv, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, lookupError(err, "investigation not found", "failed to load investigation")
	}
	return inv, nil
}

// Create opens an investigation. Codes are unique per company.
func (s *InvestigationService) Create(ctx context.Context, actor models.Actor, req InvestigationRequest) (*models.Investigation, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	inv := &models.Investigation{ID: uuid.NewString(), CompanyID: actor.CompanyID, Status: models.InvestigationOpen}
	if err := s.apply(inv, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, writeError(err, "investigation code already exists", "investigation not found", "failed to create investigation")
	}
	invalidate(ctx, s.cache, actor.CompanyID)
	return inv, nil
}

// Update overwrites an investigation.
func (s *InvestigationService) Update(ctx context.Context, actor models.Actor, id string, req InvestigationRequest) (*models.Investigation, error) {
	inv, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(inv, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, writeError(err, "investigation code already exists", "investigation not found", "failed to update investigation")
	}
	invalidate(ctx, s.cache, actor.CompanyID)
	return inv, nil
}

// Delete removes an investigation.
func (s *InvestigationService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireTenant(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, actor.CompanyID, id); err != nil {
		return lookupError(err, "investigation not found", "failed to delete investigation")
	}
	invalidate(ctx, s.cache, actor.CompanyID)
	return nil
}

func (s *InvestigationService) apply(inv *models.Investigation, req InvestigationRequest) error {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return invalid(err, "invalid investigation payload")
	}
	startedOn, err := parseDate("started_on", req.StartedOn)
	if err != nil {
		return err
	}
	dueOn, err := parseDate("due_on", req.DueOn)
	if err != nil {
		return err
	}
	if startedOn != nil && dueOn != nil && dueOn.Before(*startedOn) {
		return appErrors.Clone(appErrors.ErrValidation, "due_on must not be before started_on")
	}
	inv.IncidentID = req.IncidentID
	inv.Code = req.Code
	inv.Title = req.Title
	if req.Status != "" {
		inv.Status = req.Status
	}
	inv.InvestigatorID = req.InvestigatorID
	inv.StartedOn = startedOn
	inv.DueOn = dueOn
	inv.RootCause = req.RootCause
	inv.Findings = req.Findings
	return nil
}
