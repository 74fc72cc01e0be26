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

type incidentRepository interface {
	List(ctx context.Context, companyID string) ([]models.Incident, error)
	FindByID(ctx context.Context, companyID, id string) (*models.Incident, error)
	Create(ctx context.Context, inc *models.Incident) error
	Update(ctx context.Context, inc *models.Incident) error
	Delete(ctx context.Context, companyID, id string) error
}

// IncidentRequest is the create and update payload.
type IncidentRequest struct {
	Title        string                  `json:"title" validate:"required,max=255"`
	Description  string                  `json:"description"`
	Type         models.IncidentType     `json:"type" validate:"required,oneof=accident near_miss property_damage environmental occupational_illness"`
	Severity     models.IncidentSeverity `json:"severity" validate:"required,oneof=minor moderate serious fatal"`
	Status       models.IncidentStatus   `json:"status" validate:"omitempty,oneof=open investigating closed"`
	OccurredOn   *string                 `json:"occurred_on"`
	DepartmentID *string                 `json:"department_id" validate:"omitempty,uuid"`
	Location     string                  `json:"location" validate:"max=255"`
	AssigneeID   *string                 `json:"assignee_id" validate:"omitempty,uuid"`
}

func (r *IncidentRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.OccurredOn = trimmed(r.OccurredOn)
	r.DepartmentID = trimmed(r.DepartmentID)
	r.Location = strings.TrimSpace(r.Location)
	r.AssigneeID = trimmed(r.AssigneeID)
}

var incidentAccessors = risk.Accessors[models.Incident]{
	Search: []func(models.Incident) string{
		func(i models.Incident) string { return i.Title },
		func(i models.Incident) string { return i.Description },
		func(i models.Incident) string { return deref(i.AssigneeName) },
	},
	Categories: map[string]func(models.Incident) string{
		"status":     func(i models.Incident) string { return string(i.Status) },
		"type":       func(i models.Incident) string { return string(i.Type) },
		"severity":   func(i models.Incident) string { return string(i.Severity) },
		"department": func(i models.Incident) string { return deref(i.DepartmentName) },
	},
	Date: func(i models.Incident) *string { return risk.DateOf(i.OccurredOn) },
}

type incidentCounter interface {
	RecordIncident(severity string)
}

// IncidentService manages reported incidents.
type IncidentService struct {
	repo      incidentRepository
	cache     DashboardInvalidator
	counter   incidentCounter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewIncidentService constructs an IncidentService.
func NewIncidentService(repo incidentRepository, cache DashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *IncidentService {
	validate, logger = defaults(validate, logger)
	return &IncidentService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List filters the tenant's incidents and returns one page.
func (s *IncidentService) List(ctx context.Context, actor models.Actor, query models.ListQuery) ([]models.Incident, *models.Pagination, error) {
	filtered, err := s.Filtered(ctx, actor, query)
	if err != nil {
		return nil, nil, err
	}
	items, pagination := models.Paginate(filtered, query.Page, query.PageSize)
	return items, pagination, nil
}

// Filtered returns every tenant incident matching query.
func (s *IncidentService) Filtered(ctx context.Context, actor models.Actor, query models.ListQuery) ([]models.Incident, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	incidents, err := s.repo.List(ctx, actor.CompanyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list incidents")
	}
	return risk.Filter(incidents, query.Criteria(), incidentAccessors), nil
}

// Get returns one incident.
func (s *IncidentService) Get(ctx context.Context, actor models.Actor, id string) (*models.Incident, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	inc, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, lookupError(err, "incident not found", "failed to load incident")
	}
	return inc, nil
}

// WithCounter counts every reported incident by severity.
func (s *IncidentService) WithCounter(c incidentCounter) *IncidentService {
	s.counter = c
	return s
}

// Create records an incident reported by the actor.
func (s *IncidentService) Create(ctx context.Context, actor models.Actor, req IncidentRequest) (*models.Incident, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	inc := &models.Incident{ID: uuid.NewString(), CompanyID: actor.CompanyID, Status: models.IncidentOpen, ReportedBy: optional(actor.UserID)}
	if err := s.apply(inc, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, inc); err != nil {
		return nil, appErrors.Internal(err, "failed to create incident")
	}
	invalidate(ctx, s.cache, actor.CompanyID)
	if s.counter != nil {
		s.counter.RecordIncident(string(inc.Severity))
	}
	return inc, nil
}

// Update overwrites an incident.
func (s *IncidentService) Update(ctx context.Context, actor models.Actor, id string, req IncidentRequest) (*models.Incident, error) {
	inc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(inc, req); err != nil {
		return nil, err
	}
	return s.save(ctx, actor, inc)
}

// Close marks an incident closed. Closing a closed incident is a no-op.
func (s *IncidentService) Close(ctx context.Context, actor models.Actor, id string) (*models.Incident, error) {
	inc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if inc.Status == models.IncidentClosed {
		return inc, nil
	}
	inc.Status = models.IncidentClosed
	return s.save(ctx, actor, inc)
}

// Delete removes an incident.
func (s *IncidentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireTenant(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, actor.CompanyID, id); err != nil {
		return lookupError(err, "incident not found", "failed to delete incident")
	}
	invalidate(ctx, s.cache, actor.CompanyID)
	return nil
}

func (s *IncidentService) save(ctx context.Context, actor models.Actor, inc *models.Incident) (*models.Incident, error) {
	if err := s.repo.Update(ctx, inc); err != nil {
		return nil, lookupError(err, "incident not found", "failed to update incident")
	}
	invalidate(ctx, s.cache, actor.CompanyID)
	return inc, nil
}

func (s *IncidentService) apply(inc *models.Incident, req IncidentRequest) error {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return invalid(err, "invalid incident payload")
	}
	occurredOn, err := parseDate("occurred_on", req.OccurredOn)
	if err != nil {
		return err
	}
	inc.Title = req.Title
	inc.Description = req.Description
	inc.Type = req.Type
	inc.Severity = req.Severity
	if req.Status != "" {
		inc.Status = req.Status
	}
	inc.OccurredOn = occurredOn
	inc.DepartmentID = req.DepartmentID
	inc.Location = req.Location
	inc.AssigneeID = req.AssigneeID
	return nil
}
