package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/models"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type companyRepository interface {
	List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, int, error)
	FindByID(ctx context.Context, id string) (*models.Company, error)
	Create(ctx context.Context, company *models.Company) error
	Update(ctx context.Context, company *models.Company) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateCompanyRequest registers a new tenant.
type CreateCompanyRequest struct {
	Name   string                  `json:"name" validate:"required,max=255"`
	Slug   string                  `json:"slug" validate:"required,max=100"`
	Plan   models.SubscriptionPlan `json:"subscription_plan" validate:"omitempty,oneof=basic professional enterprise"`
	Addons []string                `json:"addons" validate:"omitempty,dive,oneof=investigations trainings exports"`
}

// UpdateCompanyRequest renames a tenant.
type UpdateCompanyRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Slug string `json:"slug" validate:"required,max=100"`
}

func (r *CreateCompanyRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Slug = strings.TrimSpace(r.Slug)
}

func (r *UpdateCompanyRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Slug = strings.TrimSpace(r.Slug)
}

// UpdateSubscriptionRequest changes commercial state of a tenant.
type UpdateSubscriptionRequest struct {
	Plan   models.SubscriptionPlan   `json:"subscription_plan" validate:"required,oneof=basic professional enterprise"`
	Status models.SubscriptionStatus `json:"subscription_status" validate:"required,oneof=trial active suspended cancelled"`
	EndsAt *time.Time                `json:"subscription_ends_at"`
	Addons []string                  `json:"addons" validate:"omitempty,dive,oneof=investigations trainings exports"`
}

// CompanyService implements the super-admin back-office.
type CompanyService struct {
	repo      companyRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCompanyService constructs a CompanyService.
func NewCompanyService(repo companyRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *CompanyService {
	validate, logger = defaults(validate, logger)
	return &CompanyService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns companies matching filter.
func (s *CompanyService) List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, *models.Pagination, error) {
	companies, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list companies")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return companies, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one company.
func (s *CompanyService) Get(ctx context.Context, id string) (*models.Company, error) {
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "company not found", "failed to load company")
	}
	return company, nil
}

// Create registers a company on a trial subscription.
func (s *CompanyService) Create(ctx context.Context, actor models.Actor, req CreateCompanyRequest) (*models.Company, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid company payload")
	}
	plan := req.Plan
	if plan == "" {
		plan = models.PlanBasic
	}
	company := &models.Company{
		ID:                 uuid.NewString(),
		Name:               req.Name,
		Slug:               normalizeSlug(req.Slug),
		Plan:               plan,
		SubscriptionStatus: models.SubscriptionTrial,
		Addons:             req.Addons,
		Active:             true,
	}
	if err := s.repo.Create(ctx, company); err != nil {
		return nil, writeError(err, "slug already exists", "company not found", "failed to create company")
	}
	s.record(ctx, actor, company, nil)
	return company, nil
}

// Update renames a company.
func (s *CompanyService) Update(ctx context.Context, actor models.Actor, id string, req UpdateCompanyRequest) (*models.Company, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid company payload")
	}
	company, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *company
	company.Name = req.Name
	company.Slug = normalizeSlug(req.Slug)
	if err := s.repo.Update(ctx, company); err != nil {
		return nil, writeError(err, "slug already exists", "company not found", "failed to update company")
	}
	s.record(ctx, actor, company, &old)
	return company, nil
}

// UpdateSubscription replaces plan, status, end date and add-ons.
func (s *CompanyService) UpdateSubscription(ctx context.Context, actor models.Actor, id string, req UpdateSubscriptionRequest) (*models.Company, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid subscription payload")
	}
	company, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *company
	company.Plan = req.Plan
	company.SubscriptionStatus = req.Status
	company.SubscriptionEndsAt = req.EndsAt
	company.Addons = req.Addons
	if err := s.repo.Update(ctx, company); err != nil {
		return nil, appErrors.Internal(err, "failed to update subscription")
	}
	s.record(ctx, actor, company, &old)
	return company, nil
}

// Deactivate disables the tenant; its users are rejected by the tenant middleware afterwards.
func (s *CompanyService) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	company, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !company.Active {
		return nil
	}
	old := *company
	company.Active = false
	if err := s.repo.Update(ctx, company); err != nil {
		return appErrors.Internal(err, "failed to deactivate company")
	}
	s.record(ctx, actor, company, &old)
	return nil
}

func (s *CompanyService) record(ctx context.Context, actor models.Actor, company *models.Company, old *models.Company) {
	if s.audit == nil {
		return
	}
	var oldValues []byte
	if old != nil {
		oldValues, _ = json.Marshal(old)
	}
	newValues, _ := json.Marshal(company)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		CompanyID:  &company.ID,
		UserID:     optional(actor.UserID),
		Action:     models.AuditActionCompanyUpdate,
		Resource:   "companies",
		ResourceID: &company.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record company audit log", zap.String("company_id", company.ID), zap.Error(err))
	}
}

func normalizeSlug(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "-")
}
