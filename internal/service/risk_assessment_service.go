package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/dto"
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/risk"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type riskAssessmentRepository interface {
	List(ctx context.Context, companyID string) ([]models.RiskAssessment, error)
	FindByID(ctx context.Context, companyID, id string) (*models.RiskAssessment, error)
	Create(ctx context.Context, a *models.RiskAssessment) error
	Update(ctx context.Context, a *models.RiskAssessment) error
	Delete(ctx context.Context, companyID, id string) error
	Approve(ctx context.Context, companyID, id, approverID, notes string, at time.Time) error
	UpdateMeasureStatus(ctx context.Context, assessmentID string, measureIDs []string, status risk.MeasureStatus) (int64, error)
}

type approvalCounter interface {
	RecordRiskApproval()
}

type riskNotifier interface {
	RiskApproved(ctx context.Context, a models.RiskAssessment, approver string)
}

// MeasureRequest is one mitigation measure in an assessment payload. A known ID updates the measure.
type MeasureRequest struct {
	ID            string                 `json:"id"`
	Category      models.MeasureCategory `json:"category" validate:"required,oneof=elimination substitution engineering_controls administrative_controls ppe"`
	Description   string                 `json:"description" validate:"required"`
	ResponsibleID *string                `json:"responsible_id" validate:"omitempty,uuid"`
	DueOn         *string                `json:"due_on"`
	Notes         string                 `json:"notes"`
	Status        risk.MeasureStatus     `json:"status"`
}

// RiskAssessmentRequest is the create and full-overwrite update payload.
type RiskAssessmentRequest struct {
	Title             string            `json:"title" validate:"required,max=255"`
	Description       string            `json:"description"`
	HazardType        models.HazardType `json:"hazard_type" validate:"required,oneof=mechanical electrical chemical biological physical ergonomic psychosocial fire environmental other"`
	DepartmentID      *string           `json:"department_id" validate:"omitempty,uuid"`
	Location          string            `json:"location" validate:"max=255"`
	ExposureGroup     string            `json:"exposure_group" validate:"max=100"`
	LineManagerID     *string           `json:"line_manager_id" validate:"omitempty,uuid"`
	ProbabilityBefore int               `json:"probability_before" validate:"required,min=1,max=5"`
	SeverityBefore    int               `json:"severity_before" validate:"required,min=1,max=5"`
	ProbabilityAfter  int               `json:"probability_after" validate:"required,min=1,max=5"`
	SeverityAfter     int               `json:"severity_after" validate:"required,min=1,max=5"`
	Notes             string            `json:"notes"`
	AssessedOn        *string           `json:"assessed_on"`
	Measures          []MeasureRequest  `json:"measures" validate:"dive"`
}

func (r *RiskAssessmentRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.DepartmentID = trimmed(r.DepartmentID)
	r.Location = strings.TrimSpace(r.Location)
	r.ExposureGroup = strings.TrimSpace(r.ExposureGroup)
	r.LineManagerID = trimmed(r.LineManagerID)
	r.AssessedOn = trimmed(r.AssessedOn)
	if r.Measures == nil {
		return
	}
	measures := make([]MeasureRequest, len(r.Measures))
	for i, m := range r.Measures {
		m.Description = strings.TrimSpace(m.Description)
		m.ResponsibleID = trimmed(m.ResponsibleID)
		m.DueOn = trimmed(m.DueOn)
		measures[i] = m
	}
	r.Measures = measures
}

// ApproveRequest carries the optional approval comment.
type ApproveRequest struct {
	Comment string `json:"comment" validate:"max=2000"`
}

// MeasureStatusRequest sets one status on several measures of an assessment.
type MeasureStatusRequest struct {
	MeasureIDs []string           `json:"measure_ids" validate:"required,min=1,dive,required"`
	Status     risk.MeasureStatus `json:"status" validate:"required"`
}

var riskAccessors = risk.Accessors[models.RiskAssessment]{
	Search: []func(models.RiskAssessment) string{
		func(a models.RiskAssessment) string { return a.Title },
		func(a models.RiskAssessment) string { return a.Description },
		func(a models.RiskAssessment) string { return deref(a.LineManagerName) },
	},
	Categories: map[string]func(models.RiskAssessment) string{
		"status":            func(a models.RiskAssessment) string { return string(a.Status) },
		"department":        func(a models.RiskAssessment) string { return deref(a.DepartmentName) },
		"location":          func(a models.RiskAssessment) string { return a.Location },
		"exposure_group":    func(a models.RiskAssessment) string { return a.ExposureGroup },
		"hazard_type":       func(a models.RiskAssessment) string { return string(a.HazardType) },
		"risk_level":        func(a models.RiskAssessment) string { return string(a.RiskLevelAfter) },
		"risk_level_before": func(a models.RiskAssessment) string { return string(a.RiskLevelBefore) },
	},
	Date: func(a models.RiskAssessment) *string { return risk.DateOf(a.AssessedOn) },
}

// RiskAssessmentService implements the risk assessment workflow: scoring, approval and measure tracking.
type RiskAssessmentService struct {
	repo      riskAssessmentRepository
	notifier  riskNotifier
	cache     DashboardInvalidator
	approvals approvalCounter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRiskAssessmentService constructs the service. notifier and cache may be nil.
func NewRiskAssessmentService(repo riskAssessmentRepository, notifier riskNotifier, cache DashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *RiskAssessmentService {
	validate, logger = defaults(validate, logger)
	return &RiskAssessmentService{
		repo:      repo,
		notifier:  notifier,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List filters the tenant's assessments and returns one page with fresh progress.
func (s *RiskAssessmentService) List(ctx context.Context, actor models.Actor, query models.ListQuery) ([]dto.RiskAssessmentView, *models.Pagination, error) {
	filtered, err := s.Filtered(ctx, actor, query)
	if err != nil {
		return nil, nil, err
	}
	page, pagination := models.Paginate(filtered, query.Page, query.PageSize)
	now := s.now()
	views := make([]dto.RiskAssessmentView, 0, len(page))
	for _, a := range page {
		views = append(views, toRiskView(a, now))
	}
	return views, pagination, nil
}

// Filtered returns every tenant assessment matching query, in repository order.
func (s *RiskAssessmentService) Filtered(ctx context.Context, actor models.Actor, query models.ListQuery) ([]models.RiskAssessment, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	assessments, err := s.repo.List(ctx, actor.CompanyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list risk assessments")
	}
	return risk.Filter(assessments, query.Criteria(), riskAccessors), nil
}

// Get returns one assessment with its measures.
func (s *RiskAssessmentService) Get(ctx context.Context, actor models.Actor, id string) (*dto.RiskAssessmentView, error) {
	a, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	view := toRiskView(*a, s.now())
	return &view, nil
}

// Create stores a new draft. Scores are always derived from the ratings.
func (s *RiskAssessmentService) Create(ctx context.Context, actor models.Actor, req RiskAssessmentRequest) (*dto.RiskAssessmentView, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	a := &models.RiskAssessment{
		ID:        uuid.NewString(),
		CompanyID: actor.CompanyID,
		Status:    models.AssessmentDraft,
		CreatedBy: optional(actor.UserID),
	}
	if err := s.apply(a, req, nil); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, appErrors.Internal(err, "failed to create risk assessment")
	}
	invalidate(ctx, s.cache, actor.CompanyID)
	return s.Get(ctx, actor, a.ID)
}

// Update overwrites the assessment and replaces its measures.
func (s *RiskAssessmentService) Update(ctx context.Context, actor models.Actor, id string, req RiskAssessmentRequest) (*dto.RiskAssessmentView, error) {
	a, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]models.RiskMeasure, len(a.Measures))
	for _, m := range a.Measures {
		existing[m.ID] = m
	}
	if err := s.apply(a, req, existing); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, lookupError(err, "risk assessment not found", "failed to update risk assessment")
	}
	invalidate(ctx, s.cache, actor.CompanyID)
	return s.Get(ctx, actor, a.ID)
}

// Delete removes the assessment together with its measures.
func (s *RiskAssessmentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireTenant(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, actor.CompanyID, id); err != nil {
		return lookupError(err, "risk assessment not found", "failed to delete risk assessment")
	}
	invalidate(ctx, s.cache, actor.CompanyID)
	return nil
}

// WithApprovalCounter counts approvals.
func (s *RiskAssessmentService) WithApprovalCounter(c approvalCounter) *RiskAssessmentService {
	s.approvals = c
	return s
}

// Approve moves a draft to approved, appending the comment to the notes, and notifies the line manager.
func (s *RiskAssessmentService) Approve(ctx context.Context, actor models.Actor, id string, req ApproveRequest) (*dto.RiskAssessmentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid approval payload")
	}
	a, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status == models.AssessmentApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "risk assessment already approved")
	}

	at := s.now()
	notes := appendComment(a.Notes, req.Comment, actor.FullName, at)
	if err := s.repo.Approve(ctx, actor.CompanyID, id, actor.UserID, notes, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "risk assessment already approved")
		}
		return nil, appErrors.Internal(err, "failed to approve risk assessment")
	}

	a.Status = models.AssessmentApproved
	a.Notes = notes
	a.ApprovedBy = optional(actor.UserID)
	a.ApprovedAt = &at
	if s.notifier != nil {
		s.notifier.RiskApproved(ctx, *a, actor.FullName)
	}
	if s.approvals != nil {
		s.approvals.RecordRiskApproval()
	}
	invalidate(ctx, s.cache, actor.CompanyID)

	view := toRiskView(*a, at)
	return &view, nil
}

// UpdateMeasureStatus sets the status of measures of one assessment and returns the recomputed progress.
func (s *RiskAssessmentService) UpdateMeasureStatus(ctx context.Context, actor models.Actor, id string, req MeasureStatusRequest) (*dto.MeasureStatusResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid measure status payload")
	}
	status := risk.NormalizeStatus(string(req.Status))
	if !status.Known() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown measure status %q", req.Status))
	}

	a, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(a.Measures))
	for i, m := range a.Measures {
		index[m.ID] = i
	}
	for _, measureID := range req.MeasureIDs {
		if _, ok := index[measureID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "measure not found: "+measureID)
		}
	}

	updated, err := s.repo.UpdateMeasureStatus(ctx, a.ID, req.MeasureIDs, status)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to update measure status")
	}
	for _, measureID := range req.MeasureIDs {
		a.Measures[index[measureID]].Status = status
	}
	invalidate(ctx, s.cache, actor.CompanyID)

	return &dto.MeasureStatusResult{
		AssessmentID: a.ID,
		Status:       status,
		Updated:      updated,
		Progress:     a.Progress(),
	}, nil
}

// Matrix counts the tenant's assessments per probability × severity cell before and after mitigation.
func (s *RiskAssessmentService) Matrix(ctx context.Context, actor models.Actor) (*dto.RiskMatrix, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	assessments, err := s.repo.List(ctx, actor.CompanyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list risk assessments")
	}
	return BuildMatrix(assessments), nil
}

// BuildMatrix places assessments on the grid. Ratings outside the grid are counted as unplotted.
func BuildMatrix(assessments []models.RiskAssessment) *dto.RiskMatrix {
	cells := risk.Matrix()
	out := &dto.RiskMatrix{
		Cells:      cells,
		Total:      len(assessments),
		MinRating:  risk.MinRating,
		MaxRating:  risk.MaxRating,
		Thresholds: risk.Thresholds(),
	}
	for _, a := range assessments {
		before := risk.InRange(a.ProbabilityBefore) && risk.InRange(a.SeverityBefore)
		after := risk.InRange(a.ProbabilityAfter) && risk.InRange(a.SeverityAfter)
		if before {
			cells[a.ProbabilityBefore-risk.MinRating][a.SeverityBefore-risk.MinRating].Before++
		}
		if after {
			cells[a.ProbabilityAfter-risk.MinRating][a.SeverityAfter-risk.MinRating].After++
		}
		if !before || !after {
			out.Unplotted++
		}
	}
	return out
}

func (s *RiskAssessmentService) load(ctx context.Context, actor models.Actor, id string) (*models.RiskAssessment, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	a, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, lookupError(err, "risk assessment not found", "failed to load risk assessment")
	}
	return a, nil
}

// apply validates req and copies it onto a. Measures keep their id only when it belongs to the assessment.
func (s *RiskAssessmentService) apply(a *models.RiskAssessment, req RiskAssessmentRequest, existing map[string]models.RiskMeasure) error {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		return invalid(err, "invalid risk assessment payload")
	}
	assessedOn, err := parseDate("assessed_on", req.AssessedOn)
	if err != nil {
		return err
	}

	measures := make([]models.RiskMeasure, 0, len(req.Measures))
	for i, mr := range req.Measures {
		dueOn, err := parseDate(fmt.Sprintf("measures[%d].due_on", i), mr.DueOn)
		if err != nil {
			return err
		}
		m := models.RiskMeasure{
			RiskAssessmentID: a.ID,
			Category:         mr.Category,
			Description:      mr.Description,
			ResponsibleID:    mr.ResponsibleID,
			DueOn:            dueOn,
			Notes:            mr.Notes,
			Status:           risk.NormalizeStatus(string(mr.Status)),
		}
		if prev, ok := existing[mr.ID]; ok {
			m.ID = prev.ID
			m.CreatedAt = prev.CreatedAt
		}
		if m.Status == "" {
			m.Status = risk.StatusNotStarted
		}
		measures = append(measures, m)
	}

	a.Title = req.Title
	a.Description = req.Description
	a.HazardType = req.HazardType
	a.DepartmentID = req.DepartmentID
	a.Location = req.Location
	a.ExposureGroup = req.ExposureGroup
	a.LineManagerID = req.LineManagerID
	a.ProbabilityBefore, a.SeverityBefore = req.ProbabilityBefore, req.SeverityBefore
	a.ProbabilityAfter, a.SeverityAfter = req.ProbabilityAfter, req.SeverityAfter
	a.Notes = req.Notes
	a.AssessedOn = assessedOn
	a.Measures = measures
	a.Rescore()
	return nil
}

func toRiskView(a models.RiskAssessment, now time.Time) dto.RiskAssessmentView {
	if a.Measures == nil {
		a.Measures = []models.RiskMeasure{}
	}
	overdue := 0
	for _, m := range a.Measures {
		if m.Overdue(now) {
			overdue++
		}
	}
	return dto.RiskAssessmentView{
		RiskAssessment:  a,
		Before:          risk.Rate(a.ProbabilityBefore, a.SeverityBefore),
		After:           risk.Rate(a.ProbabilityAfter, a.SeverityAfter),
		Progress:        a.Progress(),
		OverdueMeasures: overdue,
	}
}

// appendComment adds "[YYYY-MM-DD HH:MM] name: comment" as a new line of notes.
func appendComment(notes, comment, author string, at time.Time) string {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return notes
	}
	if author == "" {
		author = "approver"
	}
	line := fmt.Sprintf("[%s] %s: %s", at.Format("2006-01-02 15:04"), author, comment)
	if strings.TrimSpace(notes) == "" {
		return line
	}
	return strings.TrimRight(notes, "\n") + "\n" + line
}
