package service

import (
	"context"

	"github.com/noah-isme/hse-api/internal/dto"
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/risk"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type activeEmployeeLister interface {
	ListActive(ctx context.Context, companyID string) ([]models.Employee, error)
}

type trainingLister interface {
	List(ctx context.Context, companyID string) ([]models.Training, error)
}

type riskLister interface {
	List(ctx context.Context, companyID string) ([]models.RiskAssessment, error)
}

type incidentLister interface {
	List(ctx context.Context, companyID string) ([]models.Incident, error)
}

const unassignedDepartment = "Unassigned"

// HSEReportService builds the grouped report views over filtered tenant data.
type HSEReportService struct {
	employees activeEmployeeLister
	trainings trainingLister
	risks     riskLister
	incidents incidentLister
}

// NewHSEReportService constructs the report service.
func NewHSEReportService(employees activeEmployeeLister, trainings trainingLister, risks riskLister, incidents incidentLister) *HSEReportService {
	return &HSEReportService{employees: employees, trainings: trainings, risks: risks, incidents: incidents}
}

// TrainingsByEmployee lists every active employee, including those without any matching training.
func (s *HSEReportService) TrainingsByEmployee(ctx context.Context, actor models.Actor, query models.ListQuery) ([]dto.EmployeeTrainings, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	employees, err := s.employees.ListActive(ctx, actor.CompanyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list employees")
	}
	trainings, err := s.trainings.List(ctx, actor.CompanyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list trainings")
	}

	filtered := risk.Filter(trainings, query.Criteria(), trainingAccessors)
	groups := risk.GroupBy(filtered, func(t models.Training) string { return t.EmployeeID })

	keys := make([]string, 0, len(employees))
	byID := make(map[string]models.Employee, len(employees))
	for _, e := range employees {
		keys = append(keys, e.ID)
		byID[e.ID] = e
	}

	out := make([]dto.EmployeeTrainings, 0, len(employees))
	for _, group := range risk.JoinKeys(keys, groups) {
		e := byID[group.Key]
		counts := make(map[models.TrainingStatus]int, len(models.TrainingStatuses))
		for _, status := range models.TrainingStatuses {
			counts[status] = 0
		}
		for _, t := range group.Items {
			counts[t.Status]++
		}
		out = append(out, dto.EmployeeTrainings{
			EmployeeID:     e.ID,
			EmployeeName:   e.FullName,
			DepartmentName: e.DepartmentName,
			StatusCounts:   counts,
			Trainings:      group.Items,
		})
	}
	return out, nil
}

// RisksByDepartment groups filtered assessments by department in first-seen order.
// Departments without matching assessments are omitted.
func (s *HSEReportService) RisksByDepartment(ctx context.Context, actor models.Actor, query models.ListQuery) ([]dto.DepartmentRisks, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	assessments, err := s.risks.List(ctx, actor.CompanyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list risk assessments")
	}
	filtered := risk.Filter(assessments, query.Criteria(), riskAccessors)
	return SummarizeRisksByDepartment(filtered), nil
}

// SummarizeRisksByDepartment aggregates per-department counts, bands and progress.
func SummarizeRisksByDepartment(assessments []models.RiskAssessment) []dto.DepartmentRisks {
	groups := risk.GroupBy(assessments, func(a models.RiskAssessment) string {
		if name := deref(a.DepartmentName); name != "" {
			return name
		}
		return unassignedDepartment
	})

	out := make([]dto.DepartmentRisks, 0, len(groups))
	for _, group := range groups {
		levels := make(map[risk.Level]int, len(risk.Levels))
		for _, level := range risk.Levels {
			levels[level] = 0
		}
		progressSum, open := 0, 0
		for _, a := range group.Items {
			levels[risk.Classify(a.ScoreAfter)]++
			progressSum += a.Progress()
			open += openMeasures(a.Measures)
		}
		out = append(out, dto.DepartmentRisks{
			Department:      group.Key,
			Count:           len(group.Items),
			LevelCounts:     levels,
			AverageProgress: roundDiv(progressSum, len(group.Items)),
			OpenMeasures:    open,
		})
	}
	return out
}

// IncidentsByStatus groups filtered incidents by status in first-seen order.
func (s *HSEReportService) IncidentsByStatus(ctx context.Context, actor models.Actor, query models.ListQuery) ([]dto.IncidentStatusGroup, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	incidents, err := s.incidents.List(ctx, actor.CompanyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list incidents")
	}
	filtered := risk.Filter(incidents, query.Criteria(), incidentAccessors)
	groups := risk.GroupBy(filtered, func(i models.Incident) models.IncidentStatus { return i.Status })

	out := make([]dto.IncidentStatusGroup, 0, len(groups))
	for _, group := range groups {
		out = append(out, dto.IncidentStatusGroup{Status: group.Key, Count: len(group.Items), Incidents: group.Items})
	}
	return out, nil
}

// roundDiv divides rounding half up; zero divisors yield 0.
func roundDiv(sum, n int) int {
	if n == 0 {
		return 0
	}
	return (2*sum + n) / (2 * n)
}
