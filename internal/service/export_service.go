package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/risk"
	"github.com/noah-isme/hse-api/pkg/export"
	"github.com/noah-isme/hse-api/pkg/storage"
)

type fileStorage interface {
	Save(key string, data []byte) (string, error)
	Open(key string) (*os.File, error)
	Delete(key string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportSources are the tenant data readers an export can draw from.
type ExportSources struct {
	Risks interface {
		Filtered(ctx context.Context, actor models.Actor, query models.ListQuery) ([]models.RiskAssessment, error)
	}
	Incidents interface {
		Filtered(ctx context.Context, actor models.Actor, query models.ListQuery) ([]models.Incident, error)
	}
	Reports *HSEReportService
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	Key       string
	Token     string
	URL       string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ExportService builds report datasets, renders them and stores the files behind signed URLs.
type ExportService struct {
	sources ExportSources
	storage fileStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(sources ExportSources, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		sources: sources,
		storage: store,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Generate builds the dataset of job, renders it in the requested format and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	renderer, err := export.ForFormat(string(job.Params.Format))
	if err != nil {
		return nil, err
	}
	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s_%s.%s", job.Type, s.now().Format("20060102_150405"), renderer.Extension())
	key, err := s.storage.Save(storage.ObjectKey(job.CompanyID, filename), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Sign(job.ID, key)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("export stored", zap.String("job_id", job.ID), zap.String("key", key), zap.Int("rows", len(dataset.Rows)))

	return &ExportResult{
		Key:       key,
		Token:     token,
		URL:       s.DownloadURL(token),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// DownloadURL is the public path serving token.
func (s *ExportService) DownloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/exports/%s", prefix, token)
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.Token, error) {
	return s.signer.Verify(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(key string) (*os.File, error) {
	return s.storage.Open(key)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(key string) error {
	return s.storage.Delete(key)
}

// Cleanup removes files older than ttl, or the configured result TTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, error) {
	actor := models.Actor{UserID: job.CreatedBy, CompanyID: job.CompanyID}
	query := job.Params.Query
	switch job.Type {
	case models.ReportTypeRiskAssessments:
		return s.riskDataset(ctx, actor, query)
	case models.ReportTypeIncidents:
		return s.incidentDataset(ctx, actor, query)
	case models.ReportTypeTrainingsByEmployee:
		return s.trainingDataset(ctx, actor, query)
	case models.ReportTypeRisksByDepartment:
		return s.departmentDataset(ctx, actor, query)
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) riskDataset(ctx context.Context, actor models.Actor, query models.ListQuery) (export.Dataset, error) {
	assessments, err := s.sources.Risks.Filtered(ctx, actor, query)
	if err != nil {
		return export.Dataset{}, err
	}
	dataset := export.Dataset{
		Title:   "Risk assessments",
		Headers: []string{"Title", "Hazard", "Department", "Before", "After", "Status", "Progress (%)", "Assessed On"},
	}
	for _, a := range assessments {
		dataset.AddRow(
			a.Title,
			string(a.HazardType),
			deref(a.DepartmentName),
			fmt.Sprintf("%d %s", a.ScoreBefore, a.RiskLevelBefore),
			fmt.Sprintf("%d %s", a.ScoreAfter, a.RiskLevelAfter),
			string(a.Status),
			strconv.Itoa(a.Progress()),
			deref(risk.DateOf(a.AssessedOn)),
		)
	}
	return dataset, nil
}

func (s *ExportService) incidentDataset(ctx context.Context, actor models.Actor, query models.ListQuery) (export.Dataset, error) {
	incidents, err := s.sources.Incidents.Filtered(ctx, actor, query)
	if err != nil {
		return export.Dataset{}, err
	}
	dataset := export.Dataset{
		Title:   "Incidents",
		Headers: []string{"Title", "Type", "Severity", "Status", "Department", "Assignee", "Occurred On"},
	}
	for _, i := range incidents {
		dataset.AddRow(
			i.Title,
			string(i.Type),
			string(i.Severity),
			string(i.Status),
			deref(i.DepartmentName),
			deref(i.AssigneeName),
			deref(risk.DateOf(i.OccurredOn)),
		)
	}
	return dataset, nil
}

func (s *ExportService) trainingDataset(ctx context.Context, actor models.Actor, query models.ListQuery) (export.Dataset, error) {
	rows, err := s.sources.Reports.TrainingsByEmployee(ctx, actor, query)
	if err != nil {
		return export.Dataset{}, err
	}
	dataset := export.Dataset{
		Title:   "Trainings by employee",
		Headers: []string{"Employee", "Department", "Scheduled", "Completed", "Expired", "Trainings"},
	}
	for _, row := range rows {
		titles := make([]string, 0, len(row.Trainings))
		for _, t := range row.Trainings {
			titles = append(titles, t.Title)
		}
		dataset.AddRow(
			row.EmployeeName,
			deref(row.DepartmentName),
			strconv.Itoa(row.StatusCounts[models.TrainingScheduled]),
			strconv.Itoa(row.StatusCounts[models.TrainingCompleted]),
			strconv.Itoa(row.StatusCounts[models.TrainingExpired]),
			strings.Join(titles, "; "),
		)
	}
	return dataset, nil
}

func (s *ExportService) departmentDataset(ctx context.Context, actor models.Actor, query models.ListQuery) (export.Dataset, error) {
	groups, err := s.sources.Reports.RisksByDepartment(ctx, actor, query)
	if err != nil {
		return export.Dataset{}, err
	}
	dataset := export.Dataset{
		Title:   "Risks by department",
		Headers: []string{"Department", "Assessments", "Low", "Medium", "High", "Critical", "Avg Progress (%)", "Open Measures"},
	}
	for _, g := range groups {
		dataset.AddRow(
			g.Department,
			strconv.Itoa(g.Count),
			strconv.Itoa(g.LevelCounts[risk.LevelLow]),
			strconv.Itoa(g.LevelCounts[risk.LevelMedium]),
			strconv.Itoa(g.LevelCounts[risk.LevelHigh]),
			strconv.Itoa(g.LevelCounts[risk.LevelCritical]),
			strconv.Itoa(g.AverageProgress),
			strconv.Itoa(g.OpenMeasures),
		)
	}
	return dataset, nil
}
