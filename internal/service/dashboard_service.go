package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/hse-api/internal/dto"
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/risk"
	"github.com/noah-isme/hse-api/pkg/cache"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type dashboardRiskSource interface {
	List(ctx context.Context, companyID string) ([]models.RiskAssessment, error)
}

type dashboardIncidentSource interface {
	List(ctx context.Context, companyID string) ([]models.Incident, error)
}

type dashboardInvestigationSource interface {
	CountOpen(ctx context.Context, companyID string) (int, error)
}

type dashboardTrainingSource interface {
	ListExpiring(ctx context.Context, companyID string, from, to time.Time) ([]models.Training, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL           time.Duration
	ExpiringWithinDays int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Risks          dashboardRiskSource
	Incidents      dashboardIncidentSource
	Investigations dashboardInvestigationSource
	Trainings      dashboardTrainingSource
	Cache          *CacheService
	Metrics        *MetricsService
	Logger         *zap.Logger
	Config         DashboardServiceConfig
}

// DashboardService composes the per-tenant HSE overview and caches its incident and training
// sections under dash:<company>.
type DashboardService struct {
	risks          dashboardRiskSource
	incidents      dashboardIncidentSource
	investigations dashboardInvestigationSource
	trainings      dashboardTrainingSource
	cache          *CacheService
	metrics        *MetricsService
	logger         *zap.Logger
	now            func() time.Time
	cfg            DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.ExpiringWithinDays <= 0 {
		cfg.ExpiringWithinDays = 30
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		risks:          params.Risks,
		incidents:      params.Incidents,
		investigations: params.Investigations,
		trainings:      params.Trainings,
		cache:          params.Cache,
		metrics:        params.Metrics,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
		cfg:            cfg,
	}
}

// DashboardKey is the cache key of a tenant summary.
func DashboardKey(companyID string) string {
	return cache.Key("dash", companyID)
}

// Summary returns the tenant overview and whether it was served from cache.
// The risk section is derived from measures and is rebuilt on every call, so only the
// incident and training sections are ever read from the cache.
func (s *DashboardService) Summary(ctx context.Context, actor models.Actor) (*dto.DashboardSummary, bool, error) {
	if err := requireTenant(actor); err != nil {
		return nil, false, err
	}
	key := DashboardKey(actor.CompanyID)

	var cached dto.DashboardSummary
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		risks, err := s.riskSummary(ctx, actor.CompanyID)
		if err != nil {
			return nil, false, err
		}
		cached.Risks = risks
		return &cached, true, nil
	}

	summary, err := s.compose(ctx, actor.CompanyID)
	if err != nil {
		return nil, false, err
	}
	stored := *summary
	stored.Risks = dto.DashboardRisks{}
	if err := s.cache.Set(ctx, key, stored, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
	return summary, false, nil
}

func (s *DashboardService) riskSummary(ctx context.Context, companyID string) (dto.DashboardRisks, error) {
	defer s.observe("dashboard_risks", time.Now())
	assessments, err := s.risks.List(ctx, companyID)
	if err != nil {
		return dto.DashboardRisks{}, appErrors.Internal(err, "failed to load dashboard")
	}
	return SummarizeRisks(assessments, s.now()), nil
}

// Invalidate drops the cached summary of a tenant.
func (s *DashboardService) Invalidate(ctx context.Context, companyID string) {
	if companyID == "" {
		return
	}
	_ = s.cache.Delete(ctx, DashboardKey(companyID))
}

func (s *DashboardService) compose(ctx context.Context, companyID string) (*dto.DashboardSummary, error) {
	now := s.now()
	var (
		assessments  []models.RiskAssessment
		incidents    []models.Incident
		openInvest   int
		expiring     []models.Training
		expiringFrom = startOfDay(now)
		expiringTo   = expiringFrom.AddDate(0, 0, s.cfg.ExpiringWithinDays)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer s.observe("dashboard_risks", time.Now())
		var err error
		assessments, err = s.risks.List(gctx, companyID)
		return err
	})
	g.Go(func() error {
		defer s.observe("dashboard_incidents", time.Now())
		var err error
		incidents, err = s.incidents.List(gctx, companyID)
		return err
	})
	if s.investigations != nil {
		g.Go(func() error {
			defer s.observe("dashboard_investigations", time.Now())
			var err error
			openInvest, err = s.investigations.CountOpen(gctx, companyID)
			return err
		})
	}
	if s.trainings != nil {
		g.Go(func() error {
			defer s.observe("dashboard_trainings", time.Now())
			var err error
			expiring, err = s.trainings.ListExpiring(gctx, companyID, expiringFrom, expiringTo)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, appErrors.Internal(err, "failed to load dashboard")
	}
	if expiring == nil {
		expiring = []models.Training{}
	}

	return &dto.DashboardSummary{
		CompanyID:   companyID,
		GeneratedAt: now,
		Risks:       SummarizeRisks(assessments, now),
		Incidents:   summarizeIncidents(incidents, openInvest),
		Trainings: dto.DashboardTrainings{
			ExpiringWithinDays: s.cfg.ExpiringWithinDays,
			Expiring:           expiring,
		},
	}, nil
}

func (s *DashboardService) observe(label string, start time.Time) {
	s.metrics.ObserveDBQuery(label, time.Since(start))
}

// SummarizeRisks counts assessments per band and status and aggregates all measures of the tenant.
func SummarizeRisks(assessments []models.RiskAssessment, now time.Time) dto.DashboardRisks {
	out := dto.DashboardRisks{
		Total:         len(assessments),
		ByLevelBefore: zeroLevels(),
		ByLevelAfter:  zeroLevels(),
		ByStatus: map[models.AssessmentStatus]int{
			models.AssessmentDraft:    0,
			models.AssessmentApproved: 0,
		},
	}
	var measures []models.RiskMeasure
	for _, a := range assessments {
		out.ByLevelBefore[risk.Classify(a.ScoreBefore)]++
		out.ByLevelAfter[risk.Classify(a.ScoreAfter)]++
		out.ByStatus[a.Status]++
		for _, m := range a.Measures {
			if m.Overdue(now) {
				out.OverdueMeasures++
			}
		}
		measures = append(measures, a.Measures...)
	}
	out.MeasureProgress = risk.ProgressOf(measures, func(m models.RiskMeasure) risk.MeasureStatus { return m.Status })
	return out
}

func summarizeIncidents(incidents []models.Incident, openInvestigations int) dto.DashboardIncidents {
	byStatus := make(map[models.IncidentStatus]int, len(models.IncidentStatuses))
	for _, status := range models.IncidentStatuses {
		byStatus[status] = 0
	}
	for _, inc := range incidents {
		byStatus[inc.Status]++
	}
	return dto.DashboardIncidents{
		Total:              len(incidents),
		ByStatus:           byStatus,
		OpenInvestigations: openInvestigations,
	}
}

func zeroLevels() map[risk.Level]int {
	out := make(map[risk.Level]int, len(risk.Levels))
	for _, l := range risk.Levels {
		out[l] = 0
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
