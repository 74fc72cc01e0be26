package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/risk"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type memoryCacheRepo struct {
	values  map[string][]byte
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

type countingRiskSource struct {
	items []models.RiskAssessment
	calls int
	err   error
}

func (c *countingRiskSource) List(ctx context.Context, companyID string) ([]models.RiskAssessment, error) {
	c.calls++
	return c.items, c.err
}

type stubOpenInvestigations int

func (s stubOpenInvestigations) CountOpen(ctx context.Context, companyID string) (int, error) {
	return int(s), nil
}

type stubExpiringTrainings struct {
	items    []models.Training
	from, to time.Time
}

func (s *stubExpiringTrainings) ListExpiring(ctx context.Context, companyID string, from, to time.Time) ([]models.Training, error) {
	s.from, s.to = from, to
	return s.items, nil
}

func newDashboardFixture(repo *memoryCacheRepo) (*DashboardService, *countingRiskSource, *stubExpiringTrainings) {
	var tenant []models.RiskAssessment
	for _, a := range sampleAssessments() {
		if a.CompanyID == "c1" {
			tenant = append(tenant, a)
		}
	}
	risks := &countingRiskSource{items: tenant}
	trainings := &stubExpiringTrainings{items: []models.Training{{ID: "t1", Title: "First aid"}}}
	svc := NewDashboardService(DashboardServiceParams{
		Risks:          risks,
		Incidents:      &fakeIncidentRepo{items: sampleIncidents()},
		Investigations: stubOpenInvestigations(2),
		Trainings:      trainings,
		Cache:          NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true),
		Metrics:        NewMetricsService(),
		Config:         DashboardServiceConfig{CacheTTL: time.Minute, ExpiringWithinDays: 30},
	})
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) }
	return svc, risks, trainings
}

func TestDashboardServiceSummaryComposesAndCaches(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc, risks, trainings := newDashboardFixture(repo)
	ctx := context.Background()

	summary, hit, err := svc.Summary(ctx, tenantActor)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "c1", summary.CompanyID)

	assert.Equal(t, 2, summary.Risks.Total)
	assert.Equal(t, 1, summary.Risks.ByLevelBefore[risk.LevelCritical])
	assert.Equal(t, 1, summary.Risks.ByLevelBefore[risk.LevelMedium])
	assert.Equal(t, 1, summary.Risks.ByLevelAfter[risk.LevelMedium])
	assert.Equal(t, 1, summary.Risks.ByLevelAfter[risk.LevelLow])
	assert.Equal(t, 0, summary.Risks.ByLevelAfter[risk.LevelHigh])
	assert.Equal(t, 1, summary.Risks.ByStatus[models.AssessmentDraft])
	assert.Equal(t, 50, summary.Risks.MeasureProgress)

	assert.Equal(t, 3, summary.Incidents.Total)
	assert.Equal(t, 2, summary.Incidents.ByStatus[models.IncidentOpen])
	assert.Equal(t, 0, summary.Incidents.ByStatus[models.IncidentInvestigating])
	assert.Equal(t, 2, summary.Incidents.OpenInvestigations)

	assert.Len(t, summary.Trainings.Expiring, 1)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), trainings.from)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), trainings.to)
	assert.Contains(t, repo.values, "dash:c1")

	again, hit, err := svc.Summary(ctx, tenantActor)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 2, risks.calls)
	assert.Equal(t, summary.Risks, again.Risks)
	assert.Equal(t, summary.Incidents, again.Incidents)
}

func TestDashboardServiceNeverServesCachedProgress(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc, risks, _ := newDashboardFixture(repo)
	ctx := context.Background()

	first, _, err := svc.Summary(ctx, tenantActor)
	require.NoError(t, err)
	require.Equal(t, 50, first.Risks.MeasureProgress)

	var stored map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(repo.values["dash:c1"], &stored))
	assert.JSONEq(t, `{"total":0,"by_level_before":null,"by_level_after":null,"by_status":null,"measure_progress":0,"overdue_measures":0}`, string(stored["risks"]))

	// a measure update whose invalidation never reached the cache
	for i := range risks.items {
		for j := range risks.items[i].Measures {
			risks.items[i].Measures[j].Status = risk.StatusCompleted
		}
	}

	again, hit, err := svc.Summary(ctx, tenantActor)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 100, again.Risks.MeasureProgress)
	assert.Equal(t, first.Incidents, again.Incidents)
}

func TestDashboardServiceInvalidate(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc, risks, _ := newDashboardFixture(repo)
	ctx := context.Background()

	_, _, err := svc.Summary(ctx, tenantActor)
	require.NoError(t, err)

	svc.Invalidate(ctx, "c1")
	assert.Equal(t, []string{"dash:c1"}, repo.deleted)

	_, hit, err := svc.Summary(ctx, tenantActor)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, risks.calls)
}

func TestDashboardServiceWithoutCache(t *testing.T) {
	risks := &countingRiskSource{}
	svc := NewDashboardService(DashboardServiceParams{
		Risks:     risks,
		Incidents: &fakeIncidentRepo{},
	})

	summary, hit, err := svc.Summary(context.Background(), tenantActor)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0, summary.Risks.MeasureProgress)
	assert.NotNil(t, summary.Trainings.Expiring)

	svc.Invalidate(context.Background(), "c1")
}

func TestDashboardServiceErrors(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{
		Risks:     &countingRiskSource{err: errors.New("db down")},
		Incidents: &fakeIncidentRepo{},
	})

	_, _, err := svc.Summary(context.Background(), tenantActor)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, err))

	_, _, err = svc.Summary(context.Background(), models.Actor{Role: models.RoleSuperAdmin})
	assert.Equal(t, "TENANT_REQUIRED", errorCode(t, err))
}

func TestSummarizeRisksCountsOverdueMeasures(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	past := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	summary := SummarizeRisks([]models.RiskAssessment{{
		ScoreBefore: 25, ScoreAfter: 4, Status: models.AssessmentApproved,
		Measures: []models.RiskMeasure{
			{Status: risk.StatusOpen, DueOn: &past},
			{Status: risk.StatusCompleted, DueOn: &past},
			{Status: risk.StatusOpen, DueOn: &today},
			{Status: risk.StatusOpen},
		},
	}}, now)

	assert.Equal(t, 1, summary.OverdueMeasures)
	assert.Equal(t, 25, summary.MeasureProgress)
	assert.Equal(t, 1, summary.ByStatus[models.AssessmentApproved])
}
