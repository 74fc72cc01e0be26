package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/dto"
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/repository"
	"github.com/noah-isme/hse-api/pkg/jobs"
)

type reportRepoStub struct {
	jobs map[string]*models.ReportJob
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{}}
}

func (r *reportRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *reportRepoStub) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *reportRepoStub) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *reportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *reportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	var finished []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			finished = append(finished, *job)
		}
	}
	return finished, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newReportServiceForTest(t *testing.T) (*ReportService, *reportRepoStub, *queueStub, *ExportService) {
	t.Helper()
	repo := newReportRepoStub()
	queue := &queueStub{}
	exportSvc, _ := newExportServiceForTest(t)
	service := NewReportService(repo, queue, exportSvc, nil, zap.NewNop(), ReportServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
	})
	return service, repo, queue, exportSvc
}

func finishedJob(t *testing.T, repo *reportRepoStub, exportSvc *ExportService) (*models.ReportJob, *ExportResult) {
	t.Helper()
	job := &models.ReportJob{
		ID:        "job-download",
		CompanyID: "c1",
		Type:      models.ReportTypeIncidents,
		Params:    models.ReportJobParams{CompanyID: "c1", Format: models.ReportFormatCSV},
		Status:    models.ReportStatusFinished,
		Progress:  100,
		CreatedBy: "u1",
	}
	repo.jobs[job.ID] = job
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL
	now := time.Now().UTC()
	job.FinishedAt = &now
	return job, result
}

func TestReportServiceCreateJob(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	resp, err := svc.CreateJob(context.Background(), tenantActor, dto.ReportRequest{
		Type:   models.ReportTypeRiskAssessments,
		Format: models.ReportFormatCSV,
		Query:  models.ListQuery{Search: "forklift"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)

	stored := repo.jobs[resp.ID]
	require.NotNil(t, stored)
	assert.Equal(t, "c1", stored.CompanyID)
	assert.Equal(t, "c1", stored.Params.CompanyID)
	assert.Equal(t, "forklift", stored.Params.Query.Search)
	assert.Equal(t, "u1", stored.CreatedBy)
}

func TestReportServiceCreateJobValidation(t *testing.T) {
	svc, _, queue, _ := newReportServiceForTest(t)

	_, err := svc.CreateJob(context.Background(), tenantActor, dto.ReportRequest{Type: "payroll", Format: models.ReportFormatCSV})
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, err))

	_, err = svc.CreateJob(context.Background(), tenantActor, dto.ReportRequest{Type: models.ReportTypeIncidents, Format: "xlsx"})
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, err))

	_, err = svc.CreateJob(context.Background(), models.Actor{UserID: "root", Role: models.RoleSuperAdmin}, dto.ReportRequest{Type: models.ReportTypeIncidents, Format: models.ReportFormatCSV})
	assert.Equal(t, "TENANT_REQUIRED", errorCode(t, err))

	assert.Empty(t, queue.jobs)
}

func TestReportServiceCreateJobEnqueueFailure(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	queue.err = jobs.ErrNotRunning

	_, err := svc.CreateJob(context.Background(), tenantActor, dto.ReportRequest{Type: models.ReportTypeIncidents, Format: models.ReportFormatCSV})
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, err))
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
		require.NotNil(t, job.FinishedAt)
	}
}

func TestReportServiceGetStatusIsTenantScoped(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t)
	msg := "boom"
	repo.jobs["job-1"] = &models.ReportJob{
		ID:           "job-1",
		CompanyID:    "c1",
		Type:         models.ReportTypeIncidents,
		Status:       models.ReportStatusFailed,
		Progress:     100,
		ErrorMessage: &msg,
	}

	resp, err := svc.GetStatus(context.Background(), tenantActor, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, resp.Status)
	assert.Equal(t, models.ReportTypeIncidents, resp.Type)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "boom", *resp.Error)

	other := tenantActor
	other.CompanyID = "c2"
	_, err = svc.GetStatus(context.Background(), other, "job-1")
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))

	_, err = svc.GetStatus(context.Background(), tenantActor, "missing")
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
}

func TestReportServiceResolveDownload(t *testing.T) {
	svc, repo, _, exportSvc := newReportServiceForTest(t)
	_, result := finishedJob(t, repo, exportSvc)

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Contains(t, download.Filename, "incidents_")
	assert.Equal(t, models.ReportFormatCSV, download.Format)
}

func TestReportServiceResolveDownloadRejectsMismatchedToken(t *testing.T) {
	svc, repo, _, exportSvc := newReportServiceForTest(t)
	job, result := finishedJob(t, repo, exportSvc)

	_, err := svc.ResolveDownload(context.Background(), "garbage")
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))

	stale := "/api/v1/exports/other-token"
	job.ResultURL = &stale
	_, err = svc.ResolveDownload(context.Background(), result.Token)
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))

	job.ResultURL = &result.URL
	job.Status = models.ReportStatusProcessing
	_, err = svc.ResolveDownload(context.Background(), result.Token)
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))

	delete(repo.jobs, job.ID)
	_, err = svc.ResolveDownload(context.Background(), result.Token)
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
}

func TestReportServiceRecoverPendingJobs(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	repo.jobs["q1"] = &models.ReportJob{ID: "q1", Type: models.ReportTypeIncidents, Status: models.ReportStatusQueued}
	repo.jobs["f1"] = &models.ReportJob{ID: "f1", Type: models.ReportTypeIncidents, Status: models.ReportStatusFinished}

	assert.Equal(t, 1, svc.RecoverPendingJobs(context.Background()))
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "q1", queue.jobs[0].ID)
}

func TestReportServiceCleanupExpired(t *testing.T) {
	svc, repo, _, exportSvc := newReportServiceForTest(t)
	job, result := finishedJob(t, repo, exportSvc)
	old := time.Now().UTC().Add(-2 * time.Hour)
	job.FinishedAt = &old

	removed := svc.CleanupExpired(context.Background(), time.Hour)
	assert.Equal(t, 1, removed)

	_, err := exportSvc.Open(result.Key)
	assert.Error(t, err)
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func queuedJobRepo() *reportRepoStub {
	return &reportRepoStub{
		jobs: map[string]*models.ReportJob{
			"job-1": {
				ID:        "job-1",
				CompanyID: "c1",
				Type:      models.ReportTypeRiskAssessments,
				Params:    models.ReportJobParams{CompanyID: "c1", Format: models.ReportFormatCSV},
				Status:    models.ReportStatusQueued,
				CreatedBy: "u1",
			},
		},
	}
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	repo := queuedJobRepo()
	exporter := exportStub{result: &ExportResult{URL: "/api/v1/exports/token"}}
	worker := NewReportWorker(repo, exporter, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/exports/token", *job.ResultURL)
	assert.NotNil(t, job.FinishedAt)
}

func TestReportWorkerHandleRequeuesWhileRetriesRemain(t *testing.T) {
	repo := queuedJobRepo()
	worker := NewReportWorker(repo, exportStub{err: errors.New("boom")}, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusQueued, job.Status)
	assert.Equal(t, 0, job.Progress)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "boom", *job.ErrorMessage)
}

func TestReportWorkerHandleFailsAfterLastAttempt(t *testing.T) {
	repo := queuedJobRepo()
	worker := NewReportWorker(repo, exportStub{err: errors.New("boom")}, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusFailed, repo.jobs["job-1"].Status)
	assert.NotNil(t, repo.jobs["job-1"].FinishedAt)
}

type recordingExportObserver struct {
	outcomes []string
}

func (o *recordingExportObserver) ObserveExport(reportType, format, outcome string, _ time.Duration) {
	o.outcomes = append(o.outcomes, reportType+"/"+format+"/"+outcome)
}

func TestReportWorkerReportsOutcomes(t *testing.T) {
	observer := &recordingExportObserver{}
	failing := NewReportWorker(queuedJobRepo(), exportStub{err: errors.New("boom")}, 1, zap.NewNop()).WithObserver(observer)
	require.Error(t, failing.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0}))
	require.Error(t, failing.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1}))

	ok := NewReportWorker(queuedJobRepo(), exportStub{result: &ExportResult{URL: "/x"}}, 1, zap.NewNop()).WithObserver(observer)
	require.NoError(t, ok.Handle(context.Background(), jobs.Job{ID: "job-1"}))

	assert.Equal(t, []string{
		"risk_assessments/csv/retried",
		"risk_assessments/csv/failed",
		"risk_assessments/csv/finished",
	}, observer.outcomes)
}

func TestReportWorkerIgnoresMissingJob(t *testing.T) {
	worker := NewReportWorker(newReportRepoStub(), exportStub{}, 1, zap.NewNop())
	assert.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "gone"}))
}
