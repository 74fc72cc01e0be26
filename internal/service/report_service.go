package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/dto"
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/repository"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
	"github.com/noah-isme/hse-api/pkg/jobs"
	"github.com/noah-isme/hse-api/pkg/storage"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

type exportFiles interface {
	ParseToken(token string, allowExpired bool) (storage.Token, error)
	Open(key string) (*os.File, error)
	Delete(key string) error
	Cleanup(ttl time.Duration) ([]string, error)
}

// ReportService orchestrates export job lifecycle management.
type ReportService struct {
	repo     reportJobStore
	queue    jobDispatcher
	files    exportFiles
	validate *validator.Validate
	logger   *zap.Logger
	cfg      ReportServiceConfig
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, queue jobDispatcher, files exportFiles, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	validate, logger = defaults(validate, logger)
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		repo:     repo,
		queue:    queue,
		files:    files,
		validate: validate,
		logger:   logger,
		cfg:      cfg,
	}
}

// CreateJob validates the request, persists a QUEUED job for the tenant and enqueues it.
func (s *ReportService) CreateJob(ctx context.Context, actor models.Actor, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, invalid(err, "invalid report request")
	}
	job := &models.ReportJob{
		CompanyID: actor.CompanyID,
		Type:      req.Type,
		Params:    models.ReportJobParams{CompanyID: actor.CompanyID, Format: req.Format, Query: req.Query},
		Status:    models.ReportStatusQueued,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Internal(err, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		if updateErr := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		}); updateErr != nil {
			s.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		return nil, appErrors.Internal(err, "failed to enqueue report job")
	}
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job metadata of the caller's company.
func (s *ReportService) GetStatus(ctx context.Context, actor models.Actor, id string) (*dto.ReportStatusResponse, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "report job not found", "failed to load report job")
	}
	if job.CompanyID != actor.CompanyID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	resp := &dto.ReportStatusResponse{
		ID:        job.ID,
		Type:      job.Type,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates token against its job row and opens the stored file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	tok, err := s.files.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, tok.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Internal(err, "failed to load report job")
	}
	if job.ResultURL == nil || extractToken(*job.ResultURL) != token {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	if !strings.HasPrefix(tok.Key, job.CompanyID+"/") {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.files.Open(tok.Key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file expired")
		}
		return nil, appErrors.Internal(err, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  path.Base(tok.Key),
		Format:    job.Params.Format,
		ExpiresAt: tok.ExpiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs, e.g. after a process restart.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) int {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued report jobs", zap.Error(err))
		return 0
	}
	recovered := 0
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("failed to requeue pending job", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		recovered++
	}
	if recovered > 0 {
		s.logger.Info("recovered queued report jobs", zap.Int("count", recovered))
	}
	return recovered
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupExpired(ctx, s.cfg.ResultTTL)
			}
		}
	}()
}

// CleanupExpired deletes files of jobs finished before now-ttl, then sweeps orphans on disk.
// It returns the number of removed files.
func (s *ReportService) CleanupExpired(ctx context.Context, ttl time.Duration) int {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	cutoff := time.Now().UTC().Add(-ttl)
	removed := 0
	seen := make(map[string]struct{})
	for {
		batch, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Warn("cleanup list failed", zap.Error(err))
			break
		}
		fresh := 0
		for _, job := range batch {
			if _, ok := seen[job.ID]; ok {
				continue
			}
			seen[job.ID] = struct{}{}
			fresh++
			if job.ResultURL == nil {
				continue
			}
			tok, err := s.files.ParseToken(extractToken(*job.ResultURL), true)
			if err != nil {
				continue
			}
			if err := s.files.Delete(tok.Key); err != nil {
				s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
				continue
			}
			removed++
		}
		if len(batch) < 100 || fresh == 0 {
			break
		}
	}
	swept, err := s.files.Cleanup(ttl)
	if err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
	}
	return removed + len(swept)
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

type exportObserver interface {
	ObserveExport(reportType, format, outcome string, duration time.Duration)
}

// ReportWorker bridges queue jobs to ExportService.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	observer   exportObserver
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker. maxRetries must match the queue's MaxRetries.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// WithObserver reports every export attempt to o.
func (w *ReportWorker) WithObserver(o exportObserver) *ReportWorker {
	w.observer = o
	return w
}

func (w *ReportWorker) observe(record *models.ReportJob, outcome string, started time.Time) {
	if w.observer == nil {
		return
	}
	w.observer.ObserveExport(string(record.Type), string(record.Params.Format), outcome, time.Since(started))
}

// Handle processes a queue job: PROCESSING, then FINISHED, or QUEUED again while retries remain, else FAILED.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			w.logger.Warn("report job vanished", zap.String("job_id", job.ID))
			return nil
		}
		return err
	}
	if record.Status == models.ReportStatusFinished {
		return nil
	}
	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}
	started := time.Now()
	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			w.observe(record, ExportOutcomeFailed, started)
			failed := models.ReportStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		} else {
			w.observe(record, ExportOutcomeRetried, started)
			queued := models.ReportStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Warn("failed to mark job queued", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		}
		return err
	}
	w.observe(record, ExportOutcomeFinished, started)
	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	w.logger.Info("report job finished", zap.String("job_id", job.ID), zap.String("type", string(record.Type)))
	return nil
}
