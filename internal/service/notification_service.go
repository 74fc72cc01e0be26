package service

import (
	"context"
	"fmt"
	"html"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/pkg/jobs"
	"github.com/noah-isme/hse-api/pkg/notify"
)

const jobTypeEmail = "email"

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// NotificationService sends transactional emails on a background queue.
// Delivery failures are logged and never reach the caller.
type NotificationService struct {
	sender notify.Sender
	queue  jobEnqueuer
	logger *zap.Logger
}

// NewNotificationService builds the service; call AttachQueue before notifying.
func NewNotificationService(sender notify.Sender, logger *zap.Logger) *NotificationService {
	if sender == nil {
		sender = notify.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{sender: sender, logger: logger}
}

// AttachQueue sets the queue that runs Handle.
func (s *NotificationService) AttachQueue(q jobEnqueuer) {
	s.queue = q
}

// Handle is the queue handler delivering one email.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(notify.Email)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	return s.sender.Send(ctx, msg)
}

// RiskApproved tells the line manager that an assessment was approved.
func (s *NotificationService) RiskApproved(ctx context.Context, a models.RiskAssessment, approver string) {
	if a.LineManagerEmail == nil || *a.LineManagerEmail == "" {
		s.logger.Debug("no line manager email, skipping approval notification", zap.String("assessment_id", a.ID))
		return
	}
	body := fmt.Sprintf(
		"<p>The risk assessment <strong>%s</strong> was approved by %s.</p><p>Residual risk: %s (score %d). Open measures: %d.</p>",
		html.EscapeString(a.Title), html.EscapeString(approver), a.RiskLevelAfter, a.ScoreAfter, openMeasures(a.Measures),
	)
	s.enqueue(notify.Email{
		To:      []string{*a.LineManagerEmail},
		Subject: "Risk assessment approved: " + a.Title,
		HTML:    body,
	})
}

func (s *NotificationService) enqueue(msg notify.Email) {
	if s.queue == nil {
		s.logger.Warn("notification queue not attached, dropping email", zap.Strings("to", msg.To))
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeEmail, Payload: msg}); err != nil {
		s.logger.Warn("failed to enqueue notification", zap.Strings("to", msg.To), zap.Error(err))
	}
}

func openMeasures(measures []models.RiskMeasure) int {
	open := 0
	for _, m := range measures {
		if !m.Status.Terminal() {
			open++
		}
	}
	return open
}
