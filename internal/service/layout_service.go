package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/models"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type layoutRepository interface {
	Get(ctx context.Context, companyID, userID, key string) (*models.Layout, error)
	Upsert(ctx context.Context, l *models.Layout) error
}

var layoutKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

// LayoutService stores opaque layout blobs per company, user and key. Payloads are never interpreted.
type LayoutService struct {
	repo     layoutRepository
	maxBytes int
	logger   *zap.Logger
}

// NewLayoutService constructs a LayoutService. maxBytes <= 0 falls back to 64 KiB.
func NewLayoutService(repo layoutRepository, maxBytes int, logger *zap.Logger) *LayoutService {
	if maxBytes <= 0 {
		maxBytes = 64 * 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LayoutService{repo: repo, maxBytes: maxBytes, logger: logger}
}

// Get returns the caller's layout stored under key.
func (s *LayoutService) Get(ctx context.Context, actor models.Actor, key string) (*models.Layout, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	key, err := normalizeLayoutKey(key)
	if err != nil {
		return nil, err
	}
	layout, err := s.repo.Get(ctx, actor.CompanyID, actor.UserID, key)
	if err != nil {
		return nil, lookupError(err, "layout not found", "failed to load layout")
	}
	return layout, nil
}

// Put replaces the caller's layout under key with payload.
func (s *LayoutService) Put(ctx context.Context, actor models.Actor, key string, payload []byte) (*models.Layout, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	key, err := normalizeLayoutKey(key)
	if err != nil {
		return nil, err
	}
	if len(payload) > s.maxBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("layout exceeds %d bytes", s.maxBytes))
	}
	if len(strings.TrimSpace(string(payload))) == 0 || !json.Valid(payload) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "layout must be valid JSON")
	}
	layout := &models.Layout{
		CompanyID: actor.CompanyID,
		UserID:    actor.UserID,
		Key:       key,
		Payload:   types.JSONText(payload),
	}
	if err := s.repo.Upsert(ctx, layout); err != nil {
		return nil, appErrors.Internal(err, "failed to save layout")
	}
	s.logger.Debug("layout saved", zap.String("company_id", actor.CompanyID), zap.String("key", key), zap.Int("bytes", len(payload)))
	return layout, nil
}

func normalizeLayoutKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !layoutKeyPattern.MatchString(key) {
		return "", appErrors.Clone(appErrors.ErrValidation, "layout key must be 1-64 characters of a-z, 0-9, '.', '_' or '-'")
	}
	return key, nil
}
