package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hse-api/internal/dto"
	"github.com/noah-isme/hse-api/internal/models"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type fakeDashboardSrv struct {
	resp      *dto.DashboardSummary
	hit       bool
	err       error
	lastActor models.Actor
}

func (f *fakeDashboardSrv) Summary(_ context.Context, actor models.Actor) (*dto.DashboardSummary, bool, error) {
	f.lastActor = actor
	return f.resp, f.hit, f.err
}

func TestDashboardHandlerSummaryCacheHit(t *testing.T) {
	srv := &fakeDashboardSrv{resp: &dto.DashboardSummary{CompanyID: "company-1"}, hit: true}
	h := NewDashboardHandler(srv)

	c, w := newGinContext(http.MethodGet, "/dashboard", nil)
	h.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, env.Meta, "processing_time_ms")
	assert.Equal(t, "company-1", env.Data.(map[string]interface{})["company_id"])
	assert.Equal(t, "company-1", srv.lastActor.CompanyID)
}

func TestDashboardHandlerSummaryError(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardSrv{err: appErrors.Clone(appErrors.ErrInternal, "failed to load dashboard")})

	c, w := newGinContext(http.MethodGet, "/dashboard", nil)
	h.Summary(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDashboardHandlerWithoutService(t *testing.T) {
	h := NewDashboardHandler(nil)

	c, w := newGinContext(http.MethodGet, "/dashboard", nil)
	h.Summary(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
