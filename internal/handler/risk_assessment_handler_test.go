package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hse-api/internal/dto"
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/service"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

type fakeRiskService struct {
	lastActor   models.Actor
	lastQuery   models.ListQuery
	lastApprove service.ApproveRequest
	lastCreate  service.RiskAssessmentRequest
	view        *dto.RiskAssessmentView
	err         error
	deletedID   string
}

func (f *fakeRiskService) List(_ context.Context, actor models.Actor, query models.ListQuery) ([]dto.RiskAssessmentView, *models.Pagination, error) {
	f.lastActor = actor
	f.lastQuery = query
	if f.err != nil {
		return nil, nil, f.err
	}
	return []dto.RiskAssessmentView{*f.view}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakeRiskService) Get(_ context.Context, actor models.Actor, _ string) (*dto.RiskAssessmentView, error) {
	f.lastActor = actor
	return f.view, f.err
}

func (f *fakeRiskService) Create(_ context.Context, actor models.Actor, req service.RiskAssessmentRequest) (*dto.RiskAssessmentView, error) {
	f.lastActor = actor
	f.lastCreate = req
	return f.view, f.err
}

func (f *fakeRiskService) Update(_ context.Context, _ models.Actor, _ string, _ service.RiskAssessmentRequest) (*dto.RiskAssessmentView, error) {
	return f.view, f.err
}

func (f *fakeRiskService) Delete(_ context.Context, _ models.Actor, id string) error {
	f.deletedID = id
	return f.err
}

func (f *fakeRiskService) Approve(_ context.Context, _ models.Actor, _ string, req service.ApproveRequest) (*dto.RiskAssessmentView, error) {
	f.lastApprove = req
	return f.view, f.err
}

func (f *fakeRiskService) UpdateMeasureStatus(_ context.Context, _ models.Actor, _ string, _ service.MeasureStatusRequest) (*dto.MeasureStatusResult, error) {
	return &dto.MeasureStatusResult{Updated: 2, Progress: 50}, f.err
}

func (f *fakeRiskService) Matrix(context.Context, models.Actor) (*dto.RiskMatrix, error) {
	return &dto.RiskMatrix{}, f.err
}

func sampleView() *dto.RiskAssessmentView {
	return &dto.RiskAssessmentView{RiskAssessment: models.RiskAssessment{ID: "ra-1", Title: "Forklift traffic"}}
}

func TestRiskAssessmentHandlerListPassesQueryAndPagination(t *testing.T) {
	svc := &fakeRiskService{view: sampleView()}
	h := NewRiskAssessmentHandler(svc)

	c, w := newGinContext(http.MethodGet, "/risk-assessments?status=approved&search=fork", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "company-1", svc.lastActor.CompanyID)
	assert.Equal(t, "user-1", svc.lastActor.UserID)
	assert.Equal(t, "fork", svc.lastQuery.Search)
	assert.Equal(t, "approved", svc.lastQuery.Selections["status"])

	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Len(t, env.Data, 1)
	assert.EqualValues(t, 1, env.Pagination["total_count"])
}

func TestRiskAssessmentHandlerCreateRejectsMalformedJSON(t *testing.T) {
	svc := &fakeRiskService{view: sampleView()}
	h := NewRiskAssessmentHandler(svc)

	c, w := newGinContext(http.MethodPost, "/risk-assessments", []byte(`{"title":`))
	h.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "VALIDATION_ERROR", env.Error["code"])
}

func TestRiskAssessmentHandlerCreate(t *testing.T) {
	svc := &fakeRiskService{view: sampleView()}
	h := NewRiskAssessmentHandler(svc)

	body := `{"title":"Forklift traffic","hazard_type":"mechanical","probability_before":4,"severity_before":5,"probability_after":2,"severity_after":4}`
	c, w := newGinContext(http.MethodPost, "/risk-assessments", []byte(body))
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 4, svc.lastCreate.ProbabilityBefore)
	assert.Equal(t, models.HazardType("mechanical"), svc.lastCreate.HazardType)
}

func TestRiskAssessmentHandlerApproveWithoutBody(t *testing.T) {
	svc := &fakeRiskService{view: sampleView()}
	r := newRouter(http.MethodPost, "/risk-assessments/:id/approve", NewRiskAssessmentHandler(svc).Approve)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/risk-assessments/ra-1/approve", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.lastApprove.Comment)
}

func TestRiskAssessmentHandlerApproveWithComment(t *testing.T) {
	svc := &fakeRiskService{view: sampleView()}
	r := newRouter(http.MethodPost, "/risk-assessments/:id/approve", NewRiskAssessmentHandler(svc).Approve)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/risk-assessments/ra-1/approve", strings.NewReader(`{"comment":"ok to proceed"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok to proceed", svc.lastApprove.Comment)
}

func TestRiskAssessmentHandlerMapsServiceErrors(t *testing.T) {
	svc := &fakeRiskService{err: appErrors.Clone(appErrors.ErrConflict, "already approved")}
	r := newRouter(http.MethodPost, "/risk-assessments/:id/approve", NewRiskAssessmentHandler(svc).Approve)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/risk-assessments/ra-1/approve", nil))

	require.Equal(t, http.StatusConflict, w.Code)
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "already approved", env.Error["message"])
}

func TestRiskAssessmentHandlerDelete(t *testing.T) {
	svc := &fakeRiskService{}
	r := newRouter(http.MethodDelete, "/risk-assessments/:id", NewRiskAssessmentHandler(svc).Delete)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/risk-assessments/ra-9", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "ra-9", svc.deletedID)
}

func TestRiskAssessmentHandlerMeasureStatus(t *testing.T) {
	svc := &fakeRiskService{}
	h := NewRiskAssessmentHandler(svc)

	c, w := newGinContext(http.MethodPatch, "/risk-assessments/ra-1/measures/status", []byte(`{"measure_ids":["m1","m2"],"status":"done"}`))
	h.UpdateMeasureStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	data := env.Data.(map[string]interface{})
	assert.EqualValues(t, 50, data["progress"])
}
