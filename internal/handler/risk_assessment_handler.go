package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hse-api/internal/dto"
	"github.com/noah-isme/hse-api/internal/middleware"
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/service"
	"github.com/noah-isme/hse-api/pkg/response"
)

type riskAssessmentService interface {
	List(ctx context.Context, actor models.Actor, query models.ListQuery) ([]dto.RiskAssessmentView, *models.Pagination, error)
	Get(ctx context.Context, actor models.Actor, id string) (*dto.RiskAssessmentView, error)
	Create(ctx context.Context, actor models.Actor, req service.RiskAssessmentRequest) (*dto.RiskAssessmentView, error)
	Update(ctx context.Context, actor models.Actor, id string, req service.RiskAssessmentRequest) (*dto.RiskAssessmentView, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Approve(ctx context.Context, actor models.Actor, id string, req service.ApproveRequest) (*dto.RiskAssessmentView, error)
	UpdateMeasureStatus(ctx context.Context, actor models.Actor, id string, req service.MeasureStatusRequest) (*dto.MeasureStatusResult, error)
	Matrix(ctx context.Context, actor models.Actor) (*dto.RiskMatrix, error)
}

// RiskAssessmentHandler exposes risk assessment endpoints.
type RiskAssessmentHandler struct {
	service riskAssessmentService
}

// NewRiskAssessmentHandler constructs the handler.
func NewRiskAssessmentHandler(svc riskAssessmentService) *RiskAssessmentHandler {
	return &RiskAssessmentHandler{service: svc}
}

// List godoc
// @Summary List risk assessments
// @Description Filter by free text, date range (assessed_on) and category selections
// @Tags Risk Assessments
// @Produce json
// @Security BearerAuth
// @Param search query string false "Free text"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param status query string false "draft, pending_approval or approved"
// @Param department query string false "Department name"
// @Param hazard_type query string false "Hazard type"
// @Param risk_level query string false "Residual risk level"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /risk-assessments [get]
func (h *RiskAssessmentHandler) List(c *gin.Context) {
	items, pagination, err := h.service.List(c.Request.Context(), middleware.Actor(c), listQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get risk assessment
// @Tags Risk Assessments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /risk-assessments/{id} [get]
func (h *RiskAssessmentHandler) Get(c *gin.Context) {
	view, err := h.service.Get(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Create godoc
// @Summary Create risk assessment
// @Tags Risk Assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.RiskAssessmentRequest true "Assessment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /risk-assessments [post]
func (h *RiskAssessmentHandler) Create(c *gin.Context) {
	var req service.RiskAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.service.Create(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Update godoc
// @Summary Update risk assessment
// @Description Overwrites the assessment and reconciles its measures
// @Tags Risk Assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assessment ID"
// @Param payload body service.RiskAssessmentRequest true "Assessment"
// @Success 200 {object} response.Envelope
// @Router /risk-assessments/{id} [put]
func (h *RiskAssessmentHandler) Update(c *gin.Context) {
	var req service.RiskAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.service.Update(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Delete godoc
// @Summary Delete risk assessment
// @Tags Risk Assessments
// @Security BearerAuth
// @Param id path string true "Assessment ID"
// @Success 204
// @Router /risk-assessments/{id} [delete]
func (h *RiskAssessmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve risk assessment
// @Tags Risk Assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assessment ID"
// @Param payload body service.ApproveRequest false "Comment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /risk-assessments/{id}/approve [post]
func (h *RiskAssessmentHandler) Approve(c *gin.Context) {
	var req service.ApproveRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	view, err := h.service.Approve(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// UpdateMeasureStatus godoc
// @Summary Bulk update measure status
// @Tags Risk Assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assessment ID"
// @Param payload body service.MeasureStatusRequest true "Measures and status"
// @Success 200 {object} response.Envelope
// @Router /risk-assessments/{id}/measures/status [patch]
func (h *RiskAssessmentHandler) UpdateMeasureStatus(c *gin.Context) {
	var req service.MeasureStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.UpdateMeasureStatus(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Matrix godoc
// @Summary Risk matrix
// @Description 5x5 probability by severity counts before and after measures
// @Tags Risk Assessments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /risk-assessments/matrix [get]
func (h *RiskAssessmentHandler) Matrix(c *gin.Context) {
	matrix, err := h.service.Matrix(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, matrix)
}
