package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hse-api/internal/dto"
	"github.com/noah-isme/hse-api/internal/middleware"
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/pkg/response"
)

type groupedReportService interface {
	TrainingsByEmployee(ctx context.Context, actor models.Actor, query models.ListQuery) ([]dto.EmployeeTrainings, error)
	RisksByDepartment(ctx context.Context, actor models.Actor, query models.ListQuery) ([]dto.DepartmentRisks, error)
	IncidentsByStatus(ctx context.Context, actor models.Actor, query models.ListQuery) ([]dto.IncidentStatusGroup, error)
}

// HSEReportHandler serves the grouped JSON reports.
type HSEReportHandler struct {
	service groupedReportService
}

// NewHSEReportHandler constructs the handler.
func NewHSEReportHandler(svc groupedReportService) *HSEReportHandler {
	return &HSEReportHandler{service: svc}
}

// TrainingsByEmployee godoc
// @Summary Trainings grouped by employee
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param search query string false "Free text"
// @Param department query string false "Department name"
// @Success 200 {object} response.Envelope
// @Router /reports/trainings-by-employee [get]
func (h *HSEReportHandler) TrainingsByEmployee(c *gin.Context) {
	rows, err := h.service.TrainingsByEmployee(c.Request.Context(), middleware.Actor(c), listQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// RisksByDepartment godoc
// @Summary Risk assessments grouped by department
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/risks-by-department [get]
func (h *HSEReportHandler) RisksByDepartment(c *gin.Context) {
	rows, err := h.service.RisksByDepartment(c.Request.Context(), middleware.Actor(c), listQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// IncidentsByStatus godoc
// @Summary Incidents grouped by status
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/incidents-by-status [get]
func (h *HSEReportHandler) IncidentsByStatus(c *gin.Context) {
	rows, err := h.service.IncidentsByStatus(c.Request.Context(), middleware.Actor(c), listQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}
