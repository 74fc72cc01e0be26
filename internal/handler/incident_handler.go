package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hse-api/internal/middleware"
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/service"
	"github.com/noah-isme/hse-api/pkg/response"
)

type incidentService interface {
	List(ctx context.Context, actor models.Actor, query models.ListQuery) ([]models.Incident, *models.Pagination, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Incident, error)
	Create(ctx context.Context, actor models.Actor, req service.IncidentRequest) (*models.Incident, error)
	Update(ctx context.Context, actor models.Actor, id string, req service.IncidentRequest) (*models.Incident, error)
	Close(ctx context.Context, actor models.Actor, id string) (*models.Incident, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

// IncidentHandler exposes incident endpoints.
type IncidentHandler struct {
	service incidentService
}

// NewIncidentHandler constructs the handler.
func NewIncidentHandler(svc incidentService) *IncidentHandler {
	return &IncidentHandler{service: svc}
}

// List godoc
// @Summary List incidents
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param search query string false "Free text"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param status query string false "Status"
// @Param type query string false "Incident type"
// @Param severity query string false "Severity"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /incidents [get]
func (h *IncidentHandler) List(c *gin.Context) {
	incidents, pagination, err := h.service.List(c.Request.Context(), middleware.Actor(c), listQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, incidents, pagination)
}

// Get godoc
// @Summary Get incident
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id} [get]
func (h *IncidentHandler) Get(c *gin.Context) {
	incident, err := h.service.Get(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, incident)
}

// Create godoc
// @Summary Report incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.IncidentRequest true "Incident"
// @Success 201 {object} response.Envelope
// @Router /incidents [post]
func (h *IncidentHandler) Create(c *gin.Context) {
	var req service.IncidentRequest
	if !bindJSON(c, &req) {
		return
	}
	incident, err := h.service.Create(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, incident)
}

// Update godoc
// @Summary Update incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param payload body service.IncidentRequest true "Incident"
// @Success 200 {object} response.Envelope
// @Router /incidents/{id} [put]
func (h *IncidentHandler) Update(c *gin.Context) {
	var req service.IncidentRequest
	if !bindJSON(c, &req) {
		return
	}
	incident, err := h.service.Update(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, incident)
}

// Close godoc
// @Summary Close incident
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /incidents/{id}/close [post]
func (h *IncidentHandler) Close(c *gin.Context) {
	incident, err := h.service.Close(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, incident)
}

// Delete godoc
// @Summary Delete incident
// @Tags Incidents
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 204
// @Router /incidents/{id} [delete]
func (h *IncidentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
