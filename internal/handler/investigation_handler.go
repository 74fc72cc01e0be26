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

type investigationService interface {
	List(ctx context.Context, actor models.Actor, query models.ListQuery) ([]models.Investigation, *models.Pagination, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Investigation, error)
	Create(ctx context.Context, actor models.Actor, req service.InvestigationRequest) (*models.Investigation, error)
	Update(ctx context.Context, actor models.Actor, id string, req service.InvestigationRequest) (*models.Investigation, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

// InvestigationHandler exposes incident investigation endpoints.
type InvestigationHandler struct {
	service investigationService
}

// NewInvestigationHandler constructs the handler.
func NewInvestigationHandler(svc investigationService) *InvestigationHandler {
	return &InvestigationHandler{service: svc}
}

// List godoc
// @Summary List investigations
// @Tags Investigations
// @Produce json
// @Security BearerAuth
// @Param search query string false "Free text"
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /investigations [get]
func (h *InvestigationHandler) List(c *gin.Context) {
	items, pagination, err := h.service.List(c.Request.Context(), middleware.Actor(c), listQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get investigation
// @Tags Investigations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Investigation ID"
// @Success 200 {object} response.Envelope
// @Router /investigations/{id} [get]
func (h *InvestigationHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Create godoc
// @Summary Open investigation
// @Tags Investigations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.InvestigationRequest true "Investigation"
// @Success 201 {object} response.Envelope
// @Router /investigations [post]
func (h *InvestigationHandler) Create(c *gin.Context) {
	var req service.InvestigationRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.Create(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update investigation
// @Tags Investigations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Investigation ID"
// @Param payload body service.InvestigationRequest true "Investigation"
// @Success 200 {object} response.Envelope
// @Router /investigations/{id} [put]
func (h *InvestigationHandler) Update(c *gin.Context) {
	var req service.InvestigationRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.Update(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Delete godoc
// @Summary Delete investigation
// @Tags Investigations
// @Security BearerAuth
// @Param id path string true "Investigation ID"
// @Success 204
// @Router /investigations/{id} [delete]
func (h *InvestigationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
