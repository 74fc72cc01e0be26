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

type trainingService interface {
	List(ctx context.Context, actor models.Actor, query models.ListQuery) ([]models.Training, *models.Pagination, error)
	Create(ctx context.Context, actor models.Actor, req service.TrainingRequest) (*models.Training, error)
	Update(ctx context.Context, actor models.Actor, id string, req service.TrainingRequest) (*models.Training, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

// TrainingHandler exposes training records.
type TrainingHandler struct {
	service trainingService
}

// NewTrainingHandler constructs the handler.
func NewTrainingHandler(svc trainingService) *TrainingHandler {
	return &TrainingHandler{service: svc}
}

// List godoc
// @Summary List trainings
// @Tags Trainings
// @Produce json
// @Security BearerAuth
// @Param search query string false "Free text"
// @Param status query string false "scheduled, completed or expired"
// @Param department query string false "Department name"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /trainings [get]
func (h *TrainingHandler) List(c *gin.Context) {
	items, pagination, err := h.service.List(c.Request.Context(), middleware.Actor(c), listQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Create godoc
// @Summary Record training
// @Tags Trainings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.TrainingRequest true "Training"
// @Success 201 {object} response.Envelope
// @Router /trainings [post]
func (h *TrainingHandler) Create(c *gin.Context) {
	var req service.TrainingRequest
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
// @Summary Update training
// @Tags Trainings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Training ID"
// @Param payload body service.TrainingRequest true "Training"
// @Success 200 {object} response.Envelope
// @Router /trainings/{id} [put]
func (h *TrainingHandler) Update(c *gin.Context) {
	var req service.TrainingRequest
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
// @Summary Delete training
// @Tags Trainings
// @Security BearerAuth
// @Param id path string true "Training ID"
// @Success 204
// @Router /trainings/{id} [delete]
func (h *TrainingHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
