package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hse-api/internal/middleware"
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/service"
	"github.com/noah-isme/hse-api/pkg/response"
)

type departmentService interface {
	List(ctx context.Context, actor models.Actor) ([]models.Department, error)
	Create(ctx context.Context, actor models.Actor, req service.DepartmentRequest) (*models.Department, error)
	Update(ctx context.Context, actor models.Actor, id string, req service.DepartmentRequest) (*models.Department, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

// DepartmentHandler exposes department endpoints.
type DepartmentHandler struct {
	service departmentService
}

// NewDepartmentHandler constructs the handler.
func NewDepartmentHandler(svc departmentService) *DepartmentHandler {
	return &DepartmentHandler{service: svc}
}

// List godoc
// @Summary List departments
// @Tags Departments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	departments, err := h.service.List(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, departments)
}

// Create godoc
// @Summary Create department
// @Tags Departments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.DepartmentRequest true "Department"
// @Success 201 {object} response.Envelope
// @Router /departments [post]
func (h *DepartmentHandler) Create(c *gin.Context) {
	var req service.DepartmentRequest
	if !bindJSON(c, &req) {
		return
	}
	department, err := h.service.Create(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, department)
}

// Update godoc
// @Summary Update department
// @Tags Departments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Department ID"
// @Param payload body service.DepartmentRequest true "Department"
// @Success 200 {object} response.Envelope
// @Router /departments/{id} [put]
func (h *DepartmentHandler) Update(c *gin.Context) {
	var req service.DepartmentRequest
	if !bindJSON(c, &req) {
		return
	}
	department, err := h.service.Update(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, department)
}

// Delete godoc
// @Summary Delete department
// @Tags Departments
// @Security BearerAuth
// @Param id path string true "Department ID"
// @Success 204
// @Router /departments/{id} [delete]
func (h *DepartmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
