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

type employeeService interface {
	List(ctx context.Context, actor models.Actor, query models.ListQuery) ([]models.Employee, *models.Pagination, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Employee, error)
	Create(ctx context.Context, actor models.Actor, req service.EmployeeRequest) (*models.Employee, error)
	Update(ctx context.Context, actor models.Actor, id string, req service.EmployeeRequest) (*models.Employee, error)
	Deactivate(ctx context.Context, actor models.Actor, id string) error
}

// EmployeeHandler exposes the employee directory.
type EmployeeHandler struct {
	service employeeService
}

// NewEmployeeHandler constructs the handler.
func NewEmployeeHandler(svc employeeService) *EmployeeHandler {
	return &EmployeeHandler{service: svc}
}

// List godoc
// @Summary List employees
// @Tags Employees
// @Produce json
// @Security BearerAuth
// @Param search query string false "Free text"
// @Param department query string false "Department name"
// @Param status query string false "active or inactive"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /employees [get]
func (h *EmployeeHandler) List(c *gin.Context) {
	employees, pagination, err := h.service.List(c.Request.Context(), middleware.Actor(c), listQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employees, pagination)
}

// Get godoc
// @Summary Get employee
// @Tags Employees
// @Produce json
// @Security BearerAuth
// @Param id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id} [get]
func (h *EmployeeHandler) Get(c *gin.Context) {
	employee, err := h.service.Get(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, employee)
}

// Create godoc
// @Summary Create employee
// @Tags Employees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.EmployeeRequest true "Employee"
// @Success 201 {object} response.Envelope
// @Router /employees [post]
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req service.EmployeeRequest
	if !bindJSON(c, &req) {
		return
	}
	employee, err := h.service.Create(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, employee)
}

// Update godoc
// @Summary Update employee
// @Tags Employees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Employee ID"
// @Param payload body service.EmployeeRequest true "Employee"
// @Success 200 {object} response.Envelope
// @Router /employees/{id} [put]
func (h *EmployeeHandler) Update(c *gin.Context) {
	var req service.EmployeeRequest
	if !bindJSON(c, &req) {
		return
	}
	employee, err := h.service.Update(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, employee)
}

// Deactivate godoc
// @Summary Deactivate employee
// @Tags Employees
// @Security BearerAuth
// @Param id path string true "Employee ID"
// @Success 204
// @Router /employees/{id} [delete]
func (h *EmployeeHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
