package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hse-api/internal/middleware"
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/service"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
	"github.com/noah-isme/hse-api/pkg/response"
)

type companyService interface {
	List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Company, error)
	Create(ctx context.Context, actor models.Actor, req service.CreateCompanyRequest) (*models.Company, error)
	Update(ctx context.Context, actor models.Actor, id string, req service.UpdateCompanyRequest) (*models.Company, error)
	UpdateSubscription(ctx context.Context, actor models.Actor, id string, req service.UpdateSubscriptionRequest) (*models.Company, error)
	Deactivate(ctx context.Context, actor models.Actor, id string) error
}

// CompanyHandler exposes the super-admin tenant back-office.
type CompanyHandler struct {
	service companyService
}

// NewCompanyHandler constructs the handler.
func NewCompanyHandler(svc companyService) *CompanyHandler {
	return &CompanyHandler{service: svc}
}

// List godoc
// @Summary List companies
// @Tags Companies
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or slug"
// @Param status query string false "Subscription status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /companies [get]
func (h *CompanyHandler) List(c *gin.Context) {
	filter := models.CompanyFilter{Search: c.Query("search")}
	if status := c.Query("status"); status != "" {
		s := models.SubscriptionStatus(status)
		filter.Status = &s
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	companies, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, companies, pagination)
}

// Get godoc
// @Summary Get company
// @Tags Companies
// @Produce json
// @Security BearerAuth
// @Param id path string true "Company ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /companies/{id} [get]
func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// Create godoc
// @Summary Create company
// @Tags Companies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateCompanyRequest true "Company"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /companies [post]
func (h *CompanyHandler) Create(c *gin.Context) {
	var req service.CreateCompanyRequest
	if !bindJSON(c, &req) {
		return
	}
	company, err := h.service.Create(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, company)
}

// Update godoc
// @Summary Update company
// @Tags Companies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Company ID"
// @Param payload body service.UpdateCompanyRequest true "Company"
// @Success 200 {object} response.Envelope
// @Router /companies/{id} [put]
func (h *CompanyHandler) Update(c *gin.Context) {
	var req service.UpdateCompanyRequest
	if !bindJSON(c, &req) {
		return
	}
	company, err := h.service.Update(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// UpdateSubscription godoc
// @Summary Change subscription
// @Tags Companies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Company ID"
// @Param payload body service.UpdateSubscriptionRequest true "Subscription"
// @Success 200 {object} response.Envelope
// @Router /companies/{id}/subscription [put]
func (h *CompanyHandler) UpdateSubscription(c *gin.Context) {
	var req service.UpdateSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	company, err := h.service.UpdateSubscription(c.Request.Context(), middleware.Actor(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// Deactivate godoc
// @Summary Deactivate company
// @Tags Companies
// @Security BearerAuth
// @Param id path string true "Company ID"
// @Success 204
// @Router /companies/{id} [delete]
func (h *CompanyHandler) Deactivate(c *gin.Context) {
	if c.Param("id") == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id required"))
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
