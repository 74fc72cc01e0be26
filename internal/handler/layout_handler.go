package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hse-api/internal/middleware"
	"github.com/noah-isme/hse-api/internal/models"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
	"github.com/noah-isme/hse-api/pkg/response"
)

type layoutService interface {
	Get(ctx context.Context, actor models.Actor, key string) (*models.Layout, error)
	Put(ctx context.Context, actor models.Actor, key string, payload []byte) (*models.Layout, error)
}

// LayoutHandler stores per-user UI layouts as opaque JSON documents.
type LayoutHandler struct {
	service  layoutService
	maxBytes int64
}

// NewLayoutHandler constructs the handler. Bodies above maxBytes are cut off before validation.
func NewLayoutHandler(svc layoutService, maxBytes int64) *LayoutHandler {
	if maxBytes <= 0 {
		maxBytes = 64 << 10
	}
	return &LayoutHandler{service: svc, maxBytes: maxBytes}
}

// Get godoc
// @Summary Get layout
// @Tags Layouts
// @Produce json
// @Security BearerAuth
// @Param key path string true "Layout key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /layouts/{key} [get]
func (h *LayoutHandler) Get(c *gin.Context) {
	layout, err := h.service.Get(c.Request.Context(), middleware.Actor(c), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, layout)
}

// Put godoc
// @Summary Save layout
// @Tags Layouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Layout key"
// @Param payload body object true "Layout document"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /layouts/{key} [put]
func (h *LayoutHandler) Put(c *gin.Context) {
	// One extra byte lets the service see that the limit was exceeded.
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBytes+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	layout, err := h.service.Put(c.Request.Context(), middleware.Actor(c), c.Param("key"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, layout)
}
