package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hse-api/internal/dto"
	"github.com/noah-isme/hse-api/internal/middleware"
	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/service"
	"github.com/noah-isme/hse-api/pkg/export"
	"github.com/noah-isme/hse-api/pkg/response"
)

type reportJobService interface {
	CreateJob(ctx context.Context, actor models.Actor, req dto.ReportRequest) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, actor models.Actor, id string) (*dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ExportHandler exposes asynchronous CSV and PDF exports.
type ExportHandler struct {
	service reportJobService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc reportJobService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Create godoc
// @Summary Request export
// @Description Queue a CSV or PDF export; poll the job until it is finished
// @Tags Exports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ReportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.ReportRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.service.CreateJob(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Status godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/jobs/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	status, err := h.service.GetStatus(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// Download godoc
// @Summary Download export
// @Description The signed token is the authorization; no bearer token is needed
// @Tags Exports
// @Produce application/pdf
// @Produce text/csv
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	contentType := "application/octet-stream"
	if renderer, err := export.ForFormat(string(download.Format)); err == nil {
		contentType = renderer.ContentType()
	}
	var size int64 = -1
	if info, err := download.File.Stat(); err == nil {
		size = info.Size()
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, size, contentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	})
}
