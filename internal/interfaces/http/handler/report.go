package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	reportapp "github.com/contabilidad/backend/internal/application/report"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AgingService computes aging reports from stored documents or an upload
type AgingService interface {
	GetAging(ctx context.Context, tenantID uuid.UUID, q reportapp.AgingQuery) (*reportapp.AgingResponse, error)
	ImportAging(ctx context.Context, tenantID uuid.UUID, file io.Reader, q reportapp.AgingQuery) (*reportapp.ImportAgingResponse, error)
}

// ExportService renders aging reports to files
type ExportService interface {
	Export(ctx context.Context, tenantID uuid.UUID, q reportapp.AgingQuery, format string, upload bool) (*reportapp.ExportResult, error)
}

// ReportHandler serves the accounts receivable and payable aging report
type ReportHandler struct {
	BaseHandler
	aging  AgingService
	export ExportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(aging AgingService, export ExportService) *ReportHandler {
	return &ReportHandler{aging: aging, export: export}
}

// bindAgingQuery reads the shared aging query parameters
func (h *ReportHandler) bindAgingQuery(c *gin.Context) (reportapp.AgingQuery, bool) {
	var q reportapp.AgingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return q, false
	}
	var ok bool
	if q.CounterpartyID, ok = h.queryUUID(c, "counterparty_id"); !ok {
		return q, false
	}
	return q, true
}

// GetAging godoc
// @ID           getAgingReport
// @Summary      Aging report
// @Description  Buckets outstanding balances by days past due as of a reference date
// @Tags         reports
// @Produce      json
// @Param        direction       query string false "RECEIVABLE (default) or PAYABLE"
// @Param        as_of           query string false "Reference date YYYY-MM-DD, default today"
// @Param        counterparty_id query string false "Restrict to one counterparty" format(uuid)
// @Param        currency        query string false "Currency, default the tenant's"
// @Param        strict          query bool   false "Fail on the first invalid item"
// @Success      200 {object} APIResponse[reportapp.AgingResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/aging [get]
func (h *ReportHandler) GetAging(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	q, ok := h.bindAgingQuery(c)
	if !ok {
		return
	}

	resp, err := h.aging.GetAging(c.Request.Context(), tenantID, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ExportAging godoc
// @ID           exportAgingReport
// @Summary      Export the aging report
// @Description  Returns the report as csv, xlsx or pdf. With upload=true the file is stored and a temporary link is returned instead.
// @Tags         reports
// @Produce      json,text/csv,application/pdf
// @Param        format query string false "csv (default), xlsx or pdf"
// @Param        upload query bool   false "Store the file and return a link"
// @Success      200 {object} APIResponse[reportapp.ExportResult]
// @Failure      400 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/aging/export [get]
func (h *ReportHandler) ExportAging(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	q, ok := h.bindAgingQuery(c)
	if !ok {
		return
	}
	upload := false
	if raw := c.Query("upload"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "Invalid upload: must be a boolean")
			return
		}
		upload = parsed
	}

	result, err := h.export.Export(c.Request.Context(), tenantID, q, c.DefaultQuery("format", "csv"), upload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if upload {
		h.Success(c, result)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// ImportAging godoc
// @ID           importAgingReport
// @Summary      Age an uploaded open item file
// @Description  Parses a CSV of open items with the tenant's number format and returns the aging with per-row issues
// @Tags         reports
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "CSV file"
// @Success      200 {object} APIResponse[reportapp.ImportAgingResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/aging/import [post]
func (h *ReportHandler) ImportAging(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	q, ok := h.bindAgingQuery(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Missing file field")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.BadRequest(c, "Uploaded file cannot be read")
		return
	}
	defer file.Close()

	resp, err := h.aging.ImportAging(c.Request.Context(), tenantID, file, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
