package handler

import (
	"context"

	financeapp "github.com/contabilidad/backend/internal/application/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentService is the application surface used by DocumentHandler
type DocumentService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req financeapp.CreateDocumentRequest) (*financeapp.DocumentResponse, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*financeapp.DocumentResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter financeapp.DocumentListFilter) ([]financeapp.DocumentResponse, int64, error)
	ApplyPayment(ctx context.Context, tenantID, id uuid.UUID, req financeapp.ApplyPaymentRequest) (*financeapp.DocumentResponse, error)
	Void(ctx context.Context, tenantID, id uuid.UUID, req financeapp.VoidDocumentRequest) (*financeapp.DocumentResponse, error)
}

// DocumentHandler serves open receivable and payable documents
type DocumentHandler struct {
	BaseHandler
	service DocumentService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(service DocumentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// Create godoc
// @ID           createDocument
// @Summary      Register an open document
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        request body financeapp.CreateDocumentRequest true "Document"
// @Success      201 {object} APIResponse[financeapp.DocumentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var req financeapp.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	if userID, err := getUserID(c); err == nil {
		req.CreatedBy = &userID
	}

	doc, err := h.service.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, doc)
}

// Get godoc
// @ID           getDocument
// @Summary      Get an open document
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} APIResponse[financeapp.DocumentResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// List godoc
// @ID           listDocuments
// @Summary      List open documents
// @Tags         documents
// @Produce      json
// @Param        direction       query string false "RECEIVABLE or PAYABLE"
// @Param        counterparty_id query string false "Counterparty" format(uuid)
// @Param        status          query string false "OPEN, PARTIAL, PAID or VOIDED"
// @Param        kind            query string false "INVOICE, CREDIT_NOTE, DEBIT_NOTE or ADVANCE"
// @Param        page            query int    false "Page" default(1)
// @Param        page_size       query int    false "Page size" default(20)
// @Success      200 {object} APIResponse[[]financeapp.DocumentResponse]
// @Security     BearerAuth
// @Router       /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var filter financeapp.DocumentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.bindError(c, err)
		return
	}
	if filter.CounterpartyID, ok = h.queryUUID(c, "counterparty_id"); !ok {
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	docs, total, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, docs, total, filter.Page, filter.PageSize)
}

// ApplyPayment godoc
// @ID           applyDocumentPayment
// @Summary      Apply a payment to a document
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id      path string                             true "Document ID" format(uuid)
// @Param        request body financeapp.ApplyPaymentRequest true "Payment"
// @Success      200 {object} APIResponse[financeapp.DocumentResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /documents/{id}/payments [post]
func (h *DocumentHandler) ApplyPayment(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req financeapp.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	doc, err := h.service.ApplyPayment(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Void godoc
// @ID           voidDocument
// @Summary      Void a document without applications
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id      path string                            true "Document ID" format(uuid)
// @Param        request body financeapp.VoidDocumentRequest true "Reason"
// @Success      200 {object} APIResponse[financeapp.DocumentResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /documents/{id}/void [post]
func (h *DocumentHandler) Void(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req financeapp.VoidDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	doc, err := h.service.Void(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}
