package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgerbook/internal/domain/documents/commercial"
	"ledgerbook/internal/infrastructure/http/v1/dto"
)

// DocumentHandler serves sale invoices and purchase bills.
type DocumentHandler struct {
	*BaseHandler
	service *commercial.Service
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(base *BaseHandler, service *commercial.Service) *DocumentHandler {
	return &DocumentHandler{BaseHandler: base, service: service}
}

// List handles GET /documents.
// Query: kind, status, partyId, search, from, to, limit, offset, orderBy.
func (h *DocumentHandler) List(c *gin.Context) {
	base, ok := h.ListFilter(c)
	if !ok {
		return
	}
	filter := commercial.ListFilter{ListFilter: base}

	if raw := c.Query("kind"); raw != "" {
		kind, err := commercial.ParseKind(raw)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.Kind = &kind
	}
	if raw := c.Query("status"); raw != "" {
		status, err := commercial.ParseStatus(raw)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.Status = &status
	}
	if filter.PartyID, ok = h.QueryID(c, "partyId"); !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /documents/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	doc, err := h.service.Get(c.Request.Context(), h.BusinessID(c), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Preview handles POST /documents/preview. Nothing is written.
func (h *DocumentHandler) Preview(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	preview, err := h.service.Preview(c.Request.Context(), h.BusinessID(c), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, preview)
}

// Create handles POST /documents.
func (h *DocumentHandler) Create(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.service.Create(c.Request.Context(), h.BusinessID(c), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// Update handles PUT /documents/:id.
func (h *DocumentHandler) Update(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.service.Update(c.Request.Context(), h.BusinessID(c), docID, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Delete handles DELETE /documents/:id.
func (h *DocumentHandler) Delete(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	result, err := h.service.Delete(c.Request.Context(), h.BusinessID(c), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Transactions handles GET /documents/:id/transactions.
func (h *DocumentHandler) Transactions(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	txns, err := h.service.Transactions(c.Request.Context(), h.BusinessID(c), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": txns})
}

// RecordPayment handles POST /documents/:id/payments.
func (h *DocumentHandler) RecordPayment(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.PaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.service.RecordPayment(c.Request.Context(), h.BusinessID(c), docID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// DeletePayment handles DELETE /documents/:id/payments/:txnId.
func (h *DocumentHandler) DeletePayment(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	txnID, ok := h.PathID(c, "txnId")
	if !ok {
		return
	}
	result, err := h.service.DeletePayment(c.Request.Context(), h.BusinessID(c), docID, txnID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// RegisterRoutes mounts the document routes on rg.
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/preview", h.Preview)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/transactions", h.Transactions)
	rg.POST("/:id/payments", h.RecordPayment)
	rg.DELETE("/:id/payments/:txnId", h.DeletePayment)
}
