package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgerbook/internal/domain/registers/settlement"
	"ledgerbook/internal/infrastructure/http/v1/dto"
)

// TransactionHandler serves the settlement ledger and mode balances.
type TransactionHandler struct {
	*BaseHandler
	ledger *settlement.Ledger
}

// NewTransactionHandler creates a transaction handler.
func NewTransactionHandler(base *BaseHandler, ledger *settlement.Ledger) *TransactionHandler {
	return &TransactionHandler{BaseHandler: base, ledger: ledger}
}

// List handles GET /transactions.
// Query: documentId, partyId, mode, type, unlinked, search, from, to, limit, offset.
func (h *TransactionHandler) List(c *gin.Context) {
	base, ok := h.ListFilter(c)
	if !ok {
		return
	}
	filter := settlement.ListFilter{ListFilter: base, Unlinked: c.Query("unlinked") == "true"}

	if filter.DocumentID, ok = h.QueryID(c, "documentId"); !ok {
		return
	}
	if filter.PartyID, ok = h.QueryID(c, "partyId"); !ok {
		return
	}
	if mode := c.Query("mode"); mode != "" {
		mode = settlement.NormalizeMode(mode)
		filter.Mode = &mode
	}
	if raw := c.Query("type"); raw != "" {
		typ, err := settlement.ParseType(raw)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.Type = &typ
	}

	result, err := h.ledger.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	txnID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	txn, err := h.ledger.Get(c.Request.Context(), h.BusinessID(c), txnID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, txn)
}

// Create handles POST /transactions. Only general-ledger entries are
// accepted here; document settlements go through the document routes.
func (h *TransactionHandler) Create(c *gin.Context) {
	var req dto.CreateTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	txn, err := req.ToEntity(h.BusinessID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.ledger.Record(c.Request.Context(), txn); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, txn)
}

// Delete handles DELETE /transactions/:id.
func (h *TransactionHandler) Delete(c *gin.Context) {
	txnID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.ledger.Delete(c.Request.Context(), h.BusinessID(c), txnID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Balances handles GET /balances.
func (h *TransactionHandler) Balances(c *gin.Context) {
	modes, err := h.ledger.Balances(c.Request.Context(), h.BusinessID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewBalancesResponse(modes))
}

// Balance handles GET /balances/:mode.
func (h *TransactionHandler) Balance(c *gin.Context) {
	mode := settlement.NormalizeMode(c.Param("mode"))
	balance, err := h.ledger.Balance(c.Request.Context(), h.BusinessID(c), mode)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"mode": mode, "balance": balance})
}

// RegisterRoutes mounts the ledger routes on rg.
func (h *TransactionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	txns := rg.Group("/transactions")
	txns.GET("", h.List)
	txns.POST("", h.Create)
	txns.GET("/:id", h.Get)
	txns.DELETE("/:id", h.Delete)

	balances := rg.Group("/balances")
	balances.GET("", h.Balances)
	balances.GET("/:mode", h.Balance)
}
