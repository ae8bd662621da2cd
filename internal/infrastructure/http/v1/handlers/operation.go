package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/domain/documents/commercial"
)

// OperationHandler exposes operation intents, the step logs of document writes.
type OperationHandler struct {
	*BaseHandler
	intents commercial.IntentStore
}

// NewOperationHandler creates an operation handler.
func NewOperationHandler(base *BaseHandler, intents commercial.IntentStore) *OperationHandler {
	return &OperationHandler{BaseHandler: base, intents: intents}
}

// Get handles GET /operations/:id.
func (h *OperationHandler) Get(c *gin.Context) {
	opID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	log, err := h.intents.Get(c.Request.Context(), opID)
	if err != nil {
		h.Error(c, err)
		return
	}
	// Intents are keyed by id alone; hide other businesses' logs.
	if log.BusinessID != h.BusinessID(c) {
		h.Error(c, apperror.NewNotFound("operation", opID.String()))
		return
	}
	h.OK(c, log)
}
