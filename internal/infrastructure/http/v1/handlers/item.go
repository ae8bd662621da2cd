package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgerbook/internal/domain"
	"ledgerbook/internal/domain/catalogs/item"
	"ledgerbook/internal/infrastructure/http/v1/dto"
)

// ItemHandler serves the inventory catalog.
type ItemHandler struct {
	*BaseHandler
	service *item.Service
}

// NewItemHandler creates an item handler.
func NewItemHandler(base *BaseHandler, service *item.Service) *ItemHandler {
	return &ItemHandler{BaseHandler: base, service: service}
}

// List handles GET /items. Query: search, lowStock, limit, offset, orderBy.
func (h *ItemHandler) List(c *gin.Context) {
	base, ok := h.ListFilter(c)
	if !ok {
		return
	}
	result, err := h.service.List(c.Request.Context(), item.ListFilter{
		ListFilter:   base,
		LowStockOnly: c.Query("lowStock") == "true",
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.ItemResponse, len(result.Items))
	for i, it := range result.Items {
		items[i] = dto.FromItem(it)
	}
	h.OK(c, domain.ListResult[dto.ItemResponse]{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /items/:id.
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	it, err := h.service.GetByID(c.Request.Context(), h.BusinessID(c), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromItem(it))
}

// Create handles POST /items.
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	it := req.ToEntity(h.BusinessID(c))
	if err := h.service.Create(c.Request.Context(), it); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromItem(it))
}

// Update handles PUT /items/:id.
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	it, err := h.service.GetByID(ctx, h.BusinessID(c), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.ApplyTo(it)
	if err := h.service.Update(ctx, it); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromItem(it))
}

// Delete handles DELETE /items/:id.
func (h *ItemHandler) Delete(c *gin.Context) {
	itemID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), h.BusinessID(c), itemID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes mounts the item routes on rg.
func (h *ItemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
