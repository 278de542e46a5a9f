package admin

import (
	"errors"
	"strconv"

	"github.com/peakform-next/internal/http/response"
	"github.com/peakform-next/internal/service"

	"github.com/gin-gonic/gin"
)

type restockRequest struct {
	VariantID uint `json:"variant_id"`
	Quantity  *int `json:"quantity" binding:"required"`
}

type availabilityRequest struct {
	VariantID uint  `json:"variant_id"`
	InStock   *bool `json:"in_stock" binding:"required"`
}

// Restock 补货，直接覆盖库存数量。
func (h *Handler) Restock(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid product id", err)
		return
	}
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	if err := h.StockService.Restock(uint(productID), req.VariantID, *req.Quantity); err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, nil)
}

// SetAvailability 覆盖有货标记，标记优先于库存数量。
func (h *Handler) SetAvailability(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid product id", err)
		return
	}
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	if err := h.StockService.SetAvailability(uint(productID), req.VariantID, *req.InStock); err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, nil)
}

func respondStockError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrVariantNotFound):
		respondError(c, response.CodeNotFound, "product not found", nil)
	case errors.Is(err, service.ErrInvalidQuantity):
		respondError(c, response.CodeBadRequest, "invalid quantity", nil)
	case errors.Is(err, service.ErrStoreBusy):
		respondError(c, response.CodeTooManyRequests, "store busy, please retry", nil)
	default:
		respondError(c, response.CodeInternal, "stock operation failed", err)
	}
}
