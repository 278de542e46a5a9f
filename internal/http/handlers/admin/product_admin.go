package admin

import (
	"errors"
	"strconv"

	"github.com/peakform-next/internal/http/response"
	"github.com/peakform-next/internal/models"
	"github.com/peakform-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateProduct 管理端创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	if err := h.ProductService.CreateProduct(&product); err != nil {
		respondError(c, response.CodeInternal, "create product failed", err)
		return
	}
	response.Success(c, product)
}

// UpdateProduct 管理端更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid product id", err)
		return
	}

	existing, getErr := h.ProductService.GetProduct(c.Request.Context(), uint(productID))
	if getErr != nil {
		if errors.Is(getErr, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "product not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "get product failed", getErr)
		return
	}

	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	product.ID = existing.ID

	if err := h.ProductService.UpdateProduct(c.Request.Context(), &product); err != nil {
		respondError(c, response.CodeInternal, "update product failed", err)
		return
	}
	response.Success(c, product)
}
