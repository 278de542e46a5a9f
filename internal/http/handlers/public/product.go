package public

import (
	"strconv"

	"github.com/peakform-next/internal/http/handlers/shared"
	"github.com/peakform-next/internal/http/response"
	"github.com/peakform-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListProducts 商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	filter := repository.ProductListFilter{
		Keyword:    c.Query("keyword"),
		Brand:      c.Query("brand"),
		Tag:        c.Query("tag"),
		OnlyActive: true,
		Page:       page,
		PageSize:   pageSize,
	}
	if inStock := c.Query("in_stock"); inStock != "" {
		value := inStock == "1" || inStock == "true"
		filter.InStock = &value
	}

	products, total, err := h.ProductService.ListProducts(filter)
	if err != nil {
		respondWithMappedError(c, err, stockErrorRules, response.CodeInternal, "list products failed")
		return
	}

	totalPage := total / int64(pageSize)
	if total%int64(pageSize) > 0 {
		totalPage++
	}
	response.SuccessWithPage(c, products, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// GetProduct 商品详情（ID 或 slug）
func (h *Handler) GetProduct(c *gin.Context) {
	key := c.Param("id")
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		product, err := h.ProductService.GetProduct(c.Request.Context(), uint(id))
		if err != nil {
			respondWithMappedError(c, err, stockErrorRules, response.CodeInternal, "get product failed")
			return
		}
		response.Success(c, product)
		return
	}

	product, err := h.ProductService.GetProductBySlug(key)
	if err != nil {
		respondWithMappedError(c, err, stockErrorRules, response.CodeInternal, "get product failed")
		return
	}
	response.Success(c, product)
}

// GetProductStock 商品可售数量
func (h *Handler) GetProductStock(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid product id", err)
		return
	}
	variantID, _ := strconv.ParseUint(c.Query("variant_id"), 10, 64)

	available, err := h.StockService.AvailableStock(uint(productID), uint(variantID))
	if err != nil {
		respondWithMappedError(c, err, stockErrorRules, response.CodeInternal, "get stock failed")
		return
	}
	response.Success(c, gin.H{
		"product_id": productID,
		"variant_id": variantID,
		"available":  available,
		"in_stock":   available > 0,
	})
}
