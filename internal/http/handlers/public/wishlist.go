package public

import (
	"strconv"

	"github.com/peakform-next/internal/http/response"
	"github.com/peakform-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListWishlist 心愿单列表
func (h *Handler) ListWishlist(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	entries, err := h.WishlistService.List(userID)
	if err != nil {
		respondWithMappedError(c, err, wishlistErrorRules, response.CodeInternal, "list wishlist failed")
		return
	}
	response.Success(c, entries)
}

// SaveWishlistEntry 新增或更新心愿单条目
func (h *Handler) SaveWishlistEntry(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req service.WishlistInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	entry, err := h.WishlistService.Save(userID, req)
	if err != nil {
		respondWithMappedError(c, err, concatMappedHandlerErrors(stockErrorRules, wishlistErrorRules), response.CodeInternal, "save wishlist entry failed")
		return
	}
	response.Success(c, entry)
}

// RemoveWishlistEntry 删除心愿单条目
func (h *Handler) RemoveWishlistEntry(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	productID, err := strconv.ParseUint(c.Param("productId"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid product id", err)
		return
	}
	variantID, _ := strconv.ParseUint(c.Query("variant_id"), 10, 64)

	if err := h.WishlistService.Remove(userID, uint(productID), uint(variantID)); err != nil {
		respondWithMappedError(c, err, wishlistErrorRules, response.CodeInternal, "remove wishlist entry failed")
		return
	}
	response.Success(c, nil)
}
