package public

import (
	"github.com/peakform-next/internal/http/response"
	"github.com/peakform-next/internal/service"

	"github.com/gin-gonic/gin"
)

type addCartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	VariantID uint `json:"variant_id"`
	Quantity  int  `json:"quantity" binding:"required"`
}

type updateCartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	VariantID uint `json:"variant_id"`
	Quantity  int  `json:"quantity"`
}

type removeCartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	VariantID uint `json:"variant_id"`
}

type syncCartRequest struct {
	Items []service.AnonymousCartItem `json:"items" binding:"required"`
}

// GetCart 读取购物车
func (h *Handler) GetCart(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	response.Success(c, h.CartService.GetCart(userID))
}

// AddCartItem 加购，库存不足时返回收窄后的结果。
func (h *Handler) AddCartItem(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	mutation, err := h.CartService.AddItem(userID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		respondWithMappedError(c, err, concatMappedHandlerErrors(stockErrorRules, cartErrorRules), response.CodeInternal, "add cart item failed")
		return
	}
	response.Success(c, mutation)
}

// UpdateCartItem 设置购物车行数量，0 及以下等同移除。
func (h *Handler) UpdateCartItem(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	mutation, err := h.CartService.UpdateQuantity(userID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		respondWithMappedError(c, err, concatMappedHandlerErrors(stockErrorRules, cartErrorRules), response.CodeInternal, "update cart item failed")
		return
	}
	response.Success(c, mutation)
}

// RemoveCartItem 移除购物车行
func (h *Handler) RemoveCartItem(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req removeCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	if err := h.CartService.RemoveItem(userID, req.ProductID, req.VariantID); err != nil {
		respondWithMappedError(c, err, concatMappedHandlerErrors(stockErrorRules, cartErrorRules), response.CodeInternal, "remove cart item failed")
		return
	}
	response.Success(c, nil)
}

// ClearCart 清空购物车，幂等。
func (h *Handler) ClearCart(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.CartService.Clear(userID); err != nil {
		respondWithMappedError(c, err, stockErrorRules, response.CodeInternal, "clear cart failed")
		return
	}
	response.Success(c, nil)
}

// SyncCart 登录后合并匿名购物车，逐行返回成功与失败。
func (h *Handler) SyncCart(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req syncCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	response.Success(c, h.CartService.SyncFromAnonymous(userID, req.Items))
}
