package public

import (
	"strconv"

	"github.com/peakform-next/internal/http/handlers/shared"
	"github.com/peakform-next/internal/http/response"
	"github.com/peakform-next/internal/models"
	"github.com/peakform-next/internal/repository"
	"github.com/peakform-next/internal/service"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	ShippingInfo  models.JSON `json:"shipping_info" binding:"required"`
	PaymentMethod string      `json:"payment_method"`
}

type createOrderRequest struct {
	Items         []service.CreateOrderItem `json:"items" binding:"required"`
	ShippingInfo  models.JSON               `json:"shipping_info" binding:"required"`
	PaymentMethod string                    `json:"payment_method"`
}

type createGuestOrderRequest struct {
	Items         []service.CreateOrderItem `json:"items" binding:"required"`
	ShippingInfo  models.JSON               `json:"shipping_info" binding:"required"`
	PaymentMethod string                    `json:"payment_method"`
	Email         string                    `json:"email" binding:"required"`
	Password      string                    `json:"password" binding:"required"`
}

type guestOrderQueryRequest struct {
	OrderNo  string `json:"order_no" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type requestReturnRequest struct {
	Reason  string `json:"reason" binding:"required"`
	ItemIDs []uint `json:"item_ids"`
}

// Checkout 购物车结算下单
func (h *Handler) Checkout(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	order, err := h.OrderService.CheckoutCart(service.CreateOrderInput{
		UserID:        userID,
		ShippingInfo:  req.ShippingInfo,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		respondWithMappedError(c, err, concatMappedHandlerErrors(stockErrorRules, orderErrorRules), response.CodeInternal, "checkout failed")
		return
	}
	response.Success(c, order)
}

// CreateOrder 直接下单（不经购物车）
func (h *Handler) CreateOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	order, err := h.OrderService.CreateOrder(service.CreateOrderInput{
		UserID:        userID,
		Items:         req.Items,
		ShippingInfo:  req.ShippingInfo,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		respondWithMappedError(c, err, concatMappedHandlerErrors(stockErrorRules, orderErrorRules), response.CodeInternal, "create order failed")
		return
	}
	response.Success(c, order)
}

// CreateGuestOrder 游客下单，邮箱+查单密码用于后续查询。
func (h *Handler) CreateGuestOrder(c *gin.Context) {
	var req createGuestOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	order, err := h.OrderService.CreateOrder(service.CreateOrderInput{
		GuestEmail:    req.Email,
		GuestPassword: req.Password,
		Items:         req.Items,
		ShippingInfo:  req.ShippingInfo,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		respondWithMappedError(c, err, concatMappedHandlerErrors(stockErrorRules, orderErrorRules), response.CodeInternal, "create order failed")
		return
	}
	response.Success(c, order)
}

// QueryGuestOrder 游客查单
func (h *Handler) QueryGuestOrder(c *gin.Context) {
	var req guestOrderQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	order, err := h.OrderService.GetGuestOrder(req.OrderNo, req.Email, req.Password)
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "query order failed")
		return
	}
	response.Success(c, order)
}

// ListOrders 用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	orders, total, err := h.OrderService.ListOrders(userID, repository.OrderListFilter{
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "list orders failed")
		return
	}

	totalPage := total / int64(pageSize)
	if total%int64(pageSize) > 0 {
		totalPage++
	}
	response.SuccessWithPage(c, orders, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid order id", err)
		return
	}

	order, getErr := h.OrderService.GetOrder(uint(orderID), userID)
	if getErr != nil {
		respondWithMappedError(c, getErr, orderErrorRules, response.CodeInternal, "get order failed")
		return
	}
	response.Success(c, order)
}

// CancelOrder 取消订单并归还库存
func (h *Handler) CancelOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid order id", err)
		return
	}

	order, cancelErr := h.OrderService.CancelOrder(uint(orderID), userID)
	if cancelErr != nil {
		respondWithMappedError(c, cancelErr, orderErrorRules, response.CodeInternal, "cancel order failed")
		return
	}
	response.Success(c, order)
}

// RequestReturn 申请退货
func (h *Handler) RequestReturn(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid order id", err)
		return
	}
	var req requestReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	order, returnErr := h.OrderService.RequestReturn(uint(orderID), userID, req.Reason, req.ItemIDs)
	if returnErr != nil {
		respondWithMappedError(c, returnErr, orderErrorRules, response.CodeInternal, "request return failed")
		return
	}
	response.Success(c, order)
}
