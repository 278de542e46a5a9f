package admin

import (
	"errors"
	"strconv"

	"github.com/peakform-next/internal/http/handlers/shared"
	"github.com/peakform-next/internal/http/response"
	"github.com/peakform-next/internal/repository"
	"github.com/peakform-next/internal/service"

	"github.com/gin-gonic/gin"
)

type updateOrderStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	Note           string `json:"note"`
	TrackingNumber string `json:"tracking_number"`
}

// ListOrders 管理端订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	orders, total, err := h.OrderService.ListOrdersAdmin(repository.OrderListFilter{
		UserID:        uint(userID),
		Status:        c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		OrderNo:       c.Query("order_no"),
		Page:          page,
		PageSize:      pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "list orders failed", err)
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

// UpdateOrderStatus 推进订单状态。
// 发货可带物流单号；取消会归还库存。
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid order id", err)
		return
	}
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	order, updateErr := h.OrderService.UpdateOrderStatus(uint(orderID), req.Status, req.Note, req.TrackingNumber)
	if updateErr != nil {
		switch {
		case errors.Is(updateErr, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(updateErr, service.ErrInvalidTransition):
			respondError(c, response.CodeBadRequest, "invalid status transition", nil)
		case errors.Is(updateErr, service.ErrStoreBusy):
			respondError(c, response.CodeTooManyRequests, "store busy, please retry", nil)
		default:
			respondError(c, response.CodeInternal, "update order status failed", updateErr)
		}
		return
	}
	response.Success(c, order)
}
