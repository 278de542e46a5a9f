package public

import (
	"github.com/peakform-next/internal/http/handlers/shared"
	"github.com/peakform-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

type paymentWebhookRequest struct {
	OrderNo string `json:"order_no" binding:"required"`
	Outcome string `json:"outcome" binding:"required"` // success / failure
}

// PaymentWebhook 支付网关回调。
// 成功推进 pending -> confirmed，失败仅标记支付状态；重复回调幂等。
func (h *Handler) PaymentWebhook(c *gin.Context) {
	var req paymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	order, err := h.OrderService.HandlePaymentResult(req.OrderNo, req.Outcome)
	if err != nil {
		shared.RequestLog(c).Warnw("payment_webhook_rejected",
			"order_no", req.OrderNo,
			"outcome", req.Outcome,
			"error", err,
		)
		respondWithMappedError(c, err, orderErrorRules, response.CodeBadRequest, "payment webhook rejected")
		return
	}
	response.Success(c, gin.H{
		"order_no":       order.OrderNo,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
	})
}
