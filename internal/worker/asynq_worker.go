package worker

import (
	"context"
	"encoding/json"

	"github.com/peakform-next/internal/constants"
	"github.com/peakform-next/internal/logger"
	"github.com/peakform-next/internal/provider"
	"github.com/peakform-next/internal/queue"
	"github.com/peakform-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建任务消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{Container: c}
}

// Register 注册任务处理器
func (w *Consumer) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(constants.TaskOrderTimeoutCancel, w.handleOrderTimeoutCancel)
	mux.HandleFunc(constants.TaskRestockNotify, w.handleRestockNotify)
}

// handleOrderTimeoutCancel 支付超时取消。
// 订单已支付或已取消时任务静默完成。
func (w *Consumer) handleOrderTimeoutCancel(ctx context.Context, task *asynq.Task) error {
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("order_timeout_cancel_bad_payload", "error", err)
		return nil
	}
	if err := w.OrderService.CancelExpiredOrder(payload.OrderID); err != nil {
		logger.Warnw("order_timeout_cancel_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}

// handleRestockNotify 发送到货提醒
func (w *Consumer) handleRestockNotify(ctx context.Context, task *asynq.Task) error {
	var payload queue.RestockNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("restock_notify_bad_payload", "error", err)
		return nil
	}

	items := make([]service.RestockedItem, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, service.RestockedItem{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			VariantName: item.VariantName,
		})
	}
	if err := w.Notifier.SendRestockNotice(ctx, payload.UserID, items); err != nil {
		logger.Warnw("restock_notify_send_failed", "user_id", payload.UserID, "error", err)
		return err
	}
	return nil
}
