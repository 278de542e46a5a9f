package constants

// 订单状态
const (
	OrderStatusPending    = "pending"    // 待支付
	OrderStatusConfirmed  = "confirmed"  // 已确认
	OrderStatusProcessing = "processing" // 处理中
	OrderStatusShipped    = "shipped"    // 已发货
	OrderStatusDelivered  = "delivered"  // 已送达
	OrderStatusCancelled  = "cancelled"  // 已取消
	OrderStatusReturned   = "returned"   // 已退货
)

// 支付状态
const (
	PaymentStatusPending = "pending" // 待支付
	PaymentStatusPaid    = "paid"    // 已支付
	PaymentStatusFailed  = "failed"  // 支付失败
)

// 支付回调结果
const (
	PaymentOutcomeSuccess = "success"
	PaymentOutcomeFailure = "failure"
)

// 异步任务类型
const (
	TaskOrderTimeoutCancel = "order:timeout_cancel"
	TaskRestockNotify      = "restock:notify"
)

// 队列名称
const (
	QueueDefault = "default"
)

// Redis 键前缀
const (
	RedisPrefixDefault = "pf"
)

// 默认币种
const (
	CurrencyDefault = "USD"
)

// 购物车写入失败原因
const (
	CartFailReasonOutOfStock = "out_of_stock"
	CartFailReasonNotFound   = "product_not_found"
	CartFailReasonInactive   = "product_inactive"
)
