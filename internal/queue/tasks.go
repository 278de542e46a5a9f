package queue

// OrderTimeoutCancelPayload 支付超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// RestockNotifyItem 到货提醒商品
type RestockNotifyItem struct {
	ProductID   uint   `json:"product_id"`
	VariantID   uint   `json:"variant_id"`
	ProductName string `json:"product_name"`
	VariantName string `json:"variant_name"`
}

// RestockNotifyPayload 到货提醒任务载荷
type RestockNotifyPayload struct {
	UserID uint                `json:"user_id"`
	Items  []RestockNotifyItem `json:"items"`
}
