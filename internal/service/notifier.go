package service

import "context"

// RestockedItem 到货提醒中的商品描述
type RestockedItem struct {
	ProductID   uint   `json:"product_id"`
	VariantID   uint   `json:"variant_id"`
	ProductName string `json:"product_name"`
	VariantName string `json:"variant_name"`
}

// Notifier 到货提醒发送边界
type Notifier interface {
	SendRestockNotice(ctx context.Context, userID uint, items []RestockedItem) error
}
