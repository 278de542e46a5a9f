package models

import "time"

// OrderItem 订单项，下单时冻结商品快照。
type OrderItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OrderID     uint      `gorm:"index" json:"order_id"`
	ProductID   uint      `gorm:"index" json:"product_id"`
	VariantID   uint      `gorm:"default:0" json:"variant_id"` // 0 表示未选规格
	ProductName string    `gorm:"size:255" json:"product_name"`
	VariantName string    `gorm:"size:128" json:"variant_name"`
	UnitPrice   Money     `gorm:"type:decimal(12,2)" json:"unit_price"`
	Quantity    int       `gorm:"default:1" json:"quantity"`
	TotalPrice  Money     `gorm:"type:decimal(12,2)" json:"total_price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 表名
func (OrderItem) TableName() string {
	return "order_items"
}
