package models

import "time"

// OrderStatusLog 订单状态流转记录
type OrderStatusLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	OrderID    uint      `gorm:"index" json:"order_id"`
	FromStatus string    `gorm:"size:32" json:"from_status"`
	ToStatus   string    `gorm:"size:32" json:"to_status"`
	Note       string    `gorm:"size:255" json:"note"` // 备注（操作来源等）
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 表名
func (OrderStatusLog) TableName() string {
	return "order_status_logs"
}
