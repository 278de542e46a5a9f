package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单
type Order struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	OrderNo        string         `gorm:"size:64;uniqueIndex" json:"order_no"` // 订单号
	UserID         uint           `gorm:"index" json:"user_id"`                // 下单用户，0 表示游客
	GuestEmail     string         `gorm:"size:255;index" json:"guest_email"`   // 游客邮箱
	GuestPassword  string         `gorm:"size:255" json:"-"`                   // 游客查单密码哈希
	Status         string         `gorm:"size:32;index" json:"status"`
	PaymentStatus  string         `gorm:"size:32" json:"payment_status"`
	PaymentMethod  string         `gorm:"size:64" json:"payment_method"`
	Currency       string         `gorm:"size:8" json:"currency"`
	SubtotalAmount Money          `gorm:"type:decimal(12,2)" json:"subtotal_amount"` // 商品小计
	TaxAmount      Money          `gorm:"type:decimal(12,2)" json:"tax_amount"`      // 税费
	ShippingAmount Money          `gorm:"type:decimal(12,2)" json:"shipping_amount"` // 运费
	TotalAmount    Money          `gorm:"type:decimal(12,2)" json:"total_amount"`    // 应付总额
	ShippingInfo   JSON           `gorm:"type:text" json:"shipping_info"`            // 收货信息
	TrackingNumber string         `gorm:"size:128" json:"tracking_number"`           // 物流单号
	ExpiresAt      *time.Time     `json:"expires_at"`                                // 支付截止时间
	PaidAt         *time.Time     `json:"paid_at"`
	DeliveredAt    *time.Time     `json:"delivered_at"` // 送达时间，退货窗口起点
	CanceledAt     *time.Time     `json:"canceled_at"`
	Items          []OrderItem    `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	StatusLogs     []OrderStatusLog `gorm:"foreignKey:OrderID" json:"status_logs,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 表名
func (Order) TableName() string {
	return "orders"
}
