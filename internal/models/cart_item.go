package models

import "time"

// CartItem 购物车项，按 用户+商品+规格 去重合并。
// VariantID 为 0 表示未选规格。
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_cart_user_product_variant" json:"user_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_cart_user_product_variant" json:"product_id"`
	VariantID uint      `gorm:"uniqueIndex:idx_cart_user_product_variant;default:0" json:"variant_id"`
	Quantity  int       `gorm:"default:1" json:"quantity"`
	UnitPrice Money     `gorm:"type:decimal(12,2)" json:"unit_price"` // 加入时单价快照
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 表名
func (CartItem) TableName() string {
	return "cart_items"
}
