package models

import "time"

// WishlistEntry 心愿单条目，支持到货提醒与自动加购。
// WasOutOfStock 记录条目是否经历过缺货，置位后直到补货处理前不会清除。
type WishlistEntry struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	UserID          uint      `gorm:"uniqueIndex:idx_wishlist_user_product_variant" json:"user_id"`
	ProductID       uint      `gorm:"uniqueIndex:idx_wishlist_user_product_variant" json:"product_id"`
	VariantID       uint      `gorm:"uniqueIndex:idx_wishlist_user_product_variant;default:0" json:"variant_id"`
	AutoAddToCart   bool      `gorm:"default:false" json:"auto_add_to_cart"`  // 到货自动加购
	NotifyOnRestock bool      `gorm:"default:false" json:"notify_on_restock"` // 到货提醒
	WasOutOfStock   bool      `gorm:"default:false" json:"was_out_of_stock"`  // 缺货标记
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName 表名
func (WishlistEntry) TableName() string {
	return "wishlist_entries"
}
