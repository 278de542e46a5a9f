package models

import (
	"time"

	"gorm.io/gorm"
)

// ProductVariant 商品规格（口味、规格容量等）
type ProductVariant struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	ProductID     uint           `gorm:"index" json:"product_id"`
	Name          string         `gorm:"size:128" json:"name"`    // 规格名称
	SKUCode       string         `gorm:"size:64" json:"sku_code"` // SKU 编码
	PriceAmount   Money          `gorm:"type:decimal(12,2)" json:"price_amount"`
	StockQuantity int            `gorm:"default:0" json:"stock_quantity"`
	InStock       bool           `gorm:"default:false" json:"in_stock"` // 有货标记，优先于库存数量
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	SortOrder     int            `gorm:"default:0" json:"sort_order"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 表名
func (ProductVariant) TableName() string {
	return "product_variants"
}
