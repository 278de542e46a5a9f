package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品
type Product struct {
	ID            uint             `gorm:"primarykey" json:"id"`
	Slug          string           `gorm:"size:255;uniqueIndex" json:"slug"` // 商品标识
	Name          string           `gorm:"size:255" json:"name"`             // 商品名称
	Description   string           `gorm:"type:text" json:"description"`     // 商品描述
	Brand         string           `gorm:"size:128" json:"brand"`            // 品牌
	PriceAmount   Money            `gorm:"type:decimal(12,2)" json:"price_amount"`
	Images        StringArray      `gorm:"type:text" json:"images"`       // 图片列表
	Tags          StringArray      `gorm:"type:text" json:"tags"`         // 标签
	StockQuantity int              `gorm:"default:0" json:"stock_quantity"`
	InStock       bool             `gorm:"default:false" json:"in_stock"` // 有货标记，优先于库存数量
	IsActive      bool             `gorm:"default:true" json:"is_active"` // 是否上架
	SortOrder     int              `gorm:"default:0" json:"sort_order"`   // 排序
	Variants      []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName 表名
func (Product) TableName() string {
	return "products"
}
