package repository

import (
	"errors"

	"github.com/peakform-next/internal/models"

	"gorm.io/gorm"
)

// VariantRepository 商品规格数据访问接口
type VariantRepository interface {
	WithTx(tx *gorm.DB) VariantRepository
	GetByID(id uint) (*models.ProductVariant, error)
	ListByProduct(productID uint) ([]models.ProductVariant, error)
	Create(variant *models.ProductVariant) error
	Update(variant *models.ProductVariant) error
	ReserveStock(variantID uint, quantity int) (int64, error)
	ReleaseStock(variantID uint, quantity int) (int64, error)
	SetStock(variantID uint, quantity int) error
	SetInStock(variantID uint, inStock bool) error
}

// GormVariantRepository 商品规格数据访问实现
type GormVariantRepository struct {
	db *gorm.DB
}

// NewVariantRepository 创建商品规格数据访问实例
func NewVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVariantRepository) WithTx(tx *gorm.DB) VariantRepository {
	if tx == nil {
		return r
	}
	return &GormVariantRepository{db: tx}
}

// GetByID 根据 ID 获取规格
func (r *GormVariantRepository) GetByID(id uint) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.First(&variant, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &variant, nil
}

// ListByProduct 商品下的规格列表
func (r *GormVariantRepository) ListByProduct(productID uint) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := r.db.Where("product_id = ?", productID).
		Order("sort_order ASC, id ASC").
		Find(&variants).Error
	if err != nil {
		return nil, err
	}
	return variants, nil
}

// Create 创建规格
func (r *GormVariantRepository) Create(variant *models.ProductVariant) error {
	return r.db.Create(variant).Error
}

// Update 保存规格
func (r *GormVariantRepository) Update(variant *models.ProductVariant) error {
	return r.db.Save(variant).Error
}

// ReserveStock 预占规格库存，同一条语句重算有货标记。
func (r *GormVariantRepository) ReserveStock(variantID uint, quantity int) (int64, error) {
	if quantity <= 0 {
		return 0, nil
	}
	var affected int64
	err := withStoreRetry(func() error {
		result := r.db.Model(&models.ProductVariant{}).
			Where("id = ? AND in_stock = ? AND stock_quantity >= ?", variantID, true, quantity).
			Updates(map[string]interface{}{
				"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
				"in_stock":       gorm.Expr("stock_quantity - ? > 0", quantity),
			})
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

// ReleaseStock 释放规格库存并重算有货标记。
func (r *GormVariantRepository) ReleaseStock(variantID uint, quantity int) (int64, error) {
	if quantity <= 0 {
		return 0, nil
	}
	var affected int64
	err := withStoreRetry(func() error {
		result := r.db.Model(&models.ProductVariant{}).
			Where("id = ?", variantID).
			Updates(map[string]interface{}{
				"stock_quantity": gorm.Expr("stock_quantity + ?", quantity),
				"in_stock":       gorm.Expr("stock_quantity + ? > 0", quantity),
			})
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

// SetStock 管理端直接设置规格库存并重算有货标记。
func (r *GormVariantRepository) SetStock(variantID uint, quantity int) error {
	if quantity < 0 {
		quantity = 0
	}
	return withStoreRetry(func() error {
		return r.db.Model(&models.ProductVariant{}).
			Where("id = ?", variantID).
			Updates(map[string]interface{}{
				"stock_quantity": quantity,
				"in_stock":       quantity > 0,
			}).Error
	})
}

// SetInStock 管理端覆盖规格有货标记。
func (r *GormVariantRepository) SetInStock(variantID uint, inStock bool) error {
	return withStoreRetry(func() error {
		return r.db.Model(&models.ProductVariant{}).
			Where("id = ?", variantID).
			Update("in_stock", inStock).Error
	})
}
