package repository

import (
	"errors"

	"github.com/peakform-next/internal/models"

	"gorm.io/gorm"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	ListByUser(userID uint) ([]models.CartItem, error)
	Get(userID, productID, variantID uint) (*models.CartItem, error)
	Save(item *models.CartItem) error
	UpdateQuantity(id uint, quantity int) error
	Delete(id uint) error
	ClearByUser(userID uint) error
}

// GormCartRepository 购物车数据访问实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车数据访问实例
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// ListByUser 用户购物车列表
func (r *GormCartRepository) ListByUser(userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.Where("user_id = ?", userID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Get 根据 用户+商品+规格 获取购物车项
func (r *GormCartRepository) Get(userID, productID, variantID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.Where("user_id = ? AND product_id = ? AND variant_id = ?", userID, productID, variantID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Save 写入购物车项
func (r *GormCartRepository) Save(item *models.CartItem) error {
	return withStoreRetry(func() error {
		return r.db.Save(item).Error
	})
}

// UpdateQuantity 更新数量
func (r *GormCartRepository) UpdateQuantity(id uint, quantity int) error {
	return withStoreRetry(func() error {
		return r.db.Model(&models.CartItem{}).
			Where("id = ?", id).
			Update("quantity", quantity).Error
	})
}

// Delete 删除购物车项
func (r *GormCartRepository) Delete(id uint) error {
	return withStoreRetry(func() error {
		return r.db.Delete(&models.CartItem{}, id).Error
	})
}

// ClearByUser 清空用户购物车
func (r *GormCartRepository) ClearByUser(userID uint) error {
	return withStoreRetry(func() error {
		return r.db.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
	})
}
