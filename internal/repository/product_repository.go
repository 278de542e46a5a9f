package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/peakform-next/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	GetByID(id uint) (*models.Product, error)
	GetBySlug(slug string) (*models.Product, error)
	List(filter ProductListFilter) ([]models.Product, int64, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	ReserveStock(productID uint, quantity int) (int64, error)
	ReleaseStock(productID uint, quantity int) (int64, error)
	SetStock(productID uint, quantity int) error
	SetInStock(productID uint, inStock bool) error
}

// GormProductRepository 商品数据访问实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品数据访问实例
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// GetByID 根据 ID 获取商品
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.Preload("Variants").First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetBySlug 根据标识获取商品
func (r *GormProductRepository) GetBySlug(slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.Preload("Variants").Where("slug = ?", slug).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// List 商品列表
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	query := r.db.Model(&models.Product{})
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if brand := strings.TrimSpace(filter.Brand); brand != "" {
		query = query.Where("brand = ?", brand)
	}
	if filter.InStock != nil {
		query = query.Where("in_stock = ?", *filter.InStock)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildKeywordLikeCondition(r.db, []string{"name", "brand", "description"})
		if condition != "" {
			like := fmt.Sprintf("%%%s%%", keyword)
			query = query.Where(condition, repeatLikeArgs(like, argCount)...)
		}
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		query = query.Where("tags LIKE ?", fmt.Sprintf("%%%q%%", tag))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := applyPagination(query.Preload("Variants").Order("sort_order ASC, id DESC"), filter.Page, filter.PageSize).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// Update 保存商品
func (r *GormProductRepository) Update(product *models.Product) error {
	return r.db.Save(product).Error
}

// ReserveStock 预占库存。
// 仅当有货且余量充足时扣减，同一条语句重算有货标记，返回受影响行数。
func (r *GormProductRepository) ReserveStock(productID uint, quantity int) (int64, error) {
	if quantity <= 0 {
		return 0, nil
	}
	var affected int64
	err := withStoreRetry(func() error {
		result := r.db.Model(&models.Product{}).
			Where("id = ? AND in_stock = ? AND stock_quantity >= ?", productID, true, quantity).
			Updates(map[string]interface{}{
				"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
				"in_stock":       gorm.Expr("stock_quantity - ? > 0", quantity),
			})
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

// ReleaseStock 释放库存并重算有货标记。
func (r *GormProductRepository) ReleaseStock(productID uint, quantity int) (int64, error) {
	if quantity <= 0 {
		return 0, nil
	}
	var affected int64
	err := withStoreRetry(func() error {
		result := r.db.Model(&models.Product{}).
			Where("id = ?", productID).
			Updates(map[string]interface{}{
				"stock_quantity": gorm.Expr("stock_quantity + ?", quantity),
				"in_stock":       gorm.Expr("stock_quantity + ? > 0", quantity),
			})
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

// SetStock 管理端直接设置库存数量并重算有货标记。
func (r *GormProductRepository) SetStock(productID uint, quantity int) error {
	if quantity < 0 {
		quantity = 0
	}
	return withStoreRetry(func() error {
		return r.db.Model(&models.Product{}).
			Where("id = ?", productID).
			Updates(map[string]interface{}{
				"stock_quantity": quantity,
				"in_stock":       quantity > 0,
			}).Error
	})
}

// SetInStock 管理端覆盖有货标记，标记优先于库存数量。
func (r *GormProductRepository) SetInStock(productID uint, inStock bool) error {
	return withStoreRetry(func() error {
		return r.db.Model(&models.Product{}).
			Where("id = ?", productID).
			Update("in_stock", inStock).Error
	})
}
