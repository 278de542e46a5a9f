package repository

import (
	"errors"

	"github.com/peakform-next/internal/models"

	"gorm.io/gorm"
)

// WishlistRepository 心愿单数据访问接口
type WishlistRepository interface {
	WithTx(tx *gorm.DB) WishlistRepository
	ListByUser(userID uint) ([]models.WishlistEntry, error)
	Get(userID, productID, variantID uint) (*models.WishlistEntry, error)
	Save(entry *models.WishlistEntry) error
	Delete(userID, productID, variantID uint) error
	ListWatching() ([]models.WishlistEntry, error)
	SetWasOutOfStock(id uint, value bool) error
	ApplyBatch(flagIDs, clearIDs, deleteIDs []uint) error
}

// GormWishlistRepository 心愿单数据访问实现
type GormWishlistRepository struct {
	db *gorm.DB
}

// NewWishlistRepository 创建心愿单数据访问实例
func NewWishlistRepository(db *gorm.DB) *GormWishlistRepository {
	return &GormWishlistRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWishlistRepository) WithTx(tx *gorm.DB) WishlistRepository {
	if tx == nil {
		return r
	}
	return &GormWishlistRepository{db: tx}
}

// ListByUser 用户心愿单列表
func (r *GormWishlistRepository) ListByUser(userID uint) ([]models.WishlistEntry, error) {
	var entries []models.WishlistEntry
	err := r.db.Where("user_id = ?", userID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Get 根据 用户+商品+规格 获取条目
func (r *GormWishlistRepository) Get(userID, productID, variantID uint) (*models.WishlistEntry, error) {
	var entry models.WishlistEntry
	err := r.db.Where("user_id = ? AND product_id = ? AND variant_id = ?", userID, productID, variantID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Save 写入心愿单条目
func (r *GormWishlistRepository) Save(entry *models.WishlistEntry) error {
	return withStoreRetry(func() error {
		return r.db.Save(entry).Error
	})
}

// Delete 删除心愿单条目
func (r *GormWishlistRepository) Delete(userID, productID, variantID uint) error {
	return withStoreRetry(func() error {
		return r.db.Where("user_id = ? AND product_id = ? AND variant_id = ?", userID, productID, variantID).
			Delete(&models.WishlistEntry{}).Error
	})
}

// ListWatching 所有开启了到货提醒或自动加购的条目，按用户分组有序返回。
func (r *GormWishlistRepository) ListWatching() ([]models.WishlistEntry, error) {
	var entries []models.WishlistEntry
	err := r.db.Where("auto_add_to_cart = ? OR notify_on_restock = ?", true, true).
		Order("user_id ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// SetWasOutOfStock 更新缺货标记
func (r *GormWishlistRepository) SetWasOutOfStock(id uint, value bool) error {
	return withStoreRetry(func() error {
		return r.db.Model(&models.WishlistEntry{}).
			Where("id = ?", id).
			Update("was_out_of_stock", value).Error
	})
}

// ApplyBatch 一次事务内落盘一批条目的标记变更与删除，巡检按用户聚合写入。
func (r *GormWishlistRepository) ApplyBatch(flagIDs, clearIDs, deleteIDs []uint) error {
	if len(flagIDs) == 0 && len(clearIDs) == 0 && len(deleteIDs) == 0 {
		return nil
	}
	return withStoreRetry(func() error {
		return r.db.Transaction(func(tx *gorm.DB) error {
			if len(flagIDs) > 0 {
				if err := tx.Model(&models.WishlistEntry{}).
					Where("id IN ?", flagIDs).
					Update("was_out_of_stock", true).Error; err != nil {
					return err
				}
			}
			if len(clearIDs) > 0 {
				if err := tx.Model(&models.WishlistEntry{}).
					Where("id IN ?", clearIDs).
					Update("was_out_of_stock", false).Error; err != nil {
					return err
				}
			}
			if len(deleteIDs) > 0 {
				if err := tx.Where("id IN ?", deleteIDs).
					Delete(&models.WishlistEntry{}).Error; err != nil {
					return err
				}
			}
			return nil
		})
	})
}
