package service

import (
	"github.com/peakform-next/internal/logger"
	"github.com/peakform-next/internal/models"
	"github.com/peakform-next/internal/repository"
)

// WishlistInput 心愿单写入参数
type WishlistInput struct {
	ProductID       uint `json:"product_id" binding:"required"`
	VariantID       uint `json:"variant_id"`
	AutoAddToCart   bool `json:"auto_add_to_cart"`
	NotifyOnRestock bool `json:"notify_on_restock"`
}

// WishlistService 心愿单
type WishlistService struct {
	wishlistRepo repository.WishlistRepository
	stock        *StockService
}

// NewWishlistService 创建心愿单服务
func NewWishlistService(wishlistRepo repository.WishlistRepository, stock *StockService) *WishlistService {
	return &WishlistService{
		wishlistRepo: wishlistRepo,
		stock:        stock,
	}
}

// List 用户心愿单。
// 列表同时重新观测库存：已无货的条目顺手置缺货标记，供巡检识别到货。
func (s *WishlistService) List(userID uint) ([]models.WishlistEntry, error) {
	entries, err := s.wishlistRepo.ListByUser(userID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	for i := range entries {
		entry := &entries[i]
		if entry.WasOutOfStock {
			continue
		}
		available, availErr := s.stock.AvailableStock(entry.ProductID, entry.VariantID)
		if availErr != nil || available > 0 {
			continue
		}
		if err := s.wishlistRepo.SetWasOutOfStock(entry.ID, true); err != nil {
			logger.Warnw("wishlist_flag_update_failed", "entry_id", entry.ID, "error", err)
			continue
		}
		entry.WasOutOfStock = true
	}
	return entries, nil
}

// Save 新增或更新心愿单条目。
// 当前无货的条目立即置缺货标记，补货巡检据此识别到货事件。
func (s *WishlistService) Save(userID uint, input WishlistInput) (*models.WishlistEntry, error) {
	available, err := s.stock.AvailableStock(input.ProductID, input.VariantID)
	if err != nil {
		return nil, err
	}

	entry, err := s.wishlistRepo.Get(userID, input.ProductID, input.VariantID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if entry == nil {
		entry = &models.WishlistEntry{
			UserID:    userID,
			ProductID: input.ProductID,
			VariantID: input.VariantID,
		}
	}
	entry.AutoAddToCart = input.AutoAddToCart
	entry.NotifyOnRestock = input.NotifyOnRestock
	if available == 0 {
		entry.WasOutOfStock = true
	}
	if err := s.wishlistRepo.Save(entry); err != nil {
		return nil, classifyStoreError(err)
	}
	return entry, nil
}

// Remove 删除心愿单条目
func (s *WishlistService) Remove(userID, productID, variantID uint) error {
	entry, err := s.wishlistRepo.Get(userID, productID, variantID)
	if err != nil {
		return classifyStoreError(err)
	}
	if entry == nil {
		return ErrItemNotFound
	}
	return classifyStoreError(s.wishlistRepo.Delete(userID, productID, variantID))
}
