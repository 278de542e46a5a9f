package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/peakform-next/internal/cache"
	"github.com/peakform-next/internal/logger"
	"github.com/peakform-next/internal/repository"

	"gorm.io/gorm"
)

// StockService 库存台账。
// 商品与规格各自记账；规格维度的库存只记在规格行上。
// 有货标记优先于库存数量：标记为无货时可售数量一律按 0 计。
type StockService struct {
	productRepo repository.ProductRepository
	variantRepo repository.VariantRepository
}

// NewStockService 创建库存服务
func NewStockService(productRepo repository.ProductRepository, variantRepo repository.VariantRepository) *StockService {
	return &StockService{
		productRepo: productRepo,
		variantRepo: variantRepo,
	}
}

// AvailableStock 查询可售数量。
// 规格存在时以规格行为准，否则以商品行为准。
func (s *StockService) AvailableStock(productID, variantID uint) (int, error) {
	if variantID > 0 {
		variant, err := s.variantRepo.GetByID(variantID)
		if err != nil {
			return 0, err
		}
		if variant == nil || variant.ProductID != productID {
			return 0, ErrVariantNotFound
		}
		return availableOf(variant.InStock, variant.StockQuantity), nil
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return 0, err
	}
	if product == nil {
		return 0, ErrProductNotFound
	}
	return availableOf(product.InStock, product.StockQuantity), nil
}

// Reserve 预占库存。
// 条件更新未命中时回读行做错误分类：无货返回 ErrOutOfStock，余量不足返回 ErrInsufficientStock。
func (s *StockService) Reserve(tx *gorm.DB, productID, variantID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	if variantID > 0 {
		affected, err := s.variantRepo.WithTx(tx).ReserveStock(variantID, quantity)
		if err != nil {
			return classifyStoreError(err)
		}
		if affected > 0 {
			s.invalidateProductCache(productID)
			return nil
		}
		variant, err := s.variantRepo.WithTx(tx).GetByID(variantID)
		if err != nil {
			return classifyStoreError(err)
		}
		if variant == nil || variant.ProductID != productID {
			return ErrVariantNotFound
		}
		if availableOf(variant.InStock, variant.StockQuantity) == 0 {
			return ErrOutOfStock
		}
		return ErrInsufficientStock
	}

	affected, err := s.productRepo.WithTx(tx).ReserveStock(productID, quantity)
	if err != nil {
		return classifyStoreError(err)
	}
	if affected > 0 {
		s.invalidateProductCache(productID)
		return nil
	}
	product, err := s.productRepo.WithTx(tx).GetByID(productID)
	if err != nil {
		return classifyStoreError(err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if availableOf(product.InStock, product.StockQuantity) == 0 {
		return ErrOutOfStock
	}
	return ErrInsufficientStock
}

// Release 释放库存。
// 对不存在的行保持宽容，记一条告警日志后按成功处理，避免取消流程被挂起。
func (s *StockService) Release(tx *gorm.DB, productID, variantID uint, quantity int) error {
	if quantity <= 0 {
		return nil
	}

	var affected int64
	var err error
	if variantID > 0 {
		affected, err = s.variantRepo.WithTx(tx).ReleaseStock(variantID, quantity)
	} else {
		affected, err = s.productRepo.WithTx(tx).ReleaseStock(productID, quantity)
	}
	if err != nil {
		return classifyStoreError(err)
	}
	if affected == 0 {
		logger.Warnw("stock_release_suspicious",
			"product_id", productID,
			"variant_id", variantID,
			"quantity", quantity,
		)
		return nil
	}
	s.invalidateProductCache(productID)
	return nil
}

// Restock 管理端补货，直接覆盖库存数量并重算有货标记。
func (s *StockService) Restock(productID, variantID uint, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}

	if variantID > 0 {
		variant, err := s.variantRepo.GetByID(variantID)
		if err != nil {
			return classifyStoreError(err)
		}
		if variant == nil || variant.ProductID != productID {
			return ErrVariantNotFound
		}
		if err := s.variantRepo.SetStock(variantID, quantity); err != nil {
			return classifyStoreError(err)
		}
		s.invalidateProductCache(productID)
		return nil
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return classifyStoreError(err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := s.productRepo.SetStock(productID, quantity); err != nil {
		return classifyStoreError(err)
	}
	s.invalidateProductCache(productID)
	return nil
}

// SetAvailability 管理端覆盖有货标记。
// 标记覆盖不改库存数量，用于临时下架等场景。
func (s *StockService) SetAvailability(productID, variantID uint, inStock bool) error {
	if variantID > 0 {
		variant, err := s.variantRepo.GetByID(variantID)
		if err != nil {
			return classifyStoreError(err)
		}
		if variant == nil || variant.ProductID != productID {
			return ErrVariantNotFound
		}
		if err := s.variantRepo.SetInStock(variantID, inStock); err != nil {
			return classifyStoreError(err)
		}
		s.invalidateProductCache(productID)
		return nil
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return classifyStoreError(err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := s.productRepo.SetInStock(productID, inStock); err != nil {
		return classifyStoreError(err)
	}
	s.invalidateProductCache(productID)
	return nil
}

func (s *StockService) invalidateProductCache(productID uint) {
	if !cache.Enabled() {
		return
	}
	if err := cache.Del(context.Background(), productCacheKey(productID)); err != nil {
		logger.Warnw("product_cache_invalidate_failed", "product_id", productID, "error", err)
	}
}

func productCacheKey(productID uint) string {
	return fmt.Sprintf("product:%d", productID)
}

// availableOf 可售数量，有货标记优先于库存数量。
func availableOf(inStock bool, stockQuantity int) int {
	if !inStock {
		return 0
	}
	if stockQuantity < 0 {
		return 0
	}
	return stockQuantity
}

// classifyStoreError 将重试耗尽的瞬时存储错误映射为 ErrStoreBusy。
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if isRetryableStoreMessage(err) {
		return fmt.Errorf("%w: %v", ErrStoreBusy, err)
	}
	return err
}

func isRetryableStoreMessage(err error) bool {
	message := strings.ToLower(err.Error())
	for _, marker := range []string{
		"database is locked",
		"database table is locked",
		"could not serialize access",
		"deadlock detected",
	} {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}
