package service

import (
	"context"
	"time"

	"github.com/peakform-next/internal/cache"
	"github.com/peakform-next/internal/logger"
	"github.com/peakform-next/internal/models"
	"github.com/peakform-next/internal/repository"
)

const productCacheTTL = 5 * time.Minute

// ProductService 商品目录
type ProductService struct {
	productRepo repository.ProductRepository
	variantRepo repository.VariantRepository
}

// NewProductService 创建商品服务
func NewProductService(productRepo repository.ProductRepository, variantRepo repository.VariantRepository) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		variantRepo: variantRepo,
	}
}

// GetProduct 读取商品详情，走 Redis 旁路缓存。
// 库存台账的每次写入都会使对应缓存失效。
func (s *ProductService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	if cache.Enabled() {
		var cached models.Product
		hit, err := cache.GetJSON(ctx, productCacheKey(id), &cached)
		if err != nil {
			logger.Warnw("product_cache_read_failed", "product_id", id, "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if cache.Enabled() {
		if err := cache.SetJSON(ctx, productCacheKey(id), product, productCacheTTL); err != nil {
			logger.Warnw("product_cache_write_failed", "product_id", id, "error", err)
		}
	}
	return product, nil
}

// GetProductBySlug 根据标识读取商品
func (s *ProductService) GetProductBySlug(slug string) (*models.Product, error) {
	product, err := s.productRepo.GetBySlug(slug)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// ListProducts 商品列表
func (s *ProductService) ListProducts(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	products, total, err := s.productRepo.List(filter)
	if err != nil {
		return nil, 0, classifyStoreError(err)
	}
	return products, total, nil
}

// CreateProduct 管理端创建商品
func (s *ProductService) CreateProduct(product *models.Product) error {
	product.InStock = product.StockQuantity > 0
	for i := range product.Variants {
		product.Variants[i].InStock = product.Variants[i].StockQuantity > 0
	}
	return classifyStoreError(s.productRepo.Create(product))
}

// UpdateProduct 管理端更新商品并失效缓存
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := s.productRepo.Update(product); err != nil {
		return classifyStoreError(err)
	}
	if cache.Enabled() {
		if err := cache.Del(ctx, productCacheKey(product.ID)); err != nil {
			logger.Warnw("product_cache_invalidate_failed", "product_id", product.ID, "error", err)
		}
	}
	return nil
}
