package service

import (
	"errors"
	"sync"

	"github.com/peakform-next/internal/constants"
	"github.com/peakform-next/internal/logger"
	"github.com/peakform-next/internal/models"
	"github.com/peakform-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	cartLockStripes       = 64
	cartReserveMaxRetries = 3
)

// cartLocks 按用户分片的互斥锁，保证同一用户的购物车写入串行。
type cartLocks struct {
	stripes [cartLockStripes]sync.Mutex
}

func (l *cartLocks) forUser(userID uint) *sync.Mutex {
	return &l.stripes[userID%cartLockStripes]
}

// CartMutation 购物车写入结果
type CartMutation struct {
	Item      *models.CartItem `json:"item"`
	Requested int              `json:"requested"` // 请求数量
	Applied   int              `json:"applied"`   // 实际写入数量
	Clamped   bool             `json:"clamped"`   // 是否因库存不足被收窄
}

// CartView 购物车视图
type CartView struct {
	Items     []models.CartItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  models.Money      `json:"subtotal"`
}

// AnonymousCartItem 匿名购物车行
type AnonymousCartItem struct {
	ProductID uint `json:"product_id" binding:"required"`
	VariantID uint `json:"variant_id"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// CartSyncFailure 合并失败行
type CartSyncFailure struct {
	ProductID uint   `json:"product_id"`
	VariantID uint   `json:"variant_id"`
	Reason    string `json:"reason"`
}

// CartSyncResult 匿名购物车合并结果
type CartSyncResult struct {
	Succeeded []CartMutation    `json:"succeeded"`
	Failed    []CartSyncFailure `json:"failed"`
}

// CartService 购物车。
// 购物车行持有库存预占：加购即在台账上扣减，移除与清空时归还。
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	variantRepo repository.VariantRepository
	stock       *StockService
	locks       cartLocks
}

// NewCartService 创建购物车服务
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	variantRepo repository.VariantRepository,
	stock *StockService,
) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		variantRepo: variantRepo,
		stock:       stock,
	}
}

// WithUserLock 持有用户购物车锁执行回调，供结算等跨服务流程复用串行语义。
func (s *CartService) WithUserLock(userID uint, fn func() error) error {
	mu := s.locks.forUser(userID)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// AddItem 加购。
// 同一 商品+规格 已存在时合并数量；库存不足时收窄到可售数量并在结果中标记。
func (s *CartService) AddItem(userID, productID, variantID uint, quantity int) (*CartMutation, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	mu := s.locks.forUser(userID)
	mu.Lock()
	defer mu.Unlock()

	unitPrice, err := s.resolveUnitPrice(productID, variantID)
	if err != nil {
		return nil, err
	}

	mutation := &CartMutation{Requested: quantity}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		applied, clamped, reserveErr := s.reserveUpTo(tx, productID, variantID, quantity)
		if reserveErr != nil {
			return reserveErr
		}

		carts := s.cartRepo.WithTx(tx)
		item, getErr := carts.Get(userID, productID, variantID)
		if getErr != nil {
			return classifyStoreError(getErr)
		}
		if item == nil {
			item = &models.CartItem{
				UserID:    userID,
				ProductID: productID,
				VariantID: variantID,
				Quantity:  applied,
				UnitPrice: unitPrice,
			}
		} else {
			item.Quantity += applied
		}
		if saveErr := carts.Save(item); saveErr != nil {
			return classifyStoreError(saveErr)
		}

		mutation.Item = item
		mutation.Applied = applied
		mutation.Clamped = clamped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mutation, nil
}

// UpdateQuantity 设置购物车行数量。
// 目标数量小于等于 0 等同移除；增量与加购同路径，库存不足时收窄并在结果中标记。
func (s *CartService) UpdateQuantity(userID, productID, variantID uint, quantity int) (*CartMutation, error) {
	if quantity <= 0 {
		if err := s.RemoveItem(userID, productID, variantID); err != nil {
			return nil, err
		}
		return &CartMutation{Requested: quantity}, nil
	}

	mu := s.locks.forUser(userID)
	mu.Lock()
	defer mu.Unlock()

	mutation := &CartMutation{Requested: quantity}
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		carts := s.cartRepo.WithTx(tx)
		item, getErr := carts.Get(userID, productID, variantID)
		if getErr != nil {
			return classifyStoreError(getErr)
		}
		if item == nil {
			return ErrItemNotFound
		}

		target := quantity
		clamped := false
		delta := quantity - item.Quantity
		if delta > 0 {
			granted, wasClamped, reserveErr := s.reserveUpTo(tx, productID, variantID, delta)
			if reserveErr != nil {
				return reserveErr
			}
			target = item.Quantity + granted
			clamped = wasClamped
		} else if delta < 0 {
			if releaseErr := s.stock.Release(tx, productID, variantID, -delta); releaseErr != nil {
				return releaseErr
			}
		}

		item.Quantity = target
		if saveErr := carts.Save(item); saveErr != nil {
			return classifyStoreError(saveErr)
		}
		mutation.Item = item
		mutation.Applied = target
		mutation.Clamped = clamped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mutation, nil
}

// RemoveItem 移除购物车行并归还预占库存。
func (s *CartService) RemoveItem(userID, productID, variantID uint) error {
	mu := s.locks.forUser(userID)
	mu.Lock()
	defer mu.Unlock()

	return models.DB.Transaction(func(tx *gorm.DB) error {
		carts := s.cartRepo.WithTx(tx)
		item, err := carts.Get(userID, productID, variantID)
		if err != nil {
			return classifyStoreError(err)
		}
		if item == nil {
			return ErrItemNotFound
		}
		if err := s.stock.Release(tx, productID, variantID, item.Quantity); err != nil {
			return err
		}
		return classifyStoreError(carts.Delete(item.ID))
	})
}

// Clear 清空购物车，幂等：空购物车直接成功。
func (s *CartService) Clear(userID uint) error {
	mu := s.locks.forUser(userID)
	mu.Lock()
	defer mu.Unlock()

	return models.DB.Transaction(func(tx *gorm.DB) error {
		carts := s.cartRepo.WithTx(tx)
		items, err := carts.ListByUser(userID)
		if err != nil {
			return classifyStoreError(err)
		}
		for _, item := range items {
			if err := s.stock.Release(tx, item.ProductID, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}
		return classifyStoreError(carts.ClearByUser(userID))
	})
}

// GetCart 读取购物车。
// 读取失败时记日志并返回空购物车，调用方永远拿到可用视图。
func (s *CartService) GetCart(userID uint) *CartView {
	items, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		logger.Errorw("cart_load_failed", "user_id", userID, "error", err)
		return &CartView{Items: []models.CartItem{}, Subtotal: models.NewMoneyFromDecimal(decimal.Zero)}
	}
	if items == nil {
		items = []models.CartItem{}
	}

	subtotal := decimal.Zero
	count := 0
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.MulQuantity(item.Quantity).Decimal)
		count += item.Quantity
	}
	return &CartView{
		Items:     items,
		ItemCount: count,
		Subtotal:  models.NewMoneyFromDecimal(subtotal),
	}
}

// SyncFromAnonymous 合并匿名购物车。
// 逐行走加购路径，部分失败不影响其他行，结果按 成功/失败 分组返回。
func (s *CartService) SyncFromAnonymous(userID uint, items []AnonymousCartItem) *CartSyncResult {
	result := &CartSyncResult{
		Succeeded: []CartMutation{},
		Failed:    []CartSyncFailure{},
	}
	for _, line := range items {
		mutation, err := s.AddItem(userID, line.ProductID, line.VariantID, line.Quantity)
		if err != nil {
			result.Failed = append(result.Failed, CartSyncFailure{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Reason:    syncFailureReason(err),
			})
			continue
		}
		result.Succeeded = append(result.Succeeded, *mutation)
	}
	return result
}

// reserveUpTo 尽量预占请求数量，库存不足时收窄到当前可售数量。
// 读取与条件更新之间存在竞争，未命中时重读重试。
func (s *CartService) reserveUpTo(tx *gorm.DB, productID, variantID uint, quantity int) (int, bool, error) {
	want := quantity
	for attempt := 0; attempt < cartReserveMaxRetries; attempt++ {
		err := s.stock.Reserve(tx, productID, variantID, want)
		if err == nil {
			return want, want < quantity, nil
		}
		if !errors.Is(err, ErrInsufficientStock) {
			return 0, false, err
		}
		available, availErr := s.availableInTx(tx, productID, variantID)
		if availErr != nil {
			return 0, false, availErr
		}
		if available <= 0 {
			return 0, false, ErrOutOfStock
		}
		if available < want {
			want = available
		}
	}
	return 0, false, ErrStoreBusy
}

func (s *CartService) availableInTx(tx *gorm.DB, productID, variantID uint) (int, error) {
	if variantID > 0 {
		variant, err := s.variantRepo.WithTx(tx).GetByID(variantID)
		if err != nil {
			return 0, classifyStoreError(err)
		}
		if variant == nil || variant.ProductID != productID {
			return 0, ErrVariantNotFound
		}
		return availableOf(variant.InStock, variant.StockQuantity), nil
	}
	product, err := s.productRepo.WithTx(tx).GetByID(productID)
	if err != nil {
		return 0, classifyStoreError(err)
	}
	if product == nil {
		return 0, ErrProductNotFound
	}
	return availableOf(product.InStock, product.StockQuantity), nil
}

// resolveUnitPrice 校验商品与规格并取加购时单价。
func (s *CartService) resolveUnitPrice(productID, variantID uint) (models.Money, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return models.Money{}, classifyStoreError(err)
	}
	if product == nil {
		return models.Money{}, ErrProductNotFound
	}
	if !product.IsActive {
		return models.Money{}, ErrProductInactive
	}
	if variantID == 0 {
		return product.PriceAmount, nil
	}

	variant, err := s.variantRepo.GetByID(variantID)
	if err != nil {
		return models.Money{}, classifyStoreError(err)
	}
	if variant == nil || variant.ProductID != productID {
		return models.Money{}, ErrVariantNotFound
	}
	if !variant.IsActive {
		return models.Money{}, ErrProductInactive
	}
	return variant.PriceAmount, nil
}

func syncFailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOutOfStock):
		return constants.CartFailReasonOutOfStock
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrVariantNotFound):
		return constants.CartFailReasonNotFound
	case errors.Is(err, ErrProductInactive):
		return constants.CartFailReasonInactive
	default:
		return err.Error()
	}
}
