package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/peakform-next/internal/constants"
	"github.com/peakform-next/internal/logger"
	"github.com/peakform-next/internal/models"
	"github.com/peakform-next/internal/queue"
	"github.com/peakform-next/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// allowedTransitions 订单状态机
var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusConfirmed: true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusConfirmed: {
		constants.OrderStatusProcessing: true,
		constants.OrderStatusCancelled:  true,
	},
	constants.OrderStatusProcessing: {
		constants.OrderStatusShipped:   true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusShipped: {
		constants.OrderStatusDelivered: true,
	},
	constants.OrderStatusDelivered: {
		constants.OrderStatusReturned: true,
	},
}

// PricingOptions 计价参数
type PricingOptions struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFlatFee       decimal.Decimal
}

// CreateOrderItem 下单行
type CreateOrderItem struct {
	ProductID uint `json:"product_id" binding:"required"`
	VariantID uint `json:"variant_id"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// CreateOrderInput 下单参数
type CreateOrderInput struct {
	UserID        uint
	GuestEmail    string
	GuestPassword string
	Items         []CreateOrderItem
	ShippingInfo  models.JSON
	PaymentMethod string
}

// OrderService 订单履约
type OrderService struct {
	orderRepo           repository.OrderRepository
	cartRepo            repository.CartRepository
	productRepo         repository.ProductRepository
	variantRepo         repository.VariantRepository
	stock               *StockService
	cart                *CartService
	queueClient         *queue.Client
	pricing             PricingOptions
	returnWindowDays    int
	paymentExpireMinutes int
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	variantRepo repository.VariantRepository,
	stock *StockService,
	cart *CartService,
	queueClient *queue.Client,
	pricing PricingOptions,
	returnWindowDays int,
	paymentExpireMinutes int,
) *OrderService {
	if returnWindowDays <= 0 {
		returnWindowDays = 30
	}
	if paymentExpireMinutes <= 0 {
		paymentExpireMinutes = 30
	}
	return &OrderService{
		orderRepo:            orderRepo,
		cartRepo:             cartRepo,
		productRepo:          productRepo,
		variantRepo:          variantRepo,
		stock:                stock,
		cart:                 cart,
		queueClient:          queueClient,
		pricing:              pricing,
		returnWindowDays:     returnWindowDays,
		paymentExpireMinutes: paymentExpireMinutes,
	}
}

// CreateOrder 直接下单。
// 所有行在同一事务内预占库存并创建订单，任一行失败整体回滚。
func (o *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	items, err := mergeCreateOrderItems(input.Items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrInvalidOrderItem
	}

	lines, err := o.buildOrderItems(items)
	if err != nil {
		return nil, err
	}

	order, err := o.newOrderSkeleton(input, lines)
	if err != nil {
		return nil, err
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			if reserveErr := o.stock.Reserve(tx, line.ProductID, line.VariantID, line.Quantity); reserveErr != nil {
				return reserveErr
			}
		}
		if createErr := o.orderRepo.WithTx(tx).Create(order); createErr != nil {
			return classifyStoreError(createErr)
		}
		return o.appendStatusLog(tx, order.ID, "", constants.OrderStatusPending, "order created")
	})
	if err != nil {
		return nil, err
	}

	o.enqueueTimeoutCancel(order)
	return order, nil
}

// CheckoutCart 购物车结算。
// 购物车行已持有库存预占，事务内先归还再统一走预占路径，净库存不变，
// 同时重新校验有货标记；成功后购物车行直接删除（预占随订单转移）。
func (o *OrderService) CheckoutCart(input CreateOrderInput) (*models.Order, error) {
	var order *models.Order
	err := o.cart.WithUserLock(input.UserID, func() error {
		return models.DB.Transaction(func(tx *gorm.DB) error {
			carts := o.cartRepo.WithTx(tx)
			cartItems, listErr := carts.ListByUser(input.UserID)
			if listErr != nil {
				return classifyStoreError(listErr)
			}
			if len(cartItems) == 0 {
				return ErrEmptyCart
			}

			lines := make([]models.OrderItem, 0, len(cartItems))
			for _, cartItem := range cartItems {
				if releaseErr := o.stock.Release(tx, cartItem.ProductID, cartItem.VariantID, cartItem.Quantity); releaseErr != nil {
					return releaseErr
				}
				line, buildErr := o.buildOrderItemInTx(tx, cartItem.ProductID, cartItem.VariantID, cartItem.Quantity, cartItem.UnitPrice)
				if buildErr != nil {
					return buildErr
				}
				lines = append(lines, line)
			}

			built, buildErr := o.newOrderSkeleton(input, lines)
			if buildErr != nil {
				return buildErr
			}

			for _, line := range lines {
				if reserveErr := o.stock.Reserve(tx, line.ProductID, line.VariantID, line.Quantity); reserveErr != nil {
					return reserveErr
				}
			}
			if createErr := o.orderRepo.WithTx(tx).Create(built); createErr != nil {
				return classifyStoreError(createErr)
			}
			if logErr := o.appendStatusLog(tx, built.ID, "", constants.OrderStatusPending, "checkout from cart"); logErr != nil {
				return logErr
			}
			if clearErr := carts.ClearByUser(input.UserID); clearErr != nil {
				return classifyStoreError(clearErr)
			}
			order = built
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	o.enqueueTimeoutCancel(order)
	return order, nil
}

// GetOrder 用户读取订单，读取时惰性检查支付超时。
// 他人订单一律按不存在处理，避免暴露订单号空间。
func (o *OrderService) GetOrder(orderID, userID uint) (*models.Order, error) {
	order, err := o.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if err := o.ensureOrderCanceledIfExpired(order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetGuestOrder 游客凭订单号+邮箱+查单密码读取订单。
func (o *OrderService) GetGuestOrder(orderNo, email, password string) (*models.Order, error) {
	order, err := o.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if order == nil || order.UserID != 0 {
		return nil, ErrOrderNotFound
	}
	if !strings.EqualFold(strings.TrimSpace(email), order.GuestEmail) {
		return nil, ErrGuestCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(order.GuestPassword), []byte(password)) != nil {
		return nil, ErrGuestCredentials
	}
	if err := o.ensureOrderCanceledIfExpired(order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders 用户订单列表
func (o *OrderService) ListOrders(userID uint, filter repository.OrderListFilter) ([]models.Order, int64, error) {
	filter.UserID = userID
	orders, total, err := o.orderRepo.List(filter)
	if err != nil {
		return nil, 0, classifyStoreError(err)
	}
	o.ensureOrdersCanceledIfExpired(orders)
	return orders, total, nil
}

// ListOrdersAdmin 管理端订单列表
func (o *OrderService) ListOrdersAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	orders, total, err := o.orderRepo.List(filter)
	if err != nil {
		return nil, 0, classifyStoreError(err)
	}
	o.ensureOrdersCanceledIfExpired(orders)
	return orders, total, nil
}

// CancelOrder 用户取消订单并归还库存。
// 仅 pending/confirmed/processing 可取消。
func (o *OrderService) CancelOrder(orderID, userID uint) (*models.Order, error) {
	order, err := o.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if !isTransitionAllowed(order.Status, constants.OrderStatusCancelled) {
		return nil, ErrInvalidTransition
	}
	if err := o.cancelOrderReleasingStock(order, "cancelled by user"); err != nil {
		return nil, err
	}
	return order, nil
}

// RequestReturn 申请退货。
// 仅已送达订单可退，且必须在退货窗口内；退货不归还库存，商品走质检流程。
// itemIDs 可选，指定部分退货时必须属于该订单。
func (o *OrderService) RequestReturn(orderID, userID uint, reason string, itemIDs []uint) (*models.Order, error) {
	order, err := o.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusDelivered {
		return nil, ErrInvalidTransition
	}
	deliveredAt := order.DeliveredAt
	if deliveredAt == nil {
		return nil, ErrInvalidTransition
	}
	if time.Since(*deliveredAt) > time.Duration(o.returnWindowDays)*24*time.Hour {
		return nil, ErrReturnWindowExpired
	}

	if len(itemIDs) > 0 {
		known := make(map[uint]bool, len(order.Items))
		for _, item := range order.Items {
			known[item.ID] = true
		}
		for _, id := range itemIDs {
			if !known[id] {
				return nil, ErrItemNotFound
			}
		}
	}

	note := "return requested"
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		note = "return requested: " + trimmed
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if updateErr := o.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{
			"status": constants.OrderStatusReturned,
		}); updateErr != nil {
			return classifyStoreError(updateErr)
		}
		return o.appendStatusLog(tx, order.ID, order.Status, constants.OrderStatusReturned, note)
	})
	if err != nil {
		return nil, err
	}
	order.Status = constants.OrderStatusReturned
	return order, nil
}

// UpdateOrderStatus 管理端推进订单状态。
// 取消走归还库存路径；发货可携带物流单号；送达记录送达时间。
func (o *OrderService) UpdateOrderStatus(orderID uint, target, note, trackingNumber string) (*models.Order, error) {
	order, err := o.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !isTransitionAllowed(order.Status, target) {
		return nil, ErrInvalidTransition
	}

	note = strings.TrimSpace(note)
	if target == constants.OrderStatusCancelled {
		if note == "" {
			note = "cancelled by admin"
		}
		if err := o.cancelOrderReleasingStock(order, note); err != nil {
			return nil, err
		}
		return order, nil
	}
	if note == "" {
		note = "updated by admin"
	}

	updates := map[string]interface{}{"status": target}
	now := time.Now()
	switch target {
	case constants.OrderStatusShipped:
		if tracking := strings.TrimSpace(trackingNumber); tracking != "" {
			updates["tracking_number"] = tracking
		}
	case constants.OrderStatusDelivered:
		updates["delivered_at"] = &now
	}

	previous := order.Status
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if updateErr := o.orderRepo.WithTx(tx).UpdateFields(order.ID, updates); updateErr != nil {
			return classifyStoreError(updateErr)
		}
		return o.appendStatusLog(tx, order.ID, previous, target, note)
	})
	if err != nil {
		return nil, err
	}

	order.Status = target
	if target == constants.OrderStatusDelivered {
		order.DeliveredAt = &now
	}
	if tracking := strings.TrimSpace(trackingNumber); target == constants.OrderStatusShipped && tracking != "" {
		order.TrackingNumber = tracking
	}
	return order, nil
}

// HandlePaymentResult 处理支付回调。
// 成功：pending -> confirmed 并标记已支付；失败：订单保持 pending，支付状态记失败。
// 重复回调幂等处理。
func (o *OrderService) HandlePaymentResult(orderNo, outcome string) (*models.Order, error) {
	order, err := o.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.PaymentStatus == constants.PaymentStatusPaid {
		return order, nil
	}

	switch outcome {
	case constants.PaymentOutcomeSuccess:
		if order.Status != constants.OrderStatusPending {
			return nil, ErrInvalidTransition
		}
		now := time.Now()
		err = models.DB.Transaction(func(tx *gorm.DB) error {
			if updateErr := o.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{
				"status":         constants.OrderStatusConfirmed,
				"payment_status": constants.PaymentStatusPaid,
				"paid_at":        &now,
			}); updateErr != nil {
				return classifyStoreError(updateErr)
			}
			return o.appendStatusLog(tx, order.ID, constants.OrderStatusPending, constants.OrderStatusConfirmed, "payment succeeded")
		})
		if err != nil {
			return nil, err
		}
		order.Status = constants.OrderStatusConfirmed
		order.PaymentStatus = constants.PaymentStatusPaid
		order.PaidAt = &now
		return order, nil
	case constants.PaymentOutcomeFailure:
		if err := o.orderRepo.UpdateFields(order.ID, map[string]interface{}{
			"payment_status": constants.PaymentStatusFailed,
		}); err != nil {
			return nil, classifyStoreError(err)
		}
		order.PaymentStatus = constants.PaymentStatusFailed
		return order, nil
	default:
		return nil, fmt.Errorf("unknown payment outcome: %s", outcome)
	}
}

// CancelExpiredOrder 支付超时取消。
// 非 pending 或未到期时静默跳过，供延时任务与惰性检查共用。
func (o *OrderService) CancelExpiredOrder(orderID uint) error {
	order, err := o.orderRepo.GetByID(orderID)
	if err != nil {
		return classifyStoreError(err)
	}
	if order == nil {
		return nil
	}
	if order.Status != constants.OrderStatusPending {
		return nil
	}
	if order.ExpiresAt == nil || time.Now().Before(*order.ExpiresAt) {
		return nil
	}
	return o.cancelOrderReleasingStock(order, "payment timeout")
}

// cancelOrderReleasingStock 取消订单并归还全部订单行库存，随后同步内存中的订单状态。
func (o *OrderService) cancelOrderReleasingStock(order *models.Order, note string) error {
	now := time.Now()
	previous := order.Status
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		if updateErr := o.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{
			"status":      constants.OrderStatusCancelled,
			"canceled_at": &now,
		}); updateErr != nil {
			return classifyStoreError(updateErr)
		}
		for _, item := range order.Items {
			if releaseErr := o.stock.Release(tx, item.ProductID, item.VariantID, item.Quantity); releaseErr != nil {
				return releaseErr
			}
		}
		return o.appendStatusLog(tx, order.ID, previous, constants.OrderStatusCancelled, note)
	})
	if err != nil {
		return err
	}
	order.Status = constants.OrderStatusCancelled
	order.CanceledAt = &now
	return nil
}

// ensureOrderCanceledIfExpired 读取路径上的惰性超时检查。
func (o *OrderService) ensureOrderCanceledIfExpired(order *models.Order) error {
	if order == nil || order.Status != constants.OrderStatusPending {
		return nil
	}
	if order.ExpiresAt == nil || time.Now().Before(*order.ExpiresAt) {
		return nil
	}
	return o.cancelOrderReleasingStock(order, "payment timeout")
}

func (o *OrderService) ensureOrdersCanceledIfExpired(orders []models.Order) {
	for i := range orders {
		if err := o.ensureOrderCanceledIfExpired(&orders[i]); err != nil {
			logger.Warnw("order_lazy_expire_failed", "order_id", orders[i].ID, "error", err)
		}
	}
}

// newOrderSkeleton 组装订单主体并计价。
func (o *OrderService) newOrderSkeleton(input CreateOrderInput, lines []models.OrderItem) (*models.Order, error) {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.TotalPrice.Decimal)
	}
	tax := subtotal.Mul(o.pricing.TaxRate).Round(2)
	shipping := o.pricing.ShippingFlatFee
	if subtotal.GreaterThanOrEqual(o.pricing.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	total := subtotal.Add(tax).Add(shipping)

	expiresAt := time.Now().Add(time.Duration(o.paymentExpireMinutes) * time.Minute)
	order := &models.Order{
		OrderNo:        generateOrderNo(),
		UserID:         input.UserID,
		Status:         constants.OrderStatusPending,
		PaymentStatus:  constants.PaymentStatusPending,
		PaymentMethod:  strings.TrimSpace(input.PaymentMethod),
		Currency:       constants.CurrencyDefault,
		SubtotalAmount: models.NewMoneyFromDecimal(subtotal),
		TaxAmount:      models.NewMoneyFromDecimal(tax),
		ShippingAmount: models.NewMoneyFromDecimal(shipping),
		TotalAmount:    models.NewMoneyFromDecimal(total),
		ShippingInfo:   input.ShippingInfo,
		ExpiresAt:      &expiresAt,
		Items:          lines,
	}

	if input.UserID == 0 {
		email := strings.ToLower(strings.TrimSpace(input.GuestEmail))
		if email == "" || strings.TrimSpace(input.GuestPassword) == "" {
			return nil, ErrGuestCredentials
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.GuestPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		order.GuestEmail = email
		order.GuestPassword = string(hash)
	}
	return order, nil
}

// buildOrderItems 校验商品并冻结下单快照。
func (o *OrderService) buildOrderItems(items []CreateOrderItem) ([]models.OrderItem, error) {
	lines := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		line, err := o.buildOrderItemInTx(nil, item.ProductID, item.VariantID, item.Quantity, models.Money{})
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// buildOrderItemInTx 生成单个订单行。
// 传入非零快照单价时沿用（购物车结算），否则取当前售价。
func (o *OrderService) buildOrderItemInTx(tx *gorm.DB, productID, variantID uint, quantity int, snapshotPrice models.Money) (models.OrderItem, error) {
	products := o.productRepo
	variants := o.variantRepo
	if tx != nil {
		products = products.WithTx(tx)
		variants = variants.WithTx(tx)
	}

	product, err := products.GetByID(productID)
	if err != nil {
		return models.OrderItem{}, classifyStoreError(err)
	}
	if product == nil {
		return models.OrderItem{}, ErrProductNotFound
	}
	if !product.IsActive {
		return models.OrderItem{}, ErrProductInactive
	}

	unitPrice := product.PriceAmount
	variantName := ""
	if variantID > 0 {
		variant, err := variants.GetByID(variantID)
		if err != nil {
			return models.OrderItem{}, classifyStoreError(err)
		}
		if variant == nil || variant.ProductID != productID {
			return models.OrderItem{}, ErrVariantNotFound
		}
		unitPrice = variant.PriceAmount
		variantName = variant.Name
	}
	if !snapshotPrice.Decimal.IsZero() {
		unitPrice = snapshotPrice
	}

	return models.OrderItem{
		ProductID:   productID,
		VariantID:   variantID,
		ProductName: product.Name,
		VariantName: variantName,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
		TotalPrice:  unitPrice.MulQuantity(quantity),
	}, nil
}

func (o *OrderService) appendStatusLog(tx *gorm.DB, orderID uint, from, to, note string) error {
	return classifyStoreError(o.orderRepo.WithTx(tx).AppendStatusLog(&models.OrderStatusLog{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
	}))
}

// enqueueTimeoutCancel 下发支付超时取消任务。
// 入队失败只记日志，读取路径的惰性检查会兜底。
func (o *OrderService) enqueueTimeoutCancel(order *models.Order) {
	if o.queueClient == nil || !o.queueClient.Enabled() || order.ExpiresAt == nil {
		return
	}
	delay := time.Until(*order.ExpiresAt)
	if delay < 0 {
		delay = 0
	}
	if err := o.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{OrderID: order.ID}, delay); err != nil {
		logger.Warnw("order_enqueue_timeout_cancel_failed", "order_id", order.ID, "error", err)
	}
}

func isTransitionAllowed(current, target string) bool {
	nexts, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("PF%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}

// mergeCreateOrderItems 合并重复 商品+规格 的下单行。
func mergeCreateOrderItems(items []CreateOrderItem) ([]CreateOrderItem, error) {
	if len(items) == 0 {
		return nil, nil
	}
	merged := make([]CreateOrderItem, 0, len(items))
	indexMap := make(map[string]int)
	for _, item := range items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			return nil, ErrInvalidOrderItem
		}
		key := fmt.Sprintf("%d:%d", item.ProductID, item.VariantID)
		if idx, ok := indexMap[key]; ok {
			merged[idx].Quantity += item.Quantity
			continue
		}
		indexMap[key] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}
