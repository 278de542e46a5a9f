package service

import (
	"errors"
	"testing"
	"time"

	"github.com/peakform-next/internal/constants"
	"github.com/peakform-next/internal/models"
	"github.com/peakform-next/internal/repository"

	"github.com/shopspring/decimal"
)

func defaultPricing() PricingOptions {
	return PricingOptions{
		TaxRate:               decimal.NewFromFloat(0.08),
		FreeShippingThreshold: decimal.NewFromInt(50),
		ShippingFlatFee:       decimal.RequireFromString("5.99"),
	}
}

func newOrderFixture(t *testing.T, name string) (*OrderService, *CartService) {
	db := newTestDB(t, name)
	productRepo := repository.NewProductRepository(db)
	variantRepo := repository.NewVariantRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	stock := NewStockService(productRepo, variantRepo)
	cart := NewCartService(cartRepo, productRepo, variantRepo, stock)
	order := NewOrderService(orderRepo, cartRepo, productRepo, variantRepo, stock, cart, nil, defaultPricing(), 30, 30)
	return order, cart
}

func TestCheckoutCartPricingAboveFreeShipping(t *testing.T) {
	orderSvc, cartSvc := newOrderFixture(t, "order_pricing_free")
	db := mustDB(t)
	shake := createTestProduct(t, db, "protein-shake", "20.00", 10)
	bar := createTestProduct(t, db, "energy-bars", "15.00", 10)

	if _, err := cartSvc.AddItem(1, shake.ID, 0, 2); err != nil {
		t.Fatalf("add shake failed: %v", err)
	}
	if _, err := cartSvc.AddItem(1, bar.ID, 0, 1); err != nil {
		t.Fatalf("add bar failed: %v", err)
	}

	order, err := orderSvc.CheckoutCart(CreateOrderInput{
		UserID:       1,
		ShippingInfo: models.JSON{"city": "Austin"},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if !order.SubtotalAmount.Decimal.Equal(decimal.RequireFromString("55.00")) {
		t.Fatalf("expected subtotal 55.00, got %s", order.SubtotalAmount.String())
	}
	if !order.TaxAmount.Decimal.Equal(decimal.RequireFromString("4.40")) {
		t.Fatalf("expected tax 4.40, got %s", order.TaxAmount.String())
	}
	if !order.ShippingAmount.Decimal.IsZero() {
		t.Fatalf("expected free shipping, got %s", order.ShippingAmount.String())
	}
	if !order.TotalAmount.Decimal.Equal(decimal.RequireFromString("59.40")) {
		t.Fatalf("expected total 59.40, got %s", order.TotalAmount.String())
	}

	view := cartSvc.GetCart(1)
	if len(view.Items) != 0 {
		t.Fatalf("expected cart cleared after checkout, got %d lines", len(view.Items))
	}
	quantity, _ := productStock(t, db, shake.ID)
	if quantity != 8 {
		t.Fatalf("expected reservation carried into order, got stock %d", quantity)
	}
}

func TestCheckoutCartFlatShippingBelowThreshold(t *testing.T) {
	orderSvc, cartSvc := newOrderFixture(t, "order_pricing_flat")
	db := mustDB(t)
	product := createTestProduct(t, db, "fish-oil", "18.50", 5)

	if _, err := cartSvc.AddItem(1, product.ID, 0, 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	order, err := orderSvc.CheckoutCart(CreateOrderInput{UserID: 1, ShippingInfo: models.JSON{}})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if !order.ShippingAmount.Decimal.Equal(decimal.RequireFromString("5.99")) {
		t.Fatalf("expected flat shipping 5.99, got %s", order.ShippingAmount.String())
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	orderSvc, _ := newOrderFixture(t, "order_empty_cart")

	if _, err := orderSvc.CheckoutCart(CreateOrderInput{UserID: 1}); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected empty cart error, got: %v", err)
	}
}

func TestCreateOrderRollsBackOnInsufficientLine(t *testing.T) {
	orderSvc, _ := newOrderFixture(t, "order_rollback")
	db := mustDB(t)
	plenty := createTestProduct(t, db, "multivitamin", "14.99", 10)
	scarce := createTestProduct(t, db, "limited-edition", "59.99", 1)

	_, err := orderSvc.CreateOrder(CreateOrderInput{
		UserID: 1,
		Items: []CreateOrderItem{
			{ProductID: plenty.ID, Quantity: 2},
			{ProductID: scarce.ID, Quantity: 3},
		},
		ShippingInfo: models.JSON{},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got: %v", err)
	}

	quantity, _ := productStock(t, db, plenty.ID)
	if quantity != 10 {
		t.Fatalf("expected first line rolled back, got stock %d", quantity)
	}
	var count int64
	if err := db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no order rows, got %d", count)
	}
}

func TestCancelOrderReleasesStock(t *testing.T) {
	orderSvc, _ := newOrderFixture(t, "order_cancel")
	db := mustDB(t)
	product := createTestProduct(t, db, "beta-alanine", "16.99", 8)

	order, err := orderSvc.CreateOrder(CreateOrderInput{
		UserID:       1,
		Items:        []CreateOrderItem{{ProductID: product.ID, Quantity: 3}},
		ShippingInfo: models.JSON{},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	quantity, _ := productStock(t, db, product.ID)
	if quantity != 5 {
		t.Fatalf("expected stock 5 after order, got %d", quantity)
	}

	canceled, err := orderSvc.CancelOrder(order.ID, 1)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if canceled.Status != constants.OrderStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", canceled.Status)
	}
	quantity, _ = productStock(t, db, product.ID)
	if quantity != 8 {
		t.Fatalf("expected stock restored, got %d", quantity)
	}
}

func TestForeignOrderLooksAbsent(t *testing.T) {
	orderSvc, _ := newOrderFixture(t, "order_ownership")
	db := mustDB(t)
	product := createTestProduct(t, db, "taurine", "11.99", 5)

	order, err := orderSvc.CreateOrder(CreateOrderInput{
		UserID:       1,
		Items:        []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingInfo: models.JSON{},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 他人订单不得暴露存在性，读取与取消都按不存在处理。
	if _, err := orderSvc.GetOrder(order.ID, 2); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected order not found for foreign reader, got: %v", err)
	}
	if _, err := orderSvc.CancelOrder(order.ID, 2); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected order not found for foreign cancel, got: %v", err)
	}
	quantity, _ := productStock(t, db, product.ID)
	if quantity != 4 {
		t.Fatalf("foreign cancel must not touch stock, got %d", quantity)
	}
}

func TestCancelShippedOrderRejected(t *testing.T) {
	orderSvc, _ := newOrderFixture(t, "order_cancel_shipped")
	db := mustDB(t)
	product := createTestProduct(t, db, "hmb", "23.99", 5)

	order, err := orderSvc.CreateOrder(CreateOrderInput{
		UserID:       1,
		Items:        []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingInfo: models.JSON{},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("status", constants.OrderStatusShipped).Error; err != nil {
		t.Fatalf("force shipped failed: %v", err)
	}

	if _, err := orderSvc.CancelOrder(order.ID, 1); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got: %v", err)
	}
	quantity, _ := productStock(t, db, product.ID)
	if quantity != 4 {
		t.Fatalf("stock must stay reserved for shipped order, got %d", quantity)
	}
}

func TestRequestReturnInsideWindow(t *testing.T) {
	orderSvc, _ := newOrderFixture(t, "order_return_ok")
	db := mustDB(t)
	product := createTestProduct(t, db, "probiotic", "29.99", 5)

	order, err := orderSvc.CreateOrder(CreateOrderInput{
		UserID:       1,
		Items:        []CreateOrderItem{{ProductID: product.ID, Quantity: 2}},
		ShippingInfo: models.JSON{},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	deliveredAt := time.Now().Add(-10 * 24 * time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"status":       constants.OrderStatusDelivered,
		"delivered_at": &deliveredAt,
	}).Error; err != nil {
		t.Fatalf("force delivered failed: %v", err)
	}

	if _, err := orderSvc.RequestReturn(order.ID, 1, "damaged seal", []uint{999999}); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected item not found for foreign item id, got: %v", err)
	}

	returned, err := orderSvc.RequestReturn(order.ID, 1, "damaged seal", nil)
	if err != nil {
		t.Fatalf("request return failed: %v", err)
	}
	if returned.Status != constants.OrderStatusReturned {
		t.Fatalf("expected returned status, got %s", returned.Status)
	}

	// 退货不回补库存，商品需走质检。
	quantity, _ := productStock(t, db, product.ID)
	if quantity != 3 {
		t.Fatalf("return must not release stock, got %d", quantity)
	}
}

func TestRequestReturnWindowExpired(t *testing.T) {
	orderSvc, _ := newOrderFixture(t, "order_return_expired")
	db := mustDB(t)
	product := createTestProduct(t, db, "ashwagandha", "19.99", 5)

	order, err := orderSvc.CreateOrder(CreateOrderInput{
		UserID:       1,
		Items:        []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingInfo: models.JSON{},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	deliveredAt := time.Now().Add(-31 * 24 * time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"status":       constants.OrderStatusDelivered,
		"delivered_at": &deliveredAt,
	}).Error; err != nil {
		t.Fatalf("force delivered failed: %v", err)
	}

	if _, err := orderSvc.RequestReturn(order.ID, 1, "changed my mind", nil); !errors.Is(err, ErrReturnWindowExpired) {
		t.Fatalf("expected return window expired, got: %v", err)
	}
}

func TestHandlePaymentResultSuccessAndIdempotency(t *testing.T) {
	orderSvc, _ := newOrderFixture(t, "order_payment_ok")
	db := mustDB(t)
	product := createTestProduct(t, db, "l-carnitine", "17.99", 5)

	order, err := orderSvc.CreateOrder(CreateOrderInput{
		UserID:       1,
		Items:        []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingInfo: models.JSON{},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	paid, err := orderSvc.HandlePaymentResult(order.OrderNo, constants.PaymentOutcomeSuccess)
	if err != nil {
		t.Fatalf("payment success failed: %v", err)
	}
	if paid.Status != constants.OrderStatusConfirmed || paid.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("unexpected state after payment: %s/%s", paid.Status, paid.PaymentStatus)
	}

	again, err := orderSvc.HandlePaymentResult(order.OrderNo, constants.PaymentOutcomeSuccess)
	if err != nil {
		t.Fatalf("repeated webhook should be idempotent: %v", err)
	}
	if again.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("expected paid on repeat, got %s", again.PaymentStatus)
	}
}

func TestHandlePaymentResultFailureKeepsOrderPending(t *testing.T) {
	orderSvc, _ := newOrderFixture(t, "order_payment_fail")
	db := mustDB(t)
	product := createTestProduct(t, db, "tribulus", "13.99", 5)

	order, err := orderSvc.CreateOrder(CreateOrderInput{
		UserID:       1,
		Items:        []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingInfo: models.JSON{},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	failed, err := orderSvc.HandlePaymentResult(order.OrderNo, constants.PaymentOutcomeFailure)
	if err != nil {
		t.Fatalf("payment failure handling failed: %v", err)
	}
	if failed.Status != constants.OrderStatusPending {
		t.Fatalf("order should stay pending after failed payment, got %s", failed.Status)
	}
	if failed.PaymentStatus != constants.PaymentStatusFailed {
		t.Fatalf("expected failed payment status, got %s", failed.PaymentStatus)
	}
}

func TestCancelExpiredOrder(t *testing.T) {
	orderSvc, _ := newOrderFixture(t, "order_expire")
	db := mustDB(t)
	product := createTestProduct(t, db, "yohimbine", "21.50", 5)

	order, err := orderSvc.CreateOrder(CreateOrderInput{
		UserID:       1,
		Items:        []CreateOrderItem{{ProductID: product.ID, Quantity: 2}},
		ShippingInfo: models.JSON{},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 未到期时是静默跳过。
	if err := orderSvc.CancelExpiredOrder(order.ID); err != nil {
		t.Fatalf("premature expire check failed: %v", err)
	}
	fresh, err := orderSvc.GetOrder(order.ID, 1)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if fresh.Status != constants.OrderStatusPending {
		t.Fatalf("expected pending before expiry, got %s", fresh.Status)
	}

	expired := time.Now().Add(-time.Minute)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("expires_at", &expired).Error; err != nil {
		t.Fatalf("force expiry failed: %v", err)
	}
	if err := orderSvc.CancelExpiredOrder(order.ID); err != nil {
		t.Fatalf("expire cancel failed: %v", err)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusCancelled {
		t.Fatalf("expected cancelled after expiry, got %s", reloaded.Status)
	}
	quantity, _ := productStock(t, db, product.ID)
	if quantity != 5 {
		t.Fatalf("expected stock restored after expiry, got %d", quantity)
	}
}

func TestGuestOrderCredentials(t *testing.T) {
	orderSvc, _ := newOrderFixture(t, "order_guest")
	db := mustDB(t)
	product := createTestProduct(t, db, "caffeine", "9.99", 5)

	order, err := orderSvc.CreateOrder(CreateOrderInput{
		GuestEmail:    "guest@example.com",
		GuestPassword: "lookup-secret",
		Items:         []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingInfo:  models.JSON{},
	})
	if err != nil {
		t.Fatalf("guest order failed: %v", err)
	}

	found, err := orderSvc.GetGuestOrder(order.OrderNo, "Guest@Example.com", "lookup-secret")
	if err != nil {
		t.Fatalf("guest lookup failed: %v", err)
	}
	if found.ID != order.ID {
		t.Fatalf("unexpected order returned: %d", found.ID)
	}

	if _, err := orderSvc.GetGuestOrder(order.OrderNo, "guest@example.com", "wrong"); !errors.Is(err, ErrGuestCredentials) {
		t.Fatalf("expected guest credentials error, got: %v", err)
	}
}

func TestMergeCreateOrderItems(t *testing.T) {
	merged, err := mergeCreateOrderItems([]CreateOrderItem{
		{ProductID: 1, VariantID: 10, Quantity: 1},
		{ProductID: 1, VariantID: 10, Quantity: 2},
		{ProductID: 1, VariantID: 11, Quantity: 1},
		{ProductID: 2, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged lines, got %d", len(merged))
	}
	if merged[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %d", merged[0].Quantity)
	}
}

func TestMergeCreateOrderItemsRejectsInvalid(t *testing.T) {
	if _, err := mergeCreateOrderItems([]CreateOrderItem{{ProductID: 0, Quantity: 1}}); !errors.Is(err, ErrInvalidOrderItem) {
		t.Fatalf("expected invalid order item, got: %v", err)
	}
	if _, err := mergeCreateOrderItems([]CreateOrderItem{{ProductID: 1, Quantity: 0}}); !errors.Is(err, ErrInvalidOrderItem) {
		t.Fatalf("expected invalid order item, got: %v", err)
	}
}
