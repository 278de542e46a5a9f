package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/peakform-next/internal/constants"
	"github.com/peakform-next/internal/repository"
)

func newCartFixture(t *testing.T, name string) *CartService {
	db := newTestDB(t, name)
	productRepo := repository.NewProductRepository(db)
	variantRepo := repository.NewVariantRepository(db)
	cartRepo := repository.NewCartRepository(db)
	stock := NewStockService(productRepo, variantRepo)
	return NewCartService(cartRepo, productRepo, variantRepo, stock)
}

func TestAddItemReservesStock(t *testing.T) {
	cart := newCartFixture(t, "cart_add")
	db := mustDB(t)
	product := createTestProduct(t, db, "whey", "39.99", 10)

	mutation, err := cart.AddItem(1, product.ID, 0, 3)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if mutation.Applied != 3 || mutation.Clamped {
		t.Fatalf("unexpected mutation: %+v", mutation)
	}

	quantity, _ := productStock(t, db, product.ID)
	if quantity != 7 {
		t.Fatalf("expected stock 7 after reservation, got %d", quantity)
	}
}

func TestAddItemMergesExistingLine(t *testing.T) {
	cart := newCartFixture(t, "cart_merge")
	db := mustDB(t)
	product := createTestProduct(t, db, "creatine", "24.99", 10)

	if _, err := cart.AddItem(1, product.ID, 0, 2); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	mutation, err := cart.AddItem(1, product.ID, 0, 3)
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if mutation.Item.Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", mutation.Item.Quantity)
	}

	view := cart.GetCart(1)
	if len(view.Items) != 1 {
		t.Fatalf("expected single line, got %d", len(view.Items))
	}
}

func TestAddItemClampsToAvailable(t *testing.T) {
	cart := newCartFixture(t, "cart_clamp")
	db := mustDB(t)
	product := createTestProduct(t, db, "omega3", "18.50", 2)

	mutation, err := cart.AddItem(1, product.ID, 0, 5)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if mutation.Applied != 2 || !mutation.Clamped {
		t.Fatalf("expected clamp to 2, got %+v", mutation)
	}

	quantity, inStock := productStock(t, db, product.ID)
	if quantity != 0 || inStock {
		t.Fatalf("expected drained stock, got %d/%v", quantity, inStock)
	}
}

func TestAddItemOutOfStock(t *testing.T) {
	cart := newCartFixture(t, "cart_oos")
	db := mustDB(t)
	product := createTestProduct(t, db, "magnesium", "12.99", 0)

	if _, err := cart.AddItem(1, product.ID, 0, 1); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected out of stock, got: %v", err)
	}
}

func TestConcurrentAddsSplitRemainingStock(t *testing.T) {
	cart := newCartFixture(t, "cart_concurrent")
	db := mustDB(t)
	product := createTestProduct(t, db, "pump-formula", "44.99", 5)

	var wg sync.WaitGroup
	results := make([]*CartMutation, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = cart.AddItem(uint(idx+1), product.ID, 0, 3)
		}(i)
	}
	wg.Wait()

	totalApplied := 0
	clamps := 0
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("add %d failed: %v", i, errs[i])
		}
		totalApplied += results[i].Applied
		if results[i].Clamped {
			clamps++
		}
	}
	if totalApplied != 5 {
		t.Fatalf("expected 5 units granted in total, got %d", totalApplied)
	}
	if clamps != 1 {
		t.Fatalf("expected exactly one clamped add, got %d", clamps)
	}

	quantity, inStock := productStock(t, db, product.ID)
	if quantity != 0 || inStock {
		t.Fatalf("expected drained stock, got %d/%v", quantity, inStock)
	}
}

func TestUpdateQuantityAdjustsReservation(t *testing.T) {
	cart := newCartFixture(t, "cart_update")
	db := mustDB(t)
	product := createTestProduct(t, db, "bcaa", "21.99", 10)

	if _, err := cart.AddItem(1, product.ID, 0, 4); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := cart.UpdateQuantity(1, product.ID, 0, 2); err != nil {
		t.Fatalf("shrink failed: %v", err)
	}
	quantity, _ := productStock(t, db, product.ID)
	if quantity != 8 {
		t.Fatalf("expected stock 8 after shrink, got %d", quantity)
	}

	if _, err := cart.UpdateQuantity(1, product.ID, 0, 7); err != nil {
		t.Fatalf("grow failed: %v", err)
	}
	quantity, _ = productStock(t, db, product.ID)
	if quantity != 3 {
		t.Fatalf("expected stock 3 after grow, got %d", quantity)
	}
}

func TestUpdateQuantityClampsToAvailable(t *testing.T) {
	cart := newCartFixture(t, "cart_update_clamp")
	db := mustDB(t)
	product := createTestProduct(t, db, "pre-mix", "26.99", 5)

	if _, err := cart.AddItem(1, product.ID, 0, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	mutation, err := cart.UpdateQuantity(1, product.ID, 0, 10)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if mutation.Applied != 5 || !mutation.Clamped {
		t.Fatalf("expected clamp to 5, got %+v", mutation)
	}
	if mutation.Item.Quantity != 5 {
		t.Fatalf("expected line at 5, got %d", mutation.Item.Quantity)
	}

	quantity, inStock := productStock(t, db, product.ID)
	if quantity != 0 || inStock {
		t.Fatalf("expected drained stock, got %d/%v", quantity, inStock)
	}

	// 彻底无货时增量与加购同样返回错误。
	if _, err := cart.UpdateQuantity(1, product.ID, 0, 6); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected out of stock, got: %v", err)
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	cart := newCartFixture(t, "cart_update_zero")
	db := mustDB(t)
	product := createTestProduct(t, db, "vitamin-d", "10.99", 5)

	if _, err := cart.AddItem(1, product.ID, 0, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := cart.UpdateQuantity(1, product.ID, 0, 0); err != nil {
		t.Fatalf("remove via zero failed: %v", err)
	}

	view := cart.GetCart(1)
	if len(view.Items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(view.Items))
	}
	quantity, _ := productStock(t, db, product.ID)
	if quantity != 5 {
		t.Fatalf("expected reservation returned, got %d", quantity)
	}
}

func TestRemoveItemNotFound(t *testing.T) {
	cart := newCartFixture(t, "cart_remove_missing")
	db := mustDB(t)
	product := createTestProduct(t, db, "collagen", "27.99", 5)

	if err := cart.RemoveItem(1, product.ID, 0); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected item not found, got: %v", err)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	cart := newCartFixture(t, "cart_clear")
	db := mustDB(t)
	product := createTestProduct(t, db, "greens", "32.99", 6)

	if _, err := cart.AddItem(1, product.ID, 0, 4); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := cart.Clear(1); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if err := cart.Clear(1); err != nil {
		t.Fatalf("second clear should be a no-op, got: %v", err)
	}

	quantity, _ := productStock(t, db, product.ID)
	if quantity != 6 {
		t.Fatalf("expected full stock restored, got %d", quantity)
	}
}

func TestSyncFromAnonymousPartitionsResults(t *testing.T) {
	cart := newCartFixture(t, "cart_sync")
	db := mustDB(t)
	inStock := createTestProduct(t, db, "protein-bar", "2.99", 10)
	outOfStock := createTestProduct(t, db, "mass-gainer", "54.99", 0)

	result := cart.SyncFromAnonymous(1, []AnonymousCartItem{
		{ProductID: inStock.ID, Quantity: 2},
		{ProductID: outOfStock.ID, Quantity: 1},
		{ProductID: 99999, Quantity: 1},
	})

	if len(result.Succeeded) != 1 {
		t.Fatalf("expected 1 success, got %d", len(result.Succeeded))
	}
	if len(result.Failed) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(result.Failed))
	}
	reasons := map[uint]string{}
	for _, failure := range result.Failed {
		reasons[failure.ProductID] = failure.Reason
	}
	if reasons[outOfStock.ID] != constants.CartFailReasonOutOfStock {
		t.Fatalf("unexpected reason for out of stock line: %s", reasons[outOfStock.ID])
	}
	if reasons[99999] != constants.CartFailReasonNotFound {
		t.Fatalf("unexpected reason for missing product: %s", reasons[99999])
	}
}
