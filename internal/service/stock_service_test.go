package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/peakform-next/internal/repository"
)

func newStockFixture(t *testing.T, name string) (*StockService, *repository.GormProductRepository, *repository.GormVariantRepository) {
	db := newTestDB(t, name)
	productRepo := repository.NewProductRepository(db)
	variantRepo := repository.NewVariantRepository(db)
	return NewStockService(productRepo, variantRepo), productRepo, variantRepo
}

func TestAvailableStockFlagDominatesQuantity(t *testing.T) {
	stock, _, _ := newStockFixture(t, "stock_flag")
	db := mustDB(t)

	product := createTestProduct(t, db, "bcaa-powder", "19.99", 10)
	if err := db.Model(product).Update("in_stock", false).Error; err != nil {
		t.Fatalf("override in_stock failed: %v", err)
	}

	available, err := stock.AvailableStock(product.ID, 0)
	if err != nil {
		t.Fatalf("available stock failed: %v", err)
	}
	if available != 0 {
		t.Fatalf("expected 0 available when flag cleared, got %d", available)
	}
}

func TestReserveMaintainsInStockInvariant(t *testing.T) {
	stock, _, _ := newStockFixture(t, "stock_reserve")
	db := mustDB(t)
	product := createTestProduct(t, db, "pre-workout", "29.99", 3)

	if err := stock.Reserve(nil, product.ID, 0, 3); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	quantity, inStock := productStock(t, db, product.ID)
	if quantity != 0 || inStock {
		t.Fatalf("expected 0/false after draining, got %d/%v", quantity, inStock)
	}

	if err := stock.Reserve(nil, product.ID, 0, 1); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected out of stock, got: %v", err)
	}
}

func TestReserveInsufficientVsOutOfStock(t *testing.T) {
	stock, _, _ := newStockFixture(t, "stock_classify")
	db := mustDB(t)
	product := createTestProduct(t, db, "casein", "34.99", 2)

	if err := stock.Reserve(nil, product.ID, 0, 5); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got: %v", err)
	}
	if err := stock.Reserve(nil, 9999, 0, 1); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected product not found, got: %v", err)
	}
}

func TestReleaseRestoresAvailability(t *testing.T) {
	stock, _, _ := newStockFixture(t, "stock_release")
	db := mustDB(t)
	product := createTestProduct(t, db, "glutamine", "15.99", 1)

	if err := stock.Reserve(nil, product.ID, 0, 1); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := stock.Release(nil, product.ID, 0, 1); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	quantity, inStock := productStock(t, db, product.ID)
	if quantity != 1 || !inStock {
		t.Fatalf("expected 1/true after release, got %d/%v", quantity, inStock)
	}
}

func TestReleaseMissingRowIsPermissive(t *testing.T) {
	stock, _, _ := newStockFixture(t, "stock_release_missing")

	if err := stock.Release(nil, 424242, 0, 2); err != nil {
		t.Fatalf("expected permissive release, got: %v", err)
	}
}

func TestConcurrentReserveNeverOversells(t *testing.T) {
	stock, _, _ := newStockFixture(t, "stock_concurrent")
	db := mustDB(t)
	product := createTestProduct(t, db, "electrolytes", "9.99", 10)

	var wg sync.WaitGroup
	granted := make(chan int, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := stock.Reserve(nil, product.ID, 0, 1); err == nil {
				granted <- 1
			}
		}()
	}
	wg.Wait()
	close(granted)

	total := 0
	for n := range granted {
		total += n
	}
	if total != 10 {
		t.Fatalf("expected exactly 10 grants, got %d", total)
	}
	quantity, inStock := productStock(t, db, product.ID)
	if quantity != 0 || inStock {
		t.Fatalf("expected drained stock, got %d/%v", quantity, inStock)
	}
}

func TestVariantStockIndependentOfProduct(t *testing.T) {
	stock, _, _ := newStockFixture(t, "stock_variant")
	db := mustDB(t)
	product := createTestProduct(t, db, "whey-blend", "39.99", 5)
	variant := createTestVariant(t, db, product.ID, "Vanilla", "39.99", 2)

	if err := stock.Reserve(nil, product.ID, variant.ID, 2); err != nil {
		t.Fatalf("variant reserve failed: %v", err)
	}
	available, err := stock.AvailableStock(product.ID, variant.ID)
	if err != nil {
		t.Fatalf("variant availability failed: %v", err)
	}
	if available != 0 {
		t.Fatalf("expected variant drained, got %d", available)
	}

	quantity, _ := productStock(t, db, product.ID)
	if quantity != 5 {
		t.Fatalf("product stock should be untouched, got %d", quantity)
	}
}

func TestRestockRecomputesFlag(t *testing.T) {
	stock, _, _ := newStockFixture(t, "stock_restock")
	db := mustDB(t)
	product := createTestProduct(t, db, "zinc", "8.99", 0)

	if err := stock.Restock(product.ID, 0, 25); err != nil {
		t.Fatalf("restock failed: %v", err)
	}
	quantity, inStock := productStock(t, db, product.ID)
	if quantity != 25 || !inStock {
		t.Fatalf("expected 25/true after restock, got %d/%v", quantity, inStock)
	}
}
