package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/peakform-next/internal/models"
	"github.com/peakform-next/internal/repository"
)

type captureNotifier struct {
	mu    sync.Mutex
	calls map[uint][][]RestockedItem
}

func (n *captureNotifier) SendRestockNotice(_ context.Context, userID uint, items []RestockedItem) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.calls == nil {
		n.calls = make(map[uint][][]RestockedItem)
	}
	n.calls[userID] = append(n.calls[userID], items)
	return nil
}

func (n *captureNotifier) noticesFor(userID uint) [][]RestockedItem {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[userID]
}

type restockFixture struct {
	restock  *RestockService
	wishlist *WishlistService
	cart     *CartService
	stock    *StockService
	notifier *captureNotifier
}

func newRestockFixture(t *testing.T, name string) *restockFixture {
	db := newTestDB(t, name)
	productRepo := repository.NewProductRepository(db)
	variantRepo := repository.NewVariantRepository(db)
	cartRepo := repository.NewCartRepository(db)
	wishlistRepo := repository.NewWishlistRepository(db)
	stock := NewStockService(productRepo, variantRepo)
	cart := NewCartService(cartRepo, productRepo, variantRepo, stock)
	notifier := &captureNotifier{}
	restock := NewRestockService(wishlistRepo, productRepo, variantRepo, stock, cart, nil, notifier, time.Minute)
	return &restockFixture{
		restock:  restock,
		wishlist: NewWishlistService(wishlistRepo, stock),
		cart:     cart,
		stock:    stock,
		notifier: notifier,
	}
}

func TestSweepAutoAddsAndNotifiesOnRestock(t *testing.T) {
	fx := newRestockFixture(t, "restock_event")
	db := mustDB(t)
	product := createTestProduct(t, db, "omega-3", "18.50", 0)

	entry, err := fx.wishlist.Save(1, WishlistInput{
		ProductID:       product.ID,
		AutoAddToCart:   true,
		NotifyOnRestock: true,
	})
	if err != nil {
		t.Fatalf("wishlist save failed: %v", err)
	}
	if !entry.WasOutOfStock {
		t.Fatal("expected entry flagged out of stock on save")
	}

	// 缺货期间巡检不应产生任何动作。
	if err := fx.restock.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(fx.notifier.noticesFor(1)) != 0 {
		t.Fatal("no notice expected while still out of stock")
	}

	if err := fx.stock.Restock(product.ID, 0, 20); err != nil {
		t.Fatalf("restock failed: %v", err)
	}
	if err := fx.restock.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	view := fx.cart.GetCart(1)
	if len(view.Items) != 1 || view.Items[0].Quantity != 1 {
		t.Fatalf("expected one unit auto-added, got %+v", view.Items)
	}
	quantity, _ := productStock(t, db, product.ID)
	if quantity != 19 {
		t.Fatalf("expected auto-add to reserve one unit, got %d", quantity)
	}

	notices := fx.notifier.noticesFor(1)
	if len(notices) != 1 || len(notices[0]) != 1 {
		t.Fatalf("expected a single aggregated notice, got %+v", notices)
	}
	if notices[0][0].ProductName != product.Name {
		t.Fatalf("unexpected notice content: %+v", notices[0][0])
	}

	// 自动加购成功后条目应被移除。
	var count int64
	if err := db.Model(&models.WishlistEntry{}).Where("id = ?", entry.ID).Count(&count).Error; err != nil {
		t.Fatalf("count entry failed: %v", err)
	}
	if count != 0 {
		t.Fatal("expected entry removed after successful auto-add")
	}

	// 第二轮不应重复触发。
	if err := fx.restock.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(fx.notifier.noticesFor(1)) != 1 {
		t.Fatal("restock event must fire only once")
	}
}

func TestSweepSetsFlagWhenStockDrains(t *testing.T) {
	fx := newRestockFixture(t, "restock_flag")
	db := mustDB(t)
	product := createTestProduct(t, db, "zma", "16.99", 3)

	entry, err := fx.wishlist.Save(1, WishlistInput{ProductID: product.ID, NotifyOnRestock: true})
	if err != nil {
		t.Fatalf("wishlist save failed: %v", err)
	}
	if entry.WasOutOfStock {
		t.Fatal("flag must be clear while stock remains")
	}

	if err := fx.stock.Reserve(nil, product.ID, 0, 3); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if err := fx.restock.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	var reloaded models.WishlistEntry
	if err := db.First(&reloaded, entry.ID).Error; err != nil {
		t.Fatalf("reload entry failed: %v", err)
	}
	if !reloaded.WasOutOfStock {
		t.Fatal("sweep should flag drained entries")
	}
}

func TestSweepIgnoresEntriesNeverOutOfStock(t *testing.T) {
	fx := newRestockFixture(t, "restock_steady")
	db := mustDB(t)
	product := createTestProduct(t, db, "glucosamine", "22.99", 10)

	if _, err := fx.wishlist.Save(1, WishlistInput{
		ProductID:       product.ID,
		AutoAddToCart:   true,
		NotifyOnRestock: true,
	}); err != nil {
		t.Fatalf("wishlist save failed: %v", err)
	}
	if err := fx.restock.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if len(fx.cart.GetCart(1).Items) != 0 {
		t.Fatal("steady in-stock entry must not trigger auto-add")
	}
	if len(fx.notifier.noticesFor(1)) != 0 {
		t.Fatal("steady in-stock entry must not trigger notice")
	}
}

func TestSweepDropsEntryForMissingProduct(t *testing.T) {
	fx := newRestockFixture(t, "restock_missing")
	db := mustDB(t)

	if err := db.Create(&models.WishlistEntry{
		UserID:          1,
		ProductID:       99999,
		NotifyOnRestock: true,
	}).Error; err != nil {
		t.Fatalf("create entry failed: %v", err)
	}

	if err := fx.restock.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	var count int64
	if err := db.Model(&models.WishlistEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected dangling entry removed, got %d", count)
	}
}

func TestSweepAggregatesNoticePerUser(t *testing.T) {
	fx := newRestockFixture(t, "restock_aggregate")
	db := mustDB(t)
	first := createTestProduct(t, db, "melatonin", "7.99", 0)
	second := createTestProduct(t, db, "valerian", "9.49", 0)

	for _, productID := range []uint{first.ID, second.ID} {
		if _, err := fx.wishlist.Save(1, WishlistInput{ProductID: productID, NotifyOnRestock: true}); err != nil {
			t.Fatalf("wishlist save failed: %v", err)
		}
	}

	if err := fx.stock.Restock(first.ID, 0, 5); err != nil {
		t.Fatalf("restock failed: %v", err)
	}
	if err := fx.stock.Restock(second.ID, 0, 5); err != nil {
		t.Fatalf("restock failed: %v", err)
	}
	if err := fx.restock.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	notices := fx.notifier.noticesFor(1)
	if len(notices) != 1 {
		t.Fatalf("expected one aggregated notice, got %d", len(notices))
	}
	if len(notices[0]) != 2 {
		t.Fatalf("expected both products in one notice, got %+v", notices[0])
	}
}

func TestSweepFlushesUserChangesInOneBatch(t *testing.T) {
	fx := newRestockFixture(t, "restock_batch")
	db := mustDB(t)
	drained := createTestProduct(t, db, "citrulline", "19.49", 1)
	notified := createTestProduct(t, db, "d3-k2", "12.49", 0)
	autoAdded := createTestProduct(t, db, "ashwagandha-ksm", "21.99", 0)

	drainedEntry, err := fx.wishlist.Save(1, WishlistInput{ProductID: drained.ID, NotifyOnRestock: true})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	notifiedEntry, err := fx.wishlist.Save(1, WishlistInput{ProductID: notified.ID, NotifyOnRestock: true})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	autoEntry, err := fx.wishlist.Save(1, WishlistInput{ProductID: autoAdded.ID, AutoAddToCart: true})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// 同一轮内：一条观察到缺货，一条到货只提醒，一条到货自动加购。
	if err := fx.stock.Reserve(nil, drained.ID, 0, 1); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if err := fx.stock.Restock(notified.ID, 0, 4); err != nil {
		t.Fatalf("restock failed: %v", err)
	}
	if err := fx.stock.Restock(autoAdded.ID, 0, 4); err != nil {
		t.Fatalf("restock failed: %v", err)
	}
	if err := fx.restock.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	var reloaded models.WishlistEntry
	if err := db.First(&reloaded, drainedEntry.ID).Error; err != nil {
		t.Fatalf("reload drained entry failed: %v", err)
	}
	if !reloaded.WasOutOfStock {
		t.Fatal("expected drained entry flagged")
	}
	reloaded = models.WishlistEntry{}
	if err := db.First(&reloaded, notifiedEntry.ID).Error; err != nil {
		t.Fatalf("reload notified entry failed: %v", err)
	}
	if reloaded.WasOutOfStock {
		t.Fatal("expected notified entry flag cleared")
	}
	var count int64
	if err := db.Model(&models.WishlistEntry{}).Where("id = ?", autoEntry.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatal("expected auto-add entry removed")
	}
	if len(fx.cart.GetCart(1).Items) != 1 {
		t.Fatal("expected one auto-added cart line")
	}
	if len(fx.notifier.noticesFor(1)) != 1 {
		t.Fatal("expected one aggregated notice")
	}
}

func TestSweepHonorsContextCancellation(t *testing.T) {
	fx := newRestockFixture(t, "restock_ctx")
	db := mustDB(t)
	product := createTestProduct(t, db, "iron", "6.99", 0)

	if _, err := fx.wishlist.Save(1, WishlistInput{ProductID: product.ID, NotifyOnRestock: true}); err != nil {
		t.Fatalf("wishlist save failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := fx.restock.Sweep(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got: %v", err)
	}
}

func TestWishlistSaveUpsertsFlags(t *testing.T) {
	fx := newRestockFixture(t, "wishlist_upsert")
	db := mustDB(t)
	product := createTestProduct(t, db, "b-complex", "11.49", 5)

	if _, err := fx.wishlist.Save(1, WishlistInput{ProductID: product.ID, AutoAddToCart: true}); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}
	updated, err := fx.wishlist.Save(1, WishlistInput{ProductID: product.ID, NotifyOnRestock: true})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if updated.AutoAddToCart || !updated.NotifyOnRestock {
		t.Fatalf("expected flags replaced on upsert, got %+v", updated)
	}

	var count int64
	if err := db.Model(&models.WishlistEntry{}).Where("user_id = ?", 1).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single entry after upsert, got %d", count)
	}
}

func TestWishlistListReobservesDrainedStock(t *testing.T) {
	fx := newRestockFixture(t, "wishlist_reobserve")
	db := mustDB(t)
	product := createTestProduct(t, db, "magnesium-glycinate", "14.99", 2)

	if _, err := fx.wishlist.Save(1, WishlistInput{ProductID: product.ID, NotifyOnRestock: true}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := fx.stock.Reserve(nil, product.ID, 0, 2); err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	entries, err := fx.wishlist.List(1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 1 || !entries[0].WasOutOfStock {
		t.Fatalf("expected listing to flag drained entry, got %+v", entries)
	}
}

func TestWishlistRemoveMissing(t *testing.T) {
	fx := newRestockFixture(t, "wishlist_remove")

	if err := fx.wishlist.Remove(1, 12345, 0); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected item not found, got: %v", err)
	}
}
