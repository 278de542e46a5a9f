package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/peakform-next/internal/logger"
	"github.com/peakform-next/internal/models"
	"github.com/peakform-next/internal/queue"
	"github.com/peakform-next/internal/repository"
)

// RestockService 补货巡检。
// 周期性扫描心愿单，识别 缺货 -> 有货 的到货事件：
// 自动加购 1 件并发送到货提醒，缺货标记只在事件处理完成后清除。
type RestockService struct {
	wishlistRepo repository.WishlistRepository
	productRepo  repository.ProductRepository
	variantRepo  repository.VariantRepository
	stock        *StockService
	cart         *CartService
	queueClient  *queue.Client
	notifier     Notifier
	softBudget   time.Duration
	sweepMu      sync.Mutex
}

// NewRestockService 创建补货巡检服务
func NewRestockService(
	wishlistRepo repository.WishlistRepository,
	productRepo repository.ProductRepository,
	variantRepo repository.VariantRepository,
	stock *StockService,
	cart *CartService,
	queueClient *queue.Client,
	notifier Notifier,
	softBudget time.Duration,
) *RestockService {
	if softBudget <= 0 {
		softBudget = 4 * time.Minute
	}
	return &RestockService{
		wishlistRepo: wishlistRepo,
		productRepo:  productRepo,
		variantRepo:  variantRepo,
		stock:        stock,
		cart:         cart,
		queueClient:  queueClient,
		notifier:     notifier,
		softBudget:   softBudget,
	}
}

// Sweep 执行一轮巡检。
// TryLock 保证不与上一轮重叠；软时间预算到期后停在用户边界，剩余条目留待下一轮。
func (s *RestockService) Sweep(ctx context.Context) error {
	if !s.sweepMu.TryLock() {
		logger.Debugw("restock_sweep_skipped", "reason", "previous sweep still running")
		return nil
	}
	defer s.sweepMu.Unlock()

	started := time.Now()
	entries, err := s.wishlistRepo.ListWatching()
	if err != nil {
		return classifyStoreError(err)
	}
	if len(entries) == 0 {
		return nil
	}

	batches := groupByUser(entries)
	processed := 0
	for _, batch := range batches {
		select {
		case <-ctx.Done():
			logger.Warnw("restock_sweep_interrupted", "processed_users", processed, "total_users", len(batches))
			return ctx.Err()
		default:
		}
		if time.Since(started) > s.softBudget {
			logger.Warnw("restock_sweep_budget_exceeded",
				"processed_users", processed,
				"total_users", len(batches),
				"elapsed", time.Since(started).String(),
			)
			return nil
		}

		if err := s.processUserBatch(batch); err != nil {
			logger.Errorw("restock_sweep_user_failed", "user_id", batch[0].UserID, "error", err)
		}
		processed++
	}

	logger.Infow("restock_sweep_done",
		"users", processed,
		"entries", len(entries),
		"elapsed", time.Since(started).String(),
	)
	return nil
}

// wishlistBatch 单个用户一轮巡检累计的心愿单变更，批量落盘。
type wishlistBatch struct {
	flagIDs   []uint
	clearIDs  []uint
	deleteIDs []uint
}

// processUserBatch 处理单个用户的全部条目。
// 到货提醒按用户聚合成一条，心愿单写入也按用户一次事务落盘。
func (s *RestockService) processUserBatch(entries []models.WishlistEntry) error {
	var restocked []RestockedItem
	var batch wishlistBatch
	var firstErr error

	for i := range entries {
		entry := &entries[i]
		item, err := s.processEntry(entry, &batch)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if item != nil && entry.NotifyOnRestock {
			restocked = append(restocked, *item)
		}
	}

	if err := s.wishlistRepo.ApplyBatch(batch.flagIDs, batch.clearIDs, batch.deleteIDs); err != nil {
		return classifyStoreError(err)
	}
	if len(restocked) > 0 {
		s.dispatchNotice(entries[0].UserID, restocked)
	}
	return firstErr
}

// processEntry 处理单个条目，心愿单变更只记入 batch，不直接落盘。
// 返回非 nil 表示发生了到货事件。
func (s *RestockService) processEntry(entry *models.WishlistEntry, batch *wishlistBatch) (*RestockedItem, error) {
	available, err := s.stock.AvailableStock(entry.ProductID, entry.VariantID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrVariantNotFound) {
			logger.Debugw("restock_entry_dropped", "entry_id", entry.ID, "error", err)
			batch.deleteIDs = append(batch.deleteIDs, entry.ID)
			return nil, nil
		}
		return nil, err
	}

	if available == 0 {
		if !entry.WasOutOfStock {
			batch.flagIDs = append(batch.flagIDs, entry.ID)
			entry.WasOutOfStock = true
		}
		return nil, nil
	}

	if !entry.WasOutOfStock {
		return nil, nil
	}

	// 到货事件：先执行动作，动作成功后才记清缺货标记，失败留待下一轮重试。
	item, err := s.describeEntry(entry)
	if err != nil {
		return nil, err
	}
	if entry.AutoAddToCart {
		if _, err := s.cart.AddItem(entry.UserID, entry.ProductID, entry.VariantID, 1); err != nil {
			if errors.Is(err, ErrOutOfStock) {
				return nil, nil
			}
			return nil, err
		}
		// 自动加购成功即完成条目使命，记删除。
		batch.deleteIDs = append(batch.deleteIDs, entry.ID)
		entry.WasOutOfStock = false
		return item, nil
	}

	batch.clearIDs = append(batch.clearIDs, entry.ID)
	entry.WasOutOfStock = false
	return item, nil
}

// describeEntry 组装提醒内容中的商品描述。
func (s *RestockService) describeEntry(entry *models.WishlistEntry) (*RestockedItem, error) {
	product, err := s.productRepo.GetByID(entry.ProductID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	item := &RestockedItem{
		ProductID:   entry.ProductID,
		VariantID:   entry.VariantID,
		ProductName: product.Name,
	}
	if entry.VariantID > 0 {
		variant, err := s.variantRepo.GetByID(entry.VariantID)
		if err != nil {
			return nil, classifyStoreError(err)
		}
		if variant != nil {
			item.VariantName = variant.Name
		}
	}
	return item, nil
}

// dispatchNotice 下发到货提醒。队列可用时走异步任务，否则直接调用通知器。
func (s *RestockService) dispatchNotice(userID uint, items []RestockedItem) {
	if s.queueClient != nil && s.queueClient.Enabled() {
		payload := queue.RestockNotifyPayload{UserID: userID, Items: toQueueItems(items)}
		if err := s.queueClient.EnqueueRestockNotify(payload); err != nil {
			logger.Warnw("restock_notify_enqueue_failed", "user_id", userID, "error", err)
		}
		return
	}
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendRestockNotice(context.Background(), userID, items); err != nil {
		logger.Warnw("restock_notify_failed", "user_id", userID, "error", err)
	}
}

// groupByUser 将条目按用户聚合，输入已按 user_id 排序。
func groupByUser(entries []models.WishlistEntry) [][]models.WishlistEntry {
	var batches [][]models.WishlistEntry
	var current []models.WishlistEntry
	for _, entry := range entries {
		if len(current) > 0 && current[len(current)-1].UserID != entry.UserID {
			batches = append(batches, current)
			current = nil
		}
		current = append(current, entry)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func toQueueItems(items []RestockedItem) []queue.RestockNotifyItem {
	out := make([]queue.RestockNotifyItem, 0, len(items))
	for _, item := range items {
		out = append(out, queue.RestockNotifyItem{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			VariantName: item.VariantName,
		})
	}
	return out
}
