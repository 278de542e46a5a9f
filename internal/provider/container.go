package provider

import (
	"time"

	"github.com/peakform-next/internal/cache"
	"github.com/peakform-next/internal/config"
	"github.com/peakform-next/internal/models"
	"github.com/peakform-next/internal/notify"
	"github.com/peakform-next/internal/queue"
	"github.com/peakform-next/internal/repository"
	"github.com/peakform-next/internal/service"

	"github.com/shopspring/decimal"
)

// Container 依赖容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	ProductRepo  repository.ProductRepository
	VariantRepo  repository.VariantRepository
	CartRepo     repository.CartRepository
	OrderRepo    repository.OrderRepository
	WishlistRepo repository.WishlistRepository
	UserRepo     repository.UserRepository

	Notifier        service.Notifier
	StockService    *service.StockService
	ProductService  *service.ProductService
	CartService     *service.CartService
	OrderService    *service.OrderService
	WishlistService *service.WishlistService
	RestockService  *service.RestockService
}

// NewContainer 构建依赖容器
func NewContainer(cfg *config.Config) (*Container, error) {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		return nil, err
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queue.NewClient(cfg),
	}
	c.initRepositories()
	c.initServices()
	return c, nil
}

func (c *Container) initRepositories() {
	c.ProductRepo = repository.NewProductRepository(models.DB)
	c.VariantRepo = repository.NewVariantRepository(models.DB)
	c.CartRepo = repository.NewCartRepository(models.DB)
	c.OrderRepo = repository.NewOrderRepository(models.DB)
	c.WishlistRepo = repository.NewWishlistRepository(models.DB)
	c.UserRepo = repository.NewUserRepository(models.DB)
}

func (c *Container) initServices() {
	c.Notifier = notify.New(&c.Config.Notify, c.UserRepo)
	c.StockService = service.NewStockService(c.ProductRepo, c.VariantRepo)
	c.ProductService = service.NewProductService(c.ProductRepo, c.VariantRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo, c.VariantRepo, c.StockService)

	pricing := service.PricingOptions{
		TaxRate:               decimal.NewFromFloat(c.Config.Order.TaxRate),
		FreeShippingThreshold: decimal.NewFromFloat(c.Config.Order.FreeShippingThreshold),
		ShippingFlatFee:       decimal.NewFromFloat(c.Config.Order.ShippingFlatFee),
	}
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.CartRepo,
		c.ProductRepo,
		c.VariantRepo,
		c.StockService,
		c.CartService,
		c.QueueClient,
		pricing,
		c.Config.Order.ReturnWindowDays,
		c.Config.Order.PaymentExpireMinutes,
	)
	c.WishlistService = service.NewWishlistService(c.WishlistRepo, c.StockService)
	c.RestockService = service.NewRestockService(
		c.WishlistRepo,
		c.ProductRepo,
		c.VariantRepo,
		c.StockService,
		c.CartService,
		c.QueueClient,
		c.Notifier,
		time.Duration(c.Config.Watcher.SoftBudgetSeconds)*time.Second,
	)
}
