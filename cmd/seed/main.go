package main

import (
	"fmt"
	"os"
	"time"

	"github.com/peakform-next/internal/config"
	"github.com/peakform-next/internal/logger"
	"github.com/peakform-next/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// 初始化演示数据：示例用户与一组补剂商品。
func main() {
	cfg := config.Load()
	logger.Init("debug", cfg.Log.ToLoggerOptions())

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init db failed: %v\n", err)
		os.Exit(1)
	}
	if err := models.AutoMigrate(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}

	if err := seedUsers(); err != nil {
		fmt.Fprintf(os.Stderr, "seed users failed: %v\n", err)
		os.Exit(1)
	}
	if err := seedProducts(); err != nil {
		fmt.Fprintf(os.Stderr, "seed products failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("seed done")
}

func seedUsers() error {
	var count int64
	if err := models.DB.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return models.DB.Create(&models.User{
		Email:        "demo@peakform.example",
		PasswordHash: string(hash),
		Nickname:     "Demo",
		IsActive:     true,
	}).Error
}

func seedProducts() error {
	var count int64
	if err := models.DB.Model(&models.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	products := []models.Product{
		{
			Slug:          "whey-protein-isolate",
			Name:          "Whey Protein Isolate",
			Description:   "25g protein per serving, fast absorbing.",
			Brand:         "Peakform",
			PriceAmount:   models.NewMoneyFromDecimal(decimal.RequireFromString("39.99")),
			Tags:          models.StringArray{"protein", "muscle"},
			StockQuantity: 120,
			InStock:       true,
			IsActive:      true,
			Variants: []models.ProductVariant{
				{Name: "Vanilla 2lb", SKUCode: "WPI-VAN-2", PriceAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("39.99")), StockQuantity: 60, InStock: true, IsActive: true, SortOrder: 1},
				{Name: "Chocolate 2lb", SKUCode: "WPI-CHO-2", PriceAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("39.99")), StockQuantity: 60, InStock: true, IsActive: true, SortOrder: 2},
			},
		},
		{
			Slug:          "creatine-monohydrate",
			Name:          "Creatine Monohydrate",
			Description:   "5g micronized creatine per scoop.",
			Brand:         "Peakform",
			PriceAmount:   models.NewMoneyFromDecimal(decimal.RequireFromString("24.99")),
			Tags:          models.StringArray{"strength", "performance"},
			StockQuantity: 200,
			InStock:       true,
			IsActive:      true,
		},
		{
			Slug:          "omega-3-fish-oil",
			Name:          "Omega-3 Fish Oil",
			Description:   "1000mg EPA/DHA softgels.",
			Brand:         "Peakform",
			PriceAmount:   models.NewMoneyFromDecimal(decimal.RequireFromString("18.50")),
			Tags:          models.StringArray{"wellness", "heart"},
			StockQuantity: 0,
			InStock:       false,
			IsActive:      true,
		},
	}
	return models.DB.Create(&products).Error
}
