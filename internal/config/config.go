package config

import (
	"fmt"
	"strings"

	"github.com/peakform-next/internal/logger"

	"github.com/spf13/viper"
)

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为日志初始化参数
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步任务配置
type QueueConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Concurrency int  `mapstructure:"concurrency"`
}

// OrderConfig 订单履约配置
type OrderConfig struct {
	TaxRate               float64 `mapstructure:"tax_rate"`
	FreeShippingThreshold float64 `mapstructure:"free_shipping_threshold"`
	ShippingFlatFee       float64 `mapstructure:"shipping_flat_fee"`
	ReturnWindowDays      int     `mapstructure:"return_window_days"`
	PaymentExpireMinutes  int     `mapstructure:"payment_expire_minutes"`
}

// WatcherConfig 补货巡检配置
type WatcherConfig struct {
	IntervalSeconds   int `mapstructure:"interval_seconds"`
	SoftBudgetSeconds int `mapstructure:"soft_budget_seconds"`
}

// NotifyConfig 通知配置
type NotifyConfig struct {
	Driver   string `mapstructure:"driver"` // smtp / log
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	SMTPUser string `mapstructure:"smtp_user"`
	SMTPPass string `mapstructure:"smtp_pass"`
	From     string `mapstructure:"from"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	UserJWTSecret string `mapstructure:"user_jwt_secret"`
	AdminToken    string `mapstructure:"admin_token"`
}

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Order    OrderConfig    `mapstructure:"order"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// Addr HTTP 监听地址
func (c *Config) Addr() string {
	host := strings.TrimSpace(c.Server.Host)
	port := c.Server.Port
	if port <= 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// Load 加载配置。
// 默认值 + config.yaml（可选）+ PF_ 前缀环境变量，环境变量优先。
func Load() *Config {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "peakform.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "peakform.db")
	viper.SetDefault("database.max_open_conns", 20)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 3600)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "pf")

	viper.SetDefault("queue.enabled", false)
	viper.SetDefault("queue.concurrency", 10)

	viper.SetDefault("order.tax_rate", 0.08)
	viper.SetDefault("order.free_shipping_threshold", 50)
	viper.SetDefault("order.shipping_flat_fee", 5.99)
	viper.SetDefault("order.return_window_days", 30)
	viper.SetDefault("order.payment_expire_minutes", 30)

	viper.SetDefault("watcher.interval_seconds", 300)
	viper.SetDefault("watcher.soft_budget_seconds", 240)

	viper.SetDefault("notify.driver", "log")
	viper.SetDefault("notify.smtp_host", "")
	viper.SetDefault("notify.smtp_port", 587)
	viper.SetDefault("notify.smtp_user", "")
	viper.SetDefault("notify.smtp_pass", "")
	viper.SetDefault("notify.from", "noreply@peakform.example")

	viper.SetDefault("cors.allowed_origins", []string{})

	viper.SetDefault("auth.user_jwt_secret", "")
	viper.SetDefault("auth.admin_token", "")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("PF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("read config failed: %w", err))
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("unmarshal config failed: %w", err))
	}
	return &cfg
}
