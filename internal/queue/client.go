package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/peakform-next/internal/config"
	"github.com/peakform-next/internal/constants"

	"github.com/hibiken/asynq"
)

// Client 异步任务客户端。
// 队列未启用时所有入队调用都是显式失败，调用方自行兜底。
type Client struct {
	client *asynq.Client
}

// NewClient 创建任务客户端
func NewClient(cfg *config.Config) *Client {
	if cfg == nil || !cfg.Queue.Enabled {
		return &Client{}
	}
	redisOpt := BuildRedisOpt(cfg)
	return &Client{client: asynq.NewClient(redisOpt)}
}

// Enabled 判断队列是否可用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueOrderTimeoutCancel 下发延时的支付超时取消任务
func (c *Client) EnqueueOrderTimeoutCancel(payload OrderTimeoutCancelPayload, delay time.Duration) error {
	if !c.Enabled() {
		return fmt.Errorf("queue disabled")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(constants.TaskOrderTimeoutCancel, data)
	_, err = c.client.Enqueue(task,
		asynq.Queue(constants.QueueDefault),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(3),
	)
	return err
}

// EnqueueRestockNotify 下发到货提醒任务
func (c *Client) EnqueueRestockNotify(payload RestockNotifyPayload) error {
	if !c.Enabled() {
		return fmt.Errorf("queue disabled")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(constants.TaskRestockNotify, data)
	_, err = c.client.Enqueue(task,
		asynq.Queue(constants.QueueDefault),
		asynq.MaxRetry(5),
	)
	return err
}

// BuildRedisOpt 构建 asynq 使用的 Redis 连接参数
func BuildRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	host := strings.TrimSpace(cfg.Redis.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Redis.Port
	if port <= 0 {
		port = 6379
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// BuildServerConfig 构建 asynq 服务端配置
func BuildServerConfig(cfg *config.Config) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := cfg.Queue.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	return BuildRedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			constants.QueueDefault: 1,
		},
	}
}
