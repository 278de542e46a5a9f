package worker

import (
	"context"
	"time"

	"github.com/peakform-next/internal/logger"
	"github.com/peakform-next/internal/provider"
	"github.com/peakform-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 后台工作服务：异步任务消费 + 补货巡检循环。
type Service struct {
	container *provider.Container
	server    *asynq.Server
	mux       *asynq.ServeMux
}

// NewService 创建后台工作服务
func NewService(c *provider.Container) *Service {
	s := &Service{container: c}
	if c.Config.Queue.Enabled {
		redisOpt, serverCfg := queue.BuildServerConfig(c.Config)
		s.server = asynq.NewServer(redisOpt, serverCfg)
		s.mux = asynq.NewServeMux()
		NewConsumer(c).Register(s.mux)
	}
	return s
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动任务消费与巡检循环，阻塞到 ctx 结束。
func (s *Service) Start(ctx context.Context) error {
	go s.runRestockSweepLoop(ctx)

	if s.server == nil {
		<-ctx.Done()
		return nil
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s.server != nil {
		s.server.Shutdown()
	}
	return nil
}

// runRestockSweepLoop 周期执行补货巡检，启动时先跑一轮。
func (s *Service) runRestockSweepLoop(ctx context.Context) {
	interval := time.Duration(s.container.Config.Watcher.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	s.sweepOnce(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Service) sweepOnce(ctx context.Context) {
	if err := s.container.RestockService.Sweep(ctx); err != nil && ctx.Err() == nil {
		logger.Errorw("restock_sweep_failed", "error", err)
	}
}
