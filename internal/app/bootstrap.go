package app

import (
	"fmt"

	"github.com/peakform-next/internal/config"
	"github.com/peakform-next/internal/provider"
	"github.com/peakform-next/internal/router"
	"github.com/peakform-next/internal/worker"
)

// BuildRunner 按运行模式组装服务。
// api 只跑 HTTP，worker 只跑任务消费与巡检，all 两者都跑。
func BuildRunner(cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	container, err := provider.NewContainer(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("build container failed: %w", err)
	}

	var services []Service
	switch mode {
	case ModeAPI:
		services = append(services, NewHTTPService(cfg.Addr(), router.New(container)))
	case ModeWorker:
		services = append(services, worker.NewService(container))
	case ModeAll, "":
		services = append(services,
			NewHTTPService(cfg.Addr(), router.New(container)),
			worker.NewService(container),
		)
	default:
		return nil, nil, fmt.Errorf("unknown mode: %s", mode)
	}

	return NewRunner(services...), container, nil
}
