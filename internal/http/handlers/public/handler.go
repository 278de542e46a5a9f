package public

import (
	"github.com/peakform-next/internal/provider"
)

// Handler 面向用户的接口处理器
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
