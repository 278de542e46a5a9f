package admin

import (
	"github.com/peakform-next/internal/http/handlers/shared"
	"github.com/peakform-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 管理端接口处理器
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func respondError(c *gin.Context, code int, msg string, err error) {
	shared.RespondError(c, code, msg, err)
}
