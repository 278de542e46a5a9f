package public

import (
	"github.com/peakform-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

// getUserID 读取登录用户 ID，缺失时已写好错误响应。
func getUserID(c *gin.Context) (uint, bool) {
	return shared.GetContextUint(c, "user_id")
}

func respondError(c *gin.Context, code int, msg string, err error) {
	shared.RespondError(c, code, msg, err)
}
