package router

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/peakform-next/internal/config"
	"github.com/peakform-next/internal/http/response"
	"github.com/peakform-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RequestIDMiddleware 为每个请求生成 request_id 并写入响应头。
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggerMiddleware 记录请求访问日志。
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID := ""
		if value, ok := c.Get("request_id"); ok {
			if id, ok := value.(string); ok {
				requestID = id
			}
		}
		logger.S().With(
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		).Info("http_request")
	}
}

// CORSMiddleware 处理跨域请求。
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := resolveAllowedOrigin(cfg, origin)
		if allowed != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowed)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID, X-Admin-Token")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func resolveAllowedOrigin(cfg *config.Config, origin string) string {
	if origin == "" {
		return ""
	}
	if cfg == nil || len(cfg.CORS.AllowedOrigins) == 0 {
		return origin
	}
	for _, allowed := range cfg.CORS.AllowedOrigins {
		trimmed := strings.TrimSpace(allowed)
		if trimmed == "*" || strings.EqualFold(trimmed, origin) {
			return origin
		}
	}
	return ""
}

// userClaims 用户令牌声明
type userClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// UserJWTAuth 用户身份认证，校验 Bearer Token 并注入 user_id。
func UserJWTAuth(secret string) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		claims := &userClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid || claims.UserID == 0 {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		c.Set("user_id", claims.UserID)
		c.Next()
	}
}

// AdminTokenAuth 管理端静态令牌认证。
func AdminTokenAuth(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminToken == "" {
			response.Forbidden(c, "admin access disabled")
			c.Abort()
			return
		}
		provided := strings.TrimSpace(c.GetHeader("X-Admin-Token"))
		if subtle.ConstantTimeCompare([]byte(provided), []byte(adminToken)) != 1 {
			response.Forbidden(c, "admin token mismatch")
			c.Abort()
			return
		}
		c.Next()
	}
}
