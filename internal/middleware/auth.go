package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"feiyu/internal/ctxutil"
	"feiyu/internal/response"
	"feiyu/internal/svc"
)

// AuthMiddleware 认证中间件
func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := getToken(c)
		if token == "" {
			return response.Unauthorized(c, "请先登录")
		}

		userID, err := svc.Ctx.Token.Verify(c.Context(), token)
		if err != nil {
			return response.Unauthorized(c, "登录已过期，请重新登录")
		}

		c.Locals("userId", userID)
		c.Locals("token", token)

		// 用户ID存入 context 供 Logic 层使用
		ctx := ctxutil.WithUserID(c.Context(), userID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// GetCurrentUserID 获取当前登录用户ID
func GetCurrentUserID(c *fiber.Ctx) int64 {
	if id, ok := c.Locals("userId").(int64); ok {
		return id
	}
	return 0
}

// GetCurrentToken 获取当前请求携带的 token
func GetCurrentToken(c *fiber.Ctx) string {
	if token, ok := c.Locals("token").(string); ok {
		return token
	}
	return ""
}

// getToken 从请求中获取Token
func getToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer ")
		}
		return authHeader
	}
	if token := c.Query("token"); token != "" {
		return token
	}
	return c.Cookies("token")
}
