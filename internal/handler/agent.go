package handler

import (
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"

	"feiyu/internal/logic"
	"feiyu/internal/middleware"
	"feiyu/internal/response"
	"feiyu/internal/svc"
)

// AgentList 列出在线执行器
// GET /api/agents
func AgentList(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	return response.Success(c, logic.NewAgentLogic(c.UserContext()).List(userID))
}

// AgentWSUpgrade 执行器 WebSocket 升级检查
// GET /api/v1/agent/ws
func AgentWSUpgrade(c *fiber.Ctx) error {
	if fiberws.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// AgentWS 执行器 WebSocket 连接，token 校验在连接内完成
var AgentWS = fiberws.New(func(c *fiberws.Conn) {
	svc.Ctx.Agents.HandleConnection(c)
})
