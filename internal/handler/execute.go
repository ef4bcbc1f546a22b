package handler

import (
	"github.com/gofiber/fiber/v2"

	"feiyu/internal/logic"
	"feiyu/internal/middleware"
	"feiyu/internal/response"
)

// Execute 执行请求
// POST /api/execute
func Execute(c *fiber.Ctx) error {
	var req logic.ExecuteReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}
	if req.RequestID <= 0 {
		return response.Error(c, "请求ID不能为空")
	}

	userID := middleware.GetCurrentUserID(c)
	resp, err := logic.NewExecuteLogic(c.UserContext()).Execute(userID, &req)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, resp)
}
