package handler

import (
	"github.com/gofiber/fiber/v2"

	"feiyu/internal/logic"
	"feiyu/internal/middleware"
	"feiyu/internal/response"
)

// HistoryList 分页获取执行历史
// GET /api/histories
func HistoryList(c *fiber.Ctx) error {
	var req logic.HistoryListReq
	if err := c.QueryParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}

	userID := middleware.GetCurrentUserID(c)
	list, total, err := logic.NewHistoryLogic(c.UserContext()).List(userID, &req)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.SuccessPage(c, list, total, req.Page, req.PageSize)
}

// HistoryGetByID 获取单条执行历史
// GET /api/histories/:id
func HistoryGetByID(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的历史ID")
	}

	userID := middleware.GetCurrentUserID(c)
	entry, err := logic.NewHistoryLogic(c.UserContext()).GetByID(userID, id)
	if err != nil {
		return response.NotFound(c, err.Error())
	}
	return response.Success(c, entry)
}

// HistoryDelete 删除单条执行历史
// DELETE /api/histories/:id
func HistoryDelete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的历史ID")
	}

	userID := middleware.GetCurrentUserID(c)
	if err := logic.NewHistoryLogic(c.UserContext()).Delete(userID, id); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}

// HistoryClear 清空执行历史
// DELETE /api/histories
func HistoryClear(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if err := logic.NewHistoryLogic(c.UserContext()).Clear(userID); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}
