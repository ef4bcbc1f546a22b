package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"feiyu/internal/logic"
	"feiyu/internal/middleware"
	"feiyu/internal/response"
)

// FolderCreate 创建目录
// POST /api/folders
func FolderCreate(c *fiber.Ctx) error {
	var req logic.CreateFolderReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}
	if req.Name == "" {
		return response.Error(c, "目录名称不能为空")
	}

	userID := middleware.GetCurrentUserID(c)
	folder, err := logic.NewFolderLogic(c.UserContext()).Create(userID, &req)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, folder)
}

// FolderUpdate 更新目录配置
// PUT /api/folders/:id
func FolderUpdate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的目录ID")
	}

	var req logic.UpdateFolderReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}

	userID := middleware.GetCurrentUserID(c)
	if err := logic.NewFolderLogic(c.UserContext()).Update(userID, id, &req); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}

// FolderMove 移动目录
// PUT /api/folders/:id/move
func FolderMove(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的目录ID")
	}

	var req logic.MoveFolderReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}
	if err := logic.NewFolderLogic(c.UserContext()).Move(id, &req); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}

// FolderDelete 删除目录
// DELETE /api/folders/:id
func FolderDelete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的目录ID")
	}
	if err := logic.NewFolderLogic(c.UserContext()).Delete(id); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}

// FolderGetByID 获取目录详情
// GET /api/folders/:id
func FolderGetByID(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的目录ID")
	}
	folder, err := logic.NewFolderLogic(c.UserContext()).GetByID(id)
	if err != nil {
		return response.NotFound(c, err.Error())
	}
	return response.Success(c, folder)
}

// FolderTree 获取完整目录树
// GET /api/folders/tree
func FolderTree(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	withRequests := c.QueryBool("withRequests", false)

	tree, err := logic.NewFolderLogic(c.UserContext()).Tree(userID, withRequests)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, tree)
}

// parseID 解析路径中的ID参数
func parseID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}
