package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"feiyu/internal/logic"
	"feiyu/internal/middleware"
	"feiyu/internal/response"
)

// RequestCreate 创建请求
// POST /api/requests
func RequestCreate(c *fiber.Ctx) error {
	var req logic.CreateRequestReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}
	if req.FolderID <= 0 {
		return response.Error(c, "目录ID不能为空")
	}
	if req.Name == "" {
		return response.Error(c, "请求名称不能为空")
	}
	if req.Method == "" {
		return response.Error(c, "请求方法不能为空")
	}

	userID := middleware.GetCurrentUserID(c)
	request, err := logic.NewRequestLogic(c.UserContext()).Create(userID, &req)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, request)
}

// RequestUpdate 更新请求
// PUT /api/requests/:id
func RequestUpdate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的请求ID")
	}

	var req logic.UpdateRequestReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}

	userID := middleware.GetCurrentUserID(c)
	if err := logic.NewRequestLogic(c.UserContext()).Update(userID, id, &req); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}

// RequestMove 移动请求到其他目录
// PUT /api/requests/:id/move
func RequestMove(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的请求ID")
	}

	var req logic.MoveRequestReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}
	if req.FolderID <= 0 {
		return response.Error(c, "目标目录ID不能为空")
	}
	if err := logic.NewRequestLogic(c.UserContext()).Move(id, &req); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}

// RequestDuplicate 复制请求
// POST /api/requests/:id/duplicate
func RequestDuplicate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的请求ID")
	}

	userID := middleware.GetCurrentUserID(c)
	clone, err := logic.NewRequestLogic(c.UserContext()).Duplicate(userID, id)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, clone)
}

// RequestDelete 删除请求
// DELETE /api/requests/:id
func RequestDelete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的请求ID")
	}
	if err := logic.NewRequestLogic(c.UserContext()).Delete(id); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}

// RequestGetByID 获取请求详情
// GET /api/requests/:id
func RequestGetByID(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的请求ID")
	}
	request, err := logic.NewRequestLogic(c.UserContext()).GetByID(id)
	if err != nil {
		return response.NotFound(c, err.Error())
	}
	return response.Success(c, request)
}

// RequestListByFolder 获取目录下的请求
// GET /api/requests?folderId=
func RequestListByFolder(c *fiber.Ctx) error {
	folderID, err := strconv.ParseInt(c.Query("folderId"), 10, 64)
	if err != nil || folderID <= 0 {
		return response.Error(c, "无效的目录ID")
	}
	list, err := logic.NewRequestLogic(c.UserContext()).ListByFolder(folderID)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, list)
}

// RequestResolve 查看请求的继承解析结果
// GET /api/requests/:id/resolved
func RequestResolve(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的请求ID")
	}
	resolved, err := logic.NewResolveLogic(c.UserContext()).Resolve(id)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, resolved)
}
