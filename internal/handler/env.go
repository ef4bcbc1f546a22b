package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"feiyu/internal/logic"
	"feiyu/internal/middleware"
	"feiyu/internal/response"
)

// EnvCreate 创建环境
// POST /api/envs
func EnvCreate(c *fiber.Ctx) error {
	var req logic.CreateEnvReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}
	if req.Name == "" {
		return response.Error(c, "环境名称不能为空")
	}

	userID := middleware.GetCurrentUserID(c)
	env, err := logic.NewEnvLogic(c.UserContext()).Create(userID, &req)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, env)
}

// EnvUpdate 更新环境
// PUT /api/envs/:id
func EnvUpdate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的环境ID")
	}

	var req logic.UpdateEnvReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}

	userID := middleware.GetCurrentUserID(c)
	if err := logic.NewEnvLogic(c.UserContext()).Update(userID, id, &req); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}

// EnvDelete 删除环境
// DELETE /api/envs/:id
func EnvDelete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的环境ID")
	}
	if err := logic.NewEnvLogic(c.UserContext()).Delete(id); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}

// EnvList 环境列表
// GET /api/envs
func EnvList(c *fiber.Ctx) error {
	envs, err := logic.NewEnvLogic(c.UserContext()).List()
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, envs)
}

// EnvSetActive 激活环境
// PUT /api/envs/:id/activate
func EnvSetActive(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的环境ID")
	}
	if err := logic.NewEnvLogic(c.UserContext()).SetActive(id); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}

// EnvGetVars 获取环境变量，敏感值打码
// GET /api/envs/:id/vars
func EnvGetVars(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的环境ID")
	}
	vars, version, err := logic.NewEnvLogic(c.UserContext()).GetVars(id)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, fiber.Map{"vars": vars, "version": version})
}

// EnvSaveVars 整体保存环境变量
// PUT /api/envs/:id/vars
func EnvSaveVars(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的环境ID")
	}

	var req logic.SaveVarsReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}

	userID := middleware.GetCurrentUserID(c)
	version, err := logic.NewEnvLogic(c.UserContext()).SaveVars(userID, id, &req)
	if err != nil {
		if errors.Is(err, logic.ErrVarsConflict) {
			return response.Conflict(c, err.Error(), fiber.Map{"version": version})
		}
		return response.Error(c, err.Error())
	}
	return response.Success(c, fiber.Map{"version": version})
}

// EnvSetOverride 写入本地覆盖
// PUT /api/envs/:id/overrides
func EnvSetOverride(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的环境ID")
	}

	var req logic.OverrideReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}
	if req.Key == "" {
		return response.Error(c, "变量 key 不能为空")
	}

	userID := middleware.GetCurrentUserID(c)
	if err := logic.NewEnvLogic(c.UserContext()).SetOverride(userID, id, &req); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}

// EnvDeleteOverride 删除本地覆盖
// DELETE /api/envs/:id/overrides/:key
func EnvDeleteOverride(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的环境ID")
	}
	key := c.Params("key")
	if key == "" {
		return response.Error(c, "变量 key 不能为空")
	}

	userID := middleware.GetCurrentUserID(c)
	if err := logic.NewEnvLogic(c.UserContext()).DeleteOverride(userID, id, key); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}

// EnvListOverrides 列出本地覆盖
// GET /api/envs/:id/overrides
func EnvListOverrides(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "无效的环境ID")
	}

	userID := middleware.GetCurrentUserID(c)
	overrides, err := logic.NewEnvLogic(c.UserContext()).ListOverrides(userID, id)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, overrides)
}
