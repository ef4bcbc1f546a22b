package handler

import (
	"github.com/gofiber/fiber/v2"

	"feiyu/internal/logic"
	"feiyu/internal/middleware"
	"feiyu/internal/response"
)

// UserRegister 注册
// POST /api/auth/register
func UserRegister(c *fiber.Ctx) error {
	var req logic.RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}
	if req.Username == "" || req.Password == "" {
		return response.Error(c, "用户名和密码不能为空")
	}
	if len(req.Password) < 6 {
		return response.Error(c, "密码长度不能小于6位")
	}

	user, err := logic.NewUserLogic(c.UserContext()).Register(&req)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, user)
}

// UserLogin 登录
// POST /api/auth/login
func UserLogin(c *fiber.Ctx) error {
	var req logic.LoginReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "参数解析失败")
	}
	if req.Username == "" || req.Password == "" {
		return response.Error(c, "用户名和密码不能为空")
	}

	resp, err := logic.NewUserLogic(c.UserContext()).Login(&req)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, resp)
}

// UserLogout 登出
// POST /api/auth/logout
func UserLogout(c *fiber.Ctx) error {
	token := middleware.GetCurrentToken(c)
	if token == "" {
		return response.Success(c, nil)
	}
	if err := logic.NewUserLogic(c.UserContext()).Logout(token); err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, nil)
}

// UserInfo 当前用户信息
// GET /api/user/info
func UserInfo(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	user, err := logic.NewUserLogic(c.UserContext()).GetByID(userID)
	if err != nil {
		return response.Error(c, err.Error())
	}
	return response.Success(c, user)
}
