package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"feiyu/internal/handler"
	"feiyu/internal/middleware"
)

// Setup 设置路由
func Setup(app *fiber.App) {
	// 全局中间件
	app.Use(recover.New())
	app.Use(fiberLogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// 健康检查
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"app":    "feiyu",
		})
	})

	// 执行器 WebSocket，token 在连接内校验
	app.Use("/api/v1/agent/ws", handler.AgentWSUpgrade)
	app.Get("/api/v1/agent/ws", handler.AgentWS)

	// 登录注册
	authGroup := app.Group("/api/auth")
	authGroup.Post("/register", handler.UserRegister)
	authGroup.Post("/login", handler.UserLogin)

	// API 路由组（需要认证）
	api := app.Group("/api", middleware.AuthMiddleware())

	api.Post("/auth/logout", handler.UserLogout)
	api.Get("/user/info", handler.UserInfo)

	// 目录
	folder := api.Group("/folders")
	folder.Get("/tree", handler.FolderTree)
	folder.Post("/", handler.FolderCreate)
	folder.Get("/:id", handler.FolderGetByID)
	folder.Put("/:id", handler.FolderUpdate)
	folder.Put("/:id/move", handler.FolderMove)
	folder.Delete("/:id", handler.FolderDelete)

	// 请求
	request := api.Group("/requests")
	request.Get("/", handler.RequestListByFolder)
	request.Post("/", handler.RequestCreate)
	request.Get("/:id", handler.RequestGetByID)
	request.Put("/:id", handler.RequestUpdate)
	request.Put("/:id/move", handler.RequestMove)
	request.Post("/:id/duplicate", handler.RequestDuplicate)
	request.Get("/:id/resolved", handler.RequestResolve)
	request.Delete("/:id", handler.RequestDelete)

	// 环境与变量
	env := api.Group("/envs")
	env.Get("/", handler.EnvList)
	env.Post("/", handler.EnvCreate)
	env.Put("/:id", handler.EnvUpdate)
	env.Delete("/:id", handler.EnvDelete)
	env.Put("/:id/activate", handler.EnvSetActive)
	env.Get("/:id/vars", handler.EnvGetVars)
	env.Put("/:id/vars", handler.EnvSaveVars)
	env.Get("/:id/overrides", handler.EnvListOverrides)
	env.Put("/:id/overrides", handler.EnvSetOverride)
	env.Delete("/:id/overrides/:key", handler.EnvDeleteOverride)

	// 执行与历史
	api.Post("/execute", handler.Execute)
	history := api.Group("/histories")
	history.Get("/", handler.HistoryList)
	history.Get("/:id", handler.HistoryGetByID)
	history.Delete("/:id", handler.HistoryDelete)
	history.Delete("/", handler.HistoryClear)

	// 执行器
	api.Get("/agents", handler.AgentList)
}
