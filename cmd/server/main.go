package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"feiyu/internal/agent"
	"feiyu/internal/auth"
	"feiyu/internal/config"
	"feiyu/internal/database"
	"feiyu/internal/logger"
	"feiyu/internal/redis"
	"feiyu/internal/router"
	"feiyu/internal/svc"
	"feiyu/internal/utils"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig("config/config.yml")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	logger.Init(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	})
	defer logger.Sync()
	logger.Info("日志初始化完成")

	// 敏感数据加密密钥
	if cfg.Secret.Key != "" {
		if err := utils.SetSecretKey(cfg.Secret.Key); err != nil {
			log.Fatalf("设置加密密钥失败: %v", err)
		}
	}

	// 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close()
	db := database.GetDB()

	// 初始化Redis
	if err := redis.Init(&cfg.Redis); err != nil {
		log.Fatalf("初始化Redis失败: %v", err)
	}
	defer redis.Close()
	rdb := redis.GetClient()

	// 登录令牌
	tokenManager := auth.NewManager(
		cfg.Auth.TokenSecret,
		time.Duration(cfg.Auth.TokenExpire)*time.Hour,
		rdb,
	)

	// 执行器中枢，读超时取心跳超时的一半作为心跳间隔
	hub := agent.NewHub(
		tokenManager.Verify,
		time.Duration(cfg.Agent.TimeoutBuffer)*time.Millisecond,
		time.Duration(cfg.Agent.HeartbeatTimeout)*time.Second/2,
	)

	// 初始化服务上下文
	svc.Init(cfg, db, rdb, tokenManager, hub)

	// 创建Fiber应用
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  0,
		WriteTimeout: 0,
	})

	// 设置路由
	router.Setup(app)

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Printf("服务器启动在 http://%s", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务器...")
	if err := app.Shutdown(); err != nil {
		log.Printf("服务器关闭失败: %v", err)
	}
	log.Println("服务器已关闭")
}
