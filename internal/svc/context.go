package svc

import (
	"feiyu/internal/agent"
	"feiyu/internal/auth"
	"feiyu/internal/config"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ServiceContext 全局服务上下文
type ServiceContext struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Token  *auth.Manager
	Agents *agent.Hub
}

var Ctx *ServiceContext

// Init 初始化服务上下文
func Init(cfg *config.Config, db *gorm.DB, rdb *redis.Client, token *auth.Manager, agents *agent.Hub) {
	Ctx = &ServiceContext{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Token:  token,
		Agents: agents,
	}
}
