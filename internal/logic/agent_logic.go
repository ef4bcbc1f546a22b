package logic

import (
	"context"

	"feiyu/internal/agent"
	"feiyu/internal/svc"
)

// AgentLogic 远程执行器逻辑
type AgentLogic struct {
	ctx context.Context
}

// NewAgentLogic 创建执行器逻辑
func NewAgentLogic(ctx context.Context) *AgentLogic {
	return &AgentLogic{ctx: ctx}
}

// List 列出自己在线的执行器
func (l *AgentLogic) List(userID int64) []agent.Info {
	return svc.Ctx.Agents.List(userID)
}

// Online 检查执行器是否在线
func (l *AgentLogic) Online(agentID string) bool {
	return svc.Ctx.Agents.Has(agentID)
}
