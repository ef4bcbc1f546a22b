package logic

import (
	"context"

	"feiyu/internal/resolver"
)

// ResolveLogic 继承解析预览，不执行请求
type ResolveLogic struct {
	ctx context.Context
}

// NewResolveLogic 创建解析逻辑
func NewResolveLogic(ctx context.Context) *ResolveLogic {
	return &ResolveLogic{ctx: ctx}
}

// Resolve 返回请求的最终执行配置，敏感字段不做插值
func (l *ResolveLogic) Resolve(requestID int64) (*resolver.ResolvedRequest, error) {
	request, err := NewRequestLogic(l.ctx).GetByID(requestID)
	if err != nil {
		return nil, err
	}
	return resolver.New(NewFolderLogic(l.ctx)).Resolve(l.ctx, request)
}
