package logic

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"feiyu/internal/model"
	"feiyu/internal/svc"
)

// HistoryLogic 执行历史逻辑
type HistoryLogic struct {
	ctx context.Context
}

// NewHistoryLogic 创建执行历史逻辑
func NewHistoryLogic(ctx context.Context) *HistoryLogic {
	return &HistoryLogic{ctx: ctx}
}

// 响应体入库截断上限，超长部分不保留
const maxStoredBodySize = 1 << 20

// HistoryListReq 历史列表请求
type HistoryListReq struct {
	Page      int    `query:"page" validate:"min=1"`
	PageSize  int    `query:"pageSize" validate:"min=1,max=100"`
	RequestID int64  `query:"requestId"`
	Method    string `query:"method"`
	Keyword   string `query:"keyword"`
}

// Record 写入一条执行记录，响应体超长时截断
func (l *HistoryLogic) Record(entry *model.HistoryEntry) error {
	if len(entry.RespBody) > maxStoredBodySize {
		entry.RespBody = entry.RespBody[:maxStoredBodySize]
	}
	return svc.Ctx.DB.WithContext(l.ctx).Create(entry).Error
}

// GetByID 获取单条历史，只能看自己的
func (l *HistoryLogic) GetByID(userID, id int64) (*model.HistoryEntry, error) {
	var entry model.HistoryEntry
	err := svc.Ctx.DB.WithContext(l.ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New("历史记录不存在")
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List 分页获取自己的执行历史
func (l *HistoryLogic) List(userID int64, req *HistoryListReq) ([]*model.HistoryEntry, int64, error) {
	qry := svc.Ctx.DB.WithContext(l.ctx).
		Model(&model.HistoryEntry{}).
		Where("user_id = ?", userID)

	if req.RequestID > 0 {
		qry = qry.Where("request_id = ?", req.RequestID)
	}
	if req.Method != "" {
		qry = qry.Where("method = ?", req.Method)
	}
	if req.Keyword != "" {
		qry = qry.Where("url LIKE ?", "%"+req.Keyword+"%")
	}

	var total int64
	if err := qry.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}

	var entries []*model.HistoryEntry
	offset := (req.Page - 1) * req.PageSize
	err := qry.Order("id DESC").Offset(offset).Limit(req.PageSize).Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Delete 删除单条历史
func (l *HistoryLogic) Delete(userID, id int64) error {
	return svc.Ctx.DB.WithContext(l.ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.HistoryEntry{}).Error
}

// Clear 清空自己的执行历史
func (l *HistoryLogic) Clear(userID int64) error {
	return svc.Ctx.DB.WithContext(l.ctx).
		Where("user_id = ?", userID).
		Delete(&model.HistoryEntry{}).Error
}
