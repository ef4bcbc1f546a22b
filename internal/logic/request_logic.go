package logic

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"feiyu/internal/model"
	"feiyu/internal/svc"
	"feiyu/internal/utils"
)

// RequestLogic 请求逻辑
type RequestLogic struct {
	ctx context.Context
}

// NewRequestLogic 创建请求逻辑
func NewRequestLogic(ctx context.Context) *RequestLogic {
	return &RequestLogic{ctx: ctx}
}

// 支持的请求方法
var supportedMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "DELETE": {},
	"PATCH": {}, "HEAD": {}, "OPTIONS": {},
}

// CreateRequestReq 创建请求
type CreateRequestReq struct {
	FolderID int64  `json:"folderId" validate:"required"`
	Name     string `json:"name" validate:"required,max=200"`
	Method   string `json:"method" validate:"required"`
	URL      string `json:"url" validate:"max=2000"`
	Body     string `json:"body"`
	BodyType string `json:"bodyType"`
	Sort     int64  `json:"sort"`
}

// UpdateRequestReq 更新请求，指针字段为 nil 时不更新
type UpdateRequestReq struct {
	Name            *string `json:"name"`
	Method          *string `json:"method"`
	URL             *string `json:"url"`
	Body            *string `json:"body"`
	BodyType        *string `json:"bodyType"`
	Sort            *int64  `json:"sort"`
	Headers         *string `json:"headers"`
	Params          *string `json:"params"`
	AuthType        *string `json:"authType"`
	AuthConfig      *string `json:"authConfig"`
	PreScript       *string `json:"preScript"`
	PostScript      *string `json:"postScript"`
	Timeout         *int    `json:"timeout"`
	FollowRedirects *bool   `json:"followRedirects"`
	VerifySSL       *bool   `json:"verifySsl"`
	Proxy           *string `json:"proxy"`
}

// Create 创建请求
func (l *RequestLogic) Create(userID int64, req *CreateRequestReq) (*model.Request, error) {
	method := strings.ToUpper(req.Method)
	if _, ok := supportedMethods[method]; !ok {
		return nil, errors.New("不支持的请求方法")
	}
	if _, err := NewFolderLogic(l.ctx).GetByID(req.FolderID); err != nil {
		return nil, errors.New("目录不存在")
	}

	request := &model.Request{
		FolderID: req.FolderID,
		Name:     req.Name,
		Method:   method,
		URL:      req.URL,
		Body:     req.Body,
		BodyType: req.BodyType,
		Sort:     req.Sort,
		AuthType: model.AuthTypeInherit,
	}
	request.CreatedBy = userID
	request.UpdatedBy = userID

	if err := svc.Ctx.DB.WithContext(l.ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

// Update 更新请求
func (l *RequestLogic) Update(userID, id int64, req *UpdateRequestReq) error {
	request, err := l.GetByID(id)
	if err != nil {
		return err
	}

	if req.Method != nil {
		method := strings.ToUpper(*req.Method)
		if _, ok := supportedMethods[method]; !ok {
			return errors.New("不支持的请求方法")
		}
		*req.Method = method
	}
	if req.Headers != nil && *req.Headers != "" && !utils.ValidString(*req.Headers) {
		return errors.New("headers 不是合法 JSON")
	}
	if req.Params != nil && *req.Params != "" && !utils.ValidString(*req.Params) {
		return errors.New("params 不是合法 JSON")
	}
	if req.AuthConfig != nil && *req.AuthConfig != "" && !utils.ValidString(*req.AuthConfig) {
		return errors.New("authConfig 不是合法 JSON")
	}

	updates := map[string]interface{}{"updated_by": userID}
	applyString(updates, "name", req.Name)
	applyString(updates, "method", req.Method)
	applyString(updates, "url", req.URL)
	applyString(updates, "body", req.Body)
	applyString(updates, "body_type", req.BodyType)
	applyInt64(updates, "sort", req.Sort)
	applyString(updates, "headers", req.Headers)
	applyString(updates, "params", req.Params)
	applyString(updates, "auth_type", req.AuthType)
	applyString(updates, "auth_config", req.AuthConfig)
	applyString(updates, "pre_script", req.PreScript)
	applyString(updates, "post_script", req.PostScript)
	if req.Timeout != nil {
		updates["timeout"] = *req.Timeout
	}
	if req.FollowRedirects != nil {
		updates["follow_redirects"] = *req.FollowRedirects
	}
	if req.VerifySSL != nil {
		updates["verify_ssl"] = *req.VerifySSL
	}
	if req.Proxy != nil {
		updates["proxy"] = *req.Proxy
	}

	return svc.Ctx.DB.WithContext(l.ctx).
		Model(&model.Request{}).Where("id = ?", request.ID).
		Updates(updates).Error
}

// MoveRequestReq 移动请求到其他目录
type MoveRequestReq struct {
	FolderID int64 `json:"folderId" validate:"required"`
	Sort     int64 `json:"sort"`
}

// Move 移动请求
func (l *RequestLogic) Move(id int64, req *MoveRequestReq) error {
	if _, err := NewFolderLogic(l.ctx).GetByID(req.FolderID); err != nil {
		return errors.New("目标目录不存在")
	}
	return svc.Ctx.DB.WithContext(l.ctx).
		Model(&model.Request{}).Where("id = ?", id).
		Updates(map[string]interface{}{"folder_id": req.FolderID, "sort": req.Sort}).Error
}

// Duplicate 复制请求，副本名带后缀
func (l *RequestLogic) Duplicate(userID, id int64) (*model.Request, error) {
	src, err := l.GetByID(id)
	if err != nil {
		return nil, err
	}

	clone := *src
	clone.BaseModel = model.BaseModel{}
	clone.Name = src.Name + " (副本)"
	clone.CreatedBy = userID
	clone.UpdatedBy = userID

	if err := svc.Ctx.DB.WithContext(l.ctx).Create(&clone).Error; err != nil {
		return nil, err
	}
	return &clone, nil
}

// Delete 删除请求
func (l *RequestLogic) Delete(id int64) error {
	return svc.Ctx.DB.WithContext(l.ctx).Delete(&model.Request{}, id).Error
}

// GetByID 根据ID获取请求
func (l *RequestLogic) GetByID(id int64) (*model.Request, error) {
	var request model.Request
	if err := svc.Ctx.DB.WithContext(l.ctx).First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("请求不存在")
		}
		return nil, err
	}
	return &request, nil
}

// ListByFolder 获取目录下的请求列表
func (l *RequestLogic) ListByFolder(folderID int64) ([]*model.Request, error) {
	var requests []*model.Request
	err := svc.Ctx.DB.WithContext(l.ctx).
		Where("folder_id = ?", folderID).
		Order("sort, id").Find(&requests).Error
	return requests, err
}
