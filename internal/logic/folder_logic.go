package logic

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"feiyu/internal/model"
	"feiyu/internal/svc"
	"feiyu/internal/utils"
)

// FolderLogic 目录逻辑
type FolderLogic struct {
	ctx context.Context
}

// NewFolderLogic 创建目录逻辑
func NewFolderLogic(ctx context.Context) *FolderLogic {
	return &FolderLogic{ctx: ctx}
}

// CreateFolderReq 创建目录请求
type CreateFolderReq struct {
	ParentID *int64 `json:"parentId"`
	Name     string `json:"name" validate:"required,max=200"`
	Sort     int64  `json:"sort"`
}

// UpdateFolderReq 更新目录请求，指针字段为 nil 时不更新
type UpdateFolderReq struct {
	Name            *string `json:"name"`
	Sort            *int64  `json:"sort"`
	Headers         *string `json:"headers"`
	Params          *string `json:"params"`
	AuthType        *string `json:"authType"`
	AuthConfig      *string `json:"authConfig"`
	PreScript       *string `json:"preScript"`
	PostScript      *string `json:"postScript"`
	BaseURL         *string `json:"baseUrl"`
	Timeout         *int    `json:"timeout"`
	FollowRedirects *bool   `json:"followRedirects"`
	VerifySSL       *bool   `json:"verifySsl"`
	Proxy           *string `json:"proxy"`
}

// MoveFolderReq 移动目录请求
type MoveFolderReq struct {
	ParentID *int64 `json:"parentId"`
	Sort     int64  `json:"sort"`
}

// FolderTreeNode 目录树节点
type FolderTreeNode struct {
	*model.Folder
	Children []*FolderTreeNode `json:"children"`
	Requests []*model.Request  `json:"requests,omitempty"`
}

// Create 创建目录
func (l *FolderLogic) Create(userID int64, req *CreateFolderReq) (*model.Folder, error) {
	if req.ParentID != nil {
		if _, err := l.GetByID(*req.ParentID); err != nil {
			return nil, errors.New("父目录不存在")
		}
	}
	folder := &model.Folder{
		ParentID: req.ParentID,
		Name:     req.Name,
		OwnerID:  userID,
		Sort:     req.Sort,
		AuthType: model.AuthTypeInherit,
	}
	folder.CreatedBy = userID
	folder.UpdatedBy = userID

	if err := svc.Ctx.DB.WithContext(l.ctx).Create(folder).Error; err != nil {
		return nil, err
	}
	return folder, nil
}

// Update 更新目录配置
func (l *FolderLogic) Update(userID, id int64, req *UpdateFolderReq) error {
	folder, err := l.GetByID(id)
	if err != nil {
		return err
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
	applyInt64(updates, "sort", req.Sort)
	applyString(updates, "headers", req.Headers)
	applyString(updates, "params", req.Params)
	applyString(updates, "auth_type", req.AuthType)
	applyString(updates, "auth_config", req.AuthConfig)
	applyString(updates, "pre_script", req.PreScript)
	applyString(updates, "post_script", req.PostScript)
	applyString(updates, "base_url", req.BaseURL)
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
		Model(&model.Folder{}).Where("id = ?", folder.ID).
		Updates(updates).Error
}

// Move 移动目录到新父级。移动后不得形成环。
func (l *FolderLogic) Move(id int64, req *MoveFolderReq) error {
	folder, err := l.GetByID(id)
	if err != nil {
		return err
	}

	if req.ParentID != nil {
		if *req.ParentID == id {
			return errors.New("不能移动到自身之下")
		}
		parent, err := l.GetByID(*req.ParentID)
		if err != nil {
			return errors.New("目标目录不存在")
		}
		// 沿目标向上走，经过自身说明目标是自己的后代
		cursor := parent
		for cursor != nil {
			if cursor.ID == id {
				return errors.New("不能移动到自身的子目录之下")
			}
			if cursor.ParentID == nil {
				break
			}
			cursor, err = l.GetByID(*cursor.ParentID)
			if err != nil {
				return err
			}
		}
	}

	return svc.Ctx.DB.WithContext(l.ctx).
		Model(&model.Folder{}).Where("id = ?", folder.ID).
		Updates(map[string]interface{}{"parent_id": req.ParentID, "sort": req.Sort}).Error
}

// Delete 删除目录，目录下仍有子目录或请求时拒绝
func (l *FolderLogic) Delete(id int64) error {
	var childCount int64
	if err := svc.Ctx.DB.WithContext(l.ctx).
		Model(&model.Folder{}).Where("parent_id = ?", id).
		Count(&childCount).Error; err != nil {
		return err
	}
	if childCount > 0 {
		return errors.New("目录下存在子目录，无法删除")
	}

	var requestCount int64
	if err := svc.Ctx.DB.WithContext(l.ctx).
		Model(&model.Request{}).Where("folder_id = ?", id).
		Count(&requestCount).Error; err != nil {
		return err
	}
	if requestCount > 0 {
		return errors.New("目录下存在请求，无法删除")
	}

	return svc.Ctx.DB.WithContext(l.ctx).Delete(&model.Folder{}, id).Error
}

// GetByID 根据ID获取目录
func (l *FolderLogic) GetByID(id int64) (*model.Folder, error) {
	var folder model.Folder
	if err := svc.Ctx.DB.WithContext(l.ctx).First(&folder, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("目录不存在")
		}
		return nil, err
	}
	return &folder, nil
}

// GetFolder 供继承解析器使用
func (l *FolderLogic) GetFolder(ctx context.Context, id int64) (*model.Folder, error) {
	var folder model.Folder
	if err := svc.Ctx.DB.WithContext(ctx).First(&folder, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("目录不存在")
		}
		return nil, err
	}
	return &folder, nil
}

// Tree 构建某用户的完整目录树，可按需挂载请求
func (l *FolderLogic) Tree(ownerID int64, withRequests bool) ([]*FolderTreeNode, error) {
	var folders []*model.Folder
	if err := svc.Ctx.DB.WithContext(l.ctx).
		Where("owner_id = ?", ownerID).
		Order("sort, id").Find(&folders).Error; err != nil {
		return nil, err
	}

	nodes := make(map[int64]*FolderTreeNode, len(folders))
	for _, f := range folders {
		nodes[f.ID] = &FolderTreeNode{Folder: f}
	}

	if withRequests {
		var requests []*model.Request
		if err := svc.Ctx.DB.WithContext(l.ctx).
			Where("created_by = ?", ownerID).
			Order("sort, id").Find(&requests).Error; err != nil {
			return nil, err
		}
		for _, r := range requests {
			if node, ok := nodes[r.FolderID]; ok {
				node.Requests = append(node.Requests, r)
			}
		}
	}

	var roots []*FolderTreeNode
	for _, f := range folders {
		node := nodes[f.ID]
		if f.ParentID != nil {
			if parent, ok := nodes[*f.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots, nil
}

func applyString(updates map[string]interface{}, column string, v *string) {
	if v != nil {
		updates[column] = *v
	}
}

func applyInt64(updates map[string]interface{}, column string, v *int64) {
	if v != nil {
		updates[column] = *v
	}
}
