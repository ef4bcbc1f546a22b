package logic

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"feiyu/internal/model"
	"feiyu/internal/svc"
	"feiyu/internal/utils"
)

// EnvLogic 环境与环境变量逻辑
type EnvLogic struct {
	ctx context.Context
}

// NewEnvLogic 创建环境逻辑
func NewEnvLogic(ctx context.Context) *EnvLogic {
	return &EnvLogic{ctx: ctx}
}

// ErrVarsConflict 变量集并发修改冲突
var ErrVarsConflict = errors.New("变量已被他人修改，请刷新后重试")

// 前端回传的敏感值打码占位
const maskedPlaceholder = "******"

// CreateEnvReq 创建环境请求
type CreateEnvReq struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Sort        int64  `json:"sort"`
}

// UpdateEnvReq 更新环境请求
type UpdateEnvReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Sort        *int64  `json:"sort"`
}

// SaveVarsReq 整体保存变量集，带乐观锁版本号
type SaveVarsReq struct {
	Vars    []model.VarItem `json:"vars"`
	Version int32           `json:"version"`
}

// OverrideReq 本地覆盖写入请求
type OverrideReq struct {
	Key   string `json:"key" validate:"required,max=200"`
	Value string `json:"value"`
}

// ValidateVarType 校验变量值与声明类型是否一致
func ValidateVarType(varType, value string) error {
	switch varType {
	case "", model.VarTypeString:
		return nil
	case model.VarTypeNumber:
		if value == "" {
			return nil
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return errors.New("值不是有效的数字")
		}
		return nil
	case model.VarTypeBoolean:
		if value == "" || value == "true" || value == "false" {
			return nil
		}
		return errors.New("值必须是 true 或 false")
	case model.VarTypeJSON:
		if value == "" || utils.ValidString(value) {
			return nil
		}
		return errors.New("值不是有效的JSON格式")
	default:
		return errors.New("不支持的变量类型")
	}
}

// Create 创建环境
func (l *EnvLogic) Create(userID int64, req *CreateEnvReq) (*model.Environment, error) {
	env := &model.Environment{
		Name:        req.Name,
		Description: req.Description,
		Sort:        req.Sort,
		Vars:        "[]",
	}
	env.CreatedBy = userID
	env.UpdatedBy = userID

	if err := svc.Ctx.DB.WithContext(l.ctx).Create(env).Error; err != nil {
		return nil, err
	}
	return env, nil
}

// Update 更新环境基本信息
func (l *EnvLogic) Update(userID, id int64, req *UpdateEnvReq) error {
	if _, err := l.GetByID(id); err != nil {
		return err
	}
	updates := map[string]interface{}{"updated_by": userID}
	applyString(updates, "name", req.Name)
	applyString(updates, "description", req.Description)
	applyInt64(updates, "sort", req.Sort)
	return svc.Ctx.DB.WithContext(l.ctx).
		Model(&model.Environment{}).Where("id = ?", id).
		Updates(updates).Error
}

// Delete 删除环境及其本地覆盖
func (l *EnvLogic) Delete(id int64) error {
	return svc.Ctx.DB.WithContext(l.ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("environment_id = ?", id).Delete(&model.LocalOverride{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Environment{}, id).Error
	})
}

// GetByID 根据ID获取环境
func (l *EnvLogic) GetByID(id int64) (*model.Environment, error) {
	var env model.Environment
	if err := svc.Ctx.DB.WithContext(l.ctx).First(&env, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("环境不存在")
		}
		return nil, err
	}
	return &env, nil
}

// List 获取全部环境
func (l *EnvLogic) List() ([]*model.Environment, error) {
	var envs []*model.Environment
	err := svc.Ctx.DB.WithContext(l.ctx).Order("sort, id").Find(&envs).Error
	return envs, err
}

// SetActive 激活指定环境，其余环境取消激活
func (l *EnvLogic) SetActive(id int64) error {
	if _, err := l.GetByID(id); err != nil {
		return err
	}
	return svc.Ctx.DB.WithContext(l.ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Environment{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&model.Environment{}).
			Where("id = ?", id).
			Update("is_active", true).Error
	})
}

// GetActive 获取当前激活环境，未设置时返回 nil
func (l *EnvLogic) GetActive() (*model.Environment, error) {
	var env model.Environment
	err := svc.Ctx.DB.WithContext(l.ctx).Where("is_active = ?", true).First(&env).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &env, nil
}

// SaveVars 整体保存变量集。
// 版本号不匹配说明其他人已保存过，返回冲突错误；
// 敏感值为打码占位时保留库中原值，否则加密后落库。
func (l *EnvLogic) SaveVars(userID, id int64, req *SaveVarsReq) (int32, error) {
	env, err := l.GetByID(id)
	if err != nil {
		return 0, err
	}
	if env.VarsVersion != req.Version {
		return env.VarsVersion, ErrVarsConflict
	}

	var existing []model.VarItem
	if env.Vars != "" {
		_ = utils.UnmarshalString(env.Vars, &existing)
	}
	existingByKey := make(map[string]model.VarItem, len(existing))
	for _, v := range existing {
		existingByKey[v.Key] = v
	}

	seen := make(map[string]struct{}, len(req.Vars))
	for i := range req.Vars {
		v := &req.Vars[i]
		if v.Key == "" {
			return 0, errors.New("变量 key 不能为空")
		}
		if _, dup := seen[v.Key]; dup {
			return 0, errors.New("变量 key 重复: " + v.Key)
		}
		seen[v.Key] = struct{}{}
		if err := ValidateVarType(v.Type, v.Value); err != nil {
			return 0, err
		}

		if !v.IsSecret {
			continue
		}
		// 打码占位表示未修改，沿用库中密文
		if v.Value == maskedPlaceholder {
			if old, ok := existingByKey[v.Key]; ok && old.IsSecret {
				v.Value = old.Value
				continue
			}
			v.Value = ""
			continue
		}
		if v.Value != "" {
			encrypted, err := utils.Encrypt(v.Value)
			if err != nil {
				return 0, errors.New("加密失败")
			}
			v.Value = encrypted
		}
	}

	text, err := utils.ToJSON(req.Vars)
	if err != nil {
		return 0, err
	}

	result := svc.Ctx.DB.WithContext(l.ctx).
		Model(&model.Environment{}).
		Where("id = ? AND vars_version = ?", id, req.Version).
		Updates(map[string]interface{}{
			"vars":         text,
			"vars_version": gorm.Expr("vars_version + 1"),
			"updated_by":   userID,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return env.VarsVersion, ErrVarsConflict
	}
	return req.Version + 1, nil
}

// GetVars 返回变量列表，敏感值打码
func (l *EnvLogic) GetVars(id int64) ([]model.VarItem, int32, error) {
	env, err := l.GetByID(id)
	if err != nil {
		return nil, 0, err
	}
	var vars []model.VarItem
	if env.Vars != "" {
		if err := utils.UnmarshalString(env.Vars, &vars); err != nil {
			return nil, 0, errors.New("解析变量配置失败")
		}
	}
	for i := range vars {
		if vars[i].IsSecret {
			vars[i].Value = utils.MaskSecret(vars[i].Value)
		}
	}
	return vars, env.VarsVersion, nil
}

// SetOverride 写入本地覆盖，同键存在时更新
func (l *EnvLogic) SetOverride(userID, envID int64, req *OverrideReq) error {
	if _, err := l.GetByID(envID); err != nil {
		return err
	}
	override := &model.LocalOverride{
		EnvironmentID: envID,
		UserID:        userID,
		Key:           req.Key,
		Value:         req.Value,
	}
	return svc.Ctx.DB.WithContext(l.ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "environment_id"}, {Name: "user_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(override).Error
}

// DeleteOverride 删除本地覆盖
func (l *EnvLogic) DeleteOverride(userID, envID int64, key string) error {
	return svc.Ctx.DB.WithContext(l.ctx).
		Where("environment_id = ? AND user_id = ? AND key = ?", envID, userID, key).
		Delete(&model.LocalOverride{}).Error
}

// ListOverrides 列出某环境下自己的本地覆盖
func (l *EnvLogic) ListOverrides(userID, envID int64) ([]*model.LocalOverride, error) {
	var overrides []*model.LocalOverride
	err := svc.Ctx.DB.WithContext(l.ctx).
		Where("environment_id = ? AND user_id = ?", envID, userID).
		Order("key").Find(&overrides).Error
	return overrides, err
}
