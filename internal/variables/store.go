// Package variables 提供环境变量的合并解析与 {{...}} 占位符插值。
package variables

import (
	"context"
	"errors"

	"feiyu/internal/model"
	"feiyu/internal/utils"

	"gorm.io/gorm"
)

// 变量来源
const (
	SourceTeam  = "team"
	SourceLocal = "local"
)

// Value 解析后的变量值
type Value struct {
	Value    string `json:"value"`
	Source   string `json:"source"` // team, local
	IsSecret bool   `json:"isSecret"`
}

// ErrEnvironmentNotFound 环境不存在
var ErrEnvironmentNotFound = errors.New("环境不存在")

// Store 变量存储，合并团队变量与个人本地覆盖
type Store struct {
	db *gorm.DB
}

// NewStore 创建变量存储
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Resolve 解析指定环境下某用户可见的全部变量。
// 本地覆盖优先于团队值；is_secret 标记始终沿用团队定义。
func (s *Store) Resolve(ctx context.Context, environmentID, userID int64) (map[string]Value, error) {
	var env model.Environment
	if err := s.db.WithContext(ctx).First(&env, environmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnvironmentNotFound
		}
		return nil, err
	}

	var teamVars []model.VarItem
	if env.Vars != "" {
		if err := utils.UnmarshalString(env.Vars, &teamVars); err != nil {
			return nil, errors.New("解析变量配置失败")
		}
	}

	// 敏感值解密后参与合并
	for i := range teamVars {
		if teamVars[i].IsSecret && teamVars[i].Value != "" {
			if decrypted, err := utils.Decrypt(teamVars[i].Value); err == nil {
				teamVars[i].Value = decrypted
			}
		}
	}

	var overrides []model.LocalOverride
	if err := s.db.WithContext(ctx).
		Where("environment_id = ? AND user_id = ?", environmentID, userID).
		Find(&overrides).Error; err != nil {
		return nil, err
	}

	return Merge(teamVars, overrides), nil
}

// Merge 合并团队变量与本地覆盖，键冲突时本地值胜出。
// 仅存在于本地覆盖的键同样有效。
func Merge(teamVars []model.VarItem, overrides []model.LocalOverride) map[string]Value {
	result := make(map[string]Value, len(teamVars)+len(overrides))

	for _, v := range teamVars {
		result[v.Key] = Value{
			Value:    v.Value,
			Source:   SourceTeam,
			IsSecret: v.IsSecret,
		}
	}

	for _, o := range overrides {
		isSecret := false
		if team, ok := result[o.Key]; ok {
			isSecret = team.IsSecret
		}
		result[o.Key] = Value{
			Value:    o.Value,
			Source:   SourceLocal,
			IsSecret: isSecret,
		}
	}

	return result
}
