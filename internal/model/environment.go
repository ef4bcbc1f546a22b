package model

// Environment 环境，持有团队级变量集合
type Environment struct {
	BaseModelWithUser
	Name        string `gorm:"column:name;size:100" json:"name"`
	Description string `gorm:"column:description;size:500" json:"description"`
	IsActive    bool   `gorm:"column:is_active" json:"isActive"`
	Sort        int64  `gorm:"column:sort" json:"sort"`

	// 变量配置，JSON 数组 [VarItem]，敏感值加密存储
	Vars        string `gorm:"column:vars;type:text" json:"vars"`
	VarsVersion int32  `gorm:"column:vars_version;default:0" json:"varsVersion"`
}

// TableName 表名
func (Environment) TableName() string {
	return "t_environment"
}

// LocalOverride 个人本地变量覆盖，键不要求存在于团队变量中
type LocalOverride struct {
	BaseModel
	EnvironmentID int64  `gorm:"column:environment_id;uniqueIndex:uk_env_user_key" json:"environmentId"`
	UserID        int64  `gorm:"column:user_id;uniqueIndex:uk_env_user_key" json:"userId"`
	Key           string `gorm:"column:key;size:200;uniqueIndex:uk_env_user_key" json:"key"`
	Value         string `gorm:"column:value;type:text" json:"value"`
}

// TableName 表名
func (LocalOverride) TableName() string {
	return "t_local_override"
}
