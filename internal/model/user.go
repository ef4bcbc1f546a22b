package model

// User 用户
type User struct {
	BaseModel
	Username string `gorm:"column:username;size:100;uniqueIndex" json:"username"`
	Password string `gorm:"column:password;size:200" json:"-"` // bcrypt 哈希
	Nickname string `gorm:"column:nickname;size:100" json:"nickname"`
	Status   int32  `gorm:"column:status;default:1" json:"status"` // 1-启用 0-禁用
}

// TableName 表名
func (User) TableName() string {
	return "t_user"
}
