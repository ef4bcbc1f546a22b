package model

// Folder 请求目录，目录可嵌套并向下继承配置
type Folder struct {
	BaseModelWithUser
	ParentID *int64 `gorm:"column:parent_id;index" json:"parentId"`
	Name     string `gorm:"column:name;size:200" json:"name"`
	OwnerID  int64  `gorm:"column:owner_id;index" json:"ownerId"`
	GroupID  *int64 `gorm:"column:group_id;index" json:"groupId"`
	Sort     int64  `gorm:"column:sort" json:"sort"`

	// 可继承配置，JSON 数组 [HeaderItem] / [ParamItem]
	Headers string `gorm:"column:headers;type:text" json:"headers"`
	Params  string `gorm:"column:params;type:text" json:"params"`

	// 认证配置，auth_type 为 inherit 时沿父级查找
	AuthType   string `gorm:"column:auth_type;size:20;default:inherit" json:"authType"`
	AuthConfig string `gorm:"column:auth_config;type:text" json:"authConfig"`

	PreScript  string `gorm:"column:pre_script;type:text" json:"preScript"`
	PostScript string `gorm:"column:post_script;type:text" json:"postScript"`

	// 标量可继承项，nil 表示继承
	BaseURL         string  `gorm:"column:base_url;size:500" json:"baseUrl"`
	Timeout         *int    `gorm:"column:timeout" json:"timeout"` // 毫秒
	FollowRedirects *bool   `gorm:"column:follow_redirects" json:"followRedirects"`
	VerifySSL       *bool   `gorm:"column:verify_ssl" json:"verifySsl"`
	Proxy           *string `gorm:"column:proxy;size:500" json:"proxy"`
}

// TableName 表名
func (Folder) TableName() string {
	return "t_folder"
}
