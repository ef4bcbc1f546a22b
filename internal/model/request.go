package model

// Request 接口请求，归属于唯一目录
type Request struct {
	BaseModelWithUser
	FolderID int64  `gorm:"column:folder_id;index" json:"folderId"`
	Name     string `gorm:"column:name;size:200" json:"name"`
	Sort     int64  `gorm:"column:sort" json:"sort"`

	Method   string `gorm:"column:method;size:10" json:"method"`
	URL      string `gorm:"column:url;size:2000" json:"url"`
	Body     string `gorm:"column:body;type:text" json:"body"`
	BodyType string `gorm:"column:body_type;size:50" json:"bodyType"` // json, form, text, none

	Headers string `gorm:"column:headers;type:text" json:"headers"`
	Params  string `gorm:"column:params;type:text" json:"params"`

	AuthType   string `gorm:"column:auth_type;size:20;default:inherit" json:"authType"`
	AuthConfig string `gorm:"column:auth_config;type:text" json:"authConfig"`

	PreScript  string `gorm:"column:pre_script;type:text" json:"preScript"`
	PostScript string `gorm:"column:post_script;type:text" json:"postScript"`

	Timeout         *int    `gorm:"column:timeout" json:"timeout"` // 毫秒
	FollowRedirects *bool   `gorm:"column:follow_redirects" json:"followRedirects"`
	VerifySSL       *bool   `gorm:"column:verify_ssl" json:"verifySsl"`
	Proxy           *string `gorm:"column:proxy;size:500" json:"proxy"`
}

// TableName 表名
func (Request) TableName() string {
	return "t_request"
}
