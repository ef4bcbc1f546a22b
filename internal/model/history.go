package model

// HistoryEntry 请求执行历史，写入后不再修改
type HistoryEntry struct {
	BaseModel
	UserID    int64  `gorm:"column:user_id;index" json:"userId"`
	RequestID int64  `gorm:"column:request_id;index" json:"requestId"`
	Method    string `gorm:"column:method;size:10" json:"method"`
	URL       string `gorm:"column:url;size:2000" json:"url"`

	ReqHeaders string `gorm:"column:req_headers;type:text" json:"reqHeaders"`
	ReqBody    string `gorm:"column:req_body;type:text" json:"reqBody"`

	Status       int    `gorm:"column:status" json:"status"`
	StatusText   string `gorm:"column:status_text;size:100" json:"statusText"`
	RespHeaders  string `gorm:"column:resp_headers;type:text" json:"respHeaders"`
	RespBody     string `gorm:"column:resp_body;type:mediumtext" json:"respBody"`
	BodyEncoding string `gorm:"column:body_encoding;size:20" json:"bodyEncoding"`

	DurationMs  int64  `gorm:"column:duration_ms" json:"durationMs"`
	SizeBytes   int64  `gorm:"column:size_bytes" json:"sizeBytes"`
	Error       string `gorm:"column:error;size:1000" json:"error"`
	ExecutedVia string `gorm:"column:executed_via;size:20" json:"executedVia"` // local, agent
}

// TableName 表名
func (HistoryEntry) TableName() string {
	return "t_history"
}
