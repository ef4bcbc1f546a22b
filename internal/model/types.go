package model

// 认证类型常量
const (
	AuthTypeInherit = "inherit"
	AuthTypeNone    = "none"
	AuthTypeBearer  = "bearer"
	AuthTypeBasic   = "basic"
	AuthTypeAPIKey  = "apikey"
	AuthTypeJWT     = "jwt"
	AuthTypeOAuth2  = "oauth2"
	AuthTypeOpenID  = "openid"
	AuthTypeHawk    = "hawk"
)

// HeaderItem 请求头配置项（存储在 headers JSON 字段中）
type HeaderItem struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
}

// ParamItem 查询参数配置项（存储在 params JSON 字段中）
type ParamItem struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
}

// AuthConfig 认证配置（存储在 auth_config JSON 字段中）。
// 各认证类型只使用自己关心的字段，缺失字段按零值处理。
type AuthConfig struct {
	// bearer / oauth2 / openid
	Token       string `json:"token,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
	TokenType   string `json:"tokenType,omitempty"`
	AddTo       string `json:"addTo,omitempty"` // header, query, cookie

	// basic
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// apikey
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`

	// jwt
	Payload    string `json:"payload,omitempty"` // JSON 字符串
	Secret     string `json:"secret,omitempty"`
	Algorithm  string `json:"algorithm,omitempty"` // HS256, RS256, ES256 等
	PrivateKey string `json:"privateKey,omitempty"`
	Prefix     string `json:"prefix,omitempty"`
	QueryName  string `json:"queryName,omitempty"`

	// oauth2 / openid 刷新
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenURL     string `json:"tokenUrl,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"` // Unix 秒

	// hawk
	HawkID        string `json:"hawkId,omitempty"`
	HawkKey       string `json:"hawkKey,omitempty"`
	HawkAlgorithm string `json:"hawkAlgorithm,omitempty"` // sha256, sha1
	Ext           string `json:"ext,omitempty"`
	App           string `json:"app,omitempty"`
	Dlg           string `json:"dlg,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"` // 为空时取当前时间
	Nonce         string `json:"nonce,omitempty"`     // 为空时随机生成
}

// VarItem 环境变量配置项（存储在 t_environment.vars 字段中）
type VarItem struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Type        string `json:"type"` // string, number, boolean, json
	IsSecret    bool   `json:"is_secret"`
	IsProtected bool   `json:"is_protected"`
	Description string `json:"description,omitempty"`
}

// 变量类型常量
const (
	VarTypeString  = "string"
	VarTypeNumber  = "number"
	VarTypeBoolean = "boolean"
	VarTypeJSON    = "json"
)
