package reqauth

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feiyu/internal/model"
	"feiyu/internal/resolver"
)

func newRequest(authType string, cfg model.AuthConfig) *resolver.ResolvedRequest {
	return &resolver.ResolvedRequest{
		Method:     "GET",
		URL:        "https://api.example.com/users?page=1",
		AuthType:   authType,
		AuthConfig: cfg,
	}
}

func headerValue(req *resolver.ResolvedRequest, key string) string {
	for _, h := range req.Headers {
		if h.Key == key {
			return h.Value
		}
	}
	return ""
}

func paramValue(req *resolver.ResolvedRequest, key string) string {
	for _, p := range req.Params {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

func TestApplyNone(t *testing.T) {
	req := newRequest(model.AuthTypeNone, model.AuthConfig{})
	Apply(req)
	assert.Empty(t, req.Headers)
}

func TestApplyBearer(t *testing.T) {
	req := newRequest(model.AuthTypeBearer, model.AuthConfig{Token: "abc"})
	Apply(req)
	assert.Equal(t, "Bearer abc", headerValue(req, "Authorization"))
}

func TestApplyBearerCustomPrefix(t *testing.T) {
	req := newRequest(model.AuthTypeBearer, model.AuthConfig{Token: "abc", Prefix: "Token"})
	Apply(req)
	assert.Equal(t, "Token abc", headerValue(req, "Authorization"))
}

func TestApplyBearerMissingToken(t *testing.T) {
	// 缺少必填字段时不附加也不报错
	req := newRequest(model.AuthTypeBearer, model.AuthConfig{})
	Apply(req)
	assert.Empty(t, req.Headers)
}

func TestApplyBasic(t *testing.T) {
	req := newRequest(model.AuthTypeBasic, model.AuthConfig{Username: "user", Password: "pass"})
	Apply(req)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("user:pass"))
	assert.Equal(t, want, headerValue(req, "Authorization"))
}

func TestApplyAPIKey(t *testing.T) {
	// 默认加到请求头
	req := newRequest(model.AuthTypeAPIKey, model.AuthConfig{Key: "X-Api-Key", Value: "secret"})
	Apply(req)
	assert.Equal(t, "secret", headerValue(req, "X-Api-Key"))

	// 显式加到查询参数
	req2 := newRequest(model.AuthTypeAPIKey, model.AuthConfig{Key: "api_key", Value: "secret", AddTo: "query"})
	Apply(req2)
	assert.Equal(t, "secret", paramValue(req2, "api_key"))
	assert.Empty(t, req2.Headers)
}

func TestApplyAPIKeyCookie(t *testing.T) {
	req := newRequest(model.AuthTypeAPIKey, model.AuthConfig{Key: "session", Value: "s1", AddTo: "cookie"})
	Apply(req)
	assert.Equal(t, "session=s1", headerValue(req, "Cookie"))

	// 已有 Cookie 头时合并，同名键覆盖
	req2 := newRequest(model.AuthTypeAPIKey, model.AuthConfig{Key: "session", Value: "new", AddTo: "cookie"})
	req2.Headers = []model.HeaderItem{{Key: "Cookie", Value: "lang=zh; session=old", Enabled: true}}
	Apply(req2)
	assert.Equal(t, "lang=zh; session=new", headerValue(req2, "Cookie"))
}

func TestApplyOverwritesExistingHeader(t *testing.T) {
	req := newRequest(model.AuthTypeBearer, model.AuthConfig{Token: "new"})
	req.Headers = []model.HeaderItem{{Key: "authorization", Value: "old", Enabled: true}}
	Apply(req)

	require.Len(t, req.Headers, 1)
	assert.Equal(t, "Bearer new", req.Headers[0].Value)
}

func TestApplyUnknownTypeSkipped(t *testing.T) {
	req := newRequest("digest", model.AuthConfig{})
	Apply(req)
	assert.Empty(t, req.Headers)
}

func TestApplyJWTHS256(t *testing.T) {
	req := newRequest(model.AuthTypeJWT, model.AuthConfig{
		Secret:  "signing-secret",
		Payload: `{"sub":"42","role":"admin"}`,
	})
	Apply(req)

	value := headerValue(req, "Authorization")
	require.NotEmpty(t, value)
	require.Contains(t, value, "Bearer ")

	tokenStr := value[len("Bearer "):]
	token, err := jwt.Parse(tokenStr, func(*jwt.Token) (any, error) {
		return []byte("signing-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "42", claims["sub"])
	assert.Equal(t, "admin", claims["role"])
}

func TestApplyJWTQueryParam(t *testing.T) {
	req := newRequest(model.AuthTypeJWT, model.AuthConfig{
		Secret:    "s",
		Payload:   `{"a":1}`,
		AddTo:     "query",
		QueryName: "jwt",
	})
	Apply(req)
	assert.NotEmpty(t, paramValue(req, "jwt"))
	assert.Empty(t, req.Headers)
}

func TestApplyJWTFailureSwallowed(t *testing.T) {
	// 缺少密钥或 payload 不合法时静默跳过
	missing := newRequest(model.AuthTypeJWT, model.AuthConfig{Payload: `{}`})
	Apply(missing)
	assert.Empty(t, missing.Headers)

	malformed := newRequest(model.AuthTypeJWT, model.AuthConfig{Secret: "s", Payload: `{bad`})
	Apply(malformed)
	assert.Empty(t, malformed.Headers)
}

func TestHawkDeterministic(t *testing.T) {
	cfg := model.AuthConfig{
		HawkID:    "dh37fgj492je",
		HawkKey:   "werxhqb98rpaxn39848xrunpaw3489ruxnpa98w4rxn",
		Timestamp: "1353832234",
		Nonce:     "j4h3g2",
		Ext:       "some-app-ext-data",
	}

	a, err := hawkHeader("GET", "http://example.com:8000/resource/1?b=1&a=2", cfg, cfg.Timestamp, cfg.Nonce)
	require.NoError(t, err)
	b, err := hawkHeader("GET", "http://example.com:8000/resource/1?b=1&a=2", cfg, cfg.Timestamp, cfg.Nonce)
	require.NoError(t, err)

	// 固定时间戳与随机数时签名稳定
	assert.Equal(t, a, b)
	assert.Contains(t, a, `Hawk id="dh37fgj492je"`)
	assert.Contains(t, a, `ts="1353832234"`)
	assert.Contains(t, a, `nonce="j4h3g2"`)
	assert.Contains(t, a, `ext="some-app-ext-data"`)
	assert.Contains(t, a, `mac="`)
}

func TestHawkMACChangesWithInput(t *testing.T) {
	cfg := model.AuthConfig{HawkID: "id", HawkKey: "key", Timestamp: "100", Nonce: "n"}

	a, err := hawkHeader("GET", "https://example.com/a", cfg, "100", "n")
	require.NoError(t, err)
	b, err := hawkHeader("POST", "https://example.com/a", cfg, "100", "n")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHawkDefaultPorts(t *testing.T) {
	cfg := model.AuthConfig{HawkID: "id", HawkKey: "key"}

	https, err := hawkHeader("GET", "https://example.com/x", cfg, "1", "n")
	require.NoError(t, err)
	http80, err := hawkHeader("GET", "http://example.com/x", cfg, "1", "n")
	require.NoError(t, err)

	// 协议缺省端口参与签名，两者必然不同
	assert.NotEqual(t, https, http80)
}

func TestApplyHawkMissingCredentials(t *testing.T) {
	req := newRequest(model.AuthTypeHawk, model.AuthConfig{HawkID: "only-id"})
	Apply(req)
	assert.Empty(t, req.Headers)
}

func TestApplyOAuth2Header(t *testing.T) {
	req := newRequest(model.AuthTypeOAuth2, model.AuthConfig{AccessToken: "at"})
	Apply(req)
	assert.Equal(t, "Bearer at", headerValue(req, "Authorization"))
}

func TestApplyOAuth2Query(t *testing.T) {
	req := newRequest(model.AuthTypeOAuth2, model.AuthConfig{AccessToken: "at", AddTo: "query"})
	Apply(req)
	assert.Equal(t, "at", paramValue(req, "access_token"))
}

func TestTokenExpired(t *testing.T) {
	// 未记录过期时间视为未过期
	assert.False(t, TokenExpired(model.AuthConfig{}))
	// 一小时后过期
	assert.False(t, TokenExpired(model.AuthConfig{ExpiresAt: time.Now().Add(time.Hour).Unix()}))
	// 已过期
	assert.True(t, TokenExpired(model.AuthConfig{ExpiresAt: time.Now().Add(-time.Minute).Unix()}))
	// 临近过期（60 秒提前量内）
	assert.True(t, TokenExpired(model.AuthConfig{ExpiresAt: time.Now().Add(30 * time.Second).Unix()}))
}

func TestRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	cfg := model.AuthConfig{
		RefreshToken: "old-refresh",
		TokenURL:     server.URL + "/token",
		ClientID:     "cid",
		ClientSecret: "cs",
	}

	updated, err := RefreshToken(t.Context(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "new-access", updated.AccessToken)
	assert.Equal(t, "new-refresh", updated.RefreshToken)
	assert.Equal(t, "Bearer", updated.TokenType)
	assert.Greater(t, updated.ExpiresAt, time.Now().Unix())
}

func TestRefreshTokenMissingConfig(t *testing.T) {
	_, err := RefreshToken(t.Context(), model.AuthConfig{})
	assert.Error(t, err)
}
