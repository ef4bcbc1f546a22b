package reqauth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"feiyu/internal/model"
	"feiyu/internal/resolver"
)

// 过期判定提前量，避免临界 token 在途中失效
const expiryMargin = 60 * time.Second

// applyOAuth2 将已获取的 access token 附加到请求。
// token 刷新由调用方在执行前显式触发，这里只做附加。
func applyOAuth2(req *resolver.ResolvedRequest, cfg model.AuthConfig) {
	token := cfg.AccessToken
	if token == "" {
		token = cfg.Token
	}
	if token == "" {
		return
	}
	tokenType := cfg.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	if cfg.AddTo == "query" {
		name := cfg.QueryName
		if name == "" {
			name = "access_token"
		}
		setParam(req, name, token)
		return
	}
	setHeader(req, "Authorization", tokenType+" "+token)
}

// TokenExpired 判断 access token 是否已过期或临近过期。
// 未记录过期时间时视为未过期。
func TokenExpired(cfg model.AuthConfig) bool {
	if cfg.ExpiresAt == 0 {
		return false
	}
	return time.Now().Add(expiryMargin).Unix() >= cfg.ExpiresAt
}

// RefreshToken 用 refresh token 换取新的 access token，
// 返回更新过 token 字段的配置副本。
func RefreshToken(ctx context.Context, cfg model.AuthConfig) (model.AuthConfig, error) {
	if cfg.RefreshToken == "" || cfg.TokenURL == "" {
		return cfg, fmt.Errorf("oauth2 刷新缺少 refreshToken 或 tokenUrl")
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
	}
	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}).Token()
	if err != nil {
		return cfg, fmt.Errorf("刷新 oauth2 token 失败: %w", err)
	}

	cfg.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		cfg.RefreshToken = token.RefreshToken
	}
	if token.TokenType != "" {
		cfg.TokenType = token.TokenType
	}
	if !token.Expiry.IsZero() {
		cfg.ExpiresAt = token.Expiry.Unix()
	}
	return cfg, nil
}
