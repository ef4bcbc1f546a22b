// Package reqauth 按解析出的认证类型为请求附加认证信息。
package reqauth

import (
	"encoding/base64"
	"strings"

	"go.uber.org/zap"

	"feiyu/internal/logger"
	"feiyu/internal/model"
	"feiyu/internal/resolver"
)

// Apply 在请求头、查询参数或 Cookie 上附加认证信息。
// 认证材料缺失或生成失败只记日志并跳过附加，不中止请求。
func Apply(req *resolver.ResolvedRequest) {
	cfg := req.AuthConfig
	switch req.AuthType {
	case model.AuthTypeNone, model.AuthTypeInherit, "":
		return
	case model.AuthTypeBearer:
		if cfg.Token == "" {
			return
		}
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = "Bearer"
		}
		setHeader(req, "Authorization", prefix+" "+cfg.Token)
	case model.AuthTypeBasic:
		if cfg.Username == "" && cfg.Password == "" {
			return
		}
		credential := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		setHeader(req, "Authorization", "Basic "+credential)
	case model.AuthTypeAPIKey:
		if cfg.Key == "" {
			return
		}
		switch cfg.AddTo {
		case "query":
			setParam(req, cfg.Key, cfg.Value)
		case "cookie":
			setCookie(req, cfg.Key, cfg.Value)
		default:
			setHeader(req, cfg.Key, cfg.Value)
		}
	case model.AuthTypeJWT:
		if err := applyJWT(req, cfg); err != nil {
			logger.Warn("jwt 认证生成失败，跳过附加", zap.Error(err))
		}
	case model.AuthTypeOAuth2, model.AuthTypeOpenID:
		applyOAuth2(req, cfg)
	case model.AuthTypeHawk:
		if err := applyHawk(req, cfg); err != nil {
			logger.Warn("hawk 认证生成失败，跳过附加", zap.Error(err))
		}
	default:
		logger.Warn("未知的认证类型，跳过附加", zap.String("type", req.AuthType))
	}
}

// setHeader 覆盖或追加请求头，键不区分大小写
func setHeader(req *resolver.ResolvedRequest, key, value string) {
	for i := range req.Headers {
		if strings.EqualFold(req.Headers[i].Key, key) {
			req.Headers[i].Value = value
			req.Headers[i].Enabled = true
			return
		}
	}
	req.Headers = append(req.Headers, model.HeaderItem{Key: key, Value: value, Enabled: true})
}

// setParam 覆盖或追加查询参数
func setParam(req *resolver.ResolvedRequest, key, value string) {
	for i := range req.Params {
		if req.Params[i].Key == key {
			req.Params[i].Value = value
			req.Params[i].Enabled = true
			return
		}
	}
	req.Params = append(req.Params, model.ParamItem{Key: key, Value: value, Enabled: true})
}

// setCookie 合并进 Cookie 头，已有同名键时覆盖
func setCookie(req *resolver.ResolvedRequest, key, value string) {
	pair := key + "=" + value
	for i := range req.Headers {
		if !strings.EqualFold(req.Headers[i].Key, "Cookie") {
			continue
		}
		parts := strings.Split(req.Headers[i].Value, ";")
		kept := parts[:0]
		for _, p := range parts {
			if name, _, _ := strings.Cut(strings.TrimSpace(p), "="); name != key {
				kept = append(kept, strings.TrimSpace(p))
			}
		}
		req.Headers[i].Value = strings.Join(append(kept, pair), "; ")
		req.Headers[i].Enabled = true
		return
	}
	req.Headers = append(req.Headers, model.HeaderItem{Key: "Cookie", Value: pair, Enabled: true})
}
