package reqauth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"feiyu/internal/model"
	"feiyu/internal/resolver"
	"feiyu/internal/utils"
)

// applyJWT 按配置即时签发 JWT 并附加到请求。
// HS 系列用共享密钥，RS/ES 系列用 PEM 私钥。
func applyJWT(req *resolver.ResolvedRequest, cfg model.AuthConfig) error {
	claims := jwt.MapClaims{}
	if cfg.Payload != "" {
		if err := utils.UnmarshalString(cfg.Payload, &claims); err != nil {
			return fmt.Errorf("解析 jwt payload 失败: %w", err)
		}
	}

	algorithm := cfg.Algorithm
	if algorithm == "" {
		algorithm = "HS256"
	}
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return fmt.Errorf("不支持的 jwt 签名算法: %s", algorithm)
	}

	signingKey, err := jwtSigningKey(algorithm, cfg)
	if err != nil {
		return err
	}

	token, err := jwt.NewWithClaims(method, claims).SignedString(signingKey)
	if err != nil {
		return fmt.Errorf("jwt 签名失败: %w", err)
	}

	if cfg.AddTo == "query" {
		name := cfg.QueryName
		if name == "" {
			name = "token"
		}
		setParam(req, name, token)
		return nil
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "Bearer"
	}
	setHeader(req, "Authorization", prefix+" "+token)
	return nil
}

// jwtSigningKey 按算法族选取签名密钥
func jwtSigningKey(algorithm string, cfg model.AuthConfig) (any, error) {
	switch {
	case strings.HasPrefix(algorithm, "HS"):
		if cfg.Secret == "" {
			return nil, fmt.Errorf("jwt 认证缺少 secret")
		}
		return []byte(cfg.Secret), nil
	case strings.HasPrefix(algorithm, "RS"), strings.HasPrefix(algorithm, "PS"):
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("解析 rsa 私钥失败: %w", err)
		}
		return key, nil
	case strings.HasPrefix(algorithm, "ES"):
		key, err := jwt.ParseECPrivateKeyFromPEM([]byte(cfg.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("解析 ec 私钥失败: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("不支持的 jwt 签名算法: %s", algorithm)
	}
}
