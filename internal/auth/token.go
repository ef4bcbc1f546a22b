package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const tokenKeyPrefix = "feiyu:token:"

// ErrInvalidToken 令牌无效或已注销
var ErrInvalidToken = errors.New("令牌无效或已过期")

// Manager 登录令牌管理器。令牌为 JWT，签发时将 jti 写入
// Redis 白名单，注销即删除白名单项，使令牌即时失效。
type Manager struct {
	secret []byte
	expire time.Duration
	rdb    *goredis.Client
}

// NewManager 创建令牌管理器
func NewManager(secret string, expire time.Duration, rdb *goredis.Client) *Manager {
	return &Manager{
		secret: []byte(secret),
		expire: expire,
		rdb:    rdb,
	}
}

type claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// Issue 签发令牌
func (m *Manager) Issue(ctx context.Context, userID int64) (string, error) {
	jti := uuid.NewString()
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expire)),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}

	if err := m.rdb.Set(ctx, tokenKeyPrefix+jti, userID, m.expire).Err(); err != nil {
		return "", fmt.Errorf("写入令牌白名单失败: %w", err)
	}

	return signed, nil
}

// Verify 校验令牌，返回用户ID
func (m *Manager) Verify(ctx context.Context, tokenStr string) (int64, error) {
	if tokenStr == "" {
		return 0, ErrInvalidToken
	}

	var c claims
	token, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("意外的签名算法: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	// 白名单校验，注销过的令牌在这里被拦截
	exists, err := m.rdb.Exists(ctx, tokenKeyPrefix+c.ID).Result()
	if err != nil {
		return 0, fmt.Errorf("令牌白名单查询失败: %w", err)
	}
	if exists == 0 {
		return 0, ErrInvalidToken
	}

	return c.UserID, nil
}

// Revoke 注销令牌
func (m *Manager) Revoke(ctx context.Context, tokenStr string) error {
	var c claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return ErrInvalidToken
	}
	return m.rdb.Del(ctx, tokenKeyPrefix+c.ID).Err()
}
