package reqauth

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"

	"feiyu/internal/model"
	"feiyu/internal/resolver"
	"feiyu/internal/utils"
)

// applyHawk 生成 Hawk 认证头。
// MAC 基于规范化字符串计算，时间戳和随机数可由配置固定以便重放调试。
func applyHawk(req *resolver.ResolvedRequest, cfg model.AuthConfig) error {
	if cfg.HawkID == "" || cfg.HawkKey == "" {
		return fmt.Errorf("hawk 认证缺少 id 或 key")
	}

	ts := cfg.Timestamp
	if ts == "" {
		ts = strconv.FormatInt(time.Now().Unix(), 10)
	}
	nonce := cfg.Nonce
	if nonce == "" {
		nonce = utils.RandomString(8)
	}

	header, err := hawkHeader(req.Method, req.URL, cfg, ts, nonce)
	if err != nil {
		return err
	}
	setHeader(req, "Authorization", header)
	return nil
}

// hawkHeader 构造完整的 Authorization 头值
func hawkHeader(method, rawURL string, cfg model.AuthConfig, ts, nonce string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("解析请求地址失败: %w", err)
	}

	host, port := hostPort(u)
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	// 规范化字符串，空行对应未启用的 payload 校验
	var b strings.Builder
	b.WriteString("hawk.1.header\n")
	b.WriteString(ts + "\n")
	b.WriteString(nonce + "\n")
	b.WriteString(strings.ToUpper(method) + "\n")
	b.WriteString(path + "\n")
	b.WriteString(host + "\n")
	b.WriteString(port + "\n")
	b.WriteString("\n")
	b.WriteString(cfg.Ext + "\n")
	if cfg.App != "" {
		b.WriteString(cfg.App + "\n")
		b.WriteString(cfg.Dlg + "\n")
	}

	mac := hawkMAC(cfg.HawkAlgorithm, cfg.HawkKey, b.String())

	var h strings.Builder
	fmt.Fprintf(&h, `Hawk id="%s", ts="%s", nonce="%s"`, cfg.HawkID, ts, nonce)
	if cfg.Ext != "" {
		fmt.Fprintf(&h, `, ext="%s"`, cfg.Ext)
	}
	fmt.Fprintf(&h, `, mac="%s"`, mac)
	if cfg.App != "" {
		fmt.Fprintf(&h, `, app="%s"`, cfg.App)
		if cfg.Dlg != "" {
			fmt.Fprintf(&h, `, dlg="%s"`, cfg.Dlg)
		}
	}
	return h.String(), nil
}

// hawkMAC 计算规范化字符串的 HMAC 摘要
func hawkMAC(algorithm, key, normalized string) string {
	var newHash func() hash.Hash
	switch strings.ToLower(algorithm) {
	case "sha1":
		newHash = sha1.New
	default:
		newHash = sha256.New
	}
	mac := hmac.New(newHash, []byte(key))
	mac.Write([]byte(normalized))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// hostPort 提取主机与端口，未显式指定端口时按协议取缺省值
func hostPort(u *url.URL) (string, string) {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return host, port
}
