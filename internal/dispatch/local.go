package dispatch

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"feiyu/internal/logger"

	"go.uber.org/zap"
)

// 重定向跟随上限
const maxRedirects = 10

// LocalEngine 在服务端本机直接发出请求
type LocalEngine struct{}

// NewLocalEngine 创建本地执行引擎
func NewLocalEngine() *LocalEngine {
	return &LocalEngine{}
}

// Execute 发出请求并返回响应。
// 网络层错误不作为 error 返回，而是折叠进 Response 以便入库和展示。
func (e *LocalEngine) Execute(ctx context.Context, payload *Payload) *Response {
	start := time.Now()

	resp, err := e.do(ctx, payload)
	if err != nil {
		logger.Warn("请求执行失败", zap.String("url", payload.URL), zap.Error(err))
		return &Response{
			Status:     0,
			StatusText: "Error",
			DurationMs: time.Since(start).Milliseconds(),
			Error:      err.Error(),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Response{
			Status:     0,
			StatusText: "Error",
			DurationMs: time.Since(start).Milliseconds(),
			Error:      "读取响应体失败: " + err.Error(),
		}
	}

	result := &Response{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		Headers:    flattenHeaders(resp.Header),
		DurationMs: time.Since(start).Milliseconds(),
		SizeBytes:  responseSize(resp, body),
	}

	if IsBinaryContentType(resp.Header.Get("Content-Type")) {
		result.Body = base64.StdEncoding.EncodeToString(body)
		result.BodyEncoding = EncodingBase64
	} else {
		result.Body = string(body)
	}
	return result
}

func (e *LocalEngine) do(ctx context.Context, payload *Payload) (*http.Response, error) {
	var body io.Reader
	if payload.Body != "" {
		body = strings.NewReader(payload.Body)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(payload.Method), payload.URL, body)
	if err != nil {
		return nil, err
	}
	for _, h := range payload.Headers {
		req.Header.Set(h.Key, h.Value)
	}

	client, err := buildClient(payload)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}

// buildClient 按请求配置构造 http 客户端
func buildClient(payload *Payload) (*http.Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !payload.VerifySSL},
	}
	if payload.Proxy != "" {
		proxyURL, err := url.Parse(payload.Proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{Transport: transport}
	if payload.Timeout > 0 {
		client.Timeout = time.Duration(payload.Timeout) * time.Millisecond
	}
	if payload.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		}
	} else {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client, nil
}

// statusText 去掉状态行中的数字前缀，如 "200 OK" 取 "OK"
func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	if i := strings.IndexByte(resp.Status, ' '); i >= 0 {
		return resp.Status[i+1:]
	}
	return resp.Status
}

// flattenHeaders 多值头用逗号拼接
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		out[key] = strings.Join(values, ", ")
	}
	return out
}

// responseSize 优先取 Content-Length，缺失时按实际读取长度
func responseSize(resp *http.Response, body []byte) int64 {
	if resp.ContentLength >= 0 {
		return resp.ContentLength
	}
	return int64(len(body))
}
