// Package dispatch 负责把最终请求配置发到目标服务并收集响应。
package dispatch

import "strings"

// 响应体编码
const (
	EncodingNone   = ""
	EncodingBase64 = "base64"
)

// HeaderPair 有序请求头
type HeaderPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Payload 引擎输入，地址和头已完成插值与认证附加
type Payload struct {
	Method          string       `json:"method"`
	URL             string       `json:"url"`
	Headers         []HeaderPair `json:"headers"`
	Body            string       `json:"body"`
	BodyType        string       `json:"bodyType"`
	Timeout         int          `json:"timeout"` // 毫秒
	FollowRedirects bool         `json:"followRedirects"`
	VerifySSL       bool         `json:"verifySsl"`
	Proxy           string       `json:"proxy,omitempty"`
}

// Response 执行结果。网络层失败时 Status 为 0 且 Error 非空。
type Response struct {
	Status       int               `json:"status"`
	StatusText   string            `json:"statusText"`
	Headers      map[string]string `json:"headers"`
	Body         string            `json:"body"`
	BodyEncoding string            `json:"bodyEncoding,omitempty"`
	DurationMs   int64             `json:"durationMs"`
	SizeBytes    int64             `json:"sizeBytes"`
	Error        string            `json:"error,omitempty"`
}

// OK 响应是否来自目标服务而非网络层错误
func (r *Response) OK() bool {
	return r.Status > 0
}

// 按前缀归类的二进制内容类型
var binaryPrefixes = []string{
	"image/",
	"audio/",
	"video/",
	"font/",
	"application/octet-stream",
	"application/pdf",
	"application/zip",
	"application/gzip",
	"application/x-protobuf",
	"application/vnd.ms-",
	"application/msword",
}

// IsBinaryContentType 判断响应体是否需要 base64 编码传输
func IsBinaryContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, prefix := range binaryPrefixes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}
