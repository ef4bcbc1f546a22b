package agentclient

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"feiyu/internal/dispatch"
)

const maxRedirects = 10

// Executor runs relayed requests with a shared fasthttp client.
type Executor struct {
	client *fasthttp.Client
}

// NewExecutor creates an executor. insecure disables TLS verification
// for the target hosts, not for the server connection.
func NewExecutor(insecure bool) *Executor {
	return &Executor{
		client: &fasthttp.Client{
			TLSConfig:           &tls.Config{InsecureSkipVerify: insecure},
			MaxIdleConnDuration: time.Minute,
		},
	}
}

// Execute runs one request. Errors are folded into the response the
// same way the server-side engine does.
func (e *Executor) Execute(ctx context.Context, payload *dispatch.Payload) *dispatch.Response {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(strings.ToUpper(payload.Method))
	req.SetRequestURI(payload.URL)
	for _, h := range payload.Headers {
		req.Header.Set(h.Key, h.Value)
	}
	if payload.Body != "" {
		req.SetBodyString(payload.Body)
	}

	// per-request TLS toggle wins over the executor default
	client := e.client
	if !payload.VerifySSL {
		client = &fasthttp.Client{
			TLSConfig:           &tls.Config{InsecureSkipVerify: true},
			MaxIdleConnDuration: time.Minute,
		}
	}

	timeout := 30 * time.Second
	if payload.Timeout > 0 {
		timeout = time.Duration(payload.Timeout) * time.Millisecond
	}

	start := time.Now()
	var err error
	if payload.FollowRedirects {
		err = doRedirectsTimeout(client, req, resp, maxRedirects, timeout)
	} else {
		err = client.DoTimeout(req, resp, timeout)
	}
	duration := time.Since(start).Milliseconds()

	if err != nil {
		return &dispatch.Response{
			Status:     0,
			StatusText: "Error",
			DurationMs: duration,
			Error:      err.Error(),
		}
	}

	body := resp.Body()
	result := &dispatch.Response{
		Status:     resp.StatusCode(),
		StatusText: statusText(resp.StatusCode()),
		Headers:    collectHeaders(resp),
		DurationMs: duration,
		SizeBytes:  responseSize(resp, body),
	}

	if dispatch.IsBinaryContentType(string(resp.Header.ContentType())) {
		result.Body = base64.StdEncoding.EncodeToString(body)
		result.BodyEncoding = dispatch.EncodingBase64
	} else {
		result.Body = string(body)
	}
	return result
}

// doRedirectsTimeout follows redirects within a total deadline.
// fasthttp's DoRedirects has no timeout variant.
func doRedirectsTimeout(client *fasthttp.Client, req *fasthttp.Request, resp *fasthttp.Response, max int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for i := 0; ; i++ {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fasthttp.ErrTimeout
		}
		if err := client.DoTimeout(req, resp, remaining); err != nil {
			return err
		}
		status := resp.StatusCode()
		if status < 300 || status >= 400 || i >= max {
			return nil
		}
		location := resp.Header.Peek("Location")
		if len(location) == 0 {
			return nil
		}
		req.URI().UpdateBytes(location)
	}
}

func collectHeaders(resp *fasthttp.Response) map[string]string {
	out := make(map[string]string)
	resp.Header.VisitAll(func(key, value []byte) {
		k := string(key)
		if existing, ok := out[k]; ok {
			out[k] = existing + ", " + string(value)
		} else {
			out[k] = string(value)
		}
	})
	return out
}

func statusText(code int) string {
	return fasthttp.StatusMessage(code)
}

func responseSize(resp *fasthttp.Response, body []byte) int64 {
	if n := resp.Header.ContentLength(); n >= 0 {
		return int64(n)
	}
	return int64(len(body))
}
