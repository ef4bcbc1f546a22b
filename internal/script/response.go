package script

import (
	"encoding/base64"
	"fmt"

	"github.com/dop251/goja"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"feiyu/internal/dispatch"
)

// setupResponse 设置 resp 对象，仅后置脚本可用
func (s *Sandbox) setupResponse() {
	if s.response == nil {
		return
	}
	resp := s.vm.NewObject()

	resp.Set("code", s.response.Status)
	resp.Set("status", s.response.StatusText)
	resp.Set("durationMs", s.response.DurationMs)
	resp.Set("sizeBytes", s.response.SizeBytes)

	headers := s.vm.NewObject()
	for k, v := range s.response.Headers {
		headers.Set(k, v)
	}
	resp.Set("headers", headers)

	bodyText := responseText(s.response)
	resp.Set("text", bodyText)

	resp.Set("json", func(call goja.FunctionCall) goja.Value {
		if bodyText == "" {
			return goja.Undefined()
		}
		parsed, err := oj.ParseString(bodyText)
		if err != nil {
			panic(s.vm.NewGoError(fmt.Errorf("响应体不是合法 JSON: %v", err)))
		}
		return s.vm.ToValue(parsed)
	})

	// jsonpath 表达式求值，命中一个返回值本身，命中多个返回数组
	resp.Set("jsonpath", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 || bodyText == "" {
			return goja.Undefined()
		}
		expr, err := jp.ParseString(call.Arguments[0].String())
		if err != nil {
			panic(s.vm.NewGoError(fmt.Errorf("jsonpath 表达式错误: %v", err)))
		}
		parsed, err := oj.ParseString(bodyText)
		if err != nil {
			panic(s.vm.NewGoError(fmt.Errorf("响应体不是合法 JSON: %v", err)))
		}
		matches := expr.Get(parsed)
		switch len(matches) {
		case 0:
			return goja.Undefined()
		case 1:
			return s.vm.ToValue(matches[0])
		default:
			return s.vm.ToValue(matches)
		}
	})

	s.vm.Set("resp", resp)
}

// responseText 返回文本形式的响应体，二进制响应先解码
func responseText(r *dispatch.Response) string {
	if r.BodyEncoding != dispatch.EncodingBase64 {
		return r.Body
	}
	decoded, err := base64.StdEncoding.DecodeString(r.Body)
	if err != nil {
		return r.Body
	}
	return string(decoded)
}
