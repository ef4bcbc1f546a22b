package script

import (
	"strings"

	"github.com/dop251/goja"

	"feiyu/internal/model"
)

// setupRequest 设置 request 对象。
// 只在前置脚本里存在，可改写地址、方法、请求体和头；后置脚本不注入。
func (s *Sandbox) setupRequest() {
	if s.request == nil {
		return
	}
	req := s.vm.NewObject()

	req.Set("getUrl", func(call goja.FunctionCall) goja.Value {
		return s.vm.ToValue(s.request.URL)
	})
	req.Set("setUrl", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) > 0 {
			s.request.URL = call.Arguments[0].String()
		}
		return goja.Undefined()
	})

	req.Set("getMethod", func(call goja.FunctionCall) goja.Value {
		return s.vm.ToValue(s.request.Method)
	})
	req.Set("setMethod", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) > 0 {
			s.request.Method = strings.ToUpper(call.Arguments[0].String())
		}
		return goja.Undefined()
	})

	req.Set("getBody", func(call goja.FunctionCall) goja.Value {
		return s.vm.ToValue(s.request.Body)
	})
	req.Set("setBody", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) > 0 {
			s.request.Body = s.exportString(call.Arguments[0])
		}
		return goja.Undefined()
	})

	headers := s.vm.NewObject()
	headers.Set("get", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}
		key := call.Arguments[0].String()
		for _, h := range s.request.Headers {
			if strings.EqualFold(h.Key, key) {
				return s.vm.ToValue(h.Value)
			}
		}
		return goja.Undefined()
	})
	headers.Set("set", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			return goja.Undefined()
		}
		key := call.Arguments[0].String()
		value := call.Arguments[1].String()
		for i := range s.request.Headers {
			if strings.EqualFold(s.request.Headers[i].Key, key) {
				s.request.Headers[i].Value = value
				return goja.Undefined()
			}
		}
		s.request.Headers = append(s.request.Headers, model.HeaderItem{Key: key, Value: value, Enabled: true})
		return goja.Undefined()
	})
	headers.Set("remove", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}
		key := call.Arguments[0].String()
		kept := s.request.Headers[:0]
		for _, h := range s.request.Headers {
			if !strings.EqualFold(h.Key, key) {
				kept = append(kept, h)
			}
		}
		s.request.Headers = kept
		return goja.Undefined()
	})
	headers.Set("all", func(call goja.FunctionCall) goja.Value {
		out := make(map[string]string, len(s.request.Headers))
		for _, h := range s.request.Headers {
			out[h.Key] = h.Value
		}
		return s.vm.ToValue(out)
	})
	req.Set("headers", headers)

	// skip() 跳过本次发送，流水线直接结束
	req.Set("skip", func(call goja.FunctionCall) goja.Value {
		s.skipped = true
		return goja.Undefined()
	})

	s.vm.Set("request", req)
}
