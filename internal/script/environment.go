package script

import "github.com/dop251/goja"

// setupEnv 设置 env 对象。
// 写入只改动本地快照并缓存为待落库更新，脚本之间读到最新值。
func (s *Sandbox) setupEnv() {
	env := s.vm.NewObject()

	env.Set("get", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}
		key := call.Arguments[0].String()
		if val, ok := s.vars[key]; ok {
			return s.vm.ToValue(val)
		}
		return goja.Undefined()
	})

	env.Set("set", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			return goja.Undefined()
		}
		key := call.Arguments[0].String()
		val := s.exportString(call.Arguments[1])
		s.vars[key] = val
		s.envSets[key] = val
		delete(s.envUnset, key)
		return goja.Undefined()
	})

	env.Set("unset", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}
		key := call.Arguments[0].String()
		delete(s.vars, key)
		delete(s.envSets, key)
		s.envUnset[key] = struct{}{}
		return goja.Undefined()
	})

	env.Set("has", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return s.vm.ToValue(false)
		}
		_, ok := s.vars[call.Arguments[0].String()]
		return s.vm.ToValue(ok)
	})

	env.Set("all", func(call goja.FunctionCall) goja.Value {
		return s.vm.ToValue(s.vars)
	})

	s.vm.Set("env", env)
}

// Vars 返回执行后的变量快照，供同一流水线的后续脚本接力
func (s *Sandbox) Vars() map[string]string {
	out := make(map[string]string, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}
