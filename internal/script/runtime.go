// Package script 提供请求前后置脚本的 JavaScript 沙箱。
package script

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"feiyu/internal/dispatch"
	"feiyu/internal/resolver"
	"feiyu/internal/utils"
)

// 缺省脚本执行时限
const DefaultTimeout = 10 * time.Second

// TestResult 单条断言结果
type TestResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

// Result 脚本执行结果。
// 环境变量写入先缓存在 EnvSets / EnvUnsets，由调用方统一落库。
type Result struct {
	ConsoleLogs []string          `json:"consoleLogs"`
	Tests       []TestResult      `json:"tests"`
	EnvSets     map[string]string `json:"envSets,omitempty"`
	EnvUnsets   []string          `json:"envUnsets,omitempty"`
	Skipped     bool              `json:"skipped"`
	ErrorMsg    string            `json:"error,omitempty"`
}

// Sandbox 一次脚本执行的运行时。
// 每段脚本使用独立的 vm，脚本抛错不影响后续脚本。
type Sandbox struct {
	vm          *goja.Runtime
	consoleLogs []string
	logMu       sync.Mutex

	vars     map[string]string
	envSets  map[string]string
	envUnset map[string]struct{}

	request  *resolver.ResolvedRequest
	response *dispatch.Response

	tests   []TestResult
	skipped bool
}

// Config 沙箱配置
type Config struct {
	Vars     map[string]string         // 当前生效的变量快照
	Request  *resolver.ResolvedRequest // 前置脚本可修改
	Response *dispatch.Response        // 后置脚本可读，前置为 nil
}

// NewSandbox 创建沙箱并注入 API
func NewSandbox(config *Config) *Sandbox {
	if config == nil {
		config = &Config{}
	}

	s := &Sandbox{
		vm:          goja.New(),
		consoleLogs: make([]string, 0),
		vars:        make(map[string]string),
		envSets:     make(map[string]string),
		envUnset:    make(map[string]struct{}),
		request:     config.Request,
		response:    config.Response,
	}
	for k, v := range config.Vars {
		s.vars[k] = v
	}

	s.setupConsole()
	s.setupEnv()
	s.setupRequest()
	s.setupResponse()
	s.setupTest()

	return s
}

// Execute 执行脚本。
// 超出时限通过 vm.Interrupt 中断，已缓存的环境变量写入保留。
func (s *Sandbox) Execute(script string, timeout time.Duration) *Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.vm.Interrupt("脚本执行超时")
		case <-done:
		}
	}()

	_, err := s.vm.RunString(script)
	close(done)

	result := s.collect()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result.ErrorMsg = "脚本执行超时"
		} else {
			result.ErrorMsg = err.Error()
		}
	}
	return result
}

// collect 汇总执行结果
func (s *Sandbox) collect() *Result {
	s.logMu.Lock()
	logs := make([]string, len(s.consoleLogs))
	copy(logs, s.consoleLogs)
	s.logMu.Unlock()

	result := &Result{
		ConsoleLogs: logs,
		Tests:       s.tests,
		Skipped:     s.skipped,
	}
	if len(s.envSets) > 0 {
		result.EnvSets = make(map[string]string, len(s.envSets))
		for k, v := range s.envSets {
			result.EnvSets[k] = v
		}
	}
	for k := range s.envUnset {
		result.EnvUnsets = append(result.EnvUnsets, k)
	}
	return result
}

// setupConsole 设置 console 对象
func (s *Sandbox) setupConsole() {
	console := s.vm.NewObject()
	console.Set("log", func(call goja.FunctionCall) goja.Value {
		s.appendLog("LOG", call.Arguments)
		return goja.Undefined()
	})
	console.Set("info", func(call goja.FunctionCall) goja.Value {
		s.appendLog("INFO", call.Arguments)
		return goja.Undefined()
	})
	console.Set("warn", func(call goja.FunctionCall) goja.Value {
		s.appendLog("WARN", call.Arguments)
		return goja.Undefined()
	})
	console.Set("error", func(call goja.FunctionCall) goja.Value {
		s.appendLog("ERROR", call.Arguments)
		return goja.Undefined()
	})
	s.vm.Set("console", console)
}

// setupTest 设置 test(name, fn) 断言入口
func (s *Sandbox) setupTest() {
	s.vm.Set("test", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			return goja.Undefined()
		}
		name := call.Arguments[0].String()
		fn, ok := goja.AssertFunction(call.Arguments[1])
		if !ok {
			return goja.Undefined()
		}

		entry := TestResult{Name: name, Passed: true}
		if _, err := fn(goja.Undefined()); err != nil {
			entry.Passed = false
			entry.Error = err.Error()
		}
		s.tests = append(s.tests, entry)
		return goja.Undefined()
	})

	// assert(cond, message) 供断言函数内部使用
	s.vm.Set("assert", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}
		if call.Arguments[0].ToBoolean() {
			return goja.Undefined()
		}
		message := "断言失败"
		if len(call.Arguments) > 1 {
			message = call.Arguments[1].String()
		}
		panic(s.vm.NewGoError(fmt.Errorf("%s", message)))
	})
}

// appendLog 添加日志
func (s *Sandbox) appendLog(level string, args []goja.Value) {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = s.formatValue(arg)
	}
	s.consoleLogs = append(s.consoleLogs, fmt.Sprintf("[%s] %s", level, strings.Join(parts, " ")))
}

// formatValue 格式化值为字符串
func (s *Sandbox) formatValue(val goja.Value) string {
	if val == nil || goja.IsUndefined(val) {
		return "undefined"
	}
	if goja.IsNull(val) {
		return "null"
	}

	exported := val.Export()
	switch v := exported.(type) {
	case string:
		return v
	case map[string]interface{}, []interface{}:
		text, err := utils.ToJSON(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return text
	default:
		return fmt.Sprintf("%v", v)
	}
}

// exportString 将脚本传入的任意值转为存储用字符串
func (s *Sandbox) exportString(val goja.Value) string {
	exported := val.Export()
	switch v := exported.(type) {
	case string:
		return v
	default:
		return s.formatValue(val)
	}
}
