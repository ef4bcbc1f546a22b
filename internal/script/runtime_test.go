package script

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feiyu/internal/dispatch"
	"feiyu/internal/model"
	"feiyu/internal/resolver"
)

func TestEnvGetSetUnset(t *testing.T) {
	s := NewSandbox(&Config{Vars: map[string]string{"host": "api.example.com"}})
	result := s.Execute(`
		env.set("token", "abc");
		env.set("host", "new.example.com");
		env.unset("stale");
		console.log(env.get("host"));
	`, 0)

	require.Empty(t, result.ErrorMsg)
	assert.Equal(t, map[string]string{"token": "abc", "host": "new.example.com"}, result.EnvSets)
	assert.Equal(t, []string{"stale"}, result.EnvUnsets)
	assert.Equal(t, []string{"[LOG] new.example.com"}, result.ConsoleLogs)
}

func TestEnvSetThenUnset(t *testing.T) {
	s := NewSandbox(&Config{})
	result := s.Execute(`
		env.set("k", "v");
		env.unset("k");
	`, 0)

	require.Empty(t, result.ErrorMsg)
	// 先写后删只保留删除
	assert.Empty(t, result.EnvSets)
	assert.Equal(t, []string{"k"}, result.EnvUnsets)
}

func TestEnvHasAndAll(t *testing.T) {
	s := NewSandbox(&Config{Vars: map[string]string{"a": "1"}})
	result := s.Execute(`
		console.log(env.has("a"), env.has("b"));
		env.set("b", "2");
		console.log(env.has("b"));
		console.log(Object.keys(env.all()).length);
	`, 0)

	require.Empty(t, result.ErrorMsg)
	assert.Equal(t, []string{"[LOG] true false", "[LOG] true", "[LOG] 2"}, result.ConsoleLogs)
}

func TestEnvSetNonStringValue(t *testing.T) {
	s := NewSandbox(&Config{})
	result := s.Execute(`env.set("count", 42);`, 0)

	require.Empty(t, result.ErrorMsg)
	assert.Equal(t, "42", result.EnvSets["count"])
}

func TestVarsSnapshotForChainedScripts(t *testing.T) {
	s := NewSandbox(&Config{Vars: map[string]string{"a": "1"}})
	result := s.Execute(`env.set("b", "2"); env.unset("a");`, 0)
	require.Empty(t, result.ErrorMsg)

	// 后续脚本接力时能看到前一段的写入
	assert.Equal(t, map[string]string{"b": "2"}, s.Vars())
}

func TestRequestMutation(t *testing.T) {
	req := &resolver.ResolvedRequest{
		Method: "GET",
		URL:    "https://api.example.com/old",
		Headers: []model.HeaderItem{
			{Key: "X-Trace", Value: "t1", Enabled: true},
		},
	}
	s := NewSandbox(&Config{Request: req})
	result := s.Execute(`
		request.setUrl("https://api.example.com/new");
		request.setMethod("post");
		request.setBody('{"a":1}');
		request.headers.set("x-trace", "t2");
		request.headers.set("X-Custom", "c");
		request.headers.remove("missing");
		console.log(request.getUrl(), request.getMethod());
	`, 0)

	require.Empty(t, result.ErrorMsg)
	assert.Equal(t, "https://api.example.com/new", req.URL)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, `{"a":1}`, req.Body)
	require.Len(t, req.Headers, 2)
	assert.Equal(t, "t2", req.Headers[0].Value)
	assert.Equal(t, "X-Custom", req.Headers[1].Key)
	assert.Equal(t, []string{"[LOG] https://api.example.com/new POST"}, result.ConsoleLogs)
}

func TestRequestHeaderRemove(t *testing.T) {
	req := &resolver.ResolvedRequest{
		Headers: []model.HeaderItem{
			{Key: "Authorization", Value: "Bearer x", Enabled: true},
			{Key: "Accept", Value: "application/json", Enabled: true},
		},
	}
	s := NewSandbox(&Config{Request: req})
	result := s.Execute(`request.headers.remove("AUTHORIZATION");`, 0)

	require.Empty(t, result.ErrorMsg)
	require.Len(t, req.Headers, 1)
	assert.Equal(t, "Accept", req.Headers[0].Key)
}

func TestRequestSkip(t *testing.T) {
	req := &resolver.ResolvedRequest{URL: "https://api.example.com"}
	s := NewSandbox(&Config{Request: req})
	result := s.Execute(`if (env.get("mock") === undefined) { request.skip(); }`, 0)

	require.Empty(t, result.ErrorMsg)
	assert.True(t, result.Skipped)
}

func TestPostChainHasNoRequestObject(t *testing.T) {
	// 后置沙箱只拿到响应，request 对象不存在
	resp := &dispatch.Response{Status: 200, StatusText: "OK"}
	s := NewSandbox(&Config{Response: resp})
	result := s.Execute(`console.log(typeof request);`, 0)

	require.Empty(t, result.ErrorMsg)
	assert.Equal(t, []string{"[LOG] undefined"}, result.ConsoleLogs)
}

func TestResponseAccess(t *testing.T) {
	resp := &dispatch.Response{
		Status:     200,
		StatusText: "OK",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       `{"data":{"id":7,"items":[{"n":1},{"n":2}]}}`,
		DurationMs: 12,
		SizeBytes:  43,
	}
	s := NewSandbox(&Config{Response: resp})
	result := s.Execute(`
		console.log(resp.code, resp.status, resp.durationMs);
		console.log(resp.json().data.id);
		console.log(resp.jsonpath("$.data.id"));
		console.log(resp.jsonpath("$.data.items[*].n").length);
		console.log(resp.jsonpath("$.data.missing"));
	`, 0)

	require.Empty(t, result.ErrorMsg)
	assert.Equal(t, []string{
		"[LOG] 200 OK 12",
		"[LOG] 7",
		"[LOG] 7",
		"[LOG] 2",
		"[LOG] undefined",
	}, result.ConsoleLogs)
}

func TestResponseBase64Body(t *testing.T) {
	resp := &dispatch.Response{
		Status:       200,
		StatusText:   "OK",
		Body:         "eyJvayI6dHJ1ZX0=", // {"ok":true}
		BodyEncoding: dispatch.EncodingBase64,
	}
	s := NewSandbox(&Config{Response: resp})
	result := s.Execute(`console.log(resp.json().ok);`, 0)

	require.Empty(t, result.ErrorMsg)
	assert.Equal(t, []string{"[LOG] true"}, result.ConsoleLogs)
}

func TestTestAndAssert(t *testing.T) {
	resp := &dispatch.Response{Status: 200, StatusText: "OK"}
	s := NewSandbox(&Config{Response: resp})
	result := s.Execute(`
		test("状态码为 200", function() {
			assert(resp.code === 200, "期望 200");
		});
		test("状态码为 201", function() {
			assert(resp.code === 201, "期望 201");
		});
	`, 0)

	require.Empty(t, result.ErrorMsg)
	require.Len(t, result.Tests, 2)
	assert.True(t, result.Tests[0].Passed)
	assert.Equal(t, "状态码为 200", result.Tests[0].Name)
	assert.False(t, result.Tests[1].Passed)
	assert.Contains(t, result.Tests[1].Error, "期望 201")
}

func TestTestFailureDoesNotAbortScript(t *testing.T) {
	s := NewSandbox(&Config{})
	result := s.Execute(`
		test("必然失败", function() { assert(false); });
		env.set("after", "reached");
	`, 0)

	require.Empty(t, result.ErrorMsg)
	assert.Equal(t, "reached", result.EnvSets["after"])
}

func TestScriptErrorReported(t *testing.T) {
	s := NewSandbox(&Config{})
	result := s.Execute(`env.set("before", "1"); throw new Error("boom");`, 0)

	assert.Contains(t, result.ErrorMsg, "boom")
	// 报错前已缓存的写入保留
	assert.Equal(t, "1", result.EnvSets["before"])
}

func TestConsoleLevels(t *testing.T) {
	s := NewSandbox(&Config{})
	result := s.Execute(`
		console.info("i");
		console.warn("w");
		console.error("e");
		console.log({a: 1});
	`, 0)

	require.Empty(t, result.ErrorMsg)
	require.Len(t, result.ConsoleLogs, 4)
	assert.Equal(t, "[INFO] i", result.ConsoleLogs[0])
	assert.Equal(t, "[WARN] w", result.ConsoleLogs[1])
	assert.Equal(t, "[ERROR] e", result.ConsoleLogs[2])
	assert.Contains(t, result.ConsoleLogs[3], `"a"`)
}

func TestExecuteTimeout(t *testing.T) {
	s := NewSandbox(&Config{})
	start := time.Now()
	result := s.Execute(`while (true) {}`, 100*time.Millisecond)

	assert.Equal(t, "脚本执行超时", result.ErrorMsg)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSandboxIsolation(t *testing.T) {
	// 脚本之间不共享 vm，上一段的全局变量不可见
	first := NewSandbox(&Config{})
	require.Empty(t, first.Execute(`var leaked = 1;`, 0).ErrorMsg)

	second := NewSandbox(&Config{})
	result := second.Execute(`console.log(typeof leaked);`, 0)
	require.Empty(t, result.ErrorMsg)
	assert.Equal(t, []string{"[LOG] undefined"}, result.ConsoleLogs)
}
