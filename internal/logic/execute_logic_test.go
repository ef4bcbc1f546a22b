package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feiyu/internal/model"
	"feiyu/internal/reqauth"
	"feiyu/internal/resolver"
	"feiyu/internal/script"
	"feiyu/internal/variables"
)

func TestPreScriptSeesFinalRequest(t *testing.T) {
	// 插值和认证先于前置脚本，脚本读到的是最终形态
	vars := map[string]variables.Value{
		"base":  {Value: "https://api.example.com"},
		"token": {Value: "tk-1"},
	}
	resolved := &resolver.ResolvedRequest{
		Method:     "GET",
		URL:        "{{base}}/users",
		AuthType:   model.AuthTypeBearer,
		AuthConfig: model.AuthConfig{Token: "{{token}}"},
	}

	interpolateRequest(resolved, vars)
	reqauth.Apply(resolved)

	sandbox := script.NewSandbox(&script.Config{Vars: flattenVars(vars), Request: resolved})
	result := sandbox.Execute(`
		console.log(request.getUrl());
		console.log(request.headers.get("Authorization"));
	`, 0)

	require.Empty(t, result.ErrorMsg)
	assert.Equal(t, []string{
		"[LOG] https://api.example.com/users",
		"[LOG] Bearer tk-1",
	}, result.ConsoleLogs)
}

func TestScriptEnvWriteDoesNotFeedInterpolation(t *testing.T) {
	vars := map[string]variables.Value{
		"base": {Value: "https://api.example.com"},
	}
	resolved := &resolver.ResolvedRequest{Method: "GET", URL: "{{base}}/ping"}
	interpolateRequest(resolved, vars)

	sandbox := script.NewSandbox(&script.Config{Vars: flattenVars(vars), Request: resolved})
	result := sandbox.Execute(`env.set("base", "https://other.example.com");`, 0)
	require.Empty(t, result.ErrorMsg)

	// 脚本写入只进缓存，不影响本次请求的插值结果
	sets := map[string]string{}
	unsets := map[string]struct{}{}
	collectEnvUpdates(result, sets, unsets)
	assert.Equal(t, "https://other.example.com", sets["base"])
	assert.Equal(t, "https://api.example.com/ping", resolved.URL)
	assert.Equal(t, "https://api.example.com", vars["base"].Value)
}

func TestCollectEnvUpdatesLastWriteWins(t *testing.T) {
	sets := map[string]string{}
	unsets := map[string]struct{}{}

	collectEnvUpdates(&script.Result{EnvSets: map[string]string{"k": "1"}}, sets, unsets)
	collectEnvUpdates(&script.Result{EnvUnsets: []string{"k"}}, sets, unsets)
	assert.NotContains(t, sets, "k")
	assert.Contains(t, unsets, "k")

	collectEnvUpdates(&script.Result{EnvSets: map[string]string{"k": "2"}}, sets, unsets)
	assert.Equal(t, "2", sets["k"])
	assert.NotContains(t, unsets, "k")
}

func TestBuildFinalURL(t *testing.T) {
	resolved := &resolver.ResolvedRequest{
		URL: "https://api.example.com/users?page=1",
		Params: []model.ParamItem{
			{Key: "page", Value: "2", Enabled: true},
			{Key: "limit", Value: "10", Enabled: true},
		},
	}
	final, err := buildFinalURL(resolved)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/users?limit=10&page=2", final)
}
