package logic

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"

	"feiyu/internal/dispatch"
	"feiyu/internal/logger"
	"feiyu/internal/model"
	"feiyu/internal/reqauth"
	"feiyu/internal/resolver"
	"feiyu/internal/script"
	"feiyu/internal/svc"
	"feiyu/internal/utils"
	"feiyu/internal/variables"
)

// ExecuteLogic 请求执行流水线。
// 继承解析 → 变量插值 → 认证 → 前置脚本 → 发送 → 后置脚本 → 落库。
type ExecuteLogic struct {
	ctx context.Context
}

// NewExecuteLogic 创建执行逻辑
func NewExecuteLogic(ctx context.Context) *ExecuteLogic {
	return &ExecuteLogic{ctx: ctx}
}

// 执行渠道
const (
	ViaLocal = "local"
	ViaAgent = "agent"
)

// ExecuteReq 执行请求
type ExecuteReq struct {
	RequestID     int64  `json:"requestId" validate:"required"`
	EnvironmentID int64  `json:"environmentId"` // 0 取激活环境
	AgentID       string `json:"agentId"`       // 空走本机
}

// ScriptOutput 单段脚本的执行输出
type ScriptOutput struct {
	ConsoleLogs []string            `json:"consoleLogs"`
	Tests       []script.TestResult `json:"tests"`
	Error       string              `json:"error,omitempty"`
}

// ExecuteResp 执行结果
type ExecuteResp struct {
	Response    *dispatch.Response `json:"response,omitempty"`
	FinalURL    string             `json:"finalUrl"`
	Method      string             `json:"method"`
	Headers     []model.HeaderItem `json:"headers"`
	PreOutputs  []ScriptOutput     `json:"preOutputs,omitempty"`
	PostOutputs []ScriptOutput     `json:"postOutputs,omitempty"`
	Skipped     bool               `json:"skipped"`
	ExecutedVia string             `json:"executedVia"`
	HistoryID   int64              `json:"historyId,omitempty"`
	MissingVars []string           `json:"missingVars,omitempty"`
}

// Execute 执行一个请求
func (l *ExecuteLogic) Execute(userID int64, req *ExecuteReq) (*ExecuteResp, error) {
	request, err := NewRequestLogic(l.ctx).GetByID(req.RequestID)
	if err != nil {
		return nil, err
	}

	resolved, err := resolver.New(NewFolderLogic(l.ctx)).Resolve(l.ctx, request)
	if err != nil {
		return nil, err
	}

	// 变量快照
	envID := req.EnvironmentID
	if envID == 0 {
		if active, err := NewEnvLogic(l.ctx).GetActive(); err == nil && active != nil {
			envID = active.ID
		}
	}
	vars := map[string]variables.Value{}
	if envID > 0 {
		vars, err = variables.NewStore(svc.Ctx.DB).Resolve(l.ctx, envID, userID)
		if err != nil {
			return nil, err
		}
	}

	resp := &ExecuteResp{ExecutedVia: ViaLocal}
	if req.AgentID != "" {
		resp.ExecutedVia = ViaAgent
	}

	// 插值和认证在脚本之前完成，前置脚本看到的是最终形态的请求
	interpolateRequest(resolved, vars)
	resp.MissingVars = variables.MissingKeys(resolved.URL, vars)

	reqauth.Apply(resolved)

	// 前置脚本，环境写入先缓存，待整条流水线结束统一落库
	snapshot := flattenVars(vars)
	envSets := map[string]string{}
	envUnsets := map[string]struct{}{}
	scriptTimeout := time.Duration(svc.Ctx.Config.Script.Timeout) * time.Millisecond

	for _, code := range resolved.PreScripts {
		sandbox := script.NewSandbox(&script.Config{Vars: snapshot, Request: resolved})
		result := sandbox.Execute(code, scriptTimeout)
		resp.PreOutputs = append(resp.PreOutputs, ScriptOutput{
			ConsoleLogs: result.ConsoleLogs,
			Tests:       result.Tests,
			Error:       result.ErrorMsg,
		})
		snapshot = sandbox.Vars()
		collectEnvUpdates(result, envSets, envUnsets)
		if result.Skipped {
			resp.Skipped = true
		}
	}

	if resp.Skipped {
		l.applyEnvUpdates(userID, envID, envSets, envUnsets)
		resp.FinalURL = resolved.URL
		resp.Method = resolved.Method
		resp.Headers = resolved.Headers
		return resp, nil
	}

	finalURL, err := buildFinalURL(resolved)
	if err != nil {
		return nil, errors.New("请求地址不合法: " + err.Error())
	}
	resp.FinalURL = finalURL
	resp.Method = resolved.Method
	resp.Headers = resolved.Headers

	payload := buildPayload(resolved, finalURL)

	// 发送
	var result *dispatch.Response
	if req.AgentID != "" {
		owner, ok := svc.Ctx.Agents.Owner(req.AgentID)
		if !ok {
			return nil, errors.New("执行器不在线")
		}
		if owner != userID {
			return nil, errors.New("无权使用该执行器")
		}
		result, err = svc.Ctx.Agents.Dispatch(l.ctx, req.AgentID, payload)
		if err != nil {
			result = &dispatch.Response{Status: 0, StatusText: "Error", Error: err.Error()}
		}
	} else {
		result = dispatch.NewLocalEngine().Execute(l.ctx, payload)
	}
	resp.Response = result

	// 后置脚本只读响应，不再暴露可写的 request
	for _, code := range resolved.PostScripts {
		sandbox := script.NewSandbox(&script.Config{Vars: snapshot, Response: result})
		out := sandbox.Execute(code, scriptTimeout)
		resp.PostOutputs = append(resp.PostOutputs, ScriptOutput{
			ConsoleLogs: out.ConsoleLogs,
			Tests:       out.Tests,
			Error:       out.ErrorMsg,
		})
		snapshot = sandbox.Vars()
		collectEnvUpdates(out, envSets, envUnsets)
	}

	l.applyEnvUpdates(userID, envID, envSets, envUnsets)

	// 历史落库失败不影响返回
	entry := buildHistoryEntry(userID, request.ID, payload, result, resp.ExecutedVia)
	if err := NewHistoryLogic(l.ctx).Record(entry); err != nil {
		logger.Warn("写入执行历史失败", zap.Error(err))
	} else {
		resp.HistoryID = entry.ID
	}

	return resp, nil
}

// interpolateRequest 对地址、头、参数、体和认证配置做变量插值
func interpolateRequest(r *resolver.ResolvedRequest, vars map[string]variables.Value) {
	r.URL = variables.Interpolate(r.URL, vars)
	r.Body = variables.Interpolate(r.Body, vars)
	for i := range r.Headers {
		r.Headers[i].Value = variables.Interpolate(r.Headers[i].Value, vars)
	}
	for i := range r.Params {
		r.Params[i].Value = variables.Interpolate(r.Params[i].Value, vars)
	}

	a := &r.AuthConfig
	fields := []*string{
		&a.Token, &a.AccessToken, &a.Username, &a.Password,
		&a.Key, &a.Value, &a.Payload, &a.Secret,
		&a.HawkID, &a.HawkKey, &a.Ext,
		&a.RefreshToken, &a.TokenURL, &a.ClientID, &a.ClientSecret,
	}
	for _, f := range fields {
		*f = variables.Interpolate(*f, vars)
	}
}

// buildFinalURL 把启用的查询参数合并进地址
func buildFinalURL(r *resolver.ResolvedRequest) (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", err
	}
	if len(r.Params) > 0 {
		q := u.Query()
		for _, p := range r.Params {
			q.Set(p.Key, p.Value)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func buildPayload(r *resolver.ResolvedRequest, finalURL string) *dispatch.Payload {
	headers := make([]dispatch.HeaderPair, 0, len(r.Headers))
	for _, h := range r.Headers {
		headers = append(headers, dispatch.HeaderPair{Key: h.Key, Value: h.Value})
	}
	return &dispatch.Payload{
		Method:          r.Method,
		URL:             finalURL,
		Headers:         headers,
		Body:            r.Body,
		BodyType:        r.BodyType,
		Timeout:         r.Timeout,
		FollowRedirects: r.FollowRedirects,
		VerifySSL:       r.VerifySSL,
		Proxy:           r.Proxy,
	}
}

func buildHistoryEntry(userID, requestID int64, payload *dispatch.Payload, result *dispatch.Response, via string) *model.HistoryEntry {
	reqHeaders, _ := utils.ToJSON(payload.Headers)
	respHeaders, _ := utils.ToJSON(result.Headers)
	return &model.HistoryEntry{
		UserID:       userID,
		RequestID:    requestID,
		Method:       payload.Method,
		URL:          payload.URL,
		ReqHeaders:   reqHeaders,
		ReqBody:      payload.Body,
		Status:       result.Status,
		StatusText:   result.StatusText,
		RespHeaders:  respHeaders,
		RespBody:     result.Body,
		BodyEncoding: result.BodyEncoding,
		DurationMs:   result.DurationMs,
		SizeBytes:    result.SizeBytes,
		Error:        result.Error,
		ExecutedVia:  via,
	}
}

// applyEnvUpdates 把脚本缓存的环境写入落为本人的本地覆盖
func (l *ExecuteLogic) applyEnvUpdates(userID, envID int64, sets map[string]string, unsets map[string]struct{}) {
	if envID <= 0 || (len(sets) == 0 && len(unsets) == 0) {
		return
	}
	envLogic := NewEnvLogic(l.ctx)
	for key, value := range sets {
		if err := envLogic.SetOverride(userID, envID, &OverrideReq{Key: key, Value: value}); err != nil {
			logger.Warn("写入变量覆盖失败", zap.String("key", key), zap.Error(err))
		}
	}
	for key := range unsets {
		if err := envLogic.DeleteOverride(userID, envID, key); err != nil {
			logger.Warn("删除变量覆盖失败", zap.String("key", key), zap.Error(err))
		}
	}
}

func collectEnvUpdates(result *script.Result, sets map[string]string, unsets map[string]struct{}) {
	for k, v := range result.EnvSets {
		sets[k] = v
		delete(unsets, k)
	}
	for _, k := range result.EnvUnsets {
		delete(sets, k)
		unsets[k] = struct{}{}
	}
}

func flattenVars(vars map[string]variables.Value) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = v.Value
	}
	return out
}
