// Package resolver 实现目录链继承解析，将请求与其祖先目录的配置
// 合并为一份可直接执行的配置。
package resolver

import (
	"context"
	"errors"
	"strings"

	"feiyu/internal/model"
	"feiyu/internal/utils"
)

// 目录链最大深度，超出视为数据异常（环）
const maxChainDepth = 64

// 标量项缺省值
const (
	DefaultTimeout         = 30000 // 毫秒
	DefaultFollowRedirects = true
	DefaultVerifySSL       = true
)

var (
	// ErrFolderCycle 目录父子关系成环
	ErrFolderCycle = errors.New("目录层级过深或存在循环引用")
	// ErrFolderNotFound 目录不存在
	ErrFolderNotFound = errors.New("目录不存在")
)

// FolderSource 目录读取接口，由存储层实现
type FolderSource interface {
	GetFolder(ctx context.Context, id int64) (*model.Folder, error)
}

// ResolvedRequest 继承解析后的完整请求配置
type ResolvedRequest struct {
	Method   string             `json:"method"`
	URL      string             `json:"url"`
	Body     string             `json:"body"`
	BodyType string             `json:"bodyType"`
	Headers  []model.HeaderItem `json:"headers"`
	Params   []model.ParamItem  `json:"params"`

	// 合并中被禁用屏蔽的项，不参与执行，保留给预览展示
	DisabledHeaders []model.HeaderItem `json:"disabledHeaders,omitempty"`
	DisabledParams  []model.ParamItem  `json:"disabledParams,omitempty"`

	AuthType   string           `json:"authType"`
	AuthConfig model.AuthConfig `json:"authConfig"`

	// 根到叶顺序，最后一项为请求自身脚本
	PreScripts  []string `json:"preScripts"`
	PostScripts []string `json:"postScripts"`

	Timeout         int    `json:"timeout"` // 毫秒
	FollowRedirects bool   `json:"followRedirects"`
	VerifySSL       bool   `json:"verifySsl"`
	Proxy           string `json:"proxy"`
}

// Resolver 继承解析器
type Resolver struct {
	folders FolderSource
}

// New 创建解析器
func New(folders FolderSource) *Resolver {
	return &Resolver{folders: folders}
}

// Resolve 解析请求的最终执行配置。
// 列表项按根到叶再到请求自身的顺序合并，同名后者覆盖前者；
// 标量项从请求向根查找首个显式设置的值。
func (r *Resolver) Resolve(ctx context.Context, req *model.Request) (*ResolvedRequest, error) {
	chain, err := r.buildChain(ctx, req.FolderID)
	if err != nil {
		return nil, err
	}

	resolved := &ResolvedRequest{
		Method:   strings.ToUpper(req.Method),
		URL:      req.URL,
		Body:     req.Body,
		BodyType: req.BodyType,
	}

	// 请求头与查询参数，根 → 叶 → 请求
	headerLayers := make([][]model.HeaderItem, 0, len(chain)+1)
	paramLayers := make([][]model.ParamItem, 0, len(chain)+1)
	for _, f := range chain {
		headerLayers = append(headerLayers, decodeHeaders(f.Headers))
		paramLayers = append(paramLayers, decodeParams(f.Params))
	}
	headerLayers = append(headerLayers, decodeHeaders(req.Headers))
	paramLayers = append(paramLayers, decodeParams(req.Params))
	resolved.Headers, resolved.DisabledHeaders = mergeHeaders(headerLayers)
	resolved.Params, resolved.DisabledParams = mergeParams(paramLayers)

	// 脚本沿链累积
	for _, f := range chain {
		if f.PreScript != "" {
			resolved.PreScripts = append(resolved.PreScripts, f.PreScript)
		}
		if f.PostScript != "" {
			resolved.PostScripts = append(resolved.PostScripts, f.PostScript)
		}
	}
	if req.PreScript != "" {
		resolved.PreScripts = append(resolved.PreScripts, req.PreScript)
	}
	if req.PostScript != "" {
		resolved.PostScripts = append(resolved.PostScripts, req.PostScript)
	}

	// 认证从请求向根查找首个非 inherit
	resolved.AuthType, resolved.AuthConfig = resolveAuth(req, chain)

	// 显式认证生效时移除手工设置的 Authorization 头，避免冲突
	if resolved.AuthType != model.AuthTypeNone && resolved.AuthType != model.AuthTypeInherit {
		resolved.Headers = stripHeader(resolved.Headers, "Authorization")
	}

	resolved.Timeout = resolveInt(req.Timeout, chain, func(f *model.Folder) *int { return f.Timeout }, DefaultTimeout)
	resolved.FollowRedirects = resolveBool(req.FollowRedirects, chain, func(f *model.Folder) *bool { return f.FollowRedirects }, DefaultFollowRedirects)
	resolved.VerifySSL = resolveBool(req.VerifySSL, chain, func(f *model.Folder) *bool { return f.VerifySSL }, DefaultVerifySSL)
	resolved.Proxy = resolveString(req.Proxy, chain, func(f *model.Folder) *string { return f.Proxy }, "")

	// baseUrl 仅作用于相对路径的请求地址
	if !hasScheme(resolved.URL) {
		base := joinBaseURLs(chain)
		if base != "" {
			resolved.URL = joinURL(base, resolved.URL)
		}
	}

	return resolved, nil
}

// buildChain 构建根到叶的目录链
func (r *Resolver) buildChain(ctx context.Context, folderID int64) ([]*model.Folder, error) {
	var chain []*model.Folder
	id := &folderID
	for id != nil {
		if len(chain) >= maxChainDepth {
			return nil, ErrFolderCycle
		}
		folder, err := r.folders.GetFolder(ctx, *id)
		if err != nil {
			return nil, err
		}
		if folder == nil {
			return nil, ErrFolderNotFound
		}
		chain = append(chain, folder)
		id = folder.ParentID
	}
	// 反转为根在前
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// resolveAuth 沿叶到根查找首个显式认证配置
func resolveAuth(req *model.Request, chain []*model.Folder) (string, model.AuthConfig) {
	if req.AuthType != "" && req.AuthType != model.AuthTypeInherit {
		return req.AuthType, decodeAuthConfig(req.AuthConfig)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		f := chain[i]
		if f.AuthType != "" && f.AuthType != model.AuthTypeInherit {
			return f.AuthType, decodeAuthConfig(f.AuthConfig)
		}
	}
	return model.AuthTypeNone, model.AuthConfig{}
}

// mergeHeaders 按层合并请求头，键不区分大小写，后出现的覆盖先出现的。
// 被禁用的项屏蔽同名项，不进入执行列表，但保留下来供展示。
func mergeHeaders(layers [][]model.HeaderItem) (enabled, disabled []model.HeaderItem) {
	var out []model.HeaderItem
	index := make(map[string]int)
	for _, layer := range layers {
		for _, item := range layer {
			if item.Key == "" {
				continue
			}
			key := strings.ToLower(item.Key)
			if i, ok := index[key]; ok {
				out[i] = item
			} else {
				index[key] = len(out)
				out = append(out, item)
			}
		}
	}
	for _, item := range out {
		if item.Enabled {
			enabled = append(enabled, item)
		} else {
			disabled = append(disabled, item)
		}
	}
	return enabled, disabled
}

// mergeParams 按层合并查询参数，键区分大小写
func mergeParams(layers [][]model.ParamItem) (enabled, disabled []model.ParamItem) {
	var out []model.ParamItem
	index := make(map[string]int)
	for _, layer := range layers {
		for _, item := range layer {
			if item.Key == "" {
				continue
			}
			if i, ok := index[item.Key]; ok {
				out[i] = item
			} else {
				index[item.Key] = len(out)
				out = append(out, item)
			}
		}
	}
	for _, item := range out {
		if item.Enabled {
			enabled = append(enabled, item)
		} else {
			disabled = append(disabled, item)
		}
	}
	return enabled, disabled
}

// stripHeader 删除指定请求头，键不区分大小写
func stripHeader(items []model.HeaderItem, key string) []model.HeaderItem {
	result := items[:0]
	for _, item := range items {
		if !strings.EqualFold(item.Key, key) {
			result = append(result, item)
		}
	}
	return result
}

func resolveInt(own *int, chain []*model.Folder, pick func(*model.Folder) *int, fallback int) int {
	if own != nil {
		return *own
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if v := pick(chain[i]); v != nil {
			return *v
		}
	}
	return fallback
}

func resolveBool(own *bool, chain []*model.Folder, pick func(*model.Folder) *bool, fallback bool) bool {
	if own != nil {
		return *own
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if v := pick(chain[i]); v != nil {
			return *v
		}
	}
	return fallback
}

func resolveString(own *string, chain []*model.Folder, pick func(*model.Folder) *string, fallback string) string {
	if own != nil {
		return *own
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if v := pick(chain[i]); v != nil {
			return *v
		}
	}
	return fallback
}

// joinBaseURLs 沿根到叶拼接 baseUrl，后代的相对路径追加到祖先之后，
// 后代给出完整地址时直接替换
func joinBaseURLs(chain []*model.Folder) string {
	base := ""
	for _, f := range chain {
		if f.BaseURL == "" {
			continue
		}
		if hasScheme(f.BaseURL) || base == "" {
			base = f.BaseURL
		} else {
			base = joinURL(base, f.BaseURL)
		}
	}
	return base
}

// joinURL 拼接路径片段，避免双斜杠或漏斜杠
func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// hasScheme 判断地址是否携带协议前缀
func hasScheme(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func decodeHeaders(raw string) []model.HeaderItem {
	if raw == "" {
		return nil
	}
	var items []model.HeaderItem
	if err := utils.UnmarshalString(raw, &items); err != nil {
		return nil
	}
	return items
}

func decodeParams(raw string) []model.ParamItem {
	if raw == "" {
		return nil
	}
	var items []model.ParamItem
	if err := utils.UnmarshalString(raw, &items); err != nil {
		return nil
	}
	return items
}

func decodeAuthConfig(raw string) model.AuthConfig {
	var cfg model.AuthConfig
	if raw != "" {
		_ = utils.UnmarshalString(raw, &cfg)
	}
	return cfg
}
