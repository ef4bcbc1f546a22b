package variables

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"feiyu/internal/utils"
)

// 占位符匹配，不允许嵌套花括号
var placeholderPattern = regexp.MustCompile(`\{\{([^{}]*?)\}\}`)

// 动态变量可带尾部整数偏移，如 {{$timestamp + 3600}}
var dynamicPattern = regexp.MustCompile(`^(\$\w+)(?:\s*([+-])\s*(\d+))?$`)

// Interpolate 替换文本中的 {{key}} 占位符。
// 未知的键原样保留，已替换的结果不再二次扫描。
func Interpolate(text string, vars map[string]Value) string {
	if text == "" || !strings.Contains(text, "{{") {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-2])
		if key == "" {
			return match
		}
		if strings.HasPrefix(key, "$") {
			if value, ok := dynamicValue(key); ok {
				return value
			}
			return match
		}
		if v, ok := vars[key]; ok {
			return v.Value
		}
		return match
	})
}

// InterpolateMap 对 map 的所有值做插值，键保持不变
func InterpolateMap(m map[string]string, vars map[string]Value) map[string]string {
	if len(m) == 0 {
		return m
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = Interpolate(v, vars)
	}
	return out
}

// dynamicValue 生成动态变量值。
// 先算出基值，偏移只对能按整数解析的基值生效，非数值基值原样返回。
func dynamicValue(expr string) (string, bool) {
	groups := dynamicPattern.FindStringSubmatch(expr)
	if groups == nil {
		return "", false
	}

	base, ok := dynamicBase(groups[1])
	if !ok {
		return "", false
	}
	if groups[3] == "" {
		return base, true
	}

	n, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		return base, true
	}
	offset, err := strconv.ParseInt(groups[3], 10, 64)
	if err != nil {
		return base, true
	}
	if groups[2] == "-" {
		offset = -offset
	}
	return strconv.FormatInt(n+offset, 10), true
}

// dynamicBase 各动态变量的基值
func dynamicBase(name string) (string, bool) {
	switch name {
	case "$timestamp":
		return strconv.FormatInt(time.Now().Unix(), 10), true
	case "$timestampMs":
		return strconv.FormatInt(time.Now().UnixMilli(), 10), true
	case "$isoTimestamp":
		return time.Now().UTC().Format(time.RFC3339), true
	case "$randomUUID", "$guid":
		return uuid.NewString(), true
	case "$randomInt":
		return strconv.Itoa(utils.RandomInt(0, 1000)), true
	case "$randomString":
		return utils.RandomString(10), true
	}
	return "", false
}

// MissingKeys 返回文本中无法解析的普通占位符键，用于执行前校验提示
func MissingKeys(text string, vars map[string]Value) []string {
	var missing []string
	seen := make(map[string]struct{})
	for _, groups := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		key := strings.TrimSpace(groups[1])
		if key == "" || strings.HasPrefix(key, "$") {
			continue
		}
		if _, ok := vars[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		missing = append(missing, key)
	}
	return missing
}

// FormatValue 用于展示变量值，敏感值打码
func FormatValue(v Value) string {
	if v.IsSecret {
		return utils.MaskSecret(v.Value)
	}
	return v.Value
}
