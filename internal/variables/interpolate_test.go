package variables

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"feiyu/internal/model"
)

func vars(kv map[string]string) map[string]Value {
	out := make(map[string]Value, len(kv))
	for k, v := range kv {
		out[k] = Value{Value: v, Source: SourceTeam}
	}
	return out
}

func TestInterpolate(t *testing.T) {
	vs := vars(map[string]string{
		"host":  "api.example.com",
		"token": "abc123",
		"empty": "",
	})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"普通替换", "https://{{host}}/users", "https://api.example.com/users"},
		{"多个占位符", "{{host}}/{{token}}", "api.example.com/abc123"},
		{"未知键原样保留", "{{unknown}}/x", "{{unknown}}/x"},
		{"空键原样保留", "{{}}", "{{}}"},
		{"空值替换为空", "a{{empty}}b", "ab"},
		{"无占位符", "plain text", "plain text"},
		{"前后空白修剪", "{{ host }}", "api.example.com"},
		{"单层花括号不处理", "{host}", "{host}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpolate(tt.in, vs))
		})
	}
}

func TestInterpolateNonGreedy(t *testing.T) {
	vs := vars(map[string]string{"a": "1", "b": "2"})
	// 相邻占位符各自独立匹配
	assert.Equal(t, "12", Interpolate("{{a}}{{b}}", vs))
	assert.Equal(t, "1-2", Interpolate("{{a}}-{{b}}", vs))
}

func TestInterpolateNotRescanned(t *testing.T) {
	// 替换结果中出现的占位符语法不再二次展开
	vs := vars(map[string]string{"a": "{{b}}", "b": "leak"})
	assert.Equal(t, "{{b}}", Interpolate("{{a}}", vs))
}

func TestDynamicTimestamp(t *testing.T) {
	before := time.Now().Unix()
	got := Interpolate("{{$timestamp}}", nil)
	after := time.Now().Unix()

	n, err := strconv.ParseInt(got, 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, before)
	assert.LessOrEqual(t, n, after)
}

func TestDynamicTimestampOffset(t *testing.T) {
	base := time.Now().Unix()
	plus := Interpolate("{{$timestamp + 3600}}", nil)
	minus := Interpolate("{{$timestamp - 3600}}", nil)

	p, err := strconv.ParseInt(plus, 10, 64)
	require.NoError(t, err)
	m, err := strconv.ParseInt(minus, 10, 64)
	require.NoError(t, err)

	assert.InDelta(t, base+3600, p, 5)
	assert.InDelta(t, base-3600, m, 5)
}

func TestDynamicUUID(t *testing.T) {
	a := Interpolate("{{$randomUUID}}", nil)
	b := Interpolate("{{$guid}}", nil)
	assert.Len(t, a, 36)
	assert.Len(t, b, 36)
	assert.NotEqual(t, a, b)
}

func TestDynamicRandomInt(t *testing.T) {
	for i := 0; i < 50; i++ {
		got := Interpolate("{{$randomInt}}", nil)
		n, err := strconv.Atoi(got)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 0)
		assert.LessOrEqual(t, n, 1000)
	}
}

func TestDynamicISOTimestamp(t *testing.T) {
	got := Interpolate("{{$isoTimestamp}}", nil)
	_, err := time.Parse(time.RFC3339, got)
	assert.NoError(t, err)
}

// 偏移对任何数值基值生效，而不只是时间戳
func TestDynamicRandomIntOffset(t *testing.T) {
	for i := 0; i < 50; i++ {
		got := Interpolate("{{$randomInt + 2000}}", nil)
		n, err := strconv.Atoi(got)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 2000)
		assert.LessOrEqual(t, n, 3000)
	}
}

// 非数值基值忽略偏移，原样返回基值
func TestDynamicNonNumericOffsetIgnored(t *testing.T) {
	iso := Interpolate("{{$isoTimestamp + 86400}}", nil)
	parsed, err := time.Parse(time.RFC3339, iso)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Unix(), parsed.Unix(), 5)

	str := Interpolate("{{$randomString + 5}}", nil)
	assert.Len(t, str, 10)

	id := Interpolate("{{$randomUUID - 1}}", nil)
	assert.Len(t, id, 36)
}

func TestDynamicUnknown(t *testing.T) {
	assert.Equal(t, "{{$nope}}", Interpolate("{{$nope}}", nil))
}

// 属性：静态占位符插值是幂等的
func TestInterpolateIdempotent_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`[a-z][a-z0-9_]{0,15}`).Draw(t, "key")
		value := rapid.StringMatching(`[a-zA-Z0-9 .:/\-]{0,30}`).Draw(t, "value")
		prefix := rapid.StringMatching(`[a-zA-Z0-9 ]{0,10}`).Draw(t, "prefix")

		vs := vars(map[string]string{key: value})
		input := prefix + "{{" + key + "}}"

		once := Interpolate(input, vs)
		twice := Interpolate(once, vs)
		if once != twice {
			t.Fatalf("插值不幂等: %q -> %q -> %q", input, once, twice)
		}
	})
}

// 属性：未定义的普通键一定原样保留
func TestInterpolateUnknownKept_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`[a-z][a-z0-9_]{0,15}`).Draw(t, "key")
		input := "{{" + key + "}}"
		got := Interpolate(input, nil)
		if got != input {
			t.Fatalf("未知键被改写: %q -> %q", input, got)
		}
	})
}

func TestMissingKeys(t *testing.T) {
	vs := vars(map[string]string{"known": "x"})
	missing := MissingKeys("{{known}} {{a}} {{b}} {{a}} {{$timestamp}}", vs)
	assert.Equal(t, []string{"a", "b"}, missing)
}

func TestMerge(t *testing.T) {
	team := []model.VarItem{
		{Key: "host", Value: "team.example.com"},
		{Key: "secret", Value: "team-secret", IsSecret: true},
	}
	overrides := []model.LocalOverride{
		{Key: "host", Value: "local.example.com"},
		{Key: "extra", Value: "only-local"},
	}

	merged := Merge(team, overrides)
	require.Len(t, merged, 3)

	// 本地覆盖胜出
	assert.Equal(t, "local.example.com", merged["host"].Value)
	assert.Equal(t, SourceLocal, merged["host"].Source)

	// 仅团队存在
	assert.Equal(t, "team-secret", merged["secret"].Value)
	assert.Equal(t, SourceTeam, merged["secret"].Source)
	assert.True(t, merged["secret"].IsSecret)

	// 仅本地存在
	assert.Equal(t, "only-local", merged["extra"].Value)
	assert.Equal(t, SourceLocal, merged["extra"].Source)
}

// 覆盖团队敏感变量时，敏感标记沿用团队定义
func TestMergeSecretInherited(t *testing.T) {
	team := []model.VarItem{{Key: "apiKey", Value: "a", IsSecret: true}}
	overrides := []model.LocalOverride{{Key: "apiKey", Value: "b"}}

	merged := Merge(team, overrides)
	assert.True(t, merged["apiKey"].IsSecret)
	assert.Equal(t, "b", merged["apiKey"].Value)
}

func TestInterpolateMap(t *testing.T) {
	vs := vars(map[string]string{"v": "1"})
	in := map[string]string{"a": "{{v}}", "b": "static"}
	out := InterpolateMap(in, vs)
	assert.Equal(t, "1", out["a"])
	assert.Equal(t, "static", out["b"])
	// 输入不被修改
	assert.True(t, strings.Contains(in["a"], "{{"))
}
