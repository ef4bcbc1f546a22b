package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feiyu/internal/dispatch"
	"feiyu/internal/utils"
)

func noVerify(context.Context, string) (int64, error) { return 1, nil }

func fakeConn(id string, userID int64) *Conn {
	return &Conn{
		id:          id,
		name:        "test-agent",
		userID:      userID,
		connectedAt: time.Now(),
		send:        make(chan []byte, 16),
		done:        make(chan struct{}),
	}
}

func TestListFiltersByUser(t *testing.T) {
	hub := NewHub(noVerify, 0, 0)
	hub.register(fakeConn("a1", 1))
	hub.register(fakeConn("a2", 2))

	infos := hub.List(1)
	require.Len(t, infos, 1)
	assert.Equal(t, "a1", infos[0].ID)
	assert.Equal(t, "test-agent", infos[0].Name)
	assert.Equal(t, int64(1), infos[0].UserID)

	assert.Empty(t, hub.List(3))
}

func TestHasAndOwner(t *testing.T) {
	hub := NewHub(noVerify, 0, 0)
	hub.register(fakeConn("a1", 7))

	assert.True(t, hub.Has("a1"))
	assert.False(t, hub.Has("a2"))

	owner, ok := hub.Owner("a1")
	require.True(t, ok)
	assert.Equal(t, int64(7), owner)

	_, ok = hub.Owner("a2")
	assert.False(t, ok)
}

func TestDispatchAgentNotConnected(t *testing.T) {
	hub := NewHub(noVerify, 0, 0)
	_, err := hub.Dispatch(t.Context(), "missing", &dispatch.Payload{Method: "GET", URL: "http://x"})
	assert.Error(t, err)
}

func TestDispatchCorrelatesResponse(t *testing.T) {
	hub := NewHub(noVerify, time.Second, 0)
	conn := fakeConn("a1", 1)
	hub.register(conn)

	// 模拟执行器收到帧后按线上格式回应
	go func() {
		raw := <-conn.send
		var msg Message
		if err := utils.Unmarshal(raw, &msg); err != nil {
			return
		}
		assert.Equal(t, MsgExecuteRequest, msg.Type)
		assert.NotEmpty(t, msg.RequestID)

		var payload dispatch.Payload
		if err := utils.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		// 代理配置不下发给执行器
		assert.Empty(t, payload.Proxy)

		hub.handleMessage(&Message{
			Type:      MsgRequestResponse,
			RequestID: msg.RequestID,
			Payload:   mustMarshal(t, &ExecResult{Status: 200, StatusText: "OK", Time: 12, Size: 4}),
		})
	}()

	resp, err := hub.Dispatch(t.Context(), "a1", &dispatch.Payload{
		Method:  "GET",
		URL:     "http://internal.example.com",
		Proxy:   "http://proxy.example.com:8080",
		Timeout: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, int64(12), resp.DurationMs)
	assert.Equal(t, int64(4), resp.SizeBytes)

	// 挂起表已清理
	hub.mu.RLock()
	assert.Empty(t, hub.pending)
	hub.mu.RUnlock()
}

func TestDispatchErrorFrame(t *testing.T) {
	hub := NewHub(noVerify, time.Second, 0)
	conn := fakeConn("a1", 1)
	hub.register(conn)

	go func() {
		raw := <-conn.send
		var msg Message
		if err := utils.Unmarshal(raw, &msg); err != nil {
			return
		}
		hub.handleMessage(&Message{Type: MsgError, RequestID: msg.RequestID, Error: "connection refused"})
	}()

	resp, err := hub.Dispatch(t.Context(), "a1", &dispatch.Payload{Method: "GET", URL: "http://x", Timeout: 5000})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Status)
	assert.Equal(t, "connection refused", resp.Error)
}

func TestDispatchTimeout(t *testing.T) {
	hub := NewHub(noVerify, 50*time.Millisecond, 0)
	hub.register(fakeConn("a1", 1))

	start := time.Now()
	_, err := hub.Dispatch(t.Context(), "a1", &dispatch.Payload{Method: "GET", URL: "http://x"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	hub.mu.RLock()
	assert.Empty(t, hub.pending)
	hub.mu.RUnlock()
}

func TestDispatchContextCancelled(t *testing.T) {
	hub := NewHub(noVerify, time.Minute, 0)
	hub.register(fakeConn("a1", 1))

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := hub.Dispatch(ctx, "a1", &dispatch.Payload{Method: "GET", URL: "http://x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSettleExactlyOnce(t *testing.T) {
	hub := NewHub(noVerify, 0, 0)
	call := &pendingCall{agentID: "a1", ch: make(chan *dispatch.Response, 1)}
	hub.pending["r1"] = call

	hub.settle("r1", &dispatch.Response{Status: 200})
	// 迟到的重复响应被丢弃，不会阻塞也不会覆盖
	hub.settle("r1", &dispatch.Response{Status: 500})

	resp := <-call.ch
	assert.Equal(t, 200, resp.Status)
	select {
	case <-call.ch:
		t.Fatal("重复响应不应投递")
	default:
	}
}

func TestSettleUnknownRequest(t *testing.T) {
	hub := NewHub(noVerify, 0, 0)
	// 未知请求号直接丢弃
	hub.settle("nope", &dispatch.Response{Status: 200})
	assert.Empty(t, hub.pending)
}

func TestFailAgentPending(t *testing.T) {
	hub := NewHub(noVerify, 0, 0)
	mine := &pendingCall{agentID: "a1", ch: make(chan *dispatch.Response, 1)}
	other := &pendingCall{agentID: "a2", ch: make(chan *dispatch.Response, 1)}
	hub.pending["r1"] = mine
	hub.pending["r2"] = other

	hub.failAgentPending("a1")

	resp := <-mine.ch
	assert.Equal(t, 0, resp.Status)
	assert.NotEmpty(t, resp.Error)

	// 其他执行器的挂起请求不受影响
	require.Len(t, hub.pending, 1)
	select {
	case <-other.ch:
		t.Fatal("其他执行器的请求不应被结算")
	default:
	}
}

func TestUnregisterFailsPending(t *testing.T) {
	hub := NewHub(noVerify, 0, 0)
	conn := fakeConn("a1", 1)
	hub.register(conn)
	call := &pendingCall{agentID: "a1", ch: make(chan *dispatch.Response, 1)}
	hub.pending["r1"] = call

	hub.unregister("a1")

	assert.False(t, hub.Has("a1"))
	resp := <-call.ch
	assert.Equal(t, "Error", resp.StatusText)
}

// 执行帧是平铺结构，requestId 和 payload 都在顶层
func TestExecuteRequestFrameShape(t *testing.T) {
	raw, err := encodeExecuteRequest("r1", &dispatch.Payload{Method: "GET", URL: "http://x", Timeout: 100})
	require.NoError(t, err)

	var msg Message
	require.NoError(t, utils.Unmarshal(raw, &msg))
	assert.Equal(t, MsgExecuteRequest, msg.Type)
	assert.Equal(t, "r1", msg.RequestID)

	var payload dispatch.Payload
	require.NoError(t, utils.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "GET", payload.Method)
	assert.Equal(t, "http://x", payload.URL)
	assert.Equal(t, 100, payload.Timeout)
}

// 响应载荷的 time/size 命名属于协议，与引擎字段互转无损
func TestExecResultConversion(t *testing.T) {
	resp := &dispatch.Response{
		Status:       201,
		StatusText:   "Created",
		Headers:      map[string]string{"X": "1"},
		Body:         "body",
		BodyEncoding: dispatch.EncodingBase64,
		DurationMs:   7,
		SizeBytes:    4,
	}

	raw, err := utils.Marshal(ResultFromResponse(resp))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"time":7`)
	assert.Contains(t, string(raw), `"size":4`)

	var wire ExecResult
	require.NoError(t, utils.Unmarshal(raw, &wire))
	assert.Equal(t, resp, wire.ToResponse())
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := utils.Marshal(v)
	require.NoError(t, err)
	return data
}
