package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	fiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"feiyu/internal/dispatch"
	"feiyu/internal/logger"
	"feiyu/internal/utils"
)

// Extra wait on top of the request's own timeout so the agent side can
// report a timeout itself before the server gives up.
const defaultTimeoutBuffer = 5 * time.Second

const defaultHeartbeatInterval = 30 * time.Second

// Conn wraps a single agent WebSocket connection.
type Conn struct {
	id          string
	name        string
	userID      int64
	connectedAt time.Time
	conn        *fiberws.Conn
	send        chan []byte
	done        chan struct{}
	once        sync.Once
}

func (c *Conn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// pendingCall tracks one in-flight relayed request.
type pendingCall struct {
	agentID string
	ch      chan *dispatch.Response
}

// TokenVerifier validates the agent's auth token and returns the user ID.
type TokenVerifier func(ctx context.Context, token string) (int64, error)

// Hub manages agent connections and correlates relayed responses back
// to their callers.
type Hub struct {
	agents  map[string]*Conn
	pending map[string]*pendingCall
	mu      sync.RWMutex

	verify            TokenVerifier
	timeoutBuffer     time.Duration
	heartbeatInterval time.Duration
}

// NewHub creates a hub. timeoutBuffer and heartbeatInterval fall back to
// defaults when zero.
func NewHub(verify TokenVerifier, timeoutBuffer, heartbeatInterval time.Duration) *Hub {
	if timeoutBuffer <= 0 {
		timeoutBuffer = defaultTimeoutBuffer
	}
	if heartbeatInterval <= 0 {
		heartbeatInterval = defaultHeartbeatInterval
	}
	return &Hub{
		agents:            make(map[string]*Conn),
		pending:           make(map[string]*pendingCall),
		verify:            verify,
		timeoutBuffer:     timeoutBuffer,
		heartbeatInterval: heartbeatInterval,
	}
}

// List returns all connected agents visible to the given user.
func (h *Hub) List(userID int64) []Info {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Info, 0, len(h.agents))
	for _, a := range h.agents {
		if a.userID != userID {
			continue
		}
		out = append(out, Info{
			ID:          a.id,
			Name:        a.name,
			UserID:      a.userID,
			ConnectedAt: a.connectedAt.UnixMilli(),
		})
	}
	return out
}

// Has reports whether the agent is currently connected.
func (h *Hub) Has(agentID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.agents[agentID]
	return ok
}

// Owner returns the user that registered the agent.
func (h *Hub) Owner(agentID string) (int64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.agents[agentID]
	if !ok {
		return 0, false
	}
	return conn.userID, true
}

// Dispatch relays a request to the agent and waits for the correlated
// response. The wait window is the request timeout plus a fixed buffer
// so the agent's own timeout verdict wins when both fire.
func (h *Hub) Dispatch(ctx context.Context, agentID string, payload *dispatch.Payload) (*dispatch.Response, error) {
	h.mu.RLock()
	conn, ok := h.agents[agentID]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("执行器 %s 未连接", agentID)
	}

	// proxy settings stay server-side
	relayed := *payload
	relayed.Proxy = ""

	requestID := uuid.NewString()
	call := &pendingCall{agentID: agentID, ch: make(chan *dispatch.Response, 1)}
	h.mu.Lock()
	h.pending[requestID] = call
	h.mu.Unlock()

	msg, err := encodeExecuteRequest(requestID, &relayed)
	if err != nil {
		h.removePending(requestID)
		return nil, err
	}

	select {
	case conn.send <- msg:
	default:
		h.removePending(requestID)
		return nil, fmt.Errorf("执行器 %s 发送缓冲区已满", agentID)
	}

	wait := h.timeoutBuffer
	if payload.Timeout > 0 {
		wait += time.Duration(payload.Timeout) * time.Millisecond
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case resp := <-call.ch:
		return resp, nil
	case <-timer.C:
		h.removePending(requestID)
		return nil, fmt.Errorf("等待执行器响应超时")
	case <-ctx.Done():
		h.removePending(requestID)
		return nil, ctx.Err()
	}
}

// settle delivers a response exactly once. Late or duplicate responses
// for an already settled request are dropped.
func (h *Hub) settle(requestID string, resp *dispatch.Response) {
	h.mu.Lock()
	call, ok := h.pending[requestID]
	if ok {
		delete(h.pending, requestID)
	}
	h.mu.Unlock()
	if ok {
		call.ch <- resp
	}
}

func (h *Hub) removePending(requestID string) {
	h.mu.Lock()
	delete(h.pending, requestID)
	h.mu.Unlock()
}

// failAgentPending settles every in-flight request of a disconnected
// agent so callers do not wait out the full timeout window.
func (h *Hub) failAgentPending(agentID string) {
	h.mu.Lock()
	var calls []*pendingCall
	for id, call := range h.pending {
		if call.agentID == agentID {
			delete(h.pending, id)
			calls = append(calls, call)
		}
	}
	h.mu.Unlock()
	for _, call := range calls {
		call.ch <- &dispatch.Response{Status: 0, StatusText: "Error", Error: "执行器连接已断开"}
	}
}

func (h *Hub) register(conn *Conn) {
	h.mu.Lock()
	if old, ok := h.agents[conn.id]; ok {
		old.close()
	}
	h.agents[conn.id] = conn
	h.mu.Unlock()
}

func (h *Hub) unregister(agentID string) {
	h.mu.Lock()
	delete(h.agents, agentID)
	h.mu.Unlock()
	h.failAgentPending(agentID)
}

// HandleConnection authenticates and serves a newly upgraded agent
// connection. Token and display name both arrive as query parameters;
// the server assigns the id and announces it in a registered frame, so
// no client handshake message is needed. Blocks until the connection
// closes.
func (h *Hub) HandleConnection(c *fiberws.Conn) {
	token := c.Query("token")
	if token == "" {
		closeWith(c, CloseMissingToken, "missing token")
		return
	}
	userID, err := h.verify(context.Background(), token)
	if err != nil {
		closeWith(c, CloseInvalidToken, "invalid token")
		return
	}

	name := c.Query("name")
	if name == "" {
		name = "agent"
	}

	conn := &Conn{
		id:          uuid.NewString(),
		name:        name,
		userID:      userID,
		connectedAt: time.Now(),
		conn:        c,
		send:        make(chan []byte, 256),
		done:        make(chan struct{}),
	}

	ack, err := utils.Marshal(&Message{Type: MsgRegistered, AgentID: conn.id})
	if err != nil {
		return
	}
	if err := c.WriteMessage(fiberws.TextMessage, ack); err != nil {
		return
	}

	h.register(conn)
	defer func() {
		h.unregister(conn.id)
		conn.close()
	}()

	logger.Info("agent ws: connected",
		zap.String("agentId", conn.id),
		zap.String("name", conn.name),
		zap.Int64("userId", userID))

	go h.writePump(conn)
	h.readPump(conn)

	logger.Info("agent ws: disconnected", zap.String("agentId", conn.id))
}

func (h *Hub) readPump(conn *Conn) {
	// Missing two heartbeat windows drops the connection.
	deadline := 2 * h.heartbeatInterval
	_ = conn.conn.SetReadDeadline(time.Now().Add(deadline))

	for {
		_, raw, err := conn.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.conn.SetReadDeadline(time.Now().Add(deadline))

		var msg Message
		if err := utils.Unmarshal(raw, &msg); err != nil {
			logger.Warn("agent ws: invalid message", zap.String("agentId", conn.id), zap.Error(err))
			continue
		}
		h.handleMessage(&msg)
	}
}

func (h *Hub) handleMessage(msg *Message) {
	switch msg.Type {
	case MsgRequestResponse:
		if msg.RequestID == "" {
			return
		}
		var result ExecResult
		if err := utils.Unmarshal(msg.Payload, &result); err != nil {
			return
		}
		h.settle(msg.RequestID, result.ToResponse())

	case MsgError:
		if msg.RequestID == "" {
			return
		}
		reason := msg.Error
		if reason == "" {
			reason = "执行器报告了未知错误"
		}
		h.settle(msg.RequestID, &dispatch.Response{
			Status:     0,
			StatusText: "Error",
			Error:      reason,
		})

	case MsgHeartbeat:
		// read deadline refresh is the only effect
	}
}

func (h *Hub) writePump(conn *Conn) {
	for {
		select {
		case data, ok := <-conn.send:
			if !ok {
				return
			}
			if err := conn.conn.WriteMessage(fiberws.TextMessage, data); err != nil {
				return
			}
		case <-conn.done:
			return
		}
	}
}

func closeWith(c *fiberws.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = c.WriteControl(fiberws.CloseMessage, fiberws.FormatCloseMessage(code, reason), deadline)
	_ = c.Close()
}

func encodeExecuteRequest(requestID string, payload *dispatch.Payload) ([]byte, error) {
	data, err := utils.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return utils.Marshal(&Message{Type: MsgExecuteRequest, RequestID: requestID, Payload: data})
}
