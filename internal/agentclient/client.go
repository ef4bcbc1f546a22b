// Package agentclient implements the agent process: it keeps a
// WebSocket connection to the server and executes relayed requests
// from inside its own network.
package agentclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"feiyu/internal/agent"
	"feiyu/internal/dispatch"
	"feiyu/internal/logger"
	"feiyu/internal/utils"
)

// Version of the agent process.
const Version = "1.0.0"

const defaultReconnectInterval = 5 * time.Second

// heartbeatInterval is fixed by the protocol.
const heartbeatInterval = 30 * time.Second

// Config holds agent connection settings.
type Config struct {
	ServerURL         string
	Token             string
	Name              string
	Insecure          bool // skip TLS verification for the server connection
	NoReconnect       bool
	ReconnectInterval time.Duration
}

// Client is a relay agent.
type Client struct {
	config   Config
	executor *Executor

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	agentID   string
}

// New creates an agent client.
func New(config Config) *Client {
	if config.ReconnectInterval <= 0 {
		config.ReconnectInterval = defaultReconnectInterval
	}
	if config.Name == "" {
		config.Name = "agent"
	}
	return &Client{
		config:   config,
		executor: NewExecutor(config.Insecure),
	}
}

// Run connects and serves until the context is cancelled or the server
// rejects the token. Auth close codes are terminal; any other
// disconnect triggers a reconnect after a fixed delay.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.connectAndServe(ctx)
		if err == nil {
			return nil
		}
		if isTerminal(err) {
			return err
		}
		if c.config.NoReconnect {
			return err
		}

		logger.Warn("agent: connection lost, reconnecting",
			zap.Error(err),
			zap.Duration("delay", c.config.ReconnectInterval))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.config.ReconnectInterval):
		}
	}
}

func (c *Client) connectAndServe(ctx context.Context) error {
	wsURL, err := c.buildURL()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: c.config.Insecure},
	}
	ws, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.conn = ws
	c.send = make(chan []byte, 256)
	c.done = make(chan struct{})
	c.closeOnce = sync.Once{}
	defer c.disconnect()

	// The first frame the server sends is registered with our id.
	var first agent.Message
	if err := c.conn.ReadJSON(&first); err != nil {
		return fmt.Errorf("read registered frame failed: %w", err)
	}
	if first.Type != agent.MsgRegistered || first.AgentID == "" {
		return fmt.Errorf("unexpected first frame: %s", first.Type)
	}
	c.agentID = first.AgentID

	logger.Info("agent: registered",
		zap.String("agentId", c.agentID),
		zap.String("server", c.config.ServerURL))

	go c.writePump()
	go c.heartbeatPump(ctx)

	return c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) error {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg agent.Message
		if err := utils.Unmarshal(raw, &msg); err != nil {
			continue
		}

		if msg.Type == agent.MsgExecuteRequest && msg.RequestID != "" {
			var payload dispatch.Payload
			if err := utils.Unmarshal(msg.Payload, &payload); err != nil {
				c.sendError(msg.RequestID, "parse execute payload failed: "+err.Error())
				continue
			}
			go c.execute(ctx, msg.RequestID, &payload)
		}
	}
}

// execute runs one relayed request and sends the result back.
func (c *Client) execute(ctx context.Context, requestID string, payload *dispatch.Payload) {
	resp := c.executor.Execute(ctx, payload)

	data, err := utils.Marshal(agent.ResultFromResponse(resp))
	if err != nil {
		c.sendError(requestID, err.Error())
		return
	}
	msg, err := utils.Marshal(&agent.Message{
		Type:      agent.MsgRequestResponse,
		RequestID: requestID,
		Payload:   data,
	})
	if err != nil {
		c.sendError(requestID, err.Error())
		return
	}
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

func (c *Client) sendError(requestID, reason string) {
	msg, err := utils.Marshal(&agent.Message{
		Type:      agent.MsgError,
		RequestID: requestID,
		Error:     reason,
	})
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

func (c *Client) writePump() {
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) heartbeatPump(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if msg, err := utils.Marshal(&agent.Message{Type: agent.MsgHeartbeat}); err == nil {
				select {
				case c.send <- msg:
				default:
				}
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) disconnect() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) buildURL() (string, error) {
	base := toWebSocketURL(c.config.ServerURL)
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/agent/ws"
	q := u.Query()
	q.Set("token", c.config.Token)
	q.Set("name", c.config.Name)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// isTerminal reports whether the server closed the connection with an
// auth failure code.
func isTerminal(err error) bool {
	return websocket.IsCloseError(err, agent.CloseMissingToken, agent.CloseInvalidToken)
}

// toWebSocketURL converts an HTTP(s) URL or bare host:port to a ws:// URL.
func toWebSocketURL(raw string) string {
	if strings.HasPrefix(raw, "https://") {
		return "wss://" + strings.TrimPrefix(raw, "https://")
	}
	if strings.HasPrefix(raw, "http://") {
		return "ws://" + strings.TrimPrefix(raw, "http://")
	}
	if strings.HasPrefix(raw, "ws://") || strings.HasPrefix(raw, "wss://") {
		return raw
	}
	return "ws://" + raw
}
