// Package agent implements the server side of the remote agent relay:
// agents hold a persistent WebSocket connection and execute requests
// from inside their own network.
package agent

import (
	"encoding/json"

	"feiyu/internal/dispatch"
)

// MessageType identifies a relay frame.
type MessageType string

const (
	MsgRegistered      MessageType = "registered"
	MsgExecuteRequest  MessageType = "execute-request"
	MsgRequestResponse MessageType = "request-response"
	MsgError           MessageType = "error"
	MsgHeartbeat       MessageType = "heartbeat"
)

// Close codes for authentication failures. Clients treat both as
// terminal and must not reconnect automatically.
const (
	CloseMissingToken = 4001
	CloseInvalidToken = 4002
)

// Message is the flat frame for all relay traffic. Which fields are
// set depends on the type: registered carries agentId, execute-request
// and request-response carry requestId plus payload, error carries
// requestId plus error. heartbeat has no extra fields.
type Message struct {
	Type      MessageType     `json:"type"`
	AgentID   string          `json:"agentId,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// ExecResult is the request-response payload on the wire. Field names
// are part of the protocol; time and size map to the engine's
// durationMs and sizeBytes.
type ExecResult struct {
	Status       int               `json:"status"`
	StatusText   string            `json:"statusText"`
	Headers      map[string]string `json:"headers"`
	Body         string            `json:"body"`
	BodyEncoding string            `json:"bodyEncoding,omitempty"`
	Time         int64             `json:"time"`
	Size         int64             `json:"size"`
}

// ToResponse converts a wire result back to an engine response.
func (r *ExecResult) ToResponse() *dispatch.Response {
	return &dispatch.Response{
		Status:       r.Status,
		StatusText:   r.StatusText,
		Headers:      r.Headers,
		Body:         r.Body,
		BodyEncoding: r.BodyEncoding,
		DurationMs:   r.Time,
		SizeBytes:    r.Size,
	}
}

// ResultFromResponse converts an engine response to its wire shape.
func ResultFromResponse(resp *dispatch.Response) *ExecResult {
	return &ExecResult{
		Status:       resp.Status,
		StatusText:   resp.StatusText,
		Headers:      resp.Headers,
		Body:         resp.Body,
		BodyEncoding: resp.BodyEncoding,
		Time:         resp.DurationMs,
		Size:         resp.SizeBytes,
	}
}

// Info describes a connected agent for listing APIs.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	UserID      int64  `json:"userId"`
	ConnectedAt int64  `json:"connectedAt"` // Unix milliseconds
}
