package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/nog/internal/window"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload         CommandType = "RELOAD"
	CommandGetStatus      CommandType = "GET_STATUS"
	CommandListCallbacks  CommandType = "LIST_CALLBACKS"
	CommandInvokeCallback CommandType = "INVOKE_CALLBACK"
	CommandEval           CommandType = "EVAL"
	CommandListWindows    CommandType = "LIST_WINDOWS"
	CommandShutdown       CommandType = "SHUTDOWN"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	ConfigPath      string `json:"config_path"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	Setup           bool   `json:"setup"`
	Callbacks       int    `json:"callbacks"`
	Bindings        int    `json:"bindings"`
	Windows         int    `json:"windows"`
	Reloads         int    `json:"reloads"`
	LastReloadError string `json:"last_reload_error,omitempty"`
	DaemonRunning   bool   `json:"daemon_running"`
}

type BindingInfo struct {
	Keys       string `json:"keys"`
	CallbackID int    `json:"callback_id"`
}

// CallbacksData represents the data returned by LIST_CALLBACKS
type CallbacksData struct {
	Callbacks []int         `json:"callbacks"`
	Bindings  []BindingInfo `json:"bindings"`
}

type InvokeCallbackPayload struct {
	ID int `json:"id"`
}

type EvalPayload struct {
	Name   string `json:"name,omitempty"`
	Source string `json:"source"`
}

// EvalData carries the flattened script error of an EVAL. An empty Error
// means the chunk ran to completion.
type EvalData struct {
	Error string `json:"error,omitempty"`
}

type WindowInfo struct {
	ID     uint32 `json:"id"`
	Name   string `json:"name"`
	Style  string `json:"style"`
	Left   int    `json:"left"`
	Top    int    `json:"top"`
	Right  int    `json:"right"`
	Bottom int    `json:"bottom"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []WindowInfo `json:"windows"`
}

func windowInfoFromSnapshot(s window.Snapshot) WindowInfo {
	return WindowInfo{
		ID:     uint32(s.ID),
		Name:   s.Name,
		Style:  s.OriginalStyle.String(),
		Left:   s.OriginalRect.Left,
		Top:    s.OriginalRect.Top,
		Right:  s.OriginalRect.Right,
		Bottom: s.OriginalRect.Bottom,
	}
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
