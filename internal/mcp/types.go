package mcp

import "github.com/1broseidon/nog/internal/ipc"

// ReloadConfigInput is the input for the reload_config tool.
type ReloadConfigInput struct{}

// ReloadConfigOutput is the output for the reload_config tool.
type ReloadConfigOutput struct {
	Queued bool `json:"queued"`
}

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// ListCallbacksInput is the input for the list_callbacks tool.
type ListCallbacksInput struct{}

// InvokeCallbackInput is the input for the invoke_callback tool.
type InvokeCallbackInput struct {
	ID int `json:"id" jsonschema:"required,Callback identity as returned by nog.register or nog.bind (1-based)"`
}

// InvokeCallbackOutput is the output for the invoke_callback tool.
type InvokeCallbackOutput struct {
	ID     int  `json:"id"`
	Queued bool `json:"queued"`
}

// EvalLuaInput is the input for the eval_lua tool.
type EvalLuaInput struct {
	Source string `json:"source" jsonschema:"required,Lua chunk to run in the live interpreter"`
	Name   string `json:"name,omitempty" jsonschema:"Chunk name used in error messages (default: mcp)"`
}

// EvalLuaOutput is the output for the eval_lua tool.
type EvalLuaOutput struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []ipc.WindowInfo `json:"windows"`
}
