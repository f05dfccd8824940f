package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/nog/internal/ipc"
)

func (s *Server) handleReloadConfig(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReloadConfigInput) (*mcpsdk.CallToolResult, ReloadConfigOutput, error) {
	if err := s.client.Reload(); err != nil {
		return nil, ReloadConfigOutput{}, fmt.Errorf("reload failed: %w", err)
	}
	return nil, ReloadConfigOutput{Queued: true}, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, ipc.StatusData, error) {
	status, err := s.client.GetStatus()
	if err != nil {
		return nil, ipc.StatusData{}, err
	}
	return nil, *status, nil
}

func (s *Server) handleListCallbacks(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListCallbacksInput) (*mcpsdk.CallToolResult, ipc.CallbacksData, error) {
	data, err := s.client.ListCallbacks()
	if err != nil {
		return nil, ipc.CallbacksData{}, err
	}
	return nil, *data, nil
}

func (s *Server) handleInvokeCallback(_ context.Context, _ *mcpsdk.CallToolRequest, args InvokeCallbackInput) (*mcpsdk.CallToolResult, InvokeCallbackOutput, error) {
	if args.ID <= 0 {
		return nil, InvokeCallbackOutput{}, fmt.Errorf("id must be >= 1, got %d", args.ID)
	}
	if err := s.client.InvokeCallback(args.ID); err != nil {
		return nil, InvokeCallbackOutput{ID: args.ID}, err
	}
	return nil, InvokeCallbackOutput{ID: args.ID, Queued: true}, nil
}

func (s *Server) handleEvalLua(_ context.Context, _ *mcpsdk.CallToolRequest, args EvalLuaInput) (*mcpsdk.CallToolResult, EvalLuaOutput, error) {
	name := args.Name
	if name == "" {
		name = "mcp"
	}
	data, err := s.client.Eval(name, args.Source)
	if err != nil {
		return nil, EvalLuaOutput{}, err
	}
	return nil, EvalLuaOutput{OK: data.Error == "", Error: data.Error}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	data, err := s.client.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	windows := data.Windows
	if windows == nil {
		windows = []ipc.WindowInfo{}
	}
	return nil, ListWindowsOutput{Windows: windows}, nil
}
