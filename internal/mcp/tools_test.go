package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/1broseidon/nog/internal/ipc"
)

type fakeClient struct {
	reloads  int
	invoked  []int
	evals    []ipc.EvalPayload
	evalErr  string
	windows  []ipc.WindowInfo
	status   ipc.StatusData
	failWith error
}

func (f *fakeClient) Reload() error {
	if f.failWith != nil {
		return f.failWith
	}
	f.reloads++
	return nil
}

func (f *fakeClient) GetStatus() (*ipc.StatusData, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	s := f.status
	return &s, nil
}

func (f *fakeClient) ListCallbacks() (*ipc.CallbacksData, error) {
	return &ipc.CallbacksData{
		Callbacks: []int{1, 2},
		Bindings:  []ipc.BindingInfo{{Keys: "Mod4-Return", CallbackID: 2}},
	}, nil
}

func (f *fakeClient) InvokeCallback(id int) error {
	f.invoked = append(f.invoked, id)
	return nil
}

func (f *fakeClient) Eval(name, source string) (*ipc.EvalData, error) {
	f.evals = append(f.evals, ipc.EvalPayload{Name: name, Source: source})
	return &ipc.EvalData{Error: f.evalErr}, nil
}

func (f *fakeClient) ListWindows() (*ipc.WindowsData, error) {
	return &ipc.WindowsData{Windows: f.windows}, nil
}

func TestNewServer_RegistersTools(t *testing.T) {
	s := NewServer(&fakeClient{})
	if s.mcpServer == nil {
		t.Fatal("mcp server not created")
	}
}

func TestHandleReloadConfig(t *testing.T) {
	fc := &fakeClient{}
	s := NewServer(fc)

	_, out, err := s.handleReloadConfig(context.Background(), nil, ReloadConfigInput{})
	if err != nil {
		t.Fatalf("handleReloadConfig: %v", err)
	}
	if !out.Queued || fc.reloads != 1 {
		t.Fatalf("out=%+v reloads=%d", out, fc.reloads)
	}

	fc.failWith = errors.New("failed to connect to daemon")
	if _, _, err := s.handleReloadConfig(context.Background(), nil, ReloadConfigInput{}); err == nil || !strings.Contains(err.Error(), "reload failed") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestHandleGetStatus(t *testing.T) {
	fc := &fakeClient{status: ipc.StatusData{ConfigPath: "/home/u/.config/nog/config.nog", Callbacks: 3, DaemonRunning: true}}
	s := NewServer(fc)

	_, out, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{})
	if err != nil {
		t.Fatalf("handleGetStatus: %v", err)
	}
	if out.Callbacks != 3 || !out.DaemonRunning {
		t.Fatalf("unexpected status %+v", out)
	}
}

func TestHandleListCallbacks(t *testing.T) {
	s := NewServer(&fakeClient{})

	_, out, err := s.handleListCallbacks(context.Background(), nil, ListCallbacksInput{})
	if err != nil {
		t.Fatalf("handleListCallbacks: %v", err)
	}
	if len(out.Callbacks) != 2 || out.Bindings[0].CallbackID != 2 {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestHandleInvokeCallback(t *testing.T) {
	fc := &fakeClient{}
	s := NewServer(fc)

	_, out, err := s.handleInvokeCallback(context.Background(), nil, InvokeCallbackInput{ID: 4})
	if err != nil {
		t.Fatalf("handleInvokeCallback: %v", err)
	}
	if !out.Queued || out.ID != 4 || len(fc.invoked) != 1 || fc.invoked[0] != 4 {
		t.Fatalf("out=%+v invoked=%v", out, fc.invoked)
	}

	if _, _, err := s.handleInvokeCallback(context.Background(), nil, InvokeCallbackInput{ID: 0}); err == nil {
		t.Fatal("expected error for id 0")
	}
	if len(fc.invoked) != 1 {
		t.Fatalf("invalid id reached the daemon: %v", fc.invoked)
	}
}

func TestHandleEvalLua(t *testing.T) {
	fc := &fakeClient{}
	s := NewServer(fc)

	_, out, err := s.handleEvalLua(context.Background(), nil, EvalLuaInput{Source: "x = 1"})
	if err != nil {
		t.Fatalf("handleEvalLua: %v", err)
	}
	if !out.OK || fc.evals[0].Name != "mcp" {
		t.Fatalf("out=%+v evals=%+v", out, fc.evals)
	}

	fc.evalErr = "mcp:1: boom \nstack traceback:"
	_, out, err = s.handleEvalLua(context.Background(), nil, EvalLuaInput{Source: "error('boom')", Name: "probe"})
	if err != nil {
		t.Fatalf("handleEvalLua: %v", err)
	}
	if out.OK || !strings.Contains(out.Error, "boom") || fc.evals[1].Name != "probe" {
		t.Fatalf("out=%+v evals=%+v", out, fc.evals)
	}
}

func TestHandleListWindows(t *testing.T) {
	s := NewServer(&fakeClient{})
	_, out, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("handleListWindows: %v", err)
	}
	if out.Windows == nil || len(out.Windows) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", out.Windows)
	}

	s = NewServer(&fakeClient{windows: []ipc.WindowInfo{{ID: 9, Name: "xterm"}}})
	_, out, err = s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("handleListWindows: %v", err)
	}
	if len(out.Windows) != 1 || out.Windows[0].Name != "xterm" {
		t.Fatalf("unexpected windows %+v", out.Windows)
	}
}
