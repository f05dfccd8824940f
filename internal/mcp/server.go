// Package mcp exposes the running daemon to MCP clients over stdio. Every
// tool forwards to the daemon's IPC socket.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/nog/internal/ipc"
)

const (
	ServerName    = "nog"
	ServerVersion = "0.1.0"
)

// DaemonClient is the subset of ipc.Client the tools use.
type DaemonClient interface {
	Reload() error
	GetStatus() (*ipc.StatusData, error)
	ListCallbacks() (*ipc.CallbacksData, error)
	InvokeCallback(id int) error
	Eval(name, source string) (*ipc.EvalData, error)
	ListWindows() (*ipc.WindowsData, error)
}

var _ DaemonClient = (*ipc.Client)(nil)

// Server is the MCP server for the nog daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	client    DaemonClient
}

// NewServer creates an MCP server talking to the daemon through client.
// A nil client uses the default IPC socket.
func NewServer(client DaemonClient) *Server {
	if client == nil {
		client = ipc.NewClient()
	}

	s := &Server{client: client}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Ask the nog daemon to re-execute its Lua configuration. Callbacks and keybindings from the previous run are discarded; if the script fails the previous ones are kept. The reload is queued and runs after earlier events.",
	}, s.handleReloadConfig)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report daemon status: configuration path, uptime, whether one-time setup has run, callback, keybinding and managed window counts, and the last reload error if any.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_callbacks",
		Description: "List registered callback identities and the keybindings that point at them.",
	}, s.handleListCallbacks)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "invoke_callback",
		Description: "Queue a call to the callback registered under the given identity. Identities are only valid until the next reload.",
	}, s.handleInvokeCallback)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "eval_lua",
		Description: "Run a Lua chunk in the daemon's live interpreter. Script errors are returned in the error field together with a traceback.",
	}, s.handleEvalLua)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List managed windows with the style and rectangle they had when nog first managed them.",
	}, s.handleListWindows)
}
