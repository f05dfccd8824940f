package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/nog/internal/ipc"
	"github.com/1broseidon/nog/internal/mcp"
)

func printMCPUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: nog mcp serve [--socket PATH]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Expose the running nog daemon to MCP clients on stdin/stdout.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Tools:")
	fmt.Fprintln(w, "  reload_config     queue a configuration reload")
	fmt.Fprintln(w, "  get_status        daemon status and last reload error")
	fmt.Fprintln(w, "  list_callbacks    callback ids and their keybindings")
	fmt.Fprintln(w, "  invoke_callback   queue a callback by id")
	fmt.Fprintln(w, "  eval_lua          run Lua in the live interpreter")
	fmt.Fprintln(w, "  list_windows      managed windows and their original state")
}

func runMCP(args []string) int {
	if len(args) == 0 || args[0] != "serve" {
		if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
			printMCPUsage(os.Stdout)
			return 0
		}
		if len(args) > 0 {
			fmt.Fprintf(os.Stderr, "Unknown mcp command: %s\n\n", args[0])
		}
		printMCPUsage(os.Stderr)
		return 2
	}
	return runMCPServe(args[1:])
}

func runMCPServe(args []string) int {
	fs := newFlagSet("mcp serve", "mcp serve [--socket PATH]", "Serve MCP tools backed by the daemon's IPC socket.")
	socket := fs.String("socket", "", "daemon socket (default: $XDG_RUNTIME_DIR/nog.sock)")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if *socket != "" {
		client = ipc.NewClientAt(*socket)
	}
	server := mcp.NewServer(client)

	// stdout carries the protocol; keep diagnostics on stderr.
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("MCP server error: %v", err)
		return 1
	}
	return 0
}
