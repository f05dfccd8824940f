package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/1broseidon/nog/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: nog daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: nog daemon")
			os.Exit(2)
		}
		runDaemon()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "callbacks":
		os.Exit(runCallbacks(os.Args[2:]))
	case "invoke":
		os.Exit(runInvoke(os.Args[2:]))
	case "eval":
		os.Exit(runEval(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "stop":
		os.Exit(runStop(os.Args[2:]))
	case "check":
		os.Exit(runCheck(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: nog <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the nog daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  reload              Re-execute the configuration script")
	fmt.Fprintln(w, "  stop                Stop the daemon")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  callbacks           List registered callbacks and keybindings")
	fmt.Fprintln(w, "  invoke <id>         Invoke a registered callback")
	fmt.Fprintln(w, "  eval <source>       Run Lua in the daemon's interpreter")
	fmt.Fprintln(w, "  windows             List managed windows and their original state")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  check               Execute the configuration in a scratch interpreter")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'nog <command> --help' for command-specific options.")
}

// newFlagSet builds a subcommand flag set with the usual usage banner.
func newFlagSet(name, usage, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: nog "+usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, summary)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags returns -1 when parsing succeeded, otherwise the exit code.
func parseFlags(fs *flag.FlagSet, args []string) int {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	return -1
}

func noArgs(name, summary string, args []string) int {
	fs := newFlagSet(name, name, summary)
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", name)
		fs.Usage()
		return 2
	}
	return -1
}

func runStatus(args []string) int {
	if code := noArgs("status", "Show daemon status via IPC.", args); code >= 0 {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running:    %v\n", status.DaemonRunning)
	fmt.Printf("config_path:       %s\n", status.ConfigPath)
	fmt.Printf("setup:             %v\n", status.Setup)
	fmt.Printf("callbacks:         %d\n", status.Callbacks)
	fmt.Printf("bindings:          %d\n", status.Bindings)
	fmt.Printf("windows:           %d\n", status.Windows)
	fmt.Printf("reloads:           %d\n", status.Reloads)
	fmt.Printf("uptime_seconds:    %d\n", status.UptimeSeconds)
	if status.LastReloadError != "" {
		fmt.Printf("last_reload_error: %s\n", firstLine(status.LastReloadError))
	}
	return 0
}

func runReload(args []string) int {
	if code := noArgs("reload", "Queue a configuration reload in the running daemon.", args); code >= 0 {
		return code
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("reload queued")
	return 0
}

func runStop(args []string) int {
	if code := noArgs("stop", "Stop the running daemon.", args); code >= 0 {
		return code
	}
	if err := ipc.NewClient().Shutdown(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runCallbacks(args []string) int {
	if code := noArgs("callbacks", "List registered callback identities and keybindings.", args); code >= 0 {
		return code
	}

	data, err := ipc.NewClient().ListCallbacks()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printCallbacks(os.Stdout, data)
	return 0
}

func printCallbacks(w io.Writer, data *ipc.CallbacksData) {
	keys := make(map[int][]string, len(data.Bindings))
	for _, b := range data.Bindings {
		keys[b.CallbackID] = append(keys[b.CallbackID], b.Keys)
	}
	if len(data.Callbacks) == 0 {
		fmt.Fprintln(w, "no callbacks registered")
		return
	}
	for _, id := range data.Callbacks {
		if bound := keys[id]; len(bound) > 0 {
			fmt.Fprintf(w, "%4d  %s\n", id, strings.Join(bound, ", "))
		} else {
			fmt.Fprintf(w, "%4d\n", id)
		}
	}
}

func runInvoke(args []string) int {
	fs := newFlagSet("invoke", "invoke <id>", "Queue a call to the callback registered under <id>.")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	id, err := strconv.Atoi(fs.Arg(0))
	if err != nil || id <= 0 {
		fmt.Fprintf(os.Stderr, "invalid callback id %q\n", fs.Arg(0))
		return 2
	}

	if err := ipc.NewClient().InvokeCallback(id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runEval(args []string) int {
	fs := newFlagSet("eval", "eval [-name N] <source>", "Run a Lua chunk in the daemon's interpreter. Use '-' to read it from stdin.")
	name := fs.String("name", "eval", "chunk name used in error messages")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	source := fs.Arg(0)
	if source == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read stdin: %v\n", err)
			return 1
		}
		source = string(data)
	}

	result, err := ipc.NewClient().Eval(*name, source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if result.Error != "" {
		fmt.Fprintln(os.Stderr, result.Error)
		return 1
	}
	return 0
}

func runWindows(args []string) int {
	if code := noArgs("windows", "List managed windows with their original style and rectangle.", args); code >= 0 {
		return code
	}

	data, err := ipc.NewClient().ListWindows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printWindows(os.Stdout, data.Windows)
	return 0
}

func printWindows(w io.Writer, windows []ipc.WindowInfo) {
	if len(windows) == 0 {
		fmt.Fprintln(w, "no managed windows")
		return
	}
	for _, win := range windows {
		fmt.Fprintf(w, "0x%08x  %-30q  %-28s  (%d,%d)-(%d,%d)\n",
			win.ID, win.Name, win.Style, win.Left, win.Top, win.Right, win.Bottom)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
