package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/1broseidon/nog/internal/daemon"
	"github.com/1broseidon/nog/internal/paths"
	"github.com/1broseidon/nog/internal/script"
	"github.com/1broseidon/nog/internal/window"
)

const eventSource = "ipc"

// Controller is the daemon surface the server exposes. Reload, invoke and
// shutdown are queued as events; the rest answer directly.
type Controller interface {
	RequestReload(source string) error
	RequestInvoke(id int, source string) error
	RequestShutdown(source string) error
	Eval(name, source string) error
	Callbacks() ([]int, error)
	Bindings() []script.Binding
	Windows() []window.Snapshot
	Status() daemon.Status
}

var _ Controller = (*daemon.Daemon)(nil)

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	ctrl         Controller
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a server on the default socket path.
func NewServer(ctrl Controller) (*Server, error) {
	socketPath, err := paths.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(ctrl, socketPath), nil
}

// NewServerAt creates a server listening on socketPath.
func NewServerAt(ctrl Controller, socketPath string) *Server {
	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		ctrl:       ctrl,
	}
}

// SocketPath returns the path of the unix socket.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// One JSON request per line.
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListCallbacks:
		return s.handleListCallbacks()
	case CommandInvokeCallback:
		return s.handleInvokeCallback(req.Payload)
	case CommandEval:
		return s.handleEval(req.Payload)
	case CommandListWindows:
		return s.handleListWindows()
	case CommandShutdown:
		return s.handleShutdown()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")

	if err := s.ctrl.RequestReload(eventSource); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to queue reload: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetStatus() *Response {
	st := s.ctrl.Status()
	status := StatusData{
		ConfigPath:      st.ConfigPath,
		UptimeSeconds:   int64(st.Uptime.Seconds()),
		Setup:           st.Setup,
		Callbacks:       st.Callbacks,
		Bindings:        st.Bindings,
		Windows:         st.Windows,
		Reloads:         st.Reloads,
		LastReloadError: st.LastReloadError,
		DaemonRunning:   true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleListCallbacks() *Response {
	ids, err := s.ctrl.Callbacks()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to list callbacks: %v", err))
	}

	data := CallbacksData{Callbacks: ids, Bindings: []BindingInfo{}}
	if data.Callbacks == nil {
		data.Callbacks = []int{}
	}
	for _, b := range s.ctrl.Bindings() {
		data.Bindings = append(data.Bindings, BindingInfo{Keys: b.Keys, CallbackID: b.CallbackID})
	}

	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) handleInvokeCallback(payload json.RawMessage) *Response {
	var p InvokeCallbackPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	if p.ID <= 0 {
		return NewErrorResponse("id must be a positive callback identity")
	}

	if err := s.ctrl.RequestInvoke(p.ID, eventSource); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to queue callback: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleEval(payload json.RawMessage) *Response {
	var p EvalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	if p.Name == "" {
		p.Name = "ipc"
	}

	var data EvalData
	if err := s.ctrl.Eval(p.Name, p.Source); err != nil {
		data.Error = script.ErrorMessage(err)
	}

	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleListWindows() *Response {
	data := WindowsData{Windows: []WindowInfo{}}
	for _, snap := range s.ctrl.Windows() {
		data.Windows = append(data.Windows, windowInfoFromSnapshot(snap))
	}

	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleShutdown() *Response {
	log.Println("IPC: Received SHUTDOWN command")

	if err := s.ctrl.RequestShutdown(eventSource); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to queue shutdown: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
