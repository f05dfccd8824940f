package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/nog/internal/paths"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket path.
func NewClient() *Client {
	socketPath, err := paths.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

func (c *Client) call(command CommandType, payload any, out any) error {
	req := &Request{Command: command}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = raw
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// Reload asks the daemon to re-execute the configuration script.
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListCallbacks returns registered callback identities and keybindings.
func (c *Client) ListCallbacks() (*CallbacksData, error) {
	var data CallbacksData
	if err := c.call(CommandListCallbacks, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// InvokeCallback queues the callback with the given identity.
func (c *Client) InvokeCallback(id int) error {
	return c.call(CommandInvokeCallback, InvokeCallbackPayload{ID: id}, nil)
}

// Eval runs source in the daemon's interpreter. A script failure is reported
// in EvalData.Error, not as an error.
func (c *Client) Eval(name, source string) (*EvalData, error) {
	var data EvalData
	if err := c.call(CommandEval, EvalPayload{Name: name, Source: source}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ListWindows returns the original snapshots of managed windows.
func (c *Client) ListWindows() (*WindowsData, error) {
	var data WindowsData
	if err := c.call(CommandListWindows, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Shutdown asks the daemon to stop.
func (c *Client) Shutdown() error {
	return c.call(CommandShutdown, nil, nil)
}
