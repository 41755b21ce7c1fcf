// Package rpc is the thin JSON-RPC surface the harness consumes from the
// node daemons: a liveness probe, a stop call, and raw connection checks.
// The method vocabulary of each daemon is deliberately not modelled here.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/floresta-chain/nodeharness/errors"
	"github.com/floresta-chain/nodeharness/ulogger"
)

// Error represents a JSON-RPC error response from the daemon.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
}

// Config bundles what the client needs to reach one daemon.
type Config struct {
	Host        string
	Ports       map[string]int
	User        string
	Password    string
	ProbeMethod string
	CallTimeout time.Duration
}

// Client talks JSON-RPC over HTTP to a single daemon on loopback.
type Client struct {
	logger     ulogger.Logger
	cfg        Config
	httpClient *http.Client
}

func NewClient(logger ulogger.Logger, cfg Config) *Client {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}

	if cfg.ProbeMethod == "" {
		cfg.ProbeMethod = "getblockchaininfo"
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}

	return &Client{
		logger:     logger,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.CallTimeout},
	}
}

// Host returns the daemon host address.
func (c *Client) Host() string {
	return c.cfg.Host
}

// Ports returns all detected ports of the daemon.
func (c *Client) Ports() map[string]int {
	return c.cfg.Ports
}

// Port returns the detected port registered under name.
func (c *Client) Port(name string) (int, error) {
	port, ok := c.cfg.Ports[name]
	if !ok {
		return 0, errors.NewInvalidArgumentError("port type %q not found in node ports: %v", name, c.cfg.Ports)
	}

	return port, nil
}

// URL returns the HTTP endpoint built from the detected rpc port.
func (c *Client) URL() (string, error) {
	port, err := c.Port("rpc")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("http://%s:%d", c.cfg.Host, port), nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

// Call performs a JSON-RPC call and returns the raw result. A daemon-side
// error comes back as *Error; transport failures are network errors.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	url, err := c.URL()
	if err != nil {
		return nil, err
	}

	if params == nil {
		params = []interface{}{}
	}

	requestBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "nodeharness",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, errors.NewProcessingError("failed to marshal request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, errors.NewProcessingError("failed to create request", err)
	}

	if c.cfg.User != "" {
		req.SetBasicAuth(c.cfg.User, c.cfg.Password)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError("failed to perform request to %s", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetworkError("failed to read response body", err)
	}

	// daemons answer rpc-level errors with non-200 statuses, the body still
	// carries the error object
	var rpcResp rpcResponse
	if err = json.Unmarshal(body, &rpcResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, errors.NewNetworkError("expected status code 200, got %v", resp.StatusCode)
		}

		return nil, errors.NewProcessingError("failed to decode response body %q", string(body), err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// Ping reports whether the daemon is answering RPC. A daemon-side error
// response still counts as alive, it proves the server is there.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Call(ctx, c.cfg.ProbeMethod, nil)
	if err == nil {
		return nil
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return nil
	}

	return err
}

// Stop sends the graceful shutdown request. The daemon may drop the
// connection while answering, which is treated as an accepted stop.
func (c *Client) Stop(ctx context.Context) (string, error) {
	result, err := c.Call(ctx, "stop", nil)
	if err != nil {
		if errors.IsNetworkError(err) {
			c.logger.Debugf("connection dropped during stop request, assuming the daemon accepted it: %v", err)
			return "", nil
		}

		return "", err
	}

	var msg string
	if uerr := json.Unmarshal(result, &msg); uerr != nil {
		msg = string(result)
	}

	return msg, nil
}

// WaitForConnections polls every detected port until all of them are in the
// wanted state (opened true: accepting connections; false: refusing) or the
// timeout elapses.
func (c *Client) WaitForConnections(ctx context.Context, opened bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		if c.connectionsMatch(opened) {
			return nil
		}

		if time.Now().After(deadline) {
			if opened {
				return errors.NewRPCUnavailableError("ports %v not accepting connections after %v", c.cfg.Ports, timeout)
			}

			return errors.NewNetworkTimeoutError("ports %v still accepting connections after %v", c.cfg.Ports, timeout)
		}

		select {
		case <-ctx.Done():
			return errors.NewContextCanceledError("wait for connections cancelled", ctx.Err())
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func (c *Client) connectionsMatch(opened bool) bool {
	for _, port := range c.cfg.Ports {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", c.cfg.Host, port), 250*time.Millisecond)
		if err == nil {
			_ = conn.Close()
		}

		isOpen := err == nil
		if isOpen != opened {
			return false
		}
	}

	return true
}
