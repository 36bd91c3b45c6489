package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wellsgz/mcpulse/internal/config"
	"github.com/wellsgz/mcpulse/internal/logging"
	"github.com/wellsgz/mcpulse/internal/notify"
	"github.com/wellsgz/mcpulse/internal/probe"
	"github.com/wellsgz/mcpulse/internal/storage"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

const (
	requestTimeout = 5 * time.Second
	historyTimeout = 10 * time.Second
)

// Client connects to the IPC server
type Client struct {
	conn    net.Conn
	encoder *json.Encoder
	scanner *bufio.Scanner

	resultCh chan probe.Result
	changeCh chan notify.Event

	// Pending requests waiting for responses, keyed by request ID
	pending   map[string]chan rawResponse
	pendingMu sync.Mutex

	// lost is closed when the read loop stops, readErr says why
	lost    chan struct{}
	readErr error

	ctx    chan struct{}
	wg     sync.WaitGroup
	closed bool
	mu     sync.Mutex
}

// Connect connects to the IPC server
func Connect(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	return newClient(conn, maxMessageSize), nil
}

func newClient(conn net.Conn, maxLine int) *Client {
	client := &Client{
		conn:     conn,
		encoder:  json.NewEncoder(conn),
		scanner:  bufio.NewScanner(conn),
		resultCh: make(chan probe.Result, 100),
		changeCh: make(chan notify.Event, 16),
		pending:  make(map[string]chan rawResponse),
		lost:     make(chan struct{}),
		ctx:      make(chan struct{}),
	}

	client.scanner.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)

	client.wg.Add(1)
	go client.readLoop()

	return client
}

// readLoop reads responses from the server
func (c *Client) readLoop() {
	defer c.wg.Done()
	defer close(c.resultCh)
	defer close(c.changeCh)
	defer c.stopReading()

	for c.scanner.Scan() {
		var resp rawResponse
		if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
			continue
		}

		switch resp.Type {
		case MsgTypeStatusResult:
			var result probe.Result
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				continue
			}
			select {
			case c.resultCh <- result:
			default:
				// Channel full, skip
			}

		case MsgTypeStatusChange:
			var ev notify.Event
			if err := json.Unmarshal(resp.Data, &ev); err != nil {
				continue
			}
			select {
			case c.changeCh <- ev:
			default:
			}

		default:
			// Route response to waiting request by ID
			if resp.ID != "" {
				c.pendingMu.Lock()
				if ch, ok := c.pending[resp.ID]; ok {
					// Send while holding lock to prevent race with cleanupRequest
					select {
					case ch <- resp:
					default:
					}
				}
				c.pendingMu.Unlock()
			}
		}
	}
}

// stopReading records why the read loop ended and fails pending calls
func (c *Client) stopReading() {
	err := c.scanner.Err()
	if err == nil {
		err = errors.New("daemon closed the connection")
	}
	select {
	case <-c.ctx:
		// closed by us
	default:
		logging.Error("IPC", "Lost connection to daemon", err)
	}
	c.readErr = err
	close(c.lost)
	c.conn.Close()
}

// call sends a request and waits for the response of the expected type,
// decoding its data into out when out is non-nil
func (c *Client) call(reqType string, data any, wantType string, out any, timeout time.Duration) error {
	reqID := uuid.NewString()
	respCh := make(chan rawResponse, 1)

	c.pendingMu.Lock()
	c.pending[reqID] = respCh
	c.pendingMu.Unlock()
	defer c.cleanupRequest(reqID)

	c.mu.Lock()
	err := c.encoder.Encode(Request{ID: reqID, Type: reqType, Data: data})
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: failed to send request: %w", reqType, err)
	}

	select {
	case resp := <-respCh:
		if resp.Type == MsgTypeError {
			return fmt.Errorf("%s failed: %s", reqType, resp.Error)
		}
		if resp.Type != wantType {
			return fmt.Errorf("%s: unexpected response type: %s", reqType, resp.Type)
		}
		if out != nil {
			if err := json.Unmarshal(resp.Data, out); err != nil {
				return fmt.Errorf("%s: invalid response data: %w", reqType, err)
			}
		}
		return nil
	case <-c.ctx:
		return fmt.Errorf("%s: connection closed", reqType)
	case <-c.lost:
		return fmt.Errorf("%s: connection lost: %w", reqType, c.readErr)
	case <-time.After(timeout):
		return fmt.Errorf("%s timeout", reqType)
	}
}

// cleanupRequest removes a pending request
func (c *Client) cleanupRequest(reqID string) {
	c.pendingMu.Lock()
	delete(c.pending, reqID)
	c.pendingMu.Unlock()
}

// Subscribe subscribes to status results and changes
func (c *Client) Subscribe() error {
	return c.call(MsgTypeSubscribe, nil, MsgTypeOK, nil, requestTimeout)
}

// Unsubscribe stops pushes from the daemon
func (c *Client) Unsubscribe() error {
	return c.call(MsgTypeUnsubscribe, nil, MsgTypeOK, nil, requestTimeout)
}

// Results returns a channel for receiving status results
func (c *Client) Results() <-chan probe.Result {
	return c.resultCh
}

// Changes returns a channel for receiving status change events
func (c *Client) Changes() <-chan notify.Event {
	return c.changeCh
}

// GetTargets retrieves target configurations from the daemon
func (c *Client) GetTargets() ([]config.Target, error) {
	var resp TargetsResponse
	if err := c.call(MsgTypeGetTargets, nil, MsgTypeTargets, &resp, requestTimeout); err != nil {
		return nil, err
	}
	return resp.Targets, nil
}

// GetStats retrieves statistics for a target
func (c *Client) GetStats(targetName string) (*storage.Stats, error) {
	var resp StatsResponse
	if err := c.call(MsgTypeGetStats, GetStatsRequest{Target: targetName}, MsgTypeStats, &resp, requestTimeout); err != nil {
		return nil, err
	}
	if resp.Stats == nil {
		return &storage.Stats{Target: targetName, Status: uptime.StatusUnknown, LatencyMs: -1}, nil
	}
	return resp.Stats, nil
}

// GetHistory retrieves the samples of a target in (from, to]
func (c *Client) GetHistory(targetName string, from, to time.Time) ([]uptime.Sample, error) {
	var resp HistoryResponse
	req := GetHistoryRequest{Target: targetName, From: from, To: to}
	if err := c.call(MsgTypeGetHistory, req, MsgTypeHistory, &resp, historyTimeout); err != nil {
		return nil, err
	}
	return resp.Samples, nil
}

// GetStatus retrieves the daemon's overall status
func (c *Client) GetStatus() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(MsgTypeGetStatus, nil, MsgTypeStatus, &resp, requestTimeout); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh asks the daemon to check all targets now.
// It returns an error when a check is already running.
func (c *Client) Refresh() error {
	return c.call(MsgTypeRefresh, nil, MsgTypeOK, nil, requestTimeout)
}

// GetNotifications reports whether the daemon delivers alerts
func (c *Client) GetNotifications() (bool, error) {
	var resp NotificationsData
	if err := c.call(MsgTypeGetNotifications, nil, MsgTypeNotifications, &resp, requestTimeout); err != nil {
		return false, err
	}
	return resp.Enabled, nil
}

// SetNotifications turns alert delivery on or off and returns the new state
func (c *Client) SetNotifications(enabled bool) (bool, error) {
	var resp NotificationsData
	if err := c.call(MsgTypeSetNotifications, NotificationsData{Enabled: enabled}, MsgTypeNotifications, &resp, requestTimeout); err != nil {
		return false, err
	}
	return resp.Enabled, nil
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.ctx)
	c.conn.Close()
	c.wg.Wait()

	return nil
}
