package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/wellsgz/mcpulse/internal/collector"
	"github.com/wellsgz/mcpulse/internal/config"
	"github.com/wellsgz/mcpulse/internal/logging"
	"github.com/wellsgz/mcpulse/internal/notify"
	"github.com/wellsgz/mcpulse/internal/probe"
)

// maxLineSize bounds a single request line
const maxLineSize = 1 << 20

var (
	errNoCollector = errors.New("collector not available")
	errNoNotifier  = errors.New("notifications not available")
)

// Server answers dashboard clients on a unix socket and pushes status
// results and changes to the ones that subscribed
type Server struct {
	socketPath string
	listener   net.Listener
	config     *config.Config
	collector  *collector.Collector
	notifier   *notify.Notifier

	mu       sync.RWMutex
	sessions map[*session]struct{}

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// session is one connected client
type session struct {
	conn net.Conn

	mu         sync.Mutex
	enc        *json.Encoder
	subscribed bool
}

// write encodes one response line
func (c *session) write(resp Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(resp)
}

func (c *session) setSubscribed(on bool) {
	c.mu.Lock()
	c.subscribed = on
	c.mu.Unlock()
}

// push writes resp if the client subscribed
func (c *session) push(resp Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.subscribed {
		return nil
	}
	return c.enc.Encode(resp)
}

// handlerFunc answers one request with a response type and its data
type handlerFunc func(s *Server, c *session, req rawRequest) (string, any, error)

var handlers = map[string]handlerFunc{
	MsgTypeSubscribe:        handleSubscribe,
	MsgTypeUnsubscribe:      handleUnsubscribe,
	MsgTypeGetTargets:       handleGetTargets,
	MsgTypeGetStats:         handleGetStats,
	MsgTypeGetHistory:       handleGetHistory,
	MsgTypeGetStatus:        handleGetStatus,
	MsgTypeRefresh:          handleRefresh,
	MsgTypeGetNotifications: handleNotifications,
	MsgTypeSetNotifications: handleNotifications,
}

// NewServer creates a server listening on socketPath once started
func NewServer(socketPath string, cfg *config.Config) *Server {
	return &Server{
		socketPath: socketPath,
		config:     cfg,
		sessions:   make(map[*session]struct{}),
		done:       make(chan struct{}),
	}
}

// SetCollector sets the collector answering queries
func (s *Server) SetCollector(coll *collector.Collector) {
	s.collector = coll
}

// SetNotifier sets the notifier and registers the server as one of its sinks
func (s *Server) SetNotifier(n *notify.Notifier) {
	s.notifier = n
	n.AddSink(s)
}

// Start replaces any stale socket file and begins accepting clients
func (s *Server) Start() error {
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0660); err != nil {
		logging.Error("IPC", "Failed to set socket permissions", err)
	}
	logging.Info("IPC", "Server listening on "+s.socketPath, nil)

	if s.collector != nil {
		results := s.collector.Subscribe()
		s.wg.Add(1)
		go s.forwardResults(results)
	}

	s.wg.Add(1)
	go s.accept()
	return nil
}

// Stop closes the listener and every session and removes the socket file
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}

		s.mu.RLock()
		for c := range s.sessions {
			c.conn.Close()
		}
		s.mu.RUnlock()

		s.wg.Wait()
		os.Remove(s.socketPath)
		logging.Info("IPC", "Server stopped", nil)
	})
	return nil
}

// Notify pushes a status change to subscribed clients
func (s *Server) Notify(ev notify.Event) {
	s.broadcast(Response{Type: MsgTypeStatusChange, Data: ev})
}

func (s *Server) accept() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			logging.Error("IPC", "Accept error", err)
			continue
		}

		c := &session{conn: conn, enc: json.NewEncoder(conn)}
		s.mu.Lock()
		s.sessions[c] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(c)
	}
}

// serve reads newline-delimited requests until the client disconnects
func (s *Server) serve(c *session) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, c)
		s.mu.Unlock()
		c.conn.Close()
	}()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		var req rawRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			c.write(Response{Type: MsgTypeError, Error: fmt.Sprintf("invalid request: %v", err)})
			continue
		}
		s.dispatch(c, req)
	}

	if err := scanner.Err(); err != nil {
		select {
		case <-s.done:
		default:
			logging.Error("IPC", "Client read error", err)
		}
	}
}

// dispatch runs the handler of a request and writes its answer
func (s *Server) dispatch(c *session, req rawRequest) {
	resp := Response{ID: req.ID, Type: MsgTypeError}

	handle, ok := handlers[req.Type]
	if !ok {
		resp.Error = fmt.Sprintf("unknown request type: %s", req.Type)
	} else if typ, data, err := handle(s, c, req); err != nil {
		resp.Error = err.Error()
	} else {
		resp.Type, resp.Data = typ, data
	}

	if err := c.write(resp); err != nil {
		logging.Error("IPC", "Failed to encode "+resp.Type+" response", err)
	}
}

// broadcast pushes resp to every subscribed client
func (s *Server) broadcast(resp Response) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.sessions {
		if err := c.push(resp); err != nil {
			logging.Error("IPC", "Failed to push "+resp.Type+" to client", err)
		}
	}
}

func (s *Server) forwardResults(results <-chan probe.Result) {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			s.broadcast(Response{Type: MsgTypeStatusResult, Data: result})
		}
	}
}

func handleSubscribe(_ *Server, c *session, _ rawRequest) (string, any, error) {
	c.setSubscribed(true)
	return MsgTypeOK, nil, nil
}

func handleUnsubscribe(_ *Server, c *session, _ rawRequest) (string, any, error) {
	c.setSubscribed(false)
	return MsgTypeOK, nil, nil
}

func handleGetTargets(s *Server, _ *session, _ rawRequest) (string, any, error) {
	if s.collector == nil {
		return "", nil, errNoCollector
	}
	return MsgTypeTargets, TargetsResponse{Targets: s.collector.GetTargets()}, nil
}

func handleGetStats(s *Server, _ *session, req rawRequest) (string, any, error) {
	if s.collector == nil {
		return "", nil, errNoCollector
	}
	var q GetStatsRequest
	if err := req.decode(&q); err != nil {
		return "", nil, fmt.Errorf("invalid request data: %w", err)
	}
	return MsgTypeStats, StatsResponse{Target: q.Target, Stats: s.collector.GetStats(q.Target)}, nil
}

func handleGetHistory(s *Server, _ *session, req rawRequest) (string, any, error) {
	if s.collector == nil {
		return "", nil, errNoCollector
	}
	var q GetHistoryRequest
	if err := req.decode(&q); err != nil {
		return "", nil, fmt.Errorf("invalid request data: %w", err)
	}
	samples, err := s.collector.History(q.Target, q.From, q.To)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return MsgTypeHistory, HistoryResponse{Target: q.Target, Samples: samples}, nil
}

// handleGetStatus returns what the dashboard header shows
func handleGetStatus(s *Server, _ *session, _ rawRequest) (string, any, error) {
	if s.collector == nil {
		return "", nil, errNoCollector
	}
	status := StatusResponse{
		Status:     string(s.collector.OverallStatus()),
		Refreshing: s.collector.Refreshing(),
		Interval:   s.collector.Interval(),
	}
	status.LastChecked, _ = s.collector.LastChecked()
	if s.notifier != nil {
		status.Notifications = s.notifier.Enabled()
	}
	if s.config != nil {
		status.Address = s.config.Server.Address
		status.Community = s.config.Community
	}
	return MsgTypeStatus, status, nil
}

func handleRefresh(s *Server, _ *session, _ rawRequest) (string, any, error) {
	if s.collector == nil {
		return "", nil, errNoCollector
	}
	if !s.collector.Refresh() {
		return "", nil, errors.New("a check is already in progress")
	}
	return MsgTypeOK, nil, nil
}

// handleNotifications reads the alert switch, setting it first for
// set_notifications
func handleNotifications(s *Server, _ *session, req rawRequest) (string, any, error) {
	if s.notifier == nil {
		return "", nil, errNoNotifier
	}
	if req.Type == MsgTypeSetNotifications {
		var data NotificationsData
		if err := req.decode(&data); err != nil {
			return "", nil, fmt.Errorf("invalid request data: %w", err)
		}
		s.notifier.SetEnabled(data.Enabled)
	}
	return MsgTypeNotifications, NotificationsData{Enabled: s.notifier.Enabled()}, nil
}
