package ipc

import (
	"encoding/json"
	"time"

	"github.com/wellsgz/mcpulse/internal/config"
	"github.com/wellsgz/mcpulse/internal/storage"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

// maxMessageSize bounds one response line. A day of one-second samples or a
// full memory buffer encodes to well under it.
const maxMessageSize = 64 << 20

// Message types for IPC protocol
const (
	MsgTypeSubscribe        = "subscribe"
	MsgTypeUnsubscribe      = "unsubscribe"
	MsgTypeGetTargets       = "get_targets"
	MsgTypeGetStats         = "get_stats"
	MsgTypeGetHistory       = "get_history"
	MsgTypeGetStatus        = "get_status"
	MsgTypeRefresh          = "refresh"
	MsgTypeGetNotifications = "get_notifications"
	MsgTypeSetNotifications = "set_notifications"

	MsgTypeStatusResult  = "status_result"
	MsgTypeStatusChange  = "status_change"
	MsgTypeTargets       = "targets"
	MsgTypeStats         = "stats"
	MsgTypeHistory       = "history"
	MsgTypeStatus        = "status"
	MsgTypeNotifications = "notifications"
	MsgTypeError         = "error"
	MsgTypeOK            = "ok"
)

// Request is the base request structure
type Request struct {
	ID   string `json:"id,omitempty"` // Unique request ID for response correlation
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Response is the base response structure
type Response struct {
	ID    string `json:"id,omitempty"` // Echo of request ID for correlation
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// rawRequest is a Request whose data is decoded once the type is known
type rawRequest struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// rawResponse is a Response whose data is decoded once the type is known
type rawResponse struct {
	ID    string          `json:"id,omitempty"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// decode unmarshals the data of a request, leaving v untouched when empty
func (r rawRequest) decode(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// GetStatsRequest is the request for stats
type GetStatsRequest struct {
	Target string `json:"target"`
}

// GetHistoryRequest is the request for status samples
type GetHistoryRequest struct {
	Target string    `json:"target"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

// NotificationsData carries the alert switch
type NotificationsData struct {
	Enabled bool `json:"enabled"`
}

// TargetsResponse contains target configurations
type TargetsResponse struct {
	Targets []config.Target `json:"targets"`
}

// StatsResponse contains statistics for a target
type StatsResponse struct {
	Target string         `json:"target"`
	Stats  *storage.Stats `json:"stats"`
}

// HistoryResponse contains the samples of a target
type HistoryResponse struct {
	Target  string          `json:"target"`
	Samples []uptime.Sample `json:"samples"`
}

// StatusResponse describes the daemon for the dashboard header
type StatusResponse struct {
	Status        string                 `json:"status"`
	LastChecked   time.Time              `json:"last_checked"`
	Refreshing    bool                   `json:"refreshing"`
	Interval      time.Duration          `json:"interval"`
	Notifications bool                   `json:"notifications"`
	Address       string                 `json:"address"`
	Community     config.CommunityConfig `json:"community"`
}
