package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wellsgz/mcpulse/internal/collector"
	"github.com/wellsgz/mcpulse/internal/config"
	"github.com/wellsgz/mcpulse/internal/notify"
	"github.com/wellsgz/mcpulse/internal/storage"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

// Version is reported by the status endpoint
var Version = "dev"

// maxBuckets bounds the bucket count a client may request: one per minute
// of the longest range
const maxBuckets = 1440

// Handler holds dependencies for API handlers
type Handler struct {
	config    *config.Config
	collector *collector.Collector
	notifier  *notify.Notifier
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates a new Handler with the given configuration
func NewHandler(cfg *config.Config) *Handler {
	return &Handler{
		config:    cfg,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// SetCollector sets the collector for the handler
func (h *Handler) SetCollector(c *collector.Collector) {
	h.collector = c
}

// SetNotifier sets the notifier whose alert switch the API controls
func (h *Handler) SetNotifier(n *notify.Notifier) {
	h.notifier = n
}

func abortNotFound(c *gin.Context, name string) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":   "Not Found",
		"message": "Target not found: " + name,
	})
}

func abortBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Bad Request",
		"message": message,
	})
}

func abortUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "Service Unavailable",
		"message": message,
	})
}

// StatusResponse represents the response for the status endpoint
type StatusResponse struct {
	Status        string     `json:"status"`
	LastChecked   *time.Time `json:"last_checked,omitempty"`
	Refreshing    bool       `json:"refreshing"`
	Interval      string     `json:"interval"`
	IntervalSecs  float64    `json:"interval_secs"`
	Notifications bool       `json:"notifications"`
	Uptime        string     `json:"uptime"`
	UptimeSecs    float64    `json:"uptime_secs"`
	TargetCount   int        `json:"target_count"`
	Version       string     `json:"version"`
}

// GetStatus returns the overall status shown in the dashboard header
func (h *Handler) GetStatus(c *gin.Context) {
	running := time.Since(h.startTime)

	response := StatusResponse{
		Status:       string(collector.HealthChecking),
		Interval:     h.config.Global.Interval.String(),
		IntervalSecs: h.config.Global.Interval.Seconds(),
		Uptime:       running.Round(time.Second).String(),
		UptimeSecs:   running.Seconds(),
		TargetCount:  len(h.config.Targets),
		Version:      Version,
	}
	if h.collector != nil {
		response.Status = string(h.collector.OverallStatus())
		response.Refreshing = h.collector.Refreshing()
		if t, ok := h.collector.LastChecked(); ok {
			response.LastChecked = &t
		}
	}
	if h.notifier != nil {
		response.Notifications = h.notifier.Enabled()
	}

	c.JSON(http.StatusOK, response)
}

// TargetResponse represents a game server in API responses
type TargetResponse struct {
	Name      string         `json:"name"`
	Host      string         `json:"host"`
	Port      int            `json:"port,omitempty"`
	ProbeType string         `json:"probe_type"`
	Stats     *storage.Stats `json:"stats,omitempty"`
}

// GetTargets returns the list of all monitored servers
func (h *Handler) GetTargets(c *gin.Context) {
	targets := make([]TargetResponse, len(h.config.Targets))

	var allStats map[string]*storage.Stats
	if h.collector != nil {
		allStats = h.collector.GetAllStats()
	}

	for i, t := range h.config.Targets {
		targets[i] = TargetResponse{
			Name:      t.Name,
			Host:      t.Host,
			Port:      t.Port,
			ProbeType: t.Probe,
		}
		if allStats != nil {
			targets[i].Stats = allStats[t.Name]
		}
	}

	c.JSON(http.StatusOK, targets)
}

// GetTarget returns details for a specific server
func (h *Handler) GetTarget(c *gin.Context) {
	name := c.Param("name")

	t, ok := h.config.Target(name)
	if !ok {
		abortNotFound(c, name)
		return
	}

	response := TargetResponse{
		Name:      t.Name,
		Host:      t.Host,
		Port:      t.Port,
		ProbeType: t.Probe,
	}
	if h.collector != nil {
		response.Stats = h.collector.GetStats(name)
	}
	c.JSON(http.StatusOK, response)
}

// GetTargetStats returns statistics for a specific server
func (h *Handler) GetTargetStats(c *gin.Context) {
	name := c.Param("name")

	if _, ok := h.config.Target(name); !ok {
		abortNotFound(c, name)
		return
	}

	if h.collector == nil {
		c.JSON(http.StatusOK, &storage.Stats{Target: name, Status: uptime.StatusUnknown, LatencyMs: -1})
		return
	}

	c.JSON(http.StatusOK, h.collector.GetStats(name))
}

// rangeQuery reads the range query parameter, defaulting to 1h
func rangeQuery(c *gin.Context) (uptime.Range, error) {
	return uptime.ParseRange(c.Query("range"))
}

// HistoryResponse contains the samples of one range
type HistoryResponse struct {
	Target  string          `json:"target"`
	Range   uptime.Range    `json:"range"`
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Samples []uptime.Sample `json:"samples"`
}

// GetTargetHistory returns the status samples of a server for a range
func (h *Handler) GetTargetHistory(c *gin.Context) {
	name := c.Param("name")

	if _, ok := h.config.Target(name); !ok {
		abortNotFound(c, name)
		return
	}

	r, err := rangeQuery(c)
	if err != nil {
		abortBadRequest(c, err.Error())
		return
	}

	now := h.now()
	response := HistoryResponse{
		Target:  name,
		Range:   r,
		From:    now.Add(-r.Duration()),
		To:      now,
		Samples: []uptime.Sample{},
	}

	if h.collector != nil {
		samples, err := h.collector.History(name, response.From, now)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to fetch history: " + err.Error(),
			})
			return
		}
		response.Samples = uptime.FilterByRange(samples, r, now)
	}

	c.JSON(http.StatusOK, response)
}

// UptimeResponse is the uptime chart of one server
type UptimeResponse struct {
	Target string `json:"target"`
	Grade  string `json:"grade"`
	uptime.Chart
}

// GetTargetUptime returns the bucketed uptime chart of a server
func (h *Handler) GetTargetUptime(c *gin.Context) {
	name := c.Param("name")

	if _, ok := h.config.Target(name); !ok {
		abortNotFound(c, name)
		return
	}

	r, err := rangeQuery(c)
	if err != nil {
		abortBadRequest(c, err.Error())
		return
	}

	buckets := uptime.DefaultBucketCount
	if raw := c.Query("buckets"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxBuckets {
			abortBadRequest(c, fmt.Sprintf("buckets must be an integer between 1 and %d", maxBuckets))
			return
		}
		buckets = n
	}

	now := h.now()
	var chart uptime.Chart
	if h.collector != nil {
		chart, err = h.collector.ChartN(name, r, now, buckets)
	} else {
		chart, err = uptime.SummarizeN(nil, r, now, buckets)
	}
	if errors.Is(err, uptime.ErrInvalidBucketCount) {
		abortBadRequest(c, err.Error())
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to compute uptime: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, UptimeResponse{
		Target: name,
		Grade:  chart.Grade().String(),
		Chart:  chart,
	})
}

// Refresh starts an immediate check of every server
func (h *Handler) Refresh(c *gin.Context) {
	if h.collector == nil {
		abortUnavailable(c, "collector is not running")
		return
	}

	if !h.collector.Refresh() {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Conflict",
			"message": "A check is already in progress",
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "refreshing"})
}

// NotificationsRequest toggles status change alerts
type NotificationsRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// GetNotifications reports whether status change alerts are enabled
func (h *Handler) GetNotifications(c *gin.Context) {
	if h.notifier == nil {
		abortUnavailable(c, "notifications are not available")
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": h.notifier.Enabled()})
}

// SetNotifications turns status change alerts on or off
func (h *Handler) SetNotifications(c *gin.Context) {
	if h.notifier == nil {
		abortUnavailable(c, "notifications are not available")
		return
	}

	var req NotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	h.notifier.SetEnabled(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"enabled": h.notifier.Enabled()})
}

// GetCommunity returns the community link shown next to the chart
func (h *Handler) GetCommunity(c *gin.Context) {
	c.JSON(http.StatusOK, h.config.Community)
}

// GetConfig returns the current configuration (read-only)
func (h *Handler) GetConfig(c *gin.Context) {
	// Return a sanitized version of the config
	response := gin.H{
		"server": gin.H{
			"address":    h.config.Server.Address,
			"enable_tui": h.config.Server.EnableTUI,
		},
		"global": gin.H{
			"interval": h.config.Global.Interval.String(),
			"timeout":  h.config.Global.Timeout.String(),
			"data_dir": h.config.Global.DataDir,
			"pings":    h.config.Global.Pings,
		},
		"storage": gin.H{
			"retention":   h.config.Storage.Retention,
			"aggregation": h.config.Storage.Aggregation,
			"xff":         h.config.Storage.XFF,
		},
		"memory": gin.H{
			"buffer_size": h.config.Memory.BufferSize,
		},
		"notifications": gin.H{
			"enabled":     h.config.Notifications.Enabled,
			"has_webhook": h.config.Notifications.WebhookURL != "",
		},
		"community":    h.config.Community,
		"target_count": len(h.config.Targets),
	}

	c.JSON(http.StatusOK, response)
}
