package logging

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"time"
)

// Format represents the logging output format
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Logger wraps the standard logger with format options
type Logger struct {
	format Format
	writer io.Writer
}

// Global logger instance
var defaultLogger = &Logger{
	format: FormatText,
	writer: os.Stderr,
}

// SetFormat sets the logging format globally
func SetFormat(format Format) {
	defaultLogger.format = format
}

// SetWriter sets the output writer
func SetWriter(w io.Writer) {
	defaultLogger.writer = w
	log.SetOutput(w)
}

// LogEntry represents a structured log entry for JSON output
type LogEntry struct {
	Timestamp string      `json:"timestamp"`
	Level     string      `json:"level"`
	Component string      `json:"component"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
}

// StatusLogEntry represents a status check log entry
type StatusLogEntry struct {
	Timestamp  string  `json:"timestamp"`
	Level      string  `json:"level"`
	Component  string  `json:"component"`
	Target     string  `json:"target"`
	Online     bool    `json:"online"`
	Players    int     `json:"players"`
	MaxPlayers int     `json:"max_players,omitempty"`
	LatencyMs  float64 `json:"latency_ms"`
	Error      string  `json:"error,omitempty"`
}

// ChangeLogEntry represents an online/offline transition log entry
type ChangeLogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Component string `json:"component"`
	Target    string `json:"target"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// RequestLogEntry represents one served API request
type RequestLogEntry struct {
	Timestamp string  `json:"timestamp"`
	Level     string  `json:"level"`
	Component string  `json:"component"`
	Method    string  `json:"method"`
	Path      string  `json:"path"`
	Status    int     `json:"status"`
	LatencyMs float64 `json:"latency_ms"`
	ClientIP  string  `json:"client_ip"`
}

// Info logs an info message
func Info(component, message string, data interface{}) {
	if defaultLogger.format == FormatJSON {
		entry := LogEntry{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Level:     "info",
			Component: component,
			Message:   message,
			Data:      data,
		}
		writeJSON(entry)
	} else {
		log.Printf("[%s] %s", component, message)
	}
}

// StatusResult logs the outcome of one status check
func StatusResult(target string, online bool, players, maxPlayers int, latencyMs float64, errMsg string) {
	if defaultLogger.format == FormatJSON {
		entry := StatusLogEntry{
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Level:      "info",
			Component:  "Probe",
			Target:     target,
			Online:     online,
			Players:    players,
			MaxPlayers: maxPlayers,
			LatencyMs:  latencyMs,
			Error:      errMsg,
		}
		writeJSON(entry)
		return
	}

	if online {
		log.Printf("[Probe] %s: online %d/%d players, %.2fms", target, players, maxPlayers, latencyMs)
	} else {
		log.Printf("[Probe] %s: OFFLINE - %s", target, errMsg)
	}
}

// StatusChange logs a target going online or offline
func StatusChange(target, from, to string) {
	level := "info"
	if to == "offline" {
		level = "warn"
	}

	if defaultLogger.format == FormatJSON {
		writeJSON(ChangeLogEntry{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Level:     level,
			Component: "Notify",
			Target:    target,
			From:      from,
			To:        to,
		})
		return
	}
	log.Printf("[Notify] %s: %s -> %s", target, from, to)
}

// Request logs an API request. 5xx responses are logged at error level.
func Request(method, path string, status int, latency time.Duration, clientIP string) {
	if defaultLogger.format == FormatJSON {
		level := "info"
		if status >= 500 {
			level = "error"
		}
		writeJSON(RequestLogEntry{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Level:     level,
			Component: "API",
			Method:    method,
			Path:      path,
			Status:    status,
			LatencyMs: float64(latency.Microseconds()) / 1000,
			ClientIP:  clientIP,
		})
		return
	}
	log.Printf("[API] %3d | %13v | %15s | %-7s %s", status, latency, clientIP, method, path)
}

// Error logs an error message
func Error(component, message string, err error) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}

	if defaultLogger.format == FormatJSON {
		entry := LogEntry{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Level:     "error",
			Component: component,
			Message:   message,
			Data:      map[string]string{"error": errStr},
		}
		writeJSON(entry)
	} else {
		if err != nil {
			log.Printf("[%s] %s: %v", component, message, err)
		} else {
			log.Printf("[%s] %s", component, message)
		}
	}
}

// GetFormat returns the current logging format
func GetFormat() Format {
	return defaultLogger.format
}

func writeJSON(entry interface{}) {
	jsonBytes, _ := json.Marshal(entry)
	defaultLogger.writer.Write(append(jsonBytes, '\n'))
}
