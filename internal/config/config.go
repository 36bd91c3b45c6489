package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/wellsgz/mcpulse/internal/storage"
	"go.yaml.in/yaml/v3"
)

// DefaultMinecraftPort is used for minecraft targets without a port
const DefaultMinecraftPort = 25565

// Smallest in-memory buffer that still fills one chart, and the largest
// whose history still fits one IPC message
const (
	minBufferSize = 60
	maxBufferSize = 200000
)

var durationPattern = regexp.MustCompile(`^(\d+)(s|m|h|d|w|y)$`)

// Config represents the root configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server" yaml:"server"`
	Global        GlobalConfig        `mapstructure:"global" yaml:"global"`
	Storage       StorageConfig       `mapstructure:"storage" yaml:"storage"`
	Memory        MemoryConfig        `mapstructure:"memory" yaml:"memory"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	Community     CommunityConfig     `mapstructure:"community" yaml:"community"`
	Targets       []Target            `mapstructure:"targets" yaml:"targets"`
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Address   string `mapstructure:"address" yaml:"address"`
	EnableTUI bool   `mapstructure:"enable_tui" yaml:"enable_tui"`
}

// GlobalConfig holds global probe settings
type GlobalConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	DataDir  string        `mapstructure:"data_dir" yaml:"data_dir"`
	Pings    int           `mapstructure:"pings" yaml:"pings"` // Attempts per interval for tcp/icmp probes
}

// StorageConfig holds storage settings
type StorageConfig struct {
	Retention   string  `mapstructure:"retention" yaml:"retention"`
	Aggregation string  `mapstructure:"aggregation" yaml:"aggregation"`
	XFF         float64 `mapstructure:"xff" yaml:"xff"`
}

// MemoryConfig holds the in-memory history settings
type MemoryConfig struct {
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size"` // Samples kept per target
}

// NotificationsConfig holds status change alert settings
type NotificationsConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url" json:"-"`
}

// CommunityConfig describes the community link shown next to the chart
type CommunityConfig struct {
	Name        string `mapstructure:"name" yaml:"name" json:"name"`
	InviteURL   string `mapstructure:"invite_url" yaml:"invite_url" json:"invite_url"`
	Description string `mapstructure:"description" yaml:"description" json:"description"`
}

// Target represents a monitored game server
type Target struct {
	Name  string `mapstructure:"name" yaml:"name" json:"name"`
	Host  string `mapstructure:"host" yaml:"host" json:"host"`
	Port  int    `mapstructure:"port" yaml:"port,omitempty" json:"port,omitempty"`
	Probe string `mapstructure:"probe" yaml:"probe" json:"probe_type"`
}

// setDefaults registers every default value with v
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.enable_tui", true)
	v.SetDefault("global.interval", "10s")
	v.SetDefault("global.timeout", "5s")
	v.SetDefault("global.data_dir", "./data")
	v.SetDefault("global.pings", 3)
	v.SetDefault("storage.retention", "10s:1d,1m:7d,1h:90d")
	v.SetDefault("storage.aggregation", "average")
	v.SetDefault("storage.xff", 0.5)
	v.SetDefault("memory.buffer_size", 8640)
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.webhook_url", "")
	v.SetDefault("community.name", "Discord")
	v.SetDefault("community.invite_url", "https://discord.gg/mcnpnetwork")
	v.SetDefault("community.description", "Join our Discord to chat with the community and get notified when the server goes down.")
}

// Default returns the configuration used when a file sets nothing.
// It has no targets and therefore does not validate on its own.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults are well-formed, decoding cannot fail
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration from the specified file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Set config file
	v.SetConfigFile(configPath)

	// Read config
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyTargetDefaults()

	// Validate config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyTargetDefaults fills in per-target values that depend on the probe type
func (c *Config) applyTargetDefaults() {
	for i := range c.Targets {
		t := &c.Targets[i]
		t.Probe = strings.ToLower(strings.TrimSpace(t.Probe))
		if t.Probe == "" {
			t.Probe = "minecraft"
		}
		if t.Probe == "minecraft" && t.Port == 0 {
			t.Port = DefaultMinecraftPort
		}
	}
}

// Target returns the target with the given name
func (c *Config) Target(name string) (Target, bool) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// YAML renders the effective configuration
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}

// Validate checks configuration for required fields and valid values
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}

	seen := make(map[string]bool, len(c.Targets))
	files := make(map[string]string, len(c.Targets))
	for i, target := range c.Targets {
		if target.Name == "" {
			return fmt.Errorf("target[%d]: name is required", i)
		}
		if seen[target.Name] {
			return fmt.Errorf("target[%d]: duplicate name %q", i, target.Name)
		}
		seen[target.Name] = true
		file := storage.FileName(target.Name)
		if other, ok := files[file]; ok {
			return fmt.Errorf("target[%d] %q: history would share %s with %q, rename one of them", i, target.Name, file, other)
		}
		files[file] = target.Name
		if target.Host == "" {
			return fmt.Errorf("target[%d] %q: host is required", i, target.Name)
		}
		switch target.Probe {
		case "minecraft", "tcp", "icmp":
		default:
			return fmt.Errorf("target[%d] %q: probe must be 'minecraft', 'tcp' or 'icmp', got %q", i, target.Name, target.Probe)
		}
		if target.Probe == "tcp" && target.Port == 0 {
			return fmt.Errorf("target[%d] %q: port is required for TCP probe", i, target.Name)
		}
		if target.Port < 0 || target.Port > 65535 {
			return fmt.Errorf("target[%d] %q: port must be between 0 and 65535", i, target.Name)
		}
	}

	if c.Global.Interval < time.Second {
		return fmt.Errorf("global.interval must be at least 1s")
	}
	if c.Global.Timeout <= 0 {
		return fmt.Errorf("global.timeout must be positive")
	}
	if c.Global.Timeout >= c.Global.Interval {
		return fmt.Errorf("global.timeout must be less than global.interval")
	}
	if c.Global.Pings < 1 || c.Global.Pings > 100 {
		return fmt.Errorf("global.pings must be between 1 and 100")
	}

	if c.Storage.XFF < 0 || c.Storage.XFF > 1 {
		return fmt.Errorf("storage.xff must be between 0 and 1")
	}

	validAggregations := map[string]bool{
		"average": true,
		"min":     true,
		"max":     true,
		"last":    true,
	}
	if !validAggregations[c.Storage.Aggregation] {
		return fmt.Errorf("storage.aggregation must be one of: average, min, max, last")
	}

	// Validate retention string format
	if err := validateRetention(c.Storage.Retention); err != nil {
		return fmt.Errorf("storage.retention: %w", err)
	}

	if c.Memory.BufferSize < minBufferSize || c.Memory.BufferSize > maxBufferSize {
		return fmt.Errorf("memory.buffer_size must be between %d and %d", minBufferSize, maxBufferSize)
	}

	if err := validateURL(c.Community.InviteURL); err != nil {
		return fmt.Errorf("community.invite_url: %w", err)
	}
	if err := validateURL(c.Notifications.WebhookURL); err != nil {
		return fmt.Errorf("notifications.webhook_url: %w", err)
	}

	return nil
}

// validateURL accepts an empty string or an absolute http(s) URL
func validateURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// validateRetention validates the RRD retention string format
// Format: "resolution:duration,resolution:duration,..."
// Examples: "10s:1d", "10s:1d,1m:7d,1h:90d"
func validateRetention(retention string) error {
	if retention == "" {
		return fmt.Errorf("retention string cannot be empty")
	}

	archives := strings.Split(retention, ",")
	for i, archive := range archives {
		archive = strings.TrimSpace(archive)
		parts := strings.Split(archive, ":")
		if len(parts) != 2 {
			return fmt.Errorf("archive %d: expected format 'resolution:duration', got %q", i+1, archive)
		}

		// Validate resolution
		resolution := strings.TrimSpace(parts[0])
		if !durationPattern.MatchString(resolution) {
			return fmt.Errorf("archive %d: invalid resolution %q (use format like 10s, 1m, 1h)", i+1, resolution)
		}

		// Validate duration
		duration := strings.TrimSpace(parts[1])
		if !durationPattern.MatchString(duration) {
			return fmt.Errorf("archive %d: invalid duration %q (use format like 1d, 7d, 90d)", i+1, duration)
		}
	}

	return nil
}
