package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateRetention(t *testing.T) {
	tests := []struct {
		name      string
		retention string
		wantErr   bool
	}{
		{"valid single", "10s:1d", false},
		{"valid multiple", "10s:1d,1m:7d,1h:90d", false},
		{"valid with spaces", "10s:1d, 1m:7d", false},
		{"empty", "", true},
		{"missing duration", "10s", true},
		{"invalid resolution", "abc:1d", true},
		{"invalid duration", "10s:abc", true},
		{"extra colons", "10s:1d:extra", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRetention(tt.retention)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRetention(%q) error = %v, wantErr %v", tt.retention, err, tt.wantErr)
			}
		})
	}
}

// validConfig returns a configuration that passes validation
func validConfig() Config {
	return Config{
		Server: ServerConfig{Address: ":8080", EnableTUI: true},
		Global: GlobalConfig{
			Interval: 10 * time.Second,
			Timeout:  5 * time.Second,
			Pings:    3,
		},
		Storage: StorageConfig{
			Retention:   "10s:1d",
			Aggregation: "average",
			XFF:         0.5,
		},
		Memory: MemoryConfig{BufferSize: 8640},
		Community: CommunityConfig{
			Name:      "Discord",
			InviteURL: "https://discord.gg/mcnpnetwork",
		},
		Targets: []Target{{
			Name:  "MCNP Network",
			Host:  "play.example.net",
			Port:  25565,
			Probe: "minecraft",
		}},
	}
}

// renamePair names the first target a and appends a copy named b
func renamePair(c *Config, a, b string) {
	c.Targets[0].Name = a
	second := c.Targets[0]
	second.Name = b
	c.Targets = append(c.Targets, second)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"icmp target", func(c *Config) { c.Targets[0] = Target{Name: "Test", Host: "example.com", Probe: "icmp"} }, false},
		{"minecraft without port", func(c *Config) { c.Targets[0].Port = 0 }, false},
		{"no targets", func(c *Config) { c.Targets = nil }, true},
		{"invalid pings - too low", func(c *Config) { c.Global.Pings = 0 }, true},
		{"invalid pings - too high", func(c *Config) { c.Global.Pings = 101 }, true},
		{"timeout >= interval", func(c *Config) { c.Global.Interval, c.Global.Timeout = 5*time.Second, 10*time.Second }, true},
		{"invalid aggregation", func(c *Config) { c.Storage.Aggregation = "invalid" }, true},
		{"invalid xff", func(c *Config) { c.Storage.XFF = 1.5 }, true},
		{"target missing name", func(c *Config) { c.Targets[0].Name = "" }, true},
		{"target missing host", func(c *Config) { c.Targets[0].Host = "" }, true},
		{"unknown probe", func(c *Config) { c.Targets[0].Probe = "http" }, true},
		{"tcp probe missing port", func(c *Config) { c.Targets[0] = Target{Name: "Test", Host: "example.com", Probe: "tcp"} }, true},
		{"port out of range", func(c *Config) { c.Targets[0].Port = 70000 }, true},
		{"duplicate names", func(c *Config) { c.Targets = append(c.Targets, c.Targets[0]) }, true},
		{"names differing in case", func(c *Config) { renamePair(c, "Lobby", "lobby") }, true},
		{"names differing in separators", func(c *Config) { renamePair(c, "Survival EU", "survival_eu") }, true},
		{"names sharing a file after trimming", func(c *Config) { renamePair(c, "Hub", "Hub?") }, true},
		{"distinct file names", func(c *Config) { renamePair(c, "Survival EU", "Survival NA") }, false},
		{"buffer too small", func(c *Config) { c.Memory.BufferSize = 10 }, true},
		{"largest buffer", func(c *Config) { c.Memory.BufferSize = maxBufferSize }, false},
		{"buffer too large", func(c *Config) { c.Memory.BufferSize = maxBufferSize + 1 }, true},
		{"one second interval", func(c *Config) { c.Global.Interval, c.Global.Timeout = time.Second, 500*time.Millisecond }, false},
		{"sub-second interval", func(c *Config) { c.Global.Interval, c.Global.Timeout = 500*time.Millisecond, 100*time.Millisecond }, true},
		{"empty invite url", func(c *Config) { c.Community.InviteURL = "" }, false},
		{"relative invite url", func(c *Config) { c.Community.InviteURL = "discord.gg/mcnp" }, true},
		{"webhook url", func(c *Config) { c.Notifications.WebhookURL = "https://discord.com/api/webhooks/1/abc" }, false},
		{"bad webhook scheme", func(c *Config) { c.Notifications.WebhookURL = "ftp://example.com/hook" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
global:
  interval: 15s
targets:
  - name: Lobby
    host: play.example.net
  - name: Proxy
    host: proxy.example.net
    port: 25577
    probe: TCP
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Global.Interval != 15*time.Second {
		t.Errorf("Interval = %v, want 15s", cfg.Global.Interval)
	}
	if cfg.Global.Pings != 3 {
		t.Errorf("Pings = %d, want default 3", cfg.Global.Pings)
	}
	if cfg.Memory.BufferSize != 8640 {
		t.Errorf("BufferSize = %d, want 8640", cfg.Memory.BufferSize)
	}
	if cfg.Community.InviteURL != "https://discord.gg/mcnpnetwork" {
		t.Errorf("InviteURL = %q", cfg.Community.InviteURL)
	}

	lobby, ok := cfg.Target("Lobby")
	if !ok {
		t.Fatal("Target(Lobby) not found")
	}
	if lobby.Probe != "minecraft" || lobby.Port != DefaultMinecraftPort {
		t.Errorf("Lobby = %+v, want minecraft on %d", lobby, DefaultMinecraftPort)
	}

	proxy, _ := cfg.Target("Proxy")
	if proxy.Probe != "tcp" || proxy.Port != 25577 {
		t.Errorf("Proxy = %+v, want tcp on 25577", proxy)
	}

	if _, ok := cfg.Target("missing"); ok {
		t.Error("Target(missing) should not be found")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Address != ":8080" {
		t.Errorf("Address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.Global.Interval != 10*time.Second {
		t.Errorf("Interval = %v, want 10s", cfg.Global.Interval)
	}
	if cfg.Notifications.Enabled {
		t.Error("notifications should be disabled by default")
	}
	if len(cfg.Targets) != 0 {
		t.Errorf("Targets = %v, want none", cfg.Targets)
	}
}

func TestYAML(t *testing.T) {
	cfg := validConfig()
	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML() error: %v", err)
	}

	text := string(out)
	for _, want := range []string{"interval: 10s", "name: MCNP Network", "probe: minecraft", "buffer_size: 8640"} {
		if !strings.Contains(text, want) {
			t.Errorf("YAML() missing %q in:\n%s", want, text)
		}
	}
}
