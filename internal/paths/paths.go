package paths

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
)

// Paths holds the resolved paths for config, data, and socket
type Paths struct {
	ConfigFile string
	DataDir    string
	SocketPath string
}

// DefaultPaths returns the default paths based on current user
// Root user: /etc/mcpulse/, /var/lib/mcpulse/, /var/run/mcpulse/
// Non-root: ~/.mcpulse/config/, ~/.mcpulse/data/, ~/.mcpulse/
func DefaultPaths() (*Paths, error) {
	if os.Geteuid() == 0 {
		return &Paths{
			ConfigFile: "/etc/mcpulse/config.yaml",
			DataDir:    "/var/lib/mcpulse",
			SocketPath: "/var/run/mcpulse/mcpulse.sock",
		}, nil
	}

	usr, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return ForBase(filepath.Join(usr.HomeDir, ".mcpulse")), nil
}

// ForBase lays out all paths under a single base directory
func ForBase(baseDir string) *Paths {
	return &Paths{
		ConfigFile: filepath.Join(baseDir, "config", "config.yaml"),
		DataDir:    filepath.Join(baseDir, "data"),
		SocketPath: filepath.Join(baseDir, "mcpulse.sock"),
	}
}

// WithConfigFile returns a copy of p that reads its config from file.
// An empty file leaves the default in place.
func (p *Paths) WithConfigFile(file string) *Paths {
	out := *p
	if file != "" {
		out.ConfigFile = file
	}
	return &out
}

// EnsureDirectories creates all necessary directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(p.ConfigFile),
		p.DataDir,
		filepath.Dir(p.SocketPath),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ConfigExists checks if the config file exists
func (p *Paths) ConfigExists() bool {
	_, err := os.Stat(p.ConfigFile)
	return err == nil
}

// SocketExists checks if the socket file exists
func (p *Paths) SocketExists() bool {
	_, err := os.Stat(p.SocketPath)
	return err == nil
}

// RemoveSocket removes the socket file if it exists
func (p *Paths) RemoveSocket() error {
	if p.SocketExists() {
		return os.Remove(p.SocketPath)
	}
	return nil
}

// String returns a human-readable representation of the paths
func (p *Paths) String() string {
	return fmt.Sprintf("Config: %s, Data: %s, Socket: %s", p.ConfigFile, p.DataDir, p.SocketPath)
}

// defaultConfigTemplate is the sample config; %q is replaced by the data directory
const defaultConfigTemplate = `# mcpulse configuration
# Edit this file to configure the servers shown on the dashboard

server:
  address: ":8080"
  enable_tui: true

global:
  interval: 10s
  timeout: 5s
  pings: 3
  data_dir: %q

storage:
  retention: "10s:1d,1m:7d,1h:90d"
  aggregation: average
  xff: 0.5

# Samples kept in memory per server (8640 = 24h at 10s)
memory:
  buffer_size: 8640

# Alerts when a server goes offline or comes back
notifications:
  enabled: false
  # webhook_url: "https://discord.com/api/webhooks/..."

community:
  name: "Discord"
  invite_url: "https://discord.gg/mcnpnetwork"
  description: "Join our Discord to chat with the community and get notified when the server goes down."

# Servers to monitor
targets:
  - name: "MCNP Network"
    host: "play.example.net" # replace with your server address
    probe: minecraft

  # A server on a non-default port:
  # - name: "Survival"
  #   host: "survival.example.net"
  #   port: 25566
  #   probe: minecraft

  # Plain TCP reachability check:
  # - name: "Proxy"
  #   host: "proxy.example.net"
  #   port: 25577
  #   probe: tcp
`

// DefaultConfig returns the sample config with RRD files stored in dataDir
func DefaultConfig(dataDir string) string {
	return fmt.Sprintf(defaultConfigTemplate, dataDir)
}

// CreateDefaultConfig creates a default config file with sample content
// Returns true if a new config was created, false if it already existed
func (p *Paths) CreateDefaultConfig() (bool, error) {
	if p.ConfigExists() {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(p.ConfigFile), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(p.ConfigFile, []byte(DefaultConfig(p.DataDir)), 0644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}

	return true, nil
}
