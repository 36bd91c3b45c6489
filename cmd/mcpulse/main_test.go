package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wellsgz/mcpulse/internal/api"
)

// execute runs the root command with args and returns captured output
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr bool
		want    []string
	}{
		{
			name: "valid",
			config: `
server:
  address: ":9090"
notifications:
  enabled: true
  webhook_url: "https://hooks.example.com/mcpulse"
targets:
  - name: Lobby
    host: play.example.net
  - name: Survival
    host: survival.example.net
    probe: minecraft
  - name: Proxy
    host: proxy.example.net
    port: 25577
    probe: tcp
`,
			want: []string{
				"Config is valid!",
				":9090",
				"Servers:       3 (minecraft: 2, tcp: 1)",
				"on, webhook configured",
			},
		},
		{
			name: "unknown probe",
			config: `
targets:
  - name: Lobby
    host: play.example.net
    probe: http
`,
			wantErr: true,
		},
		{
			name:    "no targets",
			config:  "server:\n  address: \":8080\"\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "validate", "-c", writeConfig(t, tt.config))
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate error = %v, wantErr %v\n%s", err, tt.wantErr, out)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestValidateMissingFile(t *testing.T) {
	_, err := execute(t, "validate", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "mcpulse config init") {
		t.Errorf("error = %v, want a hint to run config init", err)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcpulse", "config.yaml")

	out, err := execute(t, "config", "init", "-c", path)
	if err != nil {
		t.Fatalf("config init error: %v", err)
	}
	if !strings.Contains(out, "Created "+path) {
		t.Errorf("config init output = %q", out)
	}

	out, err = execute(t, "config", "init", "-c", path)
	if err != nil || !strings.Contains(out, "already exists") {
		t.Errorf("second config init = %q, %v", out, err)
	}

	out, err = execute(t, "config", "show", "-c", path)
	if err != nil {
		t.Fatalf("config show error: %v", err)
	}
	for _, want := range []string{"https://discord.gg/mcnpnetwork", "probe: minecraft", "port: 25565"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(out, "mcpulse "+version) {
		t.Errorf("version output = %q", out)
	}
	if api.Version != version {
		t.Errorf("api.Version = %q, want %q", api.Version, version)
	}
}

func TestBadLogFormat(t *testing.T) {
	_, err := execute(t, "version", "--log-format", "xml")
	if err == nil {
		t.Error("expected error for unknown log format")
	}
	// reset the persistent flag for later tests
	logFormat = "text"
}
