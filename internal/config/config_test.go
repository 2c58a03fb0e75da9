package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/lap.timer/internal/serialmux"
	"github.com/banshee-data/lap.timer/internal/testutil"
)

func TestEmptyConfig_Defaults(t *testing.T) {
	cfg := EmptyConfig()

	if got := cfg.GetPort(); got != DefaultPort {
		t.Errorf("GetPort() = %q, want %q", got, DefaultPort)
	}
	if got := cfg.GetListen(); got != ":8080" {
		t.Errorf("GetListen() = %q, want :8080", got)
	}
	if got := cfg.GetTickInterval(); got != 100*time.Millisecond {
		t.Errorf("GetTickInterval() = %v, want 100ms", got)
	}
	if got := cfg.GetDBPath(); got != "" {
		t.Errorf("GetDBPath() = %q, want empty", got)
	}
	if cfg.GetDebug() {
		t.Error("GetDebug() = true, want false")
	}
	if got := cfg.PortOptions(); got != (serialmux.PortOptions{}) {
		t.Errorf("PortOptions() = %+v, want zero value", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := testutil.WriteTempFile(t, "laptimer.json", `{
		"port": "/dev/ttyACM0",
		"baud_rate": 9600,
		"parity": "E",
		"tick_interval": "50ms",
		"listen": "127.0.0.1:9000",
		"db_path": "laps.db",
		"debug": true
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.GetPort() != "/dev/ttyACM0" {
		t.Errorf("GetPort() = %q", cfg.GetPort())
	}
	if got := cfg.PortOptions(); got != (serialmux.PortOptions{BaudRate: 9600, Parity: "E"}) {
		t.Errorf("PortOptions() = %+v", got)
	}
	if cfg.GetTickInterval() != 50*time.Millisecond {
		t.Errorf("GetTickInterval() = %v", cfg.GetTickInterval())
	}
	if cfg.GetListen() != "127.0.0.1:9000" {
		t.Errorf("GetListen() = %q", cfg.GetListen())
	}
	if cfg.GetDBPath() != "laps.db" {
		t.Errorf("GetDBPath() = %q", cfg.GetDBPath())
	}
	if !cfg.GetDebug() {
		t.Error("GetDebug() = false")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"wrong extension", "laptimer.yaml", `{}`, ".json extension"},
		{"bad json", "bad.json", `{`, "failed to parse"},
		{"bad baud", "baud.json", `{"baud_rate": 1234}`, "invalid configuration"},
		{"bad tick", "tick.json", `{"tick_interval": "soon"}`, "tick_interval"},
		{"tick too fast", "fast.json", `{"tick_interval": "1ms"}`, "at least 10ms"},
		{"empty port", "port.json", `{"port": ""}`, "port must not be empty"},
		{"empty listen", "listen.json", `{"listen": ""}`, "listen must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(testutil.WriteTempFile(t, tt.file, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadConfig() on missing file should fail")
	}
}

func TestLoadConfigIfExists(t *testing.T) {
	cfg, err := LoadConfigIfExists(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadConfigIfExists() error = %v", err)
	}
	if cfg.Port != nil {
		t.Error("missing file should give an empty config")
	}

	path := testutil.WriteTempFile(t, "laptimer.json", `{"listen": ":1234"}`)
	cfg, err = LoadConfigIfExists(path)
	if err != nil {
		t.Fatalf("LoadConfigIfExists() error = %v", err)
	}
	if cfg.GetListen() != ":1234" {
		t.Errorf("GetListen() = %q", cfg.GetListen())
	}
}

func TestApply(t *testing.T) {
	cfg := &Config{Port: ptrString("/dev/ttyUSB1"), Listen: ptrString(":9000")}

	err := cfg.Apply(Override{
		Listen:       ptrString(":7000"),
		TickInterval: ptrString("250ms"),
		Debug:        ptrBool(true),
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if cfg.GetPort() != "/dev/ttyUSB1" {
		t.Errorf("unset override changed port to %q", cfg.GetPort())
	}
	if cfg.GetListen() != ":7000" || cfg.GetTickInterval() != 250*time.Millisecond || !cfg.GetDebug() {
		t.Errorf("overrides not applied: %+v", cfg)
	}

	if err := cfg.Apply(Override{TickInterval: ptrString("bogus")}); err == nil {
		t.Error("Apply() with invalid tick interval should fail")
	}
}

func TestGetTickInterval_InvalidFallsBack(t *testing.T) {
	cfg := &Config{TickInterval: ptrString("nope")}
	if got := cfg.GetTickInterval(); got != 100*time.Millisecond {
		t.Errorf("GetTickInterval() = %v, want default", got)
	}
}

func TestPortOptions_FrameSettings(t *testing.T) {
	cfg := &Config{DataBits: ptrInt(7), StopBits: ptrInt(2), Parity: ptrString("odd")}
	opts, err := cfg.PortOptions().Normalise()
	if err != nil {
		t.Fatalf("Normalise() error = %v", err)
	}
	if opts.String() != "115200/7O2" {
		t.Errorf("PortOptions() = %s, want 115200/7O2", opts)
	}
}
