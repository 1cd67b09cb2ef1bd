package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smartdoor.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
room = "423"

[auth]
url = "https://authority.example/api/auth/"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Room != "423" {
		t.Errorf("room: got %q", cfg.Room)
	}
	if cfg.Auth.Timeout != DefaultAuthTimeout {
		t.Errorf("auth.timeout: got %v want %v", cfg.Auth.Timeout, DefaultAuthTimeout)
	}
	if cfg.Notify.Timeout != DefaultNotifyTimeout {
		t.Errorf("notify.timeout: got %v want %v", cfg.Notify.Timeout, DefaultNotifyTimeout)
	}
	if cfg.Notify.RedeliverInterval != DefaultRedeliverInterval {
		t.Errorf("notify.redeliver_interval: got %v", cfg.Notify.RedeliverInterval)
	}
	if cfg.Notify.MaxQueue != DefaultMaxQueue {
		t.Errorf("notify.max_queue: got %d", cfg.Notify.MaxQueue)
	}
	if cfg.Hardware.Driver != DefaultHardwareDriver {
		t.Errorf("hardware.driver: got %q", cfg.Hardware.Driver)
	}
	if cfg.DB.Path != DefaultDBPath {
		t.Errorf("db.path: got %q", cfg.DB.Path)
	}
	if cfg.Loop.PollInterval != DefaultPollInterval {
		t.Errorf("loop.poll_interval: got %v", cfg.Loop.PollInterval)
	}
	if cfg.Metrics.Listen != "" {
		t.Errorf("metrics.listen: got %q", cfg.Metrics.Listen)
	}
}

func TestLoad_FullFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
room = "423"

[auth]
url = "https://authority.example/api/auth/"
timeout = "2s"
insecure_skip_verify = true

[notify]
timeout = "4s"
redeliver_interval = "15s"
max_queue = 32

[notify.urls]
lock = "https://hooks.example/lock"
unlock = "https://hooks.example/unlock"

[hardware]
driver = "SIM"
actuation_delay = "100ms"

[db]
path = "/var/lib/smartdoor/audit.db"

[metrics]
listen = "127.0.0.1:9090"

[loop]
poll_interval = "250ms"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Auth.Timeout != 2*time.Second || !cfg.Auth.InsecureSkipVerify {
		t.Errorf("auth: %+v", cfg.Auth)
	}
	if cfg.Notify.Timeout != 4*time.Second || cfg.Notify.RedeliverInterval != 15*time.Second || cfg.Notify.MaxQueue != 32 {
		t.Errorf("notify: %+v", cfg.Notify)
	}
	if cfg.Notify.URLs["lock"] != "https://hooks.example/lock" || cfg.Notify.URLs["unlock"] != "https://hooks.example/unlock" {
		t.Errorf("notify.urls: %v", cfg.Notify.URLs)
	}
	if cfg.Hardware.Driver != "sim" {
		t.Errorf("driver not normalized: %q", cfg.Hardware.Driver)
	}
	if cfg.Hardware.ActuationDelay != 100*time.Millisecond {
		t.Errorf("actuation_delay: %v", cfg.Hardware.ActuationDelay)
	}
	if cfg.DB.Path != "/var/lib/smartdoor/audit.db" {
		t.Errorf("db.path: %q", cfg.DB.Path)
	}
	if cfg.Metrics.Listen != "127.0.0.1:9090" {
		t.Errorf("metrics.listen: %q", cfg.Metrics.Listen)
	}
	if cfg.Loop.PollInterval != 250*time.Millisecond {
		t.Errorf("poll_interval: %v", cfg.Loop.PollInterval)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SMARTDOOR_ROOM", "101")
	t.Setenv("SMARTDOOR_AUTH_TIMEOUT", "7s")

	cfg, err := Load(writeConfig(t, `
room = "423"

[auth]
url = "https://authority.example/api/auth/"
timeout = "2s"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Room != "101" {
		t.Errorf("env should override file room, got %q", cfg.Room)
	}
	if cfg.Auth.Timeout != 7*time.Second {
		t.Errorf("env should override file timeout, got %v", cfg.Auth.Timeout)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Room: "423",
		Auth: Auth{URL: "https://authority.example/api/auth/"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	noRoom := base
	noRoom.Room = ""
	if err := noRoom.Validate(); !errors.Is(err, ErrRoomRequired) {
		t.Errorf("expected ErrRoomRequired, got %v", err)
	}

	noURL := base
	noURL.Auth.URL = ""
	if err := noURL.Validate(); !errors.Is(err, ErrAuthURLRequired) {
		t.Errorf("expected ErrAuthURLRequired, got %v", err)
	}

	emptyHook := base
	emptyHook.Notify = Notify{URLs: map[string]string{"lock": "  "}}
	if err := emptyHook.Validate(); err == nil {
		t.Error("expected an error for an empty webhook URL")
	}
}

func TestNotifyEndpointNames_Sorted(t *testing.T) {
	cfg := Config{Notify: Notify{URLs: map[string]string{
		"unlock": "https://hooks.example/u",
		"error":  "https://hooks.example/e",
		"lock":   "https://hooks.example/l",
	}}}

	got := cfg.NotifyEndpointNames()
	want := []string{"error", "lock", "unlock"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
