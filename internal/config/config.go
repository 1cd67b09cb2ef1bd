package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults.  Timeouts follow the door's physical reality: authentication
// must answer within one touch, webhook posts may be slower.
const (
	DefaultAuthTimeout       = 5 * time.Second
	DefaultNotifyTimeout     = 10 * time.Second
	DefaultRedeliverInterval = 30 * time.Second
	DefaultMaxQueue          = 1024
	DefaultPollInterval      = 500 * time.Millisecond
	DefaultActuationDelay    = 300 * time.Millisecond
	DefaultHardwareDriver    = "sim"
	DefaultDBPath            = "./data/smartdoor.db"
)

var (
	ErrRoomRequired    = errors.New("room is required")
	ErrAuthURLRequired = errors.New("auth.url is required")
)

type Config struct {
	// Room is the identifier the authority scopes its allow decision to
	// (the response carries an "allow_<room>" field).
	Room string

	Auth     Auth
	Notify   Notify
	Hardware Hardware
	DB       DB
	Metrics  Metrics
	Loop     Loop
}

type Auth struct {
	// URL of the authentication authority.  A GET at startup establishes
	// the session and yields the anti-forgery token.
	URL     string
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.  The
	// original deployment talks to a self-signed lab server.
	InsecureSkipVerify bool
}

type Notify struct {
	// URLs maps an event name to a webhook endpoint.  Every queued record
	// is delivered to every endpoint before it leaves the queue.
	URLs    map[string]string
	Timeout time.Duration

	// RedeliverInterval is how often the background drainer retries a
	// non-empty queue.  0 disables background redelivery; queued records
	// are then retried only on the next touch.
	RedeliverInterval time.Duration

	// MaxQueue caps the pending-record queue during notification outages.
	// When full the oldest record is dropped.  0 means unbounded.
	MaxQueue int
}

type Hardware struct {
	// Driver selects the actuation backend.  Only "sim" is built in; the
	// GPIO driver ships with the deployment image.
	Driver string

	// ActuationDelay approximates the servo travel time for the sim
	// driver.
	ActuationDelay time.Duration
}

type DB struct {
	// Path of the sqlite touch-event audit log.  Empty disables
	// persistence (events are still notified, just not stored).
	Path string
}

type Metrics struct {
	// Listen is the Prometheus scrape endpoint.  Empty disables metrics.
	Listen string
}

type Loop struct {
	// PollInterval bounds the hardware wait so a pending shutdown signal
	// is observed promptly.
	PollInterval time.Duration
}

// Load reads configuration with the precedence defaults < file < environment.
// When path is empty the usual locations are searched (./smartdoor.toml, then
// ~/.config/smartdoor/smartdoor.toml); a missing file is not an error in that
// case.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetDefault("room", "")
	v.SetDefault("auth.url", "")
	v.SetDefault("auth.timeout", DefaultAuthTimeout)
	v.SetDefault("auth.insecure_skip_verify", false)
	v.SetDefault("notify.urls", map[string]string{})
	v.SetDefault("notify.timeout", DefaultNotifyTimeout)
	v.SetDefault("notify.redeliver_interval", DefaultRedeliverInterval)
	v.SetDefault("notify.max_queue", DefaultMaxQueue)
	v.SetDefault("hardware.driver", DefaultHardwareDriver)
	v.SetDefault("hardware.actuation_delay", DefaultActuationDelay)
	v.SetDefault("db.path", DefaultDBPath)
	v.SetDefault("metrics.listen", "")
	v.SetDefault("loop.poll_interval", DefaultPollInterval)

	v.SetEnvPrefix("SMARTDOOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("smartdoor")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "smartdoor"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Room: strings.TrimSpace(v.GetString("room")),
		Auth: Auth{
			URL:                strings.TrimSpace(v.GetString("auth.url")),
			Timeout:            v.GetDuration("auth.timeout"),
			InsecureSkipVerify: v.GetBool("auth.insecure_skip_verify"),
		},
		Notify: Notify{
			URLs:              v.GetStringMapString("notify.urls"),
			Timeout:           v.GetDuration("notify.timeout"),
			RedeliverInterval: v.GetDuration("notify.redeliver_interval"),
			MaxQueue:          v.GetInt("notify.max_queue"),
		},
		Hardware: Hardware{
			Driver:         strings.ToLower(strings.TrimSpace(v.GetString("hardware.driver"))),
			ActuationDelay: v.GetDuration("hardware.actuation_delay"),
		},
		DB: DB{
			Path: strings.TrimSpace(v.GetString("db.path")),
		},
		Metrics: Metrics{
			Listen: strings.TrimSpace(v.GetString("metrics.listen")),
		},
		Loop: Loop{
			PollInterval: v.GetDuration("loop.poll_interval"),
		},
	}

	if cfg.Auth.Timeout <= 0 {
		cfg.Auth.Timeout = DefaultAuthTimeout
	}
	if cfg.Notify.Timeout <= 0 {
		cfg.Notify.Timeout = DefaultNotifyTimeout
	}
	if cfg.Notify.MaxQueue < 0 {
		cfg.Notify.MaxQueue = 0
	}
	if cfg.Loop.PollInterval <= 0 {
		cfg.Loop.PollInterval = DefaultPollInterval
	}

	return cfg, nil
}

// Validate checks the fields the door cannot start without.  Called by the
// start command; config inspection subcommands work on unvalidated configs.
func (c Config) Validate() error {
	if c.Room == "" {
		return ErrRoomRequired
	}
	if c.Auth.URL == "" {
		return ErrAuthURLRequired
	}
	if _, err := url.Parse(c.Auth.URL); err != nil {
		return fmt.Errorf("auth.url: %w", err)
	}
	for name, u := range c.Notify.URLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("notify.urls.%s: empty URL", name)
		}
	}
	return nil
}

// NotifyEndpointNames returns the configured webhook names in a stable
// delivery order.
func (c Config) NotifyEndpointNames() []string {
	names := make([]string, 0, len(c.Notify.URLs))
	for name := range c.Notify.URLs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
