package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/munechika-koyo/smartdoor/internal/config"
	"github.com/munechika-koyo/smartdoor/internal/db"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/auth"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/hardware"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/metrics"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/notify"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/service"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/store"
	sqlitestore "github.com/munechika-koyo/smartdoor/internal/smartdoor/store/sqlite"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/types"
)

func newStartCommand(logger pslog.Logger, configPath *string) *cobra.Command {
	var unlocked bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the door control loop in the foreground",
		Long: `Start runs the smartdoor workflow: wait for a card touch or button
press, authenticate, actuate the lock, and notify the configured webhooks.
Stop it with Ctrl+C or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStart(cmd.Context(), logger, *configPath, unlocked)
		},
	}
	cmd.Flags().BoolVar(&unlocked, "unlocked", false, "set the initial key status to unlocked")

	return cmd
}

func runStart(ctx context.Context, logger pslog.Logger, configPath string, unlocked bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	initial := types.Locked
	if unlocked {
		initial = types.Unlocked
	}

	m := metrics.New()
	if cfg.Metrics.Listen != "" {
		srv, err := m.Serve(cfg.Metrics.Listen, logger.With("sys", "metrics"))
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = metrics.Shutdown(shutdownCtx, srv)
		}()
	}

	var events store.TouchEventStore
	if cfg.DB.Path != "" {
		conn, err := db.Open(ctx, cfg.DB.Path)
		if err != nil {
			return err
		}
		defer conn.Close()

		writer := db.NewWorker(conn)
		defer writer.Close()

		events = sqlitestore.NewTouchEventStore(conn, writer)
		logger.Info("audit.enabled", "path", cfg.DB.Path)
	}

	endpoints := make([]notify.Endpoint, 0, len(cfg.Notify.URLs))
	for _, name := range cfg.NotifyEndpointNames() {
		endpoints = append(endpoints, notify.Endpoint{Name: name, URL: cfg.Notify.URLs[name]})
	}
	queue := notify.NewQueue(notify.Config{
		Endpoints: endpoints,
		Timeout:   cfg.Notify.Timeout,
		MaxDepth:  cfg.Notify.MaxQueue,
	}, m, logger.With("sys", "notify"))
	redeliverer := notify.NewRedeliverer(queue, cfg.Notify.RedeliverInterval, logger.With("sys", "notify"))

	hw, err := newHardware(cfg, initial, logger)
	if err != nil {
		return err
	}

	// Cannot authenticate, cannot start: the door would be a brick with
	// an LED.
	authn, err := auth.New(ctx, auth.Config{
		URL:                cfg.Auth.URL,
		Room:               cfg.Room,
		Timeout:            cfg.Auth.Timeout,
		InsecureSkipVerify: cfg.Auth.InsecureSkipVerify,
	}, logger.With("sys", "auth"))
	if err != nil {
		_ = hw.Close()
		return err
	}

	door := service.NewDoor(service.Dependencies{
		Hardware:     hw,
		Auth:         authn,
		Queue:        queue,
		Redeliverer:  redeliverer,
		Events:       events,
		Metrics:      m,
		Logger:       logger.With("sys", "door"),
		PollInterval: cfg.Loop.PollInterval,
		InitialState: initial,
	})
	defer door.Close()

	return door.Start(ctx)
}

func newHardware(cfg config.Config, initial types.LockPosition, logger pslog.Logger) (hardware.Controller, error) {
	switch cfg.Hardware.Driver {
	case "sim":
		return hardware.NewSim(logger.With("sys", "hardware"),
			hardware.WithActuationDelay(cfg.Hardware.ActuationDelay),
			hardware.WithInitialPosition(initial),
		), nil
	default:
		return nil, fmt.Errorf("unknown hardware driver %q", cfg.Hardware.Driver)
	}
}
