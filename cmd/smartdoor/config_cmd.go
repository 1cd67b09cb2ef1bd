package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/munechika-koyo/smartdoor/internal/config"
)

//go:embed default_config.toml
var defaultConfigTOML []byte

func newConfigCommand(configPath *string) *cobra.Command {
	var (
		show     bool
		generate bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or generate the smartdoor configuration",
		Long: `Config shows the effective configuration or writes the commented
default file to ~/.config/smartdoor/smartdoor.toml for editing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case generate:
				return generateConfig(cmd)
			case show:
				return showConfig(cmd, *configPath)
			default:
				return cmd.Help()
			}
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "show the effective configuration")
	cmd.Flags().BoolVar(&generate, "generate", false, "write the default config file to ~/.config/smartdoor/smartdoor.toml")

	return cmd
}

func generateConfig(cmd *cobra.Command) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home dir: %w", err)
	}
	path := filepath.Join(home, ".config", "smartdoor", "smartdoor.toml")

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists; edit it directly", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	if err := os.WriteFile(path, defaultConfigTOML, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "generated default config file as %s\n", path)
	return nil
}

func showConfig(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "room = %q\n", cfg.Room)
	fmt.Fprintf(out, "auth.url = %q\n", cfg.Auth.URL)
	fmt.Fprintf(out, "auth.timeout = \"%s\"\n", cfg.Auth.Timeout)
	fmt.Fprintf(out, "auth.insecure_skip_verify = %v\n", cfg.Auth.InsecureSkipVerify)
	for _, name := range cfg.NotifyEndpointNames() {
		fmt.Fprintf(out, "notify.urls.%s = %q\n", name, cfg.Notify.URLs[name])
	}
	fmt.Fprintf(out, "notify.timeout = \"%s\"\n", cfg.Notify.Timeout)
	fmt.Fprintf(out, "notify.redeliver_interval = \"%s\"\n", cfg.Notify.RedeliverInterval)
	fmt.Fprintf(out, "notify.max_queue = %d\n", cfg.Notify.MaxQueue)
	fmt.Fprintf(out, "hardware.driver = %q\n", cfg.Hardware.Driver)
	fmt.Fprintf(out, "hardware.actuation_delay = \"%s\"\n", cfg.Hardware.ActuationDelay)
	fmt.Fprintf(out, "db.path = %q\n", cfg.DB.Path)
	fmt.Fprintf(out, "metrics.listen = %q\n", cfg.Metrics.Listen)
	fmt.Fprintf(out, "loop.poll_interval = \"%s\"\n", cfg.Loop.PollInterval)
	return nil
}
