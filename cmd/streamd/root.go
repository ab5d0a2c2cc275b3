package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"streamd/internal/config"
	"streamd/internal/registry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	addr       string
	dotenv     []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "streamd",
		Short:         "Supervise stream managers and their rover contexts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (.yaml, .yml, .json, .toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults STREAMD_LOG_LEVEL or info)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: json|console (defaults STREAMD_LOG_FORMAT or json)")
	root.PersistentFlags().StringSliceVar(&opts.dotenv, "env-file", []string{".env"}, "Dotenv files loaded before the environment overlay")

	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Start every manager and serve the HTTP API",
		Example: "  streamd run --config streamd.yaml\n  STREAMD_ADDR=:9090 streamd run -c streamd.toml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
	runCmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address, e.g. :8080 (defaults STREAMD_ADDR or :8080)")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			rovers := 0
			for _, m := range cfg.Managers {
				rovers += len(m.Rovers)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: %d managers, %d rovers\n", len(cfg.Managers), rovers)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "streamd", version)
		},
	}

	root.AddCommand(runCmd, validateCmd, versionCmd)
	return root
}

// loadConfig resolves file, dotenv, environment, flags and the managers
// directory into one validated Config.
func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.LoadWithEnv(opts.configPath, opts.dotenv...)
	if err != nil {
		return cfg, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	managers, err := registry.Merge(cfg.Managers, cfg.ManagersDir)
	if err != nil {
		return cfg, err
	}
	cfg.Managers = managers
	return cfg, cfg.Validate()
}
