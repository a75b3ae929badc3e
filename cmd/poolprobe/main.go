// Package main is the entry point for the poolprobe CLI.
//
// Usage:
//
//	poolprobe ping HOST PORT POOL PATTERN USER PASSWORD   # print 1 or 0
//	poolprobe get 'glassfish.ping.connection.pool[...]'   # evaluate an item key
//	poolprobe serve -c poolprobe.yaml                     # run the HTTP API
//	poolprobe validate -c poolprobe.yaml                  # check configuration
//	poolprobe version
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/poolprobe/internal/config"
	"github.com/hamed0406/poolprobe/internal/logging"
	"github.com/hamed0406/poolprobe/internal/probe"
	"github.com/hamed0406/poolprobe/internal/version"
)

// Global flags
var globalFlags struct {
	configFile string
	timeout    time.Duration
	insecure   bool
	logDir     string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "poolprobe",
	Short: "Ping application-server connection pools for a monitoring agent",
	Long: `poolprobe asks an application server's management API to ping a JDBC
connection pool, extracts the exit code with a regular expression and reports
1 (SUCCESS) or 0 (anything else) to the monitoring agent.

Example:
  poolprobe ping https://appserver 4848 DerbyPool 'exit_code.:.(\w+).,' admin secret`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&globalFlags.configFile, "config", "c", "", "optional YAML config file")
	pf.DurationVar(&globalFlags.timeout, "timeout", 0, "request timeout (default 10s)")
	pf.BoolVar(&globalFlags.insecure, "insecure", false, "skip TLS certificate and hostname verification")
	pf.StringVar(&globalFlags.logDir, "log-dir", "", "write logs to a rotating file in this directory")
	pf.StringVar(&globalFlags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", version.ServiceName, version.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", version.Commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", version.Date)
	},
}

// loadConfig reads env + config file, applies flag overrides and only then
// runs check on the merged result.
func loadConfig(cmd *cobra.Command, check func(config.Config) error) (config.Config, error) {
	cfg, err := config.Load(globalFlags.configFile)
	if err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Probe.Timeout = globalFlags.timeout
	}
	if flags.Changed("insecure") {
		cfg.Probe.InsecureSkipVerify = globalFlags.insecure
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = globalFlags.logDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = globalFlags.logLevel
	}
	if f := flags.Lookup("listen"); f != nil && f.Changed {
		cfg.Addr = f.Value.String()
	}
	if err := check(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setup builds the logger and prober shared by every subcommand. Probe-only
// commands pass config.Config.ValidateProbe so a broken API setting in the
// agent's environment never blocks a verdict.
func setup(cmd *cobra.Command, check func(config.Config) error) (config.Config, *zap.Logger, *probe.Prober, error) {
	cfg, err := loadConfig(cmd, check)
	if err != nil {
		return cfg, nil, nil, err
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	fetcher := probe.NewHTTPFetcher(cfg.Probe.Timeout, cfg.Probe.InsecureSkipVerify, logger)
	fetcher.UserAgent = cfg.Probe.UserAgent
	return cfg, logger, probe.NewProber(fetcher, logger), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
