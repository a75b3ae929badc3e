package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamed0406/poolprobe/internal/config"
)

// validateCmd checks configuration without starting anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the environment and optional config file without starting the server.

Exit codes:
  0 - Config is valid (warnings may be printed)
  1 - Config is invalid (error details printed to stderr)`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, config.Config.Validate)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, w := range cfg.Warnings() {
		fmt.Fprintln(out, "⚠", w)
	}
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Addr:       %s\n", cfg.Addr)
	fmt.Fprintf(out, "  Timeout:    %s\n", cfg.Probe.Timeout)
	fmt.Fprintf(out, "  Insecure:   %t\n", cfg.Probe.InsecureSkipVerify)
	fmt.Fprintf(out, "  User agent: %s\n", cfg.Probe.UserAgent)
	fmt.Fprintf(out, "  API keys:   %d\n", len(cfg.APIKeys))
	return nil
}
