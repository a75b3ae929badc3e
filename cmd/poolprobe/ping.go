package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamed0406/poolprobe/internal/agent"
	"github.com/hamed0406/poolprobe/internal/config"
)

var pingCmd = &cobra.Command{
	Use:   "ping HOST PORT POOL PATTERN USER PASSWORD",
	Short: "Ping one connection pool and print 1 (healthy) or 0 (unhealthy)",
	Long: `Ping one connection pool and print the verdict.

Prints 1 when the captured exit code is SUCCESS and 0 for any other captured
value. Exits 1 with a message on stderr when no verdict could be produced
(bad parameters, bad pattern, transport failure, or no match).

Example:
  poolprobe ping https://appserver 4848 DerbyPool 'exit_code.:.(\w+).,' admin secret`,
	Args: cobra.ArbitraryArgs,
	RunE: runPing,
}

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Evaluate an agent item key",
	Long: `Evaluate an agent item key such as

  glassfish.ping.connection.pool["https://appserver",4848,DerbyPool,"exit_code.:.(\w+).,",admin,secret]

Parameters containing commas must be double-quoted.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	// the six parameters are opaque: a password like "-s3cret" is not a flag
	pingCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(getCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	_, logger, prober, err := setup(cmd, config.Config.ValidateProbe)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg := agent.NewRegistry(prober, logger)
	return printResult(cmd, reg.Invoke(cmd.Context(), agent.PingPoolKey, args))
}

func runGet(cmd *cobra.Command, args []string) error {
	_, logger, prober, err := setup(cmd, config.Config.ValidateProbe)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg := agent.NewRegistry(prober, logger)
	return printResult(cmd, reg.InvokeKey(cmd.Context(), args[0]))
}

func printResult(cmd *cobra.Command, res agent.Result) error {
	if !res.OK {
		return errors.New(res.Message)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Value)
	return nil
}
