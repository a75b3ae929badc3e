package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/poolprobe/internal/agent"
	"github.com/hamed0406/poolprobe/internal/config"
	"github.com/hamed0406/poolprobe/internal/httpapi"
	"github.com/hamed0406/poolprobe/internal/metrics"
	"github.com/hamed0406/poolprobe/internal/version"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve pool pings over HTTP",
	Long: `Run the HTTP API so an agent's HTTP checks can ping pools remotely.

Endpoints:
  POST /api/ping       JSON {host,port,pool,pattern,username,password}
  GET  /api/item?key=  evaluate an item key
  GET  /api/items      list item keys
  GET  /healthz
  GET  /metrics

/api/ping and /api/item share status codes: 200 with a value, 400 for bad
parameters, keys or patterns, 502 when the management API is unreachable and
422 when the pattern matched nothing.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveFlags.addr, "listen", "l", "", "override listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, prober, err := setup(cmd, config.Config.Validate)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	for _, w := range cfg.Warnings() {
		logger.Warn("config_warning", zap.String("warning", w))
	}

	m := metrics.New(version.ServiceName)
	m.SetBuildInfo(version.Version)
	checker := &metrics.ObservedChecker{Inner: prober, Metrics: m}
	api := httpapi.NewServer(logger, checker, agent.NewRegistry(checker, logger), m)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(cfg.APIKeys, cfg.RateRPM, cfg.RateBurst),
		ReadHeaderTimeout: 5 * time.Second,
		// a ping may legitimately take the whole probe timeout
		WriteTimeout: cfg.Probe.Timeout + 5*time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api_listen", zap.String("addr", cfg.Addr), zap.String("version", version.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("api_shutdown")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
