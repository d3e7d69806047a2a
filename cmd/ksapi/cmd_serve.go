package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"ksapi/internal/api"
	"ksapi/internal/config"
	"ksapi/internal/logging"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts the HTTP API on the configured address.

Endpoints:
  GET  /                 liveness ("Up and Running")
  POST /api, GET /api    assemble a JSON job
  GET  /api/targets      supported names per family
  GET  /api/jobs         recent jobs (history must be enabled)
  GET  /api/jobs/{id}    one job

The config file is watched; log level changes apply without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "Reload the log level when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boot := logging.For(logger, logging.CategoryBoot)

	svc, err := openServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}
	boot.Info("ksapi listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("engine", svc.engine.Name()),
		zap.Bool("cache", svc.cache != nil),
		zap.Bool("history", svc.history != nil),
	)

	err = serve(ctx, ln, svc)
	if svc.cache != nil {
		st := svc.cache.Stats()
		boot.Info("encoding cache stats",
			zap.Int64("hits", st.Hits),
			zap.Int64("misses", st.Misses),
			zap.Int64("shared", st.Shared),
		)
	}
	return err
}

// serve runs the HTTP server on ln until ctx ends, then shuts it down.
func serve(ctx context.Context, ln net.Listener, svc *services) error {
	if cfg.Server.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConnections)
	}

	opts := api.Options{
		Logger:       logging.For(logger, logging.CategoryAPI),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}
	if svc.history != nil {
		opts.History = svc.history
	}
	handler := api.New(svc.pipeline, opts).Handler()

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
		ErrorLog:     zap.NewStdLog(logger),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		logging.For(logger, logging.CategoryBoot).Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if serveWatch {
		if _, err := os.Stat(configPath); err == nil {
			g.Go(func() error {
				w := config.NewWatcher(configPath, applyReload, logging.For(logger, logging.CategoryConfig))
				if err := w.Run(gctx); err != nil {
					logging.For(logger, logging.CategoryConfig).Warn("config watch disabled", zap.Error(err))
				}
				return nil
			})
		}
	}

	return g.Wait()
}

// applyReload applies the settings that can change while serving.
func applyReload(c *config.Config) {
	log := logging.For(logger, logging.CategoryConfig)
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		log.Warn("ignoring reloaded log level", zap.Error(err))
		return
	}
	if !verbose {
		logLevel.SetLevel(level)
	}
	log.Info("config reloaded; restart to apply server, engine and storage changes",
		zap.String("level", logLevel.Level().String()))
}
