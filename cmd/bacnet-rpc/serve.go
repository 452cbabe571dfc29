package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maxzerker/bacnet-rpc/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gateway over HTTP(S) until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		s, err := newStack(cfg, os.Stderr)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, s)
	},
}

func serve(ctx context.Context, s *stack) error {
	cfg := s.cfg
	options := httpapi.Options{
		Username:             cfg.HTTP.Username,
		Password:             cfg.HTTP.Password,
		Version:              version,
		Config:               cfg,
		DiscoveryMinInterval: cfg.HTTP.DiscoveryMinInterval,
		Logger:               s.log,
	}
	if s.metrics != nil {
		options.Metrics = s.metrics.Handler()
	}
	server := &http.Server{
		Addr:     cfg.HTTP.Listen,
		Handler:  httpapi.New(s.service, options).Handler(),
		ErrorLog: slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("HTTP server listening",
			slog.String("addr", cfg.HTTP.Listen),
			slog.Bool("tls", cfg.HTTP.TLS))
		var err error
		if cfg.HTTP.TLS {
			err = server.ListenAndServeTLS(cfg.HTTP.CertFile, cfg.HTTP.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	})
	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("shutting down", slog.Duration("timeout", cfg.HTTP.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
