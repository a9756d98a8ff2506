package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	mcpserver "github.com/conorfennell/notetaker/internal/mcp"
	"github.com/conorfennell/notetaker/internal/metrics"
	"github.com/conorfennell/notetaker/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the note widget, JSON API and MCP tools over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		m := metrics.New()
		a, err := newApp(ctx, m)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := web.Options{Logger: log, Metrics: m}
		if cfg.MCP.Enabled {
			opts.MCP = server.NewStreamableHTTPServer(mcpserver.NewServer(a))
		}
		handler, err := web.NewServer(a, opts)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			log.Info("shutting down server...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Error("server shutdown error")
			}
		}()

		log.WithFields(logrus.Fields{
			"addr":    cfg.HTTP.Addr,
			"backend": cfg.Storage.Backend,
			"mcp":     cfg.MCP.Enabled,
		}).Info("server starting")

		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
