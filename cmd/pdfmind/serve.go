package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"pdfmind/internal/logger"
	"pdfmind/internal/metrics"
	"pdfmind/internal/server"
	"pdfmind/internal/session"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser chat UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if cfg.Log.Production {
				gin.SetMode(gin.ReleaseMode)
			}
			log := logger.NewZapLogger(cfg.Log.File, cfg.Log.Production)
			defer func() { _ = log.Sync() }()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			deps, err := newDeps(cfg, os.Getenv, log, metrics.New(reg))
			if err != nil {
				return err
			}

			ttl := time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute
			registry := session.NewRegistry(deps, ttl)
			defer registry.Close()

			srv := server.New(registry, server.Options{
				Addr:           cfg.Server.Addr,
				MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
				SessionTTL:     ttl,
				Gatherer:       reg,
				Logger:         log,
			})
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
