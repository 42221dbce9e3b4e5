package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/kahani/internal/app"
	"github.com/abhisek/kahani/internal/httpapi"
	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTPAddr = addr
		}
		log, err := logger.New(cfg.LogMode)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer log.Sync()
		if cfg.LogMode == "prod" || cfg.LogMode == "production" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		topts := telemetry.OptionsFromEnv(version)
		shutdownTracing := telemetry.Init(ctx, log, topts)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				log.Warn("otel shutdown", "error", err)
			}
		}()

		dbPath, err := resolveDBPath(cmd, cfg)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		a, err := app.New(ctx, cfg, dbPath, log)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpapi.NewServer(a).Router(topts.ServiceName),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errc := make(chan error, 1)
		go func() {
			log.Info("http server listening", "addr", cfg.HTTPAddr, "db", dbPath, "model", a.Provider.ModelID())
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides KAHANI_HTTP_ADDR)")
}
