package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	httpapi "taskmarket.com/engagement/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the engagement HTTP API and the notification worker pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a := newApp(ctx, cfg)

		e := echo.New()
		e.HideBanner = true

		handler := httpapi.NewHandler(httpapi.HandlerDeps{
			Tasks:         a.tasks,
			Bids:          a.bids,
			Bookings:      a.bookings,
			Checklists:    a.checklists,
			Escrow:        a.escrow,
			Audit:         a.audit,
			Notifications: a.notifications,
			Hub:           a.hub,
			Logger:        a.log,
		})
		httpapi.Register(e, handler, cfg.RateLimit)

		go func() {
			a.log.Info("HTTP server listening", "addr", cfg.AppURL)
			if err := e.Start(cfg.AppURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("server stopped", "error", err)
				stop()
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()

		_ = e.Shutdown(shutdownCtx)
		a.close(shutdownCtx)

		a.log.Info("HTTP server and notification workers shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
