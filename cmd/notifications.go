package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var drainTimeout time.Duration

var requeueCmd = &cobra.Command{
	Use:   "requeue-notifications",
	Short: "Deliver notifications left pending by a previous run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		cfg.NotifyRequeueSeconds = 0

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a := newApp(ctx, cfg)

		queued := a.notifications.RequeuePending(ctx)
		a.log.Info("pending notifications queued", "count", queued)

		drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
		defer cancel()
		a.close(drainCtx)
		return nil
	},
}

func init() {
	requeueCmd.Flags().DurationVar(&drainTimeout, "timeout", 30*time.Second, "how long to wait for delivery")
	rootCmd.AddCommand(requeueCmd)
}
