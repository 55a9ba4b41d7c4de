package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyRemindCmd, notifyDigestCmd)
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Run one notification tick now",
}

var notifyRemindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send reminders for events starting within the look-ahead window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNotify(func(ctx context.Context, a *app) (int, error) {
			return a.notifier.Remind(ctx)
		})
	},
}

var notifyDigestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send today's agenda",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNotify(func(ctx context.Context, a *app) (int, error) {
			return a.notifier.Digest(ctx)
		})
	},
}

func runNotify(tick func(context.Context, *app) (int, error)) error {
	cfg := loadConfig()
	setupLogging(cfg)

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	if cfg.Notify.Recipient == "" {
		return fmt.Errorf("notify.recipient is not set")
	}
	n, err := tick(ctx, a)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Sent %d message(s) to %s.\n", n, recipientKey(cfg.Notify.Recipient))
	return nil
}
