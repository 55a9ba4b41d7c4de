package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/agendabot/internal/gateway"
	"github.com/user/agendabot/internal/scheduler"
	"github.com/user/agendabot/internal/telegram"
	"github.com/user/agendabot/internal/types"
	"github.com/user/agendabot/internal/webhook"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agendabot daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "agendabot.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	// Gateway: every inbound message gets exactly one reply through the
	// delivery registry.
	gw := gateway.New(func(ctx context.Context, msg types.Message) error {
		return a.dispatcher.Process(ctx, msg).Err
	}, int64(cfg.MaxConcurrent))
	gw.Start(ctx)
	defer gw.Stop()

	slog.Info("agendabot started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"max_concurrent", cfg.MaxConcurrent,
		"calendar", a.calName,
		"timezone", a.loc.String(),
		"parser_fallback", cfg.Parser.Fallback,
		"pid_file", pidPath,
	)

	// Telegram adapter
	if cfg.Telegram.Token != "" {
		adapter, err := telegram.New(cfg.Telegram.Token, gw.HandleInbound)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		a.delivery.Register(telegram.Channel+":", adapter.SendTo)
		go adapter.Start(ctx)
		slog.Info("telegram adapter started")
	} else {
		slog.Warn("telegram adapter disabled (no token)")
	}

	// Scheduler
	sched := scheduler.New(a.loc)
	if err := sched.Add("remind", cfg.Notify.ReminderSchedule, func(ctx context.Context) error {
		n, err := a.notifier.Remind(ctx)
		if n > 0 {
			slog.Info("reminders sent", "count", n)
		}
		return err
	}); err != nil {
		return err
	}
	if err := sched.Add("digest", cfg.Notify.DigestSchedule, func(ctx context.Context) error {
		_, err := a.notifier.Digest(ctx)
		return err
	}); err != nil {
		return err
	}
	if cfg.Notify.Recipient == "" {
		slog.Warn("notify.recipient is empty, reminders and digests go nowhere")
	}
	sched.Start()
	defer sched.Stop()
	for _, e := range sched.Entries() {
		slog.Info("job scheduled", "job", e.Name, "schedule", e.Schedule, "next", e.Next)
	}

	if cfg.HTTP.Enabled {
		srv := webhook.NewServer(gw.HandleInbound, func(ctx context.Context, msg types.Message) (string, error) {
			res := a.dispatcher.Handle(ctx, msg)
			return res.Reply, res.Err
		}, webhook.WithReplies(a.delivery))
		stopHTTP := startHTTP(cfg.HTTP.Listen, srv)
		defer stopHTTP()
	}

	return awaitSignal(pidPath, cfg.DataDir)
}

// startHTTP serves h on addr in the background. The returned func drains
// in-flight requests for up to five seconds.
func startHTTP(addr string, h http.Handler) func() {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("webhook server started", "listen", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("webhook server error", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Warn("webhook server shutdown", "error", err)
		}
	}
}

// awaitSignal blocks until SIGINT or SIGTERM. SIGHUP re-executes the binary
// in place so a new config takes effect; the PID file is rewritten if that
// fails.
func awaitSignal(pidPath, dataDir string) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig != syscall.SIGHUP {
			slog.Info("shutting down", "signal", sig)
			return nil
		}
		slog.Info("received SIGHUP, restarting")
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			continue
		}
		os.Remove(pidPath)
		err = syscall.Exec(execPath, os.Args, os.Environ())
		slog.Error("failed to re-exec", "error", err)
		if _, err := writePIDFile(dataDir); err != nil {
			slog.Error("failed to re-write PID file", "error", err)
		}
	}
	return nil
}
