package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chris/whiskers/config"
	"github.com/chris/whiskers/internal/bootstrap"
	"github.com/chris/whiskers/internal/db"
	"github.com/chris/whiskers/internal/discord"
	"github.com/chris/whiskers/internal/invoke"
	"github.com/chris/whiskers/internal/scheduler"
	"github.com/chris/whiskers/internal/server"
	"github.com/chris/whiskers/internal/service"
	"github.com/chris/whiskers/pkg/logger"
)

const (
	retryPollInterval = 15 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

const usage = `usage: whiskers <command> [flags]

commands:
  run         run the daily announcements once
  serve       run on SCHEDULE_CRON and accept POST /invoke on HTTP_ADDR
  retry       redeliver messages queued in DEAD_LETTER_DB
  install     install "whiskers serve" as a launchd agent (macOS)
  uninstall   remove the launchd agent
`

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runOnce(log, os.Args[2:])
	case "serve":
		err = serve(log)
	case "retry":
		err = retry(log)
	case "install", "uninstall":
		err = launchd(os.Args[1])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error("whiskers failed", "err", err)
		os.Exit(1)
	}
}

func runOnce(log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	testMode := fs.Bool("test-mode", false, "log messages instead of posting them")
	date := fs.String("date", "", "pretend today is MM-DD for the birthday check")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ev := invoke.Event{TestDate: *date}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "test-mode" {
			ev.TestMode = testMode
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resp := bootstrap.NewHandler(log).HandleEvent(ctx, ev)
	fmt.Println(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("invocation returned status %d", resp.StatusCode)
	}
	return nil
}

func serve(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	handler := bootstrap.NewHandler(log)
	sched := scheduler.New(cfg.Timezone, log)
	err = sched.Schedule("daily", cfg.ScheduleCron, func(ctx context.Context) {
		resp := handler.HandleEvent(ctx, invoke.Event{})
		if resp.StatusCode != http.StatusOK {
			log.Error("scheduled run failed", "status", resp.StatusCode, "body", resp.Body)
		}
	})
	if err != nil {
		return err
	}

	if cfg.DeadLetterDB != "" && !cfg.TestMode {
		store, err := db.Open(cfg.DeadLetterDB)
		if err != nil {
			return fmt.Errorf("opening dead-letter store: %w", err)
		}
		defer store.Close()
		poster := discord.NewNotifier(cfg.Webhooks(), false, log)
		sched.WithRetries(store, poster, cfg.DeadLetterMaxRetries, retryPollInterval)
	}

	sched.Start()
	defer sched.Stop()

	srv := server.NewRouter(cfg.HTTPAddr, handler, log)
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info("shutting down", "signal", s.String())
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func retry(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DeadLetterDB == "" {
		return errors.New("DEAD_LETTER_DB is not set")
	}

	store, err := db.Open(cfg.DeadLetterDB)
	if err != nil {
		return fmt.Errorf("opening dead-letter store: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poster := discord.NewNotifier(cfg.Webhooks(), false, log)
	sum, err := scheduler.New(cfg.Timezone, log).
		WithRetries(store, poster, cfg.DeadLetterMaxRetries, 0).
		RetryFailed(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("delivered %d, still pending %d, gave up on %d\n", sum.Delivered, sum.Failed, sum.Dead)
	return nil
}

func launchd(cmd string) error {
	inst, err := service.Default()
	if err != nil {
		return err
	}
	if cmd == "uninstall" {
		if err := inst.Uninstall(); err != nil {
			return err
		}
		fmt.Println("uninstalled")
		return nil
	}
	if err := inst.Install(); err != nil {
		return err
	}
	fmt.Printf("installed %s, running %s serve\n", inst.PlistPath, inst.BinPath)
	return nil
}
