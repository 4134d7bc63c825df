package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	service "github.com/okian/ech0client/internal/app"
	"github.com/okian/ech0client/internal/client"
	"github.com/okian/ech0client/internal/config"
	"github.com/okian/ech0client/internal/notify"
	"github.com/okian/ech0client/internal/session"
	"github.com/okian/ech0client/pkg/logger"
	"github.com/okian/ech0client/pkg/metrics"
)

func main() {
	help := flag.Bool("help", false, "Show help")
	flag.Parse()
	if *help || flag.NArg() == 0 {
		showHelp(os.Stdout)
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error(ctx, "metrics server failed", logger.Error(err))
			}
		}()
	}

	if err := run(ctx, cfg, flag.Args(), os.Stdout, log); err != nil {
		log.Error(ctx, "command failed", logger.String("command", flag.Arg(0)), logger.Error(err))
		if errors.Is(err, errUsage) {
			showHelp(os.Stderr)
		}
		os.Exit(1)
	}
}

// run wires the session, notifier, client and service for one command.
func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer, log logger.Logger) error {
	store := session.New(session.WithLogger(log))
	if cfg.SessionFile != "" {
		if err := store.Load(ctx, cfg.SessionFile); err != nil {
			return err
		}
	}

	toasts := notify.NewQueue(notify.WithCapacity(cfg.NotifyQueueSize))
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		notify.Drain(ctx, toasts, log.Named("toast"))
	}()

	c, err := client.New(
		client.WithBaseURL(cfg.BaseAPI),
		client.WithTimeout(cfg.Timeout()),
		client.WithTokenSource(store),
		client.WithNotifier(toasts),
		client.WithLogger(log.Named("client")),
	)
	if err != nil {
		_ = toasts.Close()
		return err
	}
	svc, err := service.New(
		service.WithClient(c),
		service.WithSession(store),
		service.WithLogger(log.Named("service")),
		service.WithCredentials(cfg.IncludeCredentials),
	)
	if err != nil {
		_ = toasts.Close()
		return err
	}

	cmdErr := dispatch(ctx, svc, args, out)

	_ = toasts.Close()
	<-drained

	if cfg.SessionFile != "" {
		if err := store.Save(ctx, cfg.SessionFile); err != nil {
			return errors.Join(cmdErr, err)
		}
	}
	return cmdErr
}
