package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"simtelemetry/pkg/config"
	"simtelemetry/pkg/console"
	"simtelemetry/pkg/drivers"
	"simtelemetry/pkg/laps"
	"simtelemetry/pkg/logging"
	"simtelemetry/pkg/notification"
	"simtelemetry/pkg/pubsub"
	"simtelemetry/pkg/source"
	"simtelemetry/pkg/telemetry"
	"simtelemetry/pkg/webserver"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "simtelemetry:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("simtelemetry", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := flags.ConfigPath
	if path == "" {
		path = os.Getenv("SIMTELEMETRY_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	logger, closer, err := logging.New(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := drivers.Build(cfg.Drivers, logger)
	if err != nil {
		return err
	}
	events := pubsub.NewPubSub[source.Event]()
	hub := telemetry.NewHub()
	svc := telemetry.NewService(hub, ds, telemetry.ServiceOptions{
		Period:            cfg.Ingest.Period,
		IdleProbeInterval: cfg.Ingest.IdleProbeInterval,
		Logger:            logger,
		Events:            events,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })

	var lapStore *laps.Store
	if cfg.Laps.Enabled {
		if lapStore, err = laps.Open(cfg.Laps.Path); err != nil {
			return err
		}
		defer lapStore.Close()
		recorder := laps.NewRecorder(hub, lapStore, cfg.Laps.SampleInterval, logger)
		g.Go(func() error { return recorder.Run(ctx) })
	}

	if cfg.Webserver.Enabled {
		opts := webserver.Options{
			Addr:         cfg.Webserver.Addr,
			PushInterval: cfg.Webserver.PushInterval,
			Logger:       logger,
		}
		if lapStore != nil {
			opts.Laps = lapStore
		}
		web := webserver.NewManager(hub, svc, opts)
		g.Go(func() error { return web.Serve(ctx) })
	}

	if cfg.Console.Enabled {
		dumper := console.NewDumper(hub, svc, stdout, cfg.Console.Interval, logger)
		g.Go(func() error { return dumper.Run(ctx) })
	}

	if cfg.Telegram.Token != "" && len(cfg.Telegram.ChatIDs) > 0 {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return errors.Wrap(err, "telegram")
		}
		notifier := notification.NewTelegramManager(bot, cfg.Telegram.ChatIDs, logger)
		ch := events.Subscribe(source.EventsTopic, 16)
		g.Go(func() error { return notifier.Run(ctx, ch) })
	}

	logger.Info("simtelemetry started", "drivers", len(ds), "period", cfg.Ingest.Period)
	err = g.Wait()
	logger.Info("simtelemetry stopped")
	return err
}
