// Package main is the entry point for the commute advisory bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kaiyuhsu/commutebot/internal/commute"
	"github.com/kaiyuhsu/commutebot/internal/config"
	"github.com/kaiyuhsu/commutebot/internal/dialog"
	"github.com/kaiyuhsu/commutebot/internal/dispatch"
	"github.com/kaiyuhsu/commutebot/internal/line"
	"github.com/kaiyuhsu/commutebot/internal/notify"
	"github.com/kaiyuhsu/commutebot/internal/routing"
	"github.com/kaiyuhsu/commutebot/internal/scheduler"
	"github.com/kaiyuhsu/commutebot/internal/session"
	"github.com/kaiyuhsu/commutebot/internal/weather"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 30 * time.Second

	// panicReplyTimeout bounds the apology push after a recovered panic.
	panicReplyTimeout = 5 * time.Second
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	// A .env file is a development convenience; its absence is normal.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration failed", slog.Any("error", err))
		return 1
	}

	logger := newLogger(cfg.Debug)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("shutting down gracefully")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fatal error", slog.Any("error", err))
		return 1
	}
	return 0
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("commutebot starting",
		slog.String("listen_addr", cfg.ListenAddr),
		slog.String("timezone", cfg.Timezone))

	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := startComponents(ctx, c, logger); err != nil {
		return err
	}

	logger.Info("commutebot started, waiting for events")

	<-ctx.Done()

	// The parent context is already canceled; shutdown gets its own clock.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	shutdown(shutdownCtx, c, logger)
	return nil
}

// components holds everything with a lifecycle.
type components struct {
	server     *http.Server
	dispatcher *dispatch.Dispatcher
	jobs       *scheduler.Daily
	sweeper    *session.Sweeper
}

// reminderSchedulerAdapter narrows the daily scheduler to the slice the
// dialogue machine needs.
type reminderSchedulerAdapter struct {
	jobs *scheduler.Daily
}

func (a *reminderSchedulerAdapter) Schedule(
	id string,
	hour, minute int,
	loc *time.Location,
	fire func(ctx context.Context) error,
) error {
	return a.jobs.Schedule(scheduler.Job{
		ID:       id,
		Name:     "commute-reminder-" + id,
		Hour:     hour,
		Minute:   minute,
		Location: loc,
		Handler:  scheduler.JobHandlerFunc{Fn: fire, JobName: "commute-reminder-" + id},
	})
}

// eventSink bridges webhook deliveries onto the per-user dispatcher. The
// webhook's 200 never waits on dialogue work.
type eventSink struct {
	dispatcher *dispatch.Dispatcher
	machine    *dialog.Machine
	replier    *line.Client
	logger     *slog.Logger
}

func (s *eventSink) Submit(ev line.Event) {
	err := s.dispatcher.Submit(ev.UserID, func(ctx context.Context) {
		reply := s.machine.Handle(ctx, ev)
		if reply == "" {
			return
		}
		if err := s.replier.Reply(ctx, ev.ReplyToken, reply); err != nil {
			s.logger.Error("reply delivery failed",
				slog.String("user_id", ev.UserID),
				slog.Any("error", err))
		}
	})
	if err != nil {
		s.logger.Warn("event dropped",
			slog.String("user_id", ev.UserID),
			slog.Any("error", err))
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*components, error) {
	// Outbound channel client, shared by replies and pushes.
	lineClient, err := line.NewClient(cfg.ChannelToken, line.WithClientLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating messaging client: %w", err)
	}

	// Routing and the commute estimator on top of it.
	routes, err := routing.NewClient(cfg.MapsAPIKey, cfg.Language,
		routing.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		routing.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating routing client: %w", err)
	}
	estimator := commute.NewEstimator(routes, commute.WithLogger(logger))

	// Weather branch.
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	geocoder := weather.NewGeocoder(weather.WithGeocoderHTTP(httpClient))
	forecast := weather.NewForecastClient(cfg.WeatherAPIKey, weather.WithForecastHTTP(httpClient))
	weatherService := weather.NewService(geocoder, forecast, logger)

	// Dialogue state, completed plans, and idle-session eviction.
	sessions := session.NewStore()
	plans := session.NewPlanStore()
	sweeper := session.NewSweeper(sessions, logger)

	jobs := scheduler.NewDaily(scheduler.WithLogger(logger))
	notifier := notify.NewDispatcher(lineClient, logger)

	machine := dialog.NewMachine(
		sessions, plans, estimator,
		&reminderSchedulerAdapter{jobs: jobs},
		weatherService, notifier,
		cfg.Location,
		dialog.WithMachineLogger(logger),
	)

	dispatcher := dispatch.New(ctx,
		dispatch.WithLogger(logger),
		dispatch.WithPanicNotifier(func(userID string) {
			pushCtx, pushCancel := context.WithTimeout(context.Background(), panicReplyTimeout)
			defer pushCancel()
			if pushErr := lineClient.Push(pushCtx, userID, "Something went wrong on our side. Please start over."); pushErr != nil {
				logger.Error("panic apology delivery failed",
					slog.String("user_id", userID),
					slog.Any("error", pushErr))
			}
		}))

	sink := &eventSink{
		dispatcher: dispatcher,
		machine:    machine,
		replier:    lineClient,
		logger:     logger,
	}

	webhook, err := line.NewWebhook(cfg.ChannelSecret, sink, line.WithWebhookLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating webhook: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/callback", webhook)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &components{
		server:     server,
		dispatcher: dispatcher,
		jobs:       jobs,
		sweeper:    sweeper,
	}, nil
}

func startComponents(ctx context.Context, c *components, logger *slog.Logger) error {
	if err := c.jobs.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	if err := c.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("starting session sweeper: %w", err)
	}

	go func() {
		logger.Info("webhook listening", slog.String("addr", c.server.Addr))
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
		}
	}()

	return nil
}

func shutdown(ctx context.Context, c *components, logger *slog.Logger) {
	logger.Info("shutting down components")

	// Stop accepting webhooks first, then drain in-flight dialogue work,
	// then the background services.
	if err := c.server.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown incomplete", slog.Any("error", err))
	}

	deadline := ShutdownTimeout
	if d, ok := ctx.Deadline(); ok {
		deadline = time.Until(d)
	}
	if err := c.dispatcher.Shutdown(deadline); err != nil {
		logger.Warn("dispatcher shutdown incomplete", slog.Any("error", err))
	}

	if err := c.jobs.Stop(); err != nil {
		logger.Warn("scheduler stop failed", slog.Any("error", err))
	}
	c.sweeper.Stop()

	logger.Info("shutdown complete")
}
