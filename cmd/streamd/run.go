package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"streamd/internal/fleet"
	"streamd/internal/httpapi"
	"streamd/internal/logging"
	"streamd/internal/manager"
	"streamd/internal/reactor"
	"streamd/internal/rover"
	"streamd/internal/sink"
	"streamd/internal/streamhub"
)

const shutdownTimeout = 5 * time.Second

func runServer(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	log.Logger = logger
	httpapi.SetLogger(logger)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)

	hub := streamhub.New(streamhub.WithLogger(logger))
	events := []manager.StreamEvent{hub}
	var redisSink *sink.Redis
	if cfg.Redis.Addr != "" {
		client := sink.Dial(cfg.Redis.Addr)
		defer client.Close()
		redisSink = sink.NewRedis(client, cfg.Redis.Channel, sink.WithLogger(logger))
		events = append(events, redisSink)
		logger.Info().Str("addr", cfg.Redis.Addr).Str("channel", cfg.Redis.Channel).Msg("publishing stream frames to redis")
	}

	fl, err := fleet.New(cfg.Managers, fleet.Options{
		Engine:        reactor.NewEngine(reactor.WithQueueSize(cfg.QueueSize), reactor.WithLogger(logger)),
		Workers:       rover.Factory(),
		Logger:        &logger,
		StreamEvent:   manager.MultiStreamEvent(events...),
		StopWarnAfter: cfg.StopWarnAfter.Duration,
	})
	if err != nil {
		return err
	}
	fl.StartAll()

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(fl, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Int("managers", len(cfg.Managers)).Msg("streamd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case serveErr = <-errc:
		logger.Error().Err(serveErr).Msg("server error")
	}

	// event streams are hijacked connections; Shutdown does not wait for them
	cancelBase()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	closeErr := fl.Close()
	if redisSink != nil {
		_ = redisSink.Close()
	}
	return errors.Join(serveErr, closeErr)
}
