package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mhso/intfar/internal/bot"
	"github.com/mhso/intfar/internal/config"
	"github.com/mhso/intfar/internal/metrics"
)

// shutdownTimeout bounds how long matches in progress may delay shutdown.
const shutdownTimeout = 2 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(cfg.LogLevel, cfg.LogFormat)

	log.Info().Msg("Starting Int-Far game monitor")

	rules, err := config.LoadRules(cfg.GameRulesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load game rules")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []bot.Option{
		bot.WithLogger(log.Logger),
		bot.WithMetrics(metrics.New(registry)),
	}

	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()
		opts = append(opts, bot.WithRedis(rdb))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cfg.MetricsAddr != "" {
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	b, err := bot.New(cfg, rules, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	if err := b.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start bot")
	}

	log.Info().Msg("Bot is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down, waiting for games in progress")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()

	if err := b.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
	if err := metricsServer.Shutdown(stopCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop metrics server")
	}

	log.Info().Msg("Bot stopped")
}

func setupLogging(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
}
