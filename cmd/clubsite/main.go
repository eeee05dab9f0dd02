package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/adapter/backend"
	httpadapter "github.com/Niall1001/EastDownYachtClub-sub000/internal/adapter/http"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/adapter/ics"
	kafkaadapter "github.com/Niall1001/EastDownYachtClub-sub000/internal/adapter/kafka"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/adapter/kvstore"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/adapter/openweather"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/calendar"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/config"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/observability"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/pipeline"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/weather"
)

// alwaysReady is the readiness check when no occurrence feed is running.
type alwaysReady struct{}

func (alwaysReady) CheckReadiness(context.Context) error { return nil }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	expander := domain.NewExpander(cfg.Location, logger)
	expander.MaxOccurrencesPerEvent = cfg.MaxOccurrencesPerEvent

	// Calendar: backend records expanded on every request.
	events := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, cfg.BackendUsername, cfg.BackendPassword, metrics, logger)
	feed := ics.Feed{
		Name:      cfg.ClubName,
		ProductID: cfg.CalendarProductID,
		UIDDomain: cfg.CalendarUIDDomain,
		EventURL:  cfg.EventURL,
		Location:  cfg.Location,
	}
	calendarSvc := calendar.NewService(events, expander, feed, metrics, logger)
	logger.Info("calendar configured", "backend", cfg.BackendURL, "timezone", cfg.DisplayTimezone)

	// Weather: cached client over the persistent store.
	store, closeStore, err := openWeatherStore(cfg)
	if err != nil {
		logger.Error("failed to open weather cache", "error", err)
		os.Exit(1)
	}
	provider := openweather.NewClient(cfg.WeatherAPIKey, cfg.WeatherBaseURL, cfg.WeatherTimeout, metrics, logger)
	weatherClient := weather.NewClient(provider, store, weather.Options{
		APIKeyConfigured: cfg.WeatherAPIKey != "",
		DefaultLat:       cfg.WeatherLat,
		DefaultLon:       cfg.WeatherLon,
		DefaultLocation:  cfg.WeatherLocation,
	}, metrics, logger)
	if cfg.WeatherAPIKey == "" {
		logger.Warn("WEATHER_API_KEY not set, serving mock weather")
	}

	var refresher *weather.Refresher
	if cfg.WeatherRefreshCron != "" {
		refresher, err = weather.NewRefresher(weatherClient, cfg.WeatherRefreshCron, cfg.WeatherTimeout, logger)
		if err != nil {
			logger.Error("failed to schedule weather refresh", "error", err)
			os.Exit(1)
		}
	}

	// Occurrence feed (feature-flagged via KAFKA_ENABLED).
	var (
		ready  httpadapter.ReadinessChecker = alwaysReady{}
		p      *pipeline.Pipeline
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p = pipeline.New(reader, pipeline.NewTransformer(expander, logger), writer, logger, metrics, cfg.BatchSize)
		ready = p
		logger.Info("occurrence feed enabled", "source", cfg.KafkaSourceTopic, "sink", cfg.KafkaSinkTopic)
	} else {
		logger.Info("occurrence feed disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, httpadapter.API{
		Calendar:           calendarSvc,
		Weather:            weatherClient,
		WeatherMockOnError: cfg.WeatherMockOnError,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	if refresher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			refresher.Start(ctx)
		}()
	}

	if p != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()

	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := closeStore(); err != nil {
		logger.Error("weather cache close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// openWeatherStore returns the file-backed store when WEATHER_CACHE_FILE is
// set so cached readings survive restarts, otherwise a bounded in-memory one.
func openWeatherStore(cfg *config.Config) (kvstore.Store, func() error, error) {
	if cfg.WeatherCacheFile == "" {
		return kvstore.NewMemory(cfg.WeatherCacheSize), func() error { return nil }, nil
	}
	f, err := kvstore.OpenFile(cfg.WeatherCacheFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
