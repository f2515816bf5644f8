package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ijikeman/stockmanager/config"
	"github.com/ijikeman/stockmanager/data"
	"github.com/ijikeman/stockmanager/data/cache"
	"github.com/ijikeman/stockmanager/data/repository"
	"github.com/ijikeman/stockmanager/internal/externalApi/yahooFinanceApi"
	"github.com/ijikeman/stockmanager/internal/reportGenerator/xlsxGenerator"
	"github.com/ijikeman/stockmanager/internal/scheduler"
	"github.com/ijikeman/stockmanager/internal/service/stockManagerService"
	"github.com/ijikeman/stockmanager/internal/transport/rest"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := repository.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	financeApi := yahooFinanceApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	stockManagerSrv := stockManagerService.New(pgRepo, redisCache, financeApi, reportGenerator)

	sched := scheduler.New()
	sched.NewIntervalJob("refresh stock quotes", stockManagerSrv.RefreshStockQuotes, cfg.Jobs.RefreshQuotesInterval, true)
	sched.Start()
	defer sched.Stop()

	controller := rest.NewController(stockManagerSrv)
	app := rest.NewRouter(controller)

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			slog.Error("http server stopped", slog.String("err", err.Error()))
		}
	}()
	slog.Info("http server started", slog.Int("port", cfg.HTTP.Port))

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	if err := app.ShutdownWithTimeout(cfg.HTTP.ShutdownTimeout); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
