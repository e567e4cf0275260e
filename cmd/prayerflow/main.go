package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	gormlogger "gorm.io/gorm/logger"

	"prayerflow/internal/bot"
	"prayerflow/internal/config"
	httpserver "prayerflow/internal/http"
	"prayerflow/internal/logger"
	"prayerflow/internal/prayer"
	"prayerflow/internal/repository"
	"prayerflow/internal/service"
	"prayerflow/internal/ws"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", "err", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	gin.SetMode(cfg.GinMode)

	dbLevel := gormlogger.Warn
	if cfg.LogLevel == "debug" {
		dbLevel = gormlogger.Info
	}
	db, err := repository.NewDB(cfg.DatabasePath, repository.Options{LogLevel: dbLevel})
	if err != nil {
		logger.Fatal("cannot open task database", "path", cfg.DatabasePath, "err", err)
	}
	store := repository.NewTaskStore(db)
	defer store.Close()
	logger.Info("task database ready", "path", cfg.DatabasePath)

	hub := ws.NewHub(cfg.AllowedOrigin)
	defer hub.Close()

	taskSvc := service.NewTaskService(store, hub)
	reminderSvc := service.NewReminderService(taskSvc)

	var prayerSvc *service.PrayerService
	if cfg.PrayerEnabled {
		loc := cfg.PrayerLocation()
		prayerSvc = service.NewPrayerService(prayer.NewClient(prayer.Config{
			BaseURL:   cfg.PrayerAPIURL,
			Latitude:  cfg.PrayerLatitude,
			Longitude: cfg.PrayerLongitude,
			Method:    cfg.PrayerMethod,
			Location:  loc,
		}), loc)
		logger.Info("prayer times enabled", "lat", cfg.PrayerLatitude, "lng", cfg.PrayerLongitude, "method", cfg.PrayerMethod)
	}

	router := httpserver.NewRouter(taskSvc, httpserver.Options{
		Version:       version,
		AllowedOrigin: cfg.AllowedOrigin,
		Events:        hub,
		Prayers:       prayerSvc,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", "addr", cfg.HTTPAddr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if cfg.TelegramEnabled() {
		startTelegram(ctx, cfg, taskSvc, reminderSvc, prayerSvc)
	}

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server failed", "err", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	logger.Info("shutdown complete")
}

// startTelegram runs the chat shell, its daily report and prayer alerts in the
// background. A failing bot never takes the HTTP API down with it.
func startTelegram(ctx context.Context, cfg config.Config, taskSvc *service.TaskService, reminderSvc *service.ReminderService, prayerSvc *service.PrayerService) {
	telegramBot, err := bot.New(cfg.TelegramToken, cfg.TelegramChatID, taskSvc, reminderSvc, prayerSvc)
	if err != nil {
		logger.Error("telegram disabled", "err", err)
		return
	}

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleDaily(cfg.ReportTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := telegramBot.SendDailyReport(jobCtx); err != nil {
			logger.Warn("daily report", "err", err)
		}
	}); err != nil {
		logger.Error("schedule daily report", "err", err)
	}

	if prayerSvc != nil {
		alerter := service.NewPrayerAlerter(prayerSvc, telegramBot.SendPrayerAlert)
		if _, err := scheduler.ScheduleInterval(time.Minute, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := alerter.Check(jobCtx); err != nil {
				logger.Warn("prayer alert", "err", err)
			}
		}); err != nil {
			logger.Error("schedule prayer alerts", "err", err)
		}
	}

	if scheduler.Jobs() > 0 {
		scheduler.Start()
		go func() {
			<-ctx.Done()
			scheduler.Stop()
		}()
	}

	go func() {
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("telegram bot stopped", "err", err)
		}
	}()
}
