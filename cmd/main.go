package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/app/registry"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/app/server"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/app/worker"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/config"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/contracts"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/services"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/platform/logger"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/platform/telemetry"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/plugins/mailer"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/plugins/postgres"
	redisPlugin "github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/plugins/redis"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/plugins/twilio"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "err", err)
		return
	}
	log.Info("postgres connected")
	var rdb *goredis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	log.Info("redis connected")

	// Adapters
	userRepo := postgres.NewUserRepo(pdb)
	convRepo := postgres.NewConversationRepo(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	statusRepo := postgres.NewDeliveryStatusRepo(pdb)
	callRepo := postgres.NewCallRepo(pdb)
	notifRepo := postgres.NewNotificationRepo(pdb)
	txManager := postgres.NewTxManager(pdb)
	jobQueue := redisPlugin.NewRedisJobQueue(rdb, log, cfg.Worker.DedupTTL)
	sms := twilio.NewTwilioClient(cfg.Twilio)
	email := mailer.NewHTTPMailer(cfg.Mailer)

	// Registry + cross-instance fan-out
	hub := registry.NewRegistry()
	var pusher contracts.EventPusher = hub
	if cfg.Fanout.Mode == "redis" {
		bridge := redisPlugin.NewEventBridge(rdb, hub, log)
		go func() {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("fanout bridge stopped", "err", err)
			}
		}()
		pusher = bridge
	}

	// Core Services
	tokenSvc := services.NewTokenService(cfg.JWTSecret)
	authSvc := services.NewAuthService(log, tokenSvc, userRepo)
	msgSvc := services.NewMessageService(log, convRepo, msgRepo, statusRepo, userRepo, hub, pusher, txManager)
	callSvc := services.NewCallService(log, callRepo, convRepo, pusher)
	notifSvc := services.NewNotificationService(log, notifRepo, userRepo, jobQueue, pusher, email, sms)

	// Worker
	wrkr := worker.NewNotificationWorker(log, jobQueue, notifSvc, cfg.Worker.Group, cfg.Worker.MaxAttempts, cfg.Worker.BackoffBase)
	if err := wrkr.Run(ctx); err != nil {
		log.Error("worker start failed", "err", err)
		return
	}

	// Scheduler
	sched := services.NewReminderScheduler(log, userRepo, notifSvc, cfg.Scheduler.Interval, cfg.Scheduler.ReminderHour)
	go sched.Run(ctx)

	// Server
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Addr, tokenSvc, authSvc, msgSvc, callSvc, notifSvc, hub)
	if err := srv.Start(); err != nil {
		log.Error("server stopped", "err", err)
	}
}
