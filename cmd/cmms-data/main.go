package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cmms-data/internal/config"
	"cmms-data/internal/database"
	httpapi "cmms-data/internal/http"
	"cmms-data/internal/logger"
	"cmms-data/internal/mqtt"
	"cmms-data/internal/repository"
	"cmms-data/internal/service"
	"cmms-data/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "cmms-data")
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	// Redis：聊天未读计数/已读回执。连不上时退化为进程内 KV。
	var kv store.KV
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("Redis unavailable, falling back to in-memory KV", zap.Error(err))
		kv = store.NewMemoryKV()
	} else {
		kv = store.NewRedisKV(redisClient)
	}

	// 仓储：DB 可用走 Postgres，否则内存实现支持联测
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for cmms-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repositories", zap.Error(err))
		}
	}

	var (
		schedulesRepo   repository.SchedulesRepository
		recordsRepo     repository.RecordsRepository
		departmentsRepo repository.DepartmentsRepository
		employeesRepo   repository.EmployeesRepository
		assetsRepo      repository.AssetsRepository
		ticketsRepo     repository.TicketsRepository
		noticesRepo     repository.NoticesRepository
		partsRepo       repository.PartsRepository
		chatRepo        repository.ChatRepository
		shiftsRepo      repository.ShiftsRepository
	)
	if db != nil {
		schedulesRepo = repository.NewPostgresSchedulesRepo(db)
		recordsRepo = repository.NewPostgresRecordsRepo(db)
		departmentsRepo = repository.NewPostgresDepartmentsRepo(db)
		employeesRepo = repository.NewPostgresEmployeesRepo(db)
		assetsRepo = repository.NewPostgresAssetsRepo(db)
		ticketsRepo = repository.NewPostgresTicketsRepo(db)
		noticesRepo = repository.NewPostgresNoticesRepo(db)
		partsRepo = repository.NewPostgresPartsRepo(db)
		chatRepo = repository.NewPostgresChatRepo(db)
		shiftsRepo = repository.NewPostgresShiftsRepo(db)
	} else {
		schedulesRepo = repository.NewMemorySchedulesRepo()
		recordsRepo = repository.NewMemoryRecordsRepo()
		departmentsRepo = repository.NewMemoryDepartmentsRepo()
		employeesRepo = repository.NewMemoryEmployeesRepo()
		assetsRepo = repository.NewMemoryAssetsRepo()
		ticketsRepo = repository.NewMemoryTicketsRepo()
		noticesRepo = repository.NewMemoryNoticesRepo()
		partsRepo = repository.NewMemoryPartsRepo()
		chatRepo = repository.NewMemoryChatRepo()
		shiftsRepo = repository.NewMemoryShiftsRepo()
	}

	// Webhook 事件推送（可选）
	events := service.NewEventClient(cfg.Webhook.URL, time.Duration(cfg.Webhook.Timeout)*time.Second, log)

	// MQTT 通知广播（可选）
	var broadcaster service.NoticeBroadcaster
	var mqttPub *mqtt.Publisher
	if cfg.MQTT.Enabled {
		if p, err := mqtt.NewPublisher(&cfg.MQTT); err == nil {
			mqttPub = p
			broadcaster = p
			log.Info("MQTT notice broadcast enabled", zap.String("topic", cfg.MQTT.Topic))
		} else {
			log.Warn("MQTT enabled but connection failed, notices will not broadcast", zap.Error(err))
		}
	}

	workflowSvc := service.NewWorkflowService(schedulesRepo, recordsRepo, assetsRepo, events, log)
	noticeSvc := service.NewNoticeService(noticesRepo, broadcaster, cfg.MQTT.Topic, events, log)
	chatSvc := service.NewChatService(chatRepo, employeesRepo, kv, log)

	router := httpapi.NewRouter(log)
	router.RegisterWorkflowRoutes(workflowSvc)
	router.RegisterResourceRoutes(
		httpapi.NewDepartmentsHandler(departmentsRepo),
		httpapi.NewEmployeesHandler(employeesRepo),
		httpapi.NewAssetsHandler(assetsRepo),
		httpapi.NewTicketsHandler(ticketsRepo),
		httpapi.NewNoticesHandler(noticeSvc),
		httpapi.NewPartsHandler(partsRepo),
		httpapi.NewChatHandler(chatSvc),
		httpapi.NewShiftsHandler(shiftsRepo, employeesRepo),
	)
	router.RegisterHealthRoutes(func() error {
		if db != nil {
			return db.Ping()
		}
		return nil
	})

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server exited", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if mqttPub != nil {
		mqttPub.Disconnect()
	}
	if db != nil {
		_ = db.Close()
	}
}
