package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/venueops-dev/shift-sync/backend/internal/audit"
	"github.com/venueops-dev/shift-sync/backend/internal/config"
	"github.com/venueops-dev/shift-sync/backend/internal/handler"
	"github.com/venueops-dev/shift-sync/backend/internal/idempotency"
	"github.com/venueops-dev/shift-sync/backend/internal/notifier"
	"github.com/venueops-dev/shift-sync/backend/internal/registry"
	"github.com/venueops-dev/shift-sync/backend/internal/roster"
	"github.com/venueops-dev/shift-sync/backend/internal/updater"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("无法加载场馆时区", "timezone", cfg.Timezone, "error", err)
		return
	}

	/**********************************************
	 * 连接数据库（审计日志使用 postgres 后端时）
	 **********************************************/
	var dbpool *sql.DB
	if cfg.Audit.Backend == "postgres" {
		dbpool, err = sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			logger.Error("无法创建数据库连接池", "error", err)
			return
		}
		defer dbpool.Close()

		dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
		defer cancel()

		// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
		if err := dbpool.PingContext(ctx); err != nil {
			logger.Error("无法连接到数据库", "error", err)
			return
		}
	}

	/**********************************************
	 * 连接 rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	// 建立通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer ch.Close()

	// 声明队列
	_, err = ch.QueueDeclare(
		notifier.AlertQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error("无法声明队列", "error", err)
		return
	}

	/**********************************************
	 * 选择幂等记录后端
	 **********************************************/
	pendingTTL := time.Duration(cfg.Idempotency.PendingTTLSeconds) * time.Second
	completedTTL := time.Duration(cfg.Idempotency.CompletedTTLSeconds) * time.Second

	var idemStore idempotency.Store
	if cfg.Idempotency.Backend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       0,
		})

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Redis.ConnectTimeout)*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("无法连接到 redis", "error", err)
			return
		}

		idemStore = idempotency.NewRedisStore(rdb, pendingTTL, completedTTL)
	} else {
		idemStore = idempotency.NewMemoryStore(pendingTTL, completedTTL)
	}

	/**********************************************
	 * 选择审计日志后端
	 **********************************************/
	var auditStore audit.Store
	if cfg.Audit.Backend == "postgres" {
		auditStore = audit.NewPostgresStore(cfg, dbpool)
	} else {
		auditStore = audit.NewMemoryStore()
	}
	recorder := audit.NewRecorder(auditStore, logger, time.Duration(cfg.Audit.RecordTimeout)*time.Second)

	/**********************************************
	 * 创建上游客户端与更新器
	 **********************************************/
	rosterClient := roster.NewHTTPClient(cfg)
	registryClient := registry.NewHTTPClient(cfg)
	upd := updater.New(rosterClient, logger, loc, cfg.Roster.FlatConcurrency)
	alertNotifier := notifier.New(ch, logger, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)

	/**********************************************
	 * 创建 handler
	 **********************************************/
	handler, err := handler.NewHandler(cfg, rosterClient, registryClient, upd, idemStore, auditStore, recorder, alertNotifier, loc)
	if err != nil {
		logger.Error("无法创建 handler", "error", err)
		return
	}
	handler.RegisterRoutes()

	/**********************************************
	 * 启动 HTTP 服务器
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      handler.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("正在启动服务器...", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("无法启动服务器", slog.String("error", err.Error()))
			return
		}
	}()

	<-quit
	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("关闭服务器失败", slog.String("error", err.Error()))
	}
	logger.Info("服务器已成功关闭")
}
