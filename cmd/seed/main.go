package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/venueops-dev/shift-sync/backend/internal/audit"
	"github.com/venueops-dev/shift-sync/backend/internal/config"
	"github.com/venueops-dev/shift-sync/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 创建审计日志表, 2: 插入随机审计记录)")
	flag.IntVar(&n, "n", 20, "要插入的记录数量")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
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

	store := audit.NewPostgresStore(cfg, dbpool)

	switch op {
	case 1:
		if err := store.EnsureSchema(context.Background()); err != nil {
			logger.Error("创建审计日志表失败", "error", err)
			return
		}
		logger.Info("审计日志表已就绪")
	case 2:
		if err := seed.InsertRandomAuditEntries(context.Background(), store, n); err != nil {
			logger.Error("插入随机审计记录失败", "error", err)
			return
		}
		logger.Info("随机审计记录已插入", "count", n)
	default:
		logger.Error("未知的操作", "op", op)
	}
}
