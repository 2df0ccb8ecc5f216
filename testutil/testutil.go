// Package testutil 测试用的 sqlite 数据库和种子数据
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/studieren/mindjournal/config"
	"github.com/studieren/mindjournal/gormtool"
	"github.com/studieren/mindjournal/logger"
	"github.com/studieren/mindjournal/models"
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

// DB 每个测试一个独立的 sqlite 文件
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := filepath.Join(tb.TempDir(), "journal.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gormtool.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, Logger(tb))
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	if err := gormtool.AutoMigrate(db); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CRUD 不带 Redis 的 CRUDTool
func CRUD(tb testing.TB) *gormtool.CRUDTool {
	tb.Helper()
	return gormtool.NewCRUDTool(DB(tb), nil, Logger(tb), 0)
}

// Redis 进程内的 miniredis，测试结束自动关闭
func Redis(tb testing.TB) (*miniredis.Miniredis, *redis.Client) {
	tb.Helper()
	mr := miniredis.RunT(tb)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// CRUDWithRedis 带缓存的 CRUDTool
func CRUDWithRedis(tb testing.TB) (*gormtool.CRUDTool, *miniredis.Miniredis) {
	tb.Helper()
	mr, rdb := Redis(tb)
	return gormtool.NewCRUDTool(DB(tb), rdb, Logger(tb), time.Minute), mr
}

func SeedUser(tb testing.TB, ctx context.Context, db *gorm.DB, id, email string) *models.User {
	tb.Helper()
	u := &models.User{ID: id, Email: email, Name: "Test User"}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func Date(tb testing.TB, s string) time.Time {
	tb.Helper()
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		tb.Fatalf("parse date %q: %v", s, err)
	}
	return d
}
