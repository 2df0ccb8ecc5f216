// gormtool\crud.go
package gormtool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/studieren/mindjournal/logger"
)

// 常量定义
const (
	DefaultCacheTTL = 5 * time.Minute
)

// QueryCondition 查询条件结构
type QueryCondition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"` // =, !=, >, <, >=, <=
	Value    interface{} `json:"value"`
}

// SortCondition 排序条件
type SortCondition struct {
	Field     string `json:"field"`
	Direction string `json:"direction"` // ASC, DESC
}

// QueryBuilder 查询构建器
type QueryBuilder struct {
	Conditions []QueryCondition `json:"conditions"`
	Sorts      []SortCondition  `json:"sorts"`
}

// CRUDTool 数据库 + 缓存 + 日志
type CRUDTool struct {
	DB          *gorm.DB
	RedisClient *redis.Client
	Logger      *logger.Logger
	EnableLog   bool
	CacheTTL    time.Duration
}

// DatabaseStats 数据库统计信息结构体
type DatabaseStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
	MaxIdleClosed      int64         `json:"max_idle_closed"`
	MaxLifetimeClosed  int64         `json:"max_lifetime_closed"`
}

// NewCRUDTool redisClient 可以为 nil（不使用缓存）
func NewCRUDTool(db *gorm.DB, redisClient *redis.Client, log *logger.Logger, cacheTTL time.Duration) *CRUDTool {
	if log == nil {
		log = logger.Nop()
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &CRUDTool{
		DB:          db,
		RedisClient: redisClient,
		Logger:      log.With("component", "gormtool"),
		EnableLog:   true,
		CacheTTL:    cacheTTL,
	}
}

// LogOperation 记录操作日志
// 失败记为 error，成功记为 debug
//
//	t.LogOperation(ctx, "get_by_id", &models.Reflection{}, time.Since(start), err,
//		map[string]interface{}{"id": id})
func (t *CRUDTool) LogOperation(ctx context.Context, operation string, model interface{}, duration time.Duration, err error, additionalFields map[string]interface{}) {
	if !t.EnableLog {
		return
	}

	fields := []interface{}{
		"operation", operation,
		"duration", duration.String(),
		"model", fmt.Sprintf("%T", model),
	}
	for k, v := range additionalFields {
		fields = append(fields, k, v)
	}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		fields = append(fields, "error", err.Error())
		t.Logger.Error("操作失败", fields...)
		return
	}
	t.Logger.Debug("操作成功", fields...)
}

// 事务相关方法
type TxFunc func(tx *gorm.DB) error

// WithTransaction 执行事务
func (t *CRUDTool) WithTransaction(ctx context.Context, fn TxFunc) error {
	return t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

// Conn 传入的事务为 nil 时使用默认连接
func (t *CRUDTool) Conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		tx = t.DB
	}
	return tx.WithContext(ctx)
}

// 缓存相关方法
func (t *CRUDTool) GenerateCacheKey(model interface{}, id interface{}) string {
	return fmt.Sprintf("%T:%v", model, id)
}

func (t *CRUDTool) GetFromCache(ctx context.Context, key string, result interface{}) bool {
	if t.RedisClient == nil {
		return false
	}

	data, err := t.RedisClient.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			t.Logger.Warn("读取缓存失败", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal([]byte(data), result); err != nil {
		return false
	}

	return true
}

func (t *CRUDTool) SetToCache(ctx context.Context, key string, data interface{}) error {
	if t.RedisClient == nil {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return t.RedisClient.Set(ctx, key, jsonData, t.CacheTTL).Err()
}

func (t *CRUDTool) DeleteFromCache(ctx context.Context, key string) error {
	if t.RedisClient == nil {
		return nil
	}

	return t.RedisClient.Del(ctx, key).Err()
}

// BuildQuery 只支持比较运算符，未知的运算符直接忽略
func (t *CRUDTool) BuildQuery(db *gorm.DB, qb *QueryBuilder) *gorm.DB {
	if qb == nil {
		return db
	}

	// 构建条件
	for _, cond := range qb.Conditions {
		switch cond.Operator {
		case "=", "!=", ">", "<", ">=", "<=":
			db = db.Where(fmt.Sprintf("%s %s ?", cond.Field, cond.Operator), cond.Value)
		}
	}

	// 构建排序
	for _, sort := range qb.Sorts {
		db = db.Order(fmt.Sprintf("%s %s", sort.Field, sort.Direction))
	}

	return db
}

// Ping 检查数据库和 Redis 是否可用
func (t *CRUDTool) Ping(ctx context.Context) error {
	sqlDB, err := t.DB.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if t.RedisClient != nil {
		if err := t.RedisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}
	return nil
}

// Stats 获取性能指标
func (t *CRUDTool) Stats(ctx context.Context) map[string]interface{} {
	metrics := map[string]interface{}{}

	// 获取数据库统计信息
	if sqlDB, err := t.DB.DB(); err == nil {
		stats := sqlDB.Stats()
		metrics["database"] = DatabaseStats{
			MaxOpenConnections: stats.MaxOpenConnections,
			OpenConnections:    stats.OpenConnections,
			InUse:              stats.InUse,
			Idle:               stats.Idle,
			WaitCount:          stats.WaitCount,
			WaitDuration:       stats.WaitDuration,
			MaxIdleClosed:      stats.MaxIdleClosed,
			MaxLifetimeClosed:  stats.MaxLifetimeClosed,
		}
	} else {
		metrics["database"] = "无法获取数据库统计信息: " + err.Error()
	}

	// 获取 Redis 统计信息
	metrics["redis"] = t.getRedisStats(ctx)

	return metrics
}

// getRedisStats 获取 Redis 统计信息
func (t *CRUDTool) getRedisStats(ctx context.Context) interface{} {
	if t.RedisClient == nil {
		return "Redis 未配置"
	}

	// 获取 Redis 信息
	info, err := t.RedisClient.Info(ctx).Result()
	if err != nil {
		return "无法获取 Redis 信息: " + err.Error()
	}

	return parseRedisInfo(info)
}

// parseRedisInfo 解析 Redis INFO 为 key/value
func parseRedisInfo(info string) map[string]string {
	redisStats := make(map[string]string)
	lines := strings.Split(info, "\r\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			redisStats[parts[0]] = parts[1]
		}
	}
	return redisStats
}
