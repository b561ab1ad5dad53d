// Package history 把每次解析结果追加写入关系型数据库，供事后审计查询
// 历史记录只写不读回解析流程，不构成缓存
package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config 数据库配置
type Config struct {
	Driver string // sqlite | postgres
	DSN    string
	Debug  bool // 打印全部 SQL
}

// DB 封装 GORM 实例
type DB struct {
	conn *gorm.DB
}

// Open 建立连接、配置连接池并迁移表结构
func Open(ctx context.Context, cfg Config) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported history driver %q", cfg.Driver)
	}

	level := logger.Silent
	if cfg.Debug {
		level = logger.Info
	}
	conn, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(level)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetMaxOpenConns(16)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("history database ping failed: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("auto migration failed: %w", err)
	}
	return db, nil
}

// NewWithConn 复用现有连接，测试里用内存 sqlite
func NewWithConn(conn *gorm.DB) *DB {
	return &DB{conn: conn}
}

func (d *DB) AutoMigrate() error {
	return d.conn.AutoMigrate(&Record{})
}

func (d *DB) GetConn() *gorm.DB {
	return d.conn
}

func (d *DB) Close() error {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
