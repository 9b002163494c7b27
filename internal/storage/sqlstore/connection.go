package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
)

// Dialect 标识 SQL 方言，同时也是迁移文件的目录名。
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

// Config 描述数据库连接参数。
type Config struct {
	Driver          string        `json:"driver"`
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

// ParseDialect 将配置中的驱动名映射为方言。
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", xerrors.New(xerrors.CodeInitializationFailure, fmt.Sprintf("不支持的数据库驱动: %s", driver))
	}
}

// Open 建立连接池、执行迁移，并返回可用的数据库句柄。
func Open(ctx context.Context, cfg Config) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, "", xerrors.New(xerrors.CodeInitializationFailure, "数据库 DSN 不能为空")
	}

	db, err := sql.Open(string(dialect), cfg.DSN)
	if err != nil {
		return nil, "", xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接数据库失败")
	}

	switch {
	case dialect == DialectSQLite:
		// SQLite 只允许单个写连接。
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	default:
		db.SetMaxOpenConns(20)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(10)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到数据库")
	}
	if err := Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, "", err
	}
	return db, dialect, nil
}
