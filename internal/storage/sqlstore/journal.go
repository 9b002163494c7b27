package sqlstore

import (
	"context"
	"database/sql"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/storage"
)

// Journal 使用 MySQL 或 SQLite 保存工具调用记录。
type Journal struct {
	db      *sql.DB
	dialect Dialect
}

// NewJournal 打开数据库并确保表结构为最新版本。
func NewJournal(ctx context.Context, cfg Config) (*Journal, error) {
	db, dialect, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Journal{db: db, dialect: dialect}, nil
}

// Dialect 返回当前使用的方言。
func (j *Journal) Dialect() Dialect {
	return j.dialect
}

// Record 写入一条调用记录。
func (j *Journal) Record(ctx context.Context, record storage.CallRecord) error {
	const stmt = `INSERT INTO tool_calls
        (id, tool, input, status, code, output, duration_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := j.db.ExecContext(ctx, stmt,
		record.ID,
		record.Tool,
		record.Input,
		record.Status,
		record.Code,
		record.Output,
		record.DurationMS,
		record.CreatedAt,
	); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入调用记录失败")
	}
	return nil
}

// ListLatest 查询最近的若干条调用记录。
func (j *Journal) ListLatest(ctx context.Context, limit int) ([]storage.CallRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `SELECT id, tool, input, status, code, output, duration_ms, created_at
        FROM tool_calls ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询调用记录失败")
	}
	defer rows.Close()

	var records []storage.CallRecord
	for rows.Next() {
		var r storage.CallRecord
		if err := rows.Scan(&r.ID, &r.Tool, &r.Input, &r.Status, &r.Code, &r.Output, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析调用记录失败")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历调用记录失败")
	}
	return records, nil
}

// Close 关闭底层数据库连接。
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

var _ storage.Journal = (*Journal)(nil)
