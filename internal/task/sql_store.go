package task

import (
	"context"
	"database/sql"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/storage/sqlstore"
)

// SQLStore 使用 MySQL 或 SQLite 的 jobs 表记录作业状态。
type SQLStore struct {
	db      *sql.DB
	dialect sqlstore.Dialect
	now     func() time.Time
}

// OpenSQLStore 建立连接并执行迁移。
func OpenSQLStore(ctx context.Context, cfg sqlstore.Config) (*SQLStore, error) {
	db, dialect, err := sqlstore.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(db, dialect), nil
}

// NewSQLStore 复用已经迁移过的连接池。
func NewSQLStore(db *sql.DB, dialect sqlstore.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

const jobColumns = `id, tool, input, status, attempts, max_retries, last_error, error_code, output, created_at, updated_at`

// Create 实现 Store 接口。
func (s *SQLStore) Create(ctx context.Context, job *Job) error {
	if job == nil || job.ID == "" {
		return xerrors.New(xerrors.CodeInvalidInput, "作业 ID 不能为空")
	}
	if _, err := s.Get(ctx, job.ID); err == nil {
		return ErrJobConflict
	} else if !stdErrors.Is(err, ErrJobNotFound) {
		return err
	}

	now := s.now().Unix()
	if job.CreatedAt == 0 {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Tool,
		string(job.Input),
		string(job.Status),
		job.Attempts,
		job.MaxRetries,
		job.LastError,
		job.ErrorCode,
		string(job.Output),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入作业失败")
	}
	return nil
}

// Get 返回作业。
func (s *SQLStore) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询作业失败")
	}
	return job, nil
}

// Claim 通过条件更新保证同一作业只会被一个 worker 领取。
func (s *SQLStore) Claim(ctx context.Context, id string) (*Job, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE jobs
        SET status = ?, attempts = attempts + 1, last_error = '', error_code = '', updated_at = ?
        WHERE id = ? AND status = ? AND attempts < max_retries`,
		string(StatusRunning), s.now().Unix(), id, string(StatusPending))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "领取作业失败")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取受影响行数失败")
	}
	job, getErr := s.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if affected == 1 {
		return job, nil
	}
	switch {
	case job.Done():
		return job, ErrJobCompleted
	case job.Status == StatusRunning:
		return job, ErrJobConflict
	default:
		return job, ErrJobExhausted
	}
}

// MarkSucceeded 记录成功信封。
func (s *SQLStore) MarkSucceeded(ctx context.Context, id string, output json.RawMessage) error {
	return s.update(ctx, id, `UPDATE jobs SET status = ?, output = ?, last_error = '', error_code = '', updated_at = ? WHERE id = ?`,
		string(StatusSucceeded), string(output), s.now().Unix(), id)
}

// MarkFailed 标记作业失败。
func (s *SQLStore) MarkFailed(ctx context.Context, id string, code xerrors.Code, lastError string, output json.RawMessage, terminal bool) error {
	next := "?"
	args := []any{string(StatusFailed)}
	if !terminal {
		next = "CASE WHEN attempts < max_retries THEN ? ELSE ? END"
		args = []any{string(StatusPending), string(StatusFailed)}
	}
	args = append(args, lastError, string(code), string(output), s.now().Unix(), id)
	return s.update(ctx, id, `UPDATE jobs SET status = `+next+`, last_error = ?, error_code = ?, output = ?, updated_at = ? WHERE id = ?`, args...)
}

func (s *SQLStore) update(ctx context.Context, id, stmt string, args ...any) error {
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, fmt.Sprintf("更新作业 %s 失败", id))
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		// MySQL 对未发生变化的行返回 0。
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

// List 返回符合条件的作业。
func (s *SQLStore) List(ctx context.Context, opts ListOptions) ([]*Job, error) {
	opts.applyDefaults()
	where, args := buildWhere(opts)
	order := "DESC"
	if opts.Order == SortByUpdatedAsc {
		order = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM jobs%s ORDER BY updated_at %s, created_at %s, id ASC LIMIT ? OFFSET ?`,
		jobColumns, where, order, order)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询作业列表失败")
	}
	defer rows.Close()

	jobs := make([]*Job, 0, opts.Limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析作业失败")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历作业失败")
	}
	return jobs, nil
}

// Stats 按状态聚合作业数量。
func (s *SQLStore) Stats(ctx context.Context, opts ListOptions) (JobStats, error) {
	opts.applyDefaults()
	where, args := buildWhere(opts)
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*), MIN(updated_at), MAX(updated_at) FROM jobs`+where+` GROUP BY status`, args...)
	if err != nil {
		return JobStats{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "统计作业失败")
	}
	defer rows.Close()

	stats := JobStats{}
	for rows.Next() {
		var (
			status         string
			count          int
			oldest, newest int64
		)
		if err := rows.Scan(&status, &count, &oldest, &newest); err != nil {
			return JobStats{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析作业统计失败")
		}
		stats.add(Status(status), count, oldest, newest)
	}
	if err := rows.Err(); err != nil {
		return JobStats{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历作业统计失败")
	}
	return stats, nil
}

// Close 关闭底层连接池。
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildWhere(opts ListOptions) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(opts.Statuses) > 0 {
		marks := make([]string, len(opts.Statuses))
		for i, status := range opts.Statuses {
			marks[i] = "?"
			args = append(args, string(status))
		}
		clauses = append(clauses, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if opts.Tool != "" {
		clauses = append(clauses, "tool = ?")
		args = append(args, opts.Tool)
	}
	if opts.UpdatedGTE > 0 {
		clauses = append(clauses, "updated_at >= ?")
		args = append(args, opts.UpdatedGTE)
	}
	if opts.UpdatedLTE > 0 {
		clauses = append(clauses, "updated_at <= ?")
		args = append(args, opts.UpdatedLTE)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job           Job
		input, output string
		status        string
	)
	if err := row.Scan(&job.ID, &job.Tool, &input, &status, &job.Attempts, &job.MaxRetries,
		&job.LastError, &job.ErrorCode, &output, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	if input != "" {
		job.Input = json.RawMessage(input)
	}
	if output != "" {
		job.Output = json.RawMessage(output)
	}
	return &job, nil
}

var _ Store = (*SQLStore)(nil)
