package task

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/pkg/logger"
)

// Catalog 用于在提交前确认工具存在。
type Catalog interface {
	Has(name string) bool
}

// Service 负责作业的创建与查询。
type Service struct {
	store      Store
	producer   Producer
	catalog    Catalog
	maxRetries int
}

// ServiceOption 定义可选配置。
type ServiceOption func(*Service)

// WithCatalog 拒绝提交未注册的工具。
func WithCatalog(c Catalog) ServiceOption {
	return func(s *Service) {
		s.catalog = c
	}
}

// WithMaxRetries 设置单个作业允许的最大领取次数。
func WithMaxRetries(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewService 构造作业服务。默认每个作业只执行一次。
func NewService(store Store, producer Producer, opts ...ServiceOption) *Service {
	s := &Service{store: store, producer: producer, maxRetries: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Submit 创建一个新的作业并推送到队列。携带已存在 ID 的请求直接返回原作业。
func (s *Service) Submit(ctx context.Context, req Request) (*Job, error) {
	toolName := strings.TrimSpace(req.Tool)
	if toolName == "" {
		return nil, xerrors.New(CodeJobValidation, "工具名称不能为空")
	}
	if s.catalog != nil && !s.catalog.Has(toolName) {
		return nil, xerrors.New(CodeJobValidation, fmt.Sprintf("未找到工具: %s", toolName))
	}
	input := json.RawMessage(strings.TrimSpace(string(req.Input)))
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	if !json.Valid(input) {
		return nil, xerrors.New(CodeJobValidation, "作业输入不是合法的 JSON")
	}
	if s.store == nil || s.producer == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "作业服务未初始化")
	}

	jobID := strings.TrimSpace(req.ID)
	if jobID != "" {
		job, err := s.store.Get(ctx, jobID)
		if err == nil {
			return job, nil
		}
		if !stdErrors.Is(err, ErrJobNotFound) {
			return nil, err
		}
	} else {
		jobID = uuid.NewString()
	}

	job := &Job{
		ID:         jobID,
		Tool:       toolName,
		Input:      input,
		Status:     StatusPending,
		MaxRetries: s.maxRetries,
	}
	if err := s.store.Create(ctx, job); err != nil {
		if stdErrors.Is(err, ErrJobConflict) {
			if existing, getErr := s.store.Get(ctx, jobID); getErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}
	if err := s.producer.Publish(ctx, jobID); err != nil {
		logger.L().Error("作业入队失败", slog.Any("error", err), slog.String("job_id", jobID))
		wrapped := xerrors.Wrap(CodeJobPublish, err, "发布作业到队列失败")
		_ = s.store.MarkFailed(ctx, jobID, CodeJobPublish, wrapped.Error(), nil, true)
		return nil, wrapped
	}
	logger.Audit().Info("作业入队成功",
		slog.String("job_id", jobID),
		slog.String("tool", toolName),
		slog.Int("max_retries", job.MaxRetries),
	)
	return job, nil
}

// Get 返回指定作业的状态。
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "作业存储未初始化")
	}
	return s.store.Get(ctx, id)
}

// List 返回符合过滤条件的作业列表。
func (s *Service) List(ctx context.Context, opts ...ListOption) ([]*Job, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "作业存储未初始化")
	}
	return s.store.List(ctx, buildListOptions(opts))
}

// Stats 返回符合过滤条件的作业统计信息。
func (s *Service) Stats(ctx context.Context, opts ...ListOption) (JobStats, error) {
	if s.store == nil {
		return JobStats{}, xerrors.New(xerrors.CodeInitializationFailure, "作业存储未初始化")
	}
	return s.store.Stats(ctx, buildListOptions(opts))
}

// Close 释放资源。
func (s *Service) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return err
		}
	}
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

// WaitUntilCompleted 轮询作业状态直到进入终态或 ctx 结束。
func (s *Service) WaitUntilCompleted(ctx context.Context, id string, interval time.Duration) (*Job, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Done() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
