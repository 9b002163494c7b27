package task

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"time"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/observability/alerting"
	"github.com/jaycoolh/hedera-agent-kit/internal/observability/metrics"
	"github.com/jaycoolh/hedera-agent-kit/internal/tools"
	"github.com/jaycoolh/hedera-agent-kit/pkg/logger"
)

// Invoker 定义了处理器所需的工具调用能力。
type Invoker interface {
	Invoke(ctx context.Context, name string, input []byte) tools.Result
}

// Processor 负责从队列消费作业并交给工具注册表执行。
type Processor struct {
	invoker     Invoker
	store       Store
	consumer    Consumer
	workerCount int
	logger      *slog.Logger
	alerter     alerting.Dispatcher
}

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithProcessorLogger 指定日志输出。
func WithProcessorLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithAlertDispatcher 配置告警派发器，仅对标记为需告警的错误码触发。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) ProcessorOption {
	return func(p *Processor) {
		p.alerter = dispatcher
	}
}

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workerCount = workers
		}
	}
}

// NewProcessor 构造 Processor。
func NewProcessor(invoker Invoker, store Store, consumer Consumer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		invoker:     invoker,
		store:       store,
		consumer:    consumer,
		workerCount: 1,
		logger:      logger.Named("jobs"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Start 启动作业处理循环，直到 ctx 取消。
func (p *Processor) Start(ctx context.Context) error {
	if p.consumer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置作业消费者")
	}
	return p.consumer.Consume(ctx, p.workerCount, p.handle)
}

func (p *Processor) handle(ctx context.Context, jobID string) error {
	if p.store == nil || p.invoker == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "处理器未初始化")
	}
	job, err := p.store.Claim(ctx, jobID)
	if err != nil {
		if stdErrors.Is(err, ErrJobNotFound) || stdErrors.Is(err, ErrJobCompleted) || stdErrors.Is(err, ErrJobConflict) {
			p.logger.Debug("跳过作业", slog.String("job_id", jobID), slog.String("reason", err.Error()))
			return nil
		}
		if stdErrors.Is(err, ErrJobExhausted) {
			if markErr := p.store.MarkFailed(ctx, jobID, CodeJobExhausted, err.Error(), nil, true); markErr != nil {
				return markErr
			}
			p.transition(job, StatusFailed)
			if current, getErr := p.store.Get(ctx, jobID); getErr == nil {
				p.emitAlert(ctx, current, CodeJobExhausted, err.Error(), "claim")
			}
			return nil
		}
		p.logger.Error("领取作业失败", slog.Any("error", err), slog.String("job_id", jobID))
		return xerrors.Wrap(CodeJobProcessing, err, "领取作业失败")
	}
	p.transition(job, StatusRunning)

	result := p.invoker.Invoke(ctx, job.Tool, job.Input)
	if result.OK() {
		if err := p.store.MarkSucceeded(ctx, job.ID, result.Output); err != nil {
			p.logger.Error("标记作业成功状态失败", slog.Any("error", err), slog.String("job_id", job.ID))
			return err
		}
		p.transition(job, StatusSucceeded)
		logger.Audit().Info("作业执行成功",
			slog.String("job_id", job.ID),
			slog.String("tool", job.Tool),
			slog.Int64("duration_ms", result.Duration.Milliseconds()),
		)
		return nil
	}

	// 错误信封是工具的正常输出，不做重试。
	message := errorMessage(result)
	if err := p.store.MarkFailed(ctx, job.ID, result.Code, message, result.Output, true); err != nil {
		p.logger.Error("标记作业失败状态出错", slog.Any("error", err), slog.String("job_id", job.ID))
		return err
	}
	p.transition(job, StatusFailed)
	logger.Audit().Warn("作业执行失败",
		slog.String("job_id", job.ID),
		slog.String("tool", job.Tool),
		slog.String("error_code", string(result.Code)),
		slog.String("error", message),
		slog.Int("attempts", job.Attempts),
	)
	p.emitAlert(ctx, job, result.Code, message, "invoke")
	return nil
}

func (p *Processor) transition(job *Job, status Status) {
	metrics.ObserveJobTransition(string(status))
	if job != nil {
		p.logger.Debug("作业状态变更", slog.String("job_id", job.ID), slog.String("status", string(status)))
	}
}

func (p *Processor) emitAlert(ctx context.Context, job *Job, code xerrors.Code, message, stage string) {
	attrs := xerrors.AttributesOf(code)
	if p.alerter == nil || job == nil || !attrs.Alert {
		return
	}
	event := alerting.Event{
		Code:       code,
		Message:    message,
		Severity:   attrs.Severity,
		JobID:      job.ID,
		Tool:       job.Tool,
		Attempts:   job.Attempts,
		MaxRetries: job.MaxRetries,
		Metadata:   map[string]string{"stage": stage},
		OccurredAt: time.Now(),
	}
	if err := p.alerter.Notify(context.WithoutCancel(ctx), event); err != nil {
		p.logger.Error("告警通知失败",
			slog.Any("error", err),
			slog.String("job_id", job.ID),
			slog.String("stage", stage),
		)
	}
}

func errorMessage(result tools.Result) string {
	var env tools.ErrorEnvelope
	if err := json.Unmarshal(result.Output, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return string(result.Code)
}
