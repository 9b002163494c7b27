package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/observability/metrics"
	"github.com/jaycoolh/hedera-agent-kit/internal/storage"
	"github.com/jaycoolh/hedera-agent-kit/pkg/logger"
)

// Recorder receives one record per invocation.
type Recorder interface {
	Record(ctx context.Context, record storage.CallRecord) error
}

// Result is the serialized outcome of one invocation.
type Result struct {
	Tool     string
	Output   json.RawMessage
	Status   string
	Code     xerrors.Code
	Duration time.Duration
}

// OK reports whether the envelope carries status "success".
func (r Result) OK() bool { return r.Status == StatusSuccess }

// String returns the envelope JSON.
func (r Result) String() string { return string(r.Output) }

// Registry is the immutable lookup table of tools.
type Registry struct {
	defs     map[string]*Definition
	order    []string
	recorder Recorder
	tracer   trace.Tracer
	meter    metric.Meter
	log      *slog.Logger

	invocations metric.Int64Counter
	latency     metric.Float64Histogram
}

// Option customises a Registry.
type Option func(*Registry)

// WithRecorder journals every invocation.
func WithRecorder(r Recorder) Option {
	return func(reg *Registry) { reg.recorder = r }
}

// WithTracer overrides the tracer taken from the otel global provider.
func WithTracer(t trace.Tracer) Option {
	return func(reg *Registry) {
		if t != nil {
			reg.tracer = t
		}
	}
}

// WithMeter overrides the meter taken from the otel global provider.
func WithMeter(m metric.Meter) Option {
	return func(reg *Registry) {
		if m != nil {
			reg.meter = m
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(reg *Registry) {
		if l != nil {
			reg.log = l
		}
	}
}

// NewRegistry builds the nine Hedera tools over the given services.
func NewRegistry(topics TopicService, tokens TokenService, opts ...Option) (*Registry, error) {
	if topics == nil || tokens == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "工具注册表缺少依赖服务")
	}
	tokenDefs, err := tokenDefinitions(tokens)
	if err != nil {
		return nil, err
	}
	topicDefs, err := topicDefinitions(topics)
	if err != nil {
		return nil, err
	}

	reg := &Registry{
		defs:   make(map[string]*Definition),
		tracer: otel.Tracer("hederakit/tools"),
		meter:  otel.Meter("hederakit/tools"),
		log:    logger.Named("tools"),
	}
	for _, def := range append(tokenDefs, topicDefs...) {
		if _, dup := reg.defs[def.Name]; dup {
			return nil, xerrors.New(xerrors.CodeInitializationFailure, fmt.Sprintf("工具名称重复: %s", def.Name))
		}
		reg.defs[def.Name] = def
		reg.order = append(reg.order, def.Name)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(reg)
		}
	}
	if err := reg.instrument(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "创建工具指标失败")
	}
	return reg, nil
}

func (r *Registry) instrument() error {
	var err error
	r.invocations, err = r.meter.Int64Counter(
		"hederakit.tool.invocations",
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return err
	}
	r.latency, err = r.meter.Float64Histogram(
		"hederakit.tool.latency",
		metric.WithDescription("Tool latency in seconds"),
		metric.WithUnit("s"),
	)
	return err
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Has reports whether a tool named name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// List returns the tools in registration order.
func (r *Registry) List() []Summary {
	out := make([]Summary, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name].summary())
	}
	return out
}

// Invoke runs Parse, Invoke and Serialize for one call. Every failure,
// including an unknown tool or a panic in the handler, comes back as an
// error envelope; Invoke itself never fails.
func (r *Registry) Invoke(ctx context.Context, name string, input []byte) Result {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "tool.invoke", trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	var (
		output any
		err    error
	)
	def, ok := r.defs[name]
	if !ok {
		err = xerrors.New(CodeToolNotFound, fmt.Sprintf("未找到工具: %s", name))
	} else {
		output, err = r.safeRun(ctx, def, input)
	}

	result := Result{Tool: name, Status: StatusSuccess}
	if err != nil {
		env := newErrorEnvelope(err)
		result.Status = StatusError
		result.Code = xerrors.Code(env.Code)
		result.Output = encodeEnvelope(env)
		span.SetAttributes(attribute.String("tool.code", env.Code))
		span.SetStatus(codes.Error, env.Message)
	} else {
		result.Output = encodeEnvelope(output)
		span.SetStatus(codes.Ok, "")
	}
	result.Duration = time.Since(start)
	span.SetAttributes(attribute.String("tool.status", result.Status))

	r.observe(ctx, input, result, err)
	return result
}

// InvokeString is the string-in, string-out form used by agent frameworks.
func (r *Registry) InvokeString(ctx context.Context, name, input string) string {
	return r.Invoke(ctx, name, []byte(input)).String()
}

func (r *Registry) safeRun(ctx context.Context, def *Definition, input []byte) (output any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("工具执行发生 panic",
				slog.String("tool", def.Name),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			output = nil
			err = xerrors.New(CodeToolPanic, fmt.Sprintf("工具 %s 执行异常: %v", def.Name, rec))
		}
	}()
	return def.run(ctx, input)
}

func (r *Registry) observe(ctx context.Context, input []byte, result Result, err error) {
	metrics.ObserveToolInvocation(result.Tool, result.Status, string(result.Code), result.Duration)
	metricAttrs := []attribute.KeyValue{
		attribute.String("tool_name", result.Tool),
		attribute.String("status", result.Status),
	}
	if result.Code != "" {
		metricAttrs = append(metricAttrs, attribute.String("error_code", string(result.Code)))
	}
	options := metric.WithAttributes(metricAttrs...)
	r.invocations.Add(ctx, 1, options)
	r.latency.Record(ctx, result.Duration.Seconds(), options)

	attrs := []any{
		slog.String("tool", result.Tool),
		slog.String("status", result.Status),
		slog.Int64("duration_ms", result.Duration.Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("code", string(result.Code)), slog.String("error", err.Error()))
	}
	logger.Audit().Info("tool invocation", attrs...)
	if xerrors.ShouldAlert(err) {
		r.log.Error("工具调用失败，需要关注", attrs...)
	}

	if r.recorder == nil {
		return
	}
	record := storage.CallRecord{
		ID:         uuid.NewString(),
		Tool:       result.Tool,
		Input:      string(input),
		Status:     result.Status,
		Code:       string(result.Code),
		Output:     string(result.Output),
		DurationMS: result.Duration.Milliseconds(),
		CreatedAt:  time.Now().Unix(),
	}
	if recErr := r.recorder.Record(context.WithoutCancel(ctx), record); recErr != nil {
		r.log.Warn("记录工具调用失败", slog.String("tool", result.Tool), slog.Any("error", recErr))
	}
}
