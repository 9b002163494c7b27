package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jaycoolh/hedera-agent-kit/internal/auth"
	"github.com/jaycoolh/hedera-agent-kit/internal/storage"
	"github.com/jaycoolh/hedera-agent-kit/internal/task"
	"github.com/jaycoolh/hedera-agent-kit/internal/tools"
	"github.com/jaycoolh/hedera-agent-kit/pkg/logger"
)

const maxBodyBytes = 1 << 20

// ToolRegistry 是 API 依赖的工具注册表能力。
type ToolRegistry interface {
	List() []tools.Summary
	Has(name string) bool
	Invoke(ctx context.Context, name string, input []byte) tools.Result
}

// JobService 是 API 依赖的异步作业能力。
type JobService interface {
	Submit(ctx context.Context, req task.Request) (*task.Job, error)
	Get(ctx context.Context, id string) (*task.Job, error)
	List(ctx context.Context, opts ...task.ListOption) ([]*task.Job, error)
	Stats(ctx context.Context, opts ...task.ListOption) (task.JobStats, error)
}

// CallLister 返回最近的工具调用记录。
type CallLister interface {
	ListLatest(ctx context.Context, limit int) ([]storage.CallRecord, error)
}

// Options 汇总了构造 Server 所需的依赖。Jobs 与 Calls 可以为空，
// 对应端点返回 503。
type Options struct {
	Addr     string
	Registry ToolRegistry
	Jobs     JobService
	Calls    CallLister
	Auth     *auth.Service
	Logger   *slog.Logger
}

// Server 负责暴露 REST 接口，供外部调用 Hedera 工具。
type Server struct {
	addr     string
	registry ToolRegistry
	jobs     JobService
	calls    CallLister
	auth     *auth.Service
	log      *slog.Logger
	handler  http.Handler
}

// NewServer 构造 API 服务实例。
func NewServer(opts Options) *Server {
	s := &Server{
		addr:     opts.Addr,
		registry: opts.Registry,
		jobs:     opts.Jobs,
		calls:    opts.Calls,
		auth:     opts.Auth,
		log:      opts.Logger,
	}
	if s.log == nil {
		s.log = logger.Named("api")
	}
	s.handler = s.routes()
	return s
}

// Handler 返回完整的路由，便于测试或嵌入其他服务。
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("API 服务已启动", slog.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
