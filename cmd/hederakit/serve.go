package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jaycoolh/hedera-agent-kit/internal/api"
	"github.com/jaycoolh/hedera-agent-kit/internal/auth"
	"github.com/jaycoolh/hedera-agent-kit/internal/config"
	"github.com/jaycoolh/hedera-agent-kit/internal/observability/alerting"
	"github.com/jaycoolh/hedera-agent-kit/internal/observability/metrics"
	"github.com/jaycoolh/hedera-agent-kit/internal/task"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 REST API 与异步作业处理器",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := start(cmd, func(cfg *config.Config) {
				if addr != "" {
					cfg.Server.Address = addr
				}
			})
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "覆盖 server.address 监听地址")
	return cmd
}

// serve 组装作业存储、队列、处理器与 HTTP 服务，直到上下文取消。
func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	store, err := openJobStore(ctx, cfg)
	if err != nil {
		return err
	}
	queue, err := openQueue(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return err
	}
	jobs := task.NewService(store, queue,
		task.WithCatalog(a.registry),
		task.WithMaxRetries(cfg.Queue.MaxRetries),
	)
	defer func() {
		if err := jobs.Close(); err != nil {
			a.log.Warn("关闭作业服务失败", slog.Any("error", err))
		}
	}()

	authService, err := auth.NewService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("初始化认证服务失败: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	processor := task.NewProcessor(a.registry, store, queue,
		task.WithWorkerCount(cfg.Queue.Workers),
		task.WithAlertDispatcher(alerting.FromConfig(cfg.Telemetry.Alerts)),
	)
	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := processor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("作业处理器退出: %w", err)
			cancel()
		}
	}()

	if metricsAddr := strings.TrimSpace(cfg.Telemetry.MetricsAddress); metricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartServer(ctx, metricsAddr); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("指标服务退出: %w", err)
				cancel()
			}
		}()
		a.log.Info("指标服务已启动", slog.String("addr", metricsAddr))
	}

	server := api.NewServer(api.Options{
		Addr:     cfg.Server.Address,
		Registry: a.registry,
		Jobs:     jobs,
		Calls:    a.journal,
		Auth:     authService,
	})
	a.log.Info("hederakit 服务启动",
		slog.String("network", cfg.Network.Name),
		slog.String("queue", cfg.Queue.Driver),
		slog.String("job_store", cfg.Storage.Jobs.Driver),
		slog.String("auth", string(authService.Mode())))

	serveErr := server.Start(ctx)
	cancel()
	wg.Wait()
	close(errCh)

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	if err, ok := <-errCh; ok {
		return err
	}
	return nil
}

// openJobStore 根据 storage.jobs 选择作业存储。
func openJobStore(ctx context.Context, cfg *config.Config) (task.Store, error) {
	if cfg.Storage.Jobs.IsMemory() {
		return task.NewMemoryStore(), nil
	}
	store, err := task.OpenSQLStore(ctx, cfg.Storage.Jobs.SQL())
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openQueue 根据 queue.driver 选择作业队列。
func openQueue(ctx context.Context, cfg *config.Config) (task.Queue, error) {
	switch cfg.Queue.Driver {
	case "redis":
		q, err := task.NewRedisQueue(ctx, cfg.Queue.RedisQueue())
		if err != nil {
			return nil, err
		}
		return q, nil
	case "rabbitmq":
		q, err := task.NewRabbitMQQueue(cfg.Queue.RabbitMQQueue())
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return task.NewMemoryQueue(cfg.Queue.Size), nil
	}
}
