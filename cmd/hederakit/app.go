package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jaycoolh/hedera-agent-kit/internal/api"
	"github.com/jaycoolh/hedera-agent-kit/internal/config"
	"github.com/jaycoolh/hedera-agent-kit/internal/consensus"
	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/kit"
	"github.com/jaycoolh/hedera-agent-kit/internal/ledger"
	"github.com/jaycoolh/hedera-agent-kit/internal/ledger/hedera"
	"github.com/jaycoolh/hedera-agent-kit/internal/ledger/relay"
	"github.com/jaycoolh/hedera-agent-kit/internal/mirror"
	"github.com/jaycoolh/hedera-agent-kit/internal/observability/tracing"
	"github.com/jaycoolh/hedera-agent-kit/internal/storage"
	"github.com/jaycoolh/hedera-agent-kit/internal/storage/sqlstore"
	"github.com/jaycoolh/hedera-agent-kit/internal/tools"
	"github.com/jaycoolh/hedera-agent-kit/pkg/logger"
)

// journal 同时满足工具调用记录与查询。
type journal interface {
	tools.Recorder
	api.CallLister
	Close() error
}

// app 汇总一次命令执行所需的全部组件。
type app struct {
	cfg      *config.Config
	registry *tools.Registry
	journal  journal
	closers  []func() error
	shutdown tracing.ShutdownFunc
	log      *slog.Logger
}

// loadConfig 读取 --config 指定的配置，adjust 可在初始化日志前修改配置。
func loadConfig(cmd *cobra.Command, adjust func(*config.Config)) (*config.Config, error) {
	flagValue, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.ResolvePath(flagValue))
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(cfg)
	}
	return cfg, nil
}

// bootstrap 按依赖顺序构造账本、镜像节点、服务层与工具注册表。
func bootstrap(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	a := &app{cfg: cfg, log: logger.Named("hederakit")}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	shutdown, err := tracing.Setup(ctx, cfg.Telemetry.Config)
	if err != nil {
		return nil, err
	}
	a.shutdown = shutdown

	defs, err := ledger.LoadNetworkDefinitions(cfg.Network.NetworksFile)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "加载网络定义失败")
	}
	network := cfg.LedgerNetwork()
	mirrorURL, relayURL := defs.Endpoints(network)
	if v := strings.TrimSpace(cfg.Network.MirrorURL); v != "" {
		mirrorURL = v
	}
	if v := strings.TrimSpace(cfg.Relay.URL); v != "" {
		relayURL = v
	}

	client, err := a.ledgerClient(network)
	if err != nil {
		return nil, err
	}
	balance, err := a.balanceReader(ctx, client, relayURL)
	if err != nil {
		return nil, err
	}

	mirrorClient, err := mirror.NewClient(mirror.Config{
		BaseURL:    mirrorURL,
		HTTPClient: &http.Client{Timeout: cfg.Query.HTTPTimeout()},
		MaxPages:   cfg.Query.MaxPages,
	})
	if err != nil {
		return nil, err
	}
	topics, err := consensus.NewService(client, mirrorClient,
		consensus.WithDefaultWait(cfg.Query.DefaultWait()),
		consensus.WithDefaultLimit(cfg.Query.DefaultLimit),
	)
	if err != nil {
		return nil, err
	}
	tokens, err := kit.New(client, balance)
	if err != nil {
		return nil, err
	}

	a.journal, err = openJournal(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.journal.Close)

	a.registry, err = tools.NewRegistry(topics, tokens, tools.WithRecorder(a.journal))
	if err != nil {
		return nil, err
	}
	a.log.Debug("组件初始化完成",
		slog.String("network", string(network)),
		slog.String("mirror", mirrorClient.BaseURL()),
		slog.String("balance_source", cfg.Relay.BalanceSource))
	return a, nil
}

// ledgerClient 在缺少运营账户时返回不可用的客户端，保证工具目录仍可浏览。
func (a *app) ledgerClient(network ledger.Network) (ledger.Client, error) {
	if strings.TrimSpace(a.cfg.Network.AccountID) == "" || strings.TrimSpace(a.cfg.Network.PrivateKey) == "" {
		a.log.Warn("未配置运营账户，账本操作将返回初始化失败",
			slog.String("account_env", config.EnvAccountID),
			slog.String("key_env", config.EnvPrivateKey))
		return ledger.Unavailable("未配置运营账户 ID 或私钥"), nil
	}
	client, err := hedera.NewClient(hedera.Config{
		Network:    network,
		AccountID:  a.cfg.Network.AccountID,
		PrivateKey: a.cfg.Network.PrivateKey,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return client, nil
}

// balanceReader 依据 relay.balance_source 选择余额查询来源。
func (a *app) balanceReader(ctx context.Context, sdk ledger.BalanceReader, relayURL string) (ledger.BalanceReader, error) {
	source := a.cfg.Relay.BalanceSource
	if source == "sdk" {
		return sdk, nil
	}
	account, err := ledger.ParseEntityID(a.cfg.Network.AccountID)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "relay 余额查询需要有效的账户 ID")
	}
	rc, err := relay.NewClient(ctx, relay.Config{URL: relayURL, AccountID: account})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rc.Close)
	if source == "relay_fallback" {
		return relay.Fallback(rc, sdk), nil
	}
	return rc, nil
}

// openJournal 根据 storage.journal 选择调用记录实现。
func openJournal(ctx context.Context, cfg *config.Config) (journal, error) {
	if cfg.Storage.Journal.IsMemory() {
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "创建数据目录失败")
		}
		mem, err := storage.NewMemoryJournal(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		return mem, nil
	}
	sqlJournal, err := sqlstore.NewJournal(ctx, cfg.Storage.Journal.SQL())
	if err != nil {
		return nil, err
	}
	return sqlJournal, nil
}

// Close 逆序释放资源并刷新链路追踪数据。
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("释放资源失败", slog.Any("error", err))
		}
	}
	a.closers = nil
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("关闭链路追踪失败", slog.Any("error", err))
		}
		a.shutdown = nil
	}
	_ = logger.Sync()
}

// start 是各子命令共用的加载与初始化流程。
func start(cmd *cobra.Command, adjust func(*config.Config)) (*app, error) {
	cfg, err := loadConfig(cmd, adjust)
	if err != nil {
		return nil, err
	}
	return bootstrap(cmd.Context(), cfg)
}
