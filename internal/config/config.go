package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jaycoolh/hedera-agent-kit/internal/auth"
	"github.com/jaycoolh/hedera-agent-kit/internal/ledger"
	"github.com/jaycoolh/hedera-agent-kit/internal/observability/alerting"
	"github.com/jaycoolh/hedera-agent-kit/internal/observability/tracing"
	"github.com/jaycoolh/hedera-agent-kit/internal/storage/sqlstore"
	"github.com/jaycoolh/hedera-agent-kit/internal/task"
	"github.com/jaycoolh/hedera-agent-kit/pkg/logger"
)

const (
	// DefaultPath 是未显式指定时读取的配置文件。
	DefaultPath = "configs/hederakit.json"
	// PathEnv 指定配置文件路径的环境变量。
	PathEnv = "HEDERA_KIT_CONFIG"

	EnvNetwork    = "HEDERA_NETWORK"
	EnvAccountID  = "HEDERA_ACCOUNT_ID"
	EnvPrivateKey = "HEDERA_PRIVATE_KEY"
)

// Config 描述了 hederakit 在启动阶段需要加载的全部配置。
type Config struct {
	Server    ServerConfig    `json:"server"`
	Network   NetworkConfig   `json:"network"`
	Query     QueryConfig     `json:"query"`
	Relay     RelayConfig     `json:"relay"`
	Storage   StorageConfig   `json:"storage"`
	Queue     QueueConfig     `json:"queue"`
	Auth      auth.Config     `json:"auth"`
	Log       logger.Config   `json:"log"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

// ServerConfig 控制 API 服务的监听地址。
type ServerConfig struct {
	Address string `json:"address"`
}

// NetworkConfig 选择 Hedera 网络并提供运营账户凭据。
type NetworkConfig struct {
	Name         string `json:"name"`
	MirrorURL    string `json:"mirror_url"`
	NetworksFile string `json:"networks_file"`
	AccountID    string `json:"account_id"`
	PrivateKey   string `json:"private_key"`
}

// QueryConfig 控制镜像节点查询的默认参数。
type QueryConfig struct {
	DefaultWaitMS int `json:"default_wait_ms"`
	DefaultLimit  int `json:"default_limit"`
	MaxPages      int `json:"max_pages"`
	HTTPTimeoutMS int `json:"http_timeout_ms"`
}

// RelayConfig 描述 JSON-RPC relay 以及余额查询来源。
type RelayConfig struct {
	URL string `json:"url"`
	// BalanceSource 取值 sdk、relay 或 relay_fallback。
	BalanceSource string `json:"balance_source"`
}

// StorageConfig 统一描述调用记录与作业存储。
type StorageConfig struct {
	DataDir string         `json:"data_dir"`
	Journal DatabaseConfig `json:"journal"`
	Jobs    DatabaseConfig `json:"jobs"`
}

// DatabaseConfig 的 Driver 取值 memory、mysql 或 sqlite。
type DatabaseConfig struct {
	Driver                 string `json:"driver"`
	DSN                    string `json:"dsn"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
}

// QueueConfig 描述异步作业队列与处理器。
type QueueConfig struct {
	Driver     string         `json:"driver"`
	Size       int            `json:"size"`
	Workers    int            `json:"workers"`
	MaxRetries int            `json:"max_retries"`
	Redis      RedisConfig    `json:"redis"`
	RabbitMQ   RabbitMQConfig `json:"rabbitmq"`
}

// RedisConfig 对应 Redis list 队列。
type RedisConfig struct {
	Address          string `json:"address"`
	Password         string `json:"password"`
	DB               int    `json:"db"`
	Queue            string `json:"queue"`
	BlockWaitSeconds int    `json:"block_wait_seconds"`
}

// RabbitMQConfig 对应 RabbitMQ 队列。
type RabbitMQConfig struct {
	URL      string `json:"url"`
	Queue    string `json:"queue"`
	Prefetch int    `json:"prefetch"`
	Durable  bool   `json:"durable"`
}

// TelemetryConfig 控制指标与链路追踪。
type TelemetryConfig struct {
	tracing.Config
	// MetricsAddress 非空时额外启动独立的 /metrics 监听。
	MetricsAddress string          `json:"metrics_address"`
	Alerts         alerting.Config `json:"alerts"`
}

// ResolvePath 按命令行参数、环境变量、默认值的顺序选择配置文件。
func ResolvePath(flagValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(PathEnv)); v != "" {
		return v
	}
	return DefaultPath
}

// Load 解析指定路径的 JSON 配置文件。默认路径的文件不存在时返回默认配置。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("配置文件路径为空")
	}

	var cfg Config
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置失败: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && filepath.Clean(path) == filepath.Clean(DefaultPath):
	default:
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv 使用 HEDERA_* 环境变量覆盖网络与运营账户。
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvNetwork)); v != "" {
		c.Network.Name = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAccountID)); v != "" {
		c.Network.AccountID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPrivateKey)); v != "" {
		c.Network.PrivateKey = v
	}
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	c.Network.Name = string(ledger.ParseNetwork(c.Network.Name))
	if c.Network.NetworksFile != "" && !filepath.IsAbs(c.Network.NetworksFile) {
		c.Network.NetworksFile = filepath.Join(baseDir, c.Network.NetworksFile)
	}

	if c.Query.DefaultWaitMS <= 0 {
		c.Query.DefaultWaitMS = 5000
	}
	if c.Query.DefaultLimit <= 0 {
		c.Query.DefaultLimit = 10
	}
	if c.Query.MaxPages <= 0 {
		c.Query.MaxPages = 100
	}
	if c.Query.HTTPTimeoutMS <= 0 {
		c.Query.HTTPTimeoutMS = 15000
	}

	if c.Relay.BalanceSource == "" {
		c.Relay.BalanceSource = "sdk"
	}

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Storage.DataDir) {
		c.Storage.DataDir = filepath.Join(baseDir, c.Storage.DataDir)
	}
	if c.Storage.Journal.Driver == "" {
		c.Storage.Journal.Driver = "memory"
	}
	if c.Storage.Jobs.Driver == "" {
		c.Storage.Jobs.Driver = "memory"
	}

	if c.Queue.Driver == "" {
		c.Queue.Driver = "memory"
	}
	if c.Queue.Size <= 0 {
		c.Queue.Size = 64
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 4
	}
	if c.Queue.MaxRetries <= 0 {
		c.Queue.MaxRetries = 1
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "hedera-agent-kit"
	}
}

// Validate 检查枚举型字段。
func (c *Config) Validate() error {
	switch c.Relay.BalanceSource {
	case "sdk", "relay", "relay_fallback":
	default:
		return fmt.Errorf("未知的余额来源: %s", c.Relay.BalanceSource)
	}
	for name, db := range map[string]DatabaseConfig{"journal": c.Storage.Journal, "jobs": c.Storage.Jobs} {
		switch strings.ToLower(db.Driver) {
		case "memory":
		case "mysql", "sqlite", "sqlite3":
			if strings.TrimSpace(db.DSN) == "" {
				return fmt.Errorf("storage.%s 使用 %s 时必须配置 dsn", name, db.Driver)
			}
		default:
			return fmt.Errorf("storage.%s 不支持的驱动: %s", name, db.Driver)
		}
	}
	switch c.Queue.Driver {
	case "memory":
	case "redis":
		if c.Queue.Redis.Address == "" {
			return errors.New("queue.redis.address 不能为空")
		}
	case "rabbitmq":
		if c.Queue.RabbitMQ.URL == "" {
			return errors.New("queue.rabbitmq.url 不能为空")
		}
	default:
		return fmt.Errorf("不支持的队列驱动: %s", c.Queue.Driver)
	}
	return nil
}

// LedgerNetwork 返回解析后的网络。
func (c *Config) LedgerNetwork() ledger.Network {
	return ledger.ParseNetwork(c.Network.Name)
}

// DefaultWait 返回镜像节点查询前的默认等待时长。
func (q QueryConfig) DefaultWait() time.Duration {
	return time.Duration(q.DefaultWaitMS) * time.Millisecond
}

// HTTPTimeout 返回镜像节点 HTTP 客户端超时。
func (q QueryConfig) HTTPTimeout() time.Duration {
	return time.Duration(q.HTTPTimeoutMS) * time.Millisecond
}

// SQL 转换为 sqlstore 的连接参数。
func (d DatabaseConfig) SQL() sqlstore.Config {
	return sqlstore.Config{
		Driver:          d.Driver,
		DSN:             d.DSN,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: time.Duration(d.ConnMaxLifetimeSeconds) * time.Second,
	}
}

// IsMemory 判断是否使用内存实现。
func (d DatabaseConfig) IsMemory() bool {
	return strings.EqualFold(d.Driver, "memory")
}

// RedisQueue 转换为 Redis 队列参数。
func (q QueueConfig) RedisQueue() task.RedisQueueConfig {
	return task.RedisQueueConfig{
		Address:   q.Redis.Address,
		Password:  q.Redis.Password,
		DB:        q.Redis.DB,
		Queue:     q.Redis.Queue,
		BlockWait: time.Duration(q.Redis.BlockWaitSeconds) * time.Second,
	}
}

// RabbitMQQueue 转换为 RabbitMQ 队列参数。
func (q QueueConfig) RabbitMQQueue() task.RabbitMQConfig {
	return task.RabbitMQConfig{
		URL:      q.RabbitMQ.URL,
		Queue:    q.RabbitMQ.Queue,
		Prefetch: q.RabbitMQ.Prefetch,
		Durable:  q.RabbitMQ.Durable,
	}
}
