package task

import (
	"context"
	"encoding/json"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
)

// Store 抽象了作业状态的持久化接口。
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	// Claim 将 pending 作业切换为 running 并累加执行次数。
	Claim(ctx context.Context, id string) (*Job, error)
	MarkSucceeded(ctx context.Context, id string, output json.RawMessage) error
	// MarkFailed 记录失败；terminal 为 false 时作业回到 pending 等待重投。
	MarkFailed(ctx context.Context, id string, code xerrors.Code, lastError string, output json.RawMessage, terminal bool) error
	List(ctx context.Context, opts ListOptions) ([]*Job, error)
	Stats(ctx context.Context, opts ListOptions) (JobStats, error)
	Close() error
}
