package consensus

import (
	"context"
	"strings"
	"time"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/ledger"
	"github.com/jaycoolh/hedera-agent-kit/internal/mirror"
)

// DefaultMemo is used when a topic is created without a memo.
const DefaultMemo = "Default Topic"

// CodeTopicCreationFailed 表示交易被接受但回执中没有主题 ID。
const CodeTopicCreationFailed xerrors.Code = "TOPIC_CREATION_FAILED"

// ErrTopicCreation matches, via errors.Is, every topic creation whose receipt
// carried no topic ID.
var ErrTopicCreation = xerrors.New(CodeTopicCreationFailed, "主题创建失败：回执中缺少主题 ID")

func init() {
	xerrors.Register(CodeTopicCreationFailed, xerrors.Attributes{
		Message:  "topic creation failed",
		Severity: xerrors.SeverityWarning,
	})
}

// MessageReader reads topic messages from the mirror node.
type MessageReader interface {
	TopicMessages(ctx context.Context, topicID string, wait time.Duration, limit int) ([]mirror.Message, error)
}

// Topic is the result of a successful creation.
type Topic struct {
	ID   ledger.EntityID
	Memo string
}

// Service wraps the consensus service transactions and the mirror read path.
type Service struct {
	ledger       ledger.TopicClient
	reader       MessageReader
	defaultWait  time.Duration
	defaultLimit int
}

// Option customises a Service.
type Option func(*Service)

// WithDefaultWait sets the indexing delay used when a query passes none.
func WithDefaultWait(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.defaultWait = d
		}
	}
}

// WithDefaultLimit sets the page size used when a query passes none.
func WithDefaultLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

// NewService validates its collaborators and applies options.
func NewService(client ledger.TopicClient, reader MessageReader, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置账本客户端")
	}
	if reader == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置镜像节点客户端")
	}
	s := &Service{
		ledger:       client,
		reader:       reader,
		defaultWait:  mirror.DefaultWait,
		defaultLimit: mirror.DefaultLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// CreateTopic creates a topic with memo, or DefaultMemo when memo is blank.
func (s *Service) CreateTopic(ctx context.Context, memo string) (Topic, error) {
	if strings.TrimSpace(memo) == "" {
		memo = DefaultMemo
	}
	id, err := s.ledger.CreateTopic(ctx, memo)
	if err != nil {
		return Topic{}, err
	}
	if id.IsZero() {
		return Topic{}, ErrTopicCreation
	}
	return Topic{ID: id, Memo: memo}, nil
}

// UpdateTopic replaces the topic memo.
func (s *Service) UpdateTopic(ctx context.Context, topicID, memo string) error {
	id, err := ledger.ParseEntityID(topicID)
	if err != nil {
		return err
	}
	return s.ledger.UpdateTopic(ctx, id, memo)
}

// DeleteTopic removes the topic. The deletion cannot be undone.
func (s *Service) DeleteTopic(ctx context.Context, topicID string) error {
	id, err := ledger.ParseEntityID(topicID)
	if err != nil {
		return err
	}
	return s.ledger.DeleteTopic(ctx, id)
}

// SubmitMessage publishes message to the topic.
func (s *Service) SubmitMessage(ctx context.Context, topicID, message string) error {
	id, err := ledger.ParseEntityID(topicID)
	if err != nil {
		return err
	}
	return s.ledger.SubmitMessage(ctx, id, []byte(message))
}

// QueryMessages reads every indexed message of the topic. Non-positive wait
// and limit fall back to the service defaults.
func (s *Service) QueryMessages(ctx context.Context, topicID string, wait time.Duration, limit int) ([]mirror.Message, error) {
	id, err := ledger.ParseEntityID(topicID)
	if err != nil {
		return nil, err
	}
	if wait <= 0 {
		wait = s.defaultWait
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	return s.reader.TopicMessages(ctx, id.String(), wait, limit)
}
