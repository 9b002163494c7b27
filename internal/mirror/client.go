package mirror

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/pkg/logger"
)

const (
	// DefaultWait is how long TopicMessages sleeps before the first page so the
	// mirror can index freshly submitted messages.
	DefaultWait = 5 * time.Second
	// DefaultLimit is the page size requested from the mirror.
	DefaultLimit = 10
	// DefaultMaxPages bounds how many pages one query follows.
	DefaultMaxPages = 100
	// DefaultHTTPTimeout applies to clients built without a custom http.Client.
	DefaultHTTPTimeout = 15 * time.Second
)

// Message is one topic message as indexed by the mirror node.
type Message struct {
	ConsensusTimestamp string     `json:"consensus_timestamp"`
	TopicID            string     `json:"topic_id"`
	Message            string     `json:"message"`
	PayerAccountID     string     `json:"payer_account_id,omitempty"`
	RunningHash        string     `json:"running_hash,omitempty"`
	RunningHashVersion int        `json:"running_hash_version,omitempty"`
	SequenceNumber     int64      `json:"sequence_number"`
	ChunkInfo          *ChunkInfo `json:"chunk_info,omitempty"`

	// raw holds the record exactly as the mirror node served it.
	raw json.RawMessage
}

// UnmarshalJSON decodes the known fields and keeps the full record.
func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Message(p)
	m.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the mirror record unchanged when one was decoded,
// so fields this package does not model still reach callers.
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.raw) > 0 {
		return m.raw, nil
	}
	type plain Message
	return json.Marshal(plain(m))
}

// ChunkInfo is present on messages that were split across transactions.
type ChunkInfo struct {
	Number int `json:"number"`
	Total  int `json:"total"`
}

// Content decodes the base64 message body.
func (m Message) Content() ([]byte, error) {
	return base64.StdEncoding.DecodeString(m.Message)
}

type messagesPage struct {
	Messages []Message `json:"messages"`
	Links    struct {
		Next *string `json:"next"`
	} `json:"links"`
}

// Config describes how to reach a mirror node.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	// MaxPages caps the pages followed per query; zero means DefaultMaxPages.
	MaxPages int
	Logger   *slog.Logger
}

// Client polls the mirror node REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxPages   int
	log        *slog.Logger
}

// NewClient validates cfg and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置镜像节点地址")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "镜像节点地址无效")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Named("mirror")
	}
	return &Client{baseURL: base, httpClient: httpClient, maxPages: maxPages, log: log}, nil
}

// BaseURL returns the REST base the client queries.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TopicMessages waits for wait, then follows links.next from the first page
// of the topic's messages until the mirror stops returning one. Transport,
// status and decode failures end the loop and return what was accumulated so
// far with a nil error; only an invalid topic ID or a cancelled context
// produce an error. A next link that was already visited, or going past the
// page budget, also ends the loop.
func (c *Client) TopicMessages(ctx context.Context, topicID string, wait time.Duration, limit int) ([]Message, error) {
	topicID = strings.TrimSpace(topicID)
	if topicID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidInput, "topicId 不能为空")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, xerrors.Wrap(xerrors.CodeTimeout, ctx.Err(), "等待镜像节点索引时请求被取消")
		case <-timer.C:
		}
	}

	messages := make([]Message, 0, limit)
	next := c.firstPageURL(topicID, limit)
	visited := make(map[string]struct{})

	for pages := 0; next != ""; pages++ {
		if pages >= c.maxPages {
			c.log.Warn("镜像分页超过上限，停止拉取",
				slog.String("topic_id", topicID),
				slog.Int("max_pages", c.maxPages),
				slog.Int("collected", len(messages)))
			break
		}
		if _, seen := visited[next]; seen {
			c.log.Warn("镜像分页链接重复，停止拉取",
				slog.String("topic_id", topicID),
				slog.String("url", next))
			break
		}
		visited[next] = struct{}{}

		page, err := c.fetch(ctx, next)
		if err != nil {
			c.log.Warn("查询主题消息失败",
				slog.String("topic_id", topicID),
				slog.String("url", next),
				slog.Any("error", err))
			break
		}
		messages = append(messages, page.Messages...)

		next = ""
		if page.Links.Next != nil && strings.TrimSpace(*page.Links.Next) != "" {
			next = c.resolve(*page.Links.Next)
		}
	}
	return messages, nil
}

func (c *Client) firstPageURL(topicID string, limit int) string {
	return fmt.Sprintf("%s/api/v1/topics/%s/messages?limit=%s",
		c.baseURL, url.PathEscape(topicID), strconv.Itoa(limit))
}

// resolve turns a links.next value into a request URL. Relative links are
// appended to the base so a base with a path prefix keeps it.
func (c *Client) resolve(next string) string {
	next = strings.TrimSpace(next)
	if parsed, err := url.Parse(next); err == nil && parsed.IsAbs() {
		base, berr := url.Parse(c.baseURL)
		if berr == nil && strings.EqualFold(parsed.Scheme, base.Scheme) && strings.EqualFold(parsed.Host, base.Host) {
			return next
		}
		// links pointing elsewhere are rebased onto the configured mirror
		next = parsed.RequestURI()
	}
	if !strings.HasPrefix(next, "/") {
		next = "/" + next
	}
	return c.baseURL + next
}

func (c *Client) fetch(ctx context.Context, pageURL string) (*messagesPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeMirrorFailure, err, "构造镜像请求失败")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeMirrorFailure, err, "请求镜像节点失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, xerrors.New(xerrors.CodeMirrorFailure,
			fmt.Sprintf("镜像节点返回 %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var page messagesPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeMirrorFailure, err, "解析镜像响应失败")
	}
	return &page, nil
}
