package hedera

import (
	"context"
	"strings"
	"sync"

	hiero "github.com/hashgraph/hedera-sdk-go/v2"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/ledger"
)

// Config describes how to construct a ledger client for one network.
type Config struct {
	Network    ledger.Network
	AccountID  string
	PrivateKey string
}

// Client implements ledger.Client on top of the Hedera Go SDK. The SDK
// client is safe for concurrent use; mu only guards Close.
type Client struct {
	network  ledger.Network
	sdk      *hiero.Client
	operator hiero.AccountID
	mu       sync.Mutex
}

// NewClient builds an SDK client for cfg.Network and sets the operator that
// pays for and signs every transaction.
func NewClient(cfg Config) (*Client, error) {
	accountRaw := strings.TrimSpace(cfg.AccountID)
	keyRaw := strings.TrimSpace(cfg.PrivateKey)
	if accountRaw == "" || keyRaw == "" {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置运营账户 ID 或私钥")
	}

	operator, err := hiero.AccountIDFromString(accountRaw)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "解析运营账户 ID 失败")
	}
	key, err := hiero.PrivateKeyFromString(keyRaw)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "解析运营私钥失败")
	}

	network := cfg.Network
	if network == "" {
		network = ledger.Testnet
	}
	sdkClient, err := hiero.ClientForName(string(network))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "初始化 Hedera 客户端失败")
	}
	sdkClient.SetOperator(operator, key)

	return &Client{network: network, sdk: sdkClient, operator: operator}, nil
}

// Network reports which environment the client talks to.
func (c *Client) Network() ledger.Network {
	return c.network
}

// OperatorID returns the paying account.
func (c *Client) OperatorID() ledger.EntityID {
	return ledger.EntityID{Shard: c.operator.Shard, Realm: c.operator.Realm, Num: c.operator.Account}
}

// Close releases the SDK client's node connections.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sdk == nil {
		return nil
	}
	err := c.sdk.Close()
	c.sdk = nil
	return err
}

// CreateTopic submits a topic creation and waits for its receipt.
func (c *Client) CreateTopic(ctx context.Context, memo string) (ledger.EntityID, error) {
	sdk, err := c.client(ctx)
	if err != nil {
		return ledger.EntityID{}, err
	}
	resp, err := hiero.NewTopicCreateTransaction().
		SetTopicMemo(memo).
		Execute(sdk)
	if err != nil {
		return ledger.EntityID{}, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "提交主题创建交易失败")
	}
	receipt, err := resp.GetReceipt(sdk)
	if err != nil {
		return ledger.EntityID{}, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "获取主题创建回执失败")
	}
	if receipt.TopicID == nil {
		return ledger.EntityID{}, nil
	}
	return ledger.EntityID{Shard: receipt.TopicID.Shard, Realm: receipt.TopicID.Realm, Num: receipt.TopicID.Topic}, nil
}

// UpdateTopic submits a memo update without waiting for the receipt.
func (c *Client) UpdateTopic(ctx context.Context, topicID ledger.EntityID, memo string) error {
	sdk, err := c.client(ctx)
	if err != nil {
		return err
	}
	_, err = hiero.NewTopicUpdateTransaction().
		SetTopicID(toTopicID(topicID)).
		SetTopicMemo(memo).
		Execute(sdk)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeLedgerFailure, err, "提交主题更新交易失败")
	}
	return nil
}

// DeleteTopic submits a topic deletion without waiting for the receipt.
func (c *Client) DeleteTopic(ctx context.Context, topicID ledger.EntityID) error {
	sdk, err := c.client(ctx)
	if err != nil {
		return err
	}
	_, err = hiero.NewTopicDeleteTransaction().
		SetTopicID(toTopicID(topicID)).
		Execute(sdk)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeLedgerFailure, err, "提交主题删除交易失败")
	}
	return nil
}

// SubmitMessage publishes message to the topic without waiting for the receipt.
func (c *Client) SubmitMessage(ctx context.Context, topicID ledger.EntityID, message []byte) error {
	sdk, err := c.client(ctx)
	if err != nil {
		return err
	}
	_, err = hiero.NewTopicMessageSubmitTransaction().
		SetTopicID(toTopicID(topicID)).
		SetMessage(message).
		Execute(sdk)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeLedgerFailure, err, "提交主题消息失败")
	}
	return nil
}

// CreateFungibleToken creates a token treasured and administered by the
// operator and waits for the receipt.
func (c *Client) CreateFungibleToken(ctx context.Context, spec ledger.TokenSpec) (ledger.EntityID, error) {
	sdk, err := c.client(ctx)
	if err != nil {
		return ledger.EntityID{}, err
	}
	operatorKey := sdk.GetOperatorPublicKey()
	resp, err := hiero.NewTokenCreateTransaction().
		SetTokenName(spec.Name).
		SetTokenSymbol(spec.Symbol).
		SetDecimals(uint(spec.Decimals)).
		SetInitialSupply(spec.InitialSupply).
		SetTreasuryAccountID(c.operator).
		SetAdminKey(operatorKey).
		SetSupplyKey(operatorKey).
		Execute(sdk)
	if err != nil {
		return ledger.EntityID{}, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "提交代币创建交易失败")
	}
	receipt, err := resp.GetReceipt(sdk)
	if err != nil {
		return ledger.EntityID{}, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "获取代币创建回执失败")
	}
	if receipt.TokenID == nil {
		return ledger.EntityID{}, xerrors.New(xerrors.CodeLedgerFailure, "代币创建回执缺少代币 ID")
	}
	return ledger.EntityID{Shard: receipt.TokenID.Shard, Realm: receipt.TokenID.Realm, Num: receipt.TokenID.Token}, nil
}

// TransferToken moves amount from the operator to the recipient.
func (c *Client) TransferToken(ctx context.Context, tokenID, to ledger.EntityID, amount int64) error {
	sdk, err := c.client(ctx)
	if err != nil {
		return err
	}
	token := toTokenID(tokenID)
	resp, err := hiero.NewTransferTransaction().
		AddTokenTransfer(token, c.operator, -amount).
		AddTokenTransfer(token, toAccountID(to), amount).
		Execute(sdk)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeLedgerFailure, err, "提交代币转账交易失败")
	}
	if _, err := resp.GetReceipt(sdk); err != nil {
		return xerrors.Wrap(xerrors.CodeLedgerFailure, err, "代币转账未成功")
	}
	return nil
}

// AirdropToken debits the operator once for the total and credits every
// recipient in a single transfer transaction.
func (c *Client) AirdropToken(ctx context.Context, tokenID ledger.EntityID, recipients []ledger.Recipient) error {
	sdk, err := c.client(ctx)
	if err != nil {
		return err
	}
	token := toTokenID(tokenID)
	tx := hiero.NewTransferTransaction()
	var total int64
	for _, r := range recipients {
		account, err := ledger.ParseEntityID(r.AccountID)
		if err != nil {
			return err
		}
		tx.AddTokenTransfer(token, toAccountID(account), r.Amount)
		total += r.Amount
	}
	tx.AddTokenTransfer(token, c.operator, -total)

	resp, err := tx.Execute(sdk)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeLedgerFailure, err, "提交空投交易失败")
	}
	if _, err := resp.GetReceipt(sdk); err != nil {
		return xerrors.Wrap(xerrors.CodeLedgerFailure, err, "空投交易未成功")
	}
	return nil
}

// HbarBalance queries the operator balance through the consensus nodes.
func (c *Client) HbarBalance(ctx context.Context) (float64, error) {
	sdk, err := c.client(ctx)
	if err != nil {
		return 0, err
	}
	balance, err := hiero.NewAccountBalanceQuery().
		SetAccountID(c.operator).
		Execute(sdk)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "查询账户余额失败")
	}
	return balance.Hbars.As(hiero.HbarUnits.Hbar), nil
}

// client returns the live SDK client. The SDK calls are not context-aware, so
// a context that is already done short-circuits here instead.
func (c *Client) client(ctx context.Context) (*hiero.Client, error) {
	if c == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未初始化的 Hedera 客户端")
	}
	if err := ctx.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeTimeout, err, "请求已取消")
	}
	c.mu.Lock()
	sdk := c.sdk
	c.mu.Unlock()
	if sdk == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "Hedera 客户端已关闭")
	}
	return sdk, nil
}

func toTopicID(id ledger.EntityID) hiero.TopicID {
	return hiero.TopicID{Shard: id.Shard, Realm: id.Realm, Topic: id.Num}
}

func toTokenID(id ledger.EntityID) hiero.TokenID {
	return hiero.TokenID{Shard: id.Shard, Realm: id.Realm, Token: id.Num}
}

func toAccountID(id ledger.EntityID) hiero.AccountID {
	return hiero.AccountID{Shard: id.Shard, Realm: id.Realm, Account: id.Num}
}

var _ ledger.Client = (*Client)(nil)
