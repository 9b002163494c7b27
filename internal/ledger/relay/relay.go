package relay

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/ledger"
)

// weibarsPerHbar is the relay's 18-decimal scaling of HBAR.
var weibarsPerHbar = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// EVMAddress returns the long-zero EVM address of a ledger entity: 4 bytes of
// shard, 8 bytes of realm and 8 bytes of entity number, big-endian.
func EVMAddress(id ledger.EntityID) common.Address {
	var raw [common.AddressLength]byte
	binary.BigEndian.PutUint32(raw[0:4], uint32(id.Shard))
	binary.BigEndian.PutUint64(raw[4:12], id.Realm)
	binary.BigEndian.PutUint64(raw[12:20], id.Num)
	return common.Address(raw)
}

// SolidityAddress is EVMAddress rendered as 40 lowercase hex characters
// without the 0x prefix.
func SolidityAddress(id ledger.EntityID) string {
	return strings.TrimPrefix(strings.ToLower(EVMAddress(id).Hex()), "0x")
}

// Config describes how to reach the JSON-RPC relay.
type Config struct {
	URL       string
	AccountID ledger.EntityID
}

// Client reads account state through the Hedera JSON-RPC relay.
type Client struct {
	account common.Address
	rpc     *gethrpc.Client
	eth     *ethclient.Client
	mu      sync.Mutex
}

// NewClient dials the relay endpoint. HTTP endpoints connect lazily.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置 JSON-RPC relay 地址")
	}
	if cfg.AccountID.IsZero() {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "relay 余额查询需要账户 ID")
	}
	rpcClient, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "连接 JSON-RPC relay 失败")
	}
	return &Client{
		account: EVMAddress(cfg.AccountID),
		rpc:     rpcClient,
		eth:     ethclient.NewClient(rpcClient),
	}, nil
}

// HbarBalance implements ledger.BalanceReader for the configured account.
func (c *Client) HbarBalance(ctx context.Context) (float64, error) {
	if c == nil {
		return 0, xerrors.New(xerrors.CodeInitializationFailure, "未初始化的 relay 客户端")
	}
	c.mu.Lock()
	eth := c.eth
	c.mu.Unlock()
	if eth == nil {
		return 0, xerrors.New(xerrors.CodeInitializationFailure, "relay 客户端未初始化或已关闭")
	}
	weibars, err := eth.BalanceAt(ctx, c.account, nil)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "通过 relay 查询余额失败")
	}
	return ToHbar(weibars), nil
}

// ToHbar converts a weibar amount to HBAR.
func ToHbar(weibars *big.Int) float64 {
	if weibars == nil {
		return 0
	}
	hbars, _ := new(big.Float).Quo(new(big.Float).SetInt(weibars), weibarsPerHbar).Float64()
	return hbars
}

// Close releases the RPC connection.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc != nil {
		c.rpc.Close()
		c.rpc = nil
		c.eth = nil
	}
	return nil
}

// String describes the relay target for logs.
func (c *Client) String() string {
	if c == nil {
		return "relay(<nil>)"
	}
	return fmt.Sprintf("relay(%s)", c.account.Hex())
}

var errNoBalanceSource = errors.New("no balance source configured")

// Fallback returns a BalanceReader that asks primary first and falls back to
// secondary when primary fails.
func Fallback(primary, secondary ledger.BalanceReader) ledger.BalanceReader {
	return fallbackReader{primary: primary, secondary: secondary}
}

type fallbackReader struct {
	primary   ledger.BalanceReader
	secondary ledger.BalanceReader
}

func (f fallbackReader) HbarBalance(ctx context.Context) (float64, error) {
	if f.primary == nil && f.secondary == nil {
		return 0, xerrors.Wrap(xerrors.CodeInitializationFailure, errNoBalanceSource, "余额来源未配置")
	}
	if f.primary != nil {
		balance, err := f.primary.HbarBalance(ctx)
		if err == nil || f.secondary == nil {
			return balance, err
		}
	}
	return f.secondary.HbarBalance(ctx)
}
