package tools

import (
	"context"

	"github.com/jaycoolh/hedera-agent-kit/internal/kit"
	"github.com/jaycoolh/hedera-agent-kit/internal/ledger"
	"github.com/jaycoolh/hedera-agent-kit/internal/ledger/relay"
)

// TokenService is the token and balance surface the token tools call.
type TokenService interface {
	CreateFT(ctx context.Context, spec ledger.TokenSpec) (ledger.EntityID, error)
	TransferToken(ctx context.Context, tokenID, toAccountID string, amount int64) error
	AirdropToken(ctx context.Context, tokenID string, recipients []ledger.Recipient) (kit.AirdropSummary, error)
	HbarBalance(ctx context.Context) (float64, error)
}

const (
	NameCreateFungibleToken = "hedera_create_fungible_token"
	NameTransferToken       = "hedera_transfer_token"
	NameGetHbarBalance      = "hedera_get_hbar_balance"
	NameAirdropToken        = "hedera_airdrop_token"
)

type createTokenInput struct {
	Name          string `json:"name" jsonschema:"name of the token e.g. My Token"`
	Symbol        string `json:"symbol" jsonschema:"symbol of the token e.g. MT"`
	Decimals      uint32 `json:"decimals" jsonschema:"number of decimals of the token"`
	InitialSupply uint64 `json:"initialSupply" jsonschema:"initial supply of the token e.g. 100000"`
}

type createTokenOutput struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	InitialSupply   uint64 `json:"initialSupply"`
	TokenID         string `json:"tokenId"`
	SolidityAddress string `json:"solidityAddress"`
}

type transferTokenInput struct {
	TokenID     string `json:"tokenId" jsonschema:"token to transfer e.g. 0.0.123456"`
	ToAccountID string `json:"toAccountId" jsonschema:"receiving account e.g. 0.0.789012"`
	Amount      int64  `json:"amount" jsonschema:"amount of tokens to transfer e.g. 100"`
}

type transferTokenOutput struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	TokenID     string `json:"tokenId"`
	ToAccountID string `json:"toAccountId"`
	Amount      int64  `json:"amount"`
}

type balanceInput struct{}

type balanceOutput struct {
	Status  string  `json:"status"`
	Balance float64 `json:"balance"`
	Unit    string  `json:"unit"`
}

type airdropInput struct {
	TokenID    string             `json:"tokenId" jsonschema:"token to airdrop e.g. 0.0.123456"`
	Recipients []ledger.Recipient `json:"recipients" jsonschema:"accounts and amounts to send"`
}

type airdropOutput struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	TokenID        string `json:"tokenId"`
	RecipientCount int    `json:"recipientCount"`
	TotalAmount    int64  `json:"totalAmount"`
}

func tokenDefinitions(svc TokenService) ([]*Definition, error) {
	return build([]func() (*Definition, error){
		func() (*Definition, error) {
			return define(NameCreateFungibleToken, `Create a fungible token on Hedera
Inputs ( input is a JSON string ):
name: string, the name of the token e.g. My Token,
symbol: string, the symbol of the token e.g. MT,
decimals: number, the amount of decimals of the token
initialSupply: number, the initial supply of the token e.g. 100000`,
				func(ctx context.Context, in createTokenInput) (createTokenOutput, error) {
					id, err := svc.CreateFT(ctx, ledger.TokenSpec{
						Name:          in.Name,
						Symbol:        in.Symbol,
						Decimals:      in.Decimals,
						InitialSupply: in.InitialSupply,
					})
					if err != nil {
						return createTokenOutput{}, err
					}
					return createTokenOutput{
						Status:          StatusSuccess,
						Message:         "Token creation successful",
						InitialSupply:   in.InitialSupply,
						TokenID:         id.String(),
						SolidityAddress: relay.SolidityAddress(id),
					}, nil
				})
		},
		func() (*Definition, error) {
			return define(NameTransferToken, `Transfer fungible tokens on Hedera
Inputs ( input is a JSON string ):
tokenId: string, the ID of the token to transfer e.g. 0.0.123456,
toAccountId: string, the account ID to transfer to e.g. 0.0.789012,
amount: number, the amount of tokens to transfer e.g. 100`,
				func(ctx context.Context, in transferTokenInput) (transferTokenOutput, error) {
					if err := svc.TransferToken(ctx, in.TokenID, in.ToAccountID, in.Amount); err != nil {
						return transferTokenOutput{}, err
					}
					return transferTokenOutput{
						Status:      StatusSuccess,
						Message:     "Token transfer successful",
						TokenID:     in.TokenID,
						ToAccountID: in.ToAccountID,
						Amount:      in.Amount,
					}, nil
				})
		},
		func() (*Definition, error) {
			return define(NameGetHbarBalance, `Get the HBAR balance of the connected account
This tool takes no inputs, just pass an empty string or '{}'`,
				func(ctx context.Context, _ balanceInput) (balanceOutput, error) {
					balance, err := svc.HbarBalance(ctx)
					if err != nil {
						return balanceOutput{}, err
					}
					return balanceOutput{Status: StatusSuccess, Balance: balance, Unit: "HBAR"}, nil
				})
		},
		func() (*Definition, error) {
			return define(NameAirdropToken, `Airdrop fungible tokens to multiple accounts on Hedera
Inputs ( input is a JSON string ):
tokenId: string, the ID of the token to airdrop e.g. 0.0.123456,
recipients: array of objects containing:
  - accountId: string, the account ID to send tokens to e.g. 0.0.789012
  - amount: number, the amount of tokens to send e.g. 100
Example input: {
  "tokenId": "0.0.123456",
  "recipients": [
    {"accountId": "0.0.789012", "amount": 100},
    {"accountId": "0.0.789013", "amount": 200}
  ]
}`,
				func(ctx context.Context, in airdropInput) (airdropOutput, error) {
					summary, err := svc.AirdropToken(ctx, in.TokenID, in.Recipients)
					if err != nil {
						return airdropOutput{}, err
					}
					return airdropOutput{
						Status:         StatusSuccess,
						Message:        "Token airdrop successful",
						TokenID:        in.TokenID,
						RecipientCount: summary.RecipientCount,
						TotalAmount:    summary.TotalAmount,
					}, nil
				})
		},
	})
}
