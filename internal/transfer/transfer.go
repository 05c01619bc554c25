package transfer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/yolodolo42/gswap/internal/history"
	"github.com/yolodolo42/gswap/internal/token"
)

var (
	// ErrValidation is wrapped by every local precondition failure.
	ErrValidation = errors.New("invalid transfer")

	ErrNotConnected     = fmt.Errorf("%w: wallet not connected", ErrValidation)
	ErrUnsupportedChain = fmt.Errorf("%w: unsupported network", ErrValidation)
	ErrNoSigner         = fmt.Errorf("%w: no signing client", ErrValidation)
	ErrInvalidRecipient = fmt.Errorf("%w: invalid recipient address", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrUnknownToken     = fmt.Errorf("%w: token not in catalog", ErrValidation)

	// ErrTransferFailed covers signing, broadcast, receipt and revert failures.
	ErrTransferFailed = errors.New("transaction failed")
	ErrReverted       = errors.New("transaction reverted")
)

// Sender signs and broadcasts transactions for a connected account.
type Sender interface {
	SendNative(ctx context.Context, chainID int64, from, to common.Address, value *big.Int) (common.Hash, error)
	SendContractCall(ctx context.Context, chainID int64, from, contract common.Address, data []byte) (common.Hash, error)
}

// ReceiptWaiter blocks until a transaction is included.
type ReceiptWaiter interface {
	WaitMined(ctx context.Context, chainID int64, txHash common.Hash) (*types.Receipt, error)
}

// RefreshFunc re-reads balances after a confirmed transfer.
type RefreshFunc func(ctx context.Context)

// Request is one transfer as entered by the user. A zero Account means no
// wallet is connected.
type Request struct {
	Account   common.Address
	ChainID   int64
	Sender    Sender
	Catalog   []token.Token
	Token     string
	Recipient string
	Amount    string
}

// Result describes a confirmed transfer.
type Result struct {
	Hash    common.Hash
	Receipt *types.Receipt
	Record  history.Record
	Token   token.Token
	Value   *big.Int
}

// plainAmount is a non-negative decimal without sign or exponent: "1", "0.5",
// ".5" and "5." all match.
var plainAmount = regexp.MustCompile(`^([0-9]+\.?[0-9]*|\.[0-9]+)$`)

// ParseAmount converts a decimal amount to base units. Zero, negative,
// non-numeric and over-precise amounts are rejected.
func ParseAmount(raw string, decimals uint8) (*big.Int, error) {
	d, err := parseDecimal(raw)
	if err != nil {
		return nil, err
	}
	return toBaseUnits(d, decimals)
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}

	if !plainAmount.MatchString(s) {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}
	if d.Sign() == 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return d, nil
}

func toBaseUnits(d decimal.Decimal, decimals uint8) (*big.Int, error) {
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, decimals)
	}
	return scaled.BigInt(), nil
}
