package tx

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrValueMissing = errors.New("value missing")

// Backend is the subset of the chain client needed to prepare a transaction.
type Backend interface {
	PendingNonceAt(ctx context.Context, chainID int64, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context, chainID int64) (*big.Int, error)
	SuggestGasPrice(ctx context.Context, chainID int64) (*big.Int, error)
	EstimateGas(ctx context.Context, chainID int64, msg ethereum.CallMsg) (uint64, error)
}

// Intent captures a state-changing transaction the user wants to perform.
type Intent struct {
	ChainID     int64          // target chain
	From        common.Address // signer address
	To          common.Address // recipient or token contract
	ValueWei    *big.Int       // native value
	Data        []byte         // calldata (empty for native send)
	Nonce       *uint64        // optional override
	GasLimit    *uint64        // optional override
	MaxFeePerG  *big.Int       // optional override
	MaxPriority *big.Int       // optional override
}

// SuggestedFees carries gas estimates so the caller can render them.
type SuggestedFees struct {
	GasLimit         uint64
	MaxFeePerGas     *big.Int
	MaxPriorityFee   *big.Int
	EstimatedCostWei *big.Int
}

// BuildUnsignedTx prepares an unsigned EIP-1559 transaction.
func BuildUnsignedTx(ctx context.Context, backend Backend, intent Intent) (*types.Transaction, SuggestedFees, error) {
	if intent.ValueWei == nil {
		return nil, SuggestedFees{}, ErrValueMissing
	}

	// Nonce
	nonce := uint64(0)
	if intent.Nonce != nil {
		nonce = *intent.Nonce
	} else {
		n, err := backend.PendingNonceAt(ctx, intent.ChainID, intent.From)
		if err != nil {
			return nil, SuggestedFees{}, fmt.Errorf("nonce: %w", err)
		}
		nonce = n
	}

	// Fees
	maxFee := intent.MaxFeePerG
	maxPrio := intent.MaxPriority
	if maxPrio == nil {
		tip, err := backend.SuggestGasTipCap(ctx, intent.ChainID)
		if err != nil {
			return nil, SuggestedFees{}, fmt.Errorf("tip cap: %w", err)
		}
		maxPrio = tip
	}
	if maxFee == nil {
		fee, err := backend.SuggestGasPrice(ctx, intent.ChainID)
		if err != nil {
			return nil, SuggestedFees{}, fmt.Errorf("gas price: %w", err)
		}
		maxFee = fee
	}
	// Fee cap below tip is rejected by nodes.
	if maxFee.Cmp(maxPrio) < 0 {
		maxFee = new(big.Int).Set(maxPrio)
	}

	// Gas limit
	gasLimit := uint64(0)
	if intent.GasLimit != nil {
		gasLimit = *intent.GasLimit
	} else {
		call := ethereum.CallMsg{
			From:      intent.From,
			To:        &intent.To,
			GasFeeCap: maxFee,
			GasTipCap: maxPrio,
			Value:     intent.ValueWei,
			Data:      intent.Data,
		}
		gl, err := backend.EstimateGas(ctx, intent.ChainID, call)
		if err != nil {
			return nil, SuggestedFees{}, fmt.Errorf("estimate gas: %w", err)
		}
		gasLimit = gl
	}

	to := intent.To
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(intent.ChainID),
		Nonce:     nonce,
		GasTipCap: maxPrio,
		GasFeeCap: maxFee,
		Gas:       gasLimit,
		To:        &to,
		Value:     intent.ValueWei,
		Data:      intent.Data,
	})

	total := new(big.Int).Mul(maxFee, new(big.Int).SetUint64(gasLimit))
	total.Add(total, intent.ValueWei)

	return tx, SuggestedFees{
		GasLimit:         gasLimit,
		MaxFeePerGas:     maxFee,
		MaxPriorityFee:   maxPrio,
		EstimatedCostWei: total,
	}, nil
}
