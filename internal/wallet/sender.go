package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/yolodolo42/gswap/internal/tx"
)

var ErrSignerMismatch = errors.New("sender does not match unlocked account")

// Broadcaster prepares and submits transactions on a chain.
type Broadcaster interface {
	tx.Backend
	SendTransaction(ctx context.Context, chainID int64, tx *types.Transaction) error
}

// Sender builds, signs and broadcasts transfers for an unlocked signer.
type Sender struct {
	signer  Signer
	backend Broadcaster
	log     *zap.Logger
}

func NewSender(signer Signer, backend Broadcaster, log *zap.Logger) *Sender {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sender{signer: signer, backend: backend, log: log}
}

// Address returns the account the sender signs for.
func (s *Sender) Address() common.Address {
	return s.signer.Address()
}

// SendNative transfers value of the chain's base asset.
func (s *Sender) SendNative(ctx context.Context, chainID int64, from, to common.Address, value *big.Int) (common.Hash, error) {
	return s.send(ctx, tx.Intent{
		ChainID:  chainID,
		From:     from,
		To:       to,
		ValueWei: value,
	})
}

// SendContractCall calls contract with data and no value.
func (s *Sender) SendContractCall(ctx context.Context, chainID int64, from, contract common.Address, data []byte) (common.Hash, error) {
	return s.send(ctx, tx.Intent{
		ChainID:  chainID,
		From:     from,
		To:       contract,
		ValueWei: new(big.Int),
		Data:     data,
	})
}

func (s *Sender) send(ctx context.Context, intent tx.Intent) (common.Hash, error) {
	if intent.From != s.signer.Address() {
		return common.Hash{}, ErrSignerMismatch
	}

	unsigned, fees, err := tx.BuildUnsignedTx(ctx, s.backend, intent)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	signed, err := s.signer.SignTransaction(unsigned, big.NewInt(intent.ChainID))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.backend.SendTransaction(ctx, intent.ChainID, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	s.log.Debug("transaction sent",
		zap.Int64("chain_id", intent.ChainID),
		zap.String("tx", signed.Hash().Hex()),
		zap.Uint64("nonce", signed.Nonce()),
		zap.Uint64("gas", fees.GasLimit),
		zap.String("max_fee", fees.MaxFeePerGas.String()))

	return signed.Hash(), nil
}
