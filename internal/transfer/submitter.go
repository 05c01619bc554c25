package transfer

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/yolodolo42/gswap/internal/chain"
	"github.com/yolodolo42/gswap/internal/history"
	"github.com/yolodolo42/gswap/internal/metrics"
	"github.com/yolodolo42/gswap/internal/token"
)

// DefaultReceiptTimeout bounds the wait for inclusion.
const DefaultReceiptTimeout = 5 * time.Minute

// Submitter validates, broadcasts and confirms transfers, then records them.
type Submitter struct {
	registry *chain.Registry
	waiter   ReceiptWaiter
	history  *history.History
	refresh  RefreshFunc
	timeout  time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithReceiptTimeout sets how long to wait for a receipt. Zero waits until
// the caller's context ends.
func WithReceiptTimeout(d time.Duration) Option {
	return func(s *Submitter) { s.timeout = d }
}

// WithRefresh sets the balance refresh run after confirmation.
func WithRefresh(fn RefreshFunc) Option {
	return func(s *Submitter) { s.refresh = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Submitter) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Submitter) { s.metrics = m }
}

func withClock(now func() time.Time) Option {
	return func(s *Submitter) { s.now = now }
}

func NewSubmitter(registry *chain.Registry, waiter ReceiptWaiter, hist *history.History, opts ...Option) *Submitter {
	s := &Submitter{
		registry: registry,
		waiter:   waiter,
		history:  hist,
		timeout:  DefaultReceiptTimeout,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate runs every local check in order and returns the catalog token and
// the scaled amount. It never touches an external client.
func (s *Submitter) Validate(req Request) (token.Token, *big.Int, error) {
	if req.Account == (common.Address{}) {
		return token.Token{}, nil, ErrNotConnected
	}
	if !s.registry.IsSupported(req.ChainID) {
		return token.Token{}, nil, ErrUnsupportedChain
	}
	if req.Sender == nil {
		return token.Token{}, nil, ErrNoSigner
	}
	if !common.IsHexAddress(strings.TrimSpace(req.Recipient)) {
		return token.Token{}, nil, ErrInvalidRecipient
	}

	amount, err := parseDecimal(req.Amount)
	if err != nil {
		return token.Token{}, nil, err
	}

	tok, ok := token.Find(req.Catalog, req.Token)
	if !ok {
		return token.Token{}, nil, ErrUnknownToken
	}

	value, err := toBaseUnits(amount, tok.Decimals)
	if err != nil {
		return token.Token{}, nil, err
	}
	return tok, value, nil
}

// Submit sends the transfer and blocks until it is confirmed. Only a
// confirmed transfer is refreshed and appended to history.
func (s *Submitter) Submit(ctx context.Context, req Request) (Result, error) {
	chainLabel := strconv.FormatInt(req.ChainID, 10)

	tok, value, err := s.Validate(req)
	if err != nil {
		s.outcome(chainLabel, "rejected")
		return Result{}, err
	}

	to := common.HexToAddress(strings.TrimSpace(req.Recipient))
	hash, err := s.send(ctx, req, tok, to, value)
	if err != nil {
		return Result{}, s.fail(chainLabel, "send", err)
	}

	s.log.Info("transfer broadcast",
		zap.Int64("chain_id", req.ChainID),
		zap.String("token", tok.Symbol),
		zap.String("to", to.Hex()),
		zap.String("tx", hash.Hex()))

	receipt, err := s.wait(ctx, req.ChainID, hash)
	if err != nil {
		return Result{}, s.fail(chainLabel, "receipt", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return Result{}, s.fail(chainLabel, "receipt", fmt.Errorf("%w: %s", ErrReverted, hash.Hex()))
	}

	if s.refresh != nil {
		s.refresh(ctx)
	}

	rec := history.Record{
		Date:    s.now().UTC(),
		Amount:  strings.TrimSpace(req.Amount),
		Token:   tok.Symbol,
		ChainID: req.ChainID,
		From:    req.Account.Hex(),
		To:      strings.TrimSpace(req.Recipient),
		Hash:    hash.Hex(),
	}
	if s.history != nil {
		if err := s.history.Append(rec); err != nil {
			s.log.Warn("failed to persist history", zap.String("tx", hash.Hex()), zap.Error(err))
		}
	}

	s.outcome(chainLabel, "confirmed")
	s.log.Info("transfer confirmed",
		zap.Int64("chain_id", req.ChainID),
		zap.String("tx", hash.Hex()),
		zap.Uint64("block", blockNumber(receipt)))

	return Result{
		Hash:    hash,
		Receipt: receipt,
		Record:  rec,
		Token:   tok,
		Value:   value,
	}, nil
}

func (s *Submitter) send(ctx context.Context, req Request, tok token.Token, to common.Address, value *big.Int) (common.Hash, error) {
	if tok.IsNative() {
		return req.Sender.SendNative(ctx, req.ChainID, req.Account, to, value)
	}

	data, err := chain.PackTransfer(to, value)
	if err != nil {
		return common.Hash{}, err
	}
	return req.Sender.SendContractCall(ctx, req.ChainID, req.Account, tok.ContractAddress(), data)
}

func (s *Submitter) wait(ctx context.Context, chainID int64, hash common.Hash) (*types.Receipt, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	receipt, err := s.waiter.WaitMined(ctx, chainID, hash)
	if s.metrics != nil && err == nil {
		s.metrics.ConfirmDuration.Observe(time.Since(start).Seconds())
	}
	return receipt, err
}

func (s *Submitter) fail(chainLabel, stage string, err error) error {
	s.outcome(chainLabel, "failed")
	s.log.Error("transfer failed", zap.String("stage", stage), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", ErrTransferFailed, stage, err)
}

func (s *Submitter) outcome(chainLabel, outcome string) {
	if s.metrics != nil {
		s.metrics.Transfers.WithLabelValues(chainLabel, outcome).Inc()
	}
}

func blockNumber(r *types.Receipt) uint64 {
	if r.BlockNumber == nil {
		return 0
	}
	return r.BlockNumber.Uint64()
}
