package balance

import (
	"context"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/yolodolo42/gswap/internal/metrics"
	"github.com/yolodolo42/gswap/internal/token"
)

const (
	// DefaultRetryDelay is the pause before the single retry of a failed
	// contract read.
	DefaultRetryDelay = 180 * time.Millisecond
	defaultWorkers    = 4
)

// Reader is the part of the chain client a refresh needs.
type Reader interface {
	NativeBalance(ctx context.Context, chainID int64, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, chainID int64, tokenAddress, holder common.Address) (*big.Int, error)
}

// Refresher reads every catalog token's balance for one account.
type Refresher struct {
	reader     Reader
	retryDelay time.Duration
	workers    int
	log        *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option configures a Refresher.
type Option func(*Refresher)

func WithRetryDelay(d time.Duration) Option {
	return func(r *Refresher) { r.retryDelay = d }
}

// WithWorkers bounds concurrent reads. 1 reads sequentially.
func WithWorkers(n int) Option {
	return func(r *Refresher) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Refresher) { r.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Refresher) { r.metrics = m }
}

func NewRefresher(reader Reader, opts ...Option) *Refresher {
	r := &Refresher{
		reader:     reader,
		retryDelay: DefaultRetryDelay,
		workers:    defaultWorkers,
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh returns exactly one entry per catalog identity key. A failed read
// only marks its own token unavailable.
func (r *Refresher) Refresh(ctx context.Context, account common.Address, chainID int64, catalog []token.Token) Snapshot {
	start := r.now()

	mapper := iter.Mapper[token.Token, Entry]{MaxGoroutines: r.workers}
	entries := mapper.Map(catalog, func(t *token.Token) Entry {
		return r.read(ctx, account, chainID, *t)
	})

	balances := make(map[string]Entry, len(catalog))
	for i, t := range catalog {
		balances[t.Key()] = entries[i]
	}

	if r.metrics != nil {
		r.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	}

	return Snapshot{
		ChainID:   chainID,
		Account:   account,
		Balances:  balances,
		FetchedAt: start,
	}
}

func (r *Refresher) read(ctx context.Context, account common.Address, chainID int64, t token.Token) Entry {
	chainLabel := strconv.FormatInt(chainID, 10)
	r.count(chainLabel, t.Kind)

	var (
		raw *big.Int
		err error
	)
	if t.IsNative() {
		raw, err = r.reader.NativeBalance(ctx, chainID, account)
	} else {
		raw, err = r.readContract(ctx, account, chainID, t, chainLabel)
	}

	if err != nil {
		r.log.Warn("balance unavailable",
			zap.Int64("chain_id", chainID),
			zap.String("token", t.Symbol),
			zap.String("key", t.Key()),
			zap.Error(err))
		if r.metrics != nil {
			r.metrics.BalanceFailures.WithLabelValues(chainLabel, string(t.Kind)).Inc()
		}
		return UnavailableEntry()
	}
	return NewEntry(raw, t.Decimals)
}

// readContract retries a failed balanceOf exactly once after retryDelay.
func (r *Refresher) readContract(ctx context.Context, account common.Address, chainID int64, t token.Token, chainLabel string) (*big.Int, error) {
	addr := t.ContractAddress()
	raw, err := r.reader.TokenBalance(ctx, chainID, addr, account)
	if err == nil {
		return raw, nil
	}

	r.log.Debug("retrying balanceOf", zap.String("token", t.Symbol), zap.Error(err))
	if r.metrics != nil {
		r.metrics.BalanceRetries.WithLabelValues(chainLabel).Inc()
	}

	timer := time.NewTimer(r.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	return r.reader.TokenBalance(ctx, chainID, addr, account)
}

func (r *Refresher) count(chainLabel string, kind token.Kind) {
	if r.metrics != nil {
		r.metrics.BalanceReads.WithLabelValues(chainLabel, string(kind)).Inc()
	}
}
