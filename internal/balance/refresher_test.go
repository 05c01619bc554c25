package balance

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/gswap/internal/metrics"
	"github.com/yolodolo42/gswap/internal/token"
	fakes "github.com/yolodolo42/gswap/internal/testutil"
)

const (
	chainID = int64(56)
	usdt    = "0x55d398326f99059fF775485246999027B3197955"
	usdc    = "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"
	busd    = "0xe9e7cea3dedca5984780bafc599bd69add087d56"
)

var account = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func catalog() []token.Token {
	return token.Merge([]token.Token{
		token.Native("BNB", 18),
		token.ERC20("USDT", 18, usdt),
		token.ERC20("USDC", 6, usdc),
		token.ERC20("BUSD", 18, busd),
	}, nil)
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func TestRefresh(t *testing.T) {
	t.Run("one entry per key", func(t *testing.T) {
		chain := fakes.NewFakeChain()
		chain.SetNative(chainID, ether(2))
		chain.SetToken(chainID, usdt, ether(10))
		chain.SetToken(chainID, usdc, big.NewInt(1_500_000))

		r := NewRefresher(chain, WithRetryDelay(time.Millisecond))
		snap := r.Refresh(context.Background(), account, chainID, catalog())

		require.Len(t, snap.Balances, len(catalog()))
		for _, tok := range catalog() {
			_, ok := snap.Get(tok.Key())
			assert.True(t, ok, "missing %s", tok.Key())
		}
		assert.True(t, snap.Matches(account, chainID))

		bnb, _ := snap.Get("native:BNB")
		assert.Equal(t, "2", bnb.Amount.String())

		usdcEntry, _ := snap.Get(token.ERC20("USDC", 6, usdc).Key())
		assert.Equal(t, "1.5", usdcEntry.Amount.String())

		busdEntry, _ := snap.Get(token.ERC20("BUSD", 18, busd).Key())
		assert.False(t, busdEntry.Unavailable)
		assert.True(t, busdEntry.Amount.IsZero())
	})

	t.Run("one failing token leaves others intact", func(t *testing.T) {
		chain := fakes.NewFakeChain()
		chain.SetNative(chainID, ether(1))
		chain.SetToken(chainID, usdt, ether(3))
		chain.SetToken(chainID, busd, ether(4))
		chain.FailToken(usdc, 5)

		r := NewRefresher(chain, WithRetryDelay(time.Millisecond))
		snap := r.Refresh(context.Background(), account, chainID, catalog())

		failed, _ := snap.Get(token.ERC20("USDC", 6, usdc).Key())
		assert.True(t, failed.Unavailable)

		usdtEntry, _ := snap.Get(token.ERC20("USDT", 18, usdt).Key())
		assert.Equal(t, "3", usdtEntry.Amount.String())
		busdEntry, _ := snap.Get(token.ERC20("BUSD", 18, busd).Key())
		assert.Equal(t, "4", busdEntry.Amount.String())
		bnb, _ := snap.Get("native:BNB")
		assert.Equal(t, "1", bnb.Amount.String())
	})

	t.Run("retries a contract read exactly once", func(t *testing.T) {
		chain := fakes.NewFakeChain()
		chain.SetToken(chainID, usdt, ether(7))
		chain.FailToken(usdt, 1)

		r := NewRefresher(chain, WithRetryDelay(time.Millisecond))
		snap := r.Refresh(context.Background(), account, chainID, catalog())

		entry, _ := snap.Get(token.ERC20("USDT", 18, usdt).Key())
		assert.False(t, entry.Unavailable)
		assert.Equal(t, "7", entry.Amount.String())
		assert.Equal(t, 2, chain.TokenCalls[common.HexToAddress(usdt)])
	})

	t.Run("gives up after the single retry", func(t *testing.T) {
		chain := fakes.NewFakeChain()
		chain.FailToken(usdt, 2)

		r := NewRefresher(chain, WithRetryDelay(time.Millisecond))
		snap := r.Refresh(context.Background(), account, chainID, catalog())

		entry, _ := snap.Get(token.ERC20("USDT", 18, usdt).Key())
		assert.True(t, entry.Unavailable)
		assert.Equal(t, 2, chain.TokenCalls[common.HexToAddress(usdt)])
	})

	t.Run("native failure is not retried", func(t *testing.T) {
		chain := fakes.NewFakeChain()
		chain.NativeErr = fakes.ErrFakeRPC

		r := NewRefresher(chain, WithRetryDelay(time.Millisecond))
		snap := r.Refresh(context.Background(), account, chainID, catalog())

		bnb, _ := snap.Get("native:BNB")
		assert.True(t, bnb.Unavailable)
		assert.Equal(t, 1, chain.NativeCalls)
	})

	t.Run("cancelled context skips the retry wait", func(t *testing.T) {
		chain := fakes.NewFakeChain()
		chain.FailToken(usdt, 1)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := NewRefresher(chain, WithRetryDelay(time.Hour))
		done := make(chan Snapshot, 1)
		go func() { done <- r.Refresh(ctx, account, chainID, catalog()) }()

		select {
		case snap := <-done:
			entry, _ := snap.Get(token.ERC20("USDT", 18, usdt).Key())
			assert.True(t, entry.Unavailable)
		case <-time.After(5 * time.Second):
			t.Fatal("refresh blocked on retry delay")
		}
	})

	t.Run("sequential workers", func(t *testing.T) {
		chain := fakes.NewFakeChain()
		r := NewRefresher(chain, WithWorkers(1))
		snap := r.Refresh(context.Background(), account, chainID, catalog())
		assert.Len(t, snap.Balances, 4)
	})

	t.Run("empty catalog", func(t *testing.T) {
		r := NewRefresher(fakes.NewFakeChain())
		snap := r.Refresh(context.Background(), account, chainID, nil)
		assert.True(t, snap.Empty())
	})
}

func TestRefresh_Metrics(t *testing.T) {
	m := metrics.New()
	chain := fakes.NewFakeChain()
	chain.FailToken(usdt, 2)

	r := NewRefresher(chain, WithRetryDelay(time.Millisecond), WithMetrics(m))
	r.Refresh(context.Background(), account, chainID, catalog())

	assert.Equal(t, 3.0, testutil.ToFloat64(m.BalanceReads.WithLabelValues("56", "erc20")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BalanceReads.WithLabelValues("56", "native")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BalanceRetries.WithLabelValues("56")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BalanceFailures.WithLabelValues("56", "erc20")))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{"unavailable", UnavailableEntry(), "N/A"},
		{"zero", NewEntry(big.NewInt(0), 18), "0"},
		{"nil raw", NewEntry(nil, 18), "0"},
		{"dust", NewEntry(big.NewInt(1), 18), "<0.0001"},
		{"one ether", NewEntry(ether(1), 18), "1.0000"},
		{"rounds to four places", NewEntry(big.NewInt(1_234_567), 6), "1.2346"},
		{"floor exactly", NewEntry(big.NewInt(100), 6), "0.0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.entry))
		})
	}

	assert.Equal(t, "1.234567", FormatFull(NewEntry(big.NewInt(1_234_567), 6)))
}
