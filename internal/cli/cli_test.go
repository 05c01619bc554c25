package cli

import (
	"bytes"
	"context"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yolodolo42/gswap/internal/chain"
	"github.com/yolodolo42/gswap/internal/config"
	"github.com/yolodolo42/gswap/internal/metrics"
	"github.com/yolodolo42/gswap/internal/portal"
	"github.com/yolodolo42/gswap/internal/session"
	"github.com/yolodolo42/gswap/internal/store"
	"github.com/yolodolo42/gswap/internal/testutil"
	"github.com/yolodolo42/gswap/internal/token"
	"github.com/yolodolo42/gswap/internal/transfer"
	"github.com/yolodolo42/gswap/internal/wallet"
)

// Well-known development key; never funded on a real network.
const (
	testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testPassword   = "correct horse"
	cakeBSC        = "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82"
	usdtBSC        = "0x55d398326f99059fF775485246999027B3197955"
	recipient      = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

var testAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

// env is the state shared by successive command invocations: one data
// directory, one store and the same chain.
type env struct {
	dir     string
	chain   *testutil.FakeChain
	backend *testutil.FakeBackend
	store   *store.MemoryStore
	keys    *wallet.KeystoreManager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := testutil.TempDir(t)
	keys, err := wallet.NewKeystoreManager(dir, wallet.WithLightScrypt())
	require.NoError(t, err)

	e := &env{
		dir:     dir,
		chain:   testutil.NewFakeChain(),
		backend: testutil.NewFakeBackend(),
		store:   store.NewMemoryStore(),
		keys:    keys,
	}
	e.chain.SetNative(chain.BSCChainID, new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18)))
	return e
}

func (e *env) importKey(t *testing.T) {
	t.Helper()
	_, err := e.keys.ImportKey(testPrivateKey, testPassword)
	require.NoError(t, err)
}

// open simulates one command run: a fresh app over the shared state, with
// the saved session restored.
func (e *env) open(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	cfg := config.Config{
		DataDir:           e.dir,
		DefaultChain:      "bsc",
		AllowCustomTokens: true,
		RetryDelay:        time.Millisecond,
		Workers:           2,
	}
	registry, err := cfg.Registry()
	require.NoError(t, err)

	out := &bytes.Buffer{}
	a, err := newApp(cfg, appDeps{
		registry: registry,
		reader:   e.chain,
		backend:  e.backend,
		store:    e.store,
		keys:     e.keys,
		metrics:  metrics.New(),
		log:      zap.NewNop(),
	}, out)
	require.NoError(t, err)
	a.restore()
	t.Cleanup(a.Close)
	return a, out
}

func (e *env) connected(t *testing.T) {
	t.Helper()
	e.importKey(t)
	a, _ := e.open(t)
	require.NoError(t, a.connect(context.Background(), testAddress, testPassword))
}

func TestConnect(t *testing.T) {
	t.Run("prints balances and persists the session", func(t *testing.T) {
		e := newEnv(t)
		e.importKey(t)

		a, out := e.open(t)
		require.NoError(t, a.connect(context.Background(), testAddress, testPassword))
		assert.Contains(t, out.String(), "Connected "+testAddress.Hex()+" on BNB Smart Chain")
		assert.Contains(t, out.String(), "2.0000")
		assert.Contains(t, out.String(), "USDT")

		next, _ := e.open(t)
		v := next.portal.View()
		assert.Equal(t, portal.StatusReady, v.Status)
		assert.Equal(t, testAddress, v.Account)
		assert.False(t, v.CanSign, "a restored session is read-only until unlocked")
	})

	t.Run("wrong password", func(t *testing.T) {
		e := newEnv(t)
		e.importKey(t)

		a, _ := e.open(t)
		err := a.connect(context.Background(), testAddress, "nope")
		assert.ErrorIs(t, err, wallet.ErrWrongPassword)
		assert.Equal(t, portal.StatusDisconnected, a.portal.Status())
	})
}

func TestRestore(t *testing.T) {
	t.Run("commands without balances do not read them", func(t *testing.T) {
		e := newEnv(t)
		e.connected(t)
		e.chain.NativeCalls = 0

		a, _ := e.open(t)
		a.printChains()
		a.printHistory(0)
		a.printTokens()
		require.NoError(t, a.disconnect(context.Background()))
		assert.Zero(t, e.chain.NativeCalls)
	})

	t.Run("balances reads once", func(t *testing.T) {
		e := newEnv(t)
		e.connected(t)
		e.chain.NativeCalls = 0

		a, out := e.open(t)
		assert.True(t, a.portal.View().Balances.Empty())

		require.NoError(t, a.printBalances(context.Background()))
		assert.Equal(t, 1, e.chain.NativeCalls)
		assert.Contains(t, out.String(), testAddress.Hex()+" on BNB Smart Chain")
		assert.Contains(t, out.String(), "2.0000")
	})
}

func TestPickAccount(t *testing.T) {
	e := newEnv(t)
	a, _ := e.open(t)

	_, err := a.pickAccount(nil)
	assert.ErrorIs(t, err, errNoWallets)

	_, err = a.pickAccount([]string{testAddress.Hex()})
	assert.ErrorIs(t, err, wallet.ErrAccountNotFound)

	e.importKey(t)
	addr, err := a.pickAccount(nil)
	require.NoError(t, err)
	assert.Equal(t, testAddress, addr)

	addr, err = a.pickAccount([]string{strings.ToLower(testAddress.Hex())})
	require.NoError(t, err)
	assert.Equal(t, testAddress, addr)

	_, err = a.pickAccount([]string{"0x123"})
	assert.Error(t, err)
}

func TestSend(t *testing.T) {
	t.Run("native", func(t *testing.T) {
		e := newEnv(t)
		e.connected(t)

		a, out := e.open(t)
		tok, err := a.prepareSend("", recipient, "0.5")
		require.NoError(t, err)
		assert.Equal(t, "BNB", tok.Symbol)

		require.NoError(t, a.unlock(testPassword))
		res, err := a.submit(context.Background())
		require.NoError(t, err)

		require.Len(t, e.backend.Broadcasts, 1)
		sent := e.backend.Broadcasts[0]
		assert.Equal(t, "500000000000000000", sent.Value().String())
		assert.Equal(t, common.HexToAddress(recipient), *sent.To())
		assert.Equal(t, []int64{chain.BSCChainID}, e.backend.BroadcastOn)

		assert.Contains(t, out.String(), "Transfer sent: "+res.Hash.Hex())
		assert.Contains(t, out.String(), "https://bscscan.com/tx/"+res.Hash.Hex())

		later, laterOut := e.open(t)
		later.printHistory(0)
		assert.Contains(t, laterOut.String(), "0.5 BNB")
	})

	t.Run("erc20 by symbol", func(t *testing.T) {
		e := newEnv(t)
		e.connected(t)

		a, _ := e.open(t)
		tok, err := a.prepareSend("usdt", recipient, "1")
		require.NoError(t, err)
		assert.Equal(t, "USDT", tok.Symbol)

		require.NoError(t, a.unlock(testPassword))
		_, err = a.submit(context.Background())
		require.NoError(t, err)

		require.Len(t, e.backend.Broadcasts, 1)
		sent := e.backend.Broadcasts[0]
		assert.Equal(t, common.HexToAddress(usdtBSC), *sent.To())
		assert.Equal(t, "a9059cbb", hex.EncodeToString(sent.Data()[:4]))
	})

	t.Run("locked session is rejected", func(t *testing.T) {
		e := newEnv(t)
		e.connected(t)

		a, out := e.open(t)
		_, err := a.prepareSend("", recipient, "0.5")
		require.NoError(t, err)

		_, err = a.submit(context.Background())
		assert.ErrorIs(t, err, transfer.ErrNoSigner)
		assert.Contains(t, out.String(), "Could not initialise the wallet signer")
		assert.Empty(t, e.backend.Broadcasts)
	})

	t.Run("wrong password", func(t *testing.T) {
		e := newEnv(t)
		e.connected(t)

		a, _ := e.open(t)
		assert.ErrorIs(t, a.unlock("nope"), wallet.ErrWrongPassword)
	})

	t.Run("no session", func(t *testing.T) {
		e := newEnv(t)
		a, _ := e.open(t)

		assert.ErrorIs(t, a.unlock(testPassword), errNotConnected)
	})

	t.Run("unknown token", func(t *testing.T) {
		e := newEnv(t)
		e.connected(t)

		a, _ := e.open(t)
		_, err := a.prepareSend("DOGE", recipient, "1")
		assert.ErrorIs(t, err, transfer.ErrUnknownToken)
	})
}

func TestSwitchChain(t *testing.T) {
	t.Run("supported chain is saved", func(t *testing.T) {
		e := newEnv(t)
		e.connected(t)

		a, out := e.open(t)
		require.NoError(t, a.switchChain(context.Background(), "polygon"))
		assert.Contains(t, out.String(), "Switched to Polygon")

		next, _ := e.open(t)
		assert.Equal(t, chain.PolygonChainID, next.portal.View().ChainID)
	})

	t.Run("unsupported chain id", func(t *testing.T) {
		e := newEnv(t)
		e.connected(t)

		a, out := e.open(t)
		require.NoError(t, a.switchChain(context.Background(), "1"))
		assert.Contains(t, out.String(), "Chain 1 is not supported")
		assert.Error(t, a.printBalances(context.Background()))
	})

	t.Run("clears custom tokens", func(t *testing.T) {
		e := newEnv(t)
		e.connected(t)
		e.chain.SetMetadata(cakeBSC, "CAKE", 18)

		a, _ := e.open(t)
		require.NoError(t, a.addToken(context.Background(), cakeBSC))

		b, out := e.open(t)
		require.NoError(t, b.switchChain(context.Background(), "arbitrum"))
		assert.Contains(t, out.String(), "Custom tokens were removed")
		assert.Zero(t, b.portal.CustomTokens().Len())
	})

	t.Run("needs a session", func(t *testing.T) {
		e := newEnv(t)
		a, _ := e.open(t)
		assert.ErrorIs(t, a.switchChain(context.Background(), "polygon"), errNotConnected)
	})

	t.Run("unknown key", func(t *testing.T) {
		e := newEnv(t)
		e.connected(t)
		a, _ := e.open(t)
		assert.ErrorIs(t, a.switchChain(context.Background(), "solana"), chain.ErrUnknownChain)
	})
}

func TestTokens(t *testing.T) {
	e := newEnv(t)
	e.chain.SetMetadata(cakeBSC, "CAKE", 18)

	a, out := e.open(t)
	require.NoError(t, a.addToken(context.Background(), cakeBSC))
	assert.Contains(t, out.String(), "Token CAKE added.")

	b, listOut := e.open(t)
	b.printTokens()
	assert.Contains(t, listOut.String(), "Tokens on BNB Smart Chain")
	assert.Contains(t, listOut.String(), "CAKE")
	assert.Contains(t, listOut.String(), "custom")

	err := b.addToken(context.Background(), cakeBSC)
	assert.ErrorIs(t, err, portal.ErrDuplicateToken)

	err = b.removeToken(usdtBSC)
	assert.ErrorIs(t, err, portal.ErrTokenNotCustom)
	assert.Contains(t, listOut.String(), "That token is not in the custom list.")

	require.NoError(t, b.removeToken(strings.ToLower(cakeBSC)))
	assert.Contains(t, listOut.String(), "Token removed from the custom list.")
	assert.Zero(t, b.portal.CustomTokens().Len())
}

func TestDisconnect(t *testing.T) {
	e := newEnv(t)
	e.connected(t)

	a, out := e.open(t)
	require.NoError(t, a.disconnect(context.Background()))
	assert.Contains(t, out.String(), "Wallet disconnected.")

	for _, key := range []string{session.SessionKey, session.RecentWalletsKey, session.WalletKey} {
		_, err := e.store.Get(key)
		assert.ErrorIs(t, err, store.ErrNotFound, key)
	}

	next, _ := e.open(t)
	assert.Equal(t, portal.StatusDisconnected, next.portal.Status())
	assert.ErrorIs(t, next.printBalances(context.Background()), errNotConnected)
}

func TestPrintChains(t *testing.T) {
	e := newEnv(t)
	e.connected(t)

	a, out := e.open(t)
	a.printChains()
	assert.Contains(t, out.String(), "bsc")
	assert.Contains(t, out.String(), "Polygon")
	assert.Contains(t, out.String(), "42161")
	assert.Contains(t, out.String(), "default, active")
}

func TestParseChain(t *testing.T) {
	reg := chain.MustRegistry(chain.DefaultChains(), chain.BSCChainID)

	tests := []struct {
		arg     string
		want    int64
		wantErr bool
	}{
		{"bsc", chain.BSCChainID, false},
		{" Polygon ", chain.PolygonChainID, false},
		{"42161", chain.ArbitrumChainID, false},
		{"1", 1, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"solana", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseChain(reg, tt.arg)
			if tt.wantErr {
				assert.ErrorIs(t, err, chain.ErrUnknownChain)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveToken(t *testing.T) {
	catalog := []token.Token{
		token.Native("BNB", 18),
		token.ERC20("USDT", 18, usdtBSC),
	}
	usdt := catalog[1].Key()

	tests := []struct {
		arg  string
		want string
	}{
		{"BNB", "native:BNB"},
		{"bnb", "native:BNB"},
		{"usdt", usdt},
		{strings.ToLower(usdtBSC), usdt},
		{usdt, usdt},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := resolveToken(catalog, tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := resolveToken(catalog, cakeBSC)
	assert.ErrorIs(t, err, transfer.ErrUnknownToken)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yes", true},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got, err := confirm(strings.NewReader(tt.input), &out, "Send?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Send? [y/N]")
		})
	}
}

func TestWallets(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		e := newEnv(t)
		var out bytes.Buffer

		assert.Error(t, createWallet(e.keys, "short", &out))
		assert.Empty(t, e.keys.ListAccounts())

		require.NoError(t, createWallet(e.keys, testPassword, &out))
		assert.Contains(t, out.String(), "Wallet created successfully!")
		assert.Len(t, e.keys.ListAccounts(), 1)
	})

	t.Run("import", func(t *testing.T) {
		e := newEnv(t)
		var out bytes.Buffer

		require.NoError(t, importWallet(e.keys, "0x"+testPrivateKey, testPassword, &out))
		assert.Contains(t, out.String(), testAddress.Hex())

		err := importWallet(e.keys, "not-a-key", testPassword, &out)
		assert.ErrorIs(t, err, wallet.ErrInvalidKey)
	})

	t.Run("list", func(t *testing.T) {
		e := newEnv(t)
		var out bytes.Buffer

		listWallets(e.keys, &out)
		assert.Contains(t, out.String(), "No wallets found.")

		e.importKey(t)
		out.Reset()
		listWallets(e.keys, &out)
		assert.Contains(t, out.String(), "Found 1 wallet(s)")
		assert.Contains(t, out.String(), testAddress.Hex())
	})
}
