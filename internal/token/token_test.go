package token

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdtBSC = "0x55d398326f99059fF775485246999027B3197955"
	usdcBSC = "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"
	cakeBSC = "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82"
)

func TestToken_Key(t *testing.T) {
	t.Run("native keyed by symbol", func(t *testing.T) {
		assert.Equal(t, "native:BNB", Native("BNB", 18).Key())
	})

	t.Run("erc20 keyed by lower-cased address", func(t *testing.T) {
		tok := ERC20("USDT", 18, usdtBSC)
		assert.Equal(t, "erc20:0x55d398326f99059ff775485246999027b3197955", tok.Key())
	})

	t.Run("case variants share a key", func(t *testing.T) {
		a := ERC20("USDT", 18, usdtBSC)
		b := ERC20("USDT", 18, "0x55D398326F99059FF775485246999027B3197955")
		assert.Equal(t, a.Key(), b.Key())
	})
}

func TestNormalizeAddress(t *testing.T) {
	t.Run("lower-cases valid address", func(t *testing.T) {
		addr, err := NormalizeAddress("  " + usdcBSC + " ")
		require.NoError(t, err)
		assert.Equal(t, "0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d", addr)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := NormalizeAddress("0x1234")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})
}

func TestMerge(t *testing.T) {
	bnb := Native("BNB", 18)
	usdt := ERC20("USDT", 18, usdtBSC)
	usdc := ERC20("USDC", 18, usdcBSC)

	t.Run("default wins on collision", func(t *testing.T) {
		// B' shares B's identity key with a different case and symbol.
		dupe := ERC20("FAKE", 6, "0x55D398326F99059FF775485246999027B3197955")
		cake := ERC20("CAKE", 18, cakeBSC)

		merged := Merge([]Token{bnb, usdt}, []Token{dupe, cake})
		require.Len(t, merged, 3)
		assert.Equal(t, "BNB", merged[0].Symbol)
		assert.Equal(t, "USDT", merged[1].Symbol)
		assert.Equal(t, uint8(18), merged[1].Decimals)
		assert.False(t, merged[1].Custom)
		assert.Equal(t, "CAKE", merged[2].Symbol)
		assert.True(t, merged[2].Custom)
	})

	t.Run("keys are unique", func(t *testing.T) {
		cake := ERC20("CAKE", 18, cakeBSC)
		merged := Merge([]Token{bnb, usdt, usdc}, []Token{cake, cake, usdc})

		seen := map[string]bool{}
		for _, tok := range merged {
			assert.False(t, seen[tok.Key()], "duplicate key %s", tok.Key())
			seen[tok.Key()] = true
		}
		assert.Len(t, merged, 4)
	})

	t.Run("skips customs without address", func(t *testing.T) {
		merged := Merge([]Token{bnb}, []Token{{Symbol: "X", Kind: KindERC20, Decimals: 18}})
		assert.Len(t, merged, 1)
	})

	t.Run("no customs", func(t *testing.T) {
		merged := Merge([]Token{bnb, usdt}, nil)
		assert.Equal(t, []string{"BNB", "USDT"}, []string{merged[0].Symbol, merged[1].Symbol})
	})
}

func TestFindAndContains(t *testing.T) {
	catalog := Merge([]Token{Native("BNB", 18), ERC20("USDT", 18, usdtBSC)}, nil)

	tok, ok := Find(catalog, "native:BNB")
	require.True(t, ok)
	assert.Equal(t, "BNB", tok.Symbol)

	_, ok = Find(catalog, "native:ETH")
	assert.False(t, ok)

	assert.True(t, Contains(catalog, "0x55D398326F99059FF775485246999027B3197955"))
	assert.False(t, Contains(catalog, cakeBSC))
}

func TestToken_JSONShape(t *testing.T) {
	raw, err := json.Marshal(ERC20("CAKE", 18, cakeBSC))
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"CAKE","type":"erc20","decimals":18,"address":"`+cakeBSC+`"}`, string(raw))
}

func TestRegistry(t *testing.T) {
	cake := ERC20("CAKE", 18, cakeBSC)

	t.Run("With does not mutate receiver", func(t *testing.T) {
		var r Registry
		next := r.With(56, cake)
		assert.Empty(t, r)
		assert.Len(t, next.ForChain(56), 1)
		assert.Equal(t, 1, next.Len())
	})

	t.Run("Without removes case-insensitively", func(t *testing.T) {
		r := Registry{}.With(56, cake).With(137, cake)
		next := r.Without(56, "0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82")
		assert.Empty(t, next.ForChain(56))
		assert.Len(t, next.ForChain(137), 1)
		assert.Len(t, r.ForChain(56), 1)
	})

	t.Run("round-trips with integer keys", func(t *testing.T) {
		r := Registry{}.With(56, cake)
		raw, err := json.Marshal(r)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"56"`)

		var back Registry
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, r, back)
	})
}
