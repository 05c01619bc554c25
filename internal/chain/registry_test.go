package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	t.Run("first chain is default when unset", func(t *testing.T) {
		r, err := NewRegistry(DefaultChains(), 0)
		require.NoError(t, err)
		assert.Equal(t, BSCChainID, r.Default().ChainIDInt)
	})

	t.Run("explicit default", func(t *testing.T) {
		r, err := NewRegistry(DefaultChains(), PolygonChainID)
		require.NoError(t, err)
		assert.Equal(t, PolygonChainID, r.Default().ChainIDInt)
	})

	t.Run("rejects empty set", func(t *testing.T) {
		_, err := NewRegistry(nil, 0)
		assert.ErrorIs(t, err, ErrNoChains)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		chains := DefaultChains()
		chains = append(chains, chains[0])
		_, err := NewRegistry(chains, 0)
		assert.ErrorIs(t, err, ErrDuplicateChain)
	})

	t.Run("rejects unknown default", func(t *testing.T) {
		_, err := NewRegistry(DefaultChains(), 1)
		assert.ErrorIs(t, err, ErrUnknownChain)
	})

	t.Run("rejects id mismatch", func(t *testing.T) {
		bad := &ChainConfig{Key: "bad", ChainID: big.NewInt(1), ChainIDInt: 2}
		_, err := NewRegistry([]*ChainConfig{bad}, 0)
		assert.Error(t, err)
	})
}

func TestRegistry_Resolve(t *testing.T) {
	r := MustRegistry(DefaultChains(), BSCChainID)

	assert.Equal(t, "polygon", r.Resolve(PolygonChainID).Key)
	assert.Equal(t, "bsc", r.Resolve(0).Key, "absent id falls back to default")
	assert.Equal(t, "bsc", r.Resolve(1).Key, "unknown id falls back to default")

	_, ok := r.Lookup(1)
	assert.False(t, ok)
	assert.True(t, r.IsSupported(ArbitrumChainID))
	assert.False(t, r.IsSupported(10))
}

func TestRegistry_Subset(t *testing.T) {
	r := MustRegistry(DefaultChains(), BSCChainID)

	t.Run("bsc only", func(t *testing.T) {
		sub, err := r.Subset([]string{"bsc"})
		require.NoError(t, err)
		require.Len(t, sub.Chains(), 1)
		assert.False(t, sub.IsSupported(PolygonChainID))
		assert.Equal(t, "bsc", sub.Default().Key)
	})

	t.Run("default dropped picks first", func(t *testing.T) {
		sub, err := r.Subset([]string{"arbitrum", "polygon"})
		require.NoError(t, err)
		assert.Equal(t, "arbitrum", sub.Default().Key)
	})

	t.Run("empty keeps everything", func(t *testing.T) {
		sub, err := r.Subset(nil)
		require.NoError(t, err)
		assert.Len(t, sub.Chains(), 3)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := r.Subset([]string{"solana"})
		assert.ErrorIs(t, err, ErrUnknownChain)
	})
}

func TestRegistry_TxURL(t *testing.T) {
	r := MustRegistry(DefaultChains(), BSCChainID)

	assert.Equal(t, "https://polygonscan.com/tx/0x1", r.TxURL(PolygonChainID, "0x1"))
	assert.Equal(t, "https://bscscan.com/tx/0x1", r.TxURL(999, "0x1"))
}
