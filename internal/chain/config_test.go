package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/gswap/internal/token"
)

func TestDefaultChains(t *testing.T) {
	chains := DefaultChains()

	t.Run("returns supported chains in order", func(t *testing.T) {
		require.Len(t, chains, 3)
		assert.Equal(t, "bsc", chains[0].Key)
		assert.Equal(t, "polygon", chains[1].Key)
		assert.Equal(t, "arbitrum", chains[2].Key)
	})

	t.Run("bsc config is correct", func(t *testing.T) {
		bsc := chains[0]
		assert.Equal(t, int64(56), bsc.ChainID.Int64())
		assert.Equal(t, "BNB", bsc.NativeCurrency)
		assert.Equal(t, "https://bscscan.com", bsc.ExplorerURL)
		require.Len(t, bsc.DefaultTokens, 4)
		assert.Equal(t, "native:BNB", bsc.DefaultTokens[0].Key())
	})

	t.Run("polygon stablecoins use 6 decimals", func(t *testing.T) {
		for _, tok := range chains[1].DefaultTokens {
			if tok.Symbol == "USDT" || tok.Symbol == "USDC" || tok.Symbol == "USDC.e" {
				assert.Equal(t, uint8(6), tok.Decimals, tok.Symbol)
			}
		}
	})

	t.Run("native token comes first on every chain", func(t *testing.T) {
		for _, c := range chains {
			require.NotEmpty(t, c.DefaultTokens, c.Key)
			assert.Equal(t, c.NativeToken(), c.DefaultTokens[0], c.Key)
		}
	})

	t.Run("default token keys are unique per chain", func(t *testing.T) {
		for _, c := range chains {
			seen := map[string]bool{}
			for _, tok := range c.DefaultTokens {
				assert.False(t, seen[tok.Key()], "chain %s duplicate %s", c.Key, tok.Key())
				seen[tok.Key()] = true
			}
		}
	})

	t.Run("all chains have RPC and explorer URLs", func(t *testing.T) {
		for _, c := range chains {
			assert.NotEmpty(t, c.RPCURLs, "chain %s has no RPC URLs", c.Key)
			assert.NotEmpty(t, c.ExplorerURL, "chain %s has no explorer URL", c.Key)
		}
	})

	t.Run("chainID matches chainIDInt", func(t *testing.T) {
		for _, c := range chains {
			assert.Equal(t, c.ChainIDInt, c.ChainID.Int64(), "chain %s: ChainID and ChainIDInt mismatch", c.Key)
		}
	})
}

func TestChainConfig_TxURL(t *testing.T) {
	c := DefaultChains()[2]
	assert.Equal(t, "https://arbiscan.io/tx/0xabc", c.TxURL("0xabc"))

	c.ExplorerURL = "https://arbiscan.io/"
	assert.Equal(t, "https://arbiscan.io/tx/0xabc", c.TxURL("0xabc"))
}

func TestChainConfig_Catalog(t *testing.T) {
	bsc := DefaultChains()[0]
	custom := []token.Token{
		token.ERC20("CAKE", 18, "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82"),
		token.ERC20("USDT2", 18, "0x55D398326F99059FF775485246999027B3197955"),
	}

	catalog := bsc.Catalog(custom)
	require.Len(t, catalog, 5)
	assert.Equal(t, "CAKE", catalog[4].Symbol)
	assert.True(t, catalog[4].Custom)
}

func TestChainConfig_WithRPCURLs(t *testing.T) {
	orig := DefaultChains()[0]
	cp := orig.WithRPCURLs([]string{"http://localhost:8545"})

	assert.Equal(t, []string{"http://localhost:8545"}, cp.RPCURLs)
	assert.NotEqual(t, cp.RPCURLs, orig.RPCURLs)
}
