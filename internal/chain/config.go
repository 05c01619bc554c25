package chain

import (
	"math/big"
	"strings"

	"github.com/yolodolo42/gswap/internal/token"
)

// Well-known chain ids.
const (
	BSCChainID      int64 = 56
	PolygonChainID  int64 = 137
	ArbitrumChainID int64 = 42161
)

// ChainConfig holds configuration for an EVM chain.
// Invariant: ChainID and ChainIDInt must always represent the same value.
// ChainIDInt exists for YAML serialization (big.Int doesn't serialize cleanly).
type ChainConfig struct {
	Key            string        `yaml:"key"`
	Name           string        `yaml:"name"`
	ChainID        *big.Int      `yaml:"-"`
	ChainIDInt     int64         `yaml:"chain_id"`
	RPCURLs        []string      `yaml:"rpc_urls"`
	ExplorerURL    string        `yaml:"explorer_url"`
	NativeCurrency string        `yaml:"native_currency"`
	NativeDecimals uint8         `yaml:"native_decimals"`
	IsTestnet      bool          `yaml:"is_testnet"`
	DefaultTokens  []token.Token `yaml:"-"`
}

// TxURL links a transaction hash on the chain's block explorer.
func (c *ChainConfig) TxURL(hash string) string {
	return strings.TrimRight(c.ExplorerURL, "/") + "/tx/" + hash
}

// NativeToken returns the catalog entry for the chain's base asset.
func (c *ChainConfig) NativeToken() token.Token {
	decimals := c.NativeDecimals
	if decimals == 0 {
		decimals = 18
	}
	return token.Native(c.NativeCurrency, decimals)
}

// Catalog merges the chain's default tokens with user-added ones.
func (c *ChainConfig) Catalog(custom []token.Token) []token.Token {
	return token.Merge(c.DefaultTokens, custom)
}

// WithRPCURLs returns a copy of the config using the given endpoints.
func (c *ChainConfig) WithRPCURLs(urls []string) *ChainConfig {
	cp := *c
	cp.RPCURLs = append([]string(nil), urls...)
	return &cp
}

// DefaultChains returns the supported chains, default chain first.
func DefaultChains() []*ChainConfig {
	return []*ChainConfig{
		{
			Key:            "bsc",
			Name:           "BNB Smart Chain",
			ChainID:        big.NewInt(BSCChainID),
			ChainIDInt:     BSCChainID,
			RPCURLs:        []string{"https://bsc-dataseed.bnbchain.org", "https://bsc.publicnode.com"},
			ExplorerURL:    "https://bscscan.com",
			NativeCurrency: "BNB",
			NativeDecimals: 18,
			DefaultTokens: []token.Token{
				token.Native("BNB", 18),
				token.ERC20("USDT", 18, "0x55d398326f99059fF775485246999027B3197955"),
				token.ERC20("USDC", 18, "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"),
				token.ERC20("BUSD", 18, "0xe9e7cea3dedca5984780bafc599bd69add087d56"),
			},
		},
		{
			Key:            "polygon",
			Name:           "Polygon",
			ChainID:        big.NewInt(PolygonChainID),
			ChainIDInt:     PolygonChainID,
			RPCURLs:        []string{"https://polygon-rpc.com", "https://polygon.llamarpc.com"},
			ExplorerURL:    "https://polygonscan.com",
			NativeCurrency: "MATIC",
			NativeDecimals: 18,
			DefaultTokens: []token.Token{
				token.Native("MATIC", 18),
				token.ERC20("USDT", 6, "0xc2132D05D31c914a87C6611C10748AaCbC532DaE"),
				token.ERC20("USDC", 6, "0x3c499c542cef5E3811e1192ce70d8cc03d5c3359"),
				token.ERC20("USDC.e", 6, "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
				token.ERC20("DAI", 18, "0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063"),
			},
		},
		{
			Key:            "arbitrum",
			Name:           "Arbitrum One",
			ChainID:        big.NewInt(ArbitrumChainID),
			ChainIDInt:     ArbitrumChainID,
			RPCURLs:        []string{"https://arb1.arbitrum.io/rpc", "https://arbitrum.llamarpc.com"},
			ExplorerURL:    "https://arbiscan.io",
			NativeCurrency: "ETH",
			NativeDecimals: 18,
			DefaultTokens: []token.Token{
				token.Native("ETH", 18),
				token.ERC20("USDT", 6, "0xFd086bC7CD5C481DCC9C85ebe478A1C0b69FCbb9"),
				token.ERC20("USDC", 6, "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
				token.ERC20("USDC.e", 6, "0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8"),
				token.ERC20("DAI", 18, "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1"),
			},
		},
	}
}
