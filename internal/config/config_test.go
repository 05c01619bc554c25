package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/gswap/internal/chain"
	"github.com/yolodolo42/gswap/internal/testutil"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	if yaml != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	}
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "bsc", cfg.DefaultChain)
	assert.True(t, cfg.AllowCustomTokens)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, 180*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 5*time.Minute, cfg.ReceiptTimeout)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(newViper(t, `
data_dir: /tmp/gswap
default_chain: polygon
chains: [polygon, arbitrum]
allow_custom_tokens: false
store:
  backend: sqlite
rpc:
  polygon:
    - https://polygon.example
retry_delay: 250ms
receipt_timeout: 0s
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/gswap", cfg.DataDir)
	assert.Equal(t, []string{"polygon", "arbitrum"}, cfg.Chains)
	assert.False(t, cfg.AllowCustomTokens)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, []string{"https://polygon.example"}, cfg.RPC["polygon"])
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Zero(t, cfg.ReceiptTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, chain.PolygonChainID, reg.Default().ChainIDInt)
	assert.Len(t, reg.Chains(), 2)
	assert.False(t, reg.IsSupported(chain.BSCChainID))
	assert.Equal(t, []string{"https://polygon.example"}, reg.Default().RPCURLs)
}

func TestLoad_Env(t *testing.T) {
	testutil.SetEnv(t, "GSWAP_STORE_BACKEND", "memory")
	testutil.SetEnv(t, "GSWAP_CHAINS", "bsc")
	testutil.SetEnv(t, "GSWAP_RETRY_DELAY", "1s")
	testutil.SetEnv(t, "GSWAP_ALLOW_CUSTOM_TOKENS", "false")

	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, []string{"bsc"}, cfg.Chains)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.False(t, cfg.AllowCustomTokens)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Len(t, reg.Chains(), 1)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"backend", "store:\n  backend: redis\n"},
		{"negative delay", "retry_delay: -1s\n"},
		{"negative timeout", "receipt_timeout: -5m\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Registry(t *testing.T) {
	t.Run("unknown default", func(t *testing.T) {
		cfg := Config{DefaultChain: "solana"}
		_, err := cfg.Registry()
		assert.ErrorIs(t, err, chain.ErrUnknownChain)
	})

	t.Run("unknown subset key", func(t *testing.T) {
		cfg := Config{DefaultChain: "bsc", Chains: []string{"base"}}
		_, err := cfg.Registry()
		assert.ErrorIs(t, err, chain.ErrUnknownChain)
	})

	t.Run("default dropped by subset", func(t *testing.T) {
		cfg := Config{DefaultChain: "bsc", Chains: []string{"arbitrum"}}
		reg, err := cfg.Registry()
		require.NoError(t, err)
		assert.Equal(t, chain.ArbitrumChainID, reg.Default().ChainIDInt)
	})
}
