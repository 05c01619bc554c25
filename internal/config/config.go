package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/yolodolo42/gswap/internal/chain"
)

// EnvPrefix namespaces environment overrides: GSWAP_DEFAULT_CHAIN,
// GSWAP_STORE_BACKEND, GSWAP_LOG_LEVEL, ...
const EnvPrefix = "GSWAP"

// Config is the decoded settings file plus environment and flag overrides.
type Config struct {
	DataDir           string              `mapstructure:"data_dir"`
	DefaultChain      string              `mapstructure:"default_chain"`
	Chains            []string            `mapstructure:"chains"`
	AllowCustomTokens bool                `mapstructure:"allow_custom_tokens"`
	Store             StoreConfig         `mapstructure:"store"`
	RPC               map[string][]string `mapstructure:"rpc"`
	RPCRateLimit      float64             `mapstructure:"rpc_rate_limit"`
	RetryDelay        time.Duration       `mapstructure:"retry_delay"`
	ReceiptTimeout    time.Duration       `mapstructure:"receipt_timeout"`
	Workers           int                 `mapstructure:"workers"`
	Log               LogConfig           `mapstructure:"log"`
	Metrics           MetricsConfig       `mapstructure:"metrics"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultDataDir is $HOME/.gswap, or .gswap when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gswap"
	}
	return filepath.Join(home, ".gswap")
}

// SetDefaults registers every key so environment overrides are picked up.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("default_chain", "bsc")
	v.SetDefault("chains", []string{})
	v.SetDefault("allow_custom_tokens", true)
	v.SetDefault("store.backend", "file")
	v.SetDefault("rpc_rate_limit", 10.0)
	v.SetDefault("retry_delay", 180*time.Millisecond)
	v.SetDefault("receipt_timeout", 5*time.Minute)
	v.SetDefault("workers", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.addr", "")
}

// BindEnv maps GSWAP_* variables onto dotted keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings that cannot run.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative")
	}
	if c.ReceiptTimeout < 0 {
		return fmt.Errorf("receipt_timeout must not be negative")
	}
	if c.RPCRateLimit < 0 {
		return fmt.Errorf("rpc_rate_limit must not be negative")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	return nil
}

// Registry builds the chain registry: built-in chains with RPC overrides
// applied, narrowed to Chains when set.
func (c Config) Registry() (*chain.Registry, error) {
	chains := chain.DefaultChains()
	for i, ch := range chains {
		if urls := c.RPC[ch.Key]; len(urls) > 0 {
			chains[i] = ch.WithRPCURLs(urls)
		}
	}

	full, err := chain.NewRegistry(chains, 0)
	if err != nil {
		return nil, err
	}

	defaultID := int64(0)
	if c.DefaultChain != "" {
		def, ok := full.ByKey(c.DefaultChain)
		if !ok {
			return nil, fmt.Errorf("default_chain: %w: %s", chain.ErrUnknownChain, c.DefaultChain)
		}
		defaultID = def.ChainIDInt
	}

	full, err = chain.NewRegistry(chains, defaultID)
	if err != nil {
		return nil, err
	}
	return full.Subset(c.Chains)
}
