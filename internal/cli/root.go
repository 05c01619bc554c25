package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yolodolo42/gswap/internal/config"
)

var (
	cfgFile string
	v       = viper.New()
	rootCmd = &cobra.Command{
		Use:   "gswap",
		Short: "Terminal wallet portal for EVM chains",
		Long: `gswap shows native and ERC-20 balances for a local keystore account and
sends transfers on BNB Smart Chain, Polygon and Arbitrum One.

Every transfer is confirmed on the terminal and waits for its receipt.
Run without a command to open the dashboard.`,
		SilenceUsage: true,
		RunE:         runDashboard,
	}
)

// Execute runs the root command. An interrupt cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gswap/config.yaml)")
	flags.String("data-dir", "", "data directory (default is $HOME/.gswap)")
	flags.String("chain", "", "default chain: bsc, polygon or arbitrum")
	flags.String("store", "", "store backend: file, sqlite or memory")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while the dashboard runs")

	_ = v.BindPFlag("data_dir", flags.Lookup("data-dir"))
	_ = v.BindPFlag("default_chain", flags.Lookup("chain"))
	_ = v.BindPFlag("store.backend", flags.Lookup("store"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
}

func initConfig() {
	config.SetDefaults(v)
	config.BindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		configDir := config.DefaultDataDir()
		if err := os.MkdirAll(configDir, 0700); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config directory: %v\n", err)
		}

		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// A missing default config file is fine; an explicit one must load.
	if err := v.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: could not read %s: %v\n", cfgFile, err)
	}
}
