package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/gswap/internal/portal"
	"github.com/yolodolo42/gswap/internal/ui"
)

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show token balances of the connected account",
	Long: `Display the native and ERC-20 balances of the connected account on the
session's chain. A token whose balance could not be read shows N/A.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.printBalances(cmd.Context())
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List confirmed transfers, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		a.printHistory(limit)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balancesCmd)
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", 20, "Maximum number of transfers to show (0 for all)")
}

// printBalances reads every balance of the restored session and renders them.
func (a *app) printBalances(ctx context.Context) error {
	switch a.portal.Status() {
	case portal.StatusDisconnected:
		return errNotConnected
	case portal.StatusUnsupported:
		return fmt.Errorf("chain %d is not supported: run `gswap switch` to a supported chain", a.portal.View().ChainID)
	}
	if err := a.portal.RefreshBalances(ctx); err != nil {
		return err
	}
	a.renderBalances()
	return nil
}

// renderBalances prints the last refresh without reading anything.
func (a *app) renderBalances() {
	v := a.portal.View()

	fmt.Fprintf(a.out, "%s on %s\n", v.Account.Hex(), v.Chain.Name)
	fmt.Fprintln(a.out, ui.BalancesTable(v))
}

func (a *app) printHistory(limit int) {
	fmt.Fprintln(a.out, ui.HistoryTable(a.portal.View().History, limit))
}
