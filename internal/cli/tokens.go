package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/gswap/internal/ui"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage the token list of the active chain",
}

var tokensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List default and custom tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		a.printTokens()
		return nil
	},
}

var tokensAddCmd = &cobra.Command{
	Use:   "add <contract>",
	Short: "Add an ERC-20 token by contract address",
	Long: `Read symbol() and decimals() from the contract on the active chain and add
it to the custom token list. Custom tokens are cleared when the chain changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.addToken(cmd.Context(), args[0])
	},
}

var tokensRemoveCmd = &cobra.Command{
	Use:   "remove <contract>",
	Short: "Remove a custom token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.removeToken(args[0])
	},
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensListCmd)
	tokensCmd.AddCommand(tokensAddCmd)
	tokensCmd.AddCommand(tokensRemoveCmd)
}

func (a *app) printTokens() {
	v := a.portal.View()
	name := fmt.Sprintf("chain %d", v.ChainID)
	if v.Chain != nil {
		name = v.Chain.Name
	} else {
		name += " (unsupported, showing the default chain)"
	}
	fmt.Fprintf(a.out, "Tokens on %s\n", name)
	fmt.Fprintln(a.out, ui.TokensTable(v))
}

func (a *app) addToken(ctx context.Context, address string) error {
	_, err := a.portal.AddCustomToken(ctx, address)
	a.printNotice()
	return err
}

func (a *app) removeToken(address string) error {
	err := a.portal.RemoveCustomToken(address)
	a.printNotice()
	return err
}
