package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yolodolo42/gswap/internal/chain"
	"github.com/yolodolo42/gswap/internal/portal"
	"github.com/yolodolo42/gswap/internal/ui"
	"github.com/yolodolo42/gswap/internal/wallet"
)

var (
	errNoWallets = errors.New("no wallets found: run `gswap wallet create` or `gswap wallet import` first")
	errCancelled = errors.New("cancelled")
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List supported chains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		a.printChains()
		return nil
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect [address]",
	Short: "Unlock a keystore account and connect it",
	Long: `Unlock a keystore account and make it the active session on the default
chain (--chain). Without an address the only wallet is used, or you pick one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the active session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.disconnect(cmd.Context())
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch <chain>",
	Short: "Move the session to another chain",
	Long: `Move the session to another chain, by key (bsc, polygon, arbitrum) or
numeric chain id. Custom tokens are cleared when the chain changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.switchChain(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(chainsCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(switchCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	address, err := a.pickAccount(args)
	if err != nil {
		return err
	}

	password, err := readPassword(fmt.Sprintf("Password for %s: ", address.Hex()))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	return a.connect(cmd.Context(), address, password)
}

func (a *app) printChains() {
	v := a.portal.View()
	active := int64(0)
	if v.Status != portal.StatusDisconnected {
		active = v.ChainID
	}
	reg := a.portal.Registry()
	fmt.Fprintln(a.out, ui.ChainsTable(reg.Chains(), reg.Default().ChainIDInt, active))
}

// pickAccount resolves the account to connect: the given address, the only
// keystore account, or an interactive choice with the last used wallet
// preselected.
func (a *app) pickAccount(args []string) (common.Address, error) {
	if len(args) == 1 {
		if !common.IsHexAddress(args[0]) {
			return common.Address{}, fmt.Errorf("invalid address: %s", args[0])
		}
		address := common.HexToAddress(args[0])
		if !a.keys.HasAccount(address) {
			return common.Address{}, fmt.Errorf("%w: %s", wallet.ErrAccountNotFound, address.Hex())
		}
		return address, nil
	}

	accounts := a.keys.ListAccounts()
	switch len(accounts) {
	case 0:
		return common.Address{}, errNoWallets
	case 1:
		return accounts[0].Address, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return common.Address{}, fmt.Errorf("%d wallets found: pass the address to connect", len(accounts))
	}

	recent := a.conn.RecentWallets()
	seen := make(map[string]bool, len(recent))
	for _, addr := range recent {
		seen[strings.ToLower(addr)] = true
	}
	items := make([]ui.SelectorItem, 0, len(accounts))
	for _, acc := range accounts {
		hex := acc.Address.Hex()
		item := ui.SelectorItem{ID: hex, Label: portal.ShortAddress(hex)}
		if seen[strings.ToLower(hex)] {
			item.Description = "recent"
		}
		item.Current = len(recent) > 0 && strings.EqualFold(recent[0], hex)
		items = append(items, item)
	}

	id, err := ui.Select("Select a wallet", items)
	if err != nil {
		return common.Address{}, err
	}
	if id == "" {
		return common.Address{}, errCancelled
	}
	return common.HexToAddress(id), nil
}

// connect unlocks address and makes it the session on the default chain.
func (a *app) connect(ctx context.Context, address common.Address, password string) error {
	def := a.portal.Registry().Default()
	if _, err := a.conn.Connect(address, password, def.ChainIDInt); err != nil {
		return err
	}
	if err := a.portal.ChangeChain(ctx, def.ChainIDInt); err != nil {
		return err
	}
	if err := a.portal.Connect(ctx, address, a.conn.Sender()); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Connected %s on %s\n", address.Hex(), def.Name)
	a.printNotice()
	fmt.Fprintln(a.out)
	a.renderBalances()
	return nil
}

func (a *app) disconnect(ctx context.Context) error {
	err := a.portal.Disconnect(ctx)
	a.printNotice()
	return err
}

func (a *app) switchChain(ctx context.Context, arg string) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}
	chainID, err := parseChain(a.portal.Registry(), arg)
	if err != nil {
		return err
	}
	if err := a.portal.SwitchChain(ctx, chainID); err != nil {
		a.printNotice()
		return err
	}

	v := a.portal.View()
	if v.Status == portal.StatusUnsupported {
		fmt.Fprintln(a.out, ui.WarningStyle.Render(fmt.Sprintf("Chain %d is not supported. Balances and transfers are unavailable.", chainID)))
	} else {
		fmt.Fprintf(a.out, "Switched to %s\n", v.Chain.Name)
	}
	a.printNotice()
	return nil
}

// parseChain accepts a chain key or a numeric chain id. Unknown numeric ids
// are returned as is: the wallet may sit on a chain the portal does not serve.
func parseChain(reg *chain.Registry, arg string) (int64, error) {
	if c, ok := reg.ByKey(strings.ToLower(strings.TrimSpace(arg))); ok {
		return c.ChainIDInt, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", chain.ErrUnknownChain, arg)
	}
	return id, nil
}

func (a *app) printNotice() {
	n := a.portal.View().Notice
	if n == nil {
		return
	}
	if n.Kind == portal.NoticeError {
		fmt.Fprintln(a.out, ui.ErrorStyle.Render(n.Message))
		return
	}
	fmt.Fprintln(a.out, ui.SuccessStyle.Render(n.Message))
	if n.TxURL != "" {
		fmt.Fprintln(a.out, ui.LinkStyle.Render(n.TxURL))
	}
}
