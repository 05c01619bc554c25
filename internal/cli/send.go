package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/gswap/internal/portal"
	"github.com/yolodolo42/gswap/internal/token"
	"github.com/yolodolo42/gswap/internal/transfer"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send native coins or an ERC-20 token",
	Long: `Send a transfer from the connected account and wait for its receipt.

The token is a symbol from the chain's catalog (see 'gswap tokens list') or a
contract address. The amount is in whole tokens, e.g. 1.5.`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().String("token", "", "Token symbol or contract address (default: the chain's native coin)")
	sendCmd.Flags().String("to", "", "Recipient address")
	sendCmd.Flags().String("amount", "", "Amount in whole tokens")
	sendCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")
}

func runSend(cmd *cobra.Command, args []string) error {
	tokenArg, _ := cmd.Flags().GetString("token")
	to, _ := cmd.Flags().GetString("to")
	amount, _ := cmd.Flags().GetString("amount")
	yes, _ := cmd.Flags().GetBool("yes")

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.requireSession()
	if err != nil {
		return err
	}
	tok, err := a.prepareSend(tokenArg, to, amount)
	if err != nil {
		return err
	}

	if !yes {
		chainName := a.portal.View().Chain.Name
		ok, err := confirm(os.Stdin, a.out, fmt.Sprintf("Send %s %s to %s on %s?", strings.TrimSpace(amount), tok.Symbol, to, chainName))
		if err != nil {
			return err
		}
		if !ok {
			return errCancelled
		}
	}

	password, err := readPassword(fmt.Sprintf("Password for %s: ", st.Account.Hex()))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := a.unlock(password); err != nil {
		return err
	}

	_, err = a.submit(cmd.Context())
	return err
}

// prepareSend fills the transfer form and returns the chosen token. An empty
// tokenArg keeps the current selection, which defaults to the native coin.
func (a *app) prepareSend(tokenArg, to, amount string) (token.Token, error) {
	v := a.portal.View()
	if v.Status == portal.StatusUnsupported {
		return token.Token{}, fmt.Errorf("chain %d is not supported: run `gswap switch` to a supported chain", v.ChainID)
	}

	if tokenArg != "" {
		key, err := resolveToken(v.Catalog, tokenArg)
		if err != nil {
			return token.Token{}, err
		}
		if err := a.portal.SelectToken(key); err != nil {
			return token.Token{}, err
		}
	}
	a.portal.SetRecipient(to)
	a.portal.SetAmount(amount)

	tok, _ := a.portal.View().SelectedToken()
	return tok, nil
}

// submit sends the prepared form and prints the outcome.
func (a *app) submit(ctx context.Context) (transfer.Result, error) {
	res, err := a.portal.Submit(ctx)
	a.printNotice()
	if err != nil {
		return res, err
	}
	if res.Receipt != nil && res.Receipt.BlockNumber != nil {
		fmt.Fprintf(a.out, "Confirmed in block %s\n", res.Receipt.BlockNumber)
	}
	return res, nil
}

// resolveToken maps a symbol (case-insensitive), contract address or
// identity key to a catalog key.
func resolveToken(catalog []token.Token, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if t, ok := token.Find(catalog, arg); ok {
		return t.Key(), nil
	}
	for _, t := range catalog {
		if strings.EqualFold(t.Symbol, arg) {
			return t.Key(), nil
		}
		if !t.IsNative() && strings.EqualFold(t.Address, arg) {
			return t.Key(), nil
		}
	}
	return "", fmt.Errorf("%w: %s", transfer.ErrUnknownToken, arg)
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
