package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yolodolo42/gswap/internal/config"
	"github.com/yolodolo42/gswap/internal/wallet"
)

const minPasswordLen = 8

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage keystore accounts",
	Long:  `Create, import, and list the encrypted accounts gswap can connect.`,
}

var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new wallet",
	Args:  cobra.NoArgs,
	RunE:  runWalletCreate,
}

var walletImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a wallet from private key",
	Args:  cobra.NoArgs,
	RunE:  runWalletImport,
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := openKeystore()
		if err != nil {
			return err
		}
		listWallets(km, cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletImportCmd)
	walletCmd.AddCommand(walletListCmd)

	walletImportCmd.Flags().String("key", "", "Private key to import (hex, with or without 0x prefix)")
}

func openKeystore() (*wallet.KeystoreManager, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	km, err := wallet.NewKeystoreManager(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keystore: %w", err)
	}
	return km, nil
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after password input
	if err != nil {
		return "", err
	}
	return string(password), nil
}

// readNewPassword asks for a password twice.
func readNewPassword(prompt string) (string, error) {
	password, err := readPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	return password, checkPassword(password)
}

func checkPassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

func runWalletCreate(cmd *cobra.Command, args []string) error {
	km, err := openKeystore()
	if err != nil {
		return err
	}
	password, err := readNewPassword("Enter password for new wallet: ")
	if err != nil {
		return err
	}
	return createWallet(km, password, cmd.OutOrStdout())
}

func runWalletImport(cmd *cobra.Command, args []string) error {
	privateKey, _ := cmd.Flags().GetString("key")

	if privateKey == "" {
		key, err := readPassword("Enter private key (hex): ")
		if err != nil {
			return fmt.Errorf("failed to read private key: %w", err)
		}
		privateKey = strings.TrimSpace(key)
	}
	if privateKey == "" {
		return fmt.Errorf("private key is required")
	}

	km, err := openKeystore()
	if err != nil {
		return err
	}
	password, err := readNewPassword("Enter password to encrypt wallet: ")
	if err != nil {
		return err
	}
	return importWallet(km, privateKey, password, cmd.OutOrStdout())
}

func createWallet(km *wallet.KeystoreManager, password string, out io.Writer) error {
	if err := checkPassword(password); err != nil {
		return err
	}
	account, err := km.CreateAccount(password)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	fmt.Fprintln(out, "\nWallet created successfully!")
	fmt.Fprintf(out, "Address: %s\n", account.Address.Hex())
	fmt.Fprintf(out, "Keystore: %s\n", account.URL.Path)
	fmt.Fprintln(out, "\nIMPORTANT: Back up your keystore file and remember your password!")
	return nil
}

func importWallet(km *wallet.KeystoreManager, privateKey, password string, out io.Writer) error {
	if err := checkPassword(password); err != nil {
		return err
	}
	account, err := km.ImportKey(privateKey, password)
	if err != nil {
		return fmt.Errorf("failed to import key: %w", err)
	}

	fmt.Fprintln(out, "\nWallet imported successfully!")
	fmt.Fprintf(out, "Address: %s\n", account.Address.Hex())
	fmt.Fprintf(out, "Keystore: %s\n", account.URL.Path)
	fmt.Fprintln(out, "\nConnect it with: gswap connect", account.Address.Hex())
	return nil
}

func listWallets(km *wallet.KeystoreManager, out io.Writer) {
	accounts := km.ListAccounts()

	if len(accounts) == 0 {
		fmt.Fprintln(out, "No wallets found.")
		fmt.Fprintln(out, "Use 'gswap wallet create' to create a new wallet.")
		return
	}

	fmt.Fprintf(out, "Found %d wallet(s):\n\n", len(accounts))
	for i, acc := range accounts {
		fmt.Fprintf(out, "%d. %s\n", i+1, acc.Address.Hex())
	}
}
