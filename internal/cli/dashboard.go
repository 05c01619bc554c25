package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/yolodolo42/gswap/internal/ui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive portal",
	Long: `Open the interactive portal: balance tiles, token list, transfer form,
custom tokens and recent transfers. The connected account is unlocked first
so transfers can be signed.`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("the dashboard needs an interactive terminal")
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if st, ok := a.conn.State(); ok && a.conn.Sender() == nil {
		password, err := readPassword(fmt.Sprintf("Password for %s (empty for read-only): ", st.Account.Hex()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if password != "" {
			if err := a.unlock(password); err != nil {
				return err
			}
		}
	}

	if a.cfg.Metrics.Addr != "" {
		stop, err := a.serveMetrics(a.cfg.Metrics.Addr)
		if err != nil {
			return err
		}
		defer stop()
	}

	return ui.RunDashboard(cmd.Context(), a.portal)
}

// serveMetrics exposes the Prometheus registry on addr until the returned
// stop function is called.
func (a *app) serveMetrics(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	a.log.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
