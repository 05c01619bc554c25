package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yolodolo42/gswap/internal/chain"
	"github.com/yolodolo42/gswap/internal/config"
	"github.com/yolodolo42/gswap/internal/logger"
	"github.com/yolodolo42/gswap/internal/metrics"
	"github.com/yolodolo42/gswap/internal/portal"
	"github.com/yolodolo42/gswap/internal/session"
	"github.com/yolodolo42/gswap/internal/store"
	"github.com/yolodolo42/gswap/internal/wallet"
)

var errNotConnected = errors.New("no wallet connected: run `gswap connect` first")

// app is one command's view of the portal: config, store, chain access,
// keystore, connector and controller, wired together.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	store   store.Store
	metrics *metrics.Metrics
	keys    *wallet.KeystoreManager
	conn    *session.Connector
	portal  *portal.Controller
	out     io.Writer

	closers []func()
}

// appDeps are the pieces that differ between a real run and tests.
type appDeps struct {
	registry *chain.Registry
	reader   portal.ChainReader
	backend  wallet.Broadcaster
	store    store.Store
	keys     *wallet.KeystoreManager
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func newApp(cfg config.Config, deps appDeps, out io.Writer) (*app, error) {
	conn := session.NewConnector(deps.store, deps.keys, deps.backend, deps.log)

	ctrl, err := portal.New(portal.Config{
		Chains:            deps.registry.Chains(),
		DefaultChainID:    deps.registry.Default().ChainIDInt,
		AllowCustomTokens: cfg.AllowCustomTokens,
		RetryDelay:        cfg.RetryDelay,
		ReceiptTimeout:    cfg.ReceiptTimeout,
		Workers:           cfg.Workers,
	}, deps.reader, deps.store,
		portal.WithConnector(conn),
		portal.WithLogger(deps.log),
		portal.WithMetrics(deps.metrics))
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     deps.log,
		store:   deps.store,
		metrics: deps.metrics,
		keys:    deps.keys,
		conn:    conn,
		portal:  ctrl,
		out:     out,
	}, nil
}

// openApp wires the production stack from cfg.
func openApp(cfg config.Config, out io.Writer) (*app, error) {
	log, _, err := logger.New(cfg.DataDir, logger.Options{Level: cfg.Log.Level, Console: os.Stderr})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	s, err := store.Open(cfg.Store.Backend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	keys, err := wallet.NewKeystoreManager(cfg.DataDir)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize keystore: %w", err)
	}

	client := chain.NewClient(registry, chain.WithLogger(log), chain.WithRateLimit(cfg.RPCRateLimit))

	a, err := newApp(cfg, appDeps{
		registry: registry,
		reader:   client,
		backend:  client,
		store:    s,
		keys:     keys,
		metrics:  metrics.New(),
		log:      log,
	}, out)
	if err != nil {
		client.Close()
		_ = s.Close()
		return nil, err
	}
	a.closers = append(a.closers, client.Close, func() { _ = s.Close() }, func() { _ = log.Sync() })
	return a, nil
}

// loadApp decodes the config, opens the app and restores the saved session.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	a, err := openApp(cfg, cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}
	a.restore()
	return a, nil
}

// restore puts the portal on the saved session's chain and account without
// reading balances; commands that show them refresh first. The account stays
// read-only until unlocked.
func (a *app) restore() {
	st, ok := a.conn.Restore()
	if !ok {
		a.portal.Resume(0, common.Address{}, nil)
		return
	}
	a.portal.Resume(st.ChainID, st.Account, a.conn.Sender())
}

// unlock attaches a signer to the restored session.
func (a *app) unlock(password string) error {
	st, err := a.requireSession()
	if err != nil {
		return err
	}
	if err := a.conn.Unlock(password); err != nil {
		return err
	}
	a.portal.Resume(st.ChainID, st.Account, a.conn.Sender())
	return nil
}

// requireSession fails early, before any prompt, when nothing is connected.
func (a *app) requireSession() (session.State, error) {
	st, ok := a.conn.State()
	if !ok {
		return session.State{}, errNotConnected
	}
	return st, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
