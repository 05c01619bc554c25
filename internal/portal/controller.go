// Package portal drives the wallet portal: which account is connected on which
// chain, the token catalog, balances, the transfer form and notices. Handlers
// are explicit methods called by the CLI and the dashboard.
package portal

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/yolodolo42/gswap/internal/balance"
	"github.com/yolodolo42/gswap/internal/chain"
	"github.com/yolodolo42/gswap/internal/history"
	"github.com/yolodolo42/gswap/internal/metrics"
	"github.com/yolodolo42/gswap/internal/store"
	"github.com/yolodolo42/gswap/internal/token"
	"github.com/yolodolo42/gswap/internal/transfer"
)

var (
	ErrNoAccount            = errors.New("account address is empty")
	ErrBusy                 = errors.New("a transfer is already in progress")
	ErrCustomTokensDisabled = errors.New("custom tokens are disabled")
	ErrDuplicateToken       = errors.New("token already listed on this network")
	ErrTokenNotCustom       = errors.New("token is not a custom token")
)

// Config selects the chains and the behaviour of one portal instance. The
// multi-chain, no-custom-tokens and BSC-only variants are all expressed here.
type Config struct {
	Chains            []*chain.ChainConfig
	DefaultChainID    int64
	AllowCustomTokens bool
	// RetryDelay is the pause before the single balance retry. Zero uses
	// balance.DefaultRetryDelay.
	RetryDelay time.Duration
	// ReceiptTimeout bounds the confirmation wait. Zero waits indefinitely.
	ReceiptTimeout time.Duration
	// Workers bounds concurrent balance reads. Zero uses the refresher default.
	Workers int
}

// ChainReader is everything the portal reads from chains.
type ChainReader interface {
	NativeBalance(ctx context.Context, chainID int64, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, chainID int64, tokenAddress, holder common.Address) (*big.Int, error)
	TokenMetadata(ctx context.Context, chainID int64, tokenAddress common.Address) (token.Metadata, error)
	transfer.ReceiptWaiter
}

// Connector is the wallet connection provider.
type Connector interface {
	SwitchChain(chainID int64) error
	Disconnect() error
	SessionKeys() []string
}

// Controller owns the portal state. The mutex is never held across a chain
// call, so handlers may run concurrently; refresh results are tagged and only
// the most recent one is applied.
type Controller struct {
	registry  *chain.Registry
	cfg       Config
	reader    ChainReader
	store     store.Store
	history   *history.History
	connector Connector
	refresher *balance.Refresher
	submitter *transfer.Submitter
	log       *zap.Logger
	metrics   *metrics.Metrics

	mu         sync.Mutex
	mounted    bool
	chainID    int64
	account    common.Address
	sender     transfer.Sender
	custom     token.Registry
	snapshot   balance.Snapshot
	selected   string
	recipient  string
	amount     string
	notice     *Notice
	refreshSeq uint64
	refreshing bool
	submitting bool
	addingTok  bool
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func WithConnector(conn Connector) Option {
	return func(c *Controller) { c.connector = conn }
}

// New builds a controller. History and, when enabled, custom tokens are read
// from s; unreadable values start empty.
func New(cfg Config, reader ChainReader, s store.Store, opts ...Option) (*Controller, error) {
	registry, err := chain.NewRegistry(cfg.Chains, cfg.DefaultChainID)
	if err != nil {
		return nil, fmt.Errorf("invalid chain configuration: %w", err)
	}

	c := &Controller{
		registry: registry,
		cfg:      cfg,
		reader:   reader,
		store:    s,
		history:  history.Load(s),
		log:      zap.NewNop(),
		custom:   token.Registry{},
		chainID:  registry.Default().ChainIDInt,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.AllowCustomTokens {
		var saved token.Registry
		if store.Load(s, store.CustomTokensKey, &saved) && saved != nil {
			c.custom = saved
		}
	}

	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = balance.DefaultRetryDelay
	}
	c.refresher = balance.NewRefresher(reader,
		balance.WithRetryDelay(retryDelay),
		balance.WithWorkers(cfg.Workers),
		balance.WithLogger(c.log),
		balance.WithMetrics(c.metrics))

	c.submitter = transfer.NewSubmitter(registry, reader, c.history,
		transfer.WithReceiptTimeout(cfg.ReceiptTimeout),
		transfer.WithRefresh(func(ctx context.Context) { _ = c.RefreshBalances(ctx) }),
		transfer.WithLogger(c.log),
		transfer.WithMetrics(c.metrics))

	return c, nil
}

// Registry returns the supported chains.
func (c *Controller) Registry() *chain.Registry {
	return c.registry
}

// History returns the transfer log.
func (c *Controller) History() *history.History {
	return c.history
}

// Mount sets the initial chain. It never clears custom tokens. A zero chainID
// selects the default chain.
func (c *Controller) Mount(ctx context.Context, chainID int64) error {
	c.mu.Lock()
	if chainID == 0 {
		chainID = c.registry.Default().ChainIDInt
	}
	c.mounted = true
	c.chainID = chainID
	c.clearSnapshotLocked()
	c.ensureSelectedLocked()
	c.mu.Unlock()

	return c.RefreshBalances(ctx)
}

// Connect records the connected account and its signing client, drops any
// previous snapshot and refreshes. sender may be nil for a read-only session.
func (c *Controller) Connect(ctx context.Context, account common.Address, sender transfer.Sender) error {
	if account == (common.Address{}) {
		return ErrNoAccount
	}

	c.mu.Lock()
	c.account = account
	c.sender = sender
	c.clearSnapshotLocked()
	c.ensureSelectedLocked()
	c.mu.Unlock()

	c.log.Info("account connected", zap.String("account", account.Hex()))
	return c.RefreshBalances(ctx)
}

// Resume mounts chainID and attaches a saved account without reading any
// balance. A zero account leaves the portal disconnected. Callers that show
// balances refresh themselves.
func (c *Controller) Resume(chainID int64, account common.Address, sender transfer.Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if chainID == 0 {
		chainID = c.registry.Default().ChainIDInt
	}
	c.mounted = true
	c.chainID = chainID
	c.account = account
	c.sender = sender
	c.clearSnapshotLocked()
	c.ensureSelectedLocked()
}

// SwitchChain asks the connected wallet to move to chainID, then applies the
// change. While disconnected only the portal's chain changes.
func (c *Controller) SwitchChain(ctx context.Context, chainID int64) error {
	c.mu.Lock()
	conn := c.connector
	connected := c.account != (common.Address{})
	c.mu.Unlock()

	if conn != nil && connected {
		if err := conn.SwitchChain(chainID); err != nil {
			c.mu.Lock()
			c.setNoticeLocked(NoticeError, msgSwitchFailed)
			c.mu.Unlock()
			return fmt.Errorf("switch chain: %w", err)
		}
	}
	return c.ChangeChain(ctx, chainID)
}

// ChangeChain handles the wallet moving to another chain. When custom tokens
// are enabled and the id actually changed after mount, every custom token on
// every chain is dropped.
func (c *Controller) ChangeChain(ctx context.Context, chainID int64) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return c.Mount(ctx, chainID)
	}

	changed := chainID != c.chainID
	c.chainID = chainID
	c.clearSnapshotLocked()

	var persistErr error
	if changed && c.cfg.AllowCustomTokens {
		c.custom = token.Registry{}
		persistErr = store.Clear(c.store, store.CustomTokensKey)
		c.setNoticeLocked(NoticeSuccess, msgCustomCleared)
	}
	c.ensureSelectedLocked()
	c.mu.Unlock()

	if persistErr != nil {
		c.log.Warn("failed to clear custom tokens", zap.Error(persistErr))
	}
	if changed {
		c.log.Info("chain changed", zap.Int64("chain_id", chainID), zap.Bool("supported", c.registry.IsSupported(chainID)))
	}
	return c.RefreshBalances(ctx)
}

// Disconnect drops the connection, clears connector-owned store keys, the
// transfer form and the snapshot.
func (c *Controller) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.notice = nil
	conn := c.connector
	c.mu.Unlock()

	if conn != nil {
		err := conn.Disconnect()
		if err == nil {
			err = store.Clear(c.store, conn.SessionKeys()...)
		}
		if err != nil {
			c.mu.Lock()
			c.setNoticeLocked(NoticeError, msgDisconnectFailed)
			c.mu.Unlock()
			return fmt.Errorf("disconnect: %w", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = common.Address{}
	c.sender = nil
	c.recipient = ""
	c.amount = ""
	c.clearSnapshotLocked()
	c.setNoticeLocked(NoticeSuccess, msgDisconnected)
	c.log.Info("account disconnected")
	return nil
}

// RefreshBalances reads every catalog balance for the connected account. It
// does nothing while disconnected or on an unsupported chain. A result is
// dropped if another refresh started, or the account or chain changed, while
// it was in flight.
func (c *Controller) RefreshBalances(ctx context.Context) error {
	c.mu.Lock()
	if c.statusLocked() != StatusReady {
		c.mu.Unlock()
		return nil
	}
	c.refreshSeq++
	seq := c.refreshSeq
	account := c.account
	chainID := c.chainID
	catalog := c.catalogLocked()
	c.refreshing = true
	c.mu.Unlock()

	snap := c.refresher.Refresh(ctx, account, chainID, catalog)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.refreshSeq || !snap.Matches(c.account, c.chainID) {
		c.log.Debug("discarding stale balances", zap.Uint64("seq", seq), zap.Int64("chain_id", chainID))
		return nil
	}
	c.snapshot = snap
	c.refreshing = false
	return nil
}

// SelectToken picks the token used by the transfer form.
func (c *Controller) SelectToken(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := token.Find(c.catalogLocked(), key); !ok {
		return fmt.Errorf("%w: %s", transfer.ErrUnknownToken, key)
	}
	c.selected = key
	return nil
}

func (c *Controller) SetRecipient(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recipient = v
}

func (c *Controller) SetAmount(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.amount = v
}

// Submit sends the form's transfer and blocks until it is confirmed or fails.
// On success the recipient and amount are cleared.
func (c *Controller) Submit(ctx context.Context) (transfer.Result, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return transfer.Result{}, ErrBusy
	}
	c.notice = nil
	req := transfer.Request{
		Account:   c.account,
		ChainID:   c.chainID,
		Sender:    c.sender,
		Catalog:   c.catalogLocked(),
		Token:     c.selectedLocked(),
		Recipient: c.recipient,
		Amount:    c.amount,
	}
	c.submitting = true
	c.mu.Unlock()

	res, err := c.submitter.Submit(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		c.setNoticeLocked(NoticeError, c.submitMessage(err))
		return res, err
	}

	c.notice = &Notice{
		Kind:    NoticeSuccess,
		Message: fmt.Sprintf(msgTransferSent, res.Hash.Hex()),
		TxURL:   c.registry.TxURL(req.ChainID, res.Hash.Hex()),
	}
	c.recipient = ""
	c.amount = ""
	return res, nil
}

// Status reports the connection state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	switch {
	case c.account == (common.Address{}):
		return StatusDisconnected
	case !c.registry.IsSupported(c.chainID):
		return StatusUnsupported
	default:
		return StatusReady
	}
}

// activeChainLocked is the chain whose catalog is shown. Unsupported ids fall
// back to the default chain.
func (c *Controller) activeChainLocked() *chain.ChainConfig {
	return c.registry.Resolve(c.chainID)
}

func (c *Controller) catalogLocked() []token.Token {
	active := c.activeChainLocked()
	var custom []token.Token
	if c.cfg.AllowCustomTokens {
		custom = c.custom.ForChain(active.ChainIDInt)
	}
	return active.Catalog(custom)
}

// selectedLocked falls back to the first catalog entry when the selection is
// no longer listed.
func (c *Controller) selectedLocked() string {
	catalog := c.catalogLocked()
	if _, ok := token.Find(catalog, c.selected); ok {
		return c.selected
	}
	if len(catalog) == 0 {
		return ""
	}
	return catalog[0].Key()
}

func (c *Controller) ensureSelectedLocked() {
	c.selected = c.selectedLocked()
}

// clearSnapshotLocked empties balances and invalidates in-flight refreshes.
func (c *Controller) clearSnapshotLocked() {
	c.snapshot = balance.Snapshot{}
	c.refreshSeq++
	c.refreshing = false
}

func (c *Controller) setNoticeLocked(kind NoticeKind, msg string) {
	c.notice = &Notice{Kind: kind, Message: msg}
}
