package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/yolodolo42/gswap/internal/store"
	"github.com/yolodolo42/gswap/internal/transfer"
	"github.com/yolodolo42/gswap/internal/wallet"
)

// Store keys owned by the connector. They are wiped on disconnect so a later
// connect starts clean.
const (
	SessionKey       = "connector.session"
	RecentWalletsKey = "connector.recent_wallets"
	WalletKey        = "connector.wallet"
)

const maxRecentWallets = 5

var (
	ErrNotConnected = errors.New("no wallet connected")
	ErrLocked       = errors.New("wallet is connected but locked")
)

// Unlocker decrypts keys for an address.
type Unlocker interface {
	Unlock(address common.Address, password string) (*wallet.KeystoreSigner, error)
}

// State is the persisted connection.
type State struct {
	Account     common.Address `json:"account"`
	ChainID     int64          `json:"chainId"`
	ConnectedAt time.Time      `json:"connectedAt"`
}

// Connector tracks which account is connected, on which chain, and holds its
// unlocked signer for the life of the process.
type Connector struct {
	mu      sync.RWMutex
	store   store.Store
	keys    Unlocker
	backend wallet.Broadcaster
	log     *zap.Logger

	state  *State
	signer *wallet.KeystoreSigner
	sender *wallet.Sender
	now    func() time.Time
}

func NewConnector(s store.Store, keys Unlocker, backend wallet.Broadcaster, log *zap.Logger) *Connector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Connector{
		store:   s,
		keys:    keys,
		backend: backend,
		log:     log,
		now:     time.Now,
	}
}

// Restore loads a previously saved session. The account comes back locked.
func (c *Connector) Restore() (State, bool) {
	var st State
	if !store.Load(c.store, SessionKey, &st) || st.Account == (common.Address{}) {
		return State{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = &st
	return st, true
}

// Connect unlocks address and records it as the active session on chainID.
func (c *Connector) Connect(address common.Address, password string, chainID int64) (State, error) {
	signer, err := c.keys.Unlock(address, password)
	if err != nil {
		return State{}, fmt.Errorf("failed to unlock %s: %w", address.Hex(), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lockLocked()
	st := State{Account: address, ChainID: chainID, ConnectedAt: c.now().UTC()}
	c.state = &st
	c.signer = signer
	c.sender = wallet.NewSender(signer, c.backend, c.log)

	if err := c.persistLocked(); err != nil {
		return st, err
	}
	if err := c.rememberLocked(address); err != nil {
		return st, err
	}

	c.log.Info("wallet connected", zap.String("account", address.Hex()), zap.Int64("chain_id", chainID))
	return st, nil
}

// Unlock attaches a signer to a restored session.
func (c *Connector) Unlock(password string) error {
	c.mu.RLock()
	st := c.state
	c.mu.RUnlock()
	if st == nil {
		return ErrNotConnected
	}

	signer, err := c.keys.Unlock(st.Account, password)
	if err != nil {
		return fmt.Errorf("failed to unlock %s: %w", st.Account.Hex(), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lockLocked()
	c.signer = signer
	c.sender = wallet.NewSender(signer, c.backend, c.log)
	return nil
}

// SwitchChain moves the session to chainID. Support is the caller's concern;
// an unsupported id is stored as is.
func (c *Connector) SwitchChain(chainID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == nil {
		return ErrNotConnected
	}
	c.state.ChainID = chainID
	return c.persistLocked()
}

// Disconnect wipes the signer and forgets the session in memory. The store
// keys are cleared by whoever owns the store, using SessionKeys.
func (c *Connector) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lockLocked()
	if c.state != nil {
		c.log.Info("wallet disconnected", zap.String("account", c.state.Account.Hex()))
	}
	c.state = nil
	return nil
}

// SessionKeys lists every store key the connector writes.
func (c *Connector) SessionKeys() []string {
	return []string{SessionKey, RecentWalletsKey, WalletKey}
}

// State returns the active session.
func (c *Connector) State() (State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == nil {
		return State{}, false
	}
	return *c.state, true
}

// Sender returns the signing client, or nil when no signer is unlocked.
func (c *Connector) Sender() transfer.Sender {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sender == nil {
		return nil
	}
	return c.sender
}

// RecentWallets returns recently connected accounts, most recent first.
func (c *Connector) RecentWallets() []string {
	var recent []string
	store.Load(c.store, RecentWalletsKey, &recent)
	return recent
}

func (c *Connector) persistLocked() error {
	if err := store.Save(c.store, SessionKey, c.state); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (c *Connector) rememberLocked(address common.Address) error {
	var recent []string
	store.Load(c.store, RecentWalletsKey, &recent)

	next := []string{address.Hex()}
	for _, a := range recent {
		if strings.EqualFold(a, address.Hex()) {
			continue
		}
		if len(next) == maxRecentWallets {
			break
		}
		next = append(next, a)
	}

	if err := store.Save(c.store, RecentWalletsKey, next); err != nil {
		return fmt.Errorf("failed to save recent wallets: %w", err)
	}
	if err := store.Save(c.store, WalletKey, wallet.SignerTypeKeystore); err != nil {
		return fmt.Errorf("failed to save wallet type: %w", err)
	}
	return nil
}

func (c *Connector) lockLocked() {
	if c.signer != nil {
		c.signer.Lock()
	}
	c.signer = nil
	c.sender = nil
}
